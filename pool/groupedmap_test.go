package pool

import "testing"

func Test_GroupedLinkedMap_Get_Returns_False_On_Empty_Key(t *testing.T) {
	t.Parallel()

	m := newGroupedLinkedMap[int, string]()

	_, ok := m.get(1)
	if ok {
		t.Fatal("expected miss on empty map")
	}
}

func Test_GroupedLinkedMap_Put_Get_Round_Trip(t *testing.T) {
	t.Parallel()

	m := newGroupedLinkedMap[int, string]()
	m.put(1, "a")

	v, ok := m.get(1)
	if !ok || v != "a" {
		t.Fatalf("got (%q, %v), want (\"a\", true)", v, ok)
	}

	_, ok = m.get(1)
	if ok {
		t.Fatal("bucket should be drained after single put+get")
	}
}

func Test_GroupedLinkedMap_Get_Moves_Bucket_To_Head(t *testing.T) {
	t.Parallel()

	m := newGroupedLinkedMap[int, string]()
	m.put(2, "b")
	m.put(2, "c") // bucket 2 still has one value left after one get below
	m.put(1, "a") // bucket 1 is now at head, bucket 2 at tail

	m.get(2) // touches bucket 2, moving it to head; pops "c"

	// removeLast should now drain the tail-most nonempty bucket, which
	// after touching 2 is bucket 1 (not touched since its put).
	k, v, ok := m.removeLast()
	if !ok || k != 1 || v != "a" {
		t.Fatalf("got (%d, %q, %v), want (1, \"a\", true)", k, v, ok)
	}
}

func Test_GroupedLinkedMap_RemoveLast_Pops_Oldest_Value_In_Bucket(t *testing.T) {
	t.Parallel()

	m := newGroupedLinkedMap[int, string]()
	m.put(1, "first")
	m.put(1, "second")

	_, v, ok := m.removeLast()
	if !ok || v != "first" {
		t.Fatalf("got (%q, %v), want (\"first\", true)", v, ok)
	}

	v2, ok := m.get(1)
	if !ok || v2 != "second" {
		t.Fatalf("got (%q, %v), want (\"second\", true)", v2, ok)
	}
}

func Test_GroupedLinkedMap_RemoveLast_Skips_Drained_Buckets(t *testing.T) {
	t.Parallel()

	m := newGroupedLinkedMap[int, string]()
	m.put(1, "a")
	m.put(2, "b")

	m.removeLast() // drains and unlinks bucket 1

	k, v, ok := m.removeLast()
	if !ok || k != 2 || v != "b" {
		t.Fatalf("got (%d, %q, %v), want (2, \"b\", true)", k, v, ok)
	}

	_, _, ok = m.removeLast()
	if ok {
		t.Fatal("expected empty map after draining both buckets")
	}
}
