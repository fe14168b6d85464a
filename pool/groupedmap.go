package pool

// groupNode is one bucket: a size-class key and the values currently
// recycled under it, plus the intrusive links ordering buckets from most-
// to least-recently-touched.
type groupNode[K comparable, V any] struct {
	key    K
	values []V
	prev   *groupNode[K, V]
	next   *groupNode[K, V]
}

// groupedLinkedMap is a doubly-linked list of per-key buckets, ordered
// most- to least-recently-touched (head to tail). Both put and get count
// as touching a bucket and move it to the head; removeLast drains the
// tail, so a bucket that hasn't been put into or read from in the longest
// time is the first one eviction reaches.
type groupedLinkedMap[K comparable, V any] struct {
	index map[K]*groupNode[K, V]
	head  *groupNode[K, V]
	tail  *groupNode[K, V]
}

func newGroupedLinkedMap[K comparable, V any]() *groupedLinkedMap[K, V] {
	return &groupedLinkedMap[K, V]{index: make(map[K]*groupNode[K, V])}
}

// put appends value to key's bucket, creating it if absent, and moves the
// bucket to the head.
func (m *groupedLinkedMap[K, V]) put(key K, value V) {
	n, ok := m.index[key]
	if !ok {
		n = &groupNode[K, V]{key: key}
		m.index[key] = n
		m.linkAtTail(n)
	}

	n.values = append(n.values, value)
	m.moveToHead(n)
}

// get pops the most-recently-put value from key's bucket (exact match) and
// moves the bucket to the head. Returns false if no value is held for key.
func (m *groupedLinkedMap[K, V]) get(key K) (V, bool) {
	var zero V

	n, ok := m.index[key]
	if !ok || len(n.values) == 0 {
		return zero, false
	}

	last := len(n.values) - 1
	v := n.values[last]
	n.values = n.values[:last]

	m.moveToHead(n)

	return v, true
}

// removeLast pops the oldest value from the tail-most nonempty bucket,
// unlinking buckets it drains to empty along the way. It pops from the
// opposite end of the bucket's value list than get does, so that under
// repeated put-time eviction the most-recently-put values in a bucket are
// the ones left standing. Returns the key the value was held under, the
// value, and whether anything was removed.
func (m *groupedLinkedMap[K, V]) removeLast() (K, V, bool) {
	var zeroK K

	var zeroV V

	for n := m.tail; n != nil; {
		if len(n.values) == 0 {
			drained := n
			n = n.prev
			m.unlink(drained)
			delete(m.index, drained.key)

			continue
		}

		v := n.values[0]
		n.values = n.values[1:]
		key := n.key

		if len(n.values) == 0 {
			m.unlink(n)
			delete(m.index, key)
		}

		return key, v, true
	}

	return zeroK, zeroV, false
}

func (m *groupedLinkedMap[K, V]) linkAtTail(n *groupNode[K, V]) {
	n.prev = m.tail
	n.next = nil

	if m.tail != nil {
		m.tail.next = n
	} else {
		m.head = n
	}

	m.tail = n
}

func (m *groupedLinkedMap[K, V]) unlink(n *groupNode[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		m.head = n.next
	}

	if n.next != nil {
		n.next.prev = n.prev
	} else {
		m.tail = n.prev
	}

	n.prev, n.next = nil, nil
}

func (m *groupedLinkedMap[K, V]) moveToHead(n *groupNode[K, V]) {
	if m.head == n {
		return
	}

	m.unlink(n)

	n.next = m.head
	n.prev = nil

	if m.head != nil {
		m.head.prev = n
	} else {
		m.tail = n
	}

	m.head = n
}
