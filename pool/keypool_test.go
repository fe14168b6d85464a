package pool_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calvinalkan/cachekit/pool"
)

func Test_KeyPool_Get_Allocates_Fresh_Key_When_Empty(t *testing.T) {
	t.Parallel()

	kp := pool.NewLruSimpleKeyPool(0) // uses DefaultKeyPoolSize

	k := kp.Get(4)
	assert.Equal(t, 4, k.Size())
}

func Test_KeyPool_Put_Then_Get_Recycles_Same_Key(t *testing.T) {
	t.Parallel()

	kp := pool.NewLruSimpleKeyPool(10)

	k1 := kp.Get(4)
	kp.Put(k1)

	k2 := kp.Get(4)
	assert.Same(t, k1, k2)
}

func Test_KeyPool_Evicts_By_Count_Not_Size(t *testing.T) {
	t.Parallel()

	kp := pool.NewLruSimpleKeyPool(2)

	k1 := kp.Get(1)
	k2 := kp.Get(2)
	k3 := kp.Get(3)

	kp.Put(k1)
	kp.Put(k2)
	kp.Put(k3) // pushes the pool to 3 held keys, over the bound of 2

	// The least-recently-inserted key (k1, size 1) should have been
	// evicted to make room; k2 and k3 should still be recyclable.
	got1 := kp.Get(1)
	assert.NotSame(t, k1, got1, "k1's bucket should have been evicted")

	got2 := kp.Get(2)
	assert.Same(t, k2, got2)

	got3 := kp.Get(3)
	assert.Same(t, k3, got3)
}
