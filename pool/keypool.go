package pool

import "sync"

// PoolKey is a recyclable size-class key object. Unlike Key (an immutable
// value used as a map key internally), PoolKey is a pointer handed out by
// a KeyPool and reused across calls to avoid allocating and re-hashing a
// fresh key on every pool operation.
type PoolKey struct {
	size int
}

// Size returns the element count this key currently represents.
func (k *PoolKey) Size() int {
	return k.size
}

// KeyPool recycles PoolKey objects, bucketed by the size class they were
// last set to. Unlike Pool, it is bounded by item count rather than bytes:
// eviction drops the oldest key of the bucket least recently touched by
// Put or Get once the pool holds more than maxKeys recycled keys in total.
type KeyPool struct {
	mu      sync.Mutex
	maxKeys int
	groups  *groupedLinkedMap[int, *PoolKey]
	count   int
}

// DefaultKeyPoolSize is LruSimpleKeyPool's default bound when no explicit
// size is given.
const DefaultKeyPoolSize = 10

// NewLruSimpleKeyPool returns a KeyPool bounded to maxKeys recycled key
// objects. maxKeys <= 0 uses DefaultKeyPoolSize.
func NewLruSimpleKeyPool(maxKeys int) *KeyPool {
	if maxKeys <= 0 {
		maxKeys = DefaultKeyPoolSize
	}

	return &KeyPool{
		maxKeys: maxKeys,
		groups:  newGroupedLinkedMap[int, *PoolKey](),
	}
}

// Get returns a PoolKey for size, reusing a recycled one of the same size
// if available.
func (kp *KeyPool) Get(size int) *PoolKey {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	if k, ok := kp.groups.get(size); ok {
		kp.count--
		return k
	}

	return &PoolKey{size: size}
}

// Put returns k to the pool for future reuse, evicting the oldest key of
// the least-recently-touched bucket if this pushes the pool over maxKeys.
func (kp *KeyPool) Put(k *PoolKey) {
	kp.mu.Lock()
	defer kp.mu.Unlock()

	kp.groups.put(k.size, k)
	kp.count++

	for kp.count > kp.maxKeys {
		if _, _, ok := kp.groups.removeLast(); !ok {
			break
		}

		kp.count--
	}
}
