package pool

// Key is the pool's size-class discriminator. Two keys are equal, and so
// retrieve each other's recycled values, iff they name the same element
// count. sizeStrategy's sorted ledger is keyed by this same element count;
// byte footprints, which differ from the element count for anything wider
// than a byte (int32, float64, ...), are measured by the Pool's
// Adapter.Bytes instead.
type Key struct {
	size int
}

// NewKey returns the size-class key for an array of the given element
// count.
func NewKey(size int) Key {
	return Key{size: size}
}

// Size returns the element count this key represents.
func (k Key) Size() int {
	return k.size
}
