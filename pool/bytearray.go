package pool

// NewByteArrayPool returns a Pool of []byte values, bounded by maxSize
// bytes. One byte per element, so Bytes and Len coincide.
func NewByteArrayPool(maxSize int64) *Pool[[]byte] {
	return New(maxSize, Adapter[[]byte]{
		New:   func(size int) []byte { return make([]byte, size) },
		Len:   func(v []byte) int { return len(v) },
		Bytes: func(v []byte) int64 { return int64(len(v)) },
		Clear: func(v []byte) {
			for i := range v {
				v[i] = 0
			}
		},
	})
}
