package pool

// NewFloat32ArrayPool returns a Pool of []float32 values, bounded by
// maxSize bytes. Four bytes per element.
func NewFloat32ArrayPool(maxSize int64) *Pool[[]float32] {
	return New(maxSize, Adapter[[]float32]{
		New:   func(size int) []float32 { return make([]float32, size) },
		Len:   func(v []float32) int { return len(v) },
		Bytes: func(v []float32) int64 { return int64(len(v)) * 4 },
		Clear: func(v []float32) {
			for i := range v {
				v[i] = 0
			}
		},
	})
}
