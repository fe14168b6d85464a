package pool

// NewFloat64ArrayPool returns a Pool of []float64 values, bounded by
// maxSize bytes. Eight bytes per element.
func NewFloat64ArrayPool(maxSize int64) *Pool[[]float64] {
	return New(maxSize, Adapter[[]float64]{
		New:   func(size int) []float64 { return make([]float64, size) },
		Len:   func(v []float64) int { return len(v) },
		Bytes: func(v []float64) int64 { return int64(len(v)) * 8 },
		Clear: func(v []float64) {
			for i := range v {
				v[i] = 0
			}
		},
	})
}
