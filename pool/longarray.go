package pool

// NewLongArrayPool returns a Pool of []int64 values, bounded by maxSize
// bytes. Eight bytes per element.
func NewLongArrayPool(maxSize int64) *Pool[[]int64] {
	return New(maxSize, Adapter[[]int64]{
		New:   func(size int) []int64 { return make([]int64, size) },
		Len:   func(v []int64) int { return len(v) },
		Bytes: func(v []int64) int64 { return int64(len(v)) * 8 },
		Clear: func(v []int64) {
			for i := range v {
				v[i] = 0
			}
		},
	})
}
