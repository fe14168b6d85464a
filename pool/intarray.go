package pool

// NewIntArrayPool returns a Pool of []int32 values, bounded by maxSize
// bytes. Four bytes per element.
func NewIntArrayPool(maxSize int64) *Pool[[]int32] {
	return New(maxSize, Adapter[[]int32]{
		New:   func(size int) []int32 { return make([]int32, size) },
		Len:   func(v []int32) int { return len(v) },
		Bytes: func(v []int32) int64 { return int64(len(v)) * 4 },
		Clear: func(v []int32) {
			for i := range v {
				v[i] = 0
			}
		},
	})
}
