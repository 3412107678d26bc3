// Package pool provides the codec's worker group and bucketed sync.Pool
// instances for sample scratch buffers. Buffers are organized by size class
// to minimize waste.
package pool

import "sync"

// Size classes for bucketed pools, in float64 elements. Each class holds
// one plane of a square block: 4x4 up to 128x128.
const (
	Size4x4     = 16
	Size8x8     = 64
	Size16x16   = 256
	Size32x32   = 1024
	Size64x64   = 4096
	Size128x128 = 16384
)

// bucketIndex returns the pool index for a given element count.
func bucketIndex(size int) int {
	switch {
	case size <= Size4x4:
		return 0
	case size <= Size8x8:
		return 1
	case size <= Size16x16:
		return 2
	case size <= Size32x32:
		return 3
	case size <= Size64x64:
		return 4
	default:
		return 5
	}
}

var sizes = [6]int{Size4x4, Size8x8, Size16x16, Size32x32, Size64x64, Size128x128}

var pools [6]sync.Pool

func init() {
	for i := range pools {
		sz := sizes[i]
		pools[i] = sync.Pool{
			New: func() any {
				b := make([]float64, sz)
				return &b
			},
		}
	}
}

// GetFloat64 returns a zeroed float64 slice of the requested length from the
// pool. The returned slice may have a larger capacity. The caller must call
// PutFloat64 when done.
func GetFloat64(size int) []float64 {
	idx := bucketIndex(size)
	bp := pools[idx].Get().(*[]float64)
	b := *bp
	if cap(b) < size {
		b = make([]float64, size)
		*bp = b
		return b
	}
	b = b[:size]
	clear(b)
	return b
}

// PutFloat64 returns a slice to the pool. The slice must have been obtained
// from GetFloat64. Slices smaller than Size4x4 are not pooled.
func PutFloat64(b []float64) {
	c := cap(b)
	if c < Size4x4 {
		return
	}
	idx := bucketIndex(c)
	if c < sizes[idx] {
		// Undersized for its bucket: pooling it would force a realloc on Get.
		return
	}
	b = b[:c]
	pools[idx].Put(&b)
}
