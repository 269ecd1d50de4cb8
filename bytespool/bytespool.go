// Package bytespool recycles byte slices for message envelopes and frames.
package bytespool

import (
	"sort"
	"sync"
)

type poolInfo struct {
	sz int
	p  *sync.Pool
}

func newPoolInfo(sz int) *poolInfo {
	return &poolInfo{
		sz: sz,
		p: &sync.Pool{New: func() interface{} {
			return make([]byte, 0, sz)
		}},
	}
}

// pools sorted by size.
var pools []*poolInfo

func init() {
	for sz := 64; sz <= 16*1024; sz *= 2 {
		pools = append(pools, newPoolInfo(sz))
	}
	// 16KB as the increment unit up to 1MB
	for i := 2; i <= 64; i++ {
		pools = append(pools, newPoolInfo(i*16*1024))
	}
}

func findPool(sz int) *poolInfo {
	i := sort.Search(len(pools), func(i int) bool { return pools[i].sz >= sz })
	if i < len(pools) {
		return pools[i]
	}
	return nil
}

// Alloc returns a slice of length sz, pooled when sz is not too large.
func Alloc(sz int) []byte {
	if sz <= 0 {
		return nil
	}

	if pi := findPool(sz); pi != nil {
		return pi.p.Get().([]byte)[:sz]
	}
	return make([]byte, sz)
}

// Free gives p back to its pool, slices not allocated by Alloc are dropped.
func Free(p []byte) {
	sz := cap(p)
	if sz <= 0 {
		return
	}
	if pi := findPool(sz); pi != nil && pi.sz == sz {
		pi.p.Put(p[:0])
	}
}
