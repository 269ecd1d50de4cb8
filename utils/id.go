package utils

import (
	"math/rand"
	"sync"
	"time"
)

// RecyclableIDGenerator hands out unique non-zero ids that can be given back
// for reuse. Zero is reserved as the null id.
type RecyclableIDGenerator struct {
	sync.Mutex
	ids  map[uint32]struct{}
	next uint32
}

// NewRecyclableIDGenerator create an id generator starting at a random point.
func NewRecyclableIDGenerator() *RecyclableIDGenerator {
	return &RecyclableIDGenerator{
		ids:  make(map[uint32]struct{}),
		next: uint32(rand.New(rand.NewSource(time.Now().UnixNano())).Int63()),
	}
}

// NextID get the next unused id
func (g *RecyclableIDGenerator) NextID() (id uint32) {
	g.Lock()
	defer g.Unlock()
	for {
		id = g.next
		g.next++
		if id == 0 {
			continue
		}
		if _, ok := g.ids[id]; !ok {
			g.ids[id] = struct{}{}
			return
		}
	}
}

// Recycle recyle the id for future use.
func (g *RecyclableIDGenerator) Recycle(id uint32) {
	g.Lock()
	delete(g.ids, id)
	g.Unlock()
}
