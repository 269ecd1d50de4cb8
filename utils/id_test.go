package utils

import (
	"testing"
)

func TestRecyclableIDGenerator(t *testing.T) {
	g := NewRecyclableIDGenerator()
	seen := map[uint32]bool{}
	for i := 0; i < 1000; i++ {
		id := g.NextID()
		if id == 0 {
			t.Fatal("zero id handed out")
		}
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}

	// ids in use are skipped, recycled ones are handed out again
	g.Recycle(2)
	g.next = 1
	if id := g.NextID(); id != 2 {
		t.Fatalf("expected recycled id 2, got %d", id)
	}
}

func TestRecyclableIDGeneratorSkipsZero(t *testing.T) {
	g := NewRecyclableIDGenerator()
	g.next = ^uint32(0)
	if id := g.NextID(); id != ^uint32(0) {
		t.Fatalf("unexpected id %d", id)
	}
	if id := g.NextID(); id != 1 {
		t.Fatalf("expected wrap to 1, got %d", id)
	}
}
