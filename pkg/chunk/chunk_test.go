package chunk_test

import (
	"testing"

	"github.com/nydusgo/rafs/pkg/chunk"
)

func TestContiguous(t *testing.T) {
	c0 := chunk.Info{CompressOffset: 0, CompressSize: 10}
	c1 := chunk.Info{CompressOffset: 10, CompressSize: 5}
	c2 := chunk.Info{CompressOffset: 20, CompressSize: 5}

	if !c0.Contiguous(c1) {
		t.Fatal("expected c0 contiguous with c1")
	}
	if c0.Contiguous(c2) {
		t.Fatal("expected c0 not contiguous with c2 (gap)")
	}
}

func TestEnd(t *testing.T) {
	c := chunk.Info{CompressOffset: 100, CompressSize: 50}
	if c.End() != 150 {
		t.Fatalf("End() = %d, want 150", c.End())
	}
}
