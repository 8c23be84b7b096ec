package vector

import (
	"context"
	"math"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, []int{0, 1, 2}, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != 0 || results[1].ID != 1 {
		t.Errorf("unexpected order %+v", results)
	}
}

func TestMemoryIndex_TiesBrokenByID(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	// identical vectors added out of ID order
	_ = idx.Add(ctx, []int{5, 2, 9, 0}, [][]float32{{1, 0}, {1, 0}, {0, 1}, {1, 0}})
	results, err := idx.Search(ctx, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 2, 5, 9}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i, id := range want {
		if results[i].ID != id {
			t.Errorf("result %d ID=%d, want %d", i, results[i].ID, id)
		}
	}
}

func TestMemoryIndex_KExceedsSize(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, []int{0, 1}, [][]float32{{1, 0}, {0, 1}})
	results, err := idx.Search(ctx, []float32{0, 1}, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Errorf("expected all 2 vectors, got %d", len(results))
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3)
	ctx := context.Background()
	if err := idx.Add(ctx, []int{0, 1}, [][]float32{{1, 0, 0}, {1, 0}}); err == nil {
		t.Error("expected error for dimension mismatch on Add")
	}
	if idx.Size() != 0 {
		t.Errorf("failed Add should add nothing, size=%d", idx.Size())
	}
	if _, err := idx.Search(ctx, []float32{1, 0}, 1); err == nil {
		t.Error("expected error for dimension mismatch on Search")
	}
	if err := idx.Add(ctx, []int{0}, [][]float32{}); err == nil {
		t.Error("expected error for ids/vectors length mismatch")
	}
}

func TestNewMemoryIndex_InvalidDimension(t *testing.T) {
	if _, err := NewMemoryIndex(0); err == nil {
		t.Error("expected error for zero dimension")
	}
}

func TestCosineSimilarity(t *testing.T) {
	if got := CosineSimilarity([]float32{2, 0}, []float32{5, 0}); math.Abs(got-1) > 1e-9 {
		t.Errorf("parallel vectors: got %f", got)
	}
	if got := CosineSimilarity([]float32{1, 0}, []float32{0, 0}); got != 0 {
		t.Errorf("zero vector: got %f", got)
	}
}

func TestMemoryIndex_AddCopiesVectors(t *testing.T) {
	idx, _ := NewMemoryIndex(2)
	ctx := context.Background()
	v := []float32{1, 0}
	if err := idx.Add(ctx, []int{0}, [][]float32{v}); err != nil {
		t.Fatal(err)
	}
	v[0] = 0
	results, err := idx.Search(ctx, []float32{1, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Score != 1 {
		t.Errorf("stored vector changed with its source: score %f", results[0].Score)
	}
}
