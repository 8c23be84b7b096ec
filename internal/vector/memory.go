package vector

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryIndex is a brute-force inner-product index over vectors stored back
// to back in one slice. Results are ordered by descending score; equal scores
// are ordered by ascending ID so a query always returns the same sequence.
type MemoryIndex struct {
	mu         sync.RWMutex
	dimensions int
	ids        []int
	data       []float32 // row i is data[i*dimensions : (i+1)*dimensions]
}

// NewMemoryIndex creates an empty index for vectors of the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("vector index: dimensions %d must be positive", dimensions)
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// Add appends vectors under ids. On a length or dimension mismatch nothing
// is added.
func (m *MemoryIndex) Add(ctx context.Context, ids []int, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("vector index: %d ids for %d vectors", len(ids), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != m.dimensions {
			return fmt.Errorf("vector index: vector %d has %d dimensions, want %d", ids[i], len(v), m.dimensions)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, ids...)
	m.data = slices.Grow(m.data, len(vectors)*m.dimensions)
	for _, v := range vectors {
		m.data = append(m.data, v...)
	}
	return nil
}

// Search returns the k best vectors for query. k larger than the index
// returns every vector; k <= 0 returns none.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("vector index: query has %d dimensions, want %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	results := make([]VectorResult, len(m.ids))
	for i, id := range m.ids {
		row := m.data[i*m.dimensions : (i+1)*m.dimensions]
		results[i] = VectorResult{ID: id, Score: InnerProduct(query, row)}
	}
	slices.SortFunc(results, func(a, b VectorResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return results[:min(k, len(results))], nil
}

// Size returns the number of stored vectors.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.ids)
}

// Dimensions returns the vector dimension.
func (m *MemoryIndex) Dimensions() int { return m.dimensions }

// Close is a no-op.
func (m *MemoryIndex) Close() error { return nil }
