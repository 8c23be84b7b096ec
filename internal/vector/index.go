// Package vector provides an in-memory vector index and similarity helpers.
package vector

import "context"

// VectorIndex stores fixed-dimension vectors under integer IDs and returns
// nearest neighbours by inner product.
type VectorIndex interface {
	Add(ctx context.Context, ids []int, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)
	Size() int
	Dimensions() int
	Close() error
}

// VectorResult is a single vector search hit (ID is the segment sequence index).
type VectorResult struct {
	ID    int
	Score float64 // inner product; cosine similarity for normalized vectors
}
