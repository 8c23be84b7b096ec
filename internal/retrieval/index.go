// Package retrieval embeds document segments and answers nearest-neighbour
// queries over them.
package retrieval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/vector"
	"go.uber.org/zap"
)

// Index pairs every segment with its embedding. It is built exactly once and
// read-only afterwards; replacing the document means a new Index.
type Index struct {
	embedder embedding.Embedder
	logger   *zap.Logger

	mu       sync.RWMutex
	built    bool
	modelID  string
	segments []models.Segment // indexed by SequenceIndex
	vectors  vector.VectorIndex
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets a logger for build and query events.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Index) { idx.logger = l }
}

// New returns an unbuilt index that embeds with e. The same embedder instance
// serves Build and every Query.
func New(e embedding.Embedder, opts ...Option) *Index {
	idx := &Index{embedder: e, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build embeds segments and makes the index queryable. Segments must be
// numbered 0..n-1 by SequenceIndex. Build is all-or-nothing: on any error the
// index stays unbuilt. A second Build on the same Index is rejected.
func (idx *Index) Build(ctx context.Context, segments []models.Segment) error {
	if len(segments) == 0 {
		return fmt.Errorf("build index: no segments: %w", errs.ErrEmptyInput)
	}
	for i, s := range segments {
		if s.SequenceIndex != i {
			return fmt.Errorf("build index: segment at position %d has sequence index %d: %w", i, s.SequenceIndex, errs.ErrInvalidInput)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.built {
		return fmt.Errorf("build index: already built: %w", errs.ErrInvalidInput)
	}

	start := time.Now()
	texts := make([]string, len(segments))
	ids := make([]int, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
		ids[i] = s.SequenceIndex
	}
	embeddings, err := idx.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("build index: %v: %w", err, errs.ErrEmbedding)
	}
	if len(embeddings) != len(segments) {
		return fmt.Errorf("build index: embedder returned %d vectors for %d segments: %w", len(embeddings), len(segments), errs.ErrEmbedding)
	}
	dims := idx.embedder.Dimensions()
	vecs, err := vector.NewMemoryIndex(dims)
	if err != nil {
		return fmt.Errorf("build index: %v: %w", err, errs.ErrEmbedding)
	}
	if err := vecs.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("build index: %v: %w", err, errs.ErrEmbedding)
	}

	stored := make([]models.Segment, len(segments))
	copy(stored, segments)
	idx.segments = stored
	idx.vectors = vecs
	idx.modelID = idx.embedder.ModelID()
	idx.built = true

	idx.logger.Info("index built",
		zap.Int("segments", len(stored)),
		zap.Int("dimensions", dims),
		zap.String("embedding_model", idx.modelID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// Query embeds queryText and returns the k nearest segments, best first, ties
// broken by ascending SequenceIndex. k larger than the index returns every
// segment. Similarity is cosine (inner product of L2-normalized vectors).
func (idx *Index) Query(ctx context.Context, queryText string, k int) ([]models.ScoredSegment, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.built {
		return nil, fmt.Errorf("query index: %w", errs.ErrNotBuilt)
	}
	if k < 1 {
		return nil, fmt.Errorf("query index: k=%d must be at least 1: %w", k, errs.ErrInvalidInput)
	}
	q, err := idx.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("query index: %v: %w", err, errs.ErrEmbedding)
	}
	hits, err := idx.vectors.Search(ctx, q, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %v: %w", err, errs.ErrEmbedding)
	}
	out := make([]models.ScoredSegment, len(hits))
	for i, h := range hits {
		out[i] = models.ScoredSegment{Segment: idx.segments[h.ID], Score: h.Score}
	}
	idx.logger.Debug("index queried", zap.Int("k", k), zap.Int("hits", len(out)))
	return out, nil
}

// Built reports whether Build has completed successfully.
func (idx *Index) Built() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.built
}

// Len returns the number of indexed segments, 0 before Build.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.segments)
}

// ModelID returns the embedding model the index was built with.
func (idx *Index) ModelID() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.modelID
}
