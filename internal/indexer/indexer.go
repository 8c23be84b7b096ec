package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/retrieval"
	"go.uber.org/zap"
)

// Indexer turns an extracted document into a built retrieval index.
type Indexer struct {
	embedder embedding.Embedder
	chunker  *Chunker
	logger   *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for chunking and index build events.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer that chunks with cfg and embeds with embedder.
func NewIndexer(embedder embedding.Embedder, cfg *config.ChunkingConfig, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		embedder: embedder,
		chunker:  NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Segment normalizes the document text in place and splits it into segments.
// Segment offsets refer to the normalized text.
func (idx *Indexer) Segment(doc *models.Document) ([]models.Segment, error) {
	doc.Text = Preprocess(doc.Text)
	segments, err := idx.chunker.Chunk(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", doc.Path, err)
	}
	idx.logger.Info("document split",
		zap.String("path", doc.Path),
		zap.Int("segments", len(segments)),
		zap.Int("chunk_size", idx.chunker.chunkSize),
		zap.Int("chunk_overlap", idx.chunker.chunkOverlap),
	)
	return segments, nil
}

// Build embeds segments into a new retrieval index. The returned index is
// fully built; on error nothing is returned.
func (idx *Indexer) Build(ctx context.Context, segments []models.Segment) (*retrieval.Index, error) {
	start := time.Now()
	index := retrieval.New(idx.embedder, retrieval.WithLogger(idx.logger))
	if err := index.Build(ctx, segments); err != nil {
		return nil, err
	}
	idx.logger.Debug("embeddings created", zap.Duration("elapsed", time.Since(start)))
	return index, nil
}

// IndexDocument segments doc and builds its index.
func (idx *Indexer) IndexDocument(ctx context.Context, doc *models.Document) (*retrieval.Index, error) {
	segments, err := idx.Segment(doc)
	if err != nil {
		return nil, err
	}
	return idx.Build(ctx, segments)
}
