// Package embedding provides text embedding via ONNX or feature hashing, with caching.
package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/docqa/internal/config"
)

// Embedder produces vector embeddings for text. Implementations are
// deterministic: the same text and model always yield the same vector, and
// every vector has Dimensions() entries, L2-normalized.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelID() string
	Close() error
}

// Backend names accepted by New.
const (
	BackendHashing = "hashing"
	BackendONNX    = "onnx"
)

// New creates the embedder selected by cfg.Backend, behind an LRU cache of
// cfg.CacheSize entries.
func New(cfg *config.EmbeddingConfig) (Embedder, error) {
	var e Embedder
	switch cfg.Backend {
	case BackendHashing, "":
		e = NewHashingEmbedder(cfg.Dimensions)
	case BackendONNX:
		if err := validateONNXArgs(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens); err != nil {
			return nil, err
		}
		tok, err := tokenizerFor(cfg.ModelPath, cfg.VocabPath, !cfg.Cased)
		if err != nil {
			return nil, err
		}
		emb, err := NewONNXEmbedder(cfg.ModelPath, tok, cfg.Dimensions, cfg.MaxTokens)
		if err != nil {
			return nil, err
		}
		e = emb
	default:
		return nil, fmt.Errorf("unknown embedding backend: %s (supported: hashing, onnx)", cfg.Backend)
	}
	return WithCache(e, cfg.CacheSize), nil
}

// embedEach calls embed for every text; shared by the batch implementations.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
