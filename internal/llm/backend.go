// Package llm owns the local generation model: loading it, serializing
// completions on it and classifying its failures.
package llm

import (
	"context"

	"github.com/hyperjump/docqa/internal/config"
)

// Params is the fixed configuration a model is loaded with.
type Params struct {
	ContextWindow int
	BatchSize     int
	Threads       int
	GPULayers     int
	Verbose       bool
}

// ParamsFromConfig returns the load parameters in cfg.
func ParamsFromConfig(cfg *config.ModelConfig) Params {
	return Params{
		ContextWindow: cfg.ContextWindow,
		BatchSize:     cfg.BatchSize,
		Threads:       cfg.Threads,
		GPULayers:     cfg.GPULayers,
		Verbose:       cfg.Verbose,
	}
}

// Request is one completion call as seen by a backend. MaxTokens is already
// resolved to a positive value.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Backend loads a model file into a generation session.
type Backend interface {
	// Open loads the model at path. Failures should be *errs.LoadError when
	// the cause is known; other errors are diagnosed by the Runtime.
	Open(ctx context.Context, path string, p Params) (Session, error)
}

// Session is a loaded generation context. It is not safe for concurrent
// Complete calls; the Handle wrapping it guarantees one call at a time.
type Session interface {
	Complete(ctx context.Context, req Request) (string, error)
	Close() error
}
