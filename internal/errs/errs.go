// Package errs defines the error taxonomy shared by the ingestion, indexing,
// model and session layers.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors. Callers test with errors.Is; wrapped errors keep the cause.
var (
	// ErrDocument: source document missing, unreadable, or without extractable text.
	ErrDocument = errors.New("document error")
	// ErrInvalidInput: malformed chunking parameters or input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyInput: nothing to index.
	ErrEmptyInput = errors.New("empty input")
	// ErrEmbedding: embedding computation failed.
	ErrEmbedding = errors.New("embedding error")
	// ErrNotBuilt: index queried before a successful build.
	ErrNotBuilt = errors.New("index not built")
	// ErrModelNotFound: model path does not resolve to a regular file.
	ErrModelNotFound = errors.New("model not found")
	// ErrModelLoad: the runtime could not load the model. See LoadError.
	ErrModelLoad = errors.New("model load failed")
	// ErrGeneration: a completion call failed. See GenerationError.
	ErrGeneration = errors.New("generation failed")
	// ErrNotReady: answer requested while the session is not Ready.
	ErrNotReady = errors.New("session not ready")
	// ErrAlreadyInitializing: a second initialization was requested while one is running.
	ErrAlreadyInitializing = errors.New("initialization already in progress")
	// ErrBusy: the generation context is serving another call.
	ErrBusy = errors.New("model busy")
)

// LoadKind is the diagnosed cause of a model load failure.
type LoadKind string

const (
	LoadOutOfMemory LoadKind = "oom"
	LoadCorrupt     LoadKind = "corrupt"
	LoadUnsupported LoadKind = "unsupported"
	LoadOther       LoadKind = "other"
)

// LoadError is returned when the model file cannot be read or loaded.
type LoadError struct {
	Kind LoadKind
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s (%s): %v", e.Path, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is reports ErrModelLoad so callers need not know the concrete type.
func (e *LoadError) Is(target error) bool { return target == ErrModelLoad }

// GenerationKind is the diagnosed cause of a completion failure.
type GenerationKind string

const (
	GenerationOutOfMemory     GenerationKind = "oom"
	GenerationContextExceeded GenerationKind = "context_exceeded"
	GenerationOther           GenerationKind = "other"
)

// GenerationError is returned by a failed completion call.
type GenerationError struct {
	Kind GenerationKind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation (%s): %v", e.Kind, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// StageError records the initialization stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
