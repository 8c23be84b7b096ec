package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/hyperjump/docqa/internal/errs"
)

var (
	oomMarkers         = []string{"out of memory", "bad allocation", "bad_alloc", "failed to allocate"}
	corruptMarkers     = []string{"failed to load model", "invalid model file", "invalid magic", "failed to read"}
	unsupportedMarkers = []string{"unknown model architecture", "unknown model type", "unsupported model"}
	contextMarkers     = []string{"context size", "context length", "context window", "exceeds the available context"}
)

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// diagnoseLoad maps a model runtime's load output to a failure category.
func diagnoseLoad(output string) errs.LoadKind {
	s := strings.ToLower(output)
	switch {
	case containsAny(s, oomMarkers):
		return errs.LoadOutOfMemory
	case containsAny(s, unsupportedMarkers):
		return errs.LoadUnsupported
	case containsAny(s, corruptMarkers):
		return errs.LoadCorrupt
	default:
		return errs.LoadOther
	}
}

// diagnoseGeneration maps a generation failure message to a category.
func diagnoseGeneration(msg string) errs.GenerationKind {
	s := strings.ToLower(msg)
	switch {
	case containsAny(s, oomMarkers):
		return errs.GenerationOutOfMemory
	case containsAny(s, contextMarkers):
		return errs.GenerationContextExceeded
	default:
		return errs.GenerationOther
	}
}

// asLoadError wraps err as a *errs.LoadError unless it already is one.
func asLoadError(path string, err error) error {
	var le *errs.LoadError
	if errors.As(err, &le) {
		return err
	}
	return &errs.LoadError{Kind: diagnoseLoad(err.Error()), Path: path, Err: err}
}

// asGenerationError wraps err as a *errs.GenerationError unless it already
// is one or is a context cancellation.
func asGenerationError(err error) error {
	var ge *errs.GenerationError
	if errors.As(err, &ge) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &errs.GenerationError{Kind: diagnoseGeneration(err.Error()), Err: err}
}
