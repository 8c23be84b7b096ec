package errs

import (
	"context"
	"errors"
	"os"
)

// Code is a short classification used in logs, CLI messages and HTTP status mapping.
type Code string

const (
	CodeUnknown             Code = "unknown"
	CodeDocument            Code = "document"
	CodeInvalidInput        Code = "invalid_input"
	CodeEmbedding           Code = "embedding"
	CodeNotBuilt            Code = "not_built"
	CodeModelNotFound       Code = "model_not_found"
	CodeModelLoad           Code = "model_load"
	CodeGeneration          Code = "generation"
	CodeNotReady            Code = "not_ready"
	CodeAlreadyInitializing Code = "already_initializing"
	CodeBusy                Code = "busy"
	CodeCancel              Code = "cancel"
	CodeIO                  Code = "io"
)

// Classify maps err onto a Code using sentinels and standard library error
// types only; it never matches on message text.
func Classify(err error) Code {
	switch {
	case err == nil:
		return CodeUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCancel
	case errors.Is(err, ErrDocument):
		return CodeDocument
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyInput):
		return CodeInvalidInput
	case errors.Is(err, ErrEmbedding):
		return CodeEmbedding
	case errors.Is(err, ErrNotBuilt):
		return CodeNotBuilt
	case errors.Is(err, ErrModelNotFound):
		return CodeModelNotFound
	case errors.Is(err, ErrModelLoad):
		return CodeModelLoad
	case errors.Is(err, ErrGeneration):
		return CodeGeneration
	case errors.Is(err, ErrNotReady):
		return CodeNotReady
	case errors.Is(err, ErrAlreadyInitializing):
		return CodeAlreadyInitializing
	case errors.Is(err, ErrBusy):
		return CodeBusy
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// Hint returns a short remediation tip for err, or "" when there is none.
func Hint(err error) string {
	var le *LoadError
	if errors.As(err, &le) {
		switch le.Kind {
		case LoadOutOfMemory:
			return "The model might be too large for your available RAM/VRAM. Try a smaller model or set gpu_layers to 0."
		case LoadCorrupt:
			return "Check if the model file is corrupted or if it's a valid GGUF file."
		case LoadUnsupported:
			return "Ensure the GGUF model is compatible with your llama.cpp server version."
		}
		return ""
	}
	var ge *GenerationError
	if errors.As(err, &ge) {
		switch ge.Kind {
		case GenerationOutOfMemory:
			return "The model ran out of memory during inference. Try a shorter query or reduce the context window."
		case GenerationContextExceeded:
			return "The prompt does not fit the context window. Try a shorter query, a smaller top_k or a larger context_window."
		}
		return ""
	}
	switch Classify(err) {
	case CodeModelNotFound:
		return "Select an existing .gguf model file."
	case CodeDocument:
		return "Select a readable document that contains extractable text."
	case CodeNotReady:
		return "Initialize the session before asking questions."
	case CodeBusy:
		return "Wait for the current answer to finish."
	}
	return ""
}
