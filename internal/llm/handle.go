package llm

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/errs"
	"go.uber.org/zap"
)

// fallbackMaxTokens is used when the context window is unknown.
const fallbackMaxTokens = 512

// DefaultMaxTokens returns half the context window, or 512 when the window
// is unknown.
func DefaultMaxTokens(contextWindow int) int {
	if contextWindow <= 0 {
		return fallbackMaxTokens
	}
	return max(contextWindow/2, 1)
}

// CompleteOptions are per-call generation settings. Zero MaxTokens selects
// DefaultMaxTokens for the handle's context window.
type CompleteOptions struct {
	MaxTokens   int
	Temperature float64
	Stop        []string
}

// Handle is a loaded model. At most one Complete runs at a time; a second
// caller is rejected with errs.ErrBusy or waits, depending on the queue policy.
type Handle struct {
	id      string
	path    string
	params  Params
	session Session
	policy  string
	logger  *zap.Logger

	slot   chan struct{}
	closed atomic.Bool
}

func newHandle(id, path string, p Params, s Session, policy string, logger *zap.Logger) *Handle {
	return &Handle{
		id:      id,
		path:    path,
		params:  p,
		session: s,
		policy:  policy,
		logger:  logger,
		slot:    make(chan struct{}, 1),
	}
}

// ID identifies this load of the model.
func (h *Handle) ID() string { return h.id }

// Path is the model file the handle was loaded from.
func (h *Handle) Path() string { return h.path }

// Params returns the configuration the model was loaded with.
func (h *Handle) Params() Params { return h.params }

// Complete continues prompt and returns the generated text trimmed of
// surrounding whitespace.
func (h *Handle) Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error) {
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()
	if h.closed.Load() {
		return "", fmt.Errorf("model %s was unloaded: %w", h.path, errs.ErrNotReady)
	}

	req := Request{
		Prompt:      prompt,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stop:        opts.Stop,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens(h.params.ContextWindow)
	}
	start := time.Now()
	h.logger.Debug("generation started",
		zap.String("handle", h.id),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("max_tokens", req.MaxTokens),
	)
	out, err := h.session.Complete(ctx, req)
	if err != nil {
		err = asGenerationError(err)
		h.logger.Warn("generation failed", zap.String("handle", h.id), zap.Error(err))
		return "", err
	}
	out = strings.TrimSpace(out)
	h.logger.Debug("generation finished",
		zap.String("handle", h.id),
		zap.Int("output_chars", len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out, nil
}

func (h *Handle) acquire(ctx context.Context) error {
	if h.policy == config.QueueWait {
		select {
		case h.slot <- struct{}{}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case h.slot <- struct{}{}:
		return nil
	default:
		return fmt.Errorf("a generation is already in progress: %w", errs.ErrBusy)
	}
}

func (h *Handle) release() { <-h.slot }

// retire waits for any in-flight Complete, marks the handle closed and
// releases its session. Later Complete calls fail with errs.ErrNotReady.
func (h *Handle) retire(ctx context.Context) error {
	select {
	case h.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer h.release()
	if h.closed.Swap(true) {
		return nil
	}
	return h.session.Close()
}
