package llm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/errs"
	"go.uber.org/zap"
)

// Runtime owns at most one live Handle. Loading a model while a handle is
// live replaces it: the old handle is retired once its in-flight generation,
// if any, has finished, and only then is the new model opened. Two sessions
// are never live at once; a failed load leaves no handle.
type Runtime struct {
	backend Backend
	logger  *zap.Logger
	lockDir string
	policy  string

	mu      sync.Mutex // serializes Load and Close
	current *Handle
	lock    *modelLock
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets a logger for load and generation events.
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithLockDir enables the cross-process model lock in dir.
func WithLockDir(dir string) Option {
	return func(r *Runtime) { r.lockDir = dir }
}

// WithQueuePolicy sets what a concurrent Complete does: config.QueueReject
// (default) fails with errs.ErrBusy, config.QueueWait blocks until the slot
// frees or the context ends.
func WithQueuePolicy(policy string) Option {
	return func(r *Runtime) { r.policy = policy }
}

// NewRuntime returns a runtime that loads models through backend.
func NewRuntime(backend Backend, opts ...Option) *Runtime {
	r := &Runtime{backend: backend, logger: zap.NewNop(), policy: config.QueueReject}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load loads the model at path and makes it the live handle.
func (r *Runtime) Load(ctx context.Context, path string, p Params) (*Handle, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("model not found at %s: %w", path, errs.ErrModelNotFound)
	}
	if err != nil {
		return nil, &errs.LoadError{Kind: errs.LoadOther, Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("model path %s is not a regular file: %w", path, errs.ErrModelNotFound)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		old := r.current
		if err := old.retire(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("replace model %s: %w", old.path, err)
			}
			r.logger.Warn("closing previous model", zap.String("handle", old.id), zap.Error(err))
		}
		r.current = nil
		r.logger.Info("previous model unloaded", zap.String("handle", old.id))
	}
	if r.lock != nil && !r.lock.sameModel(path) {
		if err := r.lock.release(); err != nil {
			r.logger.Warn("release model lock", zap.Error(err))
		}
		r.lock = nil
	}
	if r.lockDir != "" && r.lock == nil {
		lock, err := acquireModelLock(r.lockDir, path)
		if err != nil {
			return nil, &errs.LoadError{Kind: errs.LoadOther, Path: path, Err: err}
		}
		r.lock = lock
	}

	start := time.Now()
	r.logger.Info("loading model",
		zap.String("path", path),
		zap.Int("context_window", p.ContextWindow),
		zap.Int("batch_size", p.BatchSize),
		zap.Int("threads", p.Threads),
		zap.Int("gpu_layers", p.GPULayers),
	)
	session, err := r.backend.Open(ctx, path, p)
	if err != nil {
		_ = r.lock.release()
		r.lock = nil
		err = asLoadError(path, err)
		r.logger.Error("model load failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	h := newHandle(uuid.NewString(), path, p, session, r.policy, r.logger)
	r.current = h
	r.logger.Info("model loaded", zap.String("handle", h.id), zap.Duration("elapsed", time.Since(start)))
	return h, nil
}

// Current returns the live handle, or nil when no model is loaded.
func (r *Runtime) Current() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Unload retires the live handle, waiting for an in-flight generation.
func (r *Runtime) Unload(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	closeErr := r.current.retire(ctx)
	if closeErr != nil && ctx.Err() != nil {
		return fmt.Errorf("unload model: %w", closeErr)
	}
	r.current = nil
	lockErr := r.lock.release()
	r.lock = nil
	if err := errors.Join(closeErr, lockErr); err != nil {
		return fmt.Errorf("unload model: %w", err)
	}
	return nil
}

// Close unloads the live model.
func (r *Runtime) Close() error {
	return r.Unload(context.Background())
}
