package llm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/fileid"
)

// modelLock is an exclusive per-model-file lock shared by all processes using
// the same lock directory.
type modelLock struct {
	modelPath string
	fl        *flock.Flock
}

// acquireModelLock takes the lock for modelPath without blocking.
func acquireModelLock(dir, modelPath string) (*modelLock, error) {
	abs := fileid.Abs(modelPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lockPath := filepath.Join(dir, fileid.Key(abs)+".lock")
	l := flock.New(lockPath)
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cannot acquire model lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("model %s is loaded by another process (lock: %s): %w", abs, lockPath, errs.ErrBusy)
	}
	return &modelLock{modelPath: abs, fl: l}, nil
}

func (l *modelLock) sameModel(modelPath string) bool {
	return l != nil && l.modelPath == fileid.Abs(modelPath)
}

func (l *modelLock) release() error {
	if l == nil {
		return nil
	}
	return l.fl.Unlock()
}
