package llm

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// fakeSession records requests and optionally blocks until released.
type fakeSession struct {
	mu      sync.Mutex
	reqs    []Request
	reply   string
	err     error
	block   chan struct{}
	started chan struct{}
	closed  bool
}

func (s *fakeSession) Complete(ctx context.Context, req Request) (string, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	block, started := s.block, s.started
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// fakeBackend hands out the queued sessions in order, or fails with err.
type fakeBackend struct {
	mu       sync.Mutex
	sessions []*fakeSession
	err      error
	opened   []string
}

func (b *fakeBackend) Open(ctx context.Context, path string, p Params) (Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	b.opened = append(b.opened, path)
	if len(b.sessions) == 0 {
		return &fakeSession{}, nil
	}
	s := b.sessions[0]
	b.sessions = b.sessions[1:]
	return s, nil
}

// writeGGUF creates a file with a valid GGUF v3 header.
func writeGGUF(t *testing.T, dir, name string) string {
	t.Helper()
	header := append([]byte("GGUF"), make([]byte, 12)...)
	binary.LittleEndian.PutUint32(header[4:8], 3)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, header, 0600); err != nil {
		t.Fatal(err)
	}
	return path
}
