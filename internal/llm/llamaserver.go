package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/errs"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// exceedContextType is the error type llama-server reports for prompts that
// do not fit the context window.
const exceedContextType = "exceed_context_size_error"

// LlamaServer runs each model in a llama.cpp server process on a loopback
// port and completes through its OpenAI-compatible API.
type LlamaServer struct {
	binary         string
	startupTimeout time.Duration
	logger         *zap.Logger
	httpClient     *http.Client
}

// NewLlamaServer returns a backend configured from cfg.
func NewLlamaServer(cfg *config.ModelConfig, logger *zap.Logger) *LlamaServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LlamaServer{
		binary:         cfg.ServerBinary,
		startupTimeout: cfg.StartupTimeout,
		logger:         logger,
		httpClient:     &http.Client{Timeout: 2 * time.Second},
	}
}

// Open checks the GGUF header, starts the server and waits until it reports
// healthy. A server that exits during startup is diagnosed from its output.
func (s *LlamaServer) Open(ctx context.Context, path string, p Params) (Session, error) {
	if err := checkGGUF(path); err != nil {
		return nil, err
	}
	bin, err := exec.LookPath(s.binary)
	if err != nil {
		return nil, &errs.LoadError{Kind: errs.LoadOther, Path: path, Err: fmt.Errorf("llama-server binary %q: %w", s.binary, err)}
	}
	port, err := freePort()
	if err != nil {
		return nil, &errs.LoadError{Kind: errs.LoadOther, Path: path, Err: err}
	}

	args := []string{
		"-m", path,
		"--host", "127.0.0.1",
		"--port", strconv.Itoa(port),
		"-c", strconv.Itoa(p.ContextWindow),
		"-b", strconv.Itoa(p.BatchSize),
		"-t", strconv.Itoa(p.Threads),
		"-ngl", strconv.Itoa(p.GPULayers),
	}
	cmd := exec.Command(bin, args...)
	out := newTailBuffer(64 << 10)
	var w io.Writer = out
	if p.Verbose {
		w = io.MultiWriter(out, &lineLogger{logger: s.logger.Named("llama-server")})
	}
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		return nil, &errs.LoadError{Kind: errs.LoadOther, Path: path, Err: fmt.Errorf("start llama-server: %w", err)}
	}
	s.logger.Debug("llama-server started", zap.Int("pid", cmd.Process.Pid), zap.Int("port", port), zap.Strings("args", args))

	exited := make(chan struct{})
	var waitErr error
	go func() {
		waitErr = cmd.Wait()
		close(exited)
	}()

	baseURL := fmt.Sprintf("http://127.0.0.1:%d", port)
	if err := s.waitHealthy(ctx, baseURL, exited); err != nil {
		stopProcess(cmd, exited)
		output := out.String()
		if errors.Is(err, errProcessExited) {
			err = fmt.Errorf("llama-server exited during load: %v\n%s", waitErr, output)
		}
		return nil, &errs.LoadError{Kind: diagnoseLoad(output), Path: path, Err: err}
	}
	sess := newServerSession(baseURL+"/v1", s.logger)
	sess.cmd, sess.exited, sess.output = cmd, exited, out
	return sess, nil
}

var errProcessExited = errors.New("process exited")

// waitHealthy polls /health until it answers 200. llama-server answers 503
// while the model is still loading.
func (s *LlamaServer) waitHealthy(ctx context.Context, baseURL string, exited <-chan struct{}) error {
	timeout := s.startupTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()
	for {
		if s.healthy(ctx, baseURL) {
			return nil
		}
		select {
		case <-exited:
			return errProcessExited
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("llama-server not healthy after %s", timeout)
		case <-tick.C:
		}
	}
}

func (s *LlamaServer) healthy(ctx context.Context, baseURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// serverSession completes against a running llama-server.
type serverSession struct {
	client *openai.Client
	logger *zap.Logger

	cmd    *exec.Cmd
	exited chan struct{}
	output *tailBuffer
	once   sync.Once
}

func newServerSession(baseURL string, logger *zap.Logger) *serverSession {
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = baseURL
	return &serverSession{client: openai.NewClientWithConfig(cfg), logger: logger}
}

func (s *serverSession) Complete(ctx context.Context, req Request) (string, error) {
	resp, err := s.client.CreateCompletion(ctx, openai.CompletionRequest{
		Model:       "local",
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: wireTemperature(req.Temperature),
		Stop:        req.Stop,
	})
	if err != nil {
		return "", s.generationError(ctx, err)
	}
	if len(resp.Choices) == 0 {
		return "", &errs.GenerationError{Kind: errs.GenerationOther, Err: errors.New("empty completion response")}
	}
	return resp.Choices[0].Text, nil
}

// greedyTemperature stands in for a zero temperature, which the completion
// request drops from the JSON body. llama-server samples near-greedily at it.
const greedyTemperature = 1e-6

func wireTemperature(t float64) float32 {
	if t <= 0 {
		return greedyTemperature
	}
	return float32(t)
}

func (s *serverSession) generationError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Type == exceedContextType {
			return &errs.GenerationError{Kind: errs.GenerationContextExceeded, Err: err}
		}
		return &errs.GenerationError{Kind: diagnoseGeneration(apiErr.Message), Err: err}
	}
	if s.processExited() {
		output := s.output.String()
		return &errs.GenerationError{Kind: diagnoseGeneration(output), Err: fmt.Errorf("llama-server exited: %w\n%s", err, output)}
	}
	return &errs.GenerationError{Kind: diagnoseGeneration(err.Error()), Err: err}
}

func (s *serverSession) processExited() bool {
	if s.exited == nil {
		return false
	}
	select {
	case <-s.exited:
		return true
	default:
		return false
	}
}

func (s *serverSession) Close() error {
	if s.cmd != nil {
		s.once.Do(func() { stopProcess(s.cmd, s.exited) })
	}
	return nil
}

// stopProcess interrupts the server and kills it if it has not exited
// within five seconds.
func stopProcess(cmd *exec.Cmd, exited <-chan struct{}) {
	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		_ = cmd.Process.Kill()
		<-exited
	}
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("find free port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// lineLogger forwards complete lines of server output at debug level.
type lineLogger struct {
	logger  *zap.Logger
	pending []byte
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.pending = append(l.pending, p...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			break
		}
		if line := bytes.TrimSpace(l.pending[:i]); len(line) > 0 {
			l.logger.Debug(string(line))
		}
		l.pending = l.pending[i+1:]
	}
	return len(p), nil
}

