// Package session runs the document question-answering pipeline: ingestion,
// indexing, model loading and answering, behind a lifecycle state machine.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/llm"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/retrieval"
	"go.uber.org/zap"
)

// DefaultTopK is the number of segments retrieved per question.
const DefaultTopK = 4

// Progress messages reported during Initialize.
const (
	MsgExtracting = "Extracting text from document..."
	MsgSplitting  = "Splitting text into chunks..."
	MsgEmbedding  = "Creating document embeddings..."
	MsgLoading    = "Loading LLM model... (This is memory intensive)"
	MsgReady      = "Chatbot ready! You can now ask questions."
	msgFailed     = "Failed to initialize chatbot: "
)

// InitRequest names the inputs of one initialization. An empty DocumentPath
// skips ingestion and indexing; the session then answers without context.
type InitRequest struct {
	DocumentPath string
	ModelPath    string
	Params       llm.Params
}

// Orchestrator is one question-answering session. It owns the session's
// index and model handle; both are replaced only by a new Initialize.
type Orchestrator struct {
	id        string
	embedder  embedding.Embedder
	runtime   *llm.Runtime
	extractor *extract.Extractor
	chunking  config.ChunkingConfig
	topK      int
	genOpts   llm.CompleteOptions
	logger    *zap.Logger
	progress  func(models.Progress)

	mu           sync.Mutex
	state        models.State
	stage        models.State
	lastErr      error
	initializing bool
	index        *retrieval.Index
	handle       *llm.Handle
	updatedAt    time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a logger for stage transitions and answers.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithProgress registers a callback for staged progress messages. It is
// called synchronously from the initializing goroutine.
func WithProgress(fn func(models.Progress)) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

// WithChunking sets the splitter parameters.
func WithChunking(cfg config.ChunkingConfig) Option {
	return func(o *Orchestrator) { o.chunking = cfg }
}

// WithTopK sets how many segments are retrieved per question.
func WithTopK(k int) Option {
	return func(o *Orchestrator) {
		if k > 0 {
			o.topK = k
		}
	}
}

// WithGeneration sets the sampling temperature and token limit. maxTokens 0
// selects half the model's context window.
func WithGeneration(temperature float64, maxTokens int) Option {
	return func(o *Orchestrator) {
		o.genOpts.Temperature = temperature
		o.genOpts.MaxTokens = maxTokens
	}
}

// WithExtractor replaces the default document extractor.
func WithExtractor(e *extract.Extractor) Option {
	return func(o *Orchestrator) { o.extractor = e }
}

// New returns an uninitialized session embedding with embedder and loading
// models through runtime.
func New(embedder embedding.Embedder, runtime *llm.Runtime, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		id:       uuid.NewString(),
		embedder: embedder,
		runtime:  runtime,
		chunking: config.ChunkingConfig{ChunkSize: 1000, ChunkOverlap: 200},
		topK:     DefaultTopK,
		genOpts:  llm.CompleteOptions{Temperature: config.DefaultTemperature},
		logger:   zap.NewNop(),
		progress: func(models.Progress) {},
		state:    models.StateUninitialized,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.extractor == nil {
		o.extractor = extract.NewExtractor(extract.WithLogger(o.logger))
	}
	o.logger = o.logger.With(zap.String("session_id", o.id))
	o.updatedAt = time.Now()
	return o
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string { return o.id }

// State returns the current lifecycle state.
func (o *Orchestrator) State() models.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Status returns a snapshot for UI gating.
func (o *Orchestrator) Status() models.Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	st := models.Status{
		SessionID: o.id,
		State:     o.state,
		UpdatedAt: o.updatedAt,
	}
	if o.state == models.StateFailed {
		st.Stage = string(o.stage)
		if o.lastErr != nil {
			st.Error = o.lastErr.Error()
		}
	}
	if o.index != nil {
		st.Segments = o.index.Len()
	}
	if o.handle != nil {
		st.Model = o.handle.Path()
	}
	return st
}

// Err returns the error that moved the session to Failed, or nil.
func (o *Orchestrator) Err() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != models.StateFailed {
		return nil
	}
	return o.lastErr
}

// Initialize runs extraction, chunking, index build and model load in order.
// Any stage failure moves the session to Failed and is returned as an
// *errs.StageError. Only one Initialize may run at a time; a concurrent call
// fails with errs.ErrAlreadyInitializing. Initializing a Ready or Failed
// session discards its index and model first.
func (o *Orchestrator) Initialize(ctx context.Context, req InitRequest) error {
	hadModel, err := o.claim(req)
	if err != nil {
		return err
	}
	return o.run(ctx, req, hadModel)
}

// claim takes the initialization slot and drops the previous index and model.
// The state leaves Ready under the same lock, so no Answer can observe Ready
// without a model.
func (o *Orchestrator) claim(req InitRequest) (hadModel bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.initializing {
		return false, fmt.Errorf("session %s: %w", o.id, errs.ErrAlreadyInitializing)
	}
	o.initializing = true
	hadModel = o.handle != nil
	o.index, o.handle, o.lastErr = nil, nil, nil
	if req.DocumentPath != "" {
		o.setStateLocked(models.StateIngesting)
	} else {
		o.setStateLocked(models.StateLoadingModel)
	}
	return hadModel, nil
}

func (o *Orchestrator) run(ctx context.Context, req InitRequest, hadModel bool) error {
	defer func() {
		o.mu.Lock()
		o.initializing = false
		o.mu.Unlock()
	}()

	start := time.Now()
	if hadModel {
		if err := o.runtime.Unload(ctx); err != nil {
			o.logger.Warn("unloading previous model", zap.Error(err))
		}
	}

	var index *retrieval.Index
	if req.DocumentPath != "" {
		var err error
		index, err = o.buildIndex(ctx, req.DocumentPath)
		if err != nil {
			return err
		}
	}

	if err := o.advance(ctx, models.StateLoadingModel, MsgLoading); err != nil {
		return err
	}
	handle, err := o.runtime.Load(ctx, req.ModelPath, req.Params)
	if err != nil {
		return o.fail(models.StateLoadingModel, err)
	}

	o.mu.Lock()
	o.index, o.handle = index, handle
	o.setStateLocked(models.StateReady)
	o.mu.Unlock()
	o.logger.Info("session ready", zap.Duration("elapsed", time.Since(start)))
	o.progress(models.Progress{State: models.StateReady, Message: MsgReady})
	return nil
}

func (o *Orchestrator) buildIndex(ctx context.Context, path string) (*retrieval.Index, error) {
	if err := o.advance(ctx, models.StateIngesting, MsgExtracting); err != nil {
		return nil, err
	}
	doc, err := o.extractor.Load(path)
	if err != nil {
		return nil, o.fail(models.StateIngesting, err)
	}

	if err := o.advance(ctx, models.StateIndexing, MsgSplitting); err != nil {
		return nil, err
	}
	ix := indexer.NewIndexer(o.embedder, &o.chunking, indexer.WithLogger(o.logger))
	segments, err := ix.Segment(doc)
	if err != nil {
		return nil, o.fail(models.StateIndexing, err)
	}
	o.progress(models.Progress{State: models.StateIndexing, Message: MsgEmbedding})
	index, err := ix.Build(ctx, segments)
	if err != nil {
		return nil, o.fail(models.StateIndexing, err)
	}
	return index, nil
}

// advance enters the next stage, failing the session when ctx has ended.
func (o *Orchestrator) advance(ctx context.Context, next models.State, msg string) error {
	if err := ctx.Err(); err != nil {
		return o.fail(next, err)
	}
	o.mu.Lock()
	o.setStateLocked(next)
	o.mu.Unlock()
	o.logger.Info("stage started", zap.String("stage", string(next)))
	o.progress(models.Progress{State: next, Message: msg})
	return nil
}

func (o *Orchestrator) fail(stage models.State, err error) error {
	serr := &errs.StageError{Stage: string(stage), Err: err}
	o.mu.Lock()
	o.index, o.handle = nil, nil
	o.stage, o.lastErr = stage, serr
	o.setStateLocked(models.StateFailed)
	o.mu.Unlock()
	o.logger.Error("initialization failed",
		zap.String("stage", string(stage)),
		zap.String("code", string(errs.Classify(err))),
		zap.Error(err),
	)
	o.progress(models.Progress{State: models.StateFailed, Message: msgFailed + err.Error(), Err: serr})
	return serr
}

func (o *Orchestrator) setStateLocked(s models.State) {
	o.state = s
	o.updatedAt = time.Now()
}

// Answer answers question from the document when an index exists, directly
// otherwise. It fails with errs.ErrNotReady unless the session is Ready and
// never changes the session state.
func (o *Orchestrator) Answer(ctx context.Context, question string) (*models.Answer, error) {
	o.mu.Lock()
	if o.state != models.StateReady {
		state := o.state
		o.mu.Unlock()
		return nil, fmt.Errorf("session is %s: %w", state, errs.ErrNotReady)
	}
	index, handle := o.index, o.handle
	o.mu.Unlock()
	if handle == nil {
		return nil, fmt.Errorf("session has no model: %w", errs.ErrNotReady)
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("empty question: %w", errs.ErrInvalidInput)
	}

	start := time.Now()
	retrieved, err := o.retrieve(ctx, index, question)
	if err != nil {
		return nil, err
	}
	prompt, stop := buildPrompt(retrieved, question)
	opts := o.genOpts
	opts.Stop = stop
	o.logger.Debug("generating answer",
		zap.String("mode", string(retrieved.mode())),
		zap.Int("segments", len(sourcesOf(retrieved))),
		zap.Int("prompt_chars", len(prompt)),
	)
	text, err := handle.Complete(ctx, prompt, opts)
	if err != nil {
		return nil, fmt.Errorf("answer: %w", err)
	}
	answer := &models.Answer{
		Question: question,
		Text:     text,
		Mode:     retrieved.mode(),
		Sources:  sourcesOf(retrieved),
		Elapsed:  time.Since(start),
	}
	o.logger.Info("answered", zap.String("mode", string(answer.Mode)), zap.Duration("elapsed", answer.Elapsed))
	return answer, nil
}

func (o *Orchestrator) retrieve(ctx context.Context, index *retrieval.Index, question string) (Retrieved, error) {
	if index == nil || index.Len() == 0 {
		return NoContext{}, nil
	}
	hits, err := index.Query(ctx, question, o.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	return ContextAvailable{Segments: hits}, nil
}

// Close releases the model and the embedder. The session is unusable afterwards.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	o.index, o.handle = nil, nil
	o.setStateLocked(models.StateUninitialized)
	o.mu.Unlock()
	err := o.runtime.Close()
	if cerr := o.embedder.Close(); err == nil {
		err = cerr
	}
	return err
}
