//go:build cgo
// +build cgo

package embedding

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/pkg/utils"
	ort "github.com/yalue/onnxruntime_go"
)

// onnxInputs are the input names of a BERT-style sentence-transformer export.
var onnxInputs = []string{"input_ids", "attention_mask", "token_type_ids"}

// ONNXEmbedder runs a pooled sentence-transformer export (e.g. all-MiniLM-L6-v2)
// with ONNX Runtime. It needs cgo and the onnxruntime shared library. Input
// and output tensors are allocated once, so Embed calls are serialized.
type ONNXEmbedder struct {
	mu         sync.Mutex
	session    *ort.AdvancedSession
	inputs     []*ort.Tensor[int64] // same order as onnxInputs
	output     *ort.Tensor[float32]
	tokenizer  Tokenizer
	modelID    string
	dimensions int
	maxTokens  int
}

// NewONNXEmbedder loads the model at modelPath, initializing the ONNX Runtime
// environment on first use. tok must use the vocabulary the model was
// exported with.
func NewONNXEmbedder(modelPath string, tok Tokenizer, dimensions, maxTokens int) (*ONNXEmbedder, error) {
	if err := validateONNXArgs(modelPath, dimensions, maxTokens); err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, errors.New("onnx embedder: tokenizer is required")
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnx runtime: %w", err)
		}
	}

	e := &ONNXEmbedder{
		tokenizer:  tok,
		modelID:    "onnx-" + filepath.Base(modelPath),
		dimensions: dimensions,
		maxTokens:  maxTokens,
	}
	shape := ort.NewShape(1, int64(maxTokens))
	for _, name := range onnxInputs {
		t, err := ort.NewTensor(shape, make([]int64, maxTokens))
		if err != nil {
			e.destroy()
			return nil, fmt.Errorf("create %s tensor: %w", name, err)
		}
		e.inputs = append(e.inputs, t)
	}
	out, err := ort.NewTensor(ort.NewShape(1, int64(dimensions)), make([]float32, dimensions))
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	e.output = out

	ins := make([]ort.ArbitraryTensor, len(e.inputs))
	for i, t := range e.inputs {
		ins[i] = t
	}
	session, err := ort.NewAdvancedSession(modelPath, onnxInputs, []string{"output"},
		ins, []ort.ArbitraryTensor{e.output}, nil)
	if err != nil {
		e.destroy()
		return nil, fmt.Errorf("create onnx session for %s: %w", modelPath, err)
	}
	e.session = session
	return e, nil
}

// Embed tokenizes text, runs the model and returns the L2-normalized output.
func (e *ONNXEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil, fmt.Errorf("onnx embedder closed: %w", errs.ErrEmbedding)
	}

	ids, mask, types := e.tokenizer.Tokenize(text, e.maxTokens)
	for i, data := range [][]int64{ids, mask, types} {
		copy(e.inputs[i].GetData(), data)
	}
	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx inference: %v: %w", err, errs.ErrEmbedding)
	}
	vec := append([]float32(nil), e.output.GetData()[:e.dimensions]...)
	utils.NormalizeL2(vec)
	return vec, nil
}

// EmbedBatch embeds texts one at a time through the shared tensors.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

// ModelID returns "onnx-" plus the model file name.
func (e *ONNXEmbedder) ModelID() string { return e.modelID }

// Close destroys the session and its tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.destroy()
}

func (e *ONNXEmbedder) destroy() error {
	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	for _, t := range e.inputs {
		err = errors.Join(err, t.Destroy())
	}
	e.inputs = nil
	if e.output != nil {
		err = errors.Join(err, e.output.Destroy())
		e.output = nil
	}
	return err
}
