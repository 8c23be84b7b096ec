package session

import (
	"context"

	"github.com/hyperjump/docqa/internal/models"
)

// AnswerResult is delivered by AnswerAsync.
type AnswerResult struct {
	Answer *models.Answer
	Err    error
}

// InitializeAsync runs Initialize on its own goroutine. The returned channel
// receives exactly one value, nil on success, and is then closed.
func (o *Orchestrator) InitializeAsync(ctx context.Context, req InitRequest) <-chan error {
	done, err := o.StartInitialize(ctx, req)
	if err != nil {
		failed := make(chan error, 1)
		failed <- err
		close(failed)
		return failed
	}
	return done
}

// StartInitialize claims the session synchronously and runs the pipeline on
// its own goroutine. A session that is already initializing is reported
// through the returned error without starting anything.
func (o *Orchestrator) StartInitialize(ctx context.Context, req InitRequest) (<-chan error, error) {
	hadModel, err := o.claim(req)
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- o.run(ctx, req, hadModel)
	}()
	return done, nil
}

// AnswerAsync runs Answer on its own goroutine. The returned channel receives
// exactly one result and is then closed.
func (o *Orchestrator) AnswerAsync(ctx context.Context, question string) <-chan AnswerResult {
	done := make(chan AnswerResult, 1)
	go func() {
		defer close(done)
		a, err := o.Answer(ctx, question)
		done <- AnswerResult{Answer: a, Err: err}
	}()
	return done
}
