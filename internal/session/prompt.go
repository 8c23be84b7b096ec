package session

import (
	"fmt"
	"strings"

	"github.com/hyperjump/docqa/internal/models"
)

const ragTemplate = `Use the following pieces of context to answer the user's question.
If you don't know the answer, just say that you don't know, don't try to make up an answer.

Context: %s

Question: %s
Answer:`

const directTemplate = "Question: %s\nAnswer:"

var (
	ragStops    = []string{"\nQuestion:"}
	directStops = []string{"\nQuestion:", "\nUser:"}
)

// Retrieved is the outcome of the retrieval step for one question: either
// ContextAvailable or NoContext.
type Retrieved interface {
	mode() models.AnswerMode
}

// ContextAvailable carries the segments retrieved for a question, best first.
type ContextAvailable struct {
	Segments []models.ScoredSegment
}

// NoContext means no index exists and the model answers directly.
type NoContext struct{}

func (ContextAvailable) mode() models.AnswerMode { return models.ModeRAG }
func (NoContext) mode() models.AnswerMode        { return models.ModeDirect }

// buildPrompt returns the prompt and stop sequences for question.
func buildPrompt(r Retrieved, question string) (string, []string) {
	switch r := r.(type) {
	case ContextAvailable:
		texts := make([]string, len(r.Segments))
		for i, s := range r.Segments {
			texts[i] = s.Segment.Text
		}
		return fmt.Sprintf(ragTemplate, strings.Join(texts, "\n\n"), question), ragStops
	default:
		return fmt.Sprintf(directTemplate, question), directStops
	}
}

func sourcesOf(r Retrieved) []models.ScoredSegment {
	if c, ok := r.(ContextAvailable); ok {
		return c.Segments
	}
	return nil
}
