package models

import "time"

// State is the session lifecycle state.
type State string

const (
	StateUninitialized State = "Uninitialized"
	StateIngesting     State = "Ingesting"
	StateIndexing      State = "Indexing"
	StateLoadingModel  State = "LoadingModel"
	StateReady         State = "Ready"
	StateFailed        State = "Failed"
)

// Status is a snapshot of the session for UI gating.
type Status struct {
	SessionID string    `json:"session_id"`
	State     State     `json:"state"`
	Stage     string    `json:"stage,omitempty"` // failing stage when State is Failed
	Error     string    `json:"error,omitempty"` // failure reason when State is Failed
	Segments  int       `json:"segments"`        // indexed segment count
	Model     string    `json:"model,omitempty"` // loaded model path
	UpdatedAt time.Time `json:"updated_at"`
}

// Progress is a staged status message emitted during initialization.
type Progress struct {
	State   State  `json:"state"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// AnswerMode tells which generation path produced an answer.
type AnswerMode string

const (
	ModeRAG    AnswerMode = "rag"
	ModeDirect AnswerMode = "direct"
)

// Answer is the result of one question.
type Answer struct {
	Question string          `json:"question"`
	Text     string          `json:"answer"`
	Mode     AnswerMode      `json:"mode"`
	Sources  []ScoredSegment `json:"sources,omitempty"`
	Elapsed  time.Duration   `json:"elapsed_ns"`
}
