// Package models defines the data structures passed between ingestion, indexing and the session.
package models

// Document is the full extracted text of one source file.
type Document struct {
	Path string `json:"path"`
	Text string `json:"-"`
}

// Segment is a chunk of document text plus its position in the source.
// Segments are immutable after creation.
type Segment struct {
	Text          string `json:"text"`
	StartOffset   int    `json:"start_offset"`   // character (rune) offset in the source document
	SequenceIndex int    `json:"sequence_index"` // 0-based rank in emission order
}

// End returns the offset one past the segment's last character.
func (s Segment) End() int {
	return s.StartOffset + len([]rune(s.Text))
}

// ScoredSegment is a retrieval hit.
type ScoredSegment struct {
	Segment Segment `json:"segment"`
	Score   float64 `json:"score"`
}
