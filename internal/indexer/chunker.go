// Package indexer splits document text into overlapping, ordered segments.
package indexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
)

// Chunker splits text into segments of at most chunkSize characters, each
// segment after the first starting with chunkOverlap characters of its
// predecessor's tail.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text with the chunker's parameters. See Split.
func (c *Chunker) Chunk(text string) ([]models.Segment, error) {
	return Split(text, c.chunkSize, c.chunkOverlap)
}

// separator levels, coarsest first. The last level cuts at raw character boundaries.
type level int

const (
	levelParagraph level = iota
	levelLine
	levelSentence
	levelWord
	levelChar
)

// span is a half-open rune range [start, end) into the source text.
type span struct{ start, end int }

func (s span) len() int { return s.end - s.start }

// Split cuts documentText into ordered segments.
//
// The text is first partitioned into contiguous cores of at most
// chunkSize-overlap characters, cutting at the coarsest separator (paragraph
// break, line break, sentence end, whitespace, then any character) that keeps
// pieces within budget. Each segment is its core prefixed with
// min(overlap, len(previous segment)) characters of the previous segment's
// tail, so no segment exceeds chunkSize. Offsets count runes.
func Split(documentText string, chunkSize, overlap int) ([]models.Segment, error) {
	if strings.TrimSpace(documentText) == "" {
		return nil, fmt.Errorf("split: document text is empty: %w", errs.ErrInvalidInput)
	}
	if chunkSize <= 0 || overlap < 0 {
		return nil, fmt.Errorf("split: chunk size %d and overlap %d must be positive: %w", chunkSize, overlap, errs.ErrInvalidInput)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("split: overlap %d must be smaller than chunk size %d: %w", overlap, chunkSize, errs.ErrInvalidInput)
	}

	text := []rune(documentText)
	s := &splitter{text: text, budget: chunkSize - overlap}
	cores := s.split(span{0, len(text)}, levelParagraph)

	segments := make([]models.Segment, 0, len(cores))
	prevLen := 0
	for i, core := range cores {
		start := core.start
		if i > 0 {
			start -= min(overlap, prevLen)
		}
		segments = append(segments, models.Segment{
			Text:          string(text[start:core.end]),
			StartOffset:   start,
			SequenceIndex: i,
		})
		prevLen = core.end - start
	}
	return segments, nil
}

type splitter struct {
	text   []rune
	budget int
}

// split partitions sp into contiguous pieces no longer than the budget.
// Small neighbouring pieces at the same level are merged greedily; pieces
// still too large are split again at the next finer level.
func (s *splitter) split(sp span, lvl level) []span {
	if sp.len() <= s.budget {
		return []span{sp}
	}
	if lvl >= levelChar {
		return s.splitChars(sp)
	}
	pieces := s.cut(sp, lvl)
	if len(pieces) <= 1 {
		return s.split(sp, lvl+1)
	}

	var out []span
	cur := span{sp.start, sp.start}
	flush := func() {
		if cur.len() > 0 {
			out = append(out, cur)
		}
	}
	for _, p := range pieces {
		if p.len() > s.budget {
			flush()
			out = append(out, s.split(p, lvl+1)...)
			cur = span{p.end, p.end}
			continue
		}
		if cur.len()+p.len() > s.budget {
			flush()
			cur = p
			continue
		}
		cur.end = p.end
	}
	flush()
	return out
}

func (s *splitter) splitChars(sp span) []span {
	out := make([]span, 0, sp.len()/s.budget+1)
	for i := sp.start; i < sp.end; i += s.budget {
		out = append(out, span{i, min(i+s.budget, sp.end)})
	}
	return out
}

// cut splits sp after every separator of the given level. The separator stays
// attached to the end of the preceding piece so pieces remain contiguous.
func (s *splitter) cut(sp span, lvl level) []span {
	var pieces []span
	last := sp.start
	for i := sp.start; i < sp.end; i++ {
		n := s.separatorAt(i, sp.end, lvl)
		if n == 0 {
			continue
		}
		end := i + n
		if end < sp.end {
			pieces = append(pieces, span{last, end})
			last = end
		}
		i = end - 1
	}
	if last < sp.end {
		pieces = append(pieces, span{last, sp.end})
	}
	return pieces
}

// separatorAt returns the length of the separator of the given level that
// starts at i, or 0 when there is none.
func (s *splitter) separatorAt(i, end int, lvl level) int {
	r := s.text[i]
	switch lvl {
	case levelParagraph:
		if r == '\n' && i+1 < end && s.text[i+1] == '\n' {
			n := 2
			for i+n < end && s.text[i+n] == '\n' {
				n++
			}
			return n
		}
	case levelLine:
		if r == '\n' {
			return 1
		}
	case levelSentence:
		if (r == '.' || r == '!' || r == '?') && i+1 < end && unicode.IsSpace(s.text[i+1]) {
			return 2
		}
	case levelWord:
		if unicode.IsSpace(r) {
			return 1
		}
	}
	return 0
}
