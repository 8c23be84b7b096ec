package indexer

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
)

// checkInvariants verifies ordering, size, overlap and reconstruction.
func checkInvariants(t *testing.T, text string, segs []models.Segment, chunkSize, overlap int) {
	t.Helper()
	if len(segs) == 0 {
		t.Fatal("expected at least one segment")
	}
	runes := []rune(text)
	var rebuilt strings.Builder
	for i, s := range segs {
		if s.SequenceIndex != i {
			t.Errorf("segment %d SequenceIndex=%d", i, s.SequenceIndex)
		}
		if n := utf8.RuneCountInString(s.Text); n > chunkSize {
			t.Errorf("segment %d has %d chars, chunk size %d", i, n, chunkSize)
		}
		if got := string(runes[s.StartOffset:s.End()]); got != s.Text {
			t.Errorf("segment %d text %q does not match source at offset %d (%q)", i, s.Text, s.StartOffset, got)
		}
		if i == 0 {
			if s.StartOffset != 0 {
				t.Errorf("first segment StartOffset=%d", s.StartOffset)
			}
			rebuilt.WriteString(s.Text)
			continue
		}
		prev := segs[i-1]
		if s.StartOffset < prev.StartOffset {
			t.Errorf("segment %d StartOffset %d before previous %d", i, s.StartOffset, prev.StartOffset)
		}
		want := min(overlap, utf8.RuneCountInString(prev.Text))
		shared := prev.End() - s.StartOffset
		if shared < want {
			t.Errorf("segment %d shares %d chars with previous, want >= %d", i, shared, want)
		}
		prevRunes := []rune(prev.Text)
		head := []rune(s.Text)[:shared]
		if string(prevRunes[len(prevRunes)-shared:]) != string(head) {
			t.Errorf("segment %d head %q is not the tail of segment %d", i, string(head), i-1)
		}
		rebuilt.WriteString(string([]rune(s.Text)[shared:]))
	}
	if rebuilt.String() != text {
		t.Errorf("cores do not reconstruct source:\n got %q\nwant %q", rebuilt.String(), text)
	}
}

func TestSplit_ScenarioA(t *testing.T) {
	text := "Beumer makes baggage systems. It operates in 60 countries."
	segs, err := Split(text, 30, 5)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(segs) < 2 {
		t.Fatalf("expected at least 2 segments, got %d", len(segs))
	}
	checkInvariants(t, text, segs, 30, 5)
	if back := segs[0].End() - segs[1].StartOffset; back < 0 || back > 5 {
		t.Errorf("segment 2 starts %d chars before segment 1 ends, want 0..5", back)
	}
}

func TestSplit_Invariants(t *testing.T) {
	paragraph := "The sorter handles forty thousand bags per hour. Each tote is tracked by RFID!\nOperators monitor it remotely? Yes."
	long := strings.Repeat(paragraph+"\n\n", 12)
	tests := []struct {
		name      string
		text      string
		chunkSize int
		overlap   int
	}{
		{"single short", "hello world", 100, 10},
		{"paragraphs", long, 120, 20},
		{"tiny chunks", long, 8, 3},
		{"no overlap", long, 50, 0},
		{"max overlap", long, 40, 39},
		{"unbroken word", strings.Repeat("x", 97), 10, 4},
		{"multibyte", strings.Repeat("café über naïve ", 20), 25, 6},
		{"leading whitespace", "\n\n   start of text. second sentence here.", 15, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs, err := Split(tt.text, tt.chunkSize, tt.overlap)
			if err != nil {
				t.Fatalf("Split: %v", err)
			}
			checkInvariants(t, tt.text, segs, tt.chunkSize, tt.overlap)
		})
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	text := "First paragraph is here.\n\nSecond paragraph follows."
	segs, err := Split(text, 30, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments, got %d: %+v", len(segs), segs)
	}
	if segs[0].Text != "First paragraph is here.\n\n" {
		t.Errorf("first segment %q", segs[0].Text)
	}
	if segs[1].StartOffset != 26 {
		t.Errorf("second segment StartOffset=%d, want 26", segs[1].StartOffset)
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("Conveyor belts move luggage. Scanners read tags.\n", 30)
	a, err := Split(text, 64, 16)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Split(text, 64, 16)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("Split is not deterministic")
	}
}

func TestSplit_InvalidInput(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chunkSize int
		overlap   int
	}{
		{"empty", "", 10, 2},
		{"whitespace only", " \n\t ", 10, 2},
		{"overlap equals size", "abc", 10, 10},
		{"overlap exceeds size", "abc", 10, 11},
		{"zero size", "abc", 0, 0},
		{"negative overlap", "abc", 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split(tt.text, tt.chunkSize, tt.overlap)
			if !errors.Is(err, errs.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestChunker_Chunk(t *testing.T) {
	c := NewChunker(12, 3)
	segs, err := c.Chunk("one two three four five six seven")
	if err != nil {
		t.Fatal(err)
	}
	if len(segs) < 2 {
		t.Errorf("expected at least 2 segments, got %d", len(segs))
	}
	for i, s := range segs {
		if s.SequenceIndex != i {
			t.Errorf("segment %d SequenceIndex=%d", i, s.SequenceIndex)
		}
	}
}

func TestPreprocess(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  a  b  ", "a b"},
		{"line one  \r\nline two", "line one\nline two"},
		{"para one\n\n\n\n  para two", "para one\n\npara two"},
		{"tab\t\tseparated", "tab separated"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Preprocess(tt.in); got != tt.want {
			t.Errorf("Preprocess(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
