package indexer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
)

func testIndexer(chunkSize, overlap int) *Indexer {
	return NewIndexer(embedding.NewHashingEmbedder(256), &config.ChunkingConfig{ChunkSize: chunkSize, ChunkOverlap: overlap})
}

func TestIndexer_IndexDocument(t *testing.T) {
	doc := &models.Document{
		Path: "beumer.txt",
		Text: "Beumer   makes baggage systems.\r\n\r\n\r\nIt operates in 60 countries.",
	}
	index, err := testIndexer(40, 5).IndexDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if doc.Text != "Beumer makes baggage systems.\n\nIt operates in 60 countries." {
		t.Errorf("document text not normalized: %q", doc.Text)
	}
	if index.Len() < 2 {
		t.Errorf("expected at least 2 segments, got %d", index.Len())
	}
	hits, err := index.Query(context.Background(), "countries", 1)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(hits[0].Segment.Text, "countries") {
		t.Errorf("top hit %q", hits[0].Segment.Text)
	}
}

func TestIndexer_SegmentOffsetsMatchNormalizedText(t *testing.T) {
	doc := &models.Document{Text: "one  two\t\tthree\n\n\n\nfour five six seven eight nine ten"}
	segs, err := testIndexer(12, 3).Segment(doc)
	if err != nil {
		t.Fatal(err)
	}
	runes := []rune(doc.Text)
	for _, s := range segs {
		if string(runes[s.StartOffset:s.End()]) != s.Text {
			t.Errorf("segment %d does not match normalized text at %d", s.SequenceIndex, s.StartOffset)
		}
	}
}

func TestIndexer_EmptyDocument(t *testing.T) {
	_, err := testIndexer(100, 10).IndexDocument(context.Background(), &models.Document{Text: "  \n "})
	if !errors.Is(err, errs.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
