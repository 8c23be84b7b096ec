// Package extract provides text extraction from various document formats.
package extract

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

// Extractor extracts plain text from document files.
type Extractor struct {
	logger *zap.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets a logger for extraction events.
func WithLogger(l *zap.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor returns a new Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load extracts the document at path. Every failure, including a document
// with no extractable text, is reported as errs.ErrDocument.
func (e *Extractor) Load(path string) (*models.Document, error) {
	text, err := e.Extract(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("document not found at %s: %w", path, errs.ErrDocument)
		}
		return nil, fmt.Errorf("extract %s: %v: %w", path, err, errs.ErrDocument)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("extract %s: no text found in document: %w", path, errs.ErrDocument)
	}
	e.logger.Info("document extracted", zap.String("path", path), zap.Int("chars", utf8.RuneCountInString(text)))
	return &models.Document{Path: path, Text: text}, nil
}

// Extract reads the file at path and returns its text content.
// For plain text files (.txt, .md, .rst), content is returned as-is (UTF-8 validated).
// For PDF, DOCX, Excel, PPTX, ODP, and ODS, text is extracted from the binary format.
// Returns an error if the file cannot be read or decoded.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(path))
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension and
// returns it in Unicode NFC form. ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = extractPDF(content, e.logger)
	case ".docx":
		text, err = extractDOCX(content)
	case ".xlsx":
		text, err = extractExcel(content)
	case ".pptx":
		text, err = extractPPTX(content)
	case ".odp", ".ods", ".odt":
		text, err = extractOpenDocument(content, ext)
	default:
		// .txt, .md, .rst and anything unknown
		text, err = extractPlain(content)
	}
	if err != nil {
		return "", err
	}
	return norm.NFC.String(text), nil
}
