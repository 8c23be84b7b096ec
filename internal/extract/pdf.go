package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// extractPDF concatenates the plain text of every page, pages separated by a
// paragraph break. Pages with no text layer (scans, blank pages) are skipped.
func extractPDF(content []byte, logger *zap.Logger) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}
	numPages := r.NumPage()
	pages := make([]string, 0, numPages)
	skipped := 0
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			skipped++
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			skipped++
			continue
		}
		pages = append(pages, text)
	}
	if skipped > 0 {
		logger.Debug("pdf pages without text", zap.Int("skipped", skipped), zap.Int("pages", numPages))
	}
	return strings.Join(pages, "\n\n"), nil
}
