// Package cli formats answers, session status and errors for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/docqa/internal/errs"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/pkg/utils"
)

// OutputFormat is the format for answer and status output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// sourcePreviewLen bounds the source excerpt shown per retrieved segment.
const sourcePreviewLen = 160

// ParseFormat maps a flag value onto an OutputFormat.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json): %w", s, errs.ErrInvalidInput)
}

// WriteAnswer writes answer to w. showSources adds the retrieved segments to
// text output; JSON output always carries them.
func WriteAnswer(w io.Writer, answer *models.Answer, format OutputFormat, showSources bool) error {
	if format == OutputJSON {
		return writeJSON(w, answer)
	}
	fmt.Fprintln(w, answer.Text)
	if !showSources {
		return nil
	}
	fmt.Fprintf(w, "\n(%s, %dms)\n", answer.Mode, answer.Elapsed.Milliseconds())
	for i, s := range answer.Sources {
		fmt.Fprintf(w, "[%d] score %.4f, offset %d\n    %s\n",
			i+1, s.Score, s.Segment.StartOffset, utils.Preview(s.Segment.Text, sourcePreviewLen))
	}
	return nil
}

// WriteStatus writes a session status snapshot to w.
func WriteStatus(w io.Writer, st models.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	fmt.Fprintf(w, "Session:  %s\n", st.SessionID)
	fmt.Fprintf(w, "State:    %s\n", st.State)
	if st.State == models.StateFailed {
		fmt.Fprintf(w, "Stage:    %s\n", st.Stage)
		fmt.Fprintf(w, "Error:    %s\n", st.Error)
	}
	fmt.Fprintf(w, "Segments: %d\n", st.Segments)
	if st.Model != "" {
		fmt.Fprintf(w, "Model:    %s\n", st.Model)
	}
	return nil
}

// WriteProgress writes one initialization progress message.
func WriteProgress(w io.Writer, p models.Progress) {
	fmt.Fprintln(w, p.Message)
}

// WriteError writes err and its remediation hint, if any.
func WriteError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	if hint := errs.Hint(err); hint != "" {
		fmt.Fprintf(w, "Hint: %s\n", hint)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
