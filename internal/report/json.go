package report

import (
	"encoding/json"
	"io"

	"github.com/osintlab/facetrace/internal/model"
)

// JSONWriter outputs reports in JSON format for tool integration.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output. Compact when false.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string.
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON with the given prefix and
// per-level indent.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = ""
		w.indentString = "  "
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteHunt outputs the hunt report as JSON.
func (w *JSONWriter) WriteHunt(report *HuntReport) (int, error) {
	return w.writeJSON(report)
}

// matchesEnvelope wraps search results so the JSON output is an
// object, which is friendlier to jq pipelines than a bare array.
type matchesEnvelope struct {
	Matches []model.MatchResult `json:"matches"`
	Total   int                 `json:"total"`
}

// WriteMatches outputs search results as JSON.
func (w *JSONWriter) WriteMatches(matches []model.MatchResult) (int, error) {
	return w.writeJSON(matchesEnvelope{Matches: matches, Total: len(matches)})
}

// writeJSON marshals v and writes it with a trailing newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
