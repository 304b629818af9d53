package report

import (
	"io"

	"github.com/osintlab/facetrace/internal/model"
)

// Writer defines the interface for report output.
// Implementations write hunt and search results in various formats.
type Writer interface {
	// WriteHunt outputs a hunt report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	WriteHunt(report *HuntReport) (int, error)

	// WriteMatches outputs face search results.
	WriteMatches(matches []model.MatchResult) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously. Useful for
// outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteHunt outputs the hunt report to all configured Writers.
// Returns the total bytes written; stops on the first error.
func (m *MultiWriter) WriteHunt(report *HuntReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteHunt(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteMatches outputs search results to all configured Writers.
func (m *MultiWriter) WriteMatches(matches []model.MatchResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteMatches(matches)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides the shared output destination.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
