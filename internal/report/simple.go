package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/osintlab/facetrace/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal
// display. Plain ASCII rather than ANSI color: it pipes cleanly to
// files and works in every terminal.
type SimpleWriter struct {
	baseWriter

	// showMissing controls whether platforms without a profile are
	// listed individually instead of just counted.
	showMissing bool

	// verbose adds candidate image URLs and error detail.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowMissing lists platforms where no profile was found.
func WithShowMissing(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showMissing = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteHunt outputs the hunt report in human-readable format.
func (w *SimpleWriter) WriteHunt(report *HuntReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)

	for _, username := range report.sortedUsernames() {
		w.writeUserSection(&sb, username, report.Results[username])
	}

	w.writeLeads(&sb, report)
	w.writeFooter(&sb, report)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report banner.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *HuntReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         FACETRACE HUNT REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Usernames:  %s\n", strings.Join(report.Usernames, ", ")))
	sb.WriteString(fmt.Sprintf("Date:       %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Probes:     %d\n", report.TotalProbes()))
	sb.WriteString("\n")
}

// writeUserSection writes one username's per-platform results.
func (w *SimpleWriter) writeUserSection(sb *strings.Builder, username string, results []*model.ProbeResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("USERNAME: %s\n", username))
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	found, missing, failed := 0, 0, 0
	for _, result := range results {
		switch {
		case result.Failed():
			failed++
			sb.WriteString(fmt.Sprintf("  [x] %-20s %s\n", PlatformDisplayName(result.PlatformID), result.Error.Error()))
		case result.Exists:
			found++
			sb.WriteString(fmt.Sprintf("  [+] %-20s %s\n", PlatformDisplayName(result.PlatformID), result.FinalURL))
			if w.verbose {
				for _, img := range result.CandidateImageURLs {
					sb.WriteString(fmt.Sprintf("        avatar: %s\n", img))
				}
			}
		default:
			missing++
			if w.showMissing {
				sb.WriteString(fmt.Sprintf("  [-] %-20s not found\n", PlatformDisplayName(result.PlatformID)))
			}
		}
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  Found: %d  Missing: %d  Failed: %d\n\n", found, missing, failed))
}

// writeLeads writes the EXIF leads section when leads exist.
func (w *SimpleWriter) writeLeads(sb *strings.Builder, report *HuntReport) {
	if len(report.Leads) == 0 {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("METADATA LEADS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	for _, lead := range report.Leads {
		sb.WriteString(fmt.Sprintf("  [%s] %s = %s\n", lead.Kind, lead.Tag, lead.Value))
		sb.WriteString(fmt.Sprintf("        image: %s\n", lead.ImageURL))
	}
	sb.WriteString("\n")
}

// writeFooter writes the indexing summary and closing rule.
func (w *SimpleWriter) writeFooter(sb *strings.Builder, report *HuntReport) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	if report.IndexedFaces > 0 || len(report.SkippedImages) > 0 {
		sb.WriteString(fmt.Sprintf("Faces indexed: %d\n", report.IndexedFaces))
		for kind, count := range report.SkippedImages {
			sb.WriteString(fmt.Sprintf("Skipped (%s): %d\n", kind, count))
		}
	}
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}

// WriteMatches outputs search results in human-readable format.
func (w *SimpleWriter) WriteMatches(matches []model.MatchResult) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                         FACE SEARCH RESULTS\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	if len(matches) == 0 {
		sb.WriteString("  No records in the index.\n\n")
		return w.output.Write([]byte(sb.String()))
	}

	for i, m := range matches {
		marker := " "
		if m.IsMatch {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("  %s %2d. %s on %s (similarity %.1f%%)\n",
			marker, i+1, m.Username, PlatformDisplayName(m.PlatformID), m.Similarity*100))
		sb.WriteString(fmt.Sprintf("        page:  %s\n", m.PageURL))
		if w.verbose {
			sb.WriteString(fmt.Sprintf("        image: %s\n", m.ImageURL))
			sb.WriteString(fmt.Sprintf("        distance: %.4f\n", m.Distance))
		}
	}
	sb.WriteString("\n  * = below match threshold\n\n")

	return w.output.Write([]byte(sb.String()))
}
