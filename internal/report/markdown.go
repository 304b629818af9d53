package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/osintlab/facetrace/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, designed for
// documentation and sharing. Uses the nao1215/markdown library for
// fluent, type-safe markdown generation.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteHunt outputs the hunt report in Markdown format.
func (w *MarkdownWriter) WriteHunt(report *HuntReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Facetrace Hunt Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Usernames", "`" + joinBackticked(report.Usernames) + "`"},
			{"Date", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
			{"Probes", strconv.Itoa(report.TotalProbes())},
			{"Profiles found", strconv.Itoa(len(report.ExistingProfiles()))},
			{"Faces indexed", strconv.Itoa(report.IndexedFaces)},
		},
	})
	md.PlainText("")

	for _, username := range report.sortedUsernames() {
		w.writeUserSection(md, username, report.Results[username])
	}

	w.writeLeads(md, report)
	w.writeFailures(md, report)

	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by facetrace*")

	return len(md.String()), md.Build()
}

// writeUserSection writes one username's per-platform table.
func (w *MarkdownWriter) writeUserSection(md *markdown.Markdown, username string, results []*model.ProbeResult) {
	md.H2("Username: " + username)
	md.PlainText("")

	rows := make([][]string, 0, len(results))
	for _, result := range results {
		status := "not found"
		link := "-"
		switch {
		case result.Failed():
			status = "error: " + result.Error.Error()
		case result.Exists:
			status = "found"
			link = result.FinalURL
		}
		rows = append(rows, []string{
			PlatformDisplayName(result.PlatformID),
			status,
			link,
			strconv.Itoa(len(result.CandidateImageURLs)),
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Platform", "Status", "Profile", "Avatars"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeLeads writes the EXIF lead section when leads exist.
func (w *MarkdownWriter) writeLeads(md *markdown.Markdown, report *HuntReport) {
	if len(report.Leads) == 0 {
		return
	}

	md.H2("Metadata Leads")
	md.PlainText("")
	md.Warningf("%d image(s) carried EXIF metadata that survived platform re-encoding.", len(report.Leads))
	md.PlainText("")

	rows := make([][]string, 0, len(report.Leads))
	for _, lead := range report.Leads {
		rows = append(rows, []string{lead.Kind, lead.Tag, lead.Value, lead.ImageURL})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Kind", "Tag", "Value", "Image"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes failed probes so gaps in coverage are visible.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *HuntReport) {
	failed := report.FailedProbes()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Probes")
	md.PlainText("")

	rows := make([][]string, 0, len(failed))
	for _, result := range failed {
		rows = append(rows, []string{
			result.Username,
			PlatformDisplayName(result.PlatformID),
			result.Error.Error(),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Username", "Platform", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteMatches outputs search results in Markdown format.
func (w *MarkdownWriter) WriteMatches(matches []model.MatchResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Face Search Results")
	md.PlainText("")

	if len(matches) == 0 {
		md.PlainText("No records in the index.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(matches))
	for i, m := range matches {
		match := ""
		if m.IsMatch {
			match = "yes"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.Username,
			PlatformDisplayName(m.PlatformID),
			fmt.Sprintf("%.1f%%", m.Similarity*100),
			match,
			m.PageURL,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Username", "Platform", "Similarity", "Match", "Profile"},
		Rows:   rows,
	})

	return len(md.String()), md.Build()
}

// joinBackticked joins usernames for the header table.
func joinBackticked(usernames []string) string {
	out := ""
	for i, u := range usernames {
		if i > 0 {
			out += "`, `"
		}
		out += u
	}
	return out
}
