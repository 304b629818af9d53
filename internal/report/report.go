package report

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/osintlab/facetrace/internal/model"
	"github.com/osintlab/facetrace/internal/pipeline"
)

// HuntReport is the complete outcome of one hunt run.
type HuntReport struct {
	// Usernames are the identities that were hunted, in input order.
	Usernames []string `json:"usernames"`

	// GeneratedAt is when the report was assembled.
	GeneratedAt time.Time `json:"generated_at"`

	// Results holds probe results grouped by username.
	Results map[string][]*model.ProbeResult `json:"results"`

	// IndexedFaces is the number of face records added by this hunt.
	// Zero when indexing was disabled.
	IndexedFaces int `json:"indexed_faces"`

	// SkippedImages counts avatar candidates skipped by failure kind.
	SkippedImages map[model.ProbeErrorKind]int `json:"skipped_images,omitempty"`

	// Leads holds EXIF metadata leads found in fetched avatars.
	Leads []pipeline.ExifLead `json:"leads,omitempty"`
}

// NewHuntReport assembles a report from crawl results and an optional
// indexing summary.
func NewHuntReport(usernames []string, results map[string][]*model.ProbeResult, summary *pipeline.Summary) *HuntReport {
	r := &HuntReport{
		Usernames:   usernames,
		GeneratedAt: time.Now(),
		Results:     results,
	}

	if summary != nil {
		r.IndexedFaces = summary.Indexed
		r.SkippedImages = summary.Skipped
		r.Leads = summary.Leads
	}

	return r
}

// ExistingProfiles returns results where the profile exists, across
// all usernames, ordered by username then platform.
func (r *HuntReport) ExistingProfiles() []*model.ProbeResult {
	var out []*model.ProbeResult
	for _, username := range r.sortedUsernames() {
		for _, result := range r.Results[username] {
			if result.Exists && !result.Failed() {
				out = append(out, result)
			}
		}
	}
	return out
}

// FailedProbes returns results that ended in a probe error.
func (r *HuntReport) FailedProbes() []*model.ProbeResult {
	var out []*model.ProbeResult
	for _, username := range r.sortedUsernames() {
		for _, result := range r.Results[username] {
			if result.Failed() {
				out = append(out, result)
			}
		}
	}
	return out
}

// TotalProbes returns the number of probes performed.
func (r *HuntReport) TotalProbes() int {
	n := 0
	for _, rs := range r.Results {
		n += len(rs)
	}
	return n
}

// sortedUsernames returns the result map keys in stable order.
func (r *HuntReport) sortedUsernames() []string {
	keys := make([]string, 0, len(r.Results))
	for k := range r.Results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// titleCaser renders platform ids as display names.
var titleCaser = cases.Title(language.English)

// PlatformDisplayName turns a platform id like "stackoverflow" or
// "archive_org" into a readable name.
func PlatformDisplayName(platformID string) string {
	return titleCaser.String(strings.ReplaceAll(platformID, "_", " "))
}
