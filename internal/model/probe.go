package model

// ProbeErrorKind classifies why a probe or an indexing step failed.
type ProbeErrorKind string

// Probe error taxonomy.
// Per-item failures are represented as data on the result rather than
// Go errors so that a failed probe never aborts the batch it belongs to.
const (
	// ProbeErrorTimeout indicates the HTTP request exceeded its deadline.
	ProbeErrorTimeout ProbeErrorKind = "timeout"
	// ProbeErrorConnection indicates the connection could not be established.
	ProbeErrorConnection ProbeErrorKind = "connection_error"
	// ProbeErrorContentTooLarge indicates a download exceeded the size cap.
	ProbeErrorContentTooLarge ProbeErrorKind = "content_too_large"
	// ProbeErrorInvalidImage indicates downloaded bytes were not a usable image.
	ProbeErrorInvalidImage ProbeErrorKind = "invalid_image"
	// ProbeErrorNoFace indicates the encoder found no face in the image.
	ProbeErrorNoFace ProbeErrorKind = "no_face_detected"
	// ProbeErrorOther covers any failure outside the specific kinds above.
	ProbeErrorOther ProbeErrorKind = "other"
)

// ProbeError is a structured, per-item failure attached to a ProbeResult.
type ProbeError struct {
	// Kind is the taxonomy bucket for this failure.
	Kind ProbeErrorKind `json:"kind"`

	// Detail carries the underlying error message for "other" failures.
	// Empty for the specific kinds, which are self-describing.
	Detail string `json:"detail,omitempty"`
}

// Error implements the error interface so a ProbeError can be logged
// and wrapped like any other error.
func (e *ProbeError) Error() string {
	if e.Detail != "" {
		return string(e.Kind) + ": " + e.Detail
	}
	return string(e.Kind)
}

// NewProbeError creates a ProbeError of the given kind.
func NewProbeError(kind ProbeErrorKind) *ProbeError {
	return &ProbeError{Kind: kind}
}

// NewProbeErrorOther creates a ProbeError carrying an arbitrary failure message.
func NewProbeErrorOther(detail string) *ProbeError {
	return &ProbeError{Kind: ProbeErrorOther, Detail: detail}
}

// ProbeRequest identifies one (username, platform) existence check.
// It is a value type created by the orchestrator; ResolvedURL is the
// platform's URL pattern with the username substituted.
type ProbeRequest struct {
	// Username is the candidate identity being probed.
	Username string `json:"username"`

	// PlatformID is the unique key of the platform template.
	PlatformID string `json:"platform_id"`

	// ResolvedURL is the fully substituted profile URL.
	ResolvedURL string `json:"resolved_url"`
}

// ProbeResult is the outcome of exactly one ProbeRequest.
// Results are immutable once created.
//
// Invariant: Exists == false implies CandidateImageURLs is empty.
type ProbeResult struct {
	// Username is the candidate identity that was probed.
	Username string `json:"username"`

	// PlatformID is the platform template key that was probed.
	PlatformID string `json:"platform_id"`

	// Exists reports whether the platform's existence strategy decided
	// a matching profile is present.
	Exists bool `json:"exists"`

	// StatusCode is the final HTTP status code, or 0 when no response
	// was received.
	StatusCode int `json:"status_code"`

	// FinalURL is the URL after following redirects. Equal to the
	// request URL when no redirect occurred or the request failed.
	FinalURL string `json:"final_url"`

	// CandidateImageURLs holds avatar candidates ordered most-likely
	// first. Empty unless Exists is true.
	CandidateImageURLs []string `json:"candidate_image_urls,omitempty"`

	// Error describes a per-item failure, nil on success.
	Error *ProbeError `json:"error,omitempty"`

	// ContentLength is the number of body bytes read.
	ContentLength int `json:"content_length"`
}

// Failed reports whether the probe ended in an error.
func (r *ProbeResult) Failed() bool {
	return r.Error != nil
}
