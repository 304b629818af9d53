package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoFace is returned by an Encoder when the image contains no
// detectable face. Callers treat it as a skip, not a failure.
var ErrNoFace = errors.New("no face detected in image")

// Encoder produces a fixed-length face embedding from image bytes.
// Face detection itself is delegated to an external service: shipping
// a face detection model inside a probing tool would bloat it for no
// benefit, and lets the encoder be upgraded independently.
type Encoder interface {
	Encode(ctx context.Context, image []byte) ([]float64, error)
}

// encodeRequest is the JSON body sent to the embedding service.
type encodeRequest struct {
	// ImageBase64 is the raw image, base64 encoded.
	ImageBase64 string `json:"image_base64"`
}

// encodeResponse is the embedding service's reply.
type encodeResponse struct {
	// FaceFound reports whether a face was detected.
	FaceFound bool `json:"face_found"`

	// Encoding is the face embedding, empty when no face was found.
	Encoding []float64 `json:"encoding"`

	// Error carries a service-side failure message.
	Error string `json:"error,omitempty"`
}

// HTTPEncoder calls an external face embedding service over HTTP.
type HTTPEncoder struct {
	// endpoint is the service URL, e.g. http://localhost:8300/encode.
	endpoint string

	// client is the HTTP client for service calls. The embedding
	// service is local infrastructure, so this is never the Tor client.
	client *http.Client
}

// HTTPEncoderOption configures an HTTPEncoder.
type HTTPEncoderOption func(*HTTPEncoder)

// WithEncoderClient sets a custom HTTP client.
func WithEncoderClient(client *http.Client) HTTPEncoderOption {
	return func(e *HTTPEncoder) {
		e.client = client
	}
}

// NewHTTPEncoder creates an HTTPEncoder for the given endpoint.
func NewHTTPEncoder(endpoint string, opts ...HTTPEncoderOption) *HTTPEncoder {
	e := &HTTPEncoder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Encode sends the image to the embedding service and returns the face
// vector. Returns ErrNoFace when the service finds no face.
func (e *HTTPEncoder) Encode(ctx context.Context, image []byte) ([]float64, error) {
	body, err := json.Marshal(encodeRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create encode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call embedding service: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embedding service returned %s: %s", resp.Status, string(msg))
	}

	var out encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}

	if out.Error != "" {
		return nil, fmt.Errorf("embedding service error: %s", out.Error)
	}
	if !out.FaceFound || len(out.Encoding) == 0 {
		return nil, ErrNoFace
	}

	return out.Encoding, nil
}
