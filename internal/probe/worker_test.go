package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/osintlab/facetrace/internal/config"
	"github.com/osintlab/facetrace/internal/model"
	"github.com/osintlab/facetrace/internal/ratelimit"
)

// newTestWorker builds a worker with rate limiting and jitter disabled
// so tests exercise only the probe logic.
func newTestWorker(client *http.Client, opts ...WorkerOption) *Worker {
	base := []WorkerOption{WithJitter(0, 0)}
	return NewWorker(client, ratelimit.New(ratelimit.WithMinInterval(0)), append(base, opts...)...)
}

// TestWorkerProbe tests the single-pair existence check.
func TestWorkerProbe(t *testing.T) {
	t.Parallel()

	t.Run("existing profile with avatar", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<html><body><img class="avatar" src="/images/alice.png" width="120" height="120"></body></html>`)
		}))
		defer server.Close()

		worker := newTestWorker(server.Client())
		tmpl := config.PlatformTemplate{ID: "example", URLPattern: server.URL + "/{}", AvatarSelector: "img.avatar"}
		req := model.ProbeRequest{Username: "alice", PlatformID: "example", ResolvedURL: server.URL + "/alice"}

		result := worker.Probe(context.Background(), req, tmpl)

		if result.Failed() {
			t.Fatalf("unexpected probe error: %v", result.Error)
		}
		if !result.Exists {
			t.Error("expected profile to exist")
		}
		if result.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", result.StatusCode)
		}
		if len(result.CandidateImageURLs) != 1 {
			t.Fatalf("expected 1 avatar candidate, got %d", len(result.CandidateImageURLs))
		}
		if want := server.URL + "/images/alice.png"; result.CandidateImageURLs[0] != want {
			t.Errorf("expected %s, got %s", want, result.CandidateImageURLs[0])
		}
	})

	t.Run("missing profile has no candidates", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer server.Close()

		worker := newTestWorker(server.Client())
		tmpl := config.PlatformTemplate{ID: "example", URLPattern: server.URL + "/{}"}
		req := model.ProbeRequest{Username: "ghost", PlatformID: "example", ResolvedURL: server.URL + "/ghost"}

		result := worker.Probe(context.Background(), req, tmpl)

		if result.Failed() {
			t.Fatalf("unexpected probe error: %v", result.Error)
		}
		if result.Exists {
			t.Error("expected profile to not exist")
		}
		if len(result.CandidateImageURLs) != 0 {
			t.Errorf("expected no candidates for missing profile, got %d", len(result.CandidateImageURLs))
		}
	})

	t.Run("connection failure classified", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		deadURL := server.URL
		server.Close()

		worker := newTestWorker(&http.Client{Timeout: 5 * time.Second})
		tmpl := config.PlatformTemplate{ID: "example", URLPattern: deadURL + "/{}"}
		req := model.ProbeRequest{Username: "alice", PlatformID: "example", ResolvedURL: deadURL + "/alice"}

		result := worker.Probe(context.Background(), req, tmpl)

		if !result.Failed() {
			t.Fatal("expected probe error")
		}
		if result.Error.Kind != model.ProbeErrorConnection {
			t.Errorf("expected connection_error, got %s", result.Error.Kind)
		}
		if result.Exists {
			t.Error("failed probe must not report existence")
		}
	})

	t.Run("timeout classified", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer server.Close()

		worker := newTestWorker(&http.Client{Timeout: 50 * time.Millisecond})
		tmpl := config.PlatformTemplate{ID: "example", URLPattern: server.URL + "/{}"}
		req := model.ProbeRequest{Username: "alice", PlatformID: "example", ResolvedURL: server.URL + "/alice"}

		result := worker.Probe(context.Background(), req, tmpl)

		if !result.Failed() {
			t.Fatal("expected probe error")
		}
		if result.Error.Kind != model.ProbeErrorTimeout {
			t.Errorf("expected timeout, got %s", result.Error.Kind)
		}
	})

	t.Run("body truncated at cap", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body>")
			for range 1000 {
				fmt.Fprint(w, "padding padding padding ")
			}
			fmt.Fprint(w, "</body></html>")
		}))
		defer server.Close()

		worker := newTestWorker(server.Client(), WithMaxBodySize(1024))
		tmpl := config.PlatformTemplate{ID: "example", URLPattern: server.URL + "/{}"}
		req := model.ProbeRequest{Username: "alice", PlatformID: "example", ResolvedURL: server.URL + "/alice"}

		result := worker.Probe(context.Background(), req, tmpl)

		if result.Failed() {
			t.Fatalf("unexpected probe error: %v", result.Error)
		}
		if result.ContentLength != 1024 {
			t.Errorf("expected body truncated to 1024 bytes, got %d", result.ContentLength)
		}
	})

	t.Run("redirect reflected in final url", func(t *testing.T) {
		t.Parallel()

		mux := http.NewServeMux()
		server := httptest.NewServer(mux)
		defer server.Close()

		mux.HandleFunc("/alice", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/users/alice", http.StatusFound)
		})
		mux.HandleFunc("/users/alice", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body>profile</body></html>")
		})

		worker := newTestWorker(server.Client())
		tmpl := config.PlatformTemplate{ID: "example", URLPattern: server.URL + "/{}"}
		req := model.ProbeRequest{Username: "alice", PlatformID: "example", ResolvedURL: server.URL + "/alice"}

		result := worker.Probe(context.Background(), req, tmpl)

		if want := server.URL + "/users/alice"; result.FinalURL != want {
			t.Errorf("expected final URL %s, got %s", want, result.FinalURL)
		}
	})

	t.Run("cancelled context never panics", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		defer server.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		worker := newTestWorker(server.Client())
		tmpl := config.PlatformTemplate{ID: "example", URLPattern: server.URL + "/{}"}
		req := model.ProbeRequest{Username: "alice", PlatformID: "example", ResolvedURL: server.URL + "/alice"}

		result := worker.Probe(ctx, req, tmpl)

		if !result.Failed() {
			t.Error("expected failure on cancelled context")
		}
	})
}

// TestWorkerSendsBrowserHeaders tests that probes blend in with
// ordinary browser traffic.
func TestWorkerSendsBrowserHeaders(t *testing.T) {
	t.Parallel()

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	worker := newTestWorker(server.Client(), WithUserAgent("test-agent/1.0"))
	tmpl := config.PlatformTemplate{ID: "example", URLPattern: server.URL + "/{}"}
	req := model.ProbeRequest{Username: "alice", PlatformID: "example", ResolvedURL: server.URL + "/alice"}

	worker.Probe(context.Background(), req, tmpl)

	if gotUA != "test-agent/1.0" {
		t.Errorf("expected custom user agent, got %q", gotUA)
	}
}
