package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/osintlab/facetrace/internal/config"
	"github.com/osintlab/facetrace/internal/model"
)

// stubHistory serves a canned result for exactly one pair.
type stubHistory struct {
	username   string
	platformID string
	result     *model.ProbeResult
	err        error
}

func (s *stubHistory) RecentResult(_ context.Context, username, platformID string, _ time.Duration) (*model.ProbeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	if username == s.username && platformID == s.platformID {
		return s.result, nil
	}
	return nil, nil
}

// TestOrchestratorCrawl tests the fan-out over all pairs.
func TestOrchestratorCrawl(t *testing.T) {
	t.Parallel()

	t.Run("one result per pair", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body>profile</body></html>")
		}))
		defer server.Close()

		templates := []config.PlatformTemplate{
			{ID: "alpha", URLPattern: server.URL + "/a/{}"},
			{ID: "beta", URLPattern: server.URL + "/b/{}"},
			{ID: "gamma", URLPattern: server.URL + "/c/{}"},
		}

		o := NewOrchestrator(newTestWorker(server.Client()), WithMaxWorkers(2))
		results := o.Crawl(context.Background(), []string{"alice", "bob"}, templates)

		if len(results) != 2 {
			t.Fatalf("expected 2 usernames, got %d", len(results))
		}
		for _, username := range []string{"alice", "bob"} {
			rs, ok := results[username]
			if !ok {
				t.Fatalf("missing results for %s", username)
			}
			if len(rs) != len(templates) {
				t.Fatalf("%s: expected %d results, got %d", username, len(templates), len(rs))
			}
			for i, want := range []string{"alpha", "beta", "gamma"} {
				if rs[i].PlatformID != want {
					t.Errorf("%s[%d]: expected platform %s, got %s", username, i, want, rs[i].PlatformID)
				}
				if rs[i].Username != username {
					t.Errorf("result carries wrong username: %s", rs[i].Username)
				}
			}
		}
	})

	t.Run("failures still produce results", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		dead := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		deadURL := dead.URL
		dead.Close()

		templates := []config.PlatformTemplate{
			{ID: "alive", URLPattern: server.URL + "/{}"},
			{ID: "dead", URLPattern: deadURL + "/{}"},
		}

		o := NewOrchestrator(newTestWorker(&http.Client{Timeout: 5 * time.Second}))
		results := o.Crawl(context.Background(), []string{"alice"}, templates)

		rs := results["alice"]
		if len(rs) != 2 {
			t.Fatalf("expected 2 results, got %d", len(rs))
		}
		if rs[0].PlatformID != "alive" || rs[0].Failed() {
			t.Errorf("expected alive platform to succeed, got %+v", rs[0])
		}
		if rs[1].PlatformID != "dead" || !rs[1].Failed() {
			t.Errorf("expected dead platform to fail, got %+v", rs[1])
		}
	})

	t.Run("usernames cleaned and deduped", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		templates := []config.PlatformTemplate{
			{ID: "alpha", URLPattern: server.URL + "/{}"},
		}

		o := NewOrchestrator(newTestWorker(server.Client()))
		results := o.Crawl(context.Background(), []string{" alice ", "alice", "", "   ", "bob"}, templates)

		if len(results) != 2 {
			t.Fatalf("expected 2 usernames after cleaning, got %d", len(results))
		}
		if got := hits.Load(); got != 2 {
			t.Errorf("expected 2 probes, got %d", got)
		}
		if _, ok := results["alice"]; !ok {
			t.Error("expected trimmed username alice")
		}
	})

	t.Run("empty inputs", func(t *testing.T) {
		t.Parallel()

		o := NewOrchestrator(newTestWorker(http.DefaultClient))

		if got := o.Crawl(context.Background(), nil, nil); len(got) != 0 {
			t.Errorf("expected empty result map, got %d entries", len(got))
		}
	})
}

// TestOrchestratorHistory tests cached result reuse.
func TestOrchestratorHistory(t *testing.T) {
	t.Parallel()

	t.Run("fresh result skips the network", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		cached := &model.ProbeResult{Username: "alice", PlatformID: "alpha", Exists: true, StatusCode: 200}
		history := &stubHistory{username: "alice", platformID: "alpha", result: cached}

		templates := []config.PlatformTemplate{
			{ID: "alpha", URLPattern: server.URL + "/{}"},
			{ID: "beta", URLPattern: server.URL + "/{}"},
		}

		o := NewOrchestrator(newTestWorker(server.Client()), WithHistory(history, time.Hour))
		results := o.Crawl(context.Background(), []string{"alice"}, templates)

		if got := hits.Load(); got != 1 {
			t.Errorf("expected exactly 1 network probe, got %d", got)
		}

		rs := results["alice"]
		if len(rs) != 2 {
			t.Fatalf("expected 2 results, got %d", len(rs))
		}
		if rs[0] != cached {
			t.Error("expected the cached result to be returned for alpha")
		}
	})

	t.Run("history failure falls back to probing", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int64
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			fmt.Fprint(w, "ok")
		}))
		defer server.Close()

		history := &stubHistory{err: fmt.Errorf("database locked")}
		templates := []config.PlatformTemplate{
			{ID: "alpha", URLPattern: server.URL + "/{}"},
		}

		o := NewOrchestrator(newTestWorker(server.Client()), WithHistory(history, time.Hour))
		results := o.Crawl(context.Background(), []string{"alice"}, templates)

		if got := hits.Load(); got != 1 {
			t.Errorf("expected the probe to run despite history failure, got %d hits", got)
		}
		if len(results["alice"]) != 1 {
			t.Errorf("expected 1 result, got %d", len(results["alice"]))
		}
	})
}
