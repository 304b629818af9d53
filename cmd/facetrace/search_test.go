package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/osintlab/facetrace/internal/config"
	"github.com/osintlab/facetrace/internal/faceindex"
	"github.com/osintlab/facetrace/internal/model"
)

// TestNewSearchCmd tests the search command creation.
func TestNewSearchCmd(t *testing.T) {
	t.Parallel()

	cmd := NewSearchCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "search <image>" {
			t.Errorf("expected use 'search <image>', got %q", cmd.Use)
		}
	})

	t.Run("has short description", func(t *testing.T) {
		t.Parallel()
		if cmd.Short == "" {
			t.Error("expected non-empty short description")
		}
	})

	t.Run("has embed-endpoint flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("embed-endpoint")
		if flag == nil {
			t.Fatal("expected embed-endpoint flag")
		}
		if flag.Shorthand != "E" {
			t.Errorf("expected shorthand 'E', got %q", flag.Shorthand)
		}
	})

	t.Run("has threshold flag with default", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("threshold")
		if flag == nil {
			t.Fatal("expected threshold flag")
		}
		if flag.DefValue != "0.6" {
			t.Errorf("expected default '0.6', got %q", flag.DefValue)
		}
	})

	t.Run("has top-k flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("top-k")
		if flag == nil {
			t.Fatal("expected top-k flag")
		}
		if flag.Shorthand != "k" {
			t.Errorf("expected shorthand 'k', got %q", flag.Shorthand)
		}
	})

	t.Run("has stats flag", func(t *testing.T) {
		t.Parallel()
		if cmd.Flags().Lookup("stats") == nil {
			t.Error("expected stats flag")
		}
	})
}

// TestBuildSearchConfig tests flag-to-config translation.
func TestBuildSearchConfig(t *testing.T) {
	t.Parallel()

	cmd := NewSearchCmd()
	if err := cmd.Flags().Parse([]string{
		"--embed-endpoint", "http://127.0.0.1:5000/encode",
		"--threshold", "0.45",
		"--top-k", "25",
		"--json",
	}); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	cfg, err := buildSearchConfig(cmd)
	if err != nil {
		t.Fatalf("buildSearchConfig failed: %v", err)
	}

	if cfg.EmbedEndpoint != "http://127.0.0.1:5000/encode" {
		t.Errorf("EmbedEndpoint = %q", cfg.EmbedEndpoint)
	}
	if cfg.MatchThreshold != 0.45 {
		t.Errorf("MatchThreshold = %v, want 0.45", cfg.MatchThreshold)
	}
	if cfg.TopK != 25 {
		t.Errorf("TopK = %d, want 25", cfg.TopK)
	}
	if !cfg.JSONReport {
		t.Error("expected JSONReport set")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("config should validate: %v", err)
	}
}

// TestSearchCmdMissingIndex tests the error when no index exists.
func TestSearchCmdMissingIndex(t *testing.T) {
	t.Parallel()

	cmd := NewSearchCmd()
	cmd.SetArgs([]string{
		"--index", filepath.Join(t.TempDir(), "missing.json"),
		"--stats",
	})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing index")
	}
	if !strings.Contains(err.Error(), "no face index") {
		t.Errorf("expected missing-index message, got %v", err)
	}
}

// TestSearchCmdStats tests the --stats output against a real index.
func TestSearchCmdStats(t *testing.T) {
	t.Parallel()

	indexPath := filepath.Join(t.TempDir(), "face_index.json")

	index := faceindex.New()
	for _, rec := range []model.FaceRecord{
		{Username: "alice", PlatformID: "github", ImageURL: "https://github.test/a.png", FaceVector: []float64{0.1, 0.2, 0.3}},
		{Username: "alice", PlatformID: "gitlab", ImageURL: "https://gitlab.test/a.png", FaceVector: []float64{0.4, 0.5, 0.6}},
		{Username: "bob", PlatformID: "github", ImageURL: "https://github.test/b.png", FaceVector: []float64{0.7, 0.8, 0.9}},
	} {
		if _, err := index.Insert(rec); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if err := index.Persist(indexPath); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	cmd := NewSearchCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--index", indexPath, "--stats"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("search --stats failed: %v", err)
	}

	output := buf.String()
	for _, want := range []string{"Records:   3", "Dimension: 3", "Usernames: 2", "github", "gitlab"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in stats output: %s", want, output)
		}
	}
}

// TestSearchCmdRequiresImage tests argument validation for searching.
func TestSearchCmdRequiresImage(t *testing.T) {
	t.Parallel()

	indexPath := filepath.Join(t.TempDir(), "face_index.json")
	index := faceindex.New()
	if _, err := index.Insert(model.FaceRecord{
		Username: "alice", PlatformID: "github",
		ImageURL: "https://github.test/a.png", FaceVector: []float64{0.1, 0.2},
	}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := index.Persist(indexPath); err != nil {
		t.Fatalf("Persist failed: %v", err)
	}

	cmd := NewSearchCmd()
	cmd.SetArgs([]string{"--index", indexPath})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected error without a target image")
	}
	if !strings.Contains(err.Error(), "no target image") {
		t.Errorf("expected no-target-image message, got %v", err)
	}

	// With an image but no embedding service the command must also fail.
	cmd2 := NewSearchCmd()
	cmd2.SetArgs([]string{"--index", indexPath, "photo.jpg"})

	err = cmd2.Execute()
	if err == nil {
		t.Fatal("expected error without embed endpoint")
	}
	if !strings.Contains(err.Error(), "embed-endpoint") {
		t.Errorf("expected embed-endpoint message, got %v", err)
	}
}

// TestSearchConfigThresholdValidation tests threshold bounds.
func TestSearchConfigThresholdValidation(t *testing.T) {
	t.Parallel()

	cmd := NewSearchCmd()
	if err := cmd.Flags().Parse([]string{"--threshold", "1.5"}); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}

	cfg, err := buildSearchConfig(cmd)
	if err != nil {
		t.Fatalf("buildSearchConfig failed: %v", err)
	}
	if err := cfg.Validate(); err != config.ErrInvalidThreshold {
		t.Errorf("expected ErrInvalidThreshold, got %v", err)
	}
}
