package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/osintlab/facetrace/internal/config"
)

// TestNewInitCmd tests the init command creation.
func TestNewInitCmd(t *testing.T) {
	t.Parallel()

	cmd := NewInitCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "init" {
			t.Errorf("expected use 'init', got %q", cmd.Use)
		}
	})

	t.Run("has output flag with default", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("output")
		if flag == nil {
			t.Fatal("expected output flag")
		}
		if flag.DefValue != config.DefaultTemplateFile {
			t.Errorf("expected default %q, got %q", config.DefaultTemplateFile, flag.DefValue)
		}
	})

	t.Run("has force flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("force")
		if flag == nil {
			t.Fatal("expected force flag")
		}
		if flag.Shorthand != "f" {
			t.Errorf("expected shorthand 'f', got %q", flag.Shorthand)
		}
	})
}

// TestInitCmd tests template file creation.
func TestInitCmd(t *testing.T) {
	t.Parallel()

	t.Run("creates loadable template file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".facetrace")

		cmd := NewInitCmd()
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		cmd.SetArgs([]string{"-o", path})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("init failed: %v", err)
		}
		if !strings.Contains(buf.String(), "Created template file") {
			t.Errorf("expected creation message, got %s", buf.String())
		}

		// The written file must round-trip through the loader.
		ts, err := config.LoadTemplates(path)
		if err != nil {
			t.Fatalf("generated file failed to load: %v", err)
		}
		if _, ok := ts.Platforms["github"]; !ok {
			t.Error("expected github platform in generated templates")
		}
	})

	t.Run("refuses to overwrite without force", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".facetrace")

		first := NewInitCmd()
		first.SetOut(&bytes.Buffer{})
		first.SetArgs([]string{"-o", path})
		if err := first.Execute(); err != nil {
			t.Fatalf("first init failed: %v", err)
		}

		second := NewInitCmd()
		second.SetOut(&bytes.Buffer{})
		second.SetArgs([]string{"-o", path})
		if err := second.Execute(); err == nil {
			t.Error("expected error when file exists")
		}
	})

	t.Run("overwrites with force", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".facetrace")

		first := NewInitCmd()
		first.SetOut(&bytes.Buffer{})
		first.SetArgs([]string{"-o", path})
		if err := first.Execute(); err != nil {
			t.Fatalf("first init failed: %v", err)
		}

		second := NewInitCmd()
		second.SetOut(&bytes.Buffer{})
		second.SetArgs([]string{"-o", path, "-f"})
		if err := second.Execute(); err != nil {
			t.Errorf("forced init failed: %v", err)
		}
	})
}
