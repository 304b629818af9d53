package avatar

import (
	"strings"
	"testing"
)

// TestNew tests the Extractor constructor.
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("creates with defaults", func(t *testing.T) {
		t.Parallel()

		e := New()
		if e.maxCandidates != DefaultMaxCandidates {
			t.Errorf("expected default max %d, got %d", DefaultMaxCandidates, e.maxCandidates)
		}
		if e.minDimension != DefaultMinDimension {
			t.Errorf("expected default min dimension %d, got %d", DefaultMinDimension, e.minDimension)
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		e := New(WithMaxCandidates(3), WithMinDimension(64), WithFallbackLimit(2))
		if e.maxCandidates != 3 || e.minDimension != 64 || e.fallbackLimit != 2 {
			t.Errorf("options not applied: %+v", e)
		}
	})
}

// TestExtractSelectorPhase tests the platform selector hint phase.
func TestExtractSelectorPhase(t *testing.T) {
	t.Parallel()

	doc := `<html><body>
		<img class="avatar circle" src="/images/alice.jpg">
		<img class="banner" src="/images/banner.jpg">
	</body></html>`

	e := New()
	got := e.Extract(doc, "https://e.test/alice", "img.avatar")

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d: %v", len(got), got)
	}
	if got[0] != "https://e.test/images/alice.jpg" {
		t.Errorf("unexpected candidate: %s", got[0])
	}
}

// TestExtractDescendantSelector tests ".class img" style hints.
func TestExtractDescendantSelector(t *testing.T) {
	t.Parallel()

	doc := `<html><body>
		<div id="profile-image"><img src="/me.png"></div>
		<div class="gallery"><img src="/g1.png"></div>
	</body></html>`

	e := New()
	got := e.Extract(doc, "https://e.test/u", "#profile-image img")

	if len(got) != 1 || got[0] != "https://e.test/me.png" {
		t.Fatalf("expected only /me.png, got %v", got)
	}
}

// TestExtractVocabularyPhase tests class/id/alt vocabulary matching
// when no selector hint is given.
func TestExtractVocabularyPhase(t *testing.T) {
	t.Parallel()

	doc := `<html><body>
		<img alt="profile photo of alice" src="/alice.png">
		<img alt="site banner" src="/banner.png">
	</body></html>`

	e := New()
	got := e.Extract(doc, "https://e.test/alice", "")

	if len(got) != 1 || got[0] != "https://e.test/alice.png" {
		t.Fatalf("expected alice.png only, got %v", got)
	}
}

// TestExtractMetaOnly asserts that a document with one og:image and
// nothing else avatar-like returns exactly that URL.
func TestExtractMetaOnly(t *testing.T) {
	t.Parallel()

	doc := `<html><head>
		<meta property="og:image" content="https://e.test/a.jpg">
	</head><body><p>hello</p></body></html>`

	e := New()
	got := e.Extract(doc, "https://e.test/alice", "")

	if len(got) != 1 {
		t.Fatalf("expected exactly 1 URL, got %v", got)
	}
	if got[0] != "https://e.test/a.jpg" {
		t.Errorf("expected https://e.test/a.jpg, got %s", got[0])
	}
}

// TestExtractMetaUnionsWithSelector asserts the meta phase contributes
// even when the selector phase already found candidates.
func TestExtractMetaUnionsWithSelector(t *testing.T) {
	t.Parallel()

	doc := `<html><head>
		<meta property="og:image" content="https://cdn.e.test/social.jpg">
	</head><body>
		<img class="avatar" src="/alice.jpg">
	</body></html>`

	e := New()
	got := e.Extract(doc, "https://e.test/alice", "img.avatar")

	if len(got) != 2 {
		t.Fatalf("expected selector + meta candidates, got %v", got)
	}
	if got[0] != "https://e.test/alice.jpg" {
		t.Errorf("selector candidate should rank first, got %s", got[0])
	}
	if got[1] != "https://cdn.e.test/social.jpg" {
		t.Errorf("meta candidate missing, got %v", got)
	}
}

// TestExtractKnownHostPhase tests the CDN shape table.
func TestExtractKnownHostPhase(t *testing.T) {
	t.Parallel()

	doc := `<html><body>
		<img src="https://avatars.githubusercontent.com/u/12345?v=4">
		<img src="https://e.test/banner.jpg">
	</body></html>`

	e := New()
	got := e.Extract(doc, "https://github.com/alice", "")

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %v", got)
	}
	if !strings.Contains(got[0], "avatars.githubusercontent.com") {
		t.Errorf("expected github avatar CDN, got %s", got[0])
	}
}

// TestExtractFallbackPhase tests the dimension-gated last resort.
func TestExtractFallbackPhase(t *testing.T) {
	t.Parallel()

	doc := `<html><body>
		<img src="/tiny.png" width="16" height="16">
		<img src="/big.png" width="200" height="200">
		<img src="/nodims.png">
	</body></html>`

	e := New()
	got := e.Extract(doc, "https://e.test/u", "")

	want := []string{"https://e.test/big.png", "https://e.test/nodims.png"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

// TestExtractValidityFilter tests placeholder and URI rejection.
func TestExtractValidityFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "placeholder token in URL",
			doc:  `<img class="avatar" src="/images/default-avatar.png">`,
		},
		{
			name: "identicon in URL",
			doc:  `<img class="avatar" src="https://avatars.githubusercontent.com/identicon/9">`,
		},
		{
			name: "placeholder token in alt",
			doc:  `<img class="avatar" alt="anonymous user" src="/u.png">`,
		},
		{
			name: "data URI",
			doc:  `<img class="avatar" src="data:image/png;base64,AAAA">`,
		},
		{
			name: "undersized declared dimensions",
			doc:  `<img class="avatar" src="/u.png" width="16" height="16">`,
		},
	}

	e := New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := e.Extract("<html><body>"+tt.doc+"</body></html>", "https://e.test/u", "")
			if len(got) != 0 {
				t.Errorf("expected rejection, got %v", got)
			}
		})
	}
}

// TestExtractDeduplicate tests query-stripped deduplication preserving
// first occurrence.
func TestExtractDeduplicate(t *testing.T) {
	t.Parallel()

	doc := `<html><body>
		<img class="avatar" src="/alice.jpg?size=64">
		<img class="avatar" src="/alice.jpg?size=128">
	</body></html>`

	e := New()
	got := e.Extract(doc, "https://e.test/u", "")

	if len(got) != 1 {
		t.Fatalf("expected deduplication to 1, got %v", got)
	}
	if got[0] != "https://e.test/alice.jpg?size=64" {
		t.Errorf("expected first occurrence kept, got %s", got[0])
	}
}

// TestExtractDeterminism asserts byte-identical output across repeated
// invocations on the same input.
func TestExtractDeterminism(t *testing.T) {
	t.Parallel()

	doc := `<html><head>
		<meta property="og:image" content="/social.png">
	</head><body>
		<img class="user-avatar" src="/one.png">
		<img alt="profile" src="/two.png">
		<img src="https://gravatar.com/avatar/abc123">
	</body></html>`

	e := New()
	first := e.Extract(doc, "https://e.test/u", "")

	for i := 0; i < 10; i++ {
		again := e.Extract(doc, "https://e.test/u", "")
		if len(again) != len(first) {
			t.Fatalf("run %d: length changed: %v vs %v", i, again, first)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d: output differs at %d: %v vs %v", i, j, again, first)
			}
		}
	}
}

// TestExtractTruncation tests the K cap.
func TestExtractTruncation(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 20; i++ {
		b.WriteString(`<img class="avatar" src="/a`)
		b.WriteByte(byte('a' + i))
		b.WriteString(`.png">`)
	}
	b.WriteString("</body></html>")

	e := New(WithMaxCandidates(4))
	got := e.Extract(b.String(), "https://e.test/u", "")

	if len(got) != 4 {
		t.Errorf("expected truncation to 4, got %d", len(got))
	}
}

// TestExtractLazyLoadedSource tests data-src and srcset handling.
func TestExtractLazyLoadedSource(t *testing.T) {
	t.Parallel()

	t.Run("data-src wins over placeholder src", func(t *testing.T) {
		t.Parallel()

		doc := `<img class="avatar" src="/spacer.gif" data-src="/real.png">`
		e := New()
		got := e.Extract("<html><body>"+doc+"</body></html>", "https://e.test/u", "")
		if len(got) != 1 || got[0] != "https://e.test/real.png" {
			t.Errorf("expected data-src URL, got %v", got)
		}
	})

	t.Run("srcset first entry", func(t *testing.T) {
		t.Parallel()

		doc := `<img class="avatar" srcset="/a-64.png 1x, /a-128.png 2x">`
		e := New()
		got := e.Extract("<html><body>"+doc+"</body></html>", "https://e.test/u", "")
		if len(got) != 1 || got[0] != "https://e.test/a-64.png" {
			t.Errorf("expected first srcset URL, got %v", got)
		}
	})
}

// TestParseSelector tests the mini selector grammar.
func TestParseSelector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		ok   bool
	}{
		{name: "tag with class", in: "img.avatar", ok: true},
		{name: "bare class", in: ".avatar", ok: true},
		{name: "id descendant", in: "#profile-image img", ok: true},
		{name: "class descendant", in: ".user-avatar img", ok: true},
		{name: "empty", in: "", ok: false},
		{name: "child combinator unsupported", in: "div > img", ok: false},
		{name: "attribute selector unsupported", in: `img[alt="x"]`, ok: false},
		{name: "trailing dot", in: "img.", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, ok := parseSelector(tt.in)
			if ok != tt.ok {
				t.Errorf("parseSelector(%q) ok = %v, want %v", tt.in, ok, tt.ok)
			}
		})
	}
}
