package avatar

import (
	"strings"

	"golang.org/x/net/html"
)

// selector is a minimal CSS-like selector: whitespace-separated simple
// selectors with descendant semantics, where each simple selector is a
// combination of tag, .class and #id (e.g. "img.avatar", ".profile img",
// "#profile-image img").
//
// This intentionally covers only the grammar used by platform template
// hints. Anything it cannot parse is treated as no hint rather than an
// error, so a bad selector degrades to the generic phases.
type selector struct {
	parts []simpleSelector
}

// simpleSelector matches a single element.
type simpleSelector struct {
	tag     string
	id      string
	classes []string
}

// parseSelector parses a selector hint. ok is false for empty or
// unsupported input.
func parseSelector(hint string) (selector, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return selector{}, false
	}

	// Combinators beyond descendant are out of grammar.
	if strings.ContainsAny(hint, ">+~[]():,") {
		return selector{}, false
	}

	fields := strings.Fields(hint)
	parts := make([]simpleSelector, 0, len(fields))
	for _, f := range fields {
		part, ok := parseSimple(f)
		if !ok {
			return selector{}, false
		}
		parts = append(parts, part)
	}

	return selector{parts: parts}, true
}

// parseSimple parses one compound of tag/#id/.class tokens.
func parseSimple(s string) (simpleSelector, bool) {
	var out simpleSelector
	for s != "" {
		switch s[0] {
		case '.':
			rest := s[1:]
			token, remainder := splitToken(rest)
			if token == "" {
				return simpleSelector{}, false
			}
			out.classes = append(out.classes, token)
			s = remainder
		case '#':
			rest := s[1:]
			token, remainder := splitToken(rest)
			if token == "" || out.id != "" {
				return simpleSelector{}, false
			}
			out.id = token
			s = remainder
		default:
			token, remainder := splitToken(s)
			if token == "" || out.tag != "" {
				return simpleSelector{}, false
			}
			out.tag = strings.ToLower(token)
			s = remainder
		}
	}
	return out, true
}

// splitToken splits off the leading identifier, stopping at the next
// '.' or '#'.
func splitToken(s string) (token, rest string) {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' || s[i] == '#' {
			return s[:i], s[i:]
		}
	}
	return s, ""
}

// matches reports whether the node satisfies the full selector: the
// last simple selector must match the node itself and the remaining
// ones must match ancestors in order.
func (sel selector) matches(n *html.Node) bool {
	if len(sel.parts) == 0 || n == nil {
		return false
	}

	last := sel.parts[len(sel.parts)-1]
	if !last.matchesNode(n) {
		return false
	}

	// Walk up the tree consuming the remaining parts right to left.
	remaining := sel.parts[:len(sel.parts)-1]
	ancestor := n.Parent
	for i := len(remaining) - 1; i >= 0; i-- {
		found := false
		for ancestor != nil {
			if ancestor.Type == html.ElementNode && remaining[i].matchesNode(ancestor) {
				found = true
				ancestor = ancestor.Parent
				break
			}
			ancestor = ancestor.Parent
		}
		if !found {
			return false
		}
	}

	return true
}

// matchesNode reports whether a single element satisfies the simple
// selector.
func (s simpleSelector) matchesNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if s.tag != "" && n.Data != s.tag {
		return false
	}
	if s.id != "" && getAttr(n, "id") != s.id {
		return false
	}
	if len(s.classes) > 0 {
		classes := strings.Fields(getAttr(n, "class"))
		for _, want := range s.classes {
			found := false
			for _, have := range classes {
				if have == want {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}
