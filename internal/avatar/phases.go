package avatar

import (
	"path"
	"strings"
)

// phaseSelector returns images matched by the platform's declared CSS
// selector hint. An empty or unparsable hint yields nothing, pushing
// the cascade to the generic phases.
func phaseSelector(p *page, selectorHint string) []candidate {
	sel, ok := parseSelector(selectorHint)
	if !ok {
		return nil
	}

	var out []candidate
	for _, img := range p.images {
		if sel.matches(img.node) {
			out = append(out, img.candidate())
		}
	}
	return out
}

// phaseVocabulary matches the avatar vocabulary against class, id and
// alt text of each image.
func phaseVocabulary(p *page) []candidate {
	var out []candidate
	for _, img := range p.images {
		if containsVocabulary(img.class) ||
			containsVocabulary(img.id) ||
			containsVocabulary(img.alt) {
			out = append(out, img.candidate())
		}
	}
	return out
}

// phaseMetaTags returns social meta-tag images (og:image,
// twitter:image, itemprop=image). These are declared by the site
// itself, so the cascade unions them in unconditionally.
func phaseMetaTags(p *page) []candidate {
	out := make([]candidate, 0, len(p.metaImages))
	for _, u := range p.metaImages {
		out = append(out, candidate{url: u})
	}
	return out
}

// phaseFilename matches the avatar vocabulary against the trailing path
// segment of each image URL.
func phaseFilename(p *page) []candidate {
	var out []candidate
	for _, img := range p.images {
		if containsVocabulary(trailingSegment(img.src)) {
			out = append(out, img.candidate())
		}
	}
	return out
}

// phaseKnownHosts matches image URLs against the fixed table of known
// avatar-hosting CDN shapes.
func phaseKnownHosts(p *page) []candidate {
	var out []candidate
	for _, img := range p.images {
		lowered := strings.ToLower(img.src)
		for _, host := range knownAvatarHosts {
			if strings.Contains(lowered, host) {
				out = append(out, img.candidate())
				break
			}
		}
	}
	return out
}

// phaseFallback takes the first limit images whose declared dimensions
// both meet the minimum, accepting images that declare no dimensions
// at all.
func phaseFallback(p *page, limit, minDimension int) []candidate {
	var out []candidate
	for _, img := range p.images {
		if len(out) >= limit {
			break
		}
		declared := img.width > 0 || img.height > 0
		if !declared || (img.width >= minDimension && img.height >= minDimension) {
			out = append(out, img.candidate())
		}
	}
	return out
}

// candidate converts an imageInfo into a filterable candidate.
func (i imageInfo) candidate() candidate {
	return candidate{
		url:    i.src,
		alt:    i.alt,
		title:  i.title,
		width:  i.width,
		height: i.height,
	}
}

// trailingSegment returns the last path segment of a URL, without the
// query string.
func trailingSegment(raw string) string {
	if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
		raw = raw[:idx]
	}
	return path.Base(raw)
}
