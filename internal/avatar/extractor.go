package avatar

import (
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Extraction limits. These bound both the output size and the work the
// fallback phase does on image-heavy pages.
const (
	// DefaultMaxCandidates is the maximum number of URLs returned (K).
	DefaultMaxCandidates = 10

	// DefaultMinDimension is the minimum declared width/height for an
	// image to be considered an avatar. Anything smaller is an icon.
	DefaultMinDimension = 40

	// DefaultFallbackLimit is the number of leading <img> elements the
	// final fallback phase considers.
	DefaultFallbackLimit = 5
)

// avatarVocabulary are class/id/alt/filename tokens that suggest an
// image is a profile picture.
var avatarVocabulary = []string{
	"avatar", "profile", "user", "photo", "pic", "image",
}

// placeholderVocabulary are tokens in a URL or alt/title text that mark
// stock or empty avatars. Any hit disqualifies the candidate.
var placeholderVocabulary = []string{
	"default", "placeholder", "identicon", "monsterid", "retro",
	"anonymous", "unknown", "ghost", "blank", "null", "empty",
	"spacer", "sprite", "logo", "icon-",
}

// knownAvatarHosts are URL shapes of CDNs that serve profile pictures.
// Matching any of these is high-confidence even without an image file
// extension in the path.
var knownAvatarHosts = []string{
	"avatars.githubusercontent.com",
	"gravatar.com/avatar",
	"secure.gravatar.com",
	"pbs.twimg.com/profile_images",
	"cdn.discordapp.com/avatars",
	"a.thumbs.redditmedia.com",
	"styles.redditmedia.com",
	"avatar.trakt.tv",
	"i.imgur.com",
}

// Extractor turns an HTML document into an ordered list of candidate
// avatar URLs. It is stateless apart from its configuration and safe
// for concurrent use.
type Extractor struct {
	// maxCandidates caps the returned list length.
	maxCandidates int

	// minDimension is the smallest declared width/height accepted.
	minDimension int

	// fallbackLimit bounds the last-resort phase.
	fallbackLimit int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxCandidates sets the maximum number of URLs returned.
func WithMaxCandidates(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxCandidates = n
		}
	}
}

// WithMinDimension sets the minimum declared image dimension.
func WithMinDimension(px int) Option {
	return func(e *Extractor) {
		if px > 0 {
			e.minDimension = px
		}
	}
}

// WithFallbackLimit sets how many leading images the fallback phase scans.
func WithFallbackLimit(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.fallbackLimit = n
		}
	}
}

// New creates an Extractor with the given options.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		maxCandidates: DefaultMaxCandidates,
		minDimension:  DefaultMinDimension,
		fallbackLimit: DefaultFallbackLimit,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// phase is one step of the extraction cascade. Phases read the parsed
// page and return candidates in document order, which keeps the overall
// output deterministic for identical input.
type phase struct {
	name string
	run  func(p *page) []candidate

	// alwaysRuns marks phases whose results are unioned regardless of
	// earlier phases. Only the social meta-tag phase sets this: meta
	// images are declared by the site itself and are high-confidence.
	alwaysRuns bool
}

// Extract returns up to maxCandidates absolute image URLs ordered
// most-likely-avatar first. selectorHint is the platform's declared
// CSS selector and may be empty. A parse failure returns nil: pages
// that x/net/html cannot parse at all are not worth guessing about.
func (e *Extractor) Extract(htmlBody, baseURL, selectorHint string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	doc, err := html.Parse(strings.NewReader(htmlBody))
	if err != nil {
		return nil
	}

	p := collectPage(doc, base)

	phases := []phase{
		{name: "selector", run: func(p *page) []candidate { return phaseSelector(p, selectorHint) }},
		{name: "vocabulary", run: phaseVocabulary},
		{name: "meta", run: phaseMetaTags, alwaysRuns: true},
		{name: "filename", run: phaseFilename},
		{name: "cdn", run: phaseKnownHosts},
		{name: "fallback", run: func(p *page) []candidate { return phaseFallback(p, e.fallbackLimit, e.minDimension) }},
	}

	var kept []candidate
	for _, ph := range phases {
		// A phase only runs while the accumulator is still empty; the
		// meta phase always runs and its results gate later phases too.
		if len(kept) > 0 && !ph.alwaysRuns {
			continue
		}
		for _, c := range ph.run(p) {
			if e.validCandidate(c) {
				kept = append(kept, c)
			}
		}
	}

	return e.finalize(kept)
}

// validCandidate applies the validity filter: no placeholder tokens,
// no undersized declared dimensions, no data/script URIs.
func (e *Extractor) validCandidate(c candidate) bool {
	lowered := strings.ToLower(c.url)
	if strings.HasPrefix(lowered, "data:") || strings.HasPrefix(lowered, "javascript:") {
		return false
	}

	for _, token := range placeholderVocabulary {
		if strings.Contains(lowered, token) {
			return false
		}
	}

	altTitle := strings.ToLower(c.alt + " " + c.title)
	for _, token := range placeholderVocabulary {
		if token != "icon-" && strings.Contains(altTitle, token) {
			return false
		}
	}

	if (c.width > 0 && c.width < e.minDimension) ||
		(c.height > 0 && c.height < e.minDimension) {
		return false
	}

	return true
}

// finalize deduplicates by query-stripped URL, preserving first
// occurrence, and truncates to the candidate cap.
func (e *Extractor) finalize(candidates []candidate) []string {
	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))

	for _, c := range candidates {
		key := stripQuery(c.url)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c.url)
		if len(out) >= e.maxCandidates {
			break
		}
	}

	return out
}

// stripQuery removes the query string and fragment from a URL for
// deduplication. The original URL (query intact) is what gets returned
// to callers, since query parameters often select the image size.
func stripQuery(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// candidate is one potential avatar URL with the attributes needed by
// the validity filter.
type candidate struct {
	url    string
	alt    string
	title  string
	width  int
	height int
}

// imageInfo describes one <img> element in document order.
type imageInfo struct {
	src    string
	alt    string
	title  string
	class  string
	id     string
	width  int
	height int

	// node is kept for ancestor checks in the selector phase.
	node *html.Node
}

// page is the parsed, flattened view of one document.
type page struct {
	base   *url.URL
	doc    *html.Node
	images []imageInfo

	// metaImages are content URLs of og:image / twitter:image /
	// itemprop=image tags, in document order.
	metaImages []string
}

// collectPage walks the DOM once, gathering images and meta tags in
// document order.
func collectPage(doc *html.Node, base *url.URL) *page {
	p := &page{base: base, doc: doc}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "img":
				if info, ok := imageFromNode(n, base); ok {
					p.images = append(p.images, info)
				}
			case "meta":
				if u := metaImageURL(n, base); u != "" {
					p.metaImages = append(p.metaImages, u)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return p
}

// imageFromNode builds an imageInfo from an <img> element. Images
// without any usable source are skipped.
func imageFromNode(n *html.Node, base *url.URL) (imageInfo, bool) {
	src := imageSource(n)
	if src == "" {
		return imageInfo{}, false
	}

	resolved := resolveURL(base, src)
	if resolved == "" {
		return imageInfo{}, false
	}

	return imageInfo{
		src:    resolved,
		alt:    getAttr(n, "alt"),
		title:  getAttr(n, "title"),
		class:  getAttr(n, "class"),
		id:     getAttr(n, "id"),
		width:  parseDimension(getAttr(n, "width")),
		height: parseDimension(getAttr(n, "height")),
		node:   n,
	}, true
}

// imageSource returns the best source attribute of an img element.
// Lazy-loading attributes are tried before src because sites that use
// them put a placeholder in src.
func imageSource(n *html.Node) string {
	for _, attr := range []string{"data-src", "data-original", "src"} {
		if v := strings.TrimSpace(getAttr(n, attr)); v != "" {
			return v
		}
	}

	// srcset: take the first URL entry.
	if srcset := getAttr(n, "srcset"); srcset != "" {
		first := strings.TrimSpace(strings.Split(srcset, ",")[0])
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}

	return ""
}

// metaImageURL returns the resolved content URL when the node is a
// social image meta tag, empty otherwise.
func metaImageURL(n *html.Node, base *url.URL) string {
	key := getAttr(n, "property")
	if key == "" {
		key = getAttr(n, "name")
	}
	if key == "" {
		key = getAttr(n, "itemprop")
	}

	switch strings.ToLower(key) {
	case "og:image", "twitter:image", "image":
	default:
		return ""
	}

	content := strings.TrimSpace(getAttr(n, "content"))
	if content == "" {
		return ""
	}
	return resolveURL(base, content)
}

// resolveURL resolves href against base and rejects non-fetchable
// schemes. data: URIs are kept here and rejected later by the validity
// filter so the rejection is visible in one place.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "data:") {
		return href
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// parseDimension parses a declared width/height attribute. Percentage
// and other non-pixel values report 0 (unknown).
func parseDimension(v string) int {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// getAttr retrieves an attribute value from an HTML node.
func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// containsVocabulary reports whether s contains any avatar vocabulary
// token. Matching is case-insensitive.
func containsVocabulary(s string) bool {
	lowered := strings.ToLower(s)
	for _, token := range avatarVocabulary {
		if strings.Contains(lowered, token) {
			return true
		}
	}
	return false
}
