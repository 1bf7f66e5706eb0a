package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/siteaudit/internal/model"
)

// HTML element name constants for form field detection.
const (
	htmlElementInput    = "input"
	htmlElementSelect   = "select"
	htmlElementTextarea = "textarea"
)

// Extractor turns page markup into a model.PageContent.
//
// Design decision: We use golang.org/x/net/html rather than regex or a
// query library because:
//  1. It correctly handles the malformed HTML common on the web
//  2. A single DOM walk collects every field in one pass
//  3. Its error tolerance lets us degrade subtrees instead of failing
type Extractor struct {
	// productSignals are the lower-cased tokens matched against class
	// lists and data attributes for heuristic product detection.
	productSignals []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithProductSignals replaces the default product-signal token set.
// Tokens are matched case-insensitively against class attribute tokens
// and data-* attribute names and values.
func WithProductSignals(signals []string) Option {
	return func(e *Extractor) {
		if len(signals) > 0 {
			e.productSignals = normalizeSignals(signals)
		}
	}
}

// New creates an Extractor with the default product-signal tokens.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		productSignals: defaultProductSignals(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// emailRegex is a conservative email pattern: local-part, "@", and a
// domain containing at least one dot. Strict RFC 5322 parsing would miss
// many real-world addresses, and false positives are acceptable for an
// advisory audit.
var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// Extract parses rawHTML and returns the structured content of the page.
// Relative URLs are resolved against baseURL. Extraction never fails:
// malformed subtrees and unresolvable URLs degrade to empty results and
// are recorded in ParseNotes.
func (e *Extractor) Extract(rawHTML, baseURL string) *model.PageContent {
	content := &model.PageContent{
		MetaTags: make(map[string]string),
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		base = nil
		content.ParseNotes = append(content.ParseNotes,
			fmt.Sprintf("base URL %q does not parse; relative links dropped", baseURL))
	}

	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		// html.Parse recovers from almost anything; when it cannot,
		// degrade to an empty result rather than aborting the page.
		content.ParseNotes = append(content.ParseNotes,
			fmt.Sprintf("markup does not parse: %v", err))
		return content
	}

	w := &walker{
		base:      base,
		content:   content,
		signals:   e.productSignals,
		seenLinks: make(map[string]bool),
		seenClass: make(map[string]bool),
	}
	w.walk(doc, false)

	w.finishEmails()
	return content
}

// walker carries the per-extraction state for one DOM traversal.
type walker struct {
	base    *url.URL
	content *model.PageContent
	signals []string

	seenLinks map[string]bool
	seenClass map[string]bool

	// text accumulates visible text for the email scan. Script and
	// style contents are excluded.
	text strings.Builder

	// sawTitle is true once the first <title> has been recorded.
	sawTitle bool
}

// walk traverses the DOM in document order. inProduct suppresses nested
// product matches so a matched card does not also report its children.
func (w *walker) walk(n *html.Node, inProduct bool) {
	switch n.Type {
	case html.ElementNode:
		w.processElement(n)
		if !inProduct && w.matchProduct(n) {
			inProduct = true
		}
	case html.TextNode:
		if n.Parent == nil || (n.Parent.Data != "script" && n.Parent.Data != "style") {
			w.text.WriteString(n.Data)
			w.text.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c, inProduct)
	}
}

// processElement records the fields contributed by a single element.
func (w *walker) processElement(n *html.Node) {
	if id := getAttr(n, "id"); id != "" {
		w.content.ElementIDs = append(w.content.ElementIDs, id)
	}
	w.collectClassTokens(n)

	switch n.Data {
	case "title":
		if !w.sawTitle {
			w.sawTitle = true
			w.content.Title = strings.TrimSpace(nodeText(n))
		}

	case "meta":
		name := getAttr(n, "name")
		if name == "" {
			name = getAttr(n, "property") // OpenGraph uses property
		}
		if name != "" {
			// Later duplicates overwrite earlier ones.
			w.content.MetaTags[strings.ToLower(name)] = getAttr(n, "content")
		}

	case "h1", "h2", "h3", "h4", "h5", "h6":
		w.content.Headings = append(w.content.Headings, model.Heading{
			Level: int(n.Data[1] - '0'),
			Text:  strings.TrimSpace(nodeText(n)),
		})

	case "p":
		if text := strings.TrimSpace(nodeText(n)); text != "" {
			w.content.Paragraphs = append(w.content.Paragraphs, text)
		}

	case "img":
		if src := getAttr(n, "src"); src != "" {
			w.content.Images = append(w.content.Images, model.Image{
				Src: w.resolveURL(src),
				Alt: getAttr(n, "alt"),
			})
		}

	case "a":
		w.processAnchor(n)

	case "form":
		form := model.Form{
			Method: strings.ToUpper(getAttr(n, "method")),
			Action: w.resolveURL(getAttr(n, "action")),
		}
		if form.Method == "" {
			form.Method = "GET"
		}
		collectFormFields(n, &form)
		w.content.Forms = append(w.content.Forms, form)

	case "script":
		if src := getAttr(n, "src"); src != "" {
			w.content.Scripts = append(w.content.Scripts, w.resolveURL(src))
		}

	case "link":
		rel := strings.ToLower(getAttr(n, "rel"))
		if rel == "stylesheet" {
			if href := getAttr(n, "href"); href != "" {
				w.content.Stylesheets = append(w.content.Stylesheets, w.resolveURL(href))
			}
		}
	}
}

// processAnchor records an anchor and, when it is a crawlable http(s)
// target, appends its canonical URL to Links. mailto:, javascript:, tel:
// and similar schemes stay visible on the Anchors list only.
func (w *walker) processAnchor(n *html.Node) {
	href := strings.TrimSpace(getAttr(n, "href"))
	if href == "" {
		return
	}

	anchor := model.Anchor{
		Href:        href,
		Text:        strings.TrimSpace(nodeText(n)),
		AriaLabel:   getAttr(n, "aria-label"),
		IconClasses: collectIconClasses(n),
	}

	if strings.HasPrefix(strings.ToLower(href), "mailto:") {
		addr := strings.SplitN(href[len("mailto:"):], "?", 2)[0]
		if addr != "" {
			w.text.WriteString(addr)
			w.text.WriteString(" ")
		}
	}

	if resolved := w.resolveURL(href); resolved != "" {
		if canonical, err := model.Canonicalize(resolved); err == nil {
			anchor.URL = canonical
			if !w.seenLinks[canonical] {
				w.seenLinks[canonical] = true
				w.content.Links = append(w.content.Links, canonical)
			}
		}
	}

	w.content.Anchors = append(w.content.Anchors, anchor)
}

// resolveURL resolves href against the page base URL. Returns an empty
// string for non-resolvable or non-navigational hrefs.
func (w *walker) resolveURL(href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	lower := strings.ToLower(href)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if w.base == nil {
		if u.IsAbs() {
			return u.String()
		}
		return ""
	}
	return w.base.ResolveReference(u).String()
}

// collectClassTokens records unique class attribute tokens in first-seen
// document order.
func (w *walker) collectClassTokens(n *html.Node) {
	for _, token := range strings.Fields(getAttr(n, "class")) {
		token = strings.ToLower(token)
		if !w.seenClass[token] {
			w.seenClass[token] = true
			w.content.ClassTokens = append(w.content.ClassTokens, token)
		}
	}
}

// finishEmails scans the accumulated visible text (plus mailto targets)
// for email addresses, lower-casing and deduplicating while preserving
// first-seen order.
func (w *walker) finishEmails() {
	matches := emailRegex.FindAllString(w.text.String(), -1)
	seen := make(map[string]bool)
	for _, email := range matches {
		lower := strings.ToLower(email)
		if !seen[lower] {
			seen[lower] = true
			w.content.Emails = append(w.content.Emails, lower)
		}
	}
}

// collectFormFields recursively collects the name attribute of every
// input, select, and textarea descendant.
func collectFormFields(n *html.Node, form *model.Form) {
	if n.Type == html.ElementNode &&
		(n.Data == htmlElementInput || n.Data == htmlElementSelect || n.Data == htmlElementTextarea) {
		if name := getAttr(n, "name"); name != "" {
			form.Fields = append(form.Fields, name)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectFormFields(c, form)
	}
}

// collectIconClasses gathers class tokens of the anchor and its
// descendants. FontAwesome-style icon tokens (fa-instagram) are what the
// social-link rule looks for.
func collectIconClasses(n *html.Node) []string {
	var classes []string
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.ElementNode {
			for _, token := range strings.Fields(getAttr(node, "class")) {
				classes = append(classes, strings.ToLower(token))
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return classes
}

// nodeText returns the concatenated text content of a node's subtree.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return sb.String()
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
