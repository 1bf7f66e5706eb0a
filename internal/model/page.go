package model

// PageContent is the structured content extracted from one fetched page.
// It is produced by the extractor as a pure function of the page HTML and
// base URL: the same input always yields a field-for-field identical
// result, with all sequences in document order.
//
// Design decision: We keep everything rules may need on this one struct
// rather than handing rules the raw DOM because:
//  1. Rules stay pure CPU functions with a stable, testable input shape
//  2. Extraction happens in a single parsing pass
//  3. Adding a new derived field does not change any rule signature
type PageContent struct {
	// Title is the trimmed text of the first <title> element.
	// Empty if the page has none.
	Title string `json:"title,omitempty"`

	// MetaTags maps the name (or property) attribute of each <meta>
	// element to its content attribute. Later duplicates overwrite
	// earlier ones. Keys are lower-cased.
	MetaTags map[string]string `json:"metaTags,omitempty"`

	// Headings contains every h1-h6 element in document order.
	Headings []Heading `json:"headings,omitempty"`

	// Paragraphs contains the trimmed text of every non-empty <p>
	// element in document order.
	Paragraphs []string `json:"paragraphs,omitempty"`

	// Images contains every <img> element's resolved src and alt text.
	Images []Image `json:"images,omitempty"`

	// Emails contains email addresses found in mailto: hrefs and in
	// visible text, lower-cased and deduplicated, first-seen order.
	Emails []string `json:"emails,omitempty"`

	// Forms contains every <form> element with its named fields.
	Forms []Form `json:"forms,omitempty"`

	// Products contains heuristic product detections. Best effort, not
	// authoritative.
	Products []ProductGuess `json:"products,omitempty"`

	// Links contains every anchor's resolved absolute URL in canonical
	// form, deduplicated with first-seen document order preserved.
	// mailto:, javascript:, tel: and other non-crawlable schemes are
	// excluded here but still visible through Anchors.
	Links []string `json:"links,omitempty"`

	// ElementIDs contains every id attribute value in document order.
	// Duplicates are retained so the repeated-id rule can count them.
	ElementIDs []string `json:"elementIds,omitempty"`

	// Anchors contains every <a href> element with the detail the
	// social-link rule needs: raw href, resolved URL, visible text,
	// aria-label, and icon class tokens of descendant elements.
	Anchors []Anchor `json:"anchors,omitempty"`

	// Scripts contains resolved <script src> URLs in document order.
	Scripts []string `json:"scripts,omitempty"`

	// Stylesheets contains resolved stylesheet <link href> URLs.
	Stylesheets []string `json:"stylesheets,omitempty"`

	// ClassTokens contains unique class attribute tokens in first-seen
	// document order. Used by CMS signature matchers.
	ClassTokens []string `json:"classTokens,omitempty"`

	// ParseNotes records non-fatal extraction problems (malformed
	// subtrees degraded to empty results). Never causes extraction to
	// fail.
	ParseNotes []string `json:"parseNotes,omitempty"`
}

// Heading is one h1-h6 element.
type Heading struct {
	// Level is the heading level, 1 through 6.
	Level int `json:"level"`

	// Text is the trimmed text content.
	Text string `json:"text"`
}

// Image is one <img> element.
type Image struct {
	// Src is the resolved absolute image URL.
	Src string `json:"src"`

	// Alt is the alt attribute, possibly empty.
	Alt string `json:"alt"`
}

// Form is one <form> element.
type Form struct {
	// Method is the upper-cased HTTP method, defaulting to GET.
	Method string `json:"method"`

	// Action is the resolved form action URL, possibly empty.
	Action string `json:"action"`

	// Fields contains the name attribute of every input, select, and
	// textarea descendant that has one, in document order.
	Fields []string `json:"fields"`
}

// ProductGuess is one heuristic product detection. An element whose class
// list or data attributes match a product-signal token yields one guess.
type ProductGuess struct {
	// Label is the nearby text of the matched element, trimmed and
	// truncated.
	Label string `json:"label"`

	// Signal is the token that triggered the detection (e.g. "price").
	Signal string `json:"signal"`
}

// Anchor is one <a> element with an href attribute.
type Anchor struct {
	// Href is the raw href attribute as written in the markup.
	Href string `json:"href"`

	// URL is the resolved absolute URL, empty for non-resolvable
	// schemes such as javascript:.
	URL string `json:"url,omitempty"`

	// Text is the trimmed visible text content.
	Text string `json:"text,omitempty"`

	// AriaLabel is the aria-label attribute, possibly empty.
	AriaLabel string `json:"ariaLabel,omitempty"`

	// IconClasses contains class tokens of the anchor and its
	// descendants (e.g. FontAwesome "fa-instagram").
	IconClasses []string `json:"iconClasses,omitempty"`
}

// HeadingCount returns the number of headings at the given level.
func (c *PageContent) HeadingCount(level int) int {
	n := 0
	for _, h := range c.Headings {
		if h.Level == level {
			n++
		}
	}
	return n
}

// MetaTag returns the value of the named meta tag, or an empty string.
// Names are stored lower-cased by the extractor.
func (c *PageContent) MetaTag(name string) string {
	return c.MetaTags[name]
}
