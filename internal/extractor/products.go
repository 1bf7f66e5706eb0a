package extractor

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/siteaudit/internal/model"
)

// maxProductLabelLen bounds the label text copied from a matched element.
const maxProductLabelLen = 120

// defaultProductSignals returns the built-in product-signal tokens.
// These generalize the storefront markup the original audit targets used
// (Webflow collection items, Shopify product grids): a token matching a
// class token or a data-* attribute name/value marks the element as a
// probable product card.
func defaultProductSignals() []string {
	return []string{
		"product",
		"price",
		"sku",
		"collection-item",
		"add-to-cart",
	}
}

// normalizeSignals lower-cases and deduplicates signal tokens.
func normalizeSignals(signals []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(signals))
	for _, s := range signals {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

// matchProduct checks whether an element looks like a product card and,
// if so, records a ProductGuess. This detector is explicitly best effort:
// it trades precision for not needing per-site selectors.
func (w *walker) matchProduct(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}

	signal := w.productSignal(n)
	if signal == "" {
		return false
	}

	label := strings.Join(strings.Fields(nodeText(n)), " ")
	if len(label) > maxProductLabelLen {
		label = label[:maxProductLabelLen]
	}

	w.content.Products = append(w.content.Products, model.ProductGuess{
		Label:  label,
		Signal: signal,
	})
	return true
}

// productSignal returns the first signal token matched by the element's
// class list or data attributes, or an empty string.
func (w *walker) productSignal(n *html.Node) string {
	classAttr := strings.ToLower(getAttr(n, "class"))
	for _, signal := range w.signals {
		if classAttr != "" && strings.Contains(classAttr, signal) {
			return signal
		}
		for _, attr := range n.Attr {
			if !strings.HasPrefix(attr.Key, "data-") {
				continue
			}
			if strings.Contains(strings.ToLower(attr.Key), signal) ||
				strings.Contains(strings.ToLower(attr.Val), signal) {
				return signal
			}
		}
	}
	return ""
}
