package scraper

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// skippedElements never contribute text: chrome, code, and media nodes.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"svg":      true,
	"img":      true,
	"nav":      true,
	"header":   true,
	"footer":   true,
}

// blockElements introduce line breaks in the flattened body text.
var blockElements = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"li": true, "ul": true, "ol": true, "table": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"br": true, "dt": true, "dd": true,
}

// minIngredientBlock filters out trivial matches like a bare "Ingredients"
// heading with no list behind it.
const minIngredientBlock = 30

var multiSpacePattern = regexp.MustCompile(`[ \t]{2,}`)

// Extraction is the processed content of one HTML document.
type Extraction struct {
	Title           string
	IngredientsText string
	BodyText        string
}

// ExtractPage parses an HTML document and produces a title, high-confidence
// ingredient text from targeted containers, and a bounded full-body fallback.
// The fallback guarantees downstream stages always have some text to work
// with even when targeted extraction finds nothing.
func ExtractPage(htmlContent string, maxBodyChars int) (*Extraction, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return nil, err
	}

	ex := &Extraction{
		Title:           extractTitle(doc),
		IngredientsText: extractIngredientBlocks(doc),
		BodyText:        extractBodyText(doc, maxBodyChars),
	}
	return ex, nil
}

// extractTitle returns the document title, falling back to the first h1.
func extractTitle(doc *html.Node) string {
	if title := firstElementText(doc, "title"); title != "" {
		return title
	}
	return firstElementText(doc, "h1")
}

// firstElementText finds the first element with the given tag and returns its
// collapsed text content.
func firstElementText(doc *html.Node, tag string) string {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == tag {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if found == nil {
		return ""
	}
	return collapseSpaces(nodeText(found))
}

// extractIngredientBlocks collects text from elements whose class, id, or
// itemprop suggests an ingredient container. Only non-trivial blocks count.
func extractIngredientBlocks(doc *html.Node) string {
	var blocks []string
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedElements[n.Data] {
				return
			}
			if hasIngredientHint(n) {
				text := collapseSpaces(nodeText(n))
				if len(text) >= minIngredientBlock && !seen[text] {
					seen[text] = true
					blocks = append(blocks, text)
				}
				return // children are already covered by this block
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(blocks, "\n")
}

// hasIngredientHint checks the attribute names a retail or database page
// typically uses around ingredient copy.
func hasIngredientHint(n *html.Node) bool {
	for _, attr := range n.Attr {
		switch attr.Key {
		case "class", "id", "itemprop", "data-testid":
			if strings.Contains(strings.ToLower(attr.Val), "ingredient") {
				return true
			}
		}
	}
	return false
}

// extractBodyText flattens the whole document into whitespace-normalized
// text, line-broken at block boundaries and truncated to maxChars.
func extractBodyText(doc *html.Node, maxChars int) string {
	var sb strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if sb.Len() > maxChars*2 {
			return // enough raw text collected; final truncation below
		}

		switch n.Type {
		case html.TextNode:
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		case html.ElementNode:
			if skippedElements[n.Data] {
				return
			}
			if blockElements[n.Data] {
				sb.WriteString("\n")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			sb.WriteString("\n")
		}
	}
	walk(doc)

	return truncate(normalizeLines(sb.String()), maxChars)
}

// normalizeLines collapses intra-line whitespace and squeezes blank runs.
func normalizeLines(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(collapseSpaces(line))
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// collapseSpaces squeezes runs of spaces and tabs into one space.
func collapseSpaces(s string) string {
	return strings.TrimSpace(multiSpacePattern.ReplaceAllString(s, " "))
}

// truncate bounds s to max characters without splitting a line mid-way when
// a nearby break exists.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := s[:max]
	if idx := strings.LastIndexByte(cut, '\n'); idx > max/2 {
		cut = cut[:idx]
	}
	return cut
}

// nodeText returns the raw text content of a subtree, skipping chrome nodes.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(strings.TrimSpace(n.Data))
			sb.WriteString(" ")
		}
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}
