package webpub

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ParseManuscript parses rendered manuscript markup into a document tree.
func ParseManuscript(r io.Reader) (*html.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseDocument, err)
	}
	return doc, nil
}

// isSectioningElement reports whether name scopes headings structurally.
// Nesting among these elements, not numeric heading rank, decides the
// shape of the outline.
func isSectioningElement(name string) bool {
	switch name {
	case "section", "article", "aside", "nav":
		return true
	}
	return false
}

// headingRank returns the numeric rank of a heading element name, or 0.
func headingRank(name string) int {
	switch name {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

// sectionFrame tracks one open sectioning element during extraction. node
// stays nil until a heading inside the element claims it.
type sectionFrame struct {
	node *SectionNode
}

// ExtractOutline walks doc in document order and returns its outline: one
// node per heading, nested by the containment of sectioning elements. The
// first heading inside a sectioning element becomes that element's node;
// later headings inside it become children of that node. Headings outside
// any claimed element attach to the document root, so a flat document
// yields a flat forest. Every heading in doc appears exactly once.
func ExtractOutline(doc *html.Node) ([]*SectionNode, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}

	var roots []*SectionNode
	var stack []*sectionFrame

	// attach links node under the nearest enclosing claimed frame, or at
	// the document root when no enclosing element has a node yet.
	attach := func(node *SectionNode) {
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i].node != nil {
				stack[i].node.Children = append(stack[i].node.Children, node)
				return
			}
		}
		roots = append(roots, node)
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if rank := headingRank(c.Data); rank > 0 {
				node := newSectionNode(c, rank)
				attach(node)
				if top := len(stack) - 1; top >= 0 && stack[top].node == nil {
					stack[top].node = node
				}
				continue
			}
			if isSectioningElement(c.Data) {
				stack = append(stack, &sectionFrame{})
				walk(c)
				stack = stack[:len(stack)-1]
				continue
			}
			walk(c)
		}
	}
	walk(doc)

	return roots, nil
}

// newSectionNode captures one heading element as an outline node.
func newSectionNode(h *html.Node, rank int) *SectionNode {
	return &SectionNode{
		Level:       rank,
		HeadingHTML: innerHTML(h),
		HeadingText: headingText(h),
		ID:          escapeFragment(nearestID(h)),
	}
}

// innerHTML serializes the children of n, preserving inline markup.
func innerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		// Error ignored: rendering to a bytes.Buffer cannot fail.
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// headingText collects the text content of n with runs of whitespace
// collapsed to single spaces.
func headingText(n *html.Node) string {
	var words []string
	var walk func(d *html.Node)
	walk = func(d *html.Node) {
		for c := d.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				words = append(words, strings.Fields(c.Data)...)
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return strings.Join(words, " ")
}

// nearestID returns the id of n, or of its nearest ancestor carrying one.
// Headings without any referenceable ancestor return "".
func nearestID(n *html.Node) string {
	for p := n; p != nil; p = p.Parent {
		if p.Type != html.ElementNode {
			continue
		}
		if id := attrValue(p, "id"); id != "" {
			return id
		}
	}
	return ""
}

// attrValue returns the value of the named attribute of n, or "".
func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// escapeFragment makes id safe for use after "#" in a URL.
func escapeFragment(id string) string {
	if id == "" {
		return ""
	}
	return url.PathEscape(id)
}
