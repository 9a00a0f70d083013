package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrSectionize indicates the HTML fragment could not be parsed.
var ErrSectionize = errors.New("sectioning failed")

// Sectionize wraps heading runs in <section> elements so that document
// structure is expressed through containment. Each heading opens a section
// holding the heading and everything up to the next heading of equal or
// higher rank; lower-ranked headings in between become nested subsections.
// Content before the first heading is left untouched.
func Sectionize(fragment string) (string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSectionize, err)
	}

	body := findBody(doc)
	if body == nil {
		return fragment, nil
	}

	sectionizeFrom(body, body.FirstChild)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		// Error ignored: rendering to a bytes.Buffer cannot fail.
		_ = html.Render(&buf, c)
	}
	return buf.String(), nil
}

// sectionizeFrom wraps the heading runs among the siblings of parent,
// scanning forward from start.
func sectionizeFrom(parent, start *html.Node) {
	c := start
	for c != nil {
		rank := headingRank(c)
		if rank == 0 {
			c = c.NextSibling
			continue
		}

		sec := &html.Node{Type: html.ElementNode, DataAtom: atom.Section, Data: "section"}
		parent.InsertBefore(sec, c)

		// Move the heading and its run into the section. The run ends at
		// the next heading of equal or higher rank.
		run := c.NextSibling
		parent.RemoveChild(c)
		sec.AppendChild(c)
		for run != nil {
			if r := headingRank(run); r != 0 && r <= rank {
				break
			}
			following := run.NextSibling
			parent.RemoveChild(run)
			sec.AppendChild(run)
			run = following
		}

		// Deeper headings inside the run become nested subsections.
		sectionizeFrom(sec, c.NextSibling)

		c = sec.NextSibling
	}
}

// findBody locates the body element produced by html.Parse.
func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if body := findBody(c); body != nil {
			return body
		}
	}
	return nil
}

// headingRank returns 1-6 for h1-h6 element nodes and 0 for anything else.
func headingRank(n *html.Node) int {
	if n.Type != html.ElementNode {
		return 0
	}
	switch n.Data {
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
	default:
		return 0
	}
}
