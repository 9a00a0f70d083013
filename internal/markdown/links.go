package markdown

import (
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RewriteLinks converts relative markdown links in a fragment to their
// published page paths: href="ch2.md" becomes href="ch2.html", keeping
// any fragment or query ("ch2.md#intro" becomes "ch2.html#intro"). Cross
// references between sources keep working after every page is renamed on
// publish.
//
// Not rewritten:
//   - absolute URLs and protocol-relative URLs (external resources)
//   - bare anchors (#section)
//   - absolute paths (outside the publication tree)
//   - links to anything but .md and .markdown files
func RewriteLinks(fragment string) (string, error) {
	context := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Body,
		Data:     "body",
	}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), context)
	if err != nil {
		return "", err
	}

	container := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		container.AppendChild(n)
	}
	rewriteLinkNode(container)

	var buf strings.Builder
	for c := container.FirstChild; c != nil; c = c.NextSibling {
		// Error ignored: rendering to a strings.Builder cannot fail.
		_ = html.Render(&buf, c)
	}
	return buf.String(), nil
}

// rewriteLinkNode traverses the DOM and rewrites anchor targets.
func rewriteLinkNode(n *html.Node) {
	if n.Type == html.ElementNode && n.DataAtom == atom.A {
		for i, attr := range n.Attr {
			if attr.Key == "href" {
				n.Attr[i].Val = rewriteHref(attr.Val)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		rewriteLinkNode(c)
	}
}

// rewriteHref maps a single href to its published form, or returns it
// unchanged when it is not a relative markdown link.
func rewriteHref(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.Scheme != "" || u.Host != "" || u.Path == "" {
		return href
	}
	if strings.HasPrefix(u.Path, "/") {
		return href
	}

	ext := path.Ext(u.Path)
	if ext != ".md" && ext != ".markdown" {
		return href
	}

	u.Path = strings.TrimSuffix(u.Path, ext) + ".html"
	return u.String()
}
