package webpub

import (
	"fmt"
	"html"
	"path"
	"strings"
)

// EntryContent is what an entry transform receives for one toc entry.
type EntryContent struct {
	Title string // manuscript display title
	Href  string // link to the manuscript, relative to the toc document
}

// SectionContent is what a section transform receives for one outline node.
type SectionContent struct {
	HeadingText string // whitespace-normalized heading text
	HeadingHTML string // inner markup of the heading
	Href        string // link to the section, relative to the toc document; "" if unlinkable
	ID          string // URL-escaped fragment identifier; "" if unlinkable
	Level       int    // numeric heading rank
}

// EntryTransform renders one toc entry. children holds the already
// rendered markup of the entry's sections and childCount how many direct
// sections the entry has. The returned markup is inserted verbatim.
type EntryTransform func(c EntryContent, children string, childCount int) string

// SectionTransform renders one toc section item. children holds the
// already rendered markup of the node's subsections and childCount how
// many direct subsections the node has. The returned markup is inserted
// verbatim.
type SectionTransform func(c SectionContent, children string, childCount int) string

// TocRenderOptions configures RenderToc.
type TocRenderOptions struct {
	Title         string           // optional heading inside the nav
	TocPath       string           // output-relative path of the toc document itself
	RenderEntry   EntryTransform   // nil uses the default list item
	RenderSection SectionTransform // nil uses the default list item
}

// RenderToc renders the table of contents fragment for entries, in order.
// The default shape is a nav landmark holding one ordered list with a list
// item per entry and nested ordered lists for sections. Custom transforms
// replace the item markup per node kind; each runs bottom-up, after its
// children are rendered.
func RenderToc(entries []Entry, opts TocRenderOptions) string {
	r := &tocRenderer{
		tocPath:   path.Clean(opts.TocPath),
		entryFn:   opts.RenderEntry,
		sectionFn: opts.RenderSection,
	}

	var b strings.Builder
	b.WriteString(`<nav role="doc-toc">`)
	if opts.Title != "" {
		b.WriteString("<h2>")
		b.WriteString(html.EscapeString(opts.Title))
		b.WriteString("</h2>")
	}
	items := r.renderEntries(entries)
	if r.entryFn == nil {
		b.WriteString("<ol>")
		b.WriteString(items)
		b.WriteString("</ol>")
	} else {
		// A custom entry transform owns the document structure.
		b.WriteString(items)
	}
	b.WriteString("</nav>")
	return b.String()
}

// tocRenderer carries rendering state shared across the tree walk.
// tocPath and every target it is compared against are cleaned, so
// unnormalized spellings of the toc's own path still collapse to bare
// fragment links.
type tocRenderer struct {
	tocPath   string
	entryFn   EntryTransform
	sectionFn SectionTransform
}

func (r *tocRenderer) renderEntries(entries []Entry) string {
	fn := r.entryFn
	if fn == nil {
		fn = defaultEntryItem
	}
	var b strings.Builder
	for _, e := range entries {
		target := path.Clean(e.Target)
		children := r.renderSections(e.Sections, target)
		c := EntryContent{
			Title: e.Title,
			Href:  relativeURL(r.tocPath, target),
		}
		b.WriteString(fn(c, children, len(e.Sections)))
	}
	return b.String()
}

func (r *tocRenderer) renderSections(nodes []*SectionNode, target string) string {
	if len(nodes) == 0 {
		return ""
	}
	fn := r.sectionFn
	if fn == nil {
		fn = defaultSectionItem
	}
	var b strings.Builder
	for _, s := range nodes {
		children := r.renderSections(s.Children, target)
		c := SectionContent{
			HeadingText: s.HeadingText,
			HeadingHTML: s.HeadingHTML,
			Href:        r.sectionHref(target, s.ID),
			ID:          s.ID,
			Level:       s.Level,
		}
		b.WriteString(fn(c, children, len(s.Children)))
	}
	return b.String()
}

// sectionHref builds the link target for a section. Sections of the toc
// document itself collapse to a bare fragment.
func (r *tocRenderer) sectionHref(target, id string) string {
	if id == "" {
		return ""
	}
	if target == r.tocPath {
		return "#" + id
	}
	return relativeURL(r.tocPath, target) + "#" + id
}

// defaultEntryItem renders an entry as a linked list item with a nested
// ordered list for its sections.
func defaultEntryItem(c EntryContent, children string, childCount int) string {
	var b strings.Builder
	b.WriteString("<li>")
	b.WriteString(`<a href="`)
	b.WriteString(html.EscapeString(c.Href))
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(c.Title))
	b.WriteString("</a>")
	if childCount > 0 {
		b.WriteString("<ol>")
		b.WriteString(children)
		b.WriteString("</ol>")
	}
	b.WriteString("</li>")
	return b.String()
}

// defaultSectionItem renders a section as a list item: a link when the
// section is addressable, otherwise an inline span preserving the heading
// markup.
func defaultSectionItem(c SectionContent, children string, childCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<li data-section-level="%d">`, c.Level)
	if c.Href != "" {
		b.WriteString(`<a href="`)
		b.WriteString(html.EscapeString(c.Href))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(c.HeadingText))
		b.WriteString("</a>")
	} else {
		b.WriteString("<span>")
		b.WriteString(c.HeadingHTML)
		b.WriteString("</span>")
	}
	if childCount > 0 {
		b.WriteString("<ol>")
		b.WriteString(children)
		b.WriteString("</ol>")
	}
	b.WriteString("</li>")
	return b.String()
}
