// Package webpub compiles a set of rendered HTML manuscripts into a web
// publication: it extracts each document's outline, generates a table of
// contents, and emits the publication manifest binding the reading order
// together.
//
// # Quick Start
//
// Create a compiler and compile manuscripts in reading order:
//
//	comp, err := webpub.NewCompiler()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := comp.Compile(ctx, []webpub.Manuscript{
//	    {Target: "ch1.html", Title: "Chapter One", HTML: ch1},
//	    {Target: "ch2.html", Title: "Chapter Two", HTML: ch2},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The result holds the toc document (result.Toc), the publication manifest
// (result.Manifest), and the extracted outline per entry (result.Entries).
// Compile performs no I/O; Publish additionally writes the toc document
// and, last, the manifest under an output directory.
//
// # Outlines
//
// Outline extraction follows the containment of sectioning elements
// (section, article, aside, nav) in the markup, not the numeric rank of
// headings. The first heading inside a sectioning element represents that
// element; anything nested deeper becomes its children. A document without
// sectioning elements yields a flat list of headings.
//
// # Configuration
//
// Use functional options to customize the compiler:
//
//	comp, err := webpub.NewCompiler(
//	    webpub.WithSectionDepth(2),
//	    webpub.WithTocTitle("Contents"),
//	    webpub.WithTocPath("toc.html"),
//	    webpub.WithPublicationTitle("Field Notes"),
//	)
//
// A publication that ships its own hand-written contents page declares it
// with WithManualToc; no toc document is generated and the manuscript's
// manifest record is marked rel="contents" in place.
//
// # Custom ToC Markup
//
// The default toc is a nav landmark holding nested ordered lists. Custom
// transforms replace the markup per item kind and run bottom-up, receiving
// the already rendered markup of their children:
//
//	webpub.WithSectionTransform(func(c webpub.SectionContent, children string, n int) string {
//	    return fmt.Sprintf("<div class=%q>%s%s</div>", "sec", c.HeadingText, children)
//	})
package webpub
