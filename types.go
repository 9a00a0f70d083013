package webpub

import (
	"fmt"
	"path"
	"strings"
)

// Manifest record constants.
const (
	// RelContents marks the table of contents record in the reading order.
	RelContents = "contents"
	// TypeLinkedResource is the resource type of reading order records.
	TypeLinkedResource = "LinkedResource"
)

// Compilation defaults.
const (
	DefaultTocPath      = "index.html"
	DefaultManifestPath = "publication.json"
	DefaultTocTitle     = "Table of Contents"
	// DefaultSectionDepth keeps every heading level a document can carry.
	DefaultSectionDepth = 6
)

// Manuscript is one rendered document of the publication: its markup plus
// the output-relative path it will be published at.
type Manuscript struct {
	Target string // output-relative path, slash-separated (required)
	Title  string // display title used in the toc and manifest
	HTML   []byte // rendered document markup (required)
}

// Validate checks that the manuscript can participate in a compilation.
// Content problems are not validated here; they surface per entry during
// extraction, where the compiler's error policy applies.
func (m Manuscript) Validate() error {
	if strings.TrimSpace(m.Target) == "" {
		return ErrEmptyTarget
	}
	if path.IsAbs(m.Target) {
		return fmt.Errorf("%w: %q", ErrAbsoluteTarget, m.Target)
	}
	if c := path.Clean(m.Target); c == "." || escapesRoot(c) {
		return fmt.Errorf("%w: %q", ErrTraversalTarget, m.Target)
	}
	return nil
}

// escapesRoot reports whether a cleaned slash path climbs above the
// publication root.
func escapesRoot(clean string) bool {
	return clean == ".." || strings.HasPrefix(clean, "../")
}

// SectionNode is one heading in a document outline. Nesting follows the
// containment of sectioning elements in the source markup, so Level (the
// numeric heading rank) and tree depth are independent.
type SectionNode struct {
	Level       int            // heading rank, 1 through 6
	HeadingHTML string         // inner markup of the heading element
	HeadingText string         // whitespace-normalized text of the heading
	ID          string         // fragment identifier, URL-escaped; empty if unlinkable
	Children    []*SectionNode // sections nested inside this one
}

// Entry is one manuscript with its extracted outline.
type Entry struct {
	Target   string
	Title    string
	Sections []*SectionNode
}

// TocDocument is the generated table of contents page.
type TocDocument struct {
	Path string // output-relative path the document is published at
	Body string // the nav fragment alone
	HTML string // the complete page wrapping the fragment
}

// EntryFailure records a manuscript that could not be processed when the
// compiler is configured to skip failures instead of aborting.
type EntryFailure struct {
	Target string
	Err    error
}

// Compilation is the result of compiling a set of manuscripts. Toc is nil
// when the publication supplies its own toc document.
type Compilation struct {
	Toc      *TocDocument
	Manifest *Manifest
	Entries  []Entry
	Failed   []EntryFailure
}

// EntryErrorPolicy decides how a compilation reacts when one manuscript
// fails to process.
type EntryErrorPolicy int

const (
	// AbortOnEntryError stops the compilation at the first failing manuscript.
	AbortOnEntryError EntryErrorPolicy = iota
	// SkipFailedEntries drops failing manuscripts from the publication and
	// records them in Compilation.Failed.
	SkipFailedEntries
)

// PageFunc wraps a toc fragment into a complete HTML document.
type PageFunc func(title, body string) string

// Option configures a Compiler.
type Option func(*Compiler)

// compilerConfig holds internal configuration for Compiler.
type compilerConfig struct {
	sectionDepth int
	tocTitle     string
	tocPath      string
	manualToc    string
	manifestPath string
	pubTitle     string
	pubDate      string
	entryFn      EntryTransform
	sectionFn    SectionTransform
	errorPolicy  EntryErrorPolicy
	wrapPage     PageFunc
}

// WithSectionDepth bounds how many levels of structural nesting the toc
// keeps per entry. Zero keeps entry links only; the bound is validated by
// NewCompiler.
func WithSectionDepth(depth int) Option {
	return func(c *Compiler) {
		c.cfg.sectionDepth = depth
	}
}

// WithTocTitle sets the heading of the generated toc and the name of its
// manifest record.
func WithTocTitle(title string) Option {
	return func(c *Compiler) {
		c.cfg.tocTitle = title
	}
}

// WithTocPath sets the output-relative path of the generated toc document.
func WithTocPath(p string) Option {
	return func(c *Compiler) {
		c.cfg.tocPath = p
	}
}

// WithManualToc declares that the manuscript at target is a user-authored
// table of contents. No toc document is generated; the manuscript's record
// is marked rel="contents" at its position in the reading order.
func WithManualToc(target string) Option {
	return func(c *Compiler) {
		c.cfg.manualToc = target
	}
}

// WithManifestPath sets the output-relative path of the publication
// manifest.
func WithManifestPath(p string) Option {
	return func(c *Compiler) {
		c.cfg.manifestPath = p
	}
}

// WithPublicationTitle sets the name of the publication in the manifest.
func WithPublicationTitle(name string) Option {
	return func(c *Compiler) {
		c.cfg.pubTitle = name
	}
}

// WithPublicationDate sets the datePublished of the publication in the
// manifest. The value is emitted verbatim; callers resolve any dynamic
// date before configuring the compiler.
func WithPublicationDate(date string) Option {
	return func(c *Compiler) {
		c.cfg.pubDate = date
	}
}

// WithEntryTransform replaces the default rendering of toc entry items.
func WithEntryTransform(fn EntryTransform) Option {
	return func(c *Compiler) {
		c.cfg.entryFn = fn
	}
}

// WithSectionTransform replaces the default rendering of toc section items.
func WithSectionTransform(fn SectionTransform) Option {
	return func(c *Compiler) {
		c.cfg.sectionFn = fn
	}
}

// WithEntryErrorPolicy decides whether a failing manuscript aborts the
// compilation or is skipped and recorded.
func WithEntryErrorPolicy(p EntryErrorPolicy) Option {
	return func(c *Compiler) {
		c.cfg.errorPolicy = p
	}
}

// WithPageTemplate replaces the default HTML page wrapping the generated
// toc fragment.
func WithPageTemplate(fn PageFunc) Option {
	return func(c *Compiler) {
		c.cfg.wrapPage = fn
	}
}
