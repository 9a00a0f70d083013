package webpub

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Output file permissions.
const (
	dirPermissions  = 0o755
	filePermissions = 0o644
)

// pageTemplate is the minimal document wrapping a generated toc fragment.
const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s
</body>
</html>
`

// defaultPage wraps a toc fragment in pageTemplate.
func defaultPage(title, body string) string {
	return fmt.Sprintf(pageTemplate, html.EscapeString(title), body)
}

// Compiler assembles a publication from rendered manuscripts: it extracts
// each document outline, renders the table of contents, and emits the
// publication manifest.
type Compiler struct {
	cfg compilerConfig
}

// NewCompiler creates a compiler with the given options. Configuration is
// validated here, before any manuscript is touched.
func NewCompiler(opts ...Option) (*Compiler, error) {
	c := &Compiler{
		cfg: compilerConfig{
			sectionDepth: DefaultSectionDepth,
			tocPath:      DefaultTocPath,
			manifestPath: DefaultManifestPath,
			errorPolicy:  AbortOnEntryError,
			wrapPage:     defaultPage,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.cfg.sectionDepth < 0 {
		return nil, fmt.Errorf("%w: %d (must be >= 0)", ErrInvalidSectionDepth, c.cfg.sectionDepth)
	}
	tocPath, err := normalizeOutputPath(c.cfg.tocPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTocPath, err)
	}
	c.cfg.tocPath = tocPath
	manifestPath, err := normalizeOutputPath(c.cfg.manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifestPath, err)
	}
	c.cfg.manifestPath = manifestPath
	if c.cfg.manualToc != "" {
		manualToc, err := normalizeOutputPath(c.cfg.manualToc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTocPath, err)
		}
		c.cfg.manualToc = manualToc
	}
	if c.cfg.wrapPage == nil {
		c.cfg.wrapPage = defaultPage
	}
	return c, nil
}

// normalizeOutputPath cleans an output-relative path and rejects any that
// cannot sit under the publication root: absolute paths and paths whose
// cleaned form climbs above the root with "..". Every stored configuration
// path and every path comparison uses the cleaned form, so spellings like
// "./index.html" cannot dodge the conflict check.
func normalizeOutputPath(p string) (string, error) {
	if strings.TrimSpace(p) == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if path.IsAbs(p) || filepath.IsAbs(p) {
		return "", fmt.Errorf("path %q must be relative", p)
	}
	clean := path.Clean(p)
	if clean == "." || escapesRoot(clean) {
		return "", fmt.Errorf("path %q escapes the publication root", p)
	}
	return clean, nil
}

// Compile processes manuscripts in reading order and returns the toc
// document and publication manifest. It performs no I/O: callers that
// want files on disk use Publish. Identical inputs and configuration
// produce byte-identical output.
func (c *Compiler) Compile(ctx context.Context, manuscripts []Manuscript) (*Compilation, error) {
	if err := validateManuscripts(manuscripts); err != nil {
		return nil, err
	}

	manual := c.cfg.manualToc != ""
	if manual {
		if !hasTarget(manuscripts, c.cfg.manualToc) {
			return nil, fmt.Errorf("%w: %q", ErrMissingTocDocument, c.cfg.manualToc)
		}
	} else if hasTarget(manuscripts, c.cfg.tocPath) {
		// Refuse to overwrite a manuscript with the generated toc. This
		// fails the whole compilation up front, before extraction.
		return nil, fmt.Errorf("%w: %q", ErrTocConflict, c.cfg.tocPath)
	}

	comp := &Compilation{}
	for _, m := range manuscripts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entry, err := c.extractEntry(m)
		if err != nil {
			if c.cfg.errorPolicy == SkipFailedEntries {
				comp.Failed = append(comp.Failed, EntryFailure{Target: m.Target, Err: err})
				continue
			}
			return nil, fmt.Errorf("processing %s: %w", m.Target, err)
		}
		comp.Entries = append(comp.Entries, entry)
	}

	if manual {
		idx := indexOfTarget(comp.Entries, c.cfg.manualToc)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %q was skipped", ErrMissingTocDocument, c.cfg.manualToc)
		}
		comp.Manifest = c.manualManifest(comp.Entries, idx)
		return comp, nil
	}

	title := c.cfg.tocTitle
	if title == "" {
		title = DefaultTocTitle
	}
	body := RenderToc(comp.Entries, TocRenderOptions{
		Title:         title,
		TocPath:       c.cfg.tocPath,
		RenderEntry:   c.cfg.entryFn,
		RenderSection: c.cfg.sectionFn,
	})
	comp.Toc = &TocDocument{
		Path: c.cfg.tocPath,
		Body: body,
		HTML: c.cfg.wrapPage(title, body),
	}
	comp.Manifest = c.autoManifest(comp.Entries, title)
	return comp, nil
}

// Publish compiles manuscripts and writes the generated documents under
// dir. The toc document is written first and the manifest last, so a
// failed run never leaves a manifest pointing at missing resources. A
// compilation error means nothing is written at all.
func (c *Compiler) Publish(ctx context.Context, dir string, manuscripts []Manuscript) (*Compilation, error) {
	comp, err := c.Compile(ctx, manuscripts)
	if err != nil {
		return nil, err
	}
	if comp.Toc != nil {
		if err := writeFileAt(dir, comp.Toc.Path, []byte(comp.Toc.HTML)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTocWrite, err)
		}
	}
	data, err := comp.Manifest.JSON()
	if err != nil {
		return nil, err
	}
	if err := writeFileAt(dir, c.cfg.manifestPath, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrManifestWrite, err)
	}
	return comp, nil
}

// extractEntry parses one manuscript and extracts its depth-bounded
// outline.
func (c *Compiler) extractEntry(m Manuscript) (Entry, error) {
	if len(m.HTML) == 0 {
		return Entry{}, fmt.Errorf("%w: empty document", ErrParseDocument)
	}
	doc, err := ParseManuscript(bytes.NewReader(m.HTML))
	if err != nil {
		return Entry{}, err
	}
	sections, err := ExtractOutline(doc)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Target:   m.Target,
		Title:    m.Title,
		Sections: FilterSections(sections, c.cfg.sectionDepth),
	}, nil
}

// autoManifest builds the reading order with the generated toc record
// first.
func (c *Compiler) autoManifest(entries []Entry, tocName string) *Manifest {
	links := make([]PublicationLink, 0, len(entries)+1)
	links = append(links, PublicationLink{
		Rel:  RelContents,
		Name: tocName,
		Type: TypeLinkedResource,
		URL:  relativeURL(c.cfg.manifestPath, c.cfg.tocPath),
	})
	for _, e := range entries {
		links = append(links, c.entryLink(e))
	}
	m := NewManifest(c.cfg.pubTitle, links)
	m.DatePublished = c.cfg.pubDate
	return m
}

// manualManifest builds the reading order with the user-authored toc
// marked in place at position idx.
func (c *Compiler) manualManifest(entries []Entry, idx int) *Manifest {
	links := make([]PublicationLink, 0, len(entries))
	for i, e := range entries {
		link := c.entryLink(e)
		if i == idx {
			link.Rel = RelContents
			if c.cfg.tocTitle != "" {
				link.Name = c.cfg.tocTitle
			}
		}
		links = append(links, link)
	}
	m := NewManifest(c.cfg.pubTitle, links)
	m.DatePublished = c.cfg.pubDate
	return m
}

func (c *Compiler) entryLink(e Entry) PublicationLink {
	return PublicationLink{
		Name: e.Title,
		Type: TypeLinkedResource,
		URL:  relativeURL(c.cfg.manifestPath, e.Target),
	}
}

// validateManuscripts checks the whole input set before any extraction.
func validateManuscripts(manuscripts []Manuscript) error {
	if len(manuscripts) == 0 {
		return ErrNoManuscripts
	}
	seen := make(map[string]struct{}, len(manuscripts))
	for _, m := range manuscripts {
		if err := m.Validate(); err != nil {
			return err
		}
		if _, dup := seen[m.Target]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateTarget, m.Target)
		}
		seen[m.Target] = struct{}{}
	}
	return nil
}

// hasTarget and indexOfTarget compare cleaned paths so that unnormalized
// spellings of the same output path still match target.
func hasTarget(manuscripts []Manuscript, target string) bool {
	for _, m := range manuscripts {
		if path.Clean(m.Target) == target {
			return true
		}
	}
	return false
}

func indexOfTarget(entries []Entry, target string) int {
	for i, e := range entries {
		if path.Clean(e.Target) == target {
			return i
		}
	}
	return -1
}

// writeFileAt writes data at rel under dir, creating parent directories.
func writeFileAt(dir, rel string, data []byte) error {
	full := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), dirPermissions); err != nil {
		return err
	}
	return os.WriteFile(full, data, filePermissions) // #nosec G306 -- published documents are world-readable
}
