package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	webpub "github.com/alnah/go-webpub"
	"github.com/alnah/go-webpub/internal/assets"
	"github.com/alnah/go-webpub/internal/config"
	"github.com/alnah/go-webpub/internal/dateutil"
	"github.com/alnah/go-webpub/internal/hints"
	"github.com/alnah/go-webpub/internal/markdown"
)

// Sentinel errors for CLI operations.
var (
	ErrReadMarkdown       = errors.New("failed to read markdown file")
	ErrWritePage          = errors.New("failed to write page")
	ErrInvalidExtension   = errors.New("file must have .md or .markdown extension")
	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrBadTemplate        = errors.New("invalid page template")
)

// File permission constants.
const (
	dirPermissions  = 0o755 // rwxr-xr-x: published trees are world-readable
	filePermissions = 0o644 // rw-r--r--: owner read+write, others read
)

// defaultOutputDir is where built publications land when not configured.
const defaultOutputDir = "public"

// SourceFile represents a single markdown source to convert.
type SourceFile struct {
	InputPath string // filesystem path of the markdown source
	Target    string // slash-separated path of the page inside the publication
	Title     string // optional title from config; "" = derive from content
}

// ConversionResult holds the outcome of a single conversion.
type ConversionResult struct {
	Source     SourceFile
	Manuscript webpub.Manuscript
	Err        error
	Duration   time.Duration
}

// pageData feeds the page template.
type pageData struct {
	Title string
	Style template.CSS
	Body  template.HTML
}

// runBuild orchestrates the build: discover sources, convert them in
// parallel, and hand the rendered manuscripts to the publication compiler.
// Nothing is written until the whole compilation has succeeded.
func runBuild(ctx context.Context, positionalArgs []string, flags *buildFlags, env *Environment) error {
	// Validate worker count early
	if err := validateWorkers(flags.workers); err != nil {
		return err
	}

	// Load configuration
	cfg := config.DefaultConfig()
	var err error
	if flags.common.config != "" {
		cfg, err = config.LoadConfig(flags.common.config)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	// Merge CLI flags into config (CLI wins)
	mergeFlags(flags, cfg)

	// Resolve "auto" date values against the build time
	if cfg.Date != "" {
		resolved, err := dateutil.ResolveDate(cfg.Date, env.Now())
		if err != nil {
			return fmt.Errorf("resolving date: %w", err)
		}
		cfg.Date = resolved
	}

	// Discover sources: positional args > config entries > config default dir
	sources, err := resolveSources(positionalArgs, cfg)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("%w: no markdown files found%s", config.ErrNoEntries, hints.ForNoSources())
	}

	outputDir := resolveOutputDir(cfg)

	// Resolve assets: custom directory first, embedded fallback
	loader := env.Assets
	if cfg.Assets.BasePath != "" {
		resolver, err := assets.NewAssetResolver(cfg.Assets.BasePath)
		if err != nil {
			return err
		}
		loader = resolver
	}
	render, err := buildPageFunc(cfg, loader)
	if err != nil {
		return err
	}

	track := newProgress(env.Logger)
	env.Logger.Debugf("Converting %d sources with %d workers", len(sources), resolveWorkers(flags.workers))

	// Convert sources to manuscripts
	results := convertBatch(ctx, sources, resolveWorkers(flags.workers), render)

	manuscripts := make([]webpub.Manuscript, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			if !cfg.ContinueOnError {
				return fmt.Errorf("converting %s: %w", r.Source.InputPath, r.Err)
			}
			env.Logger.Warnf("Skipped %s: %v", r.Source.InputPath, r.Err)
			continue
		}
		env.Logger.Debugf("%s -> %s (%s)", r.Source.InputPath, r.Source.Target, r.Duration.Round(time.Millisecond))
		manuscripts = append(manuscripts, r.Manuscript)
	}

	// Compile before any write: a conflict or extraction failure must
	// leave the output directory untouched.
	compiler, err := newCompiler(cfg, render)
	if err != nil {
		return err
	}
	result, err := compiler.Compile(ctx, manuscripts)
	if err != nil {
		if errors.Is(err, webpub.ErrTocConflict) {
			return fmt.Errorf("%w%s", err, hints.ForTocConflict(resolveTocPath(cfg)))
		}
		return err
	}
	for _, f := range result.Failed {
		env.Logger.Warnf("Excluded %s from the publication: %v", f.Target, f.Err)
	}

	// Write pages, then the contents page, then the manifest last.
	skipped := make(map[string]bool, len(result.Failed))
	for _, f := range result.Failed {
		skipped[f.Target] = true
	}
	written := 0
	for _, m := range manuscripts {
		if skipped[m.Target] {
			continue
		}
		if err := writePage(outputDir, m); err != nil {
			return err
		}
		written++
	}
	if result.Toc != nil {
		if err := writeFile(outputDir, result.Toc.Path, []byte(result.Toc.HTML)); err != nil {
			return fmt.Errorf("%w: %v", webpub.ErrTocWrite, err)
		}
		env.Logger.Debugf("Wrote contents page %s", result.Toc.Path)
	}
	manifestPath := cfg.Manifest.Path
	if manifestPath == "" {
		manifestPath = webpub.DefaultManifestPath
	}
	data, err := result.Manifest.JSON()
	if err != nil {
		return err
	}
	if err := writeFile(outputDir, manifestPath, data); err != nil {
		return fmt.Errorf("%w: %v", webpub.ErrManifestWrite, err)
	}
	env.Logger.Debugf("Wrote manifest %s", manifestPath)
	if rec := result.Manifest.TocRecord(); rec != nil {
		env.Logger.Debugf("Reading order starts at %s (%s)", rec.URL, rec.Name)
	}

	track.done(fmt.Sprintf("Published %d pages to %s", written, outputDir))
	return nil
}

// mergeFlags merges CLI flags into config. CLI values override config values.
func mergeFlags(flags *buildFlags, cfg *config.Config) {
	if flags.title != "" {
		cfg.Title = flags.title
	}
	if flags.date != "" {
		cfg.Date = flags.date
	}
	if flags.output != "" {
		cfg.Output.Dir = flags.output
	}
	if flags.continueOnError {
		cfg.ContinueOnError = true
	}
	if flags.manifest != "" {
		cfg.Manifest.Path = flags.manifest
	}

	// Table of contents flags
	if flags.toc.title != "" {
		cfg.Toc.Title = flags.toc.title
	}
	if flags.toc.path != "" {
		cfg.Toc.Path = flags.toc.path
	}
	if flags.toc.document != "" {
		cfg.Toc.Document = flags.toc.document
	}
	if flags.toc.depth != sectionDepthSentinel {
		depth := flags.toc.depth
		cfg.Toc.SectionDepth = &depth
	}

	// Asset flags
	if flags.assets.style != "" {
		cfg.Style.Name = flags.assets.style
	}
	if flags.assets.assetPath != "" {
		cfg.Assets.BasePath = flags.assets.assetPath
	}
}

// newCompiler translates config into publication compiler options.
func newCompiler(cfg *config.Config, render webpub.PageFunc) (*webpub.Compiler, error) {
	opts := []webpub.Option{webpub.WithPageTemplate(render)}
	if cfg.Title != "" {
		opts = append(opts, webpub.WithPublicationTitle(cfg.Title))
	}
	if cfg.Date != "" {
		opts = append(opts, webpub.WithPublicationDate(cfg.Date))
	}
	if cfg.Toc.Title != "" {
		opts = append(opts, webpub.WithTocTitle(cfg.Toc.Title))
	}
	if cfg.Toc.Path != "" {
		opts = append(opts, webpub.WithTocPath(cfg.Toc.Path))
	}
	if cfg.Toc.Document != "" {
		opts = append(opts, webpub.WithManualToc(cfg.Toc.Document))
	}
	if cfg.Toc.SectionDepth != nil {
		opts = append(opts, webpub.WithSectionDepth(*cfg.Toc.SectionDepth))
	}
	if cfg.Manifest.Path != "" {
		opts = append(opts, webpub.WithManifestPath(cfg.Manifest.Path))
	}
	if cfg.ContinueOnError {
		opts = append(opts, webpub.WithEntryErrorPolicy(webpub.SkipFailedEntries))
	}
	return webpub.NewCompiler(opts...)
}

// resolveSources determines the markdown sources to build.
// Priority: positional args > config entries > config input.defaultDir.
func resolveSources(args []string, cfg *config.Config) ([]SourceFile, error) {
	if len(args) > 0 {
		return discoverSources(args)
	}
	if len(cfg.Entries) > 0 {
		return sourcesFromEntries(cfg.Entries)
	}
	if cfg.Input.DefaultDir != "" {
		return discoverSources([]string{cfg.Input.DefaultDir})
	}
	return nil, fmt.Errorf("%w%s", config.ErrNoEntries, hints.ForNoSources())
}

// discoverSources expands files and directories into sources. Directories
// are walked recursively and keep their relative layout in the publication.
func discoverSources(paths []string) ([]SourceFile, error) {
	var sources []SourceFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if err := validateMarkdownExtension(p); err != nil {
				return nil, err
			}
			sources = append(sources, SourceFile{
				InputPath: p,
				Target:    targetFor(filepath.Base(p)),
			})
			continue
		}

		root := p
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := filepath.Ext(path)
			if ext != ".md" && ext != ".markdown" {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			sources = append(sources, SourceFile{
				InputPath: path,
				Target:    targetFor(filepath.ToSlash(rel)),
			})
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return sources, nil
}

// sourcesFromEntries maps config entries to sources, honoring explicit
// targets and titles.
func sourcesFromEntries(entries []config.EntryConfig) ([]SourceFile, error) {
	sources := make([]SourceFile, 0, len(entries))
	for _, e := range entries {
		if err := validateMarkdownExtension(e.Path); err != nil {
			return nil, err
		}
		target := e.Target
		if target == "" {
			target = targetFor(filepath.ToSlash(filepath.Base(e.Path)))
		}
		sources = append(sources, SourceFile{InputPath: e.Path, Target: target, Title: e.Title})
	}
	return sources, nil
}

// targetFor maps a markdown source path to its published page path.
func targetFor(relPath string) string {
	return strings.TrimSuffix(relPath, path.Ext(relPath)) + ".html"
}

// validateMarkdownExtension checks that the file has a .md or .markdown extension.
func validateMarkdownExtension(p string) error {
	ext := filepath.Ext(p)
	if ext != ".md" && ext != ".markdown" {
		return fmt.Errorf("%w: got %q", ErrInvalidExtension, ext)
	}
	return nil
}

// validateWorkers checks that the worker count is within valid bounds.
func validateWorkers(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d (must be >= 0, 0 means auto)", ErrInvalidWorkerCount, n)
	}
	return nil
}

// resolveWorkers determines the number of conversion workers.
// Priority: explicit flag > GOMAXPROCS (adjusted by automaxprocs for containers).
func resolveWorkers(flagWorkers int) int {
	if flagWorkers > 0 {
		return flagWorkers
	}
	if n := runtime.GOMAXPROCS(0); n > 1 {
		return n
	}
	return 1
}

// resolveOutputDir determines the output directory from config.
func resolveOutputDir(cfg *config.Config) string {
	if cfg.Output.Dir != "" {
		return cfg.Output.Dir
	}
	return defaultOutputDir
}

// resolveTocPath determines where the generated contents page lands.
func resolveTocPath(cfg *config.Config) string {
	if cfg.Toc.Path != "" {
		return cfg.Toc.Path
	}
	return webpub.DefaultTocPath
}

// buildPageFunc loads the stylesheet and page template and returns the
// function that wraps a body fragment into a full page. The template is
// validated once up front so later renders cannot fail.
func buildPageFunc(cfg *config.Config, loader assets.AssetLoader) (webpub.PageFunc, error) {
	styleName := cfg.Style.Name
	if styleName == "" {
		styleName = assets.DefaultStyleName
	}
	style, err := loader.LoadStyle(styleName)
	if err != nil {
		if errors.Is(err, assets.ErrStyleNotFound) {
			return nil, fmt.Errorf("%w%s", err, hints.ForStyleNotFound(assets.AvailableStyles()))
		}
		return nil, err
	}

	text, err := loader.LoadTemplate(assets.DefaultTemplateName)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New("page").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTemplate, err)
	}
	probe := pageData{Title: "probe", Style: template.CSS(style), Body: template.HTML("<p></p>")}
	if err := tmpl.Execute(io.Discard, probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTemplate, err)
	}

	return func(title, body string) string {
		var buf bytes.Buffer
		// Error ignored: the template was validated against pageData above.
		_ = tmpl.Execute(&buf, pageData{
			Title: title,
			Style: template.CSS(style),
			Body:  template.HTML(body),
		})
		return buf.String()
	}, nil
}

// convertBatch processes sources concurrently with a bounded worker pool.
// A single Converter is shared: goldmark instances are safe for concurrent use.
func convertBatch(ctx context.Context, sources []SourceFile, workers int, render webpub.PageFunc) []ConversionResult {
	if len(sources) == 0 {
		return nil
	}

	if workers > len(sources) {
		workers = len(sources)
	}

	converter := markdown.NewConverter()
	results := make([]ConversionResult, len(sources))
	var wg sync.WaitGroup
	jobs := make(chan int, len(sources))

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for idx := range jobs {
				if ctx.Err() != nil {
					results[idx] = ConversionResult{Source: sources[idx], Err: ctx.Err()}
					continue
				}
				results[idx] = convertSource(ctx, converter, sources[idx], render)
			}
		}()
	}

	for i := range sources {
		jobs <- i
	}
	close(jobs)

	wg.Wait()
	return results
}

// convertSource converts a single markdown source into a manuscript.
func convertSource(ctx context.Context, converter *markdown.Converter, src SourceFile, render webpub.PageFunc) ConversionResult {
	start := time.Now()
	result := ConversionResult{Source: src}

	content, err := os.ReadFile(src.InputPath) // #nosec G304 -- discovered path
	if err != nil {
		result.Err = fmt.Errorf("%w: %v", ErrReadMarkdown, err)
		result.Duration = time.Since(start)
		return result
	}

	fragment, err := converter.Convert(ctx, string(content))
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	linked, err := markdown.RewriteLinks(fragment)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	sectioned, err := markdown.Sectionize(linked)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)
		return result
	}

	title := resolveTitle(src, sectioned)
	result.Manuscript = webpub.Manuscript{
		Target: src.Target,
		Title:  title,
		HTML:   []byte(render(title, sectioned)),
	}
	result.Duration = time.Since(start)
	return result
}

// resolveTitle determines the page title: config entry > first heading > filename.
func resolveTitle(src SourceFile, sectioned string) string {
	if src.Title != "" {
		return src.Title
	}
	if h := firstHeadingText(sectioned); h != "" {
		return h
	}
	base := filepath.Base(src.InputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// firstHeadingText extracts the text of the first outline heading in the
// fragment, or "" when the fragment has no headings.
func firstHeadingText(fragment string) string {
	doc, err := webpub.ParseManuscript(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	roots, err := webpub.ExtractOutline(doc)
	if err != nil || len(roots) == 0 {
		return ""
	}
	return roots[0].HeadingText
}

// writePage writes a converted page under dir at its target path.
func writePage(dir string, m webpub.Manuscript) error {
	if err := writeFile(dir, m.Target, m.HTML); err != nil {
		return fmt.Errorf("%w: %v", ErrWritePage, err)
	}
	return nil
}

// writeFile writes data at the slash-separated rel path under dir.
func writeFile(dir, rel string, data []byte) error {
	dest := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dest), dirPermissions); err != nil {
		return fmt.Errorf("%w%s", err, hints.ForOutputDirectory())
	}
	// #nosec G306 -- published pages are world-readable
	return os.WriteFile(dest, data, filePermissions)
}
