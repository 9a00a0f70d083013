package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	webpub "github.com/alnah/go-webpub"
	"github.com/alnah/go-webpub/internal/assets"
	"github.com/alnah/go-webpub/internal/config"
	"github.com/alnah/go-webpub/internal/dateutil"
)

// testEnv returns an Environment with buffered output and a silent logger.
func testEnv() (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Now:    time.Now,
		Stdout: &stdout,
		Stderr: &stderr,
		Logger: newLogger(io.Discard, log.FatalLevel),
		Assets: assets.NewEmbeddedLoader(),
	}
	return env, &stdout, &stderr
}

// buildFlagsFor parses flag arguments, failing the test on error.
func buildFlagsFor(t *testing.T, args ...string) *buildFlags {
	t.Helper()

	flags, _, err := parseBuildFlags(args)
	if err != nil {
		t.Fatalf("parseBuildFlags(%v): %v", args, err)
	}
	return flags
}

// writeSource creates a markdown file under dir.
func writeSource(t *testing.T, dir, rel, content string) string {
	t.Helper()

	full := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return full
}

// manifestDoc mirrors the published manifest for assertions.
type manifestDoc struct {
	Name          string `json:"name"`
	DatePublished string `json:"datePublished"`
	ReadingOrder  []struct {
		Rel  string `json:"rel"`
		Name string `json:"name"`
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"readingOrder"`
}

func readManifest(t *testing.T, path string) manifestDoc {
	t.Helper()

	data, err := os.ReadFile(path) // #nosec G304 -- test output path
	if err != nil {
		t.Fatalf("reading manifest: %v", err)
	}
	var m manifestDoc
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshaling manifest: %v", err)
	}
	return m
}

func TestTargetFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		relPath string
		want    string
	}{
		{"ch1.md", "ch1.html"},
		{"ch2.markdown", "ch2.html"},
		{"docs/guide.md", "docs/guide.html"},
		{"a/b/c.md", "a/b/c.html"},
	}

	for _, tt := range tests {
		if got := targetFor(tt.relPath); got != tt.want {
			t.Errorf("targetFor(%q) = %q, want %q", tt.relPath, got, tt.want)
		}
	}
}

func TestValidateWorkers(t *testing.T) {
	t.Parallel()

	if err := validateWorkers(0); err != nil {
		t.Errorf("validateWorkers(0) = %v, want nil", err)
	}
	if err := validateWorkers(8); err != nil {
		t.Errorf("validateWorkers(8) = %v, want nil", err)
	}
	if err := validateWorkers(-1); !errors.Is(err, ErrInvalidWorkerCount) {
		t.Errorf("validateWorkers(-1) = %v, want ErrInvalidWorkerCount", err)
	}
}

func TestResolveWorkers(t *testing.T) {
	t.Parallel()

	if got := resolveWorkers(3); got != 3 {
		t.Errorf("resolveWorkers(3) = %d, want 3", got)
	}
	if got := resolveWorkers(0); got < 1 {
		t.Errorf("resolveWorkers(0) = %d, want >= 1", got)
	}
}

func TestResolveSources(t *testing.T) {
	t.Parallel()

	t.Run("args take precedence over config", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		file := writeSource(t, dir, "doc.md", "# Doc")

		cfg := &config.Config{Entries: []config.EntryConfig{{Path: "other.md"}}}
		got, err := resolveSources([]string{file}, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].InputPath != file {
			t.Errorf("resolveSources() = %+v", got)
		}
	})

	t.Run("config entries when no args", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{Entries: []config.EntryConfig{
			{Path: "intro.md", Title: "Intro", Target: "start.html"},
			{Path: "ch1.md"},
		}}
		got, err := resolveSources(nil, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("got %d sources, want 2", len(got))
		}
		if got[0].Target != "start.html" || got[0].Title != "Intro" {
			t.Errorf("explicit entry = %+v", got[0])
		}
		if got[1].Target != "ch1.html" {
			t.Errorf("derived target = %q, want ch1.html", got[1].Target)
		}
	})

	t.Run("default dir when no args or entries", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		writeSource(t, dir, "page.md", "# Page")

		cfg := &config.Config{Input: config.InputConfig{DefaultDir: dir}}
		got, err := resolveSources(nil, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].Target != "page.html" {
			t.Errorf("resolveSources() = %+v", got)
		}
	})

	t.Run("nothing configured", func(t *testing.T) {
		t.Parallel()

		_, err := resolveSources(nil, config.DefaultConfig())
		if !errors.Is(err, config.ErrNoEntries) {
			t.Errorf("error = %v, want ErrNoEntries", err)
		}
	})

	t.Run("entry with bad extension", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{Entries: []config.EntryConfig{{Path: "doc.txt"}}}
		_, err := resolveSources(nil, cfg)
		if !errors.Is(err, ErrInvalidExtension) {
			t.Errorf("error = %v, want ErrInvalidExtension", err)
		}
	})
}

func TestDiscoverSources(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	files := map[string]string{
		"doc1.md":             "# Doc 1",
		"doc2.markdown":       "# Doc 2",
		"subdir/doc3.md":      "# Doc 3",
		"subdir/deep/doc4.md": "# Doc 4",
		"ignored.txt":         "ignored",
		"subdir/ignored.html": "ignored",
	}
	for rel, content := range files {
		writeSource(t, tempDir, rel, content)
	}

	t.Run("single file", func(t *testing.T) {
		t.Parallel()

		input := filepath.Join(tempDir, "doc1.md")
		got, err := discoverSources([]string{input})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("got %d sources, want 1", len(got))
		}
		if got[0].Target != "doc1.html" {
			t.Errorf("Target = %q, want doc1.html", got[0].Target)
		}
	})

	t.Run("directory recursive", func(t *testing.T) {
		t.Parallel()

		got, err := discoverSources([]string{tempDir})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 4 {
			t.Errorf("got %d sources, want 4", len(got))
		}
	})

	t.Run("directory layout mirrored in targets", func(t *testing.T) {
		t.Parallel()

		got, err := discoverSources([]string{tempDir})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		targets := make(map[string]bool, len(got))
		for _, s := range got {
			targets[s.Target] = true
		}
		for _, want := range []string{"doc1.html", "doc2.html", "subdir/doc3.html", "subdir/deep/doc4.html"} {
			if !targets[want] {
				t.Errorf("missing target %q in %v", want, targets)
			}
		}
	})

	t.Run("invalid extension returns error", func(t *testing.T) {
		t.Parallel()

		_, err := discoverSources([]string{filepath.Join(tempDir, "ignored.txt")})
		if !errors.Is(err, ErrInvalidExtension) {
			t.Errorf("error = %v, want ErrInvalidExtension", err)
		}
	})

	t.Run("nonexistent path returns error", func(t *testing.T) {
		t.Parallel()

		_, err := discoverSources([]string{filepath.Join(tempDir, "missing")})
		if err == nil {
			t.Error("expected error for nonexistent path")
		}
	})
}

func TestResolveTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		src       SourceFile
		sectioned string
		want      string
	}{
		{
			name:      "config title wins",
			src:       SourceFile{InputPath: "ch1.md", Title: "Chapter One"},
			sectioned: "<section><h1>Ignored</h1></section>",
			want:      "Chapter One",
		},
		{
			name:      "first heading",
			src:       SourceFile{InputPath: "ch1.md"},
			sectioned: "<section><h1>From Heading</h1></section>",
			want:      "From Heading",
		},
		{
			name:      "filename fallback",
			src:       SourceFile{InputPath: "docs/chapter-one.md"},
			sectioned: "<p>No headings here.</p>",
			want:      "chapter-one",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := resolveTitle(tt.src, tt.sectioned); got != tt.want {
				t.Errorf("resolveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMergeFlags(t *testing.T) {
	t.Parallel()

	t.Run("CLI values override config", func(t *testing.T) {
		t.Parallel()

		cfg := &config.Config{Title: "Config Title"}
		cfg.Toc.Title = "Config Contents"
		flags := buildFlagsFor(t, "-t", "Flag Title", "--toc-title", "Flag Contents", "-o", "out")

		mergeFlags(flags, cfg)

		if cfg.Title != "Flag Title" {
			t.Errorf("Title = %q", cfg.Title)
		}
		if cfg.Toc.Title != "Flag Contents" {
			t.Errorf("Toc.Title = %q", cfg.Toc.Title)
		}
		if cfg.Output.Dir != "out" {
			t.Errorf("Output.Dir = %q", cfg.Output.Dir)
		}
	})

	t.Run("unset flags keep config values", func(t *testing.T) {
		t.Parallel()

		depth := 3
		cfg := &config.Config{Title: "Kept"}
		cfg.Toc.SectionDepth = &depth
		flags := buildFlagsFor(t)

		mergeFlags(flags, cfg)

		if cfg.Title != "Kept" {
			t.Errorf("Title = %q, want Kept", cfg.Title)
		}
		if cfg.Toc.SectionDepth == nil || *cfg.Toc.SectionDepth != 3 {
			t.Errorf("SectionDepth = %v, want 3", cfg.Toc.SectionDepth)
		}
	})

	t.Run("explicit zero depth overrides config", func(t *testing.T) {
		t.Parallel()

		depth := 3
		cfg := &config.Config{}
		cfg.Toc.SectionDepth = &depth
		flags := buildFlagsFor(t, "--section-depth", "0")

		mergeFlags(flags, cfg)

		if cfg.Toc.SectionDepth == nil || *cfg.Toc.SectionDepth != 0 {
			t.Errorf("SectionDepth = %v, want 0", cfg.Toc.SectionDepth)
		}
	})
}

func TestBuildPageFunc(t *testing.T) {
	t.Parallel()

	t.Run("renders title, style, and body", func(t *testing.T) {
		t.Parallel()

		render, err := buildPageFunc(config.DefaultConfig(), assets.NewEmbeddedLoader())
		if err != nil {
			t.Fatalf("buildPageFunc: %v", err)
		}

		page := render("A & B", "<section><h1>A</h1></section>")
		for _, want := range []string{
			"<title>A &amp; B</title>",
			"<style>",
			"<section><h1>A</h1></section>",
		} {
			if !strings.Contains(page, want) {
				t.Errorf("page missing %q:\n%s", want, page)
			}
		}
	})

	t.Run("missing style", func(t *testing.T) {
		t.Parallel()

		cfg := config.DefaultConfig()
		cfg.Style.Name = "no-such-style"
		_, err := buildPageFunc(cfg, assets.NewEmbeddedLoader())
		if !errors.Is(err, assets.ErrStyleNotFound) {
			t.Errorf("error = %v, want ErrStyleNotFound", err)
		}
	})
}

func TestRunBuild(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	writeSource(t, srcDir, "ch1.md", "# Chapter One\n\nIntro. See [chapter two](ch2.md#more).\n\n## First Steps\n\nText.\n")
	writeSource(t, srcDir, "ch2.md", "# Chapter Two\n\nMore text.\n")

	outDir := filepath.Join(t.TempDir(), "public")
	env, _, _ := testEnv()
	flags := buildFlagsFor(t, "-o", outDir, "-t", "My Publication")

	if err := runBuild(context.Background(), []string{srcDir}, flags, env); err != nil {
		t.Fatalf("runBuild: %v", err)
	}

	page, err := os.ReadFile(filepath.Join(outDir, "ch1.html"))
	if err != nil {
		t.Fatalf("reading page: %v", err)
	}
	for _, want := range []string{
		"<title>Chapter One</title>",
		`<section><h1 id="chapter-one">`,
		`<section><h2 id="first-steps">`,
		`href="ch2.html#more"`,
	} {
		if !strings.Contains(string(page), want) {
			t.Errorf("ch1.html missing %q", want)
		}
	}

	toc, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		t.Fatalf("reading contents page: %v", err)
	}
	for _, want := range []string{
		`<nav role="doc-toc">`,
		`<a href="ch1.html">Chapter One</a>`,
		`<a href="ch1.html#first-steps">First Steps</a>`,
		`<a href="ch2.html">Chapter Two</a>`,
	} {
		if !strings.Contains(string(toc), want) {
			t.Errorf("index.html missing %q:\n%s", want, toc)
		}
	}

	m := readManifest(t, filepath.Join(outDir, "publication.json"))
	if m.Name != "My Publication" {
		t.Errorf("manifest name = %q", m.Name)
	}
	if len(m.ReadingOrder) != 3 {
		t.Fatalf("reading order has %d records, want 3", len(m.ReadingOrder))
	}
	if m.ReadingOrder[0].Rel != "contents" || m.ReadingOrder[0].URL != "index.html" {
		t.Errorf("toc record = %+v", m.ReadingOrder[0])
	}
	if m.ReadingOrder[1].Name != "Chapter One" || m.ReadingOrder[1].URL != "ch1.html" {
		t.Errorf("first entry record = %+v", m.ReadingOrder[1])
	}
}

func TestRunBuildLogsContentsRecord(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	writeSource(t, srcDir, "ch1.md", "# Chapter One\n")

	outDir := filepath.Join(t.TempDir(), "public")
	env, _, _ := testEnv()
	var logBuf bytes.Buffer
	env.Logger = newLogger(&logBuf, log.DebugLevel)
	flags := buildFlagsFor(t, "-o", outDir, "--toc-title", "Contents")

	if err := runBuild(context.Background(), []string{srcDir}, flags, env); err != nil {
		t.Fatalf("runBuild: %v", err)
	}

	if got := logBuf.String(); !strings.Contains(got, "Reading order starts at index.html (Contents)") {
		t.Errorf("log output = %q, want the contents record reported", got)
	}
}

func TestRunBuildConflictWritesNothing(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	writeSource(t, srcDir, "index.md", "# Collides with the contents page\n")

	outDir := filepath.Join(t.TempDir(), "public")
	env, _, _ := testEnv()
	flags := buildFlagsFor(t, "-o", outDir)

	err := runBuild(context.Background(), []string{srcDir}, flags, env)
	if !errors.Is(err, webpub.ErrTocConflict) {
		t.Fatalf("error = %v, want ErrTocConflict", err)
	}

	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Errorf("output directory should not exist after a conflict, stat err = %v", err)
	}
}

func TestRunBuildManualToc(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	writeSource(t, srcDir, "ch1.md", "# Chapter One\n")
	writeSource(t, srcDir, "contents.md", "# My Own Contents\n")

	outDir := filepath.Join(t.TempDir(), "public")
	env, _, _ := testEnv()
	flags := buildFlagsFor(t, "-o", outDir, "--toc-document", "contents.html")

	if err := runBuild(context.Background(), []string{srcDir}, flags, env); err != nil {
		t.Fatalf("runBuild: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "index.html")); !os.IsNotExist(err) {
		t.Error("manual mode should not generate index.html")
	}
	if _, err := os.Stat(filepath.Join(outDir, "contents.html")); err != nil {
		t.Errorf("contents page missing: %v", err)
	}

	m := readManifest(t, filepath.Join(outDir, "publication.json"))
	if len(m.ReadingOrder) != 2 {
		t.Fatalf("reading order has %d records, want 2", len(m.ReadingOrder))
	}
	found := false
	for _, r := range m.ReadingOrder {
		if r.URL == "contents.html" {
			found = true
			if r.Rel != "contents" {
				t.Errorf("contents record rel = %q", r.Rel)
			}
		} else if r.Rel != "" {
			t.Errorf("record %q should have no rel, got %q", r.URL, r.Rel)
		}
	}
	if !found {
		t.Error("no record for contents.html in reading order")
	}
}

func TestRunBuildContinueOnError(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	good := writeSource(t, srcDir, "good.md", "# Good\n")
	missing := filepath.Join(srcDir, "missing.md")

	cfgPath := writeSource(t, t.TempDir(), "webpub.yaml", strings.Join([]string{
		"title: Resilient",
		"continueOnError: true",
		"entries:",
		"  - path: " + good,
		"  - path: " + missing,
	}, "\n"))

	outDir := filepath.Join(t.TempDir(), "public")
	env, _, _ := testEnv()
	flags := buildFlagsFor(t, "-c", cfgPath, "-o", outDir)

	if err := runBuild(context.Background(), nil, flags, env); err != nil {
		t.Fatalf("runBuild: %v", err)
	}

	if _, err := os.Stat(filepath.Join(outDir, "good.html")); err != nil {
		t.Errorf("good page missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "missing.html")); !os.IsNotExist(err) {
		t.Error("missing source should not produce a page")
	}

	m := readManifest(t, filepath.Join(outDir, "publication.json"))
	if len(m.ReadingOrder) != 2 { // toc + good.html
		t.Errorf("reading order has %d records, want 2", len(m.ReadingOrder))
	}
}

func TestRunBuildAbortsOnError(t *testing.T) {
	t.Parallel()

	srcDir := t.TempDir()
	good := writeSource(t, srcDir, "good.md", "# Good\n")
	missing := filepath.Join(srcDir, "missing.md")

	cfgPath := writeSource(t, t.TempDir(), "webpub.yaml", strings.Join([]string{
		"entries:",
		"  - path: " + good,
		"  - path: " + missing,
	}, "\n"))

	outDir := filepath.Join(t.TempDir(), "public")
	env, _, _ := testEnv()
	flags := buildFlagsFor(t, "-c", cfgPath, "-o", outDir)

	err := runBuild(context.Background(), nil, flags, env)
	if !errors.Is(err, ErrReadMarkdown) {
		t.Fatalf("error = %v, want ErrReadMarkdown", err)
	}
	if _, err := os.Stat(outDir); !os.IsNotExist(err) {
		t.Error("output directory should not exist after an aborted build")
	}
}

func TestRunBuildCustomAssets(t *testing.T) {
	t.Parallel()

	assetDir := t.TempDir()
	writeSource(t, assetDir, filepath.Join("styles", "plain.css"), "body{margin:0}")

	srcDir := t.TempDir()
	writeSource(t, srcDir, "ch1.md", "# Chapter\n")

	outDir := filepath.Join(t.TempDir(), "public")
	env, _, _ := testEnv()
	flags := buildFlagsFor(t, "-o", outDir, "--asset-path", assetDir, "--style", "plain")

	if err := runBuild(context.Background(), []string{srcDir}, flags, env); err != nil {
		t.Fatalf("runBuild: %v", err)
	}

	page, err := os.ReadFile(filepath.Join(outDir, "ch1.html"))
	if err != nil {
		t.Fatalf("reading page: %v", err)
	}
	if !strings.Contains(string(page), "body{margin:0}") {
		t.Error("page should embed the custom stylesheet")
	}
}

func TestRunBuildPublicationDate(t *testing.T) {
	t.Parallel()

	t.Run("literal date passes through", func(t *testing.T) {
		t.Parallel()

		srcDir := t.TempDir()
		writeSource(t, srcDir, "ch1.md", "# Chapter\n")
		outDir := filepath.Join(t.TempDir(), "public")

		env, _, _ := testEnv()
		flags := buildFlagsFor(t, "-o", outDir, "--date", "2024-01-15")

		if err := runBuild(context.Background(), []string{srcDir}, flags, env); err != nil {
			t.Fatalf("runBuild: %v", err)
		}

		m := readManifest(t, filepath.Join(outDir, "publication.json"))
		if m.DatePublished != "2024-01-15" {
			t.Errorf("datePublished = %q, want 2024-01-15", m.DatePublished)
		}
	})

	t.Run("auto resolves against build time", func(t *testing.T) {
		t.Parallel()

		srcDir := t.TempDir()
		writeSource(t, srcDir, "ch1.md", "# Chapter\n")
		outDir := filepath.Join(t.TempDir(), "public")

		env, _, _ := testEnv()
		env.Now = func() time.Time {
			return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
		}
		flags := buildFlagsFor(t, "-o", outDir, "--date", "auto")

		if err := runBuild(context.Background(), []string{srcDir}, flags, env); err != nil {
			t.Fatalf("runBuild: %v", err)
		}

		m := readManifest(t, filepath.Join(outDir, "publication.json"))
		if m.DatePublished != "2024-03-15" {
			t.Errorf("datePublished = %q, want 2024-03-15", m.DatePublished)
		}
	})

	t.Run("invalid auto format fails", func(t *testing.T) {
		t.Parallel()

		srcDir := t.TempDir()
		writeSource(t, srcDir, "ch1.md", "# Chapter\n")
		outDir := filepath.Join(t.TempDir(), "public")

		env, _, _ := testEnv()
		flags := buildFlagsFor(t, "-o", outDir, "--date", "auto:")

		err := runBuild(context.Background(), []string{srcDir}, flags, env)
		if !errors.Is(err, dateutil.ErrInvalidDateFormat) {
			t.Fatalf("error = %v, want ErrInvalidDateFormat", err)
		}
		if _, statErr := os.Stat(outDir); !os.IsNotExist(statErr) {
			t.Error("output directory should not exist after a failed build")
		}
	})

	t.Run("no date leaves manifest without one", func(t *testing.T) {
		t.Parallel()

		srcDir := t.TempDir()
		writeSource(t, srcDir, "ch1.md", "# Chapter\n")
		outDir := filepath.Join(t.TempDir(), "public")

		env, _, _ := testEnv()
		flags := buildFlagsFor(t, "-o", outDir)

		if err := runBuild(context.Background(), []string{srcDir}, flags, env); err != nil {
			t.Fatalf("runBuild: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(outDir, "publication.json"))
		if err != nil {
			t.Fatalf("reading manifest: %v", err)
		}
		if strings.Contains(string(data), "datePublished") {
			t.Error("manifest should omit datePublished when no date is configured")
		}
	})
}
