// Package markdown implements the Markdown-to-HTML conversion stage.
//
// This package handles preprocessing, HTML conversion, and sectioning:
//   - Markdown preprocessing (line normalization, highlight syntax)
//   - Markdown to HTML conversion via Goldmark
//   - Wrapping heading runs in <section> elements
//
// Outline extraction and publication assembly are handled by the root
// webpub package. Sectioning matters because webpub derives document
// structure from element containment, not heading ranks: a flat
// Goldmark fragment would produce a flat outline.
package markdown
