package webpub

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// manifestContext is the fixed @context of every emitted manifest.
var manifestContext = []string{
	"https://schema.org",
	"https://www.w3.org/ns/pub-context",
}

// PublicationLink is one resource record in the reading order. The toc
// record carries Rel "contents"; URLs are relative to the manifest's own
// location.
type PublicationLink struct {
	Rel  string `json:"rel,omitempty"`
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Manifest is the publication manifest: the ordered reading list wrapped
// in the publication-manifest envelope.
type Manifest struct {
	Context       []string          `json:"@context"`
	Type          string            `json:"type"`
	Name          string            `json:"name,omitempty"`
	DatePublished string            `json:"datePublished,omitempty"`
	ReadingOrder  []PublicationLink `json:"readingOrder"`
}

// NewManifest wraps links in the manifest envelope. name is the
// publication title and may be empty.
func NewManifest(name string, links []PublicationLink) *Manifest {
	return &Manifest{
		Context:      manifestContext,
		Type:         "Book",
		Name:         name,
		ReadingOrder: links,
	}
}

// JSON renders the manifest with stable field order, two-space indentation
// and a trailing newline. Identical manifests yield identical bytes.
func (m *Manifest) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// TocRecord returns the manifest record of the table of contents, or nil
// when the reading order has none.
func (m *Manifest) TocRecord() *PublicationLink {
	for i := range m.ReadingOrder {
		if m.ReadingOrder[i].Rel == RelContents {
			return &m.ReadingOrder[i]
		}
	}
	return nil
}

// relativeURL routes toFile relative to the directory holding fromFile.
// Both paths are slash-separated and relative to the publication root. A
// document nested under a subdirectory reaches siblings of its parent
// with "../" ascents.
func relativeURL(fromFile, toFile string) string {
	fromDir := path.Dir(path.Clean(fromFile))
	to := path.Clean(toFile)
	if fromDir == "." {
		return to
	}
	fromParts := strings.Split(fromDir, "/")
	toParts := strings.Split(to, "/")
	common := 0
	// The last toPart is the file name and never matches a directory.
	for common < len(fromParts) && common < len(toParts)-1 && fromParts[common] == toParts[common] {
		common++
	}
	parts := make([]string, 0, len(fromParts)-common+len(toParts)-common)
	for i := common; i < len(fromParts); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, toParts[common:]...)
	return path.Join(parts...)
}
