package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-webpub/internal/fileutil"
	"github.com/alnah/go-webpub/internal/hints"
	"github.com/alnah/go-webpub/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrNoEntries       = errors.New("config has no entries")
)

// Field length limits for multi-tenant safety.
const (
	MaxTitleLength = 200  // Publication or entry title
	MaxPathLength  = 512  // File and target paths
	MaxStyleLength = 100  // Style name
	MaxDateLength  = 100  // Publication date value
	MaxEntryCount  = 5000 // Documents per publication
)

// Config holds all configuration for building a publication.
type Config struct {
	Title           string         `yaml:"title"`           // Publication title (empty = derived from first entry)
	Date            string         `yaml:"date"`            // Publication date: literal, "auto", or "auto:FORMAT"
	ContinueOnError bool           `yaml:"continueOnError"` // Skip failing documents instead of aborting
	Input           InputConfig    `yaml:"input"`
	Output          OutputConfig   `yaml:"output"`
	Entries         []EntryConfig  `yaml:"entries"`
	Toc             TocConfig      `yaml:"toc"`
	Manifest        ManifestConfig `yaml:"manifest"`
	Style           StyleConfig    `yaml:"style"`
	Assets          AssetsConfig   `yaml:"assets"`
}

// InputConfig defines source document options.
type InputConfig struct {
	DefaultDir string `yaml:"defaultDir"` // Directory scanned for sources when no entries are given
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	Dir string `yaml:"dir"` // Publication root directory (empty = ./public)
}

// EntryConfig is one document of the publication, in reading order.
type EntryConfig struct {
	Path   string `yaml:"path"`   // Markdown source file (required)
	Title  string `yaml:"title"`  // Optional - auto: first heading → filename
	Target string `yaml:"target"` // Optional output-relative path (default derived from Path)
}

// TocConfig defines table of contents options.
type TocConfig struct {
	Title        string `yaml:"title"`        // Empty = default title
	Path         string `yaml:"path"`         // Output path of the generated toc (default index.html)
	SectionDepth *int   `yaml:"sectionDepth"` // Structural nesting bound (nil = compiler default)
	Document     string `yaml:"document"`     // Manuscript target serving as the contents page; empty = generate
}

// ManifestConfig defines publication manifest options.
type ManifestConfig struct {
	Path string `yaml:"path"` // Output path of the manifest (default publication.json)
}

// StyleConfig defines stylesheet options.
type StyleConfig struct {
	Name string `yaml:"name"` // Name of style in internal/assets/styles/ (empty = default)
}

// AssetsConfig defines asset loading options.
type AssetsConfig struct {
	BasePath string `yaml:"basePath"` // Empty = use embedded assets
}

// Validate checks field lengths and entry sanity. Called automatically by
// LoadConfig, but available for consumers who construct Config manually.
func (c *Config) Validate() error {
	if err := validateFieldLength("title", c.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := validateFieldLength("date", c.Date, MaxDateLength); err != nil {
		return err
	}
	if err := validateFieldLength("input.defaultDir", c.Input.DefaultDir, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}

	if len(c.Entries) > MaxEntryCount {
		return fmt.Errorf("entries: %d documents (max %d)", len(c.Entries), MaxEntryCount)
	}
	for i, e := range c.Entries {
		if strings.TrimSpace(e.Path) == "" {
			return fmt.Errorf("entries[%d].path: required", i)
		}
		if err := validateFieldLength(fmt.Sprintf("entries[%d].path", i), e.Path, MaxPathLength); err != nil {
			return err
		}
		if err := validateFieldLength(fmt.Sprintf("entries[%d].title", i), e.Title, MaxTitleLength); err != nil {
			return err
		}
		if err := validateFieldLength(fmt.Sprintf("entries[%d].target", i), e.Target, MaxPathLength); err != nil {
			return err
		}
	}

	if err := validateFieldLength("toc.title", c.Toc.Title, MaxTitleLength); err != nil {
		return err
	}
	if err := validateFieldLength("toc.path", c.Toc.Path, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("toc.document", c.Toc.Document, MaxPathLength); err != nil {
		return err
	}
	if c.Toc.SectionDepth != nil && *c.Toc.SectionDepth < 0 {
		return fmt.Errorf("toc.sectionDepth: must be >= 0, got %d", *c.Toc.SectionDepth)
	}

	if err := validateFieldLength("manifest.path", c.Manifest.Path, MaxPathLength); err != nil {
		return err
	}
	if err := validateFieldLength("style.name", c.Style.Name, MaxStyleLength); err != nil {
		return err
	}
	if err := validateFieldLength("assets.basePath", c.Assets.BasePath, MaxPathLength); err != nil {
		return err
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// DefaultConfig returns a neutral configuration. Unset fields fall back to
// the CLI's defaults at merge time.
func DefaultConfig() *Config {
	return &Config{}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard
// locations. Returns an error if the file is not found (no silent
// fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolveConfigPath searches for a config file by name in standard
// locations. Tries extensions in order: .yaml, .yml. Tries locations in
// order: current directory, ~/.config/go-webpub/.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-webpub", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s%s",
		ErrConfigNotFound, strings.Join(triedPaths, ", "), hints.ForConfigNotFound(triedPaths))
}
