package main

import (
	"errors"
	"os"

	webpub "github.com/alnah/go-webpub"
	"github.com/alnah/go-webpub/internal/assets"
	"github.com/alnah/go-webpub/internal/config"
	"github.com/alnah/go-webpub/internal/dateutil"
)

// Exit codes for webpub CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess  = 0 // Successful build
	ExitGeneral  = 1 // General/unexpected error
	ExitUsage    = 2 // Invalid flags, config, or validation
	ExitIO       = 3 // File not found, permission denied
	ExitConflict = 4 // Contents page collides with a manuscript
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Conflict errors (exit 4)
	if errors.Is(err, webpub.ErrTocConflict) {
		return ExitConflict
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadMarkdown) ||
		errors.Is(err, ErrWritePage) ||
		errors.Is(err, webpub.ErrTocWrite) ||
		errors.Is(err, webpub.ErrManifestWrite) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrNoEntries) ||
		errors.Is(err, webpub.ErrInvalidSectionDepth) ||
		errors.Is(err, webpub.ErrInvalidTocPath) ||
		errors.Is(err, webpub.ErrInvalidManifestPath) ||
		errors.Is(err, webpub.ErrMissingTocDocument) ||
		errors.Is(err, webpub.ErrNoManuscripts) ||
		errors.Is(err, webpub.ErrEmptyTarget) ||
		errors.Is(err, webpub.ErrAbsoluteTarget) ||
		errors.Is(err, webpub.ErrTraversalTarget) ||
		errors.Is(err, webpub.ErrDuplicateTarget) ||
		errors.Is(err, assets.ErrStyleNotFound) ||
		errors.Is(err, assets.ErrTemplateNotFound) ||
		errors.Is(err, assets.ErrInvalidAssetName) ||
		errors.Is(err, assets.ErrInvalidBasePath) ||
		errors.Is(err, dateutil.ErrInvalidDateFormat) ||
		errors.Is(err, ErrInvalidExtension) ||
		errors.Is(err, ErrInvalidWorkerCount) ||
		errors.Is(err, ErrBadTemplate) {
		return ExitUsage
	}

	return ExitGeneral
}
