package webpub

import "errors"

// Sentinel errors for library operations.
var (
	ErrParseDocument = errors.New("manuscript document cannot be parsed")
	ErrNilDocument   = errors.New("document tree is nil")

	// Manuscript validation errors.
	ErrNoManuscripts   = errors.New("no manuscripts to compile")
	ErrEmptyTarget     = errors.New("manuscript target cannot be empty")
	ErrAbsoluteTarget  = errors.New("manuscript target must be relative")
	ErrTraversalTarget = errors.New("manuscript target escapes the publication root")
	ErrDuplicateTarget = errors.New("duplicate manuscript target")

	// Compiler configuration errors.
	ErrInvalidSectionDepth = errors.New("invalid section depth")
	ErrInvalidTocPath      = errors.New("invalid toc path")
	ErrInvalidManifestPath = errors.New("invalid manifest path")
	ErrMissingTocDocument  = errors.New("toc document not found among manuscripts")

	// Reserved-path conflict errors.
	ErrTocConflict = errors.New("toc path already claimed by a manuscript")

	// Publication write errors.
	ErrTocWrite      = errors.New("failed to write toc document")
	ErrManifestWrite = errors.New("failed to write publication manifest")
)
