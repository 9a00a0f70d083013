// Package dateutil resolves publication date values. Config files accept
// either a literal date string, passed through unchanged, or an "auto"
// value rendered from the build time with a user-friendly format syntax
// (YYYY-MM-DD tokens rather than Go's reference time).
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates a date format string that cannot be used.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxFormatLength bounds format strings read from config files.
const MaxFormatLength = 50

// DefaultFormat renders bare "auto" values.
const DefaultFormat = "YYYY-MM-DD"

// tokens maps user-facing format tokens to Go reference-time components.
// Longer tokens come first so "YYYY" wins over "YY".
var tokens = [...][2]string{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// presets are named shortcuts accepted after "auto:".
var presets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
}

// ResolveDate expands "auto" date values against the build time t.
// Supported forms: "auto" (DefaultFormat), "auto:FORMAT" with YYYY/MM/DD
// style tokens, and "auto:preset" (iso, european, us, long). Bracketed
// text in a format is copied literally, so "[Year] YYYY" keeps the word
// "Year". Any value not starting with "auto" passes through unchanged.
func ResolveDate(value string, t time.Time) (string, error) {
	lower := strings.ToLower(value)
	if !strings.HasPrefix(lower, "auto") {
		return value, nil
	}

	format := DefaultFormat
	switch {
	case lower == "auto":
	case strings.HasPrefix(lower, "auto:"):
		format = value[len("auto:"):]
		if format == "" {
			return "", fmt.Errorf("%w: format cannot be empty after \"auto:\"", ErrInvalidDateFormat)
		}
		if p, ok := presets[strings.ToLower(format)]; ok {
			format = p
		}
	default:
		return "", fmt.Errorf("%w: invalid auto syntax %q, use \"auto\" or \"auto:FORMAT\"", ErrInvalidDateFormat, value)
	}

	layout, err := toLayout(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// toLayout translates a token format into a Go time layout. Characters
// that match no token are kept as literals.
func toLayout(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxFormatLength)
	}

	var layout strings.Builder
	layout.Grow(len(format))

	for i := 0; i < len(format); {
		if format[i] == '[' {
			end := strings.IndexByte(format[i+1:], ']')
			if end < 0 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, i)
			}
			layout.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}
		rest := format[i:]
		matched := false
		for _, tk := range tokens {
			if strings.HasPrefix(rest, tk[0]) {
				layout.WriteString(tk[1])
				i += len(tk[0])
				matched = true
				break
			}
		}
		if !matched {
			layout.WriteByte(format[i])
			i++
		}
	}
	return layout.String(), nil
}
