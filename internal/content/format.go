package content

import (
	"sort"
	"strings"
)

// Format names one rendering format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSONLD   Format = "jsonld"
)

// DefaultFormat is used for requests naming a format outside the known set.
const DefaultFormat = FormatMarkdown

// KnownFormats returns the closed set of formats the pipeline can generate and convert.
func KnownFormats() []Format {
	return []Format{FormatHTML, FormatJSONLD, FormatMarkdown}
}

// IsKnown reports whether f is one of the built-in formats.
func (f Format) IsKnown() bool {
	switch f {
	case FormatMarkdown, FormatHTML, FormatJSONLD:
		return true
	}
	return false
}

// Extension returns the file extension used when persisting a rendering.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatHTML:
		return ".html"
	case FormatJSONLD:
		return ".jsonld"
	default:
		return ".txt"
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatJSONLD:
		return "application/ld+json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// ParseFormat normalizes a user supplied format name. Unknown names map to DefaultFormat.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return FormatMarkdown
	case "html", "htm":
		return FormatHTML
	case "jsonld", "json-ld":
		return FormatJSONLD
	default:
		return DefaultFormat
	}
}

// SortFormats sorts formats by name in place and returns the slice.
func SortFormats(formats []Format) []Format {
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
