package content

import (
	"maps"
	"sort"
)

// Metadata describes how a piece of content was produced. It travels with the
// content through every stage and is persisted next to the renderings.
type Metadata struct {
	Topic        string      `json:"topic"`
	Format       Format      `json:"format"`
	Length       LengthClass `json:"length"`
	Model        string      `json:"model"`
	MaxTokens    int         `json:"max_tokens"`
	Temperature  float64     `json:"temperature"`
	TargetLength int         `json:"target_length"`
	Truncation   string      `json:"truncation"`
}

// GeneratedContent is the canonical rendering produced for one request.
type GeneratedContent struct {
	Body     string
	Metadata Metadata
}

// RenderingSet maps each supported format to the body rendered in it.
type RenderingSet map[Format]string

// Formats returns the set's formats sorted by name.
func (rs RenderingSet) Formats() []Format {
	out := make([]Format, 0, len(rs))
	for f := range rs {
		out = append(out, f)
	}
	return SortFormats(out)
}

// Clone returns an independent copy of the set.
func (rs RenderingSet) Clone() RenderingSet {
	return maps.Clone(rs)
}

// Manifest maps each persisted format (plus MetadataKey) to its location.
type Manifest map[string]string

// MetadataKey is the reserved manifest key for the metadata side-file.
const MetadataKey = "metadata"

// Keys returns manifest keys sorted by name.
func (m Manifest) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
