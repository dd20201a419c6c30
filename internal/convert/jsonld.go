package convert

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	// SchemaContext is the @context of every emitted article.
	SchemaContext = "https://schema.org"
	// PublisherName is the fixed author and publisher of converted articles.
	PublisherName = "Echo Pipeline"
	// DatePublished is the fixed publish timestamp of converted articles.
	DatePublished = "2025-01-01T00:00:00Z"
	// FallbackHeadline is used when the source has no heading.
	FallbackHeadline = "Generated Content"
)

type organization struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

type article struct {
	Context       string       `json:"@context"`
	Type          string       `json:"@type"`
	Headline      string       `json:"headline"`
	Text          string       `json:"text"`
	Author        organization `json:"author"`
	Publisher     organization `json:"publisher"`
	DatePublished string       `json:"datePublished"`
}

func encodeArticle(headline, text string) (string, error) {
	if strings.TrimSpace(headline) == "" {
		headline = FallbackHeadline
	}
	a := article{
		Context:       SchemaContext,
		Type:          "Article",
		Headline:      headline,
		Text:          text,
		Author:        organization{Type: "Organization", Name: PublisherName},
		Publisher:     organization{Type: "Organization", Name: PublisherName},
		DatePublished: DatePublished,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// decodeArticle reads headline and text from a JSON-LD object. Every other
// field is ignored.
func decodeArticle(body string) (headline, text string, err error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return "", "", err
	}
	if obj == nil {
		return "", "", errNotObject
	}
	headline, _ = obj["headline"].(string)
	text, _ = obj["text"].(string)
	return strings.TrimSpace(headline), text, nil
}
