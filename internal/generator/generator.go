package generator

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/echopipe/internal/content"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
)

// Truncation selects how the length class limits a generated body.
type Truncation string

const (
	// TruncateStructural keeps the document structure intact and applies the
	// length budget to the prose only.
	TruncateStructural Truncation = "structural"
	// TruncateRaw renders the whole template and cuts the string at the
	// target length, possibly removing closing markers.
	TruncateRaw Truncation = "raw"
)

// ParseTruncation maps a configured name to a Truncation. Unknown names
// select TruncateStructural.
func ParseTruncation(s string) Truncation {
	if Truncation(strings.ToLower(strings.TrimSpace(s))) == TruncateRaw {
		return TruncateRaw
	}
	return TruncateStructural
}

// Options are the generation parameters. Model, MaxTokens and Temperature are
// carried into the metadata unchanged.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Truncation  Truncation
}

// Generator builds canonical renderings from fixed templates.
type Generator struct {
	opts Options
}

// New returns a generator using opts.
func New(opts Options) *Generator {
	opts.Truncation = ParseTruncation(string(opts.Truncation))
	return &Generator{opts: opts}
}

// Generate renders req in its requested format.
func (g *Generator) Generate(ctx context.Context, req content.Request) (*content.GeneratedContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryGeneration, "generation cancelled").Build()
	}

	format := req.Format()
	if !format.IsKnown() {
		format = content.DefaultFormat
	}
	target := req.Length().TargetChars()

	body, err := g.render(req.Topic(), format, target)
	if err != nil {
		return nil, derrors.GenerationError("render template").
			WithCause(err).
			WithContext("format", string(format)).
			WithContext("topic", req.Topic()).
			Build()
	}

	return &content.GeneratedContent{
		Body: body,
		Metadata: content.Metadata{
			Topic:        req.Topic(),
			Format:       format,
			Length:       req.Length(),
			Model:        g.opts.Model,
			MaxTokens:    g.opts.MaxTokens,
			Temperature:  g.opts.Temperature,
			TargetLength: target,
			Truncation:   string(g.opts.Truncation),
		},
	}, nil
}

func (g *Generator) render(topic string, format content.Format, target int) (string, error) {
	blocks := outline(topic, introKind(format))
	if g.opts.Truncation == TruncateStructural {
		blocks = fitBlocks(blocks, target)
	}

	var body string
	switch format {
	case content.FormatHTML:
		body = renderHTML(topic, blocks)
	case content.FormatJSONLD:
		var err error
		if body, err = renderJSONLD(topic, blocks); err != nil {
			return "", err
		}
	default:
		body = renderMarkdown(topic, blocks)
	}

	if g.opts.Truncation == TruncateRaw {
		body = truncateRunes(body, target)
	}
	return body, nil
}

func introKind(f content.Format) string {
	switch f {
	case content.FormatHTML:
		return "HTML content"
	case content.FormatJSONLD:
		return "JSON-LD content"
	default:
		return "content"
	}
}
