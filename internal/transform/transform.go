// Package transform expands a canonical rendering into one rendering per
// configured format.
package transform

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/echopipe/internal/content"
	"git.home.luguber.info/inful/echopipe/internal/convert"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/logfields"
)

// ReasonEmptyOutput marks a conversion that produced no text.
const ReasonEmptyOutput = "empty conversion output"

// Transformed is the result of one transformation.
type Transformed struct {
	Set content.RenderingSet
	// Conversions holds the converter outcome for every derived format. The
	// source format has no entry.
	Conversions map[content.Format]convert.Result
}

// Passthroughs returns the derived formats whose conversion gave up, sorted.
func (t *Transformed) Passthroughs() []content.Format {
	var out []content.Format
	for f, r := range t.Conversions {
		if !r.Converted() {
			out = append(out, f)
		}
	}
	return content.SortFormats(out)
}

// Transformer converts generated content into every configured format.
type Transformer struct {
	conv    *convert.Converter
	formats []content.Format
}

// New returns a transformer producing exactly the given formats.
// Duplicates are ignored.
func New(conv *convert.Converter, formats []content.Format) *Transformer {
	seen := make(map[content.Format]bool, len(formats))
	uniq := make([]content.Format, 0, len(formats))
	for _, f := range formats {
		if !seen[f] {
			seen[f] = true
			uniq = append(uniq, f)
		}
	}
	return &Transformer{conv: conv, formats: content.SortFormats(uniq)}
}

// Formats returns the configured formats sorted by name.
func (t *Transformer) Formats() []content.Format {
	return append([]content.Format(nil), t.formats...)
}

// Transform converts gc into every configured format. The source rendering
// is copied unchanged when its format is configured; otherwise it only
// serves as conversion input. Conversions run concurrently.
func (t *Transformer) Transform(ctx context.Context, gc *content.GeneratedContent) (*Transformed, error) {
	if gc == nil {
		return nil, derrors.TransformError("no generated content to transform").Build()
	}
	source := gc.Metadata.Format

	results := make([]convert.Result, len(t.formats))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range t.formats {
		if f == source {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := t.conv.Convert(gc.Body, source, f)
			if strings.TrimSpace(res.Body) == "" {
				res = convert.Result{Body: gc.Body, Status: convert.StatusPassthrough, Reason: ReasonEmptyOutput}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryTransform, "transform interrupted").
			WithContext("source", string(source)).
			Build()
	}

	out := &Transformed{
		Set:         make(content.RenderingSet, len(t.formats)),
		Conversions: make(map[content.Format]convert.Result, len(t.formats)),
	}
	for i, f := range t.formats {
		if f == source {
			out.Set[f] = gc.Body
			continue
		}
		res := results[i]
		out.Set[f] = res.Body
		out.Conversions[f] = res
		if !res.Converted() {
			slog.Warn("Conversion fell back to passthrough",
				logfields.From(string(source)),
				logfields.To(string(f)),
				logfields.Reason(res.Reason))
		}
	}
	return out, nil
}
