package generator

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/echopipe/internal/content"
	"git.home.luguber.info/inful/echopipe/internal/convert"
	derrors "git.home.luguber.info/inful/echopipe/internal/foundation/errors"
	"git.home.luguber.info/inful/echopipe/internal/markup"
)

func TestGenerateShortMarkdownScenario(t *testing.T) {
	g := New(Options{Model: "echo-model", MaxTokens: 1000, Temperature: 0.7})
	gc, err := g.Generate(t.Context(), content.NewRequest("Test", "markdown", "short"))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gc.Body, "# Test"))
	info := markup.AnalyzeMarkdown(gc.Body)
	require.True(t, info.HasH1)
	assert.Contains(t, info.Headline, "Test")

	res := convert.New().Convert(gc.Body, content.FormatMarkdown, content.FormatJSONLD)
	require.True(t, res.Converted())
	var obj map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.Body), &obj))
	assert.Equal(t, info.Headline, obj["headline"])
}

func TestGenerateIsDeterministic(t *testing.T) {
	g := New(Options{})
	for _, f := range []string{"markdown", "html", "jsonld"} {
		req := content.NewRequest("Go Pipelines", f, "long")
		a, err := g.Generate(t.Context(), req)
		require.NoError(t, err)
		b, err := g.Generate(t.Context(), req)
		require.NoError(t, err)
		assert.Equal(t, a, b, f)
	}
}

func TestGenerateMetadata(t *testing.T) {
	g := New(Options{Model: "m", MaxTokens: 42, Temperature: 0.3})
	gc, err := g.Generate(t.Context(), content.NewRequest("Topic", "htm", "long"))
	require.NoError(t, err)
	assert.Equal(t, content.Metadata{
		Topic:        "Topic",
		Format:       content.FormatHTML,
		Length:       content.LengthLong,
		Model:        "m",
		MaxTokens:    42,
		Temperature:  0.3,
		TargetLength: 600,
		Truncation:   "structural",
	}, gc.Metadata)
}

func TestUnsupportedFormatDegradesToMarkdown(t *testing.T) {
	gc, err := New(Options{}).Generate(t.Context(), content.NewRequest("Topic", "docx", "medium"))
	require.NoError(t, err)
	assert.Equal(t, content.FormatMarkdown, gc.Metadata.Format)
	assert.True(t, strings.HasPrefix(gc.Body, "# Topic\n"))
}

func TestStructuralTruncationKeepsStructure(t *testing.T) {
	g := New(Options{Truncation: TruncateStructural})
	for _, length := range []string{"short", "medium", "long"} {
		t.Run(length, func(t *testing.T) {
			md, err := g.Generate(t.Context(), content.NewRequest("Topic", "markdown", length))
			require.NoError(t, err)
			assert.True(t, markup.AnalyzeMarkdown(md.Body).HasH1)

			h, err := g.Generate(t.Context(), content.NewRequest("Topic", "html", length))
			require.NoError(t, err)
			info := markup.AnalyzeHTML(h.Body)
			assert.True(t, info.HasPairedRoot())
			assert.Equal(t, "Topic", info.Headline)

			j, err := g.Generate(t.Context(), content.NewRequest("Topic", "jsonld", length))
			require.NoError(t, err)
			var obj map[string]any
			require.NoError(t, json.Unmarshal([]byte(j.Body), &obj))
			assert.Equal(t, "Article", obj["@type"])
			assert.Equal(t, "https://example.com/topic", obj["mainEntityOfPage"].(map[string]any)["@id"])
		})
	}
}

func TestMediumMarkdownHasBoldLead(t *testing.T) {
	gc, err := New(Options{}).Generate(t.Context(), content.NewRequest("Topic", "markdown", "medium"))
	require.NoError(t, err)
	assert.True(t, markup.AnalyzeMarkdown(gc.Body).HasBold)
}

func TestRawTruncationCutsString(t *testing.T) {
	g := New(Options{Truncation: TruncateRaw})
	gc, err := g.Generate(t.Context(), content.NewRequest("Topic", "html", "short"))
	require.NoError(t, err)
	assert.Equal(t, 100, utf8.RuneCountInString(gc.Body))
	assert.NotContains(t, gc.Body, "</html>")
	assert.Equal(t, "raw", gc.Metadata.Truncation)
}

func TestFitBlocksRespectsBudget(t *testing.T) {
	blocks := outline("Topic", "content")
	for _, budget := range []int{0, 10, 100, 300, 600} {
		fitted := fitBlocks(blocks, budget)
		total := 0
		for _, b := range fitted {
			total += utf8.RuneCountInString(b.prose())
		}
		assert.LessOrEqual(t, total, budget)
		if len(fitted) > 0 {
			assert.NotEqual(t, blockHeading, fitted[len(fitted)-1].kind)
		}
	}
	assert.Len(t, fitBlocks(blocks, 1<<20), len(blocks))
}

func TestCutWords(t *testing.T) {
	assert.Equal(t, "alpha beta", cutWords("alpha beta gamma", 12))
	assert.Equal(t, "alpha beta gamma", cutWords("alpha beta gamma", 16))
	assert.Empty(t, cutWords("alphabet", 4))
	assert.Empty(t, cutWords("alpha", 0))
}

func TestGenerateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := New(Options{}).Generate(ctx, content.NewRequest("Topic", "", ""))
	require.Error(t, err)
	assert.True(t, derrors.HasCategory(err, derrors.CategoryGeneration))
}

func TestParseTruncation(t *testing.T) {
	assert.Equal(t, TruncateRaw, ParseTruncation(" RAW "))
	assert.Equal(t, TruncateStructural, ParseTruncation(""))
	assert.Equal(t, TruncateStructural, ParseTruncation("other"))
}
