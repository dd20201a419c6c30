package markup

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownInfo summarizes the structure of a markdown document.
type MarkdownInfo struct {
	// Headline is the text of the first level-1 heading, empty when there is none.
	Headline string
	// FirstHeading is the text of the first heading of any level.
	FirstHeading string
	HasH1        bool
	HasBold      bool
}

func parseMarkdown(src []byte) gmast.Node {
	return goldmark.New().Parser().Parse(text.NewReader(src))
}

// AnalyzeMarkdown parses src and reports its headings and bold spans.
func AnalyzeMarkdown(src string) MarkdownInfo {
	body := []byte(src)
	root := parseMarkdown(body)

	var info MarkdownInfo
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Heading:
			line := headingText(node, body)
			if info.FirstHeading == "" {
				info.FirstHeading = line
			}
			if node.Level == 1 && !info.HasH1 {
				info.HasH1 = true
				info.Headline = line
			}
		case *gmast.Emphasis:
			if node.Level >= 2 {
				info.HasBold = true
			}
		}
		return gmast.WalkContinue, nil
	})
	return info
}

// headingText returns the raw inline source of a heading (markers inside the
// heading, such as emphasis, are kept).
func headingText(h *gmast.Heading, src []byte) string {
	var b strings.Builder
	lines := h.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		if i > 0 {
			b.WriteByte(' ')
		}
		b.Write(seg.Value(src))
	}
	return strings.TrimSpace(b.String())
}

// RenderMarkdownHTML renders markdown to an HTML fragment.
func RenderMarkdownHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.New().Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// MarkdownPlainText returns the text content of a markdown document with all
// styling and structural markers removed. Blocks are separated by newlines.
func MarkdownPlainText(src string) string {
	body := []byte(src)
	root := parseMarkdown(body)

	var b strings.Builder
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		switch node := n.(type) {
		case *gmast.Text:
			if entering {
				b.Write(node.Segment.Value(body))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte('\n')
				}
			}
		case *gmast.String:
			if entering {
				b.Write(node.Value)
			}
		case *gmast.AutoLink:
			if entering {
				b.Write(node.URL(body))
			}
		case *gmast.FencedCodeBlock, *gmast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					b.Write(seg.Value(body))
				}
			}
		case *gmast.RawHTML, *gmast.HTMLBlock:
			return gmast.WalkSkipChildren, nil
		}
		if !entering && n.Type() == gmast.TypeBlock {
			b.WriteByte('\n')
		}
		return gmast.WalkContinue, nil
	})
	return tidyLines(b.String())
}

// tidyLines trims every line and collapses runs of blank lines into one.
func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if !blank && len(out) > 0 {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Words splits plain text into whitespace separated words.
func Words(s string) []string {
	return strings.Fields(s)
}
