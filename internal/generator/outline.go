package generator

import (
	"strings"
	"unicode/utf8"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockBullet
	blockNumbered
)

// block is one unit of document prose. Lead, when set, is rendered bold in
// front of the text.
type block struct {
	kind blockKind
	lead string
	text string
}

func (b block) prose() string {
	if b.lead == "" {
		return b.text
	}
	if b.text == "" {
		return b.lead
	}
	return b.lead + ": " + b.text
}

// outline returns the prose of the article about topic. kind names the
// rendering in the introduction ("content", "HTML content", ...).
func outline(topic, kind string) []block {
	return []block{
		{kind: blockParagraph, text: "This is generated " + kind + " about " + topic +
			". The echo pipeline is designed to test and validate content generation workflows."},
		{kind: blockHeading, text: "Key Features"},
		{kind: blockBullet, lead: "Content Generation", text: "Automated content creation based on input parameters"},
		{kind: blockBullet, lead: "Format Transformation", text: "Convert between markdown, HTML, and JSON-LD formats"},
		{kind: blockBullet, lead: "Quality Validation", text: "Ensure content meets quality standards"},
		{kind: blockBullet, lead: "Output Formatting", text: "Generate properly formatted output files"},
		{kind: blockHeading, text: "Pipeline Components"},
		{kind: blockParagraph, text: "The echo pipeline consists of several key components:"},
		{kind: blockNumbered, lead: "Content Generator", text: "Creates initial content based on input parameters"},
		{kind: blockNumbered, lead: "Content Transformer", text: "Converts content between different formats"},
		{kind: blockNumbered, lead: "Quality Validator", text: "Ensures content quality and consistency"},
		{kind: blockNumbered, lead: "Output Formatter", text: "Formats and saves output files"},
		{kind: blockHeading, text: "Testing Framework"},
		{kind: blockParagraph, text: "The pipeline includes comprehensive testing capabilities:"},
		{kind: blockBullet, text: "Unit tests for individual components"},
		{kind: blockBullet, text: "Integration tests for end-to-end functionality"},
		{kind: blockBullet, text: "Performance tests for efficiency measurement"},
		{kind: blockBullet, text: "Quality tests for output validation"},
		{kind: blockParagraph, text: "This content demonstrates the echo pipeline's ability to generate structured, informative content for testing and validation purposes."},
	}
}

// fitBlocks keeps blocks in order while their prose fits into budget runes.
// The first block that overflows is cut at a word boundary; headings are
// never cut, only dropped.
func fitBlocks(blocks []block, budget int) []block {
	out := make([]block, 0, len(blocks))
	used := 0
	for _, b := range blocks {
		n := utf8.RuneCountInString(b.prose())
		if used+n <= budget {
			out = append(out, b)
			used += n
			continue
		}
		if cut, ok := cutBlock(b, budget-used); ok {
			out = append(out, cut)
		}
		break
	}
	// A trailing heading without content is noise.
	for len(out) > 0 && out[len(out)-1].kind == blockHeading {
		out = out[:len(out)-1]
	}
	return out
}

func cutBlock(b block, room int) (block, bool) {
	if b.kind == blockHeading || room <= 0 {
		return block{}, false
	}
	if b.lead != "" {
		leadLen := utf8.RuneCountInString(b.lead)
		if leadLen > room {
			return block{}, false
		}
		b.text = cutWords(b.text, room-leadLen-2)
		return b, true
	}
	b.text = cutWords(b.text, room)
	return b, b.text != ""
}

// cutWords returns the longest prefix of s made of whole words that fits
// into limit runes.
func cutWords(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	prefix := truncateRunes(s, limit+1)
	if i := strings.LastIndexByte(prefix, ' '); i > 0 {
		return strings.TrimRight(prefix[:i], " ,:;")
	}
	return ""
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
