package quality

import (
	"encoding/json"
	"html"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/echopipe/internal/content"
	"git.home.luguber.info/inful/echopipe/internal/markup"
)

// Issue messages.
const (
	MsgTooShort             = "too short"
	MsgTooLong              = "too long"
	MsgMissingHeading       = "missing heading"
	MsgMissingBold          = "missing bold text"
	MsgInvalidHTMLStructure = "invalid html structure"
	MsgMissingHTMLHeading   = "missing html heading"
	MsgInvalidJSONLD        = "invalid json-ld"
	MsgNotRelevant          = "not relevant to topic"
	MsgUnknownFormat        = "unknown format"
)

// Issue is one violated rule.
type Issue struct {
	Rule    string  `json:"rule"`
	Message string  `json:"message"`
	Penalty float64 `json:"penalty"`
}

// Input is the rendering a rule inspects.
type Input struct {
	Format content.Format
	Body   string
	Topic  string
	// Length is the body length in characters.
	Length int
}

// Rule checks one structural property of a rendering.
type Rule interface {
	// Name returns a short identifier used in issues and logs.
	Name() string
	// Check returns the issues found; nil when the rule holds or does not
	// apply to the input's format.
	Check(in Input, s Scoring) []Issue
}

// RuleChain applies every rule in order and collects all issues.
type RuleChain struct {
	rules []Rule
}

// NewRuleChain creates a chain of rules.
func NewRuleChain(rules ...Rule) *RuleChain {
	return &RuleChain{rules: rules}
}

// DefaultRules returns the stock rule chain.
func DefaultRules() *RuleChain {
	return NewRuleChain(
		LengthRule{},
		UnknownFormatRule{},
		MarkdownStructureRule{},
		HTMLStructureRule{},
		JSONLDRule{},
		TopicRelevanceRule{},
	)
}

// Check runs all rules.
func (rc *RuleChain) Check(in Input, s Scoring) []Issue {
	var issues []Issue
	for _, r := range rc.rules {
		issues = append(issues, r.Check(in, s)...)
	}
	return issues
}

func issue(r Rule, msg string, penalty float64) []Issue {
	return []Issue{{Rule: r.Name(), Message: msg, Penalty: penalty}}
}

// LengthRule penalizes bodies that are too short or too long.
type LengthRule struct{}

func (LengthRule) Name() string { return "length" }

func (r LengthRule) Check(in Input, s Scoring) []Issue {
	switch {
	case in.Length < s.MinLength:
		return issue(r, MsgTooShort, s.ShortPenalty)
	case in.Length > s.MaxLength:
		return issue(r, MsgTooLong, s.LongPenalty)
	}
	return nil
}

// UnknownFormatRule marks formats the validator has no structural rules for.
type UnknownFormatRule struct{}

func (UnknownFormatRule) Name() string { return "format" }

func (r UnknownFormatRule) Check(in Input, s Scoring) []Issue {
	if in.Format.IsKnown() {
		return nil
	}
	return issue(r, MsgUnknownFormat, s.UnknownFormat)
}

// MarkdownStructureRule requires a level-1 heading and a bold span.
type MarkdownStructureRule struct{}

func (MarkdownStructureRule) Name() string { return "markdown-structure" }

func (r MarkdownStructureRule) Check(in Input, s Scoring) []Issue {
	if in.Format != content.FormatMarkdown {
		return nil
	}
	info := markup.AnalyzeMarkdown(in.Body)
	var out []Issue
	if !info.HasH1 {
		out = append(out, issue(r, MsgMissingHeading, s.MissingHeading)...)
	}
	if !info.HasBold {
		out = append(out, issue(r, MsgMissingBold, s.MissingBold)...)
	}
	return out
}

// HTMLStructureRule requires a paired <html> root and an <h1>.
type HTMLStructureRule struct{}

func (HTMLStructureRule) Name() string { return "html-structure" }

func (r HTMLStructureRule) Check(in Input, s Scoring) []Issue {
	if in.Format != content.FormatHTML {
		return nil
	}
	info := markup.AnalyzeHTML(in.Body)
	var out []Issue
	if !info.HasPairedRoot() {
		out = append(out, issue(r, MsgInvalidHTMLStructure, s.InvalidHTMLStructure)...)
	}
	if !info.HasH1 {
		out = append(out, issue(r, MsgMissingHTMLHeading, s.MissingHTMLHeading)...)
	}
	return out
}

// JSONLDRule requires the body to decode as a JSON object.
type JSONLDRule struct{}

func (JSONLDRule) Name() string { return "jsonld-structure" }

func (r JSONLDRule) Check(in Input, s Scoring) []Issue {
	if in.Format != content.FormatJSONLD {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(in.Body), &obj); err != nil || obj == nil {
		return issue(r, MsgInvalidJSONLD, s.InvalidJSONLD)
	}
	return nil
}

// TopicRelevanceRule requires the topic to appear in the body, ignoring case.
// HTML bodies are compared after resolving character references.
type TopicRelevanceRule struct{}

func (TopicRelevanceRule) Name() string { return "topic-relevance" }

func (r TopicRelevanceRule) Check(in Input, s Scoring) []Issue {
	body := in.Body
	if in.Format == content.FormatHTML {
		body = html.UnescapeString(body)
	}
	// Casers keep state and are not shared across goroutines.
	lower := cases.Lower(language.Und)
	if strings.Contains(lower.String(body), lower.String(in.Topic)) {
		return nil
	}
	return issue(r, MsgNotRelevant, s.Irrelevant)
}
