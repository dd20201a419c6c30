package convert

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"git.home.luguber.info/inful/echopipe/internal/content"
	"git.home.luguber.info/inful/echopipe/internal/markup"
)

var errNotObject = errors.New("json-ld is not an object")

// ReasonUnsupported is the passthrough reason for pairs without a converter.
const ReasonUnsupported = "unsupported conversion"

type convertFunc func(body string) Result

// Converter holds the conversion matrix. It is stateless and safe for
// concurrent use.
type Converter struct {
	matrix map[[2]content.Format]convertFunc
}

// New returns a converter with every built-in pair registered.
func New() *Converter {
	c := &Converter{}
	c.matrix = map[[2]content.Format]convertFunc{
		{content.FormatMarkdown, content.FormatHTML}:   markdownToHTML,
		{content.FormatMarkdown, content.FormatJSONLD}: markdownToJSONLD,
		{content.FormatHTML, content.FormatMarkdown}:   htmlToMarkdown,
		{content.FormatHTML, content.FormatJSONLD}:     htmlToJSONLD,
		{content.FormatJSONLD, content.FormatMarkdown}: jsonldToMarkdown,
		{content.FormatJSONLD, content.FormatHTML}:     jsonldToHTML,
	}
	return c
}

// Supports reports whether a direct conversion from one format to another exists.
func (c *Converter) Supports(from, to content.Format) bool {
	_, ok := c.matrix[[2]content.Format{from, to}]
	return ok
}

// Convert translates body from one format to another.
func (c *Converter) Convert(body string, from, to content.Format) Result {
	fn, ok := c.matrix[[2]content.Format{from, to}]
	if !ok {
		return passthrough(body, ReasonUnsupported)
	}
	return fn(body)
}

// htmlDocument wraps an HTML fragment in a minimal document shell.
func htmlDocument(title, fragment string) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	if title != "" {
		fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	}
	b.WriteString("</head>\n<body>\n")
	b.WriteString(strings.TrimSpace(fragment))
	b.WriteString("\n</body>\n</html>\n")
	return b.String()
}

func markdownToHTML(body string) Result {
	fragment, err := markup.RenderMarkdownHTML(body)
	if err != nil {
		return passthrough(body, "render markdown: "+err.Error())
	}
	info := markup.AnalyzeMarkdown(body)
	return converted(htmlDocument(markup.MarkdownPlainText(info.FirstHeading), fragment))
}

func htmlToMarkdown(body string) Result {
	md, err := markup.HTMLToMarkdown(body)
	if err != nil {
		return passthrough(body, "read html: "+err.Error())
	}
	return converted(md)
}

func markdownToJSONLD(body string) Result {
	out, err := encodeArticle(markup.AnalyzeMarkdown(body).FirstHeading, body)
	if err != nil {
		return passthrough(body, "encode json-ld: "+err.Error())
	}
	return converted(out)
}

func htmlToJSONLD(body string) Result {
	out, err := encodeArticle(markup.AnalyzeHTML(body).Headline, body)
	if err != nil {
		return passthrough(body, "encode json-ld: "+err.Error())
	}
	return converted(out)
}

func jsonldToMarkdown(body string) Result {
	headline, text, err := decodeArticle(body)
	if err != nil {
		return passthrough(body, "parse json-ld: "+err.Error())
	}
	if headline == "" && strings.TrimSpace(text) == "" {
		return passthrough(body, "json-ld has no headline or text")
	}

	md := text
	if markup.LooksLikeHTML(text) {
		if md, err = markup.HTMLToMarkdown(text); err != nil {
			return passthrough(body, "read embedded html: "+err.Error())
		}
	}
	md = strings.TrimSpace(md)
	if headline != "" && markup.AnalyzeMarkdown(md).FirstHeading != headline {
		md = strings.TrimSpace("# " + headline + "\n\n" + md)
	}
	return converted(md)
}

func jsonldToHTML(body string) Result {
	headline, text, err := decodeArticle(body)
	if err != nil {
		return passthrough(body, "parse json-ld: "+err.Error())
	}
	if headline == "" && strings.TrimSpace(text) == "" {
		return passthrough(body, "json-ld has no headline or text")
	}

	var fragment, existing string
	if markup.LooksLikeHTML(text) {
		fragment = markup.HTMLBodyFragment(text)
		existing = markup.AnalyzeHTML(fragment).Headline
	} else {
		if fragment, err = markup.RenderMarkdownHTML(text); err != nil {
			return passthrough(body, "render embedded markdown: "+err.Error())
		}
		existing = markup.AnalyzeMarkdown(text).FirstHeading
	}
	if headline != "" && existing != headline {
		fragment = "<h1>" + html.EscapeString(headline) + "</h1>\n" + fragment
	}
	return converted(htmlDocument(headline, fragment))
}
