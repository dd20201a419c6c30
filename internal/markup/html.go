package markup

import (
	"errors"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLInfo summarizes the structure of an HTML document.
type HTMLInfo struct {
	HasRootOpen  bool
	HasRootClose bool
	HasH1        bool
	// Headline is the text of the first <h1>, empty when there is none.
	Headline string
}

// HasPairedRoot reports whether both <html> and </html> are present.
func (i HTMLInfo) HasPairedRoot() bool { return i.HasRootOpen && i.HasRootClose }

var spaceRun = regexp.MustCompile(`\s+`)

// AnalyzeHTML scans src token by token. Malformed input never fails; the
// tokenizer reports whatever it could read.
func AnalyzeHTML(src string) HTMLInfo {
	var info HTMLInfo
	var headline strings.Builder
	inH1 := false

	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		tok := z.Token()
		switch tt {
		case html.StartTagToken:
			switch tok.DataAtom {
			case atom.Html:
				info.HasRootOpen = true
			case atom.H1:
				if !info.HasH1 {
					inH1 = true
				}
				info.HasH1 = true
			}
		case html.EndTagToken:
			switch tok.DataAtom {
			case atom.Html:
				info.HasRootClose = true
			case atom.H1:
				inH1 = false
			}
		case html.TextToken:
			if inH1 {
				headline.WriteString(tok.Data)
			}
		}
	}
	info.Headline = strings.TrimSpace(spaceRun.ReplaceAllString(headline.String(), " "))
	return info
}

// structuralAtoms are the elements whose presence marks a string as HTML.
var structuralAtoms = map[atom.Atom]bool{
	atom.Html: true, atom.Head: true, atom.Body: true, atom.Title: true,
	atom.P: true, atom.Div: true, atom.Span: true, atom.Br: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Strong: true, atom.Em: true, atom.B: true, atom.I: true, atom.A: true,
	atom.Section: true, atom.Article: true,
}

// LooksLikeHTML reports whether s contains at least one well-known HTML element.
func LooksLikeHTML(s string) bool {
	if !strings.Contains(s, "<") {
		return false
	}
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.SelfClosingTagToken, html.DoctypeToken:
			tok := z.Token()
			if tok.Type == html.DoctypeToken || structuralAtoms[tok.DataAtom] {
				return true
			}
		}
	}
}

// HTMLToMarkdown converts HTML to markdown: h1-h3 become '#' headings,
// strong/b become '**', em/i become '*', block elements become line breaks and
// every other tag is dropped. Text inside head, script and style is discarded.
func HTMLToMarkdown(src string) (string, error) {
	return walkHTML(src, false)
}

// HTMLPlainText returns the visible text of an HTML document, one block per line.
func HTMLPlainText(src string) string {
	out, _ := walkHTML(src, true)
	return out
}

// HTMLBodyFragment returns the markup between <body> and </body>, or the whole
// input when there is no body element.
func HTMLBodyFragment(src string) string {
	lower := strings.ToLower(src)
	start := strings.Index(lower, "<body")
	if start < 0 {
		return src
	}
	open := strings.Index(lower[start:], ">")
	if open < 0 {
		return src
	}
	inner := src[start+open+1:]
	if end := strings.LastIndex(strings.ToLower(inner), "</body>"); end >= 0 {
		inner = inner[:end]
	}
	return strings.TrimSpace(inner)
}

func walkHTML(src string, plain bool) (string, error) {
	var b strings.Builder
	skip := 0

	write := func(s string) {
		if !plain {
			b.WriteString(s)
		}
	}

	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return "", err
			}
			break
		}
		tok := z.Token()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			switch tok.DataAtom {
			case atom.Head, atom.Script, atom.Style, atom.Title:
				if tt == html.StartTagToken {
					skip++
				}
			case atom.H1:
				b.WriteString("\n\n")
				write("# ")
			case atom.H2:
				b.WriteString("\n\n")
				write("## ")
			case atom.H3:
				b.WriteString("\n\n")
				write("### ")
			case atom.Strong, atom.B:
				write("**")
			case atom.Em, atom.I:
				write("*")
			case atom.Li:
				b.WriteString("\n")
				write("- ")
			case atom.Br:
				b.WriteString("\n")
			default:
				if isBlock(tok.DataAtom) {
					b.WriteString("\n\n")
				}
			}
		case html.EndTagToken:
			switch tok.DataAtom {
			case atom.Head, atom.Script, atom.Style, atom.Title:
				if skip > 0 {
					skip--
				}
			case atom.Strong, atom.B:
				write("**")
			case atom.Em, atom.I:
				write("*")
			default:
				if isBlock(tok.DataAtom) {
					b.WriteString("\n\n")
				}
			}
		case html.TextToken:
			if skip > 0 {
				continue
			}
			b.WriteString(spaceRun.ReplaceAllString(tok.Data, " "))
		}
	}
	return tidyLines(b.String()), nil
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main,
		atom.Ul, atom.Ol, atom.Blockquote, atom.Pre, atom.Table, atom.Tr,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Body:
		return true
	}
	return false
}
