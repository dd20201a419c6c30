package generator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

func renderMarkdown(title string, blocks []block) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", title)
	b.WriteString(markdownBody(blocks))
	return b.String()
}

// markdownBody renders blocks without a document heading.
func markdownBody(blocks []block) string {
	var b strings.Builder
	prev := blockHeading
	n := 0
	for i, bl := range blocks {
		startsList := i == 0 || prev != bl.kind
		switch bl.kind {
		case blockHeading:
			fmt.Fprintf(&b, "\n## %s\n", bl.text)
		case blockParagraph:
			fmt.Fprintf(&b, "\n%s\n", bl.text)
		case blockBullet:
			if startsList {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "- %s\n", markdownItem(bl))
		case blockNumbered:
			if startsList {
				b.WriteByte('\n')
				n = 0
			}
			n++
			fmt.Fprintf(&b, "%d. %s\n", n, markdownItem(bl))
		}
		prev = bl.kind
	}
	return b.String()
}

func markdownItem(bl block) string {
	if bl.lead == "" {
		return bl.text
	}
	if bl.text == "" {
		return "**" + bl.lead + "**"
	}
	return "**" + bl.lead + "**: " + bl.text
}

const htmlHead = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
</head>
<body>
    <h1>%s</h1>
`

func renderHTML(title string, blocks []block) string {
	var b strings.Builder
	t := html.EscapeString(title)
	fmt.Fprintf(&b, htmlHead, t, t)

	openList := ""
	closeList := func() {
		if openList != "" {
			fmt.Fprintf(&b, "    </%s>\n", openList)
			openList = ""
		}
	}
	for _, bl := range blocks {
		switch bl.kind {
		case blockHeading:
			closeList()
			fmt.Fprintf(&b, "    <h2>%s</h2>\n", html.EscapeString(bl.text))
		case blockParagraph:
			closeList()
			fmt.Fprintf(&b, "    <p>%s</p>\n", html.EscapeString(bl.text))
		case blockBullet, blockNumbered:
			tag := "ul"
			if bl.kind == blockNumbered {
				tag = "ol"
			}
			if openList != tag {
				closeList()
				fmt.Fprintf(&b, "    <%s>\n", tag)
				openList = tag
			}
			fmt.Fprintf(&b, "        <li>%s</li>\n", htmlItem(bl))
		}
	}
	closeList()
	b.WriteString("</body>\n</html>")
	return b.String()
}

func htmlItem(bl block) string {
	text := html.EscapeString(bl.text)
	if bl.lead == "" {
		return text
	}
	lead := "<strong>" + html.EscapeString(bl.lead) + "</strong>"
	if text == "" {
		return lead
	}
	return lead + ": " + text
}

type jsonldThing struct {
	Type string `json:"@type"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url,omitempty"`
	ID   string `json:"@id,omitempty"`
}

type jsonldPublisher struct {
	Type string      `json:"@type"`
	Name string      `json:"name"`
	Logo jsonldThing `json:"logo"`
}

type jsonldArticle struct {
	Context          string          `json:"@context"`
	Type             string          `json:"@type"`
	Headline         string          `json:"headline"`
	Description      string          `json:"description"`
	Text             string          `json:"text,omitempty"`
	Author           jsonldThing     `json:"author"`
	Publisher        jsonldPublisher `json:"publisher"`
	DatePublished    string          `json:"datePublished"`
	Keywords         []string        `json:"keywords"`
	InLanguage       string          `json:"inLanguage"`
	MainEntityOfPage jsonldThing     `json:"mainEntityOfPage"`
}

const (
	authorName    = "Echo Pipeline"
	publisherName = "Echo Pipeline Testing"
	datePublished = "2025-01-01T00:00:00Z"
)

func renderJSONLD(title string, blocks []block) (string, error) {
	a := jsonldArticle{
		Context:       "https://schema.org",
		Type:          "Article",
		Headline:      title,
		Description:   "This is generated JSON-LD content about " + title + ".",
		Text:          strings.TrimSpace(markdownBody(blocks)),
		Author:        jsonldThing{Type: "Organization", Name: authorName},
		Publisher:     jsonldPublisher{Type: "Organization", Name: publisherName, Logo: jsonldThing{Type: "ImageObject", URL: "https://example.com/logo.png"}},
		DatePublished: datePublished,
		Keywords:      []string{"echo pipeline", "content generation", "testing", "validation"},
		InLanguage:    "en-US",
		MainEntityOfPage: jsonldThing{
			Type: "WebPage",
			ID:   "https://example.com/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
		},
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
