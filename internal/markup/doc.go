// Package markup inspects and rewrites markdown and HTML text.
//
// Markdown is parsed with goldmark; HTML is read with the golang.org/x/net/html
// tokenizer rather than the tree parser, because the tree parser synthesizes
// missing <html>/<body> elements and would hide exactly the structural defects
// the quality rules look for.
package markup
