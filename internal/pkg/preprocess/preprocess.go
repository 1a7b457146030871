// Package preprocess turns raw uploaded bytes into clean text ready for
// chunking. HTML is reduced to visible text, boilerplate lines are dropped
// and whitespace is normalized while document structure (headers, blank
// lines) is preserved.
package preprocess

import (
	"strings"

	"golang.org/x/net/html"
)

// Content types understood by the preprocessor. Anything else is treated as
// plain text.
const (
	ContentTypeHTML     = "text/html"
	ContentTypeMarkdown = "text/markdown"
	ContentTypePlain    = "text/plain"
)

var boilerplatePatterns = []string{
	"cookie policy",
	"privacy policy",
	"terms of service",
	"copyright ©",
	"all rights reserved",
}

// Preprocessor cleans raw document content.
type Preprocessor struct{}

// New creates a Preprocessor.
func New() *Preprocessor {
	return &Preprocessor{}
}

// ProcessBytes decodes raw bytes and runs the full cleanup pipeline.
// Invalid UTF-8 sequences are replaced rather than rejected.
func (p *Preprocessor) ProcessBytes(raw []byte, contentType string) string {
	return p.Process(strings.ToValidUTF8(string(raw), ""), contentType)
}

// Process runs the cleanup pipeline on decoded text.
func (p *Preprocessor) Process(text, contentType string) string {
	if contentType == ContentTypeHTML {
		text = ExtractHTMLText(text)
	}
	text = normalizeWhitespace(text)
	text = removeBoilerplate(text)
	return strings.TrimSpace(text)
}

// ContentTypeForFilename guesses a content type from a file name.
func ContentTypeForFilename(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".html") || strings.HasSuffix(lower, ".htm"):
		return ContentTypeHTML
	case strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".mdx"):
		return ContentTypeMarkdown
	default:
		return ContentTypePlain
	}
}

// ExtractHTMLText strips tags from an HTML document, skipping script and
// style subtrees, and joins visible text fragments with newlines.
func ExtractHTMLText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// A document that does not parse at all is kept verbatim; the
		// downstream cleanup still applies.
		return htmlContent
	}

	var fragments []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				fragments = append(fragments, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(fragments, "\n")
}

// normalizeWhitespace collapses runs of spaces and tabs within lines and
// runs of blank lines into a single paragraph break.
func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank++
			if blank == 1 {
				out = append(out, "")
			}
			continue
		}
		blank = 0
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// removeBoilerplate drops lines matching known boilerplate patterns.
func removeBoilerplate(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		skip := false
		for _, pattern := range boilerplatePatterns {
			if strings.Contains(lower, pattern) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
