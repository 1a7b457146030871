// Package textsplit splits raw text along document structure: headers,
// paragraphs and sentences.
package textsplit

import (
	"regexp"
	"strings"
)

// Section is one header-delimited region of a document.
type Section struct {
	// Label is the header title, or empty for text before the first header.
	Label string

	// HasLabel reports whether the section sits under a recognized header.
	HasLabel bool

	// Content holds every line of the section, including the header line.
	Content string
}

var (
	headerRegex    = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)
	paragraphRegex = regexp.MustCompile(`\n\s*\n`)
	sentenceRegex  = regexp.MustCompile(`([.!?])\s+`)
)

// SplitByHeaders splits text into header-delimited sections. A header is a
// line starting with 1-6 '#' characters followed by whitespace and a title.
// Every line belongs to exactly one section and source order is preserved;
// text before the first header forms an unlabeled section.
func SplitByHeaders(text string) []Section {
	var sections []Section
	var current []string
	label := ""
	hasLabel := false

	flush := func() {
		if len(current) > 0 {
			sections = append(sections, Section{
				Label:    label,
				HasLabel: hasLabel,
				Content:  strings.Join(current, "\n"),
			})
		}
	}

	for _, line := range strings.Split(text, "\n") {
		if m := headerRegex.FindStringSubmatch(line); m != nil {
			flush()
			label = m[2]
			hasLabel = true
			current = []string{line}
			continue
		}
		current = append(current, line)
	}
	flush()

	return sections
}

// SplitByParagraphs splits text on blank-line boundaries. Blocks are
// whitespace-trimmed and empty blocks are dropped.
func SplitByParagraphs(text string) []string {
	blocks := paragraphRegex.Split(text, -1)
	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block != "" {
			paragraphs = append(paragraphs, block)
		}
	}
	return paragraphs
}

// SplitBySentences splits text after '.', '!' or '?' followed by whitespace.
// This is a trivial heuristic and not locale-aware: abbreviations and
// decimal points produce false boundaries. Documented limitation.
func SplitBySentences(text string) []string {
	parts := sentenceRegex.Split(text, -1)
	boundaries := sentenceRegex.FindAllStringSubmatch(text, -1)

	sentences := make([]string, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		// Re-attach the terminator consumed by the split.
		if i < len(boundaries) {
			part += boundaries[i][1]
		}
		sentences = append(sentences, part)
	}
	return sentences
}
