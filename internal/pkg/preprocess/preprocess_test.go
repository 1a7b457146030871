package preprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessPlainText(t *testing.T) {
	p := New()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "collapses inner whitespace",
			input:    "hello   \t world",
			expected: "hello world",
		},
		{
			name:     "collapses blank line runs",
			input:    "a\n\n\n\nb",
			expected: "a\n\nb",
		},
		{
			name:     "drops boilerplate lines",
			input:    "useful content\nAll rights reserved.\nmore content",
			expected: "useful content\nmore content",
		},
		{
			name:     "preserves markdown headers",
			input:    "# Title\n\nbody",
			expected: "# Title\n\nbody",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, p.Process(tt.input, ContentTypePlain))
		})
	}
}

func TestProcessHTML(t *testing.T) {
	p := New()

	html := `<html><head><style>.x{color:red}</style><script>var x=1;</script></head>
<body><h1>Title</h1><p>First paragraph.</p></body></html>`

	got := p.Process(html, ContentTypeHTML)
	assert.Contains(t, got, "Title")
	assert.Contains(t, got, "First paragraph.")
	assert.NotContains(t, got, "var x=1")
	assert.NotContains(t, got, "color:red")
}

func TestProcessBytesInvalidUTF8(t *testing.T) {
	p := New()
	raw := append([]byte("valid "), 0xff, 0xfe)
	got := p.ProcessBytes(raw, ContentTypePlain)
	assert.Contains(t, got, "valid")
}

func TestContentTypeForFilename(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{filename: "page.html", expected: ContentTypeHTML},
		{filename: "page.HTM", expected: ContentTypeHTML},
		{filename: "readme.md", expected: ContentTypeMarkdown},
		{filename: "notes.txt", expected: ContentTypePlain},
		{filename: "noext", expected: ContentTypePlain},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContentTypeForFilename(tt.filename))
		})
	}
}
