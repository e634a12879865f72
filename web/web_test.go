package web

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMarkdown(t *testing.T) {
	out := string(renderMarkdown("# Purpose\n\nUse **approved** products."))
	assert.Contains(t, out, "<h1>Purpose</h1>")
	assert.Contains(t, out, "<strong>approved</strong>")
}

func TestRenderMarkdownEscapesRawHTML(t *testing.T) {
	out := string(renderMarkdown(`before <script>alert(1)</script> after`))
	assert.NotContains(t, out, "<script>")
}

func TestRenderMarkdownAnchored(t *testing.T) {
	out := string(renderMarkdownAnchored("# Scope\n\nbody", "scope"))
	assert.Contains(t, out, `<a id="scope" href="#scope"><h1>Scope</h1></a>`)
}

func TestRenderMarkdownAnchoredNoHeading(t *testing.T) {
	out := string(renderMarkdownAnchored("just a paragraph", "scope"))
	assert.NotContains(t, out, "<a ")
	assert.Contains(t, out, "just a paragraph")
}
