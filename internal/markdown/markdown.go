// Package markdown renders Markdown bodies to HTML and extracts their heading
// structure using Goldmark.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"git.home.luguber.info/inful/contented/internal/content"
)

// Options controls the Goldmark extensions and renderer settings.
type Options struct {
	// Unsafe renders raw HTML instead of omitting it.
	Unsafe bool
	// HardWraps renders soft line breaks as <br>.
	HardWraps bool
	// Typographer replaces straight quotes and dashes with typographic ones.
	Typographer bool
}

// Renderer converts Markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// Rendered is the output of rendering one body.
type Rendered struct {
	HTML     string
	Headings []content.Heading
}

// NewRenderer builds a GitHub-flavoured renderer with automatic heading IDs.
func NewRenderer(opts Options) *Renderer {
	exts := []goldmark.Extender{extension.GFM, extension.Footnote}
	if opts.Typographer {
		exts = append(exts, extension.Typographer)
	}

	var htmlOpts []renderer.Option
	if opts.Unsafe {
		htmlOpts = append(htmlOpts, html.WithUnsafe())
	}
	if opts.HardWraps {
		htmlOpts = append(htmlOpts, html.WithHardWraps())
	}

	return &Renderer{md: goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(htmlOpts...),
	)}
}

// Parse parses a Markdown body (frontmatter already removed) into a Goldmark AST.
func (r *Renderer) Parse(body []byte) gmast.Node {
	return r.md.Parser().Parse(text.NewReader(body))
}

// Render parses body, renders it to HTML and collects every heading in
// document order.
func (r *Renderer) Render(body []byte) (Rendered, error) {
	doc := r.Parse(body)

	var buf bytes.Buffer
	if err := r.md.Renderer().Render(&buf, body, doc); err != nil {
		return Rendered{}, fmt.Errorf("render markdown: %w", err)
	}
	return Rendered{HTML: buf.String(), Headings: Headings(doc, body)}, nil
}

// Headings returns the headings of a parsed document in document order.
func Headings(doc gmast.Node, src []byte) []content.Heading {
	headings := make([]content.Heading, 0)
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if h, ok := n.(*gmast.Heading); ok {
			headings = append(headings, headingOf(h, src))
			return gmast.WalkSkipChildren, nil
		}
		return gmast.WalkContinue, nil
	})
	return headings
}

func headingOf(h *gmast.Heading, src []byte) content.Heading {
	out := content.Heading{Level: h.Level, Text: InlineText(h, src)}
	if id, ok := h.AttributeString("id"); ok {
		switch v := id.(type) {
		case []byte:
			out.ID = string(v)
		case string:
			out.ID = v
		}
	}
	return out
}

// InlineText concatenates the text of n's inline descendants.
func InlineText(n gmast.Node, src []byte) string {
	var sb strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *gmast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *gmast.String:
			sb.Write(t.Value)
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
