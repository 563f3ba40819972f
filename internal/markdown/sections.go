package markdown

import (
	"bytes"

	gmast "github.com/yuin/goldmark/ast"

	"git.home.luguber.info/inful/contented/internal/content"
)

// Section is a slice of a Markdown body that starts at a split heading.
type Section struct {
	// Heading is nil for the content before the first split heading.
	Heading *content.Heading
	Source  []byte
}

// SplitSections cuts body at every top-level heading of the given level. The
// leading section holds the content before the first such heading and is
// omitted when it is blank. Headings nested in lists or quotes never split.
func (r *Renderer) SplitSections(body []byte, level int) []Section {
	doc := r.Parse(body)

	type cut struct {
		offset  int
		heading content.Heading
	}
	var cuts []cut
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*gmast.Heading)
		if !ok || h.Level != level || h.Lines().Len() == 0 {
			continue
		}
		start := h.Lines().At(0).Start
		lineStart := bytes.LastIndexByte(body[:start], '\n') + 1
		cuts = append(cuts, cut{offset: lineStart, heading: headingOf(h, body)})
	}

	sections := make([]Section, 0, len(cuts)+1)
	first := len(body)
	if len(cuts) > 0 {
		first = cuts[0].offset
	}
	if len(bytes.TrimSpace(body[:first])) > 0 {
		sections = append(sections, Section{Source: body[:first]})
	}
	for i, c := range cuts {
		end := len(body)
		if i+1 < len(cuts) {
			end = cuts[i+1].offset
		}
		heading := c.heading
		sections = append(sections, Section{Heading: &heading, Source: body[c.offset:end]})
	}
	return sections
}
