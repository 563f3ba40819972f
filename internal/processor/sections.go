package processor

import (
	"context"
	"fmt"
	"maps"
	"path"

	"git.home.luguber.info/inful/contented/internal/content"
	"git.home.luguber.info/inful/contented/internal/markdown"
	"git.home.luguber.info/inful/contented/internal/slug"
)

const defaultSectionLevel = 2

// SectionsProcessor emits one record per heading-delimited section of a
// Markdown file. Content before the first split heading keeps the file's
// canonical path; each section is addressed below it by its heading slug.
type SectionsProcessor struct {
	MarkdownProcessor
	level int
}

// NewMarkdownSections is the factory of the "md-sections" processor.
//
// Options: the "md" options plus level (heading level to split on, default 2).
func NewMarkdownSections(_ string, opts Options) (Processor, error) {
	level := opts.Int("level", defaultSectionLevel)
	if level < 1 || level > 6 {
		return nil, fmt.Errorf("section level must be between 1 and 6, got %d", level)
	}
	return &SectionsProcessor{
		MarkdownProcessor: MarkdownProcessor{renderer: markdown.NewRenderer(markdownOptions(opts))},
		level:             level,
	}, nil
}

// Extract implements Processor.
func (p *SectionsProcessor) Extract(ctx context.Context, idx content.FileIndex, rootPath, file string) ([]content.FileContent, error) {
	doc, err := readDocument(ctx, rootPath, file)
	if err != nil {
		return nil, err
	}

	sections := p.renderer.SplitSections(doc.Body, p.level)
	records := make([]content.FileContent, 0, len(sections))
	used := map[string]bool{}

	for _, sec := range sections {
		fields := maps.Clone(doc.Fields)
		if fields == nil {
			fields = map[string]any{}
		}
		secIdx := idx
		if sec.Heading != nil {
			secIdx.Path = sectionPath(idx.Path, sec.Heading.Text, used)
			fields["title"] = sec.Heading.Text
		}

		rec, err := p.record(secIdx, file, fields, sec.Source)
		if err != nil {
			return nil, err
		}
		if sec.Heading != nil {
			rec.Extra = map[string]any{"anchor": sec.Heading.ID}
		}
		records = append(records, rec)
	}
	return records, nil
}

// sectionPath derives a unique child path for a section heading, appending
// -2, -3, ... when two headings slugify alike.
func sectionPath(base, heading string, used map[string]bool) string {
	s := slug.Slugify(heading)
	candidate := s
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", s, n)
	}
	used[candidate] = true
	return path.Join(base, candidate)
}
