package processor

import (
	"context"
	"maps"

	"git.home.luguber.info/inful/contented/internal/content"
	"git.home.luguber.info/inful/contented/internal/frontmatter"
	"git.home.luguber.info/inful/contented/internal/markdown"
)

// MarkdownProcessor emits one record per Markdown file: frontmatter becomes
// raw fields and the body is rendered to HTML.
type MarkdownProcessor struct {
	renderer *markdown.Renderer
}

// NewMarkdown is the factory of the "md" processor.
//
// Options: unsafe, hard_wraps, typographer (booleans).
func NewMarkdown(_ string, opts Options) (Processor, error) {
	return &MarkdownProcessor{renderer: markdown.NewRenderer(markdownOptions(opts))}, nil
}

func markdownOptions(opts Options) markdown.Options {
	return markdown.Options{
		Unsafe:      opts.Bool("unsafe", false),
		HardWraps:   opts.Bool("hard_wraps", false),
		Typographer: opts.Bool("typographer", false),
	}
}

// Extract implements Processor.
func (p *MarkdownProcessor) Extract(ctx context.Context, idx content.FileIndex, rootPath, file string) ([]content.FileContent, error) {
	doc, err := readDocument(ctx, rootPath, file)
	if err != nil {
		return nil, err
	}

	rec, err := p.record(idx, file, doc.Fields, doc.Body)
	if err != nil {
		return nil, err
	}
	return []content.FileContent{rec}, nil
}

func (p *MarkdownProcessor) record(idx content.FileIndex, file string, fields map[string]any, body []byte) (content.FileContent, error) {
	rendered, err := p.renderer.Render(body)
	if err != nil {
		return content.FileContent{}, invalidSource(file, "markdown render failed", err)
	}
	fingerprint, err := frontmatter.Fingerprint(fields, body)
	if err != nil {
		return content.FileContent{}, invalidSource(file, "fingerprint failed", err)
	}

	rec := content.FileContent{
		FileIndex:   idx.Clone(),
		HTML:        rendered.HTML,
		Headings:    rendered.Headings,
		Fingerprint: fingerprint,
	}
	maps.Copy(rec.Fields, fields)
	if _, ok := rec.Fields["title"]; !ok {
		if title := firstTitle(rendered.Headings); title != "" {
			rec.Fields["title"] = title
		}
	}
	return rec, nil
}

func readDocument(ctx context.Context, rootPath, file string) (frontmatter.Document, error) {
	if err := ctx.Err(); err != nil {
		return frontmatter.Document{}, err
	}
	data, err := ReadSource(rootPath, file)
	if err != nil {
		return frontmatter.Document{}, err
	}
	doc, err := frontmatter.Parse(data)
	if err != nil {
		return frontmatter.Document{}, invalidSource(file, "frontmatter", err)
	}
	return doc, nil
}

// firstTitle returns the text of the first level-one heading.
func firstTitle(headings []content.Heading) string {
	for _, h := range headings {
		if h.Level == 1 {
			return h.Text
		}
	}
	return ""
}
