package processor

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/contented/internal/content"
	"git.home.luguber.info/inful/contented/internal/frontmatter"
	"git.home.luguber.info/inful/contented/internal/slug"
)

// HTMLProcessor emits one record per HTML document. The title comes from
// <title> or the first <h1>, <meta name=... content=...> pairs become raw
// fields and the inner HTML of <body> is the record body.
type HTMLProcessor struct{}

// NewHTML is the factory of the "html" processor.
func NewHTML(_ string, _ Options) (Processor, error) {
	return &HTMLProcessor{}, nil
}

// Extract implements Processor.
func (p *HTMLProcessor) Extract(ctx context.Context, idx content.FileIndex, rootPath, file string) ([]content.FileContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := ReadSource(rootPath, file)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, invalidSource(file, "html parse failed", err)
	}

	rec := content.FileContent{FileIndex: idx.Clone(), Headings: []content.Heading{}}
	walkHTML(doc, func(n *html.Node) bool {
		switch n.Data {
		case "title":
			if _, ok := rec.Fields["title"]; !ok {
				if t := textContent(n); t != "" {
					rec.Fields["title"] = t
				}
			}
		case "meta":
			name, value := getAttr(n, "name"), getAttr(n, "content")
			if name != "" && value != "" {
				rec.Fields[strings.ToLower(name)] = value
			}
		case "h1", "h2", "h3", "h4", "h5", "h6":
			text := textContent(n)
			id := getAttr(n, "id")
			if id == "" {
				id = slug.Slugify(text)
			}
			rec.Headings = append(rec.Headings, content.Heading{Level: int(n.Data[1] - '0'), Text: text, ID: id})
			return false
		case "script", "style":
			return false
		}
		return true
	})
	if _, ok := rec.Fields["title"]; !ok {
		if title := firstTitle(rec.Headings); title != "" {
			rec.Fields["title"] = title
		}
	}

	if body := findElement(doc, "body"); body != nil {
		var buf bytes.Buffer
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return nil, invalidSource(file, "html render failed", err)
			}
		}
		rec.HTML = strings.TrimSpace(buf.String())
	}
	if rec.Fingerprint, err = frontmatter.Fingerprint(nil, []byte(rec.HTML)); err != nil {
		return nil, invalidSource(file, "fingerprint failed", err)
	}
	return []content.FileContent{rec}, nil
}

// walkHTML visits element nodes depth first; visit returns false to skip
// the element's children.
func walkHTML(n *html.Node, visit func(*html.Node) bool) {
	if n.Type == html.ElementNode && !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkHTML(c, visit)
	}
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}
