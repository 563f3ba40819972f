package processor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contented/internal/content"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

func writeFile(t *testing.T, root, rel, data string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(data), 0o600))
}

func baseIndex(path string) content.FileIndex {
	return content.FileIndex{ID: "abc", Type: "Doc", Path: path, File: "x", Sections: []string{}, Fields: map[string]any{}}
}

func resolve(t *testing.T, id string, opts Options) Processor {
	t.Helper()
	p, err := NewRegistry().Resolve(t.Context(), "Doc", id, t.TempDir(), opts)
	require.NoError(t, err)
	return p
}

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{HTML, Markdown, MarkdownSections}, r.IDs())
	assert.True(t, r.Has(Markdown))
}

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	factory := func(string, Options) (Processor, error) { return &HTMLProcessor{}, nil }

	require.NoError(t, r.Register("custom", factory))
	assert.Error(t, r.Register("custom", factory), "duplicate id")
	assert.Error(t, r.Register(Markdown, factory), "built-in ids are taken")
	assert.Error(t, r.Register("", factory))
	assert.Error(t, r.Register("nil", nil))
}

func TestRegistryResolveUnknown(t *testing.T) {
	_, err := NewRegistry().Resolve(t.Context(), "Doc", "asciidoc", t.TempDir(), nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryProcessor))
	assert.Equal(t, "Doc", ferrors.ContextString(err, "pipeline"))
	assert.Equal(t, "asciidoc", ferrors.ContextString(err, "processor"))
	assert.Equal(t, "html, md, md-sections", ferrors.ContextString(err, "available"))
}

type initProcessor struct {
	HTMLProcessor
	err    error
	called int
}

func (p *initProcessor) Init(context.Context) error {
	p.called++
	return p.err
}

func TestRegistryResolveCallsInit(t *testing.T) {
	r := NewRegistry()
	ok := &initProcessor{}
	failing := &initProcessor{err: errors.New("no binary")}
	require.NoError(t, r.Register("ok", func(string, Options) (Processor, error) { return ok, nil }))
	require.NoError(t, r.Register("failing", func(string, Options) (Processor, error) { return failing, nil }))

	_, err := r.Resolve(t.Context(), "Doc", "ok", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, ok.called)

	_, err = r.Resolve(t.Context(), "Doc", "failing", "", nil)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryProcessor))
	assert.ErrorIs(t, err, failing.err)
}

func TestRegistryResolveFactoryError(t *testing.T) {
	_, err := NewRegistry().Resolve(t.Context(), "Doc", MarkdownSections, "", Options{"level": 9})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryProcessor))
}

func TestOptions(t *testing.T) {
	o := Options{"a": true, "b": "false", "n": 3.0, "s": "x", "ns": "4"}
	assert.True(t, o.Bool("a", false))
	assert.False(t, o.Bool("b", true))
	assert.True(t, o.Bool("missing", true))
	assert.Equal(t, 3, o.Int("n", 0))
	assert.Equal(t, 4, o.Int("ns", 0))
	assert.Equal(t, 7, o.Int("s", 7))
	assert.Equal(t, "x", o.String("s", ""))
	assert.Equal(t, "d", o.String("n", "d"))
}

func TestMarkdownExtract(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "guide/intro.md", "---\ntitle: Intro\norder: 2\n---\n# Heading\n\nBody.\n")

	p, err := NewMarkdown(root, nil)
	require.NoError(t, err)
	records, err := p.Extract(t.Context(), baseIndex("/guide/intro"), root, "guide/intro.md")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "/guide/intro", rec.Path)
	assert.Equal(t, "Intro", rec.Fields["title"])
	assert.Equal(t, 2, rec.Fields["order"])
	assert.Contains(t, rec.HTML, "<p>Body.</p>")
	assert.Len(t, rec.Headings, 1)
	assert.NotEmpty(t, rec.Fingerprint)
}

func TestMarkdownExtract_TitleFromHeading(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "# From Heading\n")

	records, err := resolve(t, Markdown, nil).Extract(t.Context(), baseIndex("/a"), root, "a.md")
	require.NoError(t, err)
	assert.Equal(t, "From Heading", records[0].Fields["title"])
}

func TestMarkdownExtract_Errors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken.md", "---\ntitle: x\n")
	p := resolve(t, Markdown, nil)

	_, err := p.Extract(t.Context(), baseIndex("/broken"), root, "broken.md")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
	assert.Equal(t, "broken.md", ferrors.ContextString(err, "file"))

	_, err = p.Extract(t.Context(), baseIndex("/gone"), root, "gone.md")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestMarkdownExtract_DoesNotShareIndexMaps(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.md", "---\ntitle: A\n---\n")
	idx := baseIndex("/a")

	records, err := resolve(t, Markdown, nil).Extract(t.Context(), idx, root, "a.md")
	require.NoError(t, err)
	records[0].Fields["extra"] = 1
	assert.Empty(t, idx.Fields)
}

func TestSectionsExtract(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "faq.md", "---\nauthor: me\n---\n# FAQ\n\nIntro.\n\n## Install\n\nA.\n\n## Install\n\nB.\n\n## Usage Notes\n\nC.\n")

	records, err := resolve(t, MarkdownSections, nil).Extract(t.Context(), baseIndex("/faq"), root, "faq.md")
	require.NoError(t, err)
	require.Len(t, records, 4)

	paths := make([]string, 0, len(records))
	for _, r := range records {
		paths = append(paths, r.Path)
		assert.Equal(t, "abc", r.ID, "section records share the file id")
		assert.Equal(t, "me", r.Fields["author"])
	}
	assert.Equal(t, []string{"/faq", "/faq/install", "/faq/install-2", "/faq/usage-notes"}, paths)
	assert.Equal(t, "FAQ", records[0].Fields["title"])
	assert.Equal(t, "Usage Notes", records[3].Fields["title"])
	assert.Equal(t, "usage-notes", records[3].Extra["anchor"])
	assert.Contains(t, records[1].HTML, "<p>A.</p>")
	assert.NotContains(t, records[1].HTML, "<p>B.</p>")
}

func TestSectionsExtract_RootPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.md", "## Welcome\n")

	records, err := resolve(t, MarkdownSections, nil).Extract(t.Context(), baseIndex("/"), root, "index.md")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "/welcome", records[0].Path)
}

func TestHTMLExtract(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "page.html", `<!doctype html>
<html><head><title> Page  Title </title>
<meta name="description" content="About the page">
<meta name="Author" content="Ann">
<script>var x = "<h1>no</h1>";</script>
</head>
<body><h1>Main</h1><h2 id="custom">Sub Part</h2><p>Text</p></body></html>`)

	records, err := resolve(t, HTML, nil).Extract(t.Context(), baseIndex("/page"), root, "page.html")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Page Title", rec.Fields["title"])
	assert.Equal(t, "About the page", rec.Fields["description"])
	assert.Equal(t, "Ann", rec.Fields["author"])
	assert.Equal(t, []content.Heading{
		{Level: 1, Text: "Main", ID: "main"},
		{Level: 2, Text: "Sub Part", ID: "custom"},
	}, rec.Headings)
	assert.Equal(t, `<h1>Main</h1><h2 id="custom">Sub Part</h2><p>Text</p>`, rec.HTML)
	assert.NotEmpty(t, rec.Fingerprint)
}

func TestHTMLExtract_TitleFallsBackToH1(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.html", "<p>x</p><h1>Fallback</h1>")

	records, err := resolve(t, HTML, nil).Extract(t.Context(), baseIndex("/a"), root, "a.html")
	require.NoError(t, err)
	assert.Equal(t, "Fallback", records[0].Fields["title"])
}
