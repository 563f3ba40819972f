package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contented/internal/config"
	"git.home.luguber.info/inful/contented/internal/content"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/index"
	"git.home.luguber.info/inful/contented/internal/notify"
	"git.home.luguber.info/inful/contented/internal/processor"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
	closed  bool
}

func (n *recordingNotifier) Notify(_ context.Context, notice notify.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

func (n *recordingNotifier) snapshot() ([]notify.Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notice(nil), n.notices...), n.closed
}

type workspace struct {
	dir string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	return &workspace{dir: t.TempDir()}
}

func (w *workspace) write(t *testing.T, rel, data string) {
	t.Helper()
	p := filepath.Join(w.dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(data), 0o600))
}

func (w *workspace) load(t *testing.T, body string) *config.Config {
	t.Helper()
	w.write(t, config.DefaultFileName, body)
	cfg, err := config.Load(filepath.Join(w.dir, config.DefaultFileName))
	require.NoError(t, err)
	return cfg
}

const docPipeline = `
pipelines:
  - type: Doc
    root: docs
    pattern: "**/*.md"
    fields:
      title: {type: string, required: true, default: Contented}
`

func TestNew_DisablesUnresolvedPipelineOnly(t *testing.T) {
	w := newWorkspace(t)
	w.write(t, "docs/a.md", "# A\n")
	cfg := w.load(t, docPipeline+`
  - type: Broken
    root: docs
    pattern: "**/*.md"
    processor: nope
`)

	d, err := New(t.Context(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.Contains(t, d.Disabled(), "Broken")
	assert.True(t, ferrors.HasCategory(d.Disabled()["Broken"], ferrors.CategoryProcessor))
	_, ok := d.Coordinator("Broken")
	assert.False(t, ok)

	results, err := d.Build(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryProcessor))
	require.Contains(t, results, "Doc")
	assert.True(t, results["Doc"].Committed)

	doc, err := d.Store().Read("Doc")
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Count)
}

func TestNew_FailsWhenEveryPipelineIsDisabled(t *testing.T) {
	w := newWorkspace(t)
	cfg := w.load(t, `
pipelines:
  - type: Doc
    pattern: "**/*.md"
    processor: nope
`)
	_, err := New(t.Context(), cfg)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryProcessor))
}

func TestBuild_WritesManifestJournalAndNotices(t *testing.T) {
	w := newWorkspace(t)
	w.write(t, "docs/a.md", "# A\n")
	w.write(t, "docs/b.md", "# B\n")
	w.write(t, "posts/hello.md", "# Hello\n")
	cfg := w.load(t, `
journal: {path: ":memory:"}
nats: {url: "nats://127.0.0.1:4222", subject: test.index}
pipelines:
  - type: Doc
    root: docs
    pattern: "**/*.md"
  - type: Post
    root: posts
    pattern: "**/*.md"
`)
	rec := &recordingNotifier{}
	var gotNATS config.NATSConfig
	d, err := New(t.Context(), cfg, WithNotifierFactory(func(_ context.Context, c config.NATSConfig) (notify.Notifier, error) {
		gotNATS = c
		return rec, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "test.index", gotNATS.Subject)

	results, err := d.Build(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, results["Doc"].Records)
	assert.Equal(t, 1, results["Post"].Records)

	m, err := d.Store().ReadManifest()
	require.NoError(t, err)
	require.Len(t, m.Pipelines, 2)
	assert.Equal(t, "Doc", m.Pipelines[0].Type)
	assert.Equal(t, "Doc/index.json", m.Pipelines[0].Path)
	assert.Equal(t, "Post", m.Pipelines[1].Type)

	assert.Len(t, d.Journal().History(), 2)

	notices, _ := rec.snapshot()
	assert.Len(t, notices, 2)

	require.NoError(t, d.Close())
	_, closed := rec.snapshot()
	assert.True(t, closed)
	require.NoError(t, d.Close(), "close is idempotent")
}

func TestRun_WatchesAndServes(t *testing.T) {
	w := newWorkspace(t)
	w.write(t, "docs/a.md", "# A\n")
	cfg := w.load(t, `
server: {listen: "127.0.0.1:0"}
build: {debounce: 20ms, max_wait: 200ms}
`+docPipeline)

	d, err := New(t.Context(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	require.Eventually(t, func() bool { return d.Status() == StatusRunning }, 5*time.Second, 10*time.Millisecond)
	addr := d.ServerAddr()
	require.NotNil(t, addr)

	fetch := func() (index.Document, error) {
		resp, err := http.Get(fmt.Sprintf("http://%s/api/pipelines/Doc", addr))
		if err != nil {
			return index.Document{}, err
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode != http.StatusOK {
			return index.Document{}, fmt.Errorf("status %d", resp.StatusCode)
		}
		var doc index.Document
		return doc, json.NewDecoder(resp.Body).Decode(&doc)
	}

	doc, err := fetch()
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Count)

	w.write(t, "docs/guide/b.md", "# B\n")
	require.Eventually(t, func() bool {
		doc, err := fetch()
		return err == nil && doc.Count == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("run did not return after cancel")
	}
	assert.Equal(t, StatusStopped, d.Status())
}

// touchingProcessor writes a new source file the first time it extracts,
// simulating an edit that lands while the initial build is running.
type touchingProcessor struct {
	processor.Processor
	once  sync.Once
	touch func()
}

func (p *touchingProcessor) Extract(ctx context.Context, idx content.FileIndex, rootPath, file string) ([]content.FileContent, error) {
	p.once.Do(p.touch)
	return p.Processor.Extract(ctx, idx, rootPath, file)
}

func TestRun_IndexesChangesMadeDuringInitialBuild(t *testing.T) {
	w := newWorkspace(t)
	w.write(t, "docs/a.md", "# A\n")
	cfg := w.load(t, `
build: {debounce: 20ms, max_wait: 200ms}
pipelines:
  - type: Doc
    root: docs
    pattern: "**/*.md"
    processor: md-touch
`)

	reg := processor.NewRegistry()
	require.NoError(t, reg.Register("md-touch", func(rootPath string, opts processor.Options) (processor.Processor, error) {
		md, err := processor.NewMarkdown(rootPath, opts)
		if err != nil {
			return nil, err
		}
		return &touchingProcessor{Processor: md, touch: func() {
			_ = os.WriteFile(filepath.Join(w.dir, "docs", "b.md"), []byte("# B\n"), 0o600)
		}}, nil
	}))

	d, err := New(t.Context(), cfg, WithProcessors(reg))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	paths := func() []string {
		doc, err := d.Store().Read("Doc")
		if err != nil {
			return nil
		}
		out := make([]string, 0, len(doc.Records))
		for _, rec := range doc.Records {
			out = append(out, rec.Path)
		}
		return out
	}
	require.Eventually(t, func() bool {
		got := paths()
		return assert.ObjectsAreEqual([]string{"/a", "/b"}, got) || assert.ObjectsAreEqual([]string{"/b", "/a"}, got)
	}, 5*time.Second, 20*time.Millisecond, "file created during the initial build must be indexed")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("run did not return after cancel")
	}
}

func TestRun_FailsWhenNoPipelineCanBeWatched(t *testing.T) {
	w := newWorkspace(t)
	cfg := w.load(t, `
pipelines:
  - type: Doc
    root: missing
    pattern: "**/*.md"
`)
	d, err := New(t.Context(), cfg)
	require.NoError(t, err)

	err = d.Run(t.Context())
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRuntime))
	assert.Equal(t, StatusStopped, d.Status())
}
