package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/contented/internal/content"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/pipeline"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaultsAndResolvesPaths(t *testing.T) {
	path := writeConfig(t, `
pipelines:
  - type: Doc
    root: docs
    pattern: "**/*.md"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, dir, cfg.BaseDir())
	assert.Equal(t, filepath.Join(dir, ".contented"), cfg.Output.Directory)
	assert.Equal(t, 8, cfg.Build.Concurrency)
	assert.Equal(t, "skip", cfg.Build.OnError)
	assert.Equal(t, "200ms", cfg.Build.Debounce)
	assert.Equal(t, "2s", cfg.Build.MaxWait)
	assert.Zero(t, cfg.Build.ResyncDuration())
	assert.Equal(t, "contented.index", cfg.NATS.Subject)
	assert.False(t, cfg.NATS.Enabled())
	assert.False(t, cfg.Journal.Enabled())
	assert.False(t, cfg.Server.Enabled())

	require.Len(t, cfg.Pipelines, 1)
	p := cfg.Pipelines[0]
	assert.Equal(t, filepath.Join(dir, "docs"), p.Root)
	assert.Equal(t, Patterns{"**/*.md"}, p.Pattern)
	assert.Equal(t, "md", p.Processor)
}

func TestLoadPatternList(t *testing.T) {
	path := writeConfig(t, `
pipelines:
  - type: Doc
    pattern: ["**/*.md", "**/*.mdx"]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Patterns{"**/*.md", "**/*.mdx"}, cfg.Pipelines[0].Pattern)
	assert.Equal(t, filepath.Dir(path), cfg.Pipelines[0].Root)
}

func TestLoadExpandsEnvironmentAndDotEnv(t *testing.T) {
	path := writeConfig(t, `
server: {listen: "${CONTENTED_TEST_LISTEN}"}
nats: {url: "${CONTENTED_TEST_NATS}"}
pipelines:
  - type: Doc
    pattern: "**/*.md"
`)
	env := "CONTENTED_TEST_LISTEN=127.0.0.1:9999\nCONTENTED_TEST_NATS=nats://from-dotenv:4222\n"
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte(env), 0o600))
	t.Setenv("CONTENTED_TEST_NATS", "nats://from-env:4222")
	// godotenv sets CONTENTED_TEST_LISTEN for the process; clear it afterwards.
	t.Cleanup(func() { _ = os.Unsetenv("CONTENTED_TEST_LISTEN") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Listen)
	assert.Equal(t, "nats://from-env:4222", cfg.NATS.URL, "existing environment wins over .env")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
pipelines:
  - type: Doc
    pattern: "**/*.md"
    procesor: md
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestLoadKeepsAbsolutePathsAndMemoryJournal(t *testing.T) {
	out := t.TempDir()
	path := writeConfig(t, `
output: {directory: `+out+`}
journal: {path: ":memory:"}
pipelines:
  - type: Doc
    pattern: "**/*.md"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, out, cfg.Output.Directory)
	assert.Equal(t, ":memory:", cfg.Journal.Path)
}

func TestPipelineConfigsCompileDeclarations(t *testing.T) {
	cfg, err := Parse([]byte(`
pipelines:
  - type: Doc
    pattern: "**/*.md"
    options: {unsafe: true}
    fields:
      title: {type: string, required: true, default: Contented}
      order: {type: number}
    transform: {strip_path_prefix: /docs, drop_sections: 1, set_fields: {kind: guide}}
    sort: {by: fields.order}
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	pcs, err := cfg.PipelineConfigs(nil)
	require.NoError(t, err)
	require.Len(t, pcs, 1)
	pc := pcs[0]

	assert.Equal(t, "Doc", pc.Type)
	assert.Equal(t, []string{"**/*.md"}, pc.Patterns)
	assert.Equal(t, true, pc.Options["unsafe"])
	require.Contains(t, pc.Fields, "title")
	assert.True(t, pc.Fields["title"].Required)
	require.NotNil(t, pc.Fields["title"].Resolve)
	v, err := pc.Fields["title"].Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, "Contented", v)
	assert.Nil(t, pc.Fields["order"].Resolve)

	require.NotNil(t, pc.Transform)
	rec, err := pc.Transform(context.Background(), content.FileContent{
		FileIndex: content.FileIndex{
			Path:     "/docs/guide",
			Sections: []string{"docs", "guide"},
			Fields:   map[string]any{},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "/guide", rec.Path)
	assert.Equal(t, []string{"guide"}, rec.Sections)
	assert.Equal(t, "guide", rec.Fields["kind"])

	require.NotNil(t, pc.Sort)
	a := content.FileIndex{Fields: map[string]any{"order": 1.0}}
	b := content.FileIndex{Fields: map[string]any{"order": 2.0}}
	assert.Negative(t, pc.Sort(a, b))
}

func TestPipelineConfigsResolveNamedHooks(t *testing.T) {
	hooks := pipeline.NewHooks()
	require.NoError(t, hooks.RegisterTransform("upper", func(_ context.Context, rec content.FileContent) (content.FileContent, error) {
		rec.Path = "/hooked"
		return rec, nil
	}))
	cfg, err := Parse([]byte(`
pipelines:
  - type: Doc
    pattern: "**/*.md"
    transform: {hook: upper}
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	pcs, err := cfg.PipelineConfigs(hooks)
	require.NoError(t, err)
	rec, err := pcs[0].Transform(context.Background(), content.FileContent{FileIndex: content.FileIndex{Fields: map[string]any{}}})
	require.NoError(t, err)
	assert.Equal(t, "/hooked", rec.Path)

	_, err = cfg.PipelineConfigs(nil)
	require.Error(t, err)
	assert.Equal(t, "Doc", ferrors.ContextString(err, "pipeline"))
}

func TestInitWritesLoadableExample(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, Init(path, false))

	err := Init(path, false)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	require.NoError(t, Init(path, true))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Pipelines, 1)
	doc := cfg.Pipelines[0]
	assert.Equal(t, "Doc", doc.Type)
	assert.Equal(t, Patterns{"**/*.md"}, doc.Pattern)
	assert.Equal(t, "Contented", doc.Fields["title"].Default)
	assert.Equal(t, 1, doc.Transform.DropSections)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LoggingConfig{Level: "warn", Format: "json"}.NewLogger(&buf, false)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	logger = LoggingConfig{Level: "error", Format: "text"}.NewLogger(&buf, true)
	logger.Debug("verbose wins")
	assert.Contains(t, buf.String(), "msg=\"verbose wins\"")
}
