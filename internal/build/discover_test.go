package build

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{
		"b.md", "a.md", "guide/c.md", "guide/page.html",
		".hidden.md", ".git/HEAD.md", "guide/draft.md~", "notes.txt",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "dir.md"), 0o750))

	files, err := Discover(root, []string{"**/*.md", "*.md", "guide/*.html"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md", "guide/c.md", "guide/page.html"}, files)

	under, err := DiscoverUnder(root, []string{"**/*"}, "guide")
	require.NoError(t, err)
	assert.Equal(t, []string{"guide/c.md", "guide/page.html"}, under)
}

func TestDiscover_MissingRoot(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "missing"), []string{"**/*.md"})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryFileSystem))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicySkip, p)

	p, err = ParsePolicy(" Abort ")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	_, err = ParsePolicy("retry")
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestStateTransitions(t *testing.T) {
	var m stateMachine
	require.NoError(t, m.to(StateBuilding))
	require.Error(t, m.to(StateRebuilding))
	require.NoError(t, m.to(StateWatching))
	require.NoError(t, m.to(StateRebuilding))
	err := m.to(StateIdle)
	require.Error(t, err)
	assert.Equal(t, "rebuilding", ferrors.ContextString(err, "from"))
	require.NoError(t, m.to(StateWatching))
	require.NoError(t, m.to(StateIdle))
	assert.Equal(t, "idle", m.get().String())
}
