package watch

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextWithCancel(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)
	return ctx, cancel
}

func mdOnly(rel string) bool { return strings.HasSuffix(rel, ".md") }

// collect reads batches until want is contained or the deadline passes.
func collect(t *testing.T, w *Watcher, want ...string) []string {
	t.Helper()
	seen := map[string]bool{}
	deadline := time.After(3 * time.Second)
	for {
		done := true
		for _, p := range want {
			if !seen[p] {
				done = false
			}
		}
		if done {
			out := make([]string, 0, len(seen))
			for p := range seen {
				out = append(out, p)
			}
			slices.Sort(out)
			return out
		}
		select {
		case b, ok := <-w.Batches():
			require.True(t, ok, "batches closed early")
			for _, p := range b {
				seen[p] = true
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %v, saw %v", want, seen)
		}
	}
}

func TestShouldIgnore(t *testing.T) {
	cases := map[string]bool{
		"docs/guide.md":     false,
		"docs/.hidden.md":   true,
		"docs/guide.md~":    true,
		"docs/.guide.swp":   true,
		"docs/#guide.md#":   true,
		"docs/upload.tmp":   true,
		"docs/4913":         true,
		"docs/Thumbs.db":    true,
		"docs/sub/index.md": false,
	}
	for p, want := range cases {
		assert.Equal(t, want, ShouldIgnore(p), p)
	}
}

func TestWatcher_EmitsMatchingChanges(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "guide"), 0o750))

	w, err := New(root, mdOnly, DebouncerConfig{QuietWindow: 20 * time.Millisecond, MaxWait: 200 * time.Millisecond})
	require.NoError(t, err)
	ctx, _ := contextWithCancel(t)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.WriteFile(filepath.Join(root, "guide", "intro.md"), []byte("# Intro\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "guide", "notes.txt"), []byte("x"), 0o600))

	got := collect(t, w, "guide/intro.md")
	assert.NotContains(t, got, "guide/notes.txt")
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, mdOnly, DebouncerConfig{QuietWindow: 20 * time.Millisecond, MaxWait: 200 * time.Millisecond})
	require.NoError(t, err)
	ctx, _ := contextWithCancel(t)
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, os.MkdirAll(filepath.Join(root, "added"), 0o750))
	collect(t, w, "added")

	require.NoError(t, os.WriteFile(filepath.Join(root, "added", "page.md"), []byte("# Page\n"), 0o600))
	collect(t, w, "added/page.md")

	require.NoError(t, os.RemoveAll(filepath.Join(root, "added")))
	collect(t, w, "added")
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := New(t.TempDir(), nil, DebouncerConfig{QuietWindow: 10 * time.Millisecond, MaxWait: 20 * time.Millisecond})
	require.NoError(t, err)
	ctx, _ := contextWithCancel(t)

	require.NoError(t, w.Start(ctx))
	require.Error(t, w.Start(ctx))
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	require.Error(t, w.Start(ctx))

	_, ok := <-w.Batches()
	assert.False(t, ok)
}

func TestNew_MissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), nil, DebouncerConfig{QuietWindow: time.Millisecond, MaxWait: time.Millisecond})
	require.NoError(t, err)
	require.Error(t, w.Start(t.Context()))
}
