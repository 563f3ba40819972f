package build

import (
	"errors"
	"os"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/util/sets"
	"git.home.luguber.info/inful/contented/internal/watch"
)

// Discover returns the root-relative files matching any of patterns in
// lexical order. Hidden and editor temp files (or files below such
// directories) are never content, matching what the watcher reports.
func Discover(root string, patterns []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, ferrors.IOError(root).WithCause(err).Build()
	}
	if !info.IsDir() {
		return nil, ferrors.IOError(root).WithCause(errors.New("pipeline root is not a directory")).Build()
	}

	fsys := os.DirFS(root)
	seen := sets.New[string]()
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
		if err != nil {
			if errors.Is(err, doublestar.ErrBadPattern) {
				return nil, ferrors.ConfigError("invalid glob pattern").WithContext("pattern", pattern).Build()
			}
			return nil, ferrors.IOError(root).WithCause(err).Build()
		}
		for _, m := range matches {
			if ignored(m) {
				continue
			}
			seen.Add(m)
		}
	}

	return sets.Sorted(seen), nil
}

// DiscoverUnder restricts Discover to files at or below dir.
func DiscoverUnder(root string, patterns []string, dir string) ([]string, error) {
	files, err := Discover(root, patterns)
	if err != nil {
		return nil, err
	}
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return files, nil
	}
	return slices.DeleteFunc(files, func(f string) bool {
		return !strings.HasPrefix(f, dir+"/")
	}), nil
}

func ignored(rel string) bool {
	for seg := range strings.SplitSeq(rel, "/") {
		if watch.ShouldIgnore(seg) {
			return true
		}
	}
	return false
}
