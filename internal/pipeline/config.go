package pipeline

import (
	"context"
	"maps"
	"slices"

	"git.home.luguber.info/inful/contented/internal/content"
	"git.home.luguber.info/inful/contented/internal/fields"
	"git.home.luguber.info/inful/contented/internal/processor"
)

// TransformFunc rewrites one record after field resolution. Only the returned
// record is used; the argument is a private copy.
type TransformFunc func(ctx context.Context, rec content.FileContent) (content.FileContent, error)

// SortFunc orders two records; it follows the cmp.Compare convention.
type SortFunc func(a, b content.FileIndex) int

// Config declares one content pipeline.
type Config struct {
	Type      string
	Root      string
	Patterns  []string
	Processor string
	Options   processor.Options
	Fields    map[string]fields.Spec
	Transform TransformFunc
	Sort      SortFunc
}

// Clone returns a copy of c that shares no maps or slices with it.
func (c Config) Clone() Config {
	out := c
	out.Patterns = slices.Clone(c.Patterns)
	out.Options = maps.Clone(c.Options)
	out.Fields = maps.Clone(c.Fields)
	return out
}
