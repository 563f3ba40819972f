package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"git.home.luguber.info/inful/contented/internal/content"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// TransformSpec is the declarative form of a transform hook.
type TransformSpec struct {
	// StripPathPrefix removes a leading path prefix on a segment boundary.
	StripPathPrefix string
	// DropSections removes that many leading section names.
	DropSections int
	// SetFields assigns constant field values.
	SetFields map[string]any
	// Hook names a registered transform that runs after the steps above.
	Hook string
}

// IsZero reports whether the spec declares no transformation.
func (s TransformSpec) IsZero() bool {
	return s.StripPathPrefix == "" && s.DropSections == 0 && len(s.SetFields) == 0 && s.Hook == ""
}

// SortSpec is the declarative form of a sort hook.
type SortSpec struct {
	// By is one of path, title, modified_date or fields.<name>.
	By         string
	Descending bool
	// Hook names a registered comparator; it excludes By.
	Hook string
}

// IsZero reports whether the spec declares no ordering.
func (s SortSpec) IsZero() bool {
	return s.By == "" && s.Hook == ""
}

// CompileTransform builds a TransformFunc from spec. A zero spec yields nil.
func CompileTransform(spec TransformSpec, hooks *Hooks) (TransformFunc, error) {
	if spec.IsZero() {
		return nil, nil
	}
	if spec.DropSections < 0 {
		return nil, ferrors.ConfigError("transform.drop_sections must not be negative").Build()
	}
	prefix := strings.TrimSuffix(spec.StripPathPrefix, "/")
	if spec.StripPathPrefix != "" && !strings.HasPrefix(prefix, "/") {
		return nil, ferrors.ConfigError(fmt.Sprintf("transform.strip_path_prefix %q must start with /", spec.StripPathPrefix)).Build()
	}

	var hook TransformFunc
	if spec.Hook != "" {
		fn, ok := lookupTransform(hooks, spec.Hook)
		if !ok {
			transforms, _ := hookNames(hooks)
			return nil, ferrors.ConfigError(fmt.Sprintf("unknown transform hook %q", spec.Hook)).
				WithContext("registered", strings.Join(transforms, ", ")).
				Build()
		}
		hook = fn
	}
	setFields := maps.Clone(spec.SetFields)

	return func(ctx context.Context, rec content.FileContent) (content.FileContent, error) {
		if prefix != "" {
			rec.Path = stripPathPrefix(rec.Path, prefix)
		}
		if n := spec.DropSections; n > 0 {
			rec.Sections = rec.Sections[min(n, len(rec.Sections)):]
		}
		maps.Copy(rec.Fields, setFields)
		if hook != nil {
			return hook(ctx, rec)
		}
		return rec, nil
	}, nil
}

func lookupTransform(hooks *Hooks, name string) (TransformFunc, bool) {
	if hooks == nil {
		return nil, false
	}
	return hooks.Transform(name)
}

func hookNames(hooks *Hooks) (transforms, sorts []string) {
	if hooks == nil {
		return nil, nil
	}
	return hooks.Names()
}

func stripPathPrefix(path, prefix string) string {
	if path == prefix {
		return "/"
	}
	if rest, ok := strings.CutPrefix(path, prefix+"/"); ok {
		return "/" + rest
	}
	return path
}

// CompileSort builds a SortFunc from spec. A zero spec yields nil, which
// keeps discovery order.
func CompileSort(spec SortSpec, hooks *Hooks) (SortFunc, error) {
	if spec.IsZero() {
		return nil, nil
	}
	if spec.Hook != "" && spec.By != "" {
		return nil, ferrors.ConfigError("sort.by and sort.hook are mutually exclusive").Build()
	}

	var base SortFunc
	switch {
	case spec.Hook != "":
		if hooks != nil {
			base, _ = hooks.Sort(spec.Hook)
		}
		if base == nil {
			_, sorts := hookNames(hooks)
			return nil, ferrors.ConfigError(fmt.Sprintf("unknown sort hook %q", spec.Hook)).
				WithContext("registered", strings.Join(sorts, ", ")).
				Build()
		}
	case spec.By == "path":
		base = func(a, b content.FileIndex) int { return strings.Compare(a.Path, b.Path) }
	case spec.By == "title":
		base = func(a, b content.FileIndex) int { return strings.Compare(a.FieldString("title"), b.FieldString("title")) }
	case spec.By == "modified_date":
		base = func(a, b content.FileIndex) int { return cmp.Compare(a.ModifiedDate, b.ModifiedDate) }
	case strings.HasPrefix(spec.By, "fields.") && len(spec.By) > len("fields."):
		name := strings.TrimPrefix(spec.By, "fields.")
		desc := spec.Descending
		// Absent values sort last in either direction.
		return func(a, b content.FileIndex) int {
			va, vb := a.Fields[name], b.Fields[name]
			if desc && va != nil && vb != nil {
				return CompareValues(vb, va)
			}
			return CompareValues(va, vb)
		}, nil
	default:
		return nil, ferrors.ConfigError(fmt.Sprintf("unknown sort key %q", spec.By)).Build()
	}

	if spec.Descending {
		return func(a, b content.FileIndex) int { return base(b, a) }, nil
	}
	return base, nil
}

// CompareValues orders field values: absent values sort last, numbers
// numerically, times chronologically, booleans false first and everything
// else by its string form.
func CompareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}

	if ia, ok := a.(int64); ok {
		if ib, ok := b.(int64); ok {
			return cmp.Compare(ia, ib)
		}
	}
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
