package slug

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultStripPatterns are the ordering markers removed from path segments.
// Each pattern has exactly one capture group holding the remainder.
var DefaultStripPatterns = []string{
	`^:\d+:[-_ ]?(.+)$`,
	`^\(\d+\)[-_ ]?(.+)$`,
	`^\[\d+\][-_ ]?(.+)$`,
	`^\d+-(.+)$`,
}

// ParentSegment passes through path derivation untouched.
const ParentSegment = ".."

// Resolver maps pipeline-relative file paths to sections and canonical paths.
type Resolver struct {
	patterns []*regexp.Regexp
}

// NewResolver compiles the given strip patterns in order. An empty list
// selects DefaultStripPatterns.
func NewResolver(patterns []string) (*Resolver, error) {
	if len(patterns) == 0 {
		patterns = DefaultStripPatterns
	}
	r := &Resolver{patterns: make([]*regexp.Regexp, 0, len(patterns))}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("strip pattern %q: %w", p, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("strip pattern %q: want exactly one capture group, got %d", p, re.NumSubexp())
		}
		r.patterns = append(r.patterns, re)
	}
	return r, nil
}

// DefaultResolver returns a resolver using DefaultStripPatterns.
func DefaultResolver() *Resolver {
	r, err := NewResolver(nil)
	if err != nil {
		panic(err)
	}
	return r
}

// StripMarker removes one leading ordering marker. Only the first marker is
// stripped, so "2024-01-15-hello" keeps its date as "01-15-hello".
func (r *Resolver) StripMarker(segment string) string {
	for _, re := range r.patterns {
		if m := re.FindStringSubmatch(segment); m != nil && m[1] != "" && m[1] != segment {
			return m[1]
		}
	}
	return segment
}

// CanonicalSegment returns the public form of a raw path segment: its marker
// stripped, then slugified.
func (r *Resolver) CanonicalSegment(segment string) string {
	if segment == ParentSegment {
		return segment
	}
	return Slugify(r.StripMarker(segment))
}

func sectionSlug(section string) string {
	if section == ParentSegment {
		return section
	}
	return Slugify(section)
}

// Sections returns the marker-stripped directory segments of file, in
// hierarchy order. file is relative to the pipeline root.
func (r *Resolver) Sections(file string) []string {
	dir := path.Dir(filepath.ToSlash(file))
	if dir == "." || dir == "" || dir == "/" {
		return []string{}
	}
	parts := strings.Split(strings.Trim(dir, "/"), "/")
	sections := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "." {
			continue
		}
		if p == ParentSegment {
			sections = append(sections, p)
			continue
		}
		sections = append(sections, r.StripMarker(p))
	}
	return sections
}

// ComputePath joins the slugified sections with the canonical base name of
// file. Sections are already marker-stripped and are not stripped again, so
// deriving a path from canonical sections yields the same path. A base name
// of "index" maps to its directory. The result always starts with "/".
func (r *Resolver) ComputePath(sections []string, file string) string {
	segs := make([]string, 0, len(sections)+1)
	for _, s := range sections {
		segs = append(segs, sectionSlug(s))
	}
	if name := r.CanonicalSegment(baseName(file)); name != "index" {
		segs = append(segs, name)
	}
	return "/" + strings.Join(segs, "/")
}

// Resolve returns sections and canonical path for file.
func (r *Resolver) Resolve(file string) (sections []string, canonical string) {
	sections = r.Sections(file)
	return sections, r.ComputePath(sections, file)
}

// SanitizedPath returns the canonical path of file without the leading slash.
func (r *Resolver) SanitizedPath(file string) string {
	_, p := r.Resolve(file)
	return strings.TrimPrefix(p, "/")
}

// baseName returns the file name without its final extension.
func baseName(file string) string {
	name := path.Base(filepath.ToSlash(file))
	if ext := path.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}

// ID returns the content address of a source file: the hex SHA-256 of its
// cleaned absolute path. Identity follows location, not content.
func ID(absPath string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(absPath)))
	return hex.EncodeToString(sum[:])
}
