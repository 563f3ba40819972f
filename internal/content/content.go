// Package content defines the records emitted by content pipelines.
package content

import (
	"maps"
	"slices"
)

// FileIndex is the identity and location record for one source file,
// independent of its body content.
type FileIndex struct {
	ID           string         `json:"id"`            // sha256 of the absolute source path
	Type         string         `json:"type"`          // Owning pipeline type
	Path         string         `json:"path"`          // Canonical public path, always starts with "/"
	File         string         `json:"file"`          // Source path relative to the pipeline root (slash separated)
	ModifiedDate int64          `json:"modified_date"` // Unix milliseconds
	Sections     []string       `json:"sections"`      // Marker-stripped directory segments
	Fields       map[string]any `json:"fields"`
}

// Heading is one entry of a record's table of contents.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id,omitempty"`
}

// FileContent is a FileIndex extended with extracted body content. It is the
// unit persisted in the content index.
type FileContent struct {
	FileIndex
	HTML        string         `json:"html"`
	Headings    []Heading      `json:"headings,omitempty"`
	Fingerprint string         `json:"fingerprint,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Clone returns a deep copy of the slice and map headers so hooks can modify
// the result without touching the original. Field values themselves are
// shallow copied.
func (f FileIndex) Clone() FileIndex {
	out := f
	if f.Sections != nil {
		out.Sections = slices.Clone(f.Sections)
	} else {
		out.Sections = []string{}
	}
	out.Fields = make(map[string]any, len(f.Fields))
	maps.Copy(out.Fields, f.Fields)
	return out
}

// Clone returns a copy of fc that shares no slices or maps with it.
func (fc FileContent) Clone() FileContent {
	out := fc
	out.FileIndex = fc.FileIndex.Clone()
	if fc.Headings != nil {
		out.Headings = slices.Clone(fc.Headings)
	}
	if fc.Extra != nil {
		out.Extra = maps.Clone(fc.Extra)
	}
	return out
}

// FieldString returns a string field value, or "" when absent or not a string.
func (f FileIndex) FieldString(name string) string {
	s, _ := f.Fields[name].(string)
	return s
}
