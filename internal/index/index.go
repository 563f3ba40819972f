// Package index holds the aggregated content index of a pipeline and
// persists sorted snapshots of it.
package index

import (
	"maps"
	"slices"
	"strings"

	"git.home.luguber.info/inful/contented/internal/content"
)

type entry struct {
	file    string
	records []content.FileContent
}

// Index is the aggregate of one pipeline: records grouped by the id of the
// source file that produced them. An Index is not safe for concurrent
// mutation; the build coordinator patches a Clone and swaps it in.
type Index struct {
	typ   string
	files map[string]entry
}

// New creates an empty index for a content type.
func New(typ string) *Index {
	return &Index{typ: typ, files: make(map[string]entry)}
}

// Type returns the content type of the index.
func (ix *Index) Type() string { return ix.typ }

// Clone returns an independent copy. Records are copied by value, so
// patching the clone never changes ix.
func (ix *Index) Clone() *Index {
	out := &Index{typ: ix.typ, files: make(map[string]entry, len(ix.files))}
	for id, e := range ix.files {
		out.files[id] = entry{file: e.file, records: slices.Clone(e.records)}
	}
	return out
}

// Replace sets the records of the source file id. An empty record list
// removes the file.
func (ix *Index) Replace(id, file string, records []content.FileContent) {
	if len(records) == 0 {
		delete(ix.files, id)
		return
	}
	ix.files[id] = entry{file: file, records: slices.Clone(records)}
}

// Remove deletes the records of id and reports whether it was present.
func (ix *Index) Remove(id string) bool {
	_, ok := ix.files[id]
	delete(ix.files, id)
	return ok
}

// RemoveUnder deletes every file located at dir or below it and returns the
// removed source files in lexical order.
func (ix *Index) RemoveUnder(dir string) []string {
	dir = strings.Trim(dir, "/")
	var removed []string
	for id, e := range ix.files {
		if dir == "" || e.file == dir || strings.HasPrefix(e.file, dir+"/") {
			removed = append(removed, e.file)
			delete(ix.files, id)
		}
	}
	slices.Sort(removed)
	return removed
}

// Has reports whether id has records.
func (ix *Index) Has(id string) bool {
	_, ok := ix.files[id]
	return ok
}

// Files returns the indexed source files in lexical order.
func (ix *Index) Files() []string {
	files := make([]string, 0, len(ix.files))
	for _, e := range ix.files {
		files = append(files, e.file)
	}
	slices.Sort(files)
	return files
}

// Len returns the number of records across all files.
func (ix *Index) Len() int {
	n := 0
	for _, e := range ix.files {
		n += len(e.records)
	}
	return n
}

// Records returns all records in discovery order: lexical source path, then
// the order the processor emitted them.
func (ix *Index) Records() []content.FileContent {
	ids := slices.SortedFunc(maps.Keys(ix.files), func(a, b string) int {
		return strings.Compare(ix.files[a].file, ix.files[b].file)
	})
	out := make([]content.FileContent, 0, ix.Len())
	for _, id := range ids {
		out = append(out, ix.files[id].records...)
	}
	return out
}
