package index

import (
	"maps"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/contented/internal/content"
)

// Collision reports a source file that was left out of a snapshot because
// one of its canonical paths was already claimed.
type Collision struct {
	Path    string
	Kept    string // source file that owns Path
	Dropped string // source file left out
}

// Document is the persisted form of a pipeline snapshot.
type Document struct {
	Type        string                `json:"type"`
	BatchID     string                `json:"batch_id"`
	GeneratedAt time.Time             `json:"generated_at"`
	Count       int                   `json:"count"`
	Records     []content.FileContent `json:"records"`
}

// Find returns the first record with the given id.
func (d Document) Find(id string) (content.FileContent, bool) {
	for _, rec := range d.Records {
		if rec.ID == id {
			return rec, true
		}
	}
	return content.FileContent{}, false
}

// SortFunc orders a flattened record list.
type SortFunc func([]content.FileContent) []content.FileContent

// Snapshot flattens the index, resolves path collisions and orders the
// result with sortFn (nil keeps discovery order).
//
// Files are admitted in lexical source order; a file is admitted only when
// none of its paths is already taken, so the lexically-first file keeps a
// contested path and the result depends only on the indexed content.
func (ix *Index) Snapshot(batchID string, now time.Time, sortFn SortFunc) (Document, []Collision) {
	ids := slices.SortedFunc(maps.Keys(ix.files), func(a, b string) int {
		return strings.Compare(ix.files[a].file, ix.files[b].file)
	})

	owner := make(map[string]string)
	records := make([]content.FileContent, 0, ix.Len())
	var collisions []Collision

	for _, id := range ids {
		e := ix.files[id]
		claimed := make(map[string]bool, len(e.records))
		var clash *Collision
		for _, rec := range e.records {
			if kept, taken := owner[rec.Path]; taken {
				clash = &Collision{Path: rec.Path, Kept: kept, Dropped: e.file}
				break
			}
			if claimed[rec.Path] {
				clash = &Collision{Path: rec.Path, Kept: e.file, Dropped: e.file}
				break
			}
			claimed[rec.Path] = true
		}
		if clash != nil {
			collisions = append(collisions, *clash)
			continue
		}
		for p := range claimed {
			owner[p] = e.file
		}
		records = append(records, e.records...)
	}

	if sortFn != nil {
		records = sortFn(records)
	}
	return Document{
		Type:        ix.typ,
		BatchID:     batchID,
		GeneratedAt: now.UTC(),
		Count:       len(records),
		Records:     records,
	}, collisions
}
