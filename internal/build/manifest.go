package build

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/contented/internal/index"
)

// ManifestWriter persists the pipeline manifest.
type ManifestWriter interface {
	WriteManifest(ctx context.Context, m index.Manifest) error
}

// Manifest aggregates the latest commit of every pipeline sharing an
// output directory. It is safe for concurrent use by coordinators.
type Manifest struct {
	mu      sync.Mutex
	store   ManifestWriter
	entries map[string]index.ManifestEntry
	now     func() time.Time
}

// NewManifest creates a manifest persisted through store, seeded with the
// entries of a previously written manifest.
func NewManifest(store ManifestWriter, previous index.Manifest) *Manifest {
	m := &Manifest{store: store, entries: make(map[string]index.ManifestEntry), now: time.Now}
	for _, e := range previous.Pipelines {
		m.entries[e.Type] = e
	}
	return m
}

// Update records entry and rewrites the manifest atomically.
func (m *Manifest) Update(ctx context.Context, entry index.ManifestEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Type] = entry
	return m.store.WriteManifest(ctx, m.snapshot())
}

func (m *Manifest) snapshot() index.Manifest {
	out := index.Manifest{GeneratedAt: m.now().UTC(), Pipelines: make([]index.ManifestEntry, 0, len(m.entries))}
	for _, typ := range slices.Sorted(maps.Keys(m.entries)) {
		out.Pipelines = append(out.Pipelines, m.entries[typ])
	}
	return out
}
