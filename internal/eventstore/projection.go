package eventstore

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"
)

// Batch statuses.
const (
	StatusRunning   = "running"
	StatusCommitted = "committed"
	StatusAborted   = "aborted"
)

// BatchSummary is a read model of one journaled batch.
type BatchSummary struct {
	BatchID     string     `json:"batch_id"`
	Pipeline    string     `json:"pipeline"`
	Kind        BatchKind  `json:"kind"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Files       int        `json:"files"`
	Records     int        `json:"records"`
	Failed      []string   `json:"failed,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// BatchHistoryProjection maintains an in-memory view of recent batches,
// reconstructed from the journal and kept current with Apply.
type BatchHistoryProjection struct {
	mu      sync.RWMutex
	store   Store
	batches map[string]*BatchSummary
	maxSize int
}

// NewBatchHistoryProjection creates a projection backed by store.
func NewBatchHistoryProjection(store Store, maxHistorySize int) *BatchHistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = 100
	}
	return &BatchHistoryProjection{
		store:   store,
		batches: make(map[string]*BatchSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from all journaled events.
func (p *BatchHistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = make(map[string]*BatchSummary)
	for _, e := range events {
		p.applyLocked(e)
	}
	p.pruneLocked()
	return nil
}

// Apply folds one event into the projection.
func (p *BatchHistoryProjection) Apply(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyLocked(e)
	p.pruneLocked()
}

func (p *BatchHistoryProjection) applyLocked(e Event) {
	if e.BatchID() == "" {
		return
	}
	s, ok := p.batches[e.BatchID()]
	if !ok {
		s = &BatchSummary{BatchID: e.BatchID(), Pipeline: e.Pipeline(), Status: StatusRunning, StartedAt: e.Timestamp()}
		p.batches[e.BatchID()] = s
	}

	switch e.Type() {
	case TypeBatchStarted:
		var payload struct {
			Kind  BatchKind `json:"kind"`
			Files int       `json:"files"`
		}
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			s.Kind = payload.Kind
			s.Files = payload.Files
		}
		s.StartedAt = e.Timestamp()
	case TypeFileFailed:
		var payload struct {
			File string `json:"file"`
		}
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			s.Failed = append(s.Failed, payload.File)
		}
	case TypeBatchCommitted:
		var payload struct {
			Records int `json:"records"`
		}
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			s.Records = payload.Records
		}
		done := e.Timestamp()
		s.CompletedAt = &done
		s.Status = StatusCommitted
	case TypeBatchAborted:
		var payload struct {
			Reason string `json:"reason"`
		}
		if err := json.Unmarshal(e.Payload(), &payload); err == nil {
			s.Reason = payload.Reason
		}
		done := e.Timestamp()
		s.CompletedAt = &done
		s.Status = StatusAborted
	}
}

// pruneLocked keeps the newest maxSize batches.
func (p *BatchHistoryProjection) pruneLocked() {
	if len(p.batches) <= p.maxSize {
		return
	}
	for _, s := range p.sortedLocked()[p.maxSize:] {
		delete(p.batches, s.BatchID)
	}
}

func (p *BatchHistoryProjection) sortedLocked() []*BatchSummary {
	out := make([]*BatchSummary, 0, len(p.batches))
	for _, s := range p.batches {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b *BatchSummary) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(b.BatchID, a.BatchID)
	})
	return out
}

// History returns copies of the retained batches, newest first.
func (p *BatchHistoryProjection) History() []BatchSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sorted := p.sortedLocked()
	out := make([]BatchSummary, 0, len(sorted))
	for _, s := range sorted {
		c := *s
		c.Failed = slices.Clone(s.Failed)
		out = append(out, c)
	}
	return out
}

// Get returns a copy of one batch summary.
func (p *BatchHistoryProjection) Get(batchID string) (BatchSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.batches[batchID]
	if !ok {
		return BatchSummary{}, false
	}
	c := *s
	c.Failed = slices.Clone(s.Failed)
	return c, true
}
