package eventstore

import "context"

// Journal records batch events into a Store and keeps a history projection
// current. A nil *Journal discards everything.
type Journal struct {
	store      Store
	projection *BatchHistoryProjection
}

// NewJournal wraps store; historySize bounds the in-memory batch history.
func NewJournal(store Store, historySize int) *Journal {
	return &Journal{store: store, projection: NewBatchHistoryProjection(store, historySize)}
}

// Load rebuilds the history from the store.
func (j *Journal) Load(ctx context.Context) error {
	if j == nil {
		return nil
	}
	return j.projection.Rebuild(ctx)
}

// Record appends e and applies it to the history.
func (j *Journal) Record(ctx context.Context, e Event) error {
	if j == nil {
		return nil
	}
	if err := j.store.Append(ctx, e); err != nil {
		return err
	}
	j.projection.Apply(e)
	return nil
}

// History returns the retained batch summaries, newest first.
func (j *Journal) History() []BatchSummary {
	if j == nil {
		return []BatchSummary{}
	}
	return j.projection.History()
}

// Batch returns one batch summary.
func (j *Journal) Batch(batchID string) (BatchSummary, bool) {
	if j == nil {
		return BatchSummary{}, false
	}
	return j.projection.Get(batchID)
}

// Close closes the underlying store.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.store.Close()
}
