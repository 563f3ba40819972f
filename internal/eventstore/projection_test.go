package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(t *testing.T, j *Journal, e Event, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, j.Record(t.Context(), e))
}

func TestJournalHistory(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	j := NewJournal(store, 10)
	defer func() { _ = j.Close() }()

	e1, err := NewBatchStarted("b1", "Doc", KindFull, 2)
	record(t, j, e1, err)
	e2, err := NewFileFailed("b1", "Doc", "bad.md", "validation", "required field")
	record(t, j, e2, err)
	e3, err := NewBatchCommitted("b1", "Doc", 1, 1, 20*time.Millisecond)
	record(t, j, e3, err)

	e4, err := NewBatchStarted("b2", "Doc", KindIncremental, 1)
	e4.EventTimestamp = e1.Timestamp().Add(time.Second)
	record(t, j, e4, err)
	e5, err := NewBatchAborted("b2", "Doc", "persist failed")
	record(t, j, e5, err)

	history := j.History()
	require.Len(t, history, 2)
	assert.Equal(t, "b2", history[0].BatchID, "newest first")
	assert.Equal(t, StatusAborted, history[0].Status)
	assert.Equal(t, "persist failed", history[0].Reason)

	b1, ok := j.Batch("b1")
	require.True(t, ok)
	assert.Equal(t, StatusCommitted, b1.Status)
	assert.Equal(t, KindFull, b1.Kind)
	assert.Equal(t, 2, b1.Files)
	assert.Equal(t, 1, b1.Records)
	assert.Equal(t, []string{"bad.md"}, b1.Failed)
	assert.NotNil(t, b1.CompletedAt)

	// A fresh projection over the same store sees the same history.
	fresh := NewJournal(store, 10)
	require.NoError(t, fresh.Load(t.Context()))
	again, ok := fresh.Batch("b1")
	require.True(t, ok)
	assert.Equal(t, b1.Status, again.Status)
	assert.Equal(t, b1.Failed, again.Failed)
}

func TestProjectionPrunes(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	p := NewBatchHistoryProjection(store, 2)
	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		p.Apply(&BaseEvent{EventBatchID: id, EventType: TypeBatchStarted, EventTimestamp: base.Add(time.Duration(i) * time.Second), EventPayload: []byte(`{}`)})
	}

	history := p.History()
	require.Len(t, history, 2)
	assert.Equal(t, "c", history[0].BatchID)
	assert.Equal(t, "b", history[1].BatchID)
}

func TestNilJournal(t *testing.T) {
	var j *Journal
	assert.NoError(t, j.Record(t.Context(), &BaseEvent{}))
	assert.Empty(t, j.History())
	assert.NoError(t, j.Close())
}
