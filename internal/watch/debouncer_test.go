package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDebouncer(t *testing.T, cfg DebouncerConfig) *Debouncer {
	t.Helper()
	d, err := NewDebouncer(cfg)
	require.NoError(t, err)
	go d.Run(t.Context())
	select {
	case <-d.Ready():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for debouncer ready")
	}
	return d
}

func receive(t *testing.T, d *Debouncer, within time.Duration) []string {
	t.Helper()
	select {
	case b := <-d.Batches():
		return b
	case <-time.After(within):
		t.Fatal("timed out waiting for batch")
		return nil
	}
}

func TestNewDebouncer_Validation(t *testing.T) {
	_, err := NewDebouncer(DebouncerConfig{MaxWait: time.Second})
	require.Error(t, err)
	_, err = NewDebouncer(DebouncerConfig{QuietWindow: time.Second})
	require.Error(t, err)
}

func TestDebouncer_BurstCoalescesToSingleBatch(t *testing.T) {
	d := startDebouncer(t, DebouncerConfig{QuietWindow: 25 * time.Millisecond, MaxWait: time.Second})
	ctx := t.Context()

	for _, p := range []string{"b.md", "a.md", "b.md", "c/d.md", "a.md"} {
		d.Add(ctx, p)
		time.Sleep(2 * time.Millisecond)
	}

	assert.Equal(t, []string{"a.md", "b.md", "c/d.md"}, receive(t, d, time.Second))

	select {
	case b := <-d.Batches():
		t.Fatalf("expected a single batch, got a second one: %v", b)
	case <-time.After(75 * time.Millisecond):
	}
}

func TestDebouncer_MaxWaitForcesBatch(t *testing.T) {
	d := startDebouncer(t, DebouncerConfig{QuietWindow: 50 * time.Millisecond, MaxWait: 120 * time.Millisecond})
	ctx := t.Context()

	stop := make(chan struct{})
	go func() {
		tick := time.NewTicker(10 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				d.Add(ctx, "busy.md")
			}
		}
	}()
	defer close(stop)

	start := time.Now()
	b := receive(t, d, time.Second)
	assert.Equal(t, []string{"busy.md"}, b)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestDebouncer_MergesWhileConsumerBusy(t *testing.T) {
	d := startDebouncer(t, DebouncerConfig{QuietWindow: 10 * time.Millisecond, MaxWait: 50 * time.Millisecond})
	ctx := t.Context()

	d.Add(ctx, "one.md")
	// Nobody receives yet: the batch is due but must keep absorbing paths.
	time.Sleep(40 * time.Millisecond)
	d.Add(ctx, "two.md")
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []string{"one.md", "two.md"}, receive(t, d, time.Second))
}

func TestDebouncer_ClosesOnCancel(t *testing.T) {
	d, err := NewDebouncer(DebouncerConfig{QuietWindow: 10 * time.Millisecond, MaxWait: 20 * time.Millisecond})
	require.NoError(t, err)
	ctx, cancel := contextWithCancel(t)
	go d.Run(ctx)
	<-d.Ready()
	cancel()

	select {
	case _, ok := <-d.Batches():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("batches channel not closed")
	}
}
