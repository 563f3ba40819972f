package watch

import (
	"context"
	"slices"
	"sync"
	"time"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/util/sets"
)

// DebouncerConfig controls how file system events are coalesced.
type DebouncerConfig struct {
	// QuietWindow is the time without new events after which a batch is emitted.
	QuietWindow time.Duration
	// MaxWait bounds how long a busy tree can postpone a batch.
	MaxWait time.Duration
}

// Debouncer coalesces changed paths into batches.
//
// Paths added while a batch is waiting to be received (for example while the
// consumer is still rebuilding the previous batch) are merged into it, so a
// consumer never sees two batches in flight and no change is lost.
type Debouncer struct {
	cfg DebouncerConfig
	in  chan []string
	out chan []string

	readyOnce sync.Once
	ready     chan struct{}
}

// NewDebouncer validates cfg and creates a debouncer. Call Run to start it.
func NewDebouncer(cfg DebouncerConfig) (*Debouncer, error) {
	if cfg.QuietWindow <= 0 {
		return nil, ferrors.ConfigError("debounce window must be > 0").Build()
	}
	if cfg.MaxWait <= 0 {
		return nil, ferrors.ConfigError("max wait must be > 0").Build()
	}
	if cfg.MaxWait < cfg.QuietWindow {
		cfg.MaxWait = cfg.QuietWindow
	}
	return &Debouncer{
		cfg:   cfg,
		in:    make(chan []string, 64),
		out:   make(chan []string),
		ready: make(chan struct{}),
	}, nil
}

// Ready is closed once Run is accepting paths.
func (d *Debouncer) Ready() <-chan struct{} { return d.ready }

// Batches delivers sorted, de-duplicated path batches.
func (d *Debouncer) Batches() <-chan []string { return d.out }

// Add queues changed paths. It blocks only when the internal buffer is
// full and returns early when ctx is done.
func (d *Debouncer) Add(ctx context.Context, paths ...string) {
	if len(paths) == 0 {
		return
	}
	select {
	case d.in <- slices.Clone(paths):
	case <-ctx.Done():
	}
}

// Run coalesces paths until ctx is done. The Batches channel is closed on return.
func (d *Debouncer) Run(ctx context.Context) {
	defer close(d.out)
	d.readyOnce.Do(func() { close(d.ready) })

	quietTimer := newStoppedTimer()
	maxTimer := newStoppedTimer()

	var (
		pending = sets.New[string]()
		quietC  <-chan time.Time
		maxC    <-chan time.Time
		out     chan<- []string
		batch   []string
	)

	for {
		select {
		case <-ctx.Done():
			quietTimer.Stop()
			maxTimer.Stop()
			return

		case paths := <-d.in:
			first := len(pending) == 0
			pending.Add(paths...)
			if out != nil {
				// Already due; fold the new paths into the waiting batch.
				batch = sets.Sorted(pending)
				continue
			}
			resetTimer(quietTimer, d.cfg.QuietWindow)
			quietC = quietTimer.C
			if first {
				resetTimer(maxTimer, d.cfg.MaxWait)
				maxC = maxTimer.C
			}

		case <-quietC:
			quietC, maxC = nil, nil
			maxTimer.Stop()
			out, batch = d.out, sets.Sorted(pending)

		case <-maxC:
			quietC, maxC = nil, nil
			quietTimer.Stop()
			out, batch = d.out, sets.Sorted(pending)

		case out <- batch:
			out, batch = nil, nil
			clear(pending)
		}
	}
}

func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func resetTimer(t *time.Timer, after time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(after)
}
