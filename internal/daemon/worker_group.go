package daemon

import (
	"context"
	"sync"
)

// WorkerGroup runs the per-pipeline watch loops. Once shutdown begins it
// refuses new loops, which keeps WaitGroup.Add from racing the final Wait.
type WorkerGroup struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// Go runs loop in its own goroutine and reports whether it was started.
func (g *WorkerGroup) Go(loop func()) bool {
	if loop == nil {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		loop()
	}()
	return true
}

// StopAndWait closes the group and blocks until every running loop has
// returned or ctx expires, whichever comes first.
func (g *WorkerGroup) StopAndWait(ctx context.Context) error {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		g.wg.Wait()
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
