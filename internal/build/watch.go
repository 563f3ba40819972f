package build

import (
	"context"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/logfields"
)

// Watch applies change batches one at a time until ctx is done or batches
// is closed. A value on resync runs a full rebuild through the same loop,
// so resyncs and incremental batches never overlap. While the coordinator
// is stale every batch is served by a full rebuild instead, since the
// changes of a discarded batch are not replayed. The coordinator must have
// completed its initial build.
func (c *Coordinator) Watch(ctx context.Context, batches <-chan []string, resync <-chan struct{}) error {
	if st := c.State(); st != StateWatching {
		return ferrors.InternalError("watch requires a completed initial build").
			WithContext("state", st.String()).
			Build()
	}
	typ := c.pipeline.Type()
	for {
		select {
		case <-ctx.Done():
			return nil
		case paths, ok := <-batches:
			if !ok {
				return nil
			}
			c.recorder.AddWatchEvents(typ, len(paths))
			c.logger.Debug("Change batch received", logfields.Count(len(paths)))
			if c.Stale() {
				c.logger.Info("Index is stale, rebuilding in full")
				if _, err := c.FullBuild(ctx); err != nil && ctx.Err() == nil {
					c.logger.Error("Full rebuild failed", logfields.Error(err))
				}
				continue
			}
			if _, err := c.ApplyBatch(ctx, paths); err != nil && ctx.Err() == nil {
				c.logger.Error("Incremental build failed", logfields.Error(err))
			}
		case <-resync:
			c.logger.Info("Periodic resync")
			if _, err := c.FullBuild(ctx); err != nil && ctx.Err() == nil {
				c.logger.Error("Resync failed", logfields.Error(err))
			}
		}
	}
}
