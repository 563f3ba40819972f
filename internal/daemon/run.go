package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/contented/internal/build"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/logfields"
	"git.home.luguber.info/inful/contented/internal/server"
	"git.home.luguber.info/inful/contented/internal/watch"
)

// ShutdownTimeout bounds how long Run waits for watchers, in-flight batches
// and the read API after its context is canceled.
const ShutdownTimeout = 10 * time.Second

type runner struct {
	coord   *build.Coordinator
	watcher *watch.Watcher
	logger  *slog.Logger
	resync  chan struct{}
}

func (r *runner) typ() string { return r.coord.Pipeline().Type() }

// Build runs one full build of every pipeline. Pipelines build concurrently
// and independently: the error joins the failures of every pipeline that
// did not commit, including disabled ones.
func (d *Daemon) Build(ctx context.Context) (map[string]build.Result, error) {
	results := make(map[string]build.Result, len(d.runners))
	errs := d.disabledErrors()

	var mu sync.Mutex
	var g errgroup.Group
	for _, r := range d.runners {
		g.Go(func() error {
			res, err := r.coord.FullBuild(ctx)
			mu.Lock()
			defer mu.Unlock()
			results[r.typ()] = res
			if err != nil {
				r.logger.Error("Full build failed", logfields.Error(err))
				errs = append(errs, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

// Run keeps the indexes current until ctx is canceled. Each pipeline's
// watcher subscribes before its initial build, so changes made while the
// build runs are queued and replayed as the first incremental batch. File
// events feed incremental batches, the optional resync interval schedules
// full rebuilds and the optional read API serves the persisted documents.
// A pipeline whose tree cannot be watched stops on its own; Run fails only
// when no pipeline can be watched.
func (d *Daemon) Run(ctx context.Context) error {
	d.status.Store(StatusStarting)
	defer d.status.Store(StatusStopped)
	defer func() {
		if err := d.Close(); err != nil {
			d.logger.Warn("Daemon close failed", logfields.Error(err))
		}
	}()

	var srv *server.Server
	if d.cfg.Server.Enabled() {
		srv = d.newServer()
		if err := srv.Start(ctx); err != nil {
			return err
		}
		d.setServer(srv)
	}

	watching := d.startWatchers(ctx)
	if len(watching) == 0 {
		_ = d.shutdown(nil, srv)
		return ferrors.RuntimeError("no pipeline could be watched").Fatal().Build()
	}

	if _, err := d.Build(ctx); err != nil {
		if ctx.Err() != nil {
			return d.shutdown(watching, srv)
		}
		d.logger.Warn("Initial build incomplete, continuing to watch", logfields.Error(err))
	}

	sched, err := d.startScheduler(ctx, watching)
	if err != nil {
		_ = d.shutdown(watching, srv)
		return err
	}

	for _, r := range watching {
		d.workers.Go(func() {
			if err := r.coord.Watch(ctx, r.watcher.Batches(), r.resync); err != nil {
				r.logger.Error("Watch loop ended", logfields.Error(err))
			}
		})
	}

	d.status.Store(StatusRunning)
	d.logger.Info("Daemon running", logfields.Count(len(watching)))
	<-ctx.Done()

	d.status.Store(StatusStopping)
	if sched != nil {
		if err := sched.Stop(); err != nil {
			d.logger.Warn("Scheduler shutdown failed", logfields.Error(err))
		}
	}
	return d.shutdown(watching, srv)
}

// Serve runs only the read API over the persisted documents until ctx is canceled.
func (d *Daemon) Serve(ctx context.Context) error {
	defer func() { _ = d.Close() }()
	srv := d.newServer()
	if err := srv.Start(ctx); err != nil {
		return err
	}
	d.setServer(srv)
	d.status.Store(StatusRunning)
	<-ctx.Done()
	d.status.Store(StatusStopping)
	defer d.status.Store(StatusStopped)
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()
	return srv.Stop(stopCtx)
}

// ServerAddr returns the bound address of the read API, nil before it listens.
func (d *Daemon) ServerAddr() net.Addr {
	d.srvMu.Lock()
	defer d.srvMu.Unlock()
	if d.srv == nil {
		return nil
	}
	return d.srv.Addr()
}

func (d *Daemon) setServer(s *server.Server) {
	d.srvMu.Lock()
	d.srv = s
	d.srvMu.Unlock()
}

func (d *Daemon) startWatchers(ctx context.Context) []*runner {
	cfg := watch.DebouncerConfig{
		QuietWindow: d.cfg.Build.DebounceDuration(),
		MaxWait:     d.cfg.Build.MaxWaitDuration(),
	}
	var watching []*runner
	for _, r := range d.runners {
		p := r.coord.Pipeline()
		w, err := watch.New(p.RootPath(), p.Match, cfg, watch.WithLogger(r.logger))
		if err == nil {
			err = w.Start(ctx)
		}
		if err != nil {
			r.logger.Error("Pipeline cannot be watched", logfields.Path(p.RootPath()), logfields.Error(err))
			continue
		}
		r.watcher = w
		watching = append(watching, r)
	}
	return watching
}

func (d *Daemon) startScheduler(ctx context.Context, runners []*runner) (*Scheduler, error) {
	interval := d.cfg.Build.ResyncDuration()
	if interval <= 0 {
		return nil, nil
	}
	sched, err := NewScheduler(d.logger)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "create resync scheduler").Build()
	}
	for _, r := range runners {
		if _, err := sched.ScheduleEvery("resync-"+r.typ(), interval, resyncTrigger(ctx, r.logger, r.resync)); err != nil {
			_ = sched.Stop()
			return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "schedule resync").
				WithContext("pipeline", r.typ()).Build()
		}
	}
	sched.Start()
	d.logger.Info("Periodic resync scheduled", slog.Duration("interval", interval))
	return sched, nil
}

func (d *Daemon) shutdown(watching []*runner, srv *server.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	var errs []error
	for _, r := range watching {
		if err := r.watcher.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.workers.StopAndWait(ctx); err != nil {
		errs = append(errs, ferrors.WrapError(err, ferrors.CategoryRuntime, "waiting for watch loops").Build())
	}
	for _, r := range d.runners {
		if r.coord.State() == build.StateWatching {
			if err := r.coord.Stop(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if srv != nil {
		if err := srv.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	d.logger.Info("Daemon stopped")
	return errors.Join(errs...)
}
