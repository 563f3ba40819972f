// Package daemon wires configuration into running pipelines: one rebuild
// coordinator per content type, fed by a file watcher and a periodic
// resync, plus the optional read API, build journal and change notices.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/contented/internal/build"
	"git.home.luguber.info/inful/contented/internal/config"
	"git.home.luguber.info/inful/contented/internal/eventstore"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/index"
	"git.home.luguber.info/inful/contented/internal/logfields"
	"git.home.luguber.info/inful/contented/internal/metrics"
	"git.home.luguber.info/inful/contented/internal/notify"
	"git.home.luguber.info/inful/contented/internal/pipeline"
	"git.home.luguber.info/inful/contented/internal/processor"
	"git.home.luguber.info/inful/contented/internal/server"
)

// Status represents the lifecycle of the daemon.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
)

// NotifierFactory connects the change notifier for a NATS configuration.
type NotifierFactory func(ctx context.Context, cfg config.NATSConfig) (notify.Notifier, error)

// Option configures a Daemon.
type Option func(*Daemon)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(d *Daemon) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHooks supplies the named transform and sort hooks pipelines may reference.
func WithHooks(h *pipeline.Hooks) Option {
	return func(d *Daemon) { d.hooks = h }
}

// WithProcessors replaces the processor registry (default: processor.NewRegistry()).
func WithProcessors(r *processor.Registry) Option {
	return func(d *Daemon) {
		if r != nil {
			d.processors = r
		}
	}
}

// WithNotifierFactory replaces the NATS connection used when nats.url is set.
func WithNotifierFactory(f NotifierFactory) Option {
	return func(d *Daemon) {
		if f != nil {
			d.newNotifier = f
		}
	}
}

// Daemon owns every pipeline declared in one configuration file.
type Daemon struct {
	cfg         *config.Config
	logger      *slog.Logger
	hooks       *pipeline.Hooks
	processors  *processor.Registry
	newNotifier NotifierFactory

	store    *index.Store
	journal  *eventstore.Journal
	notifier notify.Notifier
	registry *prometheus.Registry
	recorder *metrics.PrometheusRecorder
	manifest *build.Manifest

	runners  []*runner
	disabled map[string]error

	status  atomic.Value // Status
	workers WorkerGroup
	closeMu sync.Once

	srvMu sync.Mutex
	srv   *server.Server
}

// New resolves every pipeline of cfg and connects the optional journal and
// notifier. A pipeline whose processor cannot be resolved is disabled and
// reported by Disabled; the others are unaffected. New fails only when no
// pipeline survives or a shared component cannot be created.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Daemon, error) {
	d := &Daemon{
		cfg:         cfg,
		logger:      slog.Default(),
		processors:  processor.NewRegistry(),
		newNotifier: connectNATS,
		store:       index.NewStore(cfg.Output.Directory),
		notifier:    notify.Noop{},
		registry:    prometheus.NewRegistry(),
		disabled:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.status.Store(StatusStopped)
	d.recorder = metrics.NewPrometheusRecorder(d.registry)

	if err := d.openJournal(ctx); err != nil {
		return nil, err
	}
	if err := d.openNotifier(ctx); err != nil {
		_ = d.journal.Close()
		return nil, err
	}

	previous, err := d.store.ReadManifest()
	if err != nil && !ferrors.HasCategory(err, ferrors.CategoryNotFound) {
		d.logger.Warn("Ignoring unreadable manifest", logfields.Error(err))
	}
	d.manifest = build.NewManifest(d.store, previous)

	if err := d.buildRunners(ctx); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

func (d *Daemon) openJournal(ctx context.Context) error {
	if !d.cfg.Journal.Enabled() {
		return nil
	}
	store, err := eventstore.NewSQLiteStore(d.cfg.Journal.Path)
	if err != nil {
		return err
	}
	d.journal = eventstore.NewJournal(store, d.cfg.Journal.Keep)
	if err := d.journal.Load(ctx); err != nil {
		d.logger.Warn("Build journal history could not be loaded", logfields.Error(err))
	}
	d.logger.Info("Build journal opened", logfields.Path(d.cfg.Journal.Path))
	return nil
}

func (d *Daemon) openNotifier(ctx context.Context) error {
	if !d.cfg.NATS.Enabled() {
		return nil
	}
	n, err := d.newNotifier(ctx, d.cfg.NATS)
	if err != nil {
		return err
	}
	d.notifier = n
	return nil
}

func connectNATS(ctx context.Context, cfg config.NATSConfig) (notify.Notifier, error) {
	return notify.NewNATS(ctx, notify.Config{
		URL:       cfg.URL,
		Subject:   cfg.Subject,
		JetStream: cfg.JetStream,
		KVBucket:  cfg.KVBucket,
	})
}

func (d *Daemon) buildRunners(ctx context.Context) error {
	resolver, err := d.cfg.Resolver()
	if err != nil {
		return err
	}
	policy, err := build.ParsePolicy(d.cfg.Build.OnError)
	if err != nil {
		return err
	}

	for _, decl := range d.cfg.Pipelines {
		log := d.logger.With(logfields.Pipeline(decl.Type))
		pc, err := decl.Compile(d.hooks)
		if err != nil {
			return err
		}
		p, err := pipeline.New(ctx, pc, d.processors, pipeline.WithResolver(resolver), pipeline.WithLogger(d.logger))
		if err != nil {
			if ferrors.HasCategory(err, ferrors.CategoryProcessor) {
				log.Error("Pipeline disabled", logfields.Error(err))
				d.disabled[decl.Type] = err
				continue
			}
			return err
		}
		coord := build.NewCoordinator(p, d.store,
			build.WithLogger(d.logger),
			build.WithRecorder(d.recorder),
			build.WithNotifier(d.notifier),
			build.WithJournal(d.journal),
			build.WithManifest(d.manifest),
			build.WithConcurrency(d.cfg.Build.Concurrency),
			build.WithPolicy(policy),
		)
		d.runners = append(d.runners, &runner{coord: coord, logger: log, resync: make(chan struct{}, 1)})
	}

	if len(d.runners) == 0 {
		return ferrors.WrapError(errors.Join(d.disabledErrors()...), ferrors.CategoryProcessor, "no pipeline could be started").
			Fatal().
			WithContext("disabled", len(d.disabled)).
			Build()
	}
	return nil
}

// Status returns the current lifecycle status.
func (d *Daemon) Status() Status { return d.status.Load().(Status) }

// Registry returns the Prometheus registry the daemon records into.
func (d *Daemon) Registry() *prometheus.Registry { return d.registry }

// Journal returns the build journal, nil when none is configured.
func (d *Daemon) Journal() *eventstore.Journal { return d.journal }

// Store returns the index store.
func (d *Daemon) Store() *index.Store { return d.store }

// Coordinator returns the coordinator for typ.
func (d *Daemon) Coordinator(typ string) (*build.Coordinator, bool) {
	for _, r := range d.runners {
		if r.coord.Pipeline().Type() == typ {
			return r.coord, true
		}
	}
	return nil, false
}

// Disabled returns the pipelines that could not be resolved, keyed by type.
func (d *Daemon) Disabled() map[string]error {
	out := make(map[string]error, len(d.disabled))
	for k, v := range d.disabled {
		out[k] = v
	}
	return out
}

func (d *Daemon) disabledErrors() []error {
	errs := make([]error, 0, len(d.disabled))
	for _, decl := range d.cfg.Pipelines {
		if err, ok := d.disabled[decl.Type]; ok {
			errs = append(errs, err)
		}
	}
	return errs
}

// Close releases the journal and the notifier. It is safe to call more than once.
func (d *Daemon) Close() error {
	var errs []error
	d.closeMu.Do(func() {
		if err := d.notifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close notifier: %w", err))
		}
		if err := d.journal.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close journal: %w", err))
		}
	})
	return errors.Join(errs...)
}

func (d *Daemon) newServer() *server.Server {
	return server.New(server.Options{
		Listen:   d.cfg.Server.Listen,
		Store:    d.store,
		Journal:  d.journal,
		Registry: d.registry,
		Logger:   d.logger,
	})
}
