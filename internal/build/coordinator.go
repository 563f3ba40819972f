package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/contented/internal/content"
	"git.home.luguber.info/inful/contented/internal/eventstore"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/index"
	"git.home.luguber.info/inful/contented/internal/logfields"
	"git.home.luguber.info/inful/contented/internal/metrics"
	"git.home.luguber.info/inful/contented/internal/notify"
	"git.home.luguber.info/inful/contented/internal/pipeline"
	"git.home.luguber.info/inful/contented/internal/util/sets"
)

// DefaultConcurrency bounds the files processed in parallel per batch.
const DefaultConcurrency = 8

// Persister writes pipeline snapshots.
type Persister interface {
	Write(ctx context.Context, doc index.Document) error
}

// Failure is a file that could not be processed.
type Failure struct {
	File string
	Err  error
}

// Result summarizes one batch.
type Result struct {
	BatchID    string
	Kind       eventstore.BatchKind
	Files      int // files processed
	Removed    int // files dropped because they disappeared
	Records    int
	Failures   []Failure
	Collisions []index.Collision
	Committed  bool
	Duration   time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(c *Coordinator) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithJournal records batch events; a nil journal disables recording.
func WithJournal(j *eventstore.Journal) Option {
	return func(c *Coordinator) { c.journal = j }
}

// WithManifest updates m after every commit.
func WithManifest(m *Manifest) Option {
	return func(c *Coordinator) { c.manifest = m }
}

func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

func WithPolicy(p Policy) Option {
	return func(c *Coordinator) {
		if p != "" {
			c.policy = p
		}
	}
}

// WithClock overrides the time source used for generated_at stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithBatchIDs overrides batch id generation.
func WithBatchIDs(next func() string) Option {
	return func(c *Coordinator) {
		if next != nil {
			c.newBatchID = next
		}
	}
}

// Coordinator runs the builds of one pipeline.
type Coordinator struct {
	pipeline    *pipeline.Pipeline
	store       Persister
	manifest    *Manifest
	journal     *eventstore.Journal
	notifier    notify.Notifier
	recorder    metrics.Recorder
	logger      *slog.Logger
	concurrency int
	policy      Policy
	now         func() time.Time
	newBatchID  func() string

	run   sync.Mutex // serializes batches
	state stateMachine

	mu        sync.RWMutex
	committed *index.Index
	lastDoc   index.Document
	stale     bool // a batch was discarded since the last full commit
}

// NewCoordinator creates an idle coordinator for p persisting through store.
func NewCoordinator(p *pipeline.Pipeline, store Persister, opts ...Option) *Coordinator {
	c := &Coordinator{
		pipeline:    p,
		store:       store,
		notifier:    notify.Noop{},
		recorder:    metrics.NoopRecorder{},
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
		policy:      PolicySkip,
		now:         time.Now,
		newBatchID:  uuid.NewString,
		committed:   index.New(p.Type()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(logfields.Pipeline(p.Type()))
	return c
}

// Pipeline returns the pipeline being built.
func (c *Coordinator) Pipeline() *pipeline.Pipeline { return c.pipeline }

// State returns the current lifecycle state.
func (c *Coordinator) State() State { return c.state.get() }

// Index returns a copy of the committed index.
func (c *Coordinator) Index() *index.Index {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.committed.Clone()
}

// Stale reports whether a batch was discarded since the last committed full
// build, in which case the committed index may no longer match the tree.
func (c *Coordinator) Stale() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stale
}

func (c *Coordinator) markStale() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}

// Document returns the last committed snapshot.
func (c *Coordinator) Document() index.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastDoc
}

// FullBuild discovers and processes every matching file into a fresh index.
// From Idle it is the initial build; from Watching it is a resync.
func (c *Coordinator) FullBuild(ctx context.Context) (Result, error) {
	c.run.Lock()
	defer c.run.Unlock()

	final := StateWatching
	switch c.state.get() {
	case StateIdle:
		if err := c.state.to(StateBuilding); err != nil {
			return Result{}, err
		}
	default:
		if err := c.state.to(StateRebuilding); err != nil {
			return Result{}, err
		}
	}
	defer func() { _ = c.state.to(final) }()

	files, err := Discover(c.pipeline.RootPath(), c.pipeline.Patterns())
	if err != nil {
		c.markStale()
		return Result{Kind: eventstore.KindFull}, withPipeline(err, c.pipeline.Type())
	}
	return c.execute(ctx, eventstore.KindFull, index.New(c.pipeline.Type()), files, 0)
}

// ApplyBatch patches the committed index with a batch of changed
// root-relative paths. The coordinator must be Watching.
func (c *Coordinator) ApplyBatch(ctx context.Context, paths []string) (Result, error) {
	c.run.Lock()
	defer c.run.Unlock()

	if err := c.state.to(StateRebuilding); err != nil {
		return Result{}, err
	}
	defer func() { _ = c.state.to(StateWatching) }()

	ix := c.Index()
	files, removed, err := c.plan(ix, paths)
	if err != nil {
		return Result{Kind: eventstore.KindIncremental}, err
	}
	return c.execute(ctx, eventstore.KindIncremental, ix, files, removed)
}

// Stop returns a watching coordinator to Idle.
func (c *Coordinator) Stop() error {
	c.run.Lock()
	defer c.run.Unlock()
	if c.state.get() == StateIdle {
		return nil
	}
	return c.state.to(StateIdle)
}

// plan removes vanished paths from ix and returns the files to reprocess.
func (c *Coordinator) plan(ix *index.Index, paths []string) ([]string, int, error) {
	root := c.pipeline.RootPath()
	process := sets.New[string]()
	removed := 0

	for _, raw := range paths {
		rel := cleanRel(raw)
		if rel == "" {
			continue
		}
		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		switch {
		case errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR):
			if ix.Remove(c.pipeline.FileID(rel)) {
				removed++
			}
			removed += len(ix.RemoveUnder(rel))
		case err != nil:
			return nil, 0, ferrors.IOError(rel).WithCause(err).WithContext("pipeline", c.pipeline.Type()).Build()
		case info.IsDir():
			found, err := DiscoverUnder(root, c.pipeline.Patterns(), rel)
			if err != nil {
				return nil, 0, withPipeline(err, c.pipeline.Type())
			}
			present := sets.New(found...)
			process.Add(found...)
			for _, f := range underDir(ix, rel) {
				if !present.Has(f) && ix.Remove(c.pipeline.FileID(f)) {
					removed++
				}
			}
		case c.pipeline.Match(rel) && !ignored(rel):
			process.Add(rel)
		default:
			// No longer content (pattern change or ignored name).
			if ix.Remove(c.pipeline.FileID(rel)) {
				removed++
			}
		}
	}

	return sets.Sorted(process), removed, nil
}

type outcome struct {
	file    string
	records []content.FileContent
	err     error
}

// execute processes files into ix, then snapshots, persists and swaps.
func (c *Coordinator) execute(ctx context.Context, kind eventstore.BatchKind, ix *index.Index, files []string, removed int) (Result, error) {
	start := time.Now()
	typ := c.pipeline.Type()
	res := Result{BatchID: c.newBatchID(), Kind: kind, Files: len(files), Removed: removed}
	log := c.logger.With(logfields.BatchID(res.BatchID), logfields.BatchKind(string(kind)))

	c.record(ctx, func() (eventstore.Event, error) {
		return eventstore.NewBatchStarted(res.BatchID, typ, kind, len(files))
	})
	log.Debug("Build batch started", logfields.Count(len(files)))

	outcomes, firstErr := c.processAll(ctx, files)
	if ctx.Err() != nil {
		return c.abort(ctx, log, res, start, metrics.OutcomeCanceled, "canceled", ctx.Err())
	}

	for _, o := range outcomes {
		id := c.pipeline.FileID(o.file)
		if o.err != nil && firstErr != nil && o.err != firstErr && errors.Is(o.err, context.Canceled) {
			// Sibling of the failure that aborted the batch.
			continue
		}
		if o.err != nil {
			res.Failures = append(res.Failures, Failure{File: o.file, Err: o.err})
			c.recorder.IncFileResult(typ, metrics.ResultFailed)
			log.Warn("File failed", logfields.File(o.file), logfields.Error(o.err))
			c.record(ctx, func() (eventstore.Event, error) {
				return eventstore.NewFileFailed(res.BatchID, typ, o.file, string(ferrors.GetCategory(o.err)), o.err.Error())
			})
			ix.Remove(id)
			continue
		}
		c.recorder.IncFileResult(typ, metrics.ResultIndexed)
		ix.Replace(id, o.file, o.records)
	}
	if c.policy == PolicyAbort && len(res.Failures) > 0 {
		cause := firstErr
		if cause == nil {
			cause = res.Failures[0].Err
		}
		return c.abort(ctx, log, res, start, metrics.OutcomeAborted, "file failed", cause)
	}

	doc, collisions := ix.Snapshot(res.BatchID, c.now(), c.pipeline.Sort)
	res.Collisions = collisions
	for _, col := range collisions {
		c.recorder.IncFileResult(typ, metrics.ResultCollided)
		log.Warn("Path collision", logfields.Path(col.Path), slog.String("kept", col.Kept), slog.String("dropped", col.Dropped))
	}
	if c.policy == PolicyAbort && len(collisions) > 0 {
		col := collisions[0]
		err := ferrors.PathCollisionError(col.Path, col.Kept, col.Dropped).WithContext("pipeline", typ).Build()
		return c.abort(ctx, log, res, start, metrics.OutcomeAborted, "path collision", err)
	}

	if err := c.store.Write(ctx, doc); err != nil {
		outcome := metrics.OutcomeAborted
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCanceled
		}
		return c.abort(ctx, log, res, start, outcome, "persist failed", err)
	}

	c.mu.Lock()
	c.committed = ix
	c.lastDoc = doc
	if kind == eventstore.KindFull {
		c.stale = false
	}
	c.mu.Unlock()

	res.Records = doc.Count
	res.Committed = true
	res.Duration = time.Since(start)

	c.recorder.ObserveBatchDuration(typ, string(kind), res.Duration)
	c.recorder.IncBatchOutcome(typ, metrics.OutcomeCommitted)
	c.recorder.SetIndexRecords(typ, doc.Count)
	c.record(ctx, func() (eventstore.Event, error) {
		return eventstore.NewBatchCommitted(res.BatchID, typ, doc.Count, len(res.Failures), res.Duration)
	})
	log.Info("Build batch committed",
		logfields.Count(doc.Count),
		slog.Int("files", res.Files),
		slog.Int("removed", res.Removed),
		slog.Int("failed", len(res.Failures)),
		logfields.DurationMS(float64(res.Duration.Microseconds())/1000))

	c.afterCommit(ctx, log, doc)
	return res, nil
}

// processAll runs the pipeline over files with bounded concurrency. Under
// PolicyAbort the first failure cancels the remaining work.
func (c *Coordinator) processAll(ctx context.Context, files []string) ([]outcome, error) {
	out := make([]outcome, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	typ := c.pipeline.Type()
	for i, file := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				out[i] = outcome{file: file, err: gctx.Err()}
				return nil
			}
			started := time.Now()
			records, err := c.pipeline.Process(gctx, file)
			c.recorder.ObserveFileDuration(typ, time.Since(started))
			out[i] = outcome{file: file, records: records, err: err}
			if err != nil && c.policy == PolicyAbort {
				return err
			}
			return nil
		})
	}
	err := g.Wait()
	return out, err
}

func (c *Coordinator) abort(ctx context.Context, log *slog.Logger, res Result, start time.Time, outcome metrics.OutcomeLabel, reason string, cause error) (Result, error) {
	typ := c.pipeline.Type()
	c.markStale()
	res.Duration = time.Since(start)
	c.recorder.ObserveBatchDuration(typ, string(res.Kind), res.Duration)
	c.recorder.IncBatchOutcome(typ, outcome)
	// The journal write must not depend on the canceled batch context.
	c.record(context.WithoutCancel(ctx), func() (eventstore.Event, error) {
		return eventstore.NewBatchAborted(res.BatchID, typ, reason)
	})
	log.Warn("Build batch aborted", slog.String("reason", reason), logfields.Error(cause))

	if ce, ok := ferrors.AsClassified(cause); ok {
		return res, ce.WithContext("batch_id", res.BatchID)
	}
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return res, cause
	}
	return res, ferrors.WrapError(cause, ferrors.CategoryRuntime, fmt.Sprintf("build batch aborted: %s", reason)).
		WithContext("pipeline", typ).
		WithContext("batch_id", res.BatchID).
		Build()
}

// afterCommit publishes the commit. Failures here never undo the commit.
func (c *Coordinator) afterCommit(ctx context.Context, log *slog.Logger, doc index.Document) {
	if c.manifest != nil {
		entry := index.ManifestEntry{
			Type:        doc.Type,
			BatchID:     doc.BatchID,
			GeneratedAt: doc.GeneratedAt,
			Count:       doc.Count,
			Path:        index.RelativeDocumentPath(doc.Type),
		}
		if err := c.manifest.Update(ctx, entry); err != nil {
			log.Warn("Manifest update failed", logfields.Error(err))
		}
	}
	notice := notify.Notice{Type: doc.Type, BatchID: doc.BatchID, Count: doc.Count, GeneratedAt: doc.GeneratedAt}
	if err := c.notifier.Notify(ctx, notice); err != nil {
		log.Warn("Commit notification failed", logfields.Error(err))
	}
}

func (c *Coordinator) record(ctx context.Context, build func() (eventstore.Event, error)) {
	if c.journal == nil {
		return
	}
	e, err := build()
	if err == nil {
		err = c.journal.Record(ctx, e)
	}
	if err != nil {
		c.logger.Warn("Journal write failed", logfields.Error(err))
	}
}

func cleanRel(p string) string {
	p = path.Clean("/" + filepath.ToSlash(p))
	return strings.TrimPrefix(p, "/")
}

func underDir(ix *index.Index, dir string) []string {
	var out []string
	for _, f := range ix.Files() {
		if strings.HasPrefix(f, dir+"/") {
			out = append(out, f)
		}
	}
	return out
}

func withPipeline(err error, typ string) error {
	if ce, ok := ferrors.AsClassified(err); ok {
		return ce.WithContext("pipeline", typ)
	}
	return err
}
