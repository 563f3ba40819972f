// Package pipeline turns source files into validated content records.
//
// A Pipeline owns one declared content type: it derives identity and
// canonical paths, delegates body extraction to a processor, applies the
// field schema and the transform hook, and orders records for the index.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/contented/internal/content"
	"git.home.luguber.info/inful/contented/internal/fields"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/logfields"
	"git.home.luguber.info/inful/contented/internal/processor"
	"git.home.luguber.info/inful/contented/internal/slug"
)

// Pipeline processes the files of one content type.
type Pipeline struct {
	cfg      Config
	rootPath string
	proc     processor.Processor
	schema   *fields.Schema
	resolver *slug.Resolver
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithResolver sets the path resolver (default: slug.DefaultResolver()).
func WithResolver(r *slug.Resolver) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.resolver = r
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// New validates cfg and resolves its processor from registry. Declaration
// problems are ConfigErrors; an unknown or failing processor is a
// ProcessorResolutionError.
func New(ctx context.Context, cfg Config, registry *processor.Registry, opts ...Option) (*Pipeline, error) {
	cfg = cfg.Clone()
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	schema, err := fields.NewSchema(cfg.Fields)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid field schema").
			Fatal().
			WithContext("pipeline", cfg.Type).
			Build()
	}

	rootPath, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid pipeline root").
			Fatal().
			WithContext("pipeline", cfg.Type).
			Build()
	}

	p := &Pipeline{
		cfg:      cfg,
		rootPath: rootPath,
		schema:   schema,
		resolver: slug.DefaultResolver(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logfields.Pipeline(cfg.Type))

	proc, err := registry.Resolve(ctx, cfg.Type, cfg.Processor, rootPath, cfg.Options)
	if err != nil {
		return nil, err
	}
	p.proc = proc
	return p, nil
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Type) == "" {
		return ferrors.ConfigError("pipeline type is required").Build()
	}
	if cfg.Processor == "" {
		return ferrors.ConfigError("pipeline processor is required").WithContext("pipeline", cfg.Type).Build()
	}
	if len(cfg.Patterns) == 0 {
		return ferrors.ConfigError("pipeline needs at least one pattern").WithContext("pipeline", cfg.Type).Build()
	}
	for _, pattern := range cfg.Patterns {
		if pattern == "" || !doublestar.ValidatePattern(pattern) {
			return ferrors.ConfigError(fmt.Sprintf("invalid pattern %q", pattern)).
				WithContext("pipeline", cfg.Type).
				Build()
		}
	}
	return nil
}

// Type returns the content type name.
func (p *Pipeline) Type() string { return p.cfg.Type }

// RootPath returns the absolute pipeline root.
func (p *Pipeline) RootPath() string { return p.rootPath }

// Patterns returns the discovery globs.
func (p *Pipeline) Patterns() []string { return slices.Clone(p.cfg.Patterns) }

// Match reports whether a root-relative slash path is selected by the
// pipeline patterns.
func (p *Pipeline) Match(file string) bool {
	for _, pattern := range p.cfg.Patterns {
		if ok, _ := doublestar.Match(pattern, file); ok {
			return true
		}
	}
	return false
}

// FileID returns the identity of a root-relative file.
func (p *Pipeline) FileID(file string) string {
	return slug.ID(p.absPath(file))
}

func (p *Pipeline) absPath(file string) string {
	return filepath.Join(p.rootPath, filepath.FromSlash(file))
}

// Index builds the identity record of file from the file system and the
// path resolver. Stat failures are IOErrors.
func (p *Pipeline) Index(file string) (content.FileIndex, error) {
	abs := p.absPath(file)
	info, err := os.Stat(abs)
	if err != nil {
		return content.FileIndex{}, ferrors.IOError(file).WithCause(err).WithContext("pipeline", p.cfg.Type).Build()
	}
	if !info.Mode().IsRegular() {
		return content.FileIndex{}, ferrors.IOError(file).
			WithCause(fmt.Errorf("%s is not a regular file", file)).
			WithContext("pipeline", p.cfg.Type).
			Build()
	}

	sections, canonical := p.resolver.Resolve(file)
	return content.FileIndex{
		ID:           slug.ID(abs),
		Type:         p.cfg.Type,
		Path:         canonical,
		File:         file,
		ModifiedDate: info.ModTime().UnixMilli(),
		Sections:     sections,
		Fields:       map[string]any{},
	}, nil
}

// Process turns one root-relative file into its records. A file without
// extractable bodies yields no records and no error.
func (p *Pipeline) Process(ctx context.Context, file string) ([]content.FileContent, error) {
	idx, err := p.Index(file)
	if err != nil {
		return nil, err
	}

	raw, err := p.proc.Extract(ctx, idx, p.rootPath, file)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if ferrors.IsClassified(err) {
			return nil, withPipeline(err, p.cfg.Type)
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "processor failed").
			WithContext("pipeline", p.cfg.Type).
			WithContext("file", file).
			Build()
	}
	if len(raw) == 0 {
		p.logger.Debug("File produced no records", logfields.File(file))
		return nil, nil
	}

	records := make([]content.FileContent, 0, len(raw))
	for _, rec := range raw {
		rec = p.withIdentity(rec, idx)

		resolved, err := p.schema.Apply(file, rec.Fields)
		if err != nil {
			return nil, withPipeline(err, p.cfg.Type)
		}
		rec.Fields = resolved

		if p.cfg.Transform != nil {
			out, err := p.cfg.Transform(ctx, rec.Clone())
			if err != nil {
				return nil, ferrors.TransformError(file).WithCause(err).WithContext("pipeline", p.cfg.Type).Build()
			}
			rec = p.withIdentity(out, idx)
		}
		records = append(records, rec)
	}

	p.logger.Debug("Processed file", logfields.File(file), logfields.ID(idx.ID), logfields.Count(len(records)))
	return records, nil
}

// withIdentity pins the identity of rec to the source file. Processors and
// transforms may move a record but never re-attribute it.
func (p *Pipeline) withIdentity(rec content.FileContent, idx content.FileIndex) content.FileContent {
	rec.ID = idx.ID
	rec.Type = idx.Type
	rec.File = idx.File
	if rec.Path == "" {
		rec.Path = idx.Path
	}
	if !strings.HasPrefix(rec.Path, "/") {
		rec.Path = "/" + rec.Path
	}
	if rec.Sections == nil {
		rec.Sections = []string{}
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}
	return rec
}

// Sort returns records stably ordered by the pipeline comparator. Without a
// comparator the input order is kept.
func (p *Pipeline) Sort(records []content.FileContent) []content.FileContent {
	out := slices.Clone(records)
	if p.cfg.Sort != nil {
		slices.SortStableFunc(out, func(a, b content.FileContent) int {
			return p.cfg.Sort(a.FileIndex, b.FileIndex)
		})
	}
	return out
}

func withPipeline(err error, pipeline string) error {
	if ce, ok := ferrors.AsClassified(err); ok {
		if _, set := ce.Context().Get("pipeline"); !set {
			return ce.WithContext("pipeline", pipeline)
		}
	}
	return err
}
