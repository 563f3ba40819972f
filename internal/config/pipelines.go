package config

import (
	"maps"

	"git.home.luguber.info/inful/contented/internal/fields"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/pipeline"
	"git.home.luguber.info/inful/contented/internal/processor"
	"git.home.luguber.info/inful/contented/internal/slug"
)

// Resolver returns the path resolver for the configured strip patterns.
func (c *Config) Resolver() (*slug.Resolver, error) {
	r, err := slug.NewResolver(c.StripPatterns)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid strip pattern").
			WithContext("field", "strip_patterns").Build()
	}
	return r, nil
}

// PipelineConfigs compiles every declaration into a pipeline.Config.
// Named transform and sort hooks are looked up in hooks, which may be nil.
func (c *Config) PipelineConfigs(hooks *pipeline.Hooks) ([]pipeline.Config, error) {
	out := make([]pipeline.Config, 0, len(c.Pipelines))
	for _, p := range c.Pipelines {
		pc, err := p.Compile(hooks)
		if err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, nil
}

// Compile converts the declaration into a pipeline.Config.
func (p PipelineConfig) Compile(hooks *pipeline.Hooks) (pipeline.Config, error) {
	transform, err := pipeline.CompileTransform(pipeline.TransformSpec{
		StripPathPrefix: p.Transform.StripPathPrefix,
		DropSections:    p.Transform.DropSections,
		SetFields:       maps.Clone(p.Transform.SetFields),
		Hook:            p.Transform.Hook,
	}, hooks)
	if err != nil {
		return pipeline.Config{}, withPipelineType(err, p.Type)
	}
	sort, err := pipeline.CompileSort(pipeline.SortSpec{
		By:         p.Sort.By,
		Descending: p.Sort.Descending,
		Hook:       p.Sort.Hook,
	}, hooks)
	if err != nil {
		return pipeline.Config{}, withPipelineType(err, p.Type)
	}

	var specs map[string]fields.Spec
	if len(p.Fields) > 0 {
		specs = make(map[string]fields.Spec, len(p.Fields))
		for name, f := range p.Fields {
			spec := fields.Spec{Type: fields.Type(f.Type), Required: f.Required}
			if f.Default != nil {
				spec.Resolve = fields.Default(f.Default)
			}
			specs[name] = spec
		}
	}

	return pipeline.Config{
		Type:      p.Type,
		Root:      p.Root,
		Patterns:  append([]string(nil), p.Pattern...),
		Processor: p.Processor,
		Options:   processor.Options(maps.Clone(p.Options)),
		Fields:    specs,
		Transform: transform,
		Sort:      sort,
	}, nil
}

func withPipelineType(err error, typ string) error {
	if ce, ok := ferrors.AsClassified(err); ok {
		return ce.WithContext("pipeline", typ)
	}
	return ferrors.WrapError(err, ferrors.CategoryConfig, "compile pipeline hooks").
		WithContext("pipeline", typ).Build()
}
