package config

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"git.home.luguber.info/inful/contented/internal/build"
	"git.home.luguber.info/inful/contented/internal/fields"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
	"git.home.luguber.info/inful/contented/internal/index"
	"git.home.luguber.info/inful/contented/internal/pipeline"
	"git.home.luguber.info/inful/contented/internal/slug"
)

// Validate checks c and returns the first problem as a ConfigError.
// Processor ids are not checked here; an unknown processor only disables
// its own pipeline when the daemon starts.
func (c *Config) Validate() error {
	if len(c.Pipelines) == 0 {
		return configErr("pipelines", "at least one pipeline must be declared")
	}

	seen := make(map[string]bool, len(c.Pipelines))
	for i, p := range c.Pipelines {
		if err := validatePipeline(i, p); err != nil {
			return err
		}
		if seen[p.Type] {
			return configErr(pipelineField(i, "type"), fmt.Sprintf("duplicate pipeline type %q", p.Type))
		}
		seen[p.Type] = true
	}

	if len(c.StripPatterns) > 0 {
		if _, err := slug.NewResolver(c.StripPatterns); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid strip pattern").
				WithContext("field", "strip_patterns").Build()
		}
	}

	if _, err := build.ParsePolicy(c.Build.OnError); err != nil {
		return err
	}
	if c.Build.Concurrency < 0 {
		return configErr("build.concurrency", "concurrency must not be negative")
	}
	for _, d := range []struct {
		field    string
		value    string
		positive bool
	}{
		{"build.debounce", c.Build.Debounce, true},
		{"build.max_wait", c.Build.MaxWait, true},
		{"build.resync_interval", c.Build.ResyncInterval, false},
	} {
		if err := validateDuration(d.field, d.value, d.positive); err != nil {
			return err
		}
	}
	if c.Build.MaxWaitDuration() < c.Build.DebounceDuration() {
		return configErr("build.max_wait", "max_wait must not be shorter than debounce")
	}

	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		return configErr("logging.level", err.Error())
	}
	if _, err := ParseLogFormat(c.Logging.Format); err != nil {
		return configErr("logging.format", err.Error())
	}
	if c.Journal.Keep < 0 {
		return configErr("journal.keep", "keep must not be negative")
	}
	if c.NATS.KVBucket != "" && !c.NATS.JetStream {
		return configErr("nats.kv_bucket", "kv_bucket requires jetstream: true")
	}
	return nil
}

func validatePipeline(i int, p PipelineConfig) error {
	if p.Type == "" {
		return configErr(pipelineField(i, "type"), "pipeline type must not be empty")
	}
	if !index.ValidType(p.Type) {
		return configErr(pipelineField(i, "type"), fmt.Sprintf("pipeline type %q cannot be used as a directory name", p.Type))
	}
	if len(p.Pattern) == 0 {
		return configErr(pipelineField(i, "pattern"), fmt.Sprintf("pipeline %q declares no pattern", p.Type))
	}
	for _, pattern := range p.Pattern {
		if pattern == "" || !doublestar.ValidatePattern(pattern) {
			return configErr(pipelineField(i, "pattern"), fmt.Sprintf("pipeline %q: invalid glob %q", p.Type, pattern))
		}
	}
	for name, f := range p.Fields {
		if name == "" {
			return configErr(pipelineField(i, "fields"), fmt.Sprintf("pipeline %q declares a field without a name", p.Type))
		}
		if !fields.Type(f.Type).Known() {
			return configErr(pipelineField(i, "fields."+name+".type"),
				fmt.Sprintf("pipeline %q field %q: unknown type %q", p.Type, name, f.Type))
		}
	}
	if p.Transform.DropSections < 0 {
		return configErr(pipelineField(i, "transform.drop_sections"), "drop_sections must not be negative")
	}
	// Hook names are resolved when pipelines are compiled; the declarative
	// parts are checked now so typos fail at load time.
	if _, err := pipeline.CompileTransform(pipeline.TransformSpec{
		StripPathPrefix: p.Transform.StripPathPrefix,
		DropSections:    p.Transform.DropSections,
	}, nil); err != nil {
		return withField(err, pipelineField(i, "transform"))
	}
	if p.Sort.By != "" {
		if p.Sort.Hook != "" {
			return configErr(pipelineField(i, "sort"), "sort.by and sort.hook are mutually exclusive")
		}
		if _, err := pipeline.CompileSort(pipeline.SortSpec{By: p.Sort.By}, nil); err != nil {
			return withField(err, pipelineField(i, "sort.by"))
		}
	}
	return nil
}

func validateDuration(field, value string, positive bool) error {
	if value == "" {
		if positive {
			return configErr(field, "duration must be set")
		}
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return configErr(field, fmt.Sprintf("invalid duration %q", value))
	}
	if d < 0 || (positive && d == 0) {
		return configErr(field, fmt.Sprintf("duration %q out of range", value))
	}
	return nil
}

func pipelineField(i int, key string) string {
	return fmt.Sprintf("pipelines[%d].%s", i, key)
}

func configErr(field, msg string) error {
	return ferrors.ConfigError(msg).WithContext("field", field).Build()
}

func withField(err error, field string) error {
	if ce, ok := ferrors.AsClassified(err); ok {
		return ce.WithContext("field", field)
	}
	return ferrors.WrapError(err, ferrors.CategoryConfig, "invalid pipeline declaration").
		WithContext("field", field).Build()
}
