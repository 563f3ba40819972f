// Package config loads and validates contented.yaml.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up when none is given.
const DefaultFileName = "contented.yaml"

// Config is the root of contented.yaml.
type Config struct {
	Output        OutputConfig     `yaml:"output"`
	Build         BuildConfig      `yaml:"build"`
	StripPatterns []string         `yaml:"strip_patterns,omitempty"`
	Logging       LoggingConfig    `yaml:"logging"`
	Journal       JournalConfig    `yaml:"journal"`
	NATS          NATSConfig       `yaml:"nats"`
	Server        ServerConfig     `yaml:"server"`
	Pipelines     []PipelineConfig `yaml:"pipelines"`

	// baseDir is the directory relative paths were resolved against.
	baseDir string
}

// OutputConfig controls where index documents are written.
type OutputConfig struct {
	Directory string `yaml:"directory"`
}

// BuildConfig controls the rebuild coordinator and the watcher.
type BuildConfig struct {
	Concurrency int    `yaml:"concurrency"`
	OnError     string `yaml:"on_error"`
	// Debounce is the quiet window after the last file event.
	Debounce string `yaml:"debounce"`
	// MaxWait bounds how long a continuous event stream can delay a batch.
	MaxWait string `yaml:"max_wait"`
	// ResyncInterval schedules periodic full rebuilds; empty or 0s disables them.
	ResyncInterval string `yaml:"resync_interval,omitempty"`
}

// DebounceDuration returns the parsed debounce window.
func (b BuildConfig) DebounceDuration() time.Duration { return mustDuration(b.Debounce) }

// MaxWaitDuration returns the parsed max wait.
func (b BuildConfig) MaxWaitDuration() time.Duration { return mustDuration(b.MaxWait) }

// ResyncDuration returns the parsed resync interval, zero when disabled.
func (b BuildConfig) ResyncDuration() time.Duration { return mustDuration(b.ResyncInterval) }

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// JournalConfig enables the sqlite build journal.
type JournalConfig struct {
	Path string `yaml:"path"`
	// Keep is how many batches History retains in memory; 0 keeps the default.
	Keep int `yaml:"keep,omitempty"`
}

// Enabled reports whether a journal path is configured.
func (j JournalConfig) Enabled() bool { return j.Path != "" }

// NATSConfig enables change notices after each commit.
type NATSConfig struct {
	URL       string `yaml:"url"`
	Subject   string `yaml:"subject"`
	JetStream bool   `yaml:"jetstream,omitempty"`
	KVBucket  string `yaml:"kv_bucket,omitempty"`
}

// Enabled reports whether a NATS URL is configured.
func (n NATSConfig) Enabled() bool { return n.URL != "" }

// ServerConfig enables the read API.
type ServerConfig struct {
	Listen string `yaml:"listen"`
}

// Enabled reports whether a listen address is configured.
func (s ServerConfig) Enabled() bool { return s.Listen != "" }

// PipelineConfig declares one content type.
type PipelineConfig struct {
	Type      string                 `yaml:"type"`
	Root      string                 `yaml:"root"`
	Pattern   Patterns               `yaml:"pattern"`
	Processor string                 `yaml:"processor,omitempty"`
	Options   map[string]any         `yaml:"options,omitempty"`
	Fields    map[string]FieldConfig `yaml:"fields,omitempty"`
	Transform TransformConfig        `yaml:"transform,omitempty"`
	Sort      SortConfig             `yaml:"sort,omitempty"`
}

// FieldConfig declares one frontmatter field.
type FieldConfig struct {
	Type     string `yaml:"type"`
	Required bool   `yaml:"required,omitempty"`
	Default  any    `yaml:"default,omitempty"`
}

// TransformConfig is the declarative form of a transform hook.
type TransformConfig struct {
	StripPathPrefix string         `yaml:"strip_path_prefix,omitempty"`
	DropSections    int            `yaml:"drop_sections,omitempty"`
	SetFields       map[string]any `yaml:"set_fields,omitempty"`
	Hook            string         `yaml:"hook,omitempty"`
}

// SortConfig is the declarative form of a sort hook.
type SortConfig struct {
	By         string `yaml:"by,omitempty"`
	Descending bool   `yaml:"descending,omitempty"`
	Hook       string `yaml:"hook,omitempty"`
}

// Patterns accepts either a single glob or a list of globs.
type Patterns []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Patterns) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*p = Patterns{s}
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*p = list
	default:
		return fmt.Errorf("line %d: pattern must be a string or a list of strings", node.Line)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler, writing a single pattern as a scalar.
func (p Patterns) MarshalYAML() (any, error) {
	if len(p) == 1 {
		return p[0], nil
	}
	return []string(p), nil
}

// BaseDir returns the directory relative paths were resolved against.
func (c *Config) BaseDir() string { return c.baseDir }

// Pipeline returns the declaration for typ.
func (c *Config) Pipeline(typ string) (PipelineConfig, bool) {
	for _, p := range c.Pipelines {
		if p.Type == typ {
			return p, true
		}
	}
	return PipelineConfig{}, false
}

func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
