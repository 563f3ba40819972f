package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// Example returns the configuration written by Init: a single Doc pipeline
// over markdown files with a defaulted title.
func Example() Config {
	return Config{
		Output: OutputConfig{Directory: DefaultOutputDirectory},
		Build: BuildConfig{
			Concurrency: 8,
			OnError:     DefaultOnError,
			Debounce:    DefaultDebounce,
			MaxWait:     DefaultMaxWait,
		},
		Logging: LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		NATS:    NATSConfig{Subject: DefaultNATSSubject},
		Pipelines: []PipelineConfig{
			{
				Type:      "Doc",
				Root:      ".",
				Pattern:   Patterns{"**/*.md"},
				Processor: DefaultProcessor,
				Fields: map[string]FieldConfig{
					"title":       {Type: "string", Required: true, Default: "Contented"},
					"description": {Type: "string"},
				},
				Transform: TransformConfig{StripPathPrefix: "/docs", DropSections: 1},
			},
		},
	}
}

// Init writes Example to path. An existing file is only replaced when force is set.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", path)).
			WithContext("path", path).Build()
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat configuration file").
			WithContext("path", path).Build()
	}

	example := Example()
	data, err := yaml.Marshal(&example)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "marshal example configuration").Build()
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write configuration file").
			WithContext("path", path).Build()
	}
	return nil
}
