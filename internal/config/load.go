package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/contented/internal/build"
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// Default values applied to omitted keys.
const (
	DefaultOutputDirectory = ".contented"
	DefaultOnError         = "skip"
	DefaultDebounce        = "200ms"
	DefaultMaxWait         = "2s"
	DefaultProcessor       = "md"
	DefaultNATSSubject     = "contented.index"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Load reads the configuration at path. A .env file next to it is loaded
// first without overriding variables already set in the environment, then
// ${VAR} references in the file are expanded. Relative paths are resolved
// against the configuration file's directory.
func Load(path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "resolve configuration path").
			WithContext("path", path).Build()
	}
	baseDir := filepath.Dir(abs)

	if err := loadEnvFile(filepath.Join(baseDir, ".env")); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.ConfigError(fmt.Sprintf("configuration file not found: %s", path)).
				WithContext("path", path).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read configuration file").
			WithContext("path", path).Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.resolvePaths(baseDir)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data after environment expansion and applies defaults. It
// does not validate or resolve paths.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "decode configuration").Build()
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat .env file").WithContext("path", path).Build()
	}
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(path); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryConfig, "load .env file").WithContext("path", path).Build()
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Output.Directory == "" {
		c.Output.Directory = DefaultOutputDirectory
	}
	if c.Build.Concurrency == 0 {
		c.Build.Concurrency = build.DefaultConcurrency
	}
	if c.Build.OnError == "" {
		c.Build.OnError = DefaultOnError
	}
	if c.Build.Debounce == "" {
		c.Build.Debounce = DefaultDebounce
	}
	if c.Build.MaxWait == "" {
		c.Build.MaxWait = DefaultMaxWait
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = DefaultNATSSubject
	}
	for i := range c.Pipelines {
		if c.Pipelines[i].Processor == "" {
			c.Pipelines[i].Processor = DefaultProcessor
		}
		if c.Pipelines[i].Root == "" {
			c.Pipelines[i].Root = "."
		}
	}
}

func (c *Config) resolvePaths(baseDir string) {
	c.baseDir = baseDir
	c.Output.Directory = resolve(baseDir, c.Output.Directory)
	if c.Journal.Path != "" && c.Journal.Path != ":memory:" {
		c.Journal.Path = resolve(baseDir, c.Journal.Path)
	}
	for i := range c.Pipelines {
		c.Pipelines[i].Root = resolve(baseDir, c.Pipelines[i].Root)
	}
}

func resolve(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}
