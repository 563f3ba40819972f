// Package commands implements the contented command line.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/contented/internal/config"
	"git.home.luguber.info/inful/contented/internal/daemon"
)

// Global carries state shared by every subcommand.
type Global struct {
	Logger *slog.Logger
	// Stdout receives user-facing output; nil means os.Stdout.
	Stdout io.Writer
	// Stderr receives logs; nil means os.Stderr.
	Stderr io.Writer
	// DaemonOptions are appended to every daemon the commands create.
	DaemonOptions []daemon.Option
}

func (g *Global) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}

func (g *Global) stderr() io.Writer {
	if g.Stderr == nil {
		return os.Stderr
	}
	return g.Stderr
}

// CLI definition and global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"contented.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build BuildCmd `cmd:"" help:"Index every pipeline into the output directory"`
	Watch WatchCmd `cmd:"" help:"Build, then rebuild incrementally as files change"`
	Serve ServeCmd `cmd:"" help:"Serve the persisted indexes over HTTP"`
	Init  InitCmd  `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing and sets up logging until the
// configuration is loaded.
func (c *CLI) AfterApply(g *Global) error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	g.Logger = slog.New(slog.NewTextHandler(g.stderr(), &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)
	return nil
}

// loadConfig loads the configuration and replaces the logger with the one
// it describes.
func loadConfig(g *Global, root *CLI) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	g.Logger = cfg.Logging.NewLogger(g.stderr(), root.Verbose)
	slog.SetDefault(g.Logger)
	return cfg, nil
}

func newDaemon(ctx context.Context, g *Global, cfg *config.Config) (*daemon.Daemon, error) {
	opts := append([]daemon.Option{daemon.WithLogger(g.Logger)}, g.DaemonOptions...)
	return daemon.New(ctx, cfg, opts...)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
