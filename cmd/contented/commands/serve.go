package commands

import (
	ferrors "git.home.luguber.info/inful/contented/internal/foundation/errors"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen string `short:"l" help:"Listen address (overrides server.listen)"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if s.Listen != "" {
		cfg.Server.Listen = s.Listen
	}
	if !cfg.Server.Enabled() {
		return ferrors.ConfigError("no listen address: set server.listen or pass --listen").
			WithContext("field", "server.listen").Build()
	}

	ctx, cancel := signalContext()
	defer cancel()

	d, err := newDaemon(ctx, g, cfg)
	if err != nil {
		return err
	}
	return d.Serve(ctx)
}
