package commands

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	Listen string `short:"l" help:"Serve the read API on this address (overrides server.listen)"`
}

func (w *WatchCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}
	if w.Listen != "" {
		cfg.Server.Listen = w.Listen
	}

	ctx, cancel := signalContext()
	defer cancel()

	d, err := newDaemon(ctx, g, cfg)
	if err != nil {
		return err
	}
	g.Logger.Info("Watching for changes, press Ctrl+C to stop")
	return d.Run(ctx)
}
