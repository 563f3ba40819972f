package commands

import (
	"fmt"
	"maps"
	"slices"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Watch bool `short:"w" help:"Keep watching for changes after the initial build"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	if b.Watch {
		return (&WatchCmd{}).Run(g, root)
	}
	cfg, err := loadConfig(g, root)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	d, err := newDaemon(ctx, g, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	results, buildErr := d.Build(ctx)
	out := g.stdout()
	for _, typ := range slices.Sorted(maps.Keys(results)) {
		res := results[typ]
		status := "committed"
		if !res.Committed {
			status = "failed"
		}
		fmt.Fprintf(out, "%s: %s, %d records from %d files", typ, status, res.Records, res.Files)
		if n := len(res.Failures); n > 0 {
			fmt.Fprintf(out, ", %d skipped", n)
		}
		if n := len(res.Collisions); n > 0 {
			fmt.Fprintf(out, ", %d path collisions", n)
		}
		fmt.Fprintln(out)
	}
	for _, typ := range slices.Sorted(maps.Keys(d.Disabled())) {
		fmt.Fprintf(out, "%s: disabled\n", typ)
	}
	return buildErr
}
