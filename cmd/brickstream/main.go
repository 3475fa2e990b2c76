// Command brickstream packs synthetic volumes into a blob store and streams
// them headless, reporting cache and histogram statistics.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/brickstream"
)

var app = &cli.App{
	Name:  "brickstream",
	Usage: "octree brick streaming tool",
	Flags: []cli.Flag{
		logLevelFlag,
		logJSONFlag,
	},
	Commands: []*cli.Command{
		packCommand,
		renderCommand,
		dumpConfigCommand,
	},
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(ctx *cli.Context) (*brickstream.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(ctx.String(logLevelFlag.Name))); err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", logLevelFlag.Name, err)
	}
	if ctx.Bool(logJSONFlag.Name) {
		return brickstream.NewJSONLogger(level), nil
	}
	return brickstream.NewTextLogger(level), nil
}
