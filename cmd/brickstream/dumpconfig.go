package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hupe1980/brickstream"
)

var dumpConfigCommand = &cli.Command{
	Name:      "dumpconfig",
	Usage:     "Print the effective streaming configuration as TOML",
	ArgsUsage: " ",
	Flags:     configFlags,
	Action: func(ctx *cli.Context) error {
		cfg, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		return brickstream.EncodeConfig(os.Stdout, cfg)
	},
}
