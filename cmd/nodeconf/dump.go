package main

import (
	"fmt"
	"os"

	"github.com/lixenwraith/nodeconf"
	"github.com/scott-cotton/cli"
)

func dump(cfg *DumpConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Dump.Parse(cc, args)
	if err != nil {
		cfg.Dump.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: dump requires one file", cli.ErrUsage)
	}
	name := cfg.Format
	if name == "" {
		name = string(nodeconf.FormatJSON)
	}
	f, err := nodeconf.ParseFormat(name)
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	cfg.colorize(os.Stderr)

	c, err := loadFile(cfg.MainConfig, os.Stderr, args[0])
	if err != nil {
		return err
	}
	return c.Dump(cc.Out, f)
}
