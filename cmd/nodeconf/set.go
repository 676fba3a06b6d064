package main

import (
	"fmt"
	"os"

	"github.com/scott-cotton/cli"
)

func set(cfg *SetConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Set.Parse(cc, args)
	if err != nil {
		cfg.Set.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 3 {
		return fmt.Errorf("%w: set requires a path, a value and a file", cli.ErrUsage)
	}
	path, value, file := args[0], args[1], args[2]
	cfg.colorize(os.Stderr)

	c, err := loadFile(cfg.MainConfig, os.Stderr, file)
	if err != nil {
		return err
	}
	if err := c.Set(path, value); err != nil {
		return fmt.Errorf("error setting %s: %w", path, err)
	}
	if cfg.Comment != "" {
		c.GetNode(path).SetComment(cfg.Comment)
	}
	if err := c.Save(file); err != nil {
		return err
	}
	theLog.Info("updated", "file", file, "path", path)
	return nil
}
