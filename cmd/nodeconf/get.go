package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/scott-cotton/cli"
)

func get(cfg *GetConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Get.Parse(cc, args)
	if err != nil {
		cfg.Get.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: get requires a path and a file", cli.ErrUsage)
	}
	cfg.colorize(os.Stderr)

	c, err := loadFile(cfg.MainConfig, os.Stderr, args[1])
	if err != nil {
		return err
	}
	n, ok := c.Get(args[0])
	if !ok {
		theLog.Warn("path not found", "path", args[0], "file", args[1])
		return cli.ExitCodeErr(1)
	}
	if v, ok := n.Value(); ok {
		fmt.Fprintln(cc.Out, v)
		return nil
	}
	if sec, ok := n.AsSection(); ok {
		for child := range sec.All() {
			fmt.Fprintln(cc.Out, strings.Join(child.Lines(), "\n"))
		}
		return nil
	}
	fmt.Fprintln(cc.Out, n.Text())
	return nil
}
