package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/lixenwraith/nodeconf"
	"github.com/scott-cotton/cli"
)

func check(cfg *CheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Check.Parse(cc, args)
	if err != nil {
		cfg.Check.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: check requires at least one file", cli.ErrUsage)
	}
	cfg.colorize(cc.Out)

	failed := false
	for _, arg := range args {
		coll := &nodeconf.Collector{}
		if _, err := nodeconf.LoadFile(arg, cfg.parseOpts(coll)...); err != nil {
			return fmt.Errorf("error loading %s: %w", arg, err)
		}
		for _, d := range coll.Diagnostics() {
			printDiagnostic(cc.Out, d)
		}
		if len(coll.Errors()) > 0 || (cfg.Strict && len(coll.Warnings()) > 0) {
			failed = true
		}
	}
	if failed {
		return cli.ExitCodeErr(1)
	}
	return nil
}

func printDiagnostic(w io.Writer, d nodeconf.Diagnostic) {
	label := color.YellowString("warning")
	if d.Severity == nodeconf.SeverityError {
		label = color.RedString("error")
	}
	fmt.Fprintf(w, "%s: %s\n", label, d)
}

// loadFile parses arg, printing its diagnostics to w.
func loadFile(cfg *MainConfig, w io.Writer, arg string) (*nodeconf.Config, error) {
	coll := &nodeconf.Collector{}
	c, err := nodeconf.LoadFile(arg, cfg.parseOpts(coll)...)
	if err != nil {
		return nil, fmt.Errorf("error loading %s: %w", arg, err)
	}
	for _, d := range coll.Diagnostics() {
		printDiagnostic(w, d)
	}
	return c, nil
}
