package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/lixenwraith/nodeconf"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Sep     string `cli:"name=sep desc='entry separator'"`
	Delim   string `cli:"name=delim desc='section delimiter'"`
	Simple  bool   `cli:"name=simple desc='parse leaves as bare tokens'"`
	Empty   bool   `cli:"name=empty desc='allow empty sections'"`
	Color   bool   `cli:"name=color desc='force colored output'"`
	NoColor bool   `cli:"name=nocolor desc='disable colored output'"`

	Main *cli.Command
}

// parseOpts returns the parse options selected on the command line.
func (cfg *MainConfig) parseOpts(r nodeconf.Reporter) []nodeconf.Option {
	opts := []nodeconf.Option{
		nodeconf.WithSimple(cfg.Simple),
		nodeconf.WithAllowEmptySections(cfg.Empty),
		nodeconf.WithReporter(r),
	}
	if cfg.Sep != "" {
		opts = append(opts, nodeconf.WithSeparator(cfg.Sep))
	}
	if cfg.Delim != "" {
		opts = append(opts, nodeconf.WithSectionDelimiter(cfg.Delim))
	}
	return opts
}

// colorize configures fatih/color for output to w.
func (cfg *MainConfig) colorize(w io.Writer) {
	switch {
	case cfg.NoColor:
		color.NoColor = true
	case cfg.Color:
		color.NoColor = false
	default:
		f, ok := w.(*os.File)
		color.NoColor = !ok || !isatty.IsTerminal(f.Fd())
	}
}

type CheckConfig struct {
	*MainConfig
	Strict bool `cli:"name=strict desc='treat warnings as errors'"`

	Check *cli.Command
}

type FmtConfig struct {
	*MainConfig
	Indent string `cli:"name=indent desc='indentation unit: tab, or a number of spaces'"`
	Write  bool   `cli:"name=w desc='write result to the source file'"`
	List   bool   `cli:"name=l desc='list files whose formatting differs'"`

	Fmt *cli.Command
}

type GetConfig struct {
	*MainConfig

	Get *cli.Command
}

type SetConfig struct {
	*MainConfig
	Comment string `cli:"name=c desc='trailing comment for the entry'"`

	Set *cli.Command
}

type DiffConfig struct {
	*MainConfig
	Text    bool   `cli:"name=text desc='show a line diff instead of a key diff'"`
	Exclude string `cli:"name=x desc='comma separated keys or paths to ignore'"`

	Diff *cli.Command
}

type DumpConfig struct {
	*MainConfig
	Format string `cli:"name=f aliases=format desc='output format: json, yaml or toml'"`

	Dump *cli.Command
}
