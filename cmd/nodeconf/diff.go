package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/lixenwraith/nodeconf"
	"github.com/scott-cotton/cli"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		cfg.Diff.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires 2 args, got %v", cli.ErrUsage, args)
	}
	cfg.colorize(cc.Out)

	from, err := loadFile(cfg.MainConfig, os.Stderr, args[0])
	if err != nil {
		return err
	}
	to, err := loadFile(cfg.MainConfig, os.Stderr, args[1])
	if err != nil {
		return err
	}

	var differs bool
	if cfg.Text {
		differs = textDiff(cc.Out, from.String(), to.String())
	} else {
		differs = keyDiff(cc.Out, from, to, splitList(cfg.Exclude))
	}
	if differs {
		return cli.ExitCodeErr(1)
	}
	return nil
}

// keyDiff prints paths present on one side only and entries whose values
// differ. Excluded keys and paths are skipped.
func keyDiff(w io.Writer, from, to *nodeconf.Config, excluded []string) bool {
	if !from.Compare(to, excluded...) && !to.Compare(from, excluded...) {
		return false
	}
	skip := make(map[string]bool, len(excluded))
	for _, x := range excluded {
		skip[strings.ToLower(x)] = true
	}
	skipped := func(path string) bool {
		if skip[strings.ToLower(path)] {
			return true
		}
		for _, step := range strings.Split(path, ".") {
			if skip[strings.ToLower(step)] {
				return true
			}
		}
		return false
	}

	differs := false
	for _, p := range to.Root().Missing(from.Root()) {
		if !skipped(p) {
			fmt.Fprintln(w, color.RedString("- %s", p))
			differs = true
		}
	}
	for _, p := range from.Root().Missing(to.Root()) {
		if !skipped(p) {
			fmt.Fprintln(w, color.GreenString("+ %s", p))
			differs = true
		}
	}
	for p, v := range from.Entries() {
		if skipped(p) {
			continue
		}
		if nv, ok := to.Value(p); ok && nv != v {
			fmt.Fprintf(w, "%s %s: %s -> %s\n", color.YellowString("~"), p, v, nv)
			differs = true
		}
	}
	return differs
}

// textDiff prints a line diff of two serialized trees.
func textDiff(w io.Writer, from, to string) bool {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	differs := false
	for _, d := range diffs {
		text := strings.TrimSuffix(d.Text, "\n")
		switch d.Type {
		case diffpatch.DiffInsert:
			differs = true
			for _, l := range strings.Split(text, "\n") {
				fmt.Fprintln(w, color.GreenString("+%s", l))
			}
		case diffpatch.DiffDelete:
			differs = true
			for _, l := range strings.Split(text, "\n") {
				fmt.Fprintln(w, color.RedString("-%s", l))
			}
		case diffpatch.DiffEqual:
			for _, l := range strings.Split(text, "\n") {
				fmt.Fprintf(w, " %s\n", l)
			}
		}
	}
	return differs
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
