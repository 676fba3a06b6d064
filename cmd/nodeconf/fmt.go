package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/scott-cotton/cli"
)

func format(cfg *FmtConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Fmt.Parse(cc, args)
	if err != nil {
		cfg.Fmt.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: fmt requires at least one file", cli.ErrUsage)
	}
	unit, err := indentUnit(cfg.Indent)
	if err != nil {
		return fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	cfg.colorize(os.Stderr)

	for _, arg := range args {
		c, err := loadFile(cfg.MainConfig, os.Stderr, arg)
		if err != nil {
			return err
		}
		orig := c.Bytes()
		if err := c.SetIndentation(unit); err != nil {
			return err
		}
		out := c.Bytes()

		switch {
		case cfg.List:
			if !bytes.Equal(orig, out) {
				fmt.Fprintln(cc.Out, arg)
			}
		case cfg.Write:
			if bytes.Equal(orig, out) {
				continue
			}
			if err := c.Save(arg); err != nil {
				return err
			}
			theLog.Info("formatted", "file", arg)
		default:
			if _, err := cc.Out.Write(out); err != nil {
				return err
			}
		}
	}
	return nil
}

// indentUnit maps "tab", "" or a number of spaces to an indentation unit.
func indentUnit(s string) (string, error) {
	switch strings.ToLower(s) {
	case "", "tab", "tabs", "t":
		return "\t", nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid indentation %q", s)
	}
	return strings.Repeat(" ", n), nil
}
