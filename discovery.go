// FILE: lixenwraith/nodeconf/discovery.go
package nodeconf

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDiscoveryOptions configures automatic config file discovery
type FileDiscoveryOptions struct {
	Name          string   // base name of the file, without extension
	Extensions    []string // tried in order for every directory
	Paths         []string // searched before the current and XDG directories
	EnvVar        string   // names a variable holding an explicit path
	CLIFlag       string   // e.g. "--config"; accepts "--config x" and "--config=x"
	UseXDG        bool
	UseCurrentDir bool
}

// DefaultDiscoveryOptions returns the options for an application named
// appName: files appName.sk or appName.conf, APPNAME_CONFIG and --config.
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{DefaultExtension, ".conf"},
		EnvVar:        strings.ToUpper(appName) + "_CONFIG",
		CLIFlag:       "--config",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// Discover returns the first existing config file, checking the CLI flag,
// then the environment variable, then the search paths. ok is false when no
// file was found; callers may still create one at a path of their choice.
// Explicit paths from the flag or the environment are returned unchecked.
func Discover(opts FileDiscoveryOptions, args []string) (path string, ok bool) {
	if path, ok := opts.flagValue(args); ok {
		return path, true
	}
	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			return path, true
		}
	}

	for _, dir := range opts.searchDirs() {
		for _, ext := range opts.Extensions {
			candidate := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, true
			}
		}
	}
	return "", false
}

func (o FileDiscoveryOptions) flagValue(args []string) (string, bool) {
	if o.CLIFlag == "" {
		return "", false
	}
	for i, arg := range args {
		if arg == o.CLIFlag && i+1 < len(args) {
			return args[i+1], true
		}
		if v, found := strings.CutPrefix(arg, o.CLIFlag+"="); found {
			return v, true
		}
	}
	return "", false
}

func (o FileDiscoveryOptions) searchDirs() []string {
	dirs := append([]string(nil), o.Paths...)
	if o.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}
	if o.UseXDG {
		dirs = append(dirs, xdgConfigDirs(o.Name)...)
	}
	return dirs
}

// WithFileDiscovery sets the file to the discovered one. No file found is not
// an error; the builder keeps any path set earlier.
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	if path, ok := Discover(opts, b.args); ok {
		b.file = path
	}
	return b
}

// xdgConfigDirs lists $XDG_CONFIG_HOME (or ~/.config) followed by
// $XDG_CONFIG_DIRS (or /etc/xdg and /etc), each joined with appName.
func xdgConfigDirs(appName string) []string {
	var bases []string
	switch home := os.Getenv("XDG_CONFIG_HOME"); {
	case home != "":
		bases = append(bases, home)
	case os.Getenv("HOME") != "":
		bases = append(bases, filepath.Join(os.Getenv("HOME"), ".config"))
	}
	if dirs := os.Getenv("XDG_CONFIG_DIRS"); dirs != "" {
		bases = append(bases, filepath.SplitList(dirs)...)
	} else {
		bases = append(bases, "/etc/xdg", "/etc")
	}

	out := make([]string, len(bases))
	for i, base := range bases {
		out[i] = filepath.Join(base, appName)
	}
	return out
}
