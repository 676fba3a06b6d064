// File: lixenwraith/nodeconf/convenience.go
package nodeconf

import (
	"fmt"
	"os"
	"strings"
)

// Quick loads a settings file with a single call: missing paths are filled
// from structDefaults and written back, then environment variables with
// envPrefix and command-line arguments override entries in memory.
func Quick(structDefaults any, envPrefix, configFile string) (*Config, error) {
	return NewBuilder().
		WithDefaults(structDefaults).
		WithEnvPrefix(envPrefix).
		WithFile(configFile).
		WithArgs(os.Args[1:]).
		Build()
}

// MustQuick is like Quick but panics on error
func MustQuick(structDefaults any, envPrefix, configFile string) *Config {
	cfg, err := Quick(structDefaults, envPrefix, configFile)
	if err != nil {
		panic(fmt.Sprintf("config initialization failed: %v", err))
	}
	return cfg
}

// Validate checks that all required paths are entries with a non-empty value
func (c *Config) Validate(required ...string) error {
	var missing []string

	for _, path := range required {
		n, ok := c.Get(path)
		if !ok {
			missing = append(missing, path)
			continue
		}
		v, ok := n.Value()
		if !ok {
			missing = append(missing, fmt.Sprintf("%s (%s, not an entry)", path, n.Kind()))
			continue
		}
		if strings.TrimSpace(unquote(v)) == "" {
			missing = append(missing, path+" (empty)")
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Debug returns a formatted listing of every node with its kind and source line
func (c *Config) Debug() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config %q (path %q)\n", c.name, c.path)
	fmt.Fprintf(&b, "Separator: %q, section delimiter: %q, indentation: %q (%s), simple: %t\n",
		c.opts.Separator, c.opts.SectionDelimiter, c.indent, c.IndentationName(), c.opts.Simple)
	debugSection(&b, c.Root(), 1)
	return b.String()
}

func debugSection(b *strings.Builder, s Section, depth int) {
	pad := strings.Repeat("  ", depth)
	for n := range s.All() {
		switch n.Kind() {
		case KindSection:
			fmt.Fprintf(b, "%s%s [section, line %d]\n", pad, n.Key(), n.Line())
			sec, _ := n.AsSection()
			debugSection(b, sec, depth+1)
		case KindEntry:
			v, _ := n.Value()
			fmt.Fprintf(b, "%s%s = %q [entry, line %d]\n", pad, n.Key(), v, n.Line())
		default:
			fmt.Fprintf(b, "%s%q [%s, line %d]\n", pad, n.Text(), n.Kind(), n.Line())
		}
	}
}
