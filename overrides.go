// FILE: lixenwraith/nodeconf/overrides.go
package nodeconf

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// MaxValueSize bounds override values taken from the environment.
const MaxValueSize = 1 << 20

var (
	ErrCLIParse  = errors.New("failed to parse command-line arguments")
	ErrValueSize = errors.New("override value exceeds maximum size")
)

// EnvTransformFunc converts a configuration path to an environment variable name
type EnvTransformFunc func(path string) string

// defaultEnvTransform creates the default environment variable transformer
func defaultEnvTransform(prefix string) EnvTransformFunc {
	return func(path string) string {
		env := strings.NewReplacer(".", "_", " ", "_", "-", "_").Replace(path)
		return prefix + strings.ToUpper(env)
	}
}

// ApplyEnv overwrites existing entries with environment variables named by
// transform (nil: prefix + upper-cased path with dots as underscores, so
// "server.port" maps to "MYAPP_SERVER_PORT"). Paths that are not entries are
// never created. It returns the applied paths.
func (c *Config) ApplyEnv(prefix string, transform EnvTransformFunc) ([]string, error) {
	if transform == nil {
		transform = defaultEnvTransform(prefix)
	}

	var applied []string
	for _, path := range c.Paths() {
		value, exists := os.LookupEnv(transform(path))
		if !exists {
			continue
		}
		if len(value) > MaxValueSize {
			return applied, fmt.Errorf("%w: %s", ErrValueSize, transform(path))
		}
		n, _ := c.Get(path)
		if e, ok := n.AsEntry(); ok {
			e.SetValue(value)
			applied = append(applied, path)
		}
	}
	return applied, nil
}

// ApplyArgs overwrites existing entries from "--path=value", "--path value"
// and "--flag" arguments. Unknown paths are ignored. It returns the applied paths.
func (c *Config) ApplyArgs(args []string) ([]string, error) {
	parsed, err := parseArgs(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCLIParse, err)
	}

	var applied []string
	for _, path := range c.Paths() {
		value, ok := parsed[foldKey(path)]
		if !ok {
			continue
		}
		n, _ := c.Get(path)
		if e, ok := n.AsEntry(); ok {
			e.SetValue(value)
			applied = append(applied, path)
		}
	}
	return applied, nil
}

// parseArgs collects "--path=value", "--path value" and "--flag" arguments
// keyed by folded path. Later arguments win; "--" and positional arguments
// are skipped.
func parseArgs(args []string) (map[string]string, error) {
	result := make(map[string]string)
	for i := 0; i < len(args); i++ {
		key, ok := strings.CutPrefix(args[i], "--")
		if !ok || key == "" {
			continue
		}

		value := "true"
		if k, v, found := strings.Cut(key, "="); found {
			key, value = k, v
		} else if i+1 < len(args) && !strings.HasPrefix(args[i+1], "--") {
			i++
			value = args[i]
		}
		if key == "" {
			continue
		}

		for _, segment := range strings.Split(key, ".") {
			if !isValidKeySegment(segment) {
				return nil, fmt.Errorf("invalid command-line key segment %q in path %q", segment, key)
			}
		}
		result[foldKey(key)] = value
	}
	return result, nil
}
