// File: lixenwraith/nodeconf/builder.go
package nodeconf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ValidatorFunc defines the signature for a function that can validate a Config instance.
// It receives the fully loaded *Config object and should return an error if validation fails.
type ValidatorFunc func(c *Config) error

// Builder provides a fluent interface for loading a settings file: it creates
// the file from a template when missing, upgrades it when the template gained
// keys, fills struct defaults and applies environment and command-line overrides.
type Builder struct {
	opts         []Option
	defaults     any
	prefix       string
	file         string
	template     string
	hasTemplate  bool
	excluded     []string
	envPrefix    string
	envTransform EnvTransformFunc
	useEnv       bool
	args         []string
	writeBack    bool
	err          error
	validators   []ValidatorFunc
}

// NewBuilder creates a new configuration builder
func NewBuilder() *Builder {
	return &Builder{
		args:       os.Args[1:],
		writeBack:  true,
		validators: make([]ValidatorFunc, 0),
	}
}

// WithOptions sets the parse options
func (b *Builder) WithOptions(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// WithDefaults sets the struct containing default values
func (b *Builder) WithDefaults(defaults any) *Builder {
	b.defaults = defaults
	return b
}

// WithPrefix sets the prefix for struct registration and scanning
func (b *Builder) WithPrefix(prefix string) *Builder {
	b.prefix = prefix
	return b
}

// WithFile sets the configuration file path
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithTemplate sets the text a missing file is created from. An existing file
// lacking keys of the template is rebuilt from the template, keeping the
// values of the existing file.
func (b *Builder) WithTemplate(text string) *Builder {
	b.template = text
	b.hasTemplate = true
	return b
}

// WithTemplateFile reads the template from path.
func (b *Builder) WithTemplateFile(path string) *Builder {
	data, err := os.ReadFile(path)
	if err != nil {
		b.err = fmt.Errorf("failed to read template '%s': %w", path, err)
		return b
	}
	return b.WithTemplate(string(data))
}

// WithExcluded names keys or paths whose values are never carried over
// during a template upgrade, such as a version entry.
func (b *Builder) WithExcluded(keys ...string) *Builder {
	b.excluded = append(b.excluded, keys...)
	return b
}

// WithEnvPrefix enables environment overrides with the given prefix
func (b *Builder) WithEnvPrefix(prefix string) *Builder {
	b.envPrefix = prefix
	b.useEnv = true
	return b
}

// WithEnvTransform sets a custom environment variable transformer
func (b *Builder) WithEnvTransform(fn EnvTransformFunc) *Builder {
	b.envTransform = fn
	b.useEnv = true
	return b
}

// WithArgs sets the command-line arguments
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// WithWriteBack controls whether a created, upgraded or defaulted file is
// saved back to disk. Enabled by default.
func (b *Builder) WithWriteBack(enabled bool) *Builder {
	b.writeBack = enabled
	return b
}

// WithValidator adds a validation function that runs at the end of the build process
// Multiple validators can be added and are executed in the order they are added
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build creates the Config instance with all specified options
func (b *Builder) Build() (*Config, error) {
	if b.err != nil {
		return nil, b.err
	}

	cfg, dirty, err := b.load()
	if err != nil {
		return nil, err
	}

	if b.defaults != nil {
		added, err := cfg.RegisterStruct(b.prefix, b.defaults)
		if err != nil {
			return nil, fmt.Errorf("failed to register defaults: %w", err)
		}
		dirty = dirty || len(added) > 0
	}

	if dirty && b.writeBack && b.file != "" {
		if err := cfg.Save(b.file); err != nil {
			return nil, err
		}
	}

	// Overrides are applied after saving so they never reach the file
	if b.useEnv {
		if _, err := cfg.ApplyEnv(b.envPrefix, b.envTransform); err != nil {
			return nil, err
		}
	}
	if len(b.args) > 0 {
		if _, err := cfg.ApplyArgs(b.args); err != nil {
			return nil, err
		}
	}

	for _, validator := range b.validators {
		if err := validator(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	return cfg, nil
}

// load reads the file, creating or upgrading it from the template. dirty
// reports whether the result differs from the file on disk.
func (b *Builder) load() (cfg *Config, dirty bool, err error) {
	var tmpl *Config
	if b.hasTemplate {
		tmpl, err = Parse(strings.NewReader(b.template), "template", b.opts...)
		if err != nil {
			return nil, false, err
		}
	}

	if b.file == "" {
		if tmpl != nil {
			return tmpl, false, nil
		}
		return New(b.opts...), false, nil
	}

	cfg, err = LoadFile(b.file, b.opts...)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if tmpl != nil {
			tmpl.path, tmpl.name = b.file, filepath.Base(b.file)
			return tmpl, true, nil
		}
		cfg = New(b.opts...)
		cfg.path, cfg.name = b.file, filepath.Base(b.file)
		return cfg, false, nil
	case err != nil:
		return nil, false, err
	}

	if tmpl != nil && len(cfg.Root().Missing(tmpl.Root())) > 0 {
		tmpl.SetValues(cfg, b.excluded...)
		tmpl.path, tmpl.name = cfg.path, cfg.name
		return tmpl, true, nil
	}
	return cfg, false, nil
}

// MustBuild is like Build but panics on error
func (b *Builder) MustBuild() *Config {
	cfg, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return cfg
}

// BuildAndScan builds and decodes the final configuration into the provided target struct pointer
func (b *Builder) BuildAndScan(target any) (*Config, error) {
	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}

	// The prefix used during registration is the base path for scanning.
	if err := cfg.Scan(b.prefix, target); err != nil {
		return nil, fmt.Errorf("failed to scan final config into target: %w", err)
	}
	return cfg, nil
}
