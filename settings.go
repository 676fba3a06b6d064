// FILE: lixenwraith/nodeconf/settings.go
package nodeconf

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// RegistrySettings is the TOML document configuring a registry deployment:
//
//	root = "plugins/settings"
//	extension = ".sk"
//
//	[parse]
//	separator = ":"
//	allow_empty_sections = false
//
//	[watch]
//	enabled = true
//	debounce = "500ms"
type RegistrySettings struct {
	Root             string        `toml:"root"`
	Extension        string        `toml:"extension"`
	AllowOutsideRoot bool          `toml:"allow_outside_root"`
	Parse            ParseSettings `toml:"parse"`
	Watch            WatchSettings `toml:"watch"`
}

// ParseSettings mirrors Options for files parsed by the registry.
type ParseSettings struct {
	Separator          string `toml:"separator"`
	SectionDelimiter   string `toml:"section_delimiter"`
	Simple             bool   `toml:"simple"`
	AllowEmptySections bool   `toml:"allow_empty_sections"`
	MaxDepth           int    `toml:"max_depth"`
}

// WatchSettings mirrors WatchOptions.
type WatchSettings struct {
	Enabled           bool          `toml:"enabled"`
	Debounce          time.Duration `toml:"debounce"`
	MaxWatchers       int           `toml:"max_watchers"`
	ReloadTimeout     time.Duration `toml:"reload_timeout"`
	VerifyPermissions bool          `toml:"verify_permissions"`
}

// DefaultRegistrySettings returns the settings used for keys a file omits.
func DefaultRegistrySettings() RegistrySettings {
	def := DefaultOptions()
	w := DefaultWatchOptions()
	return RegistrySettings{
		Root:      ".",
		Extension: DefaultExtension,
		Parse: ParseSettings{
			Separator:        def.Separator,
			SectionDelimiter: def.SectionDelimiter,
			MaxDepth:         def.MaxDepth,
		},
		Watch: WatchSettings{
			Debounce:          w.Debounce,
			MaxWatchers:       w.MaxWatchers,
			ReloadTimeout:     w.ReloadTimeout,
			VerifyPermissions: w.VerifyPermissions,
		},
	}
}

// LoadRegistrySettings reads a settings file over the defaults. Unknown keys
// are an error.
func LoadRegistrySettings(path string) (RegistrySettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RegistrySettings{}, fmt.Errorf("failed to read settings file '%s': %w", path, err)
	}
	return DecodeRegistrySettings(string(data))
}

// DecodeRegistrySettings parses settings from TOML text over the defaults.
func DecodeRegistrySettings(text string) (RegistrySettings, error) {
	s := DefaultRegistrySettings()
	md, err := toml.Decode(text, &s)
	if err != nil {
		return RegistrySettings{}, fmt.Errorf("failed to decode registry settings: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return RegistrySettings{}, fmt.Errorf("unknown registry settings: %s", strings.Join(keys, ", "))
	}
	return s, nil
}

// ParseOptions converts the parse table to Options.
func (s RegistrySettings) ParseOptions() []Option {
	return []Option{
		WithSeparator(s.Parse.Separator),
		WithSectionDelimiter(s.Parse.SectionDelimiter),
		WithSimple(s.Parse.Simple),
		WithAllowEmptySections(s.Parse.AllowEmptySections),
		WithMaxDepth(s.Parse.MaxDepth),
	}
}

// WatchOptions converts the watch table to WatchOptions.
func (s RegistrySettings) WatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:          s.Watch.Debounce,
		MaxWatchers:       s.Watch.MaxWatchers,
		ReloadTimeout:     s.Watch.ReloadTimeout,
		VerifyPermissions: s.Watch.VerifyPermissions,
	}
}

// RegistryOptions converts the settings to RegistryOptions. extra is applied
// last and may add a logger or reporter.
func (s RegistrySettings) RegistryOptions(extra ...RegistryOption) []RegistryOption {
	opts := []RegistryOption{
		WithExtension(s.Extension),
		WithParseOptions(s.ParseOptions()...),
	}
	if s.AllowOutsideRoot {
		opts = append(opts, AllowOutsideRoot())
	}
	return append(opts, extra...)
}

// OpenRegistry creates a registry from settings and starts its watcher when
// the watch table enables it.
func OpenRegistry[C comparable](s RegistrySettings, log *slog.Logger, extra ...RegistryOption) (*Registry[C], error) {
	if log != nil {
		extra = append([]RegistryOption{WithLogger(log)}, extra...)
	}
	r, err := NewRegistry[C](s.Root, s.RegistryOptions(extra...)...)
	if err != nil {
		return nil, err
	}
	if s.Watch.Enabled {
		wo := s.WatchOptions()
		wo.Logger = log
		if _, err := r.Watch(wo); err != nil {
			return nil, err
		}
	}
	return r, nil
}
