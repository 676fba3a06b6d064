// FILE: lixenwraith/nodeconf/export.go
package nodeconf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format names a structured interchange format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatTOML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "tml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// detectFileFormat determines format from file extension
func detectFileFormat(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML, true
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	default:
		return "", false
	}
}

// ToMap converts the tree to nested maps: sections become maps and entries
// become strings. Simple tokens become keys mapped to nil. When keys repeat
// the first occurrence wins, as with Section.Get.
func (c *Config) ToMap() map[string]any {
	return sectionMap(c.Root())
}

// FlatMap returns every entry keyed by its dotted path. Simple tokens map to nil.
func (c *Config) FlatMap() map[string]any {
	flat := make(map[string]any)
	flattenInto(flat, c.ToMap(), "")
	return flat
}

// SectionMap converts the section at path to nested maps.
func (c *Config) SectionMap(path string) (map[string]any, error) {
	if strings.Trim(path, ".") == "" {
		return c.ToMap(), nil
	}
	n, ok := c.Get(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	sec, ok := n.AsSection()
	if !ok {
		return nil, fmt.Errorf("%w: %s is a %s", ErrNotSection, path, n.Kind())
	}
	return sectionMap(sec), nil
}

func sectionMap(s Section) map[string]any {
	m := make(map[string]any)
	seen := make(map[string]bool)
	for n := range s.Nodes() {
		key := n.Key()
		if seen[foldKey(key)] {
			continue
		}
		seen[foldKey(key)] = true
		switch n.Kind() {
		case KindSection:
			sec, _ := n.AsSection()
			m[key] = sectionMap(sec)
		case KindEntry:
			v, _ := n.Value()
			m[key] = v
		case KindSimple:
			m[key] = nil
		}
	}
	return m
}

// FromMap builds a tree from nested maps. Keys are written in sorted order;
// scalar values are formatted with fmt and lists are joined with ",".
func FromMap(m map[string]any, opts ...Option) *Config {
	c := New(opts...)
	fillSection(c.Root(), m)
	return c
}

func fillSection(s Section, m map[string]any) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		switch v := m[k].(type) {
		case map[string]any:
			fillSection(s.AddSection(k), v)
		case nil:
			if s.c.opts.Simple {
				s.AddSimple(k)
			} else {
				s.AddEntry(k, "")
			}
		case []any:
			parts := make([]string, len(v))
			for i, e := range v {
				parts[i] = fmt.Sprint(e)
			}
			s.AddEntry(k, strings.Join(parts, ","))
		default:
			s.AddEntry(k, fmt.Sprint(v))
		}
	}
}

// Dump writes the tree to w as JSON, YAML or TOML.
func (c *Config) Dump(w io.Writer, format Format) error {
	data := c.ToMap()
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to marshal config data to YAML: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(data); err != nil {
			return fmt.Errorf("failed to marshal config data to TOML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

// Import decodes JSON, YAML or TOML from r into a new tree.
func Import(r io.Reader, format Format, opts ...Option) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s input: %w", format, err)
	}

	data := make(map[string]any)
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return nil, fmt.Errorf("failed to parse JSON input: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to parse YAML input: %w", err)
		}
	case FormatTOML:
		if err := toml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to parse TOML input: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	return FromMap(data, opts...), nil
}

// ExportFile dumps the tree to path in the format named by its extension.
func (c *Config) ExportFile(path string) error {
	format, ok := detectFileFormat(path)
	if !ok {
		return fmt.Errorf("cannot detect export format of '%s'", path)
	}
	var buf bytes.Buffer
	if err := c.Dump(&buf, format); err != nil {
		return err
	}
	return atomicWriteFile(path, buf.Bytes())
}

// ImportFile reads a JSON, YAML or TOML file, detected by extension, into a
// new tree.
func ImportFile(path string, opts ...Option) (*Config, error) {
	format, ok := detectFileFormat(path)
	if !ok {
		return nil, fmt.Errorf("cannot detect import format of '%s'", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer f.Close()
	return Import(f, format, opts...)
}
