// File: lixenwraith/nodeconf/type.go
package nodeconf

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// entryValue resolves path to the raw value of an entry.
func (c *Config) entryValue(path string) (string, error) {
	n, ok := c.Get(path)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	v, ok := n.Value()
	if !ok {
		return "", fmt.Errorf("%w: %s is a %s", ErrNotEntry, path, n.Kind())
	}
	return v, nil
}

// StringValue retrieves the value at path with one pair of surrounding double
// quotes removed. String, by contrast, serializes the whole tree.
func (c *Config) StringValue(path string) (string, error) {
	v, err := c.entryValue(path)
	if err != nil {
		return "", err
	}
	return unquote(v), nil
}

// Int64 retrieves an integer value at path.
// Accepts base prefixes ("0x", "0o", "0b") and truncates decimal values.
func (c *Config) Int64(path string) (int64, error) {
	v, err := c.entryValue(path)
	if err != nil {
		return 0, err
	}
	s := unquote(v)
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return i, nil
	} else {
		if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int64(f), nil
		}
		return 0, fmt.Errorf("cannot convert %q to int64 for path %s: %w", s, path, err)
	}
}

// Bool retrieves a boolean value at path. Besides strconv.ParseBool forms it
// accepts yes/no and on/off, the spellings common in plugin settings files.
func (c *Config) Bool(path string) (bool, error) {
	v, err := c.entryValue(path)
	if err != nil {
		return false, err
	}
	s := strings.ToLower(unquote(v))
	switch s {
	case "yes", "on":
		return true, nil
	case "no", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("cannot convert %q to bool for path %s: %w", s, path, err)
	}
	return b, nil
}

// Float64 retrieves a floating point value at path.
func (c *Config) Float64(path string) (float64, error) {
	v, err := c.entryValue(path)
	if err != nil {
		return 0, err
	}
	s := unquote(v)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to float64 for path %s: %w", s, path, err)
	}
	return f, nil
}

// Duration retrieves a time.Duration value at path using time.ParseDuration.
func (c *Config) Duration(path string) (time.Duration, error) {
	v, err := c.entryValue(path)
	if err != nil {
		return 0, err
	}
	s := unquote(v)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %q to duration for path %s: %w", s, path, err)
	}
	return d, nil
}

// StringOr returns the string at path, or def when it is absent or not an entry.
func (c *Config) StringOr(path, def string) string {
	if s, err := c.StringValue(path); err == nil {
		return s
	}
	return def
}

// unquote removes one pair of surrounding double quotes and collapses the
// doubled quotes inside them.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return s
}
