// FILE: lixenwraith/nodeconf/decode.go
package nodeconf

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// TagName is the struct tag consulted by Scan and RegisterStruct.
const TagName = "toml"

// Scan decodes the section at basePath ("" for the whole tree) into target,
// which must be a non-nil pointer to a struct or map. Entry values are
// strings; they are converted weakly to the target field types.
func (c *Config) Scan(basePath string, target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("target of Scan must be a non-nil pointer, got %T", target)
	}

	data, err := c.SectionMap(basePath)
	switch {
	case errors.Is(err, ErrPathNotFound):
		data = make(map[string]any)
	case err != nil:
		return fmt.Errorf("path %q refers to non-section value: %w", basePath, err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          TagName,
		WeaklyTypedInput: true,
		MatchName:        matchKey,
		DecodeHook:       getDecodeHook(),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("failed to scan section %q into %T: %w", basePath, target, err)
	}
	return nil
}

// matchKey compares keys the way section lookups do.
func matchKey(mapKey, fieldName string) bool {
	return foldKey(mapKey) == foldKey(fieldName)
}

// getDecodeHook returns the composite decode hook for all type conversions
func getDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		unquoteHookFunc(),
		stringHook(45, parseIP),   // longest IPv6 form
		stringHook(49, parseCIDR), // longest IPv6 CIDR
		stringHook(2048, parseURL),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToTimeHookFunc(time.RFC3339),
		mapstructure.StringToSliceHookFunc(","),
		boolWordHookFunc(),
	)
}

// unquoteHookFunc strips one pair of surrounding double quotes from values.
func unquoteHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		return unquote(data.(string)), nil
	}
}

// boolWordHookFunc accepts yes/no and on/off for bool fields.
func boolWordHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Bool {
			return data, nil
		}
		switch data.(string) {
		case "yes", "on", "Yes", "On", "YES", "ON":
			return true, nil
		case "no", "off", "No", "Off", "NO", "OFF":
			return false, nil
		}
		return data, nil
	}
}

// stringHook converts strings to T, or *T, with parse. Longer inputs than
// maxLen are rejected before parsing.
func stringHook[T any](maxLen int, parse func(string) (T, error)) mapstructure.DecodeHookFunc {
	target := reflect.TypeFor[T]()
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		isPtr := t.Kind() == reflect.Pointer && t.Elem() == target
		if t != target && !isPtr {
			return data, nil
		}

		str := data.(string)
		if len(str) > maxLen {
			return nil, fmt.Errorf("%s value too long: %d bytes", target, len(str))
		}
		v, err := parse(str)
		if err != nil {
			return nil, err
		}
		if isPtr {
			return &v, nil
		}
		return v, nil
	}
}

func parseIP(s string) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil {
		return nil, fmt.Errorf("invalid IP address: %s", s)
	}
	return ip, nil
}

func parseCIDR(s string) (net.IPNet, error) {
	_, ipnet, err := net.ParseCIDR(s)
	if err != nil {
		return net.IPNet{}, fmt.Errorf("invalid CIDR: %w", err)
	}
	return *ipnet, nil
}

func parseURL(s string) (url.URL, error) {
	u, err := url.Parse(s)
	if err != nil {
		return url.URL{}, fmt.Errorf("invalid URL: %w", err)
	}
	return *u, nil
}
