package nodeconf

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Register writes defaultValue at path unless an entry already exists there.
// It reports whether the tree was changed. Each dot-separated segment of the
// path must be a valid key.
func (c *Config) Register(path string, defaultValue any) (bool, error) {
	if path == "" {
		return false, fmt.Errorf("registration path cannot be empty")
	}

	for _, segment := range strings.Split(path, ".") {
		if !isValidKeySegment(segment) {
			return false, fmt.Errorf("invalid path segment %q in path %q", segment, path)
		}
	}

	if n, ok := c.Get(path); ok {
		if n.Kind() == KindEntry {
			return false, nil
		}
		return false, fmt.Errorf("%w: %s is a %s", ErrNotEntry, path, n.Kind())
	}

	if err := c.Set(path, formatValue(defaultValue)); err != nil {
		return false, err
	}
	return true, nil
}

// RegisterStruct writes the defaults held by a struct into every path that
// has no entry yet. It uses struct tags (`toml:"..."`) to determine the paths.
// The prefix is prepended to all paths (e.g., "log."). An empty prefix is allowed.
// It returns the paths that were added.
func (c *Config) RegisterStruct(prefix string, structWithDefaults any) ([]string, error) {
	v := reflect.ValueOf(structWithDefaults)

	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("RegisterStruct requires a non-nil struct pointer or value")
		}
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("RegisterStruct requires a struct or struct pointer, got %T", structWithDefaults)
	}

	var added, errs []string
	c.registerFields(v, prefix, "", &added, &errs)

	if len(errs) > 0 {
		return added, fmt.Errorf("failed to register %d field(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return added, nil
}

// registerFields handles the recursive field registration.
func (c *Config) registerFields(v reflect.Value, pathPrefix, fieldPath string, added, errs *[]string) {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get(TagName)
		if tag == "-" {
			continue
		}

		key := field.Name
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}

		currentPath := key
		if pathPrefix != "" {
			currentPath = strings.TrimSuffix(pathPrefix, ".") + "." + key
		}

		isStruct := fieldValue.Kind() == reflect.Struct && fieldValue.Type() != reflect.TypeOf(time.Time{})
		isPtrToStruct := fieldValue.Kind() == reflect.Ptr && fieldValue.Type().Elem().Kind() == reflect.Struct

		if isStruct || isPtrToStruct {
			nestedValue := fieldValue
			if isPtrToStruct {
				if fieldValue.IsNil() {
					continue
				}
				nestedValue = fieldValue.Elem()
			}
			c.registerFields(nestedValue, currentPath, fieldPath+field.Name+".", added, errs)
			continue
		}

		changed, err := c.Register(currentPath, fieldValue.Interface())
		if err != nil {
			*errs = append(*errs, fmt.Sprintf("field %s%s (path %s): %v", fieldPath, field.Name, currentPath, err))
			continue
		}
		if changed {
			*added = append(*added, currentPath)
		}
	}
}

// formatValue renders a Go value as an entry value.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case time.Duration:
		return x.String()
	case time.Time:
		return x.Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = formatValue(rv.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}
