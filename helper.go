// File: lixenwraith/nodeconf/helper.go
package nodeconf

// flattenInto copies the leaves of nested into flat under dotted paths
// starting with prefix.
func flattenInto(flat map[string]any, nested map[string]any, prefix string) {
	for key, value := range nested {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok {
			flattenInto(flat, sub, path)
			continue
		}
		flat[path] = value
	}
}

// isValidKeySegment checks if a single path segment can be used as a key on
// the command line: ASCII letters, digits, underscores, dashes and spaces,
// not starting or ending with a space.
func isValidKeySegment(s string) bool {
	if s == "" || s[0] == ' ' || s[len(s)-1] == ' ' {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch b := s[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '_', b == '-', b == ' ':
		default:
			return false
		}
	}
	return true
}
