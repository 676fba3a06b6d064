// FILE: lixenwraith/nodeconf/escape.go
package nodeconf

import "strings"

// BlockCommentMarker is the standalone line that opens and closes a block comment.
const BlockCommentMarker = "###"

// scanState is a state of the line splitter.
type scanState uint8

const (
	stateCode scanState = iota
	stateString
	stateVariable
	stateHalt
)

// SplitLine separates a physical line into its value and its trailing comment.
//
// inBlock carries block comment state between consecutive lines of one file and
// is toggled by a line consisting only of "###". Inside a block comment the
// whole line is returned as comment. A line whose first non-blank character is
// '#' is a full-line comment.
//
// Otherwise the line is scanned once, left to right. '#' starts the comment
// unless it appears inside a quoted string. Doubled "%%", "\"\"" and "##" are
// literal escapes consumed as a pair; a doubled '#' outside a string is emitted
// as a single '#' in the value. The returned comment includes the '#'.
func SplitLine(line string, inBlock *bool) (value, comment string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == BlockCommentMarker {
		*inBlock = !*inBlock
		return "", line
	}
	if *inBlock {
		return "", line
	}
	if strings.HasPrefix(trimmed, "#") {
		return "", line[strings.IndexByte(line, '#'):]
	}

	var b strings.Builder
	b.Grow(len(line))

	state, previous := stateCode, stateCode
	for i := 0; i < len(line); i++ {
		c := line[i]

		if isEscapable(c) && i+1 < len(line) && line[i+1] == c {
			if c == '#' && state != stateString {
				b.WriteByte('#')
			} else {
				b.WriteByte(c)
				b.WriteByte(c)
			}
			i++
			continue
		}

		state, previous = step(state, previous, c)
		if state == stateHalt {
			return b.String(), line[i:]
		}
		b.WriteByte(c)
	}

	return b.String(), ""
}

// Reescape is the inverse of the value half of SplitLine: every '#' that the
// splitter would read outside a string is doubled so that splitting the result
// yields value again. It is only used when serializing.
func Reescape(value string) string {
	if strings.IndexByte(value, '#') < 0 {
		return value
	}

	var b strings.Builder
	b.Grow(len(value) + 4)

	state, previous := stateCode, stateCode
	for i := 0; i < len(value); i++ {
		c := value[i]

		if isEscapable(c) && i+1 < len(value) && value[i+1] == c {
			if c == '#' && state != stateString {
				b.WriteString("####")
			} else {
				b.WriteByte(c)
				b.WriteByte(c)
			}
			i++
			continue
		}

		if c == '#' {
			if state == stateString {
				b.WriteByte('#')
			} else {
				b.WriteString("##")
			}
			continue
		}

		state, previous = step(state, previous, c)
		b.WriteByte(c)
	}

	return b.String()
}

// step performs one transition of the splitter for a non-doubled character.
func step(state, previous scanState, c byte) (scanState, scanState) {
	switch c {
	case '"':
		switch state {
		case stateCode:
			state = stateString
		case stateString:
			state = stateCode
		}
	case '%':
		if state == stateCode {
			state = previous
		} else {
			previous = state
			state = stateCode
		}
	case '{':
		if state != stateString {
			state = stateVariable
		}
	case '}':
		if state != stateString {
			state = stateCode
		}
	case '#':
		if state != stateString {
			state = stateHalt
		}
	}
	return state, previous
}

func isEscapable(c byte) bool {
	return c == '%' || c == '"' || c == '#'
}
