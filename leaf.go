// FILE: lixenwraith/nodeconf/leaf.go
package nodeconf

import "strings"

// Entry is a key/value leaf.
type Entry struct {
	Node
}

// Value returns the entry value.
func (e Entry) Value() string {
	return e.data().value
}

// SetValue replaces the entry value in place.
func (e Entry) SetValue(value string) {
	e.data().value = value
}

// Separator returns the separator text written between key and value.
func (e Entry) Separator() string {
	if sep := e.data().sep; sep != "" {
		return sep
	}
	return e.c.SaveSeparator()
}

// NewEntry creates an unparented entry in c. Attach it with Section.Add.
func (c *Config) NewEntry(key, value string) Entry {
	id := c.alloc(nodeData{kind: KindEntry, key: key, value: value, line: -1})
	return Entry{Node{c: c, id: id}}
}

// NewSection creates an unparented, empty section in c.
func (c *Config) NewSection(key string) Section {
	id := c.alloc(nodeData{kind: KindSection, key: key, line: -1})
	return Section{Node{c: c, id: id}}
}

// NewSimple creates an unparented simple token in c.
func (c *Config) NewSimple(token string) Node {
	id := c.alloc(nodeData{kind: KindSimple, key: token, line: -1})
	return Node{c: c, id: id}
}

// NewVoid creates an unparented void line holding text, typically a comment
// or "" for a blank line.
func (c *Config) NewVoid(text string) Node {
	id := c.alloc(nodeData{kind: KindVoid, value: strings.TrimSpace(text), line: -1})
	return Node{c: c, id: id}
}

// newParsedVoid keeps the exact whitespace of a blank or comment-only line.
func (c *Config) newParsedVoid(raw string, line int) NodeID {
	trimmedLeft := strings.TrimLeft(raw, " \t")
	text := strings.TrimRight(trimmedLeft, " \t\r")
	return c.alloc(nodeData{
		kind:   KindVoid,
		indent: raw[:len(raw)-len(trimmedLeft)],
		value:  text,
		gap:    trimmedLeft[len(text):],
		line:   line,
	})
}

// newInvalid keeps a line that failed to parse verbatim.
func (c *Config) newInvalid(raw string, line int) NodeID {
	return c.alloc(nodeData{kind: KindInvalid, value: raw, line: line})
}
