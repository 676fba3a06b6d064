// FILE: lixenwraith/nodeconf/node.go
package nodeconf

import (
	"fmt"
	"slices"
	"strings"
)

// NodeID addresses a node inside the arena of its Config.
type NodeID int32

const noNode NodeID = -1

// Kind identifies which variant of node a handle refers to.
type Kind uint8

const (
	KindSection Kind = iota
	KindEntry
	KindSimple
	KindVoid
	KindInvalid
	KindUnlinked
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindSection:
		return "section"
	case KindEntry:
		return "entry"
	case KindSimple:
		return "simple"
	case KindVoid:
		return "void"
	case KindInvalid:
		return "invalid"
	case KindUnlinked:
		return "unlinked"
	default:
		return "unknown"
	}
}

// nodeData is the arena record behind a Node handle.
type nodeData struct {
	kind    Kind
	key     string // section/entry key, simple token; empty for root, void and invalid
	value   string // entry value, trimmed void text, raw invalid line
	sep     string // separator text as written in the source (entries)
	indent  string // leading whitespace as written in the source (void lines)
	gap     string // whitespace between the value and the comment
	comment string // trailing comment including '#'
	leading []string
	parent  NodeID
	line    int // 1-based source line, -1 for synthetic nodes
	debug   bool

	children []NodeID
	index    map[string]NodeID // folded key -> first child with that key
}

// Node is a handle to one node of a Config tree. Handles are small comparable
// values; the zero Node refers to nothing. A handle whose Kind is KindUnlinked
// addresses a dotted path that does not exist in the tree yet.
type Node struct {
	c    *Config
	id   NodeID
	path string // unlinked handles only
}

// IsZero reports whether n refers to nothing.
func (n Node) IsZero() bool {
	return n.c == nil
}

// ID returns the arena id of n, or -1 for unlinked and zero handles.
func (n Node) ID() NodeID {
	if n.c == nil {
		return noNode
	}
	return n.id
}

func (n Node) data() *nodeData {
	return &n.c.nodes[n.id]
}

func (n Node) linked() bool {
	return n.c != nil && n.id != noNode
}

// Kind returns the node variant.
func (n Node) Kind() Kind {
	if !n.linked() {
		return KindUnlinked
	}
	return n.data().kind
}

// Config returns the tree n belongs to.
func (n Node) Config() *Config {
	return n.c
}

// Key returns the node key. Root, void and invalid nodes have no key.
func (n Node) Key() string {
	if !n.linked() {
		if i := strings.LastIndexByte(n.path, '.'); i >= 0 {
			return n.path[i+1:]
		}
		return n.path
	}
	return n.data().key
}

// Comment returns the trailing comment including its leading '#', or "".
func (n Node) Comment() string {
	if !n.linked() {
		return ""
	}
	return n.data().comment
}

// SetComment replaces the trailing comment. A comment not starting with '#'
// is prefixed with "# ". An empty comment removes it.
func (n Node) SetComment(comment string) {
	if !n.linked() {
		return
	}
	d := n.data()
	if comment == "" {
		d.comment, d.gap = "", ""
		return
	}
	if !strings.HasPrefix(comment, "#") {
		comment = "# " + comment
	}
	if d.gap == "" {
		d.gap = " "
	}
	d.comment = comment
	d.debug = strings.HasPrefix(comment, debugMarker)
}

// LeadingComments returns standalone comment or blank lines emitted before n.
func (n Node) LeadingComments() []string {
	if !n.linked() {
		return nil
	}
	return slices.Clone(n.data().leading)
}

// SetLeadingComments sets standalone lines emitted before n when saving.
// Non-blank lines are indented to n's level.
func (n Node) SetLeadingComments(lines []string) {
	if !n.linked() {
		return
	}
	n.data().leading = slices.Clone(lines)
}

// Line returns the 1-based source line, or -1 for nodes not read from a file.
func (n Node) Line() int {
	if !n.linked() {
		return -1
	}
	return n.data().line
}

// Debug reports whether the node carries the "#DEBUG#" comment marker.
func (n Node) Debug() bool {
	return n.linked() && n.data().debug
}

// IsVoid reports whether n carries no semantic payload. Void and invalid
// nodes are void; consumers iterating with Section.Nodes never see them.
func (n Node) IsVoid() bool {
	k := n.Kind()
	return k == KindVoid || k == KindInvalid
}

// IsRoot reports whether n is the anonymous root section of its tree.
func (n Node) IsRoot() bool {
	return n.linked() && n.id == n.c.root
}

// Parent returns the section containing n.
func (n Node) Parent() (Section, bool) {
	if !n.linked() {
		return Section{}, false
	}
	p := n.data().parent
	if p == noNode {
		return Section{}, false
	}
	return Section{Node{c: n.c, id: p}}, true
}

// Value returns the value of an entry. Other kinds, unlinked nodes included,
// yield no value.
func (n Node) Value() (string, bool) {
	if n.Kind() != KindEntry {
		return "", false
	}
	return n.data().value, true
}

// SetValue updates an entry in place. On an unlinked handle it materializes
// the whole path, creating missing sections and the terminal entry.
func (n Node) SetValue(value string) error {
	switch n.Kind() {
	case KindEntry:
		n.data().value = value
		return nil
	case KindUnlinked:
		if n.c == nil {
			return ErrZeroNode
		}
		return n.c.Set(n.path, value)
	default:
		return fmt.Errorf("%w: cannot set a value on a %s node", ErrNotEntry, n.Kind())
	}
}

// Text returns the unescaped body of n's line without indentation or comment.
func (n Node) Text() string {
	if !n.linked() {
		return ""
	}
	d := n.data()
	switch d.kind {
	case KindSection:
		return d.key + n.c.opts.SectionDelimiter
	case KindEntry:
		sep := d.sep
		if sep == "" {
			sep = n.c.SaveSeparator()
		}
		return d.key + sep + d.value
	case KindSimple:
		return d.key
	default:
		return d.value
	}
}

// AsSection returns n as a Section when it is one.
func (n Node) AsSection() (Section, bool) {
	if n.Kind() != KindSection {
		return Section{}, false
	}
	return Section{n}, true
}

// AsEntry returns n as an Entry when it is one.
func (n Node) AsEntry() (Entry, bool) {
	if n.Kind() != KindEntry {
		return Entry{}, false
	}
	return Entry{n}, true
}

// Rename changes the key of n and re-keys its parent's lookup index.
// Renaming the anonymous root fails with ErrRootNode.
func (n Node) Rename(key string) error {
	if n.IsRoot() {
		return fmt.Errorf("%w: cannot rename the root section", ErrRootNode)
	}
	switch n.Kind() {
	case KindSection, KindEntry, KindSimple:
	default:
		return fmt.Errorf("%w: %s nodes have no key", ErrNotKeyed, n.Kind())
	}
	d := n.data()
	old := d.key
	d.key = key
	if d.parent != noNode {
		n.c.reindex(d.parent, old)
		n.c.reindex(d.parent, key)
	}
	return nil
}

// Move detaches n and appends it to parent. Moving the root fails with ErrRootNode.
func (n Node) Move(parent Section) error {
	if n.IsRoot() {
		return fmt.Errorf("%w: cannot move the root section", ErrRootNode)
	}
	return parent.Add(n)
}

// Remove detaches n from its parent. It is a no-op for unparented nodes.
func (n Node) Remove() {
	if !n.linked() {
		return
	}
	if n.data().parent != noNode {
		n.c.detach(n.id)
	}
}

// Index returns the position of n among its parent's children, or -1.
func (n Node) Index() int {
	if !n.linked() {
		return -1
	}
	p := n.data().parent
	if p == noNode {
		return -1
	}
	return slices.Index(n.c.nodes[p].children, n.id)
}

// Depth returns the number of ancestors of n. For a section this is the
// indentation level of its children.
func (n Node) Depth() int {
	if !n.linked() {
		return 0
	}
	return n.c.depth(n.id)
}

// PathSteps returns the keys from the outermost keyed ancestor down to n.
// The walk stops at the first node with an empty key.
func (n Node) PathSteps() []string {
	if n.c == nil {
		return nil
	}
	if n.id == noNode {
		return splitPath(n.path)
	}
	var steps []string
	for id := n.id; id != noNode; id = n.c.nodes[id].parent {
		key := n.c.nodes[id].key
		if key == "" {
			break
		}
		steps = append(steps, key)
	}
	slices.Reverse(steps)
	return steps
}

// Path returns PathSteps joined with '.'.
func (n Node) Path() string {
	return strings.Join(n.PathSteps(), ".")
}

// Equal reports structural equality: same key and same path steps.
func (n Node) Equal(o Node) bool {
	if n.IsZero() || o.IsZero() {
		return n.IsZero() && o.IsZero()
	}
	return n.Key() == o.Key() && slices.Equal(n.PathSteps(), o.PathSteps())
}

// Lines returns the serialized form of n: its leading comment lines, its own
// line and, for sections, every descendant line.
func (n Node) Lines() []string {
	if !n.linked() {
		return nil
	}
	var lines []string
	if n.IsRoot() {
		return n.c.appendChildLines(lines, n.id, 0)
	}
	level := max(n.c.depth(n.id)-1, 0)
	return n.c.appendLines(lines, n.id, level)
}

// String returns a diagnostic description: the line text, the comment and
// the source position.
func (n Node) String() string {
	if n.c == nil {
		return "<nil node>"
	}
	if n.id == noNode {
		return fmt.Sprintf("%s (%s, unlinked)", n.path, n.c.Name())
	}
	d := n.data()
	text := Reescape(n.Text()) + d.gap + d.comment
	if d.line < 0 {
		return fmt.Sprintf("%s (%s, unknown line)", strings.TrimSpace(text), n.c.Name())
	}
	return fmt.Sprintf("%s (%s, line %d)", strings.TrimSpace(text), n.c.Name(), d.line)
}
