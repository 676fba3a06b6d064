// FILE: lixenwraith/nodeconf/section.go
package nodeconf

import (
	"fmt"
	"iter"
	"slices"
	"strings"
)

// Section is a node owning an ordered list of children. Lookups by key go
// through an index kept in step with every structural edit; keys compare
// case-insensitively and the first matching child wins.
type Section struct {
	Node
}

// Len returns the number of children, void lines included.
func (s Section) Len() int {
	return len(s.data().children)
}

// IsEmpty reports whether s has no non-void children.
func (s Section) IsEmpty() bool {
	for _, id := range s.data().children {
		if k := s.c.nodes[id].kind; k != KindVoid && k != KindInvalid {
			return false
		}
	}
	return true
}

// Get returns the first child whose key matches key.
func (s Section) Get(key string) (Node, bool) {
	id, ok := s.c.lookup(s.id, key)
	if !ok {
		return Node{}, false
	}
	return Node{c: s.c, id: id}, true
}

// Section returns the child section keyed key.
func (s Section) Section(key string) (Section, bool) {
	n, ok := s.Get(key)
	if !ok {
		return Section{}, false
	}
	return n.AsSection()
}

// Value returns the value of the child entry keyed key.
func (s Section) Value(key string) (string, bool) {
	n, ok := s.Get(key)
	if !ok {
		return "", false
	}
	return n.Value()
}

// At returns the child at position i.
func (s Section) At(i int) (Node, bool) {
	children := s.data().children
	if i < 0 || i >= len(children) {
		return Node{}, false
	}
	return Node{c: s.c, id: children[i]}, true
}

// Add appends n, detaching it from any previous parent. A node from another
// tree is deep-copied into this one and removed from its source.
func (s Section) Add(n Node) error {
	return s.Insert(s.Len(), n)
}

// Insert places n at position i, 0 <= i <= Len().
func (s Section) Insert(i int, n Node) error {
	if i < 0 || i > s.Len() {
		return fmt.Errorf("%w: insert at %d in section of %d", ErrIndexOutOfRange, i, s.Len())
	}
	id, err := s.adopt(n)
	if err != nil {
		return err
	}
	if p := s.c.nodes[id].parent; p != noNode {
		if p == s.id && slices.Index(s.data().children, id) < i {
			i--
		}
		s.c.detach(id)
	}
	s.c.attach(s.id, id, i)
	return nil
}

// adopt validates n and returns its id in s's arena.
func (s Section) adopt(n Node) (NodeID, error) {
	switch {
	case n.IsZero():
		return noNode, ErrZeroNode
	case !n.linked():
		return noNode, fmt.Errorf("%w: %s", ErrUnlinked, n.path)
	case n.IsRoot():
		return noNode, fmt.Errorf("%w: cannot add a root section as a child", ErrRootNode)
	}
	if n.c != s.c {
		id := s.c.importTree(n.c, n.id)
		n.c.detach(n.id)
		return id, nil
	}
	if s.c.isAncestor(n.id, s.id) {
		return noNode, fmt.Errorf("%w: %s", ErrCycle, n.Path())
	}
	return n.id, nil
}

// RemoveNode detaches n if it is a direct child of s.
func (s Section) RemoveNode(n Node) bool {
	if n.c != s.c || !n.linked() || n.data().parent != s.id {
		return false
	}
	s.c.detach(n.id)
	return true
}

// RemoveKey detaches and returns the child keyed key.
func (s Section) RemoveKey(key string) (Node, bool) {
	n, ok := s.Get(key)
	if !ok {
		return Node{}, false
	}
	s.c.detach(n.id)
	return n, true
}

// Set updates the entry keyed key in place. A non-entry child with that key
// is replaced by a new entry at the same position; otherwise an entry is appended.
func (s Section) Set(key, value string) Entry {
	if n, ok := s.Get(key); ok {
		if e, ok := n.AsEntry(); ok {
			e.SetValue(value)
			return e
		}
		e := s.c.NewEntry(key, value)
		s.replace(n.id, e.id)
		return e
	}
	e := s.c.NewEntry(key, value)
	s.c.attach(s.id, e.id, -1)
	return e
}

// SetNode replaces the child keyed key with n at the same position, appends
// n when key is absent, or removes the child when n is the zero Node.
func (s Section) SetNode(key string, n Node) error {
	old, exists := s.Get(key)
	if n.IsZero() {
		if exists {
			s.c.detach(old.id)
		}
		return nil
	}
	if !exists {
		return s.Add(n)
	}
	id, err := s.adopt(n)
	if err != nil {
		return err
	}
	if id == old.id {
		return nil
	}
	if s.c.nodes[id].parent != noNode {
		s.c.detach(id)
	}
	s.replace(old.id, id)
	return nil
}

// replace swaps child old for the unparented node id at the same position.
func (s Section) replace(old, id NodeID) {
	pos := slices.Index(s.data().children, old)
	s.c.detach(old)
	s.c.attach(s.id, id, pos)
}

// AddSection appends a new empty section.
func (s Section) AddSection(key string) Section {
	sec := s.c.NewSection(key)
	s.c.attach(s.id, sec.id, -1)
	return sec
}

// AddEntry appends a new entry even if the key already exists.
func (s Section) AddEntry(key, value string) Entry {
	e := s.c.NewEntry(key, value)
	s.c.attach(s.id, e.id, -1)
	return e
}

// AddSimple appends a simple token.
func (s Section) AddSimple(token string) Node {
	n := s.c.NewSimple(token)
	s.c.attach(s.id, n.id, -1)
	return n
}

// AddVoid appends a blank or comment-only line.
func (s Section) AddVoid(text string) Node {
	n := s.c.NewVoid(text)
	s.c.attach(s.id, n.id, -1)
	return n
}

// children returns a snapshot so iteration survives edits of s.
func (s Section) children() []NodeID {
	return slices.Clone(s.data().children)
}

// Nodes yields the non-void children in order.
func (s Section) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, id := range s.children() {
			n := Node{c: s.c, id: id}
			if n.IsVoid() {
				continue
			}
			if !yield(n) {
				return
			}
		}
	}
}

// All yields every child in source order, void lines included.
func (s Section) All() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, id := range s.children() {
			if !yield(Node{c: s.c, id: id}) {
				return
			}
		}
	}
}

// Walk yields every non-void descendant depth first, parents before children.
func (s Section) Walk() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		s.walk(yield)
	}
}

func (s Section) walk(yield func(Node) bool) bool {
	for n := range s.Nodes() {
		if !yield(n) {
			return false
		}
		if sub, ok := n.AsSection(); ok && !sub.walk(yield) {
			return false
		}
	}
	return true
}

// Visit calls fn for each non-void child with the child entered into scope,
// so diagnostics reported from fn are attributed to its line. Returning
// false from fn stops the iteration.
func (s Section) Visit(scope *Scope, fn func(Node) bool) {
	visit(scope, s.Nodes(), fn)
}

// VisitAll is Visit over every child, void lines included.
func (s Section) VisitAll(scope *Scope, fn func(Node) bool) {
	visit(scope, s.All(), fn)
}

func visit(scope *Scope, seq iter.Seq[Node], fn func(Node) bool) {
	for n := range seq {
		restore := scope.Enter(n)
		cont := fn(n)
		restore()
		if !cont {
			return
		}
	}
}

// ConvertToEntries turns simple tokens of the form key<sep>value into entries,
// descending levels section levels deep (-1 for no limit). Tokens without
// sep are left untouched. A parsed token keeps its comment and line.
func (s Section) ConvertToEntries(levels int, sep string) {
	if sep == "" {
		sep = s.c.opts.Separator
	}
	for _, id := range s.children() {
		d := &s.c.nodes[id]
		switch d.kind {
		case KindSimple:
			i := strings.Index(d.key, sep)
			if i < 0 {
				continue
			}
			left := strings.TrimRight(d.key[:i], " \t")
			right := strings.TrimLeft(d.key[i+len(sep):], " \t")
			d.kind = KindEntry
			d.sep = d.key[len(left) : len(d.key)-len(right)]
			d.key, d.value = left, right
		case KindSection:
			if levels != 0 {
				Section{Node{c: s.c, id: id}}.ConvertToEntries(levels-1, sep)
			}
		}
	}
	s.c.rebuildIndex(s.id)
}

// rebuildIndex recomputes the whole lookup index of section.
func (c *Config) rebuildIndex(section NodeID) {
	d := &c.nodes[section]
	clear(d.index)
	for _, ch := range d.children {
		key := c.nodes[ch].key
		if key == "" {
			continue
		}
		if _, ok := d.index[foldKey(key)]; !ok {
			d.index[foldKey(key)] = ch
		}
	}
}
