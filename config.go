// FILE: lixenwraith/nodeconf/config.go
package nodeconf

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"strings"
	"sync/atomic"
)

// Sentinel errors returned (wrapped) by tree and registry operations.
var (
	ErrRootNode        = errors.New("operation not permitted on the root section")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNotSection      = errors.New("node is not a section")
	ErrNotEntry        = errors.New("node is not an entry")
	ErrNotKeyed        = errors.New("node has no key")
	ErrZeroNode        = errors.New("zero node")
	ErrUnlinked        = errors.New("node is not part of a tree")
	ErrCycle           = errors.New("section cannot contain itself")
	ErrPathNotFound    = errors.New("path not found")
	ErrEmptyPath       = errors.New("empty path")
	ErrOutsideRoot     = errors.New("path escapes the managed directory")
	ErrNotRegistered   = errors.New("path not registered for consumer")
	ErrNoFile          = errors.New("config has no backing file")
)

const (
	// DefaultSeparator splits entry keys from values.
	DefaultSeparator = ":"
	// DefaultSectionDelimiter ends a line that opens a section.
	DefaultSectionDelimiter = ":"
	// DefaultIndentation is used for trees whose indentation was never detected.
	DefaultIndentation = "\t"
	// DefaultMaxDepth bounds section nesting during a parse.
	DefaultMaxDepth = 256

	debugMarker    = "#DEBUG#"
	disabledMarker = "#-#"
)

// MissingSeparatorFunc is invoked for a line that is neither a section, a
// comment, nor a valid entry. The line becomes an Invalid node regardless.
type MissingSeparatorFunc func(scope *Scope, text, separator string)

// Options controls how text is parsed into a tree and how new nodes are written.
type Options struct {
	// Separator splits entry keys from values
	Separator string
	// SectionDelimiter ends section header lines
	SectionDelimiter string
	// Simple parses leaves as bare Simple tokens instead of entries
	Simple bool
	// AllowEmptySections suppresses the empty section warning
	AllowEmptySections bool
	// MaxDepth bounds nesting; deeper sections become invalid lines
	MaxDepth int
	// Reporter receives parse diagnostics; nil uses the default slog logger
	Reporter Reporter
	// MissingSeparator reports lines without a separator; nil uses the built-in message
	MissingSeparator MissingSeparatorFunc
}

// Option configures Options.
type Option func(*Options)

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Separator:        DefaultSeparator,
		SectionDelimiter: DefaultSectionDelimiter,
		MaxDepth:         DefaultMaxDepth,
	}
}

// WithSeparator sets the entry separator.
func WithSeparator(sep string) Option {
	return func(o *Options) { o.Separator = sep }
}

// WithSectionDelimiter sets the section header delimiter.
func WithSectionDelimiter(delim string) Option {
	return func(o *Options) { o.SectionDelimiter = delim }
}

// WithSimple toggles simple mode.
func WithSimple(simple bool) Option {
	return func(o *Options) { o.Simple = simple }
}

// WithAllowEmptySections suppresses warnings about sections without children.
func WithAllowEmptySections(allow bool) Option {
	return func(o *Options) { o.AllowEmptySections = allow }
}

// WithMaxDepth bounds section nesting.
func WithMaxDepth(depth int) Option {
	return func(o *Options) { o.MaxDepth = depth }
}

// WithReporter sets the diagnostic sink.
func WithReporter(r Reporter) Option {
	return func(o *Options) { o.Reporter = r }
}

// WithMissingSeparator replaces the missing separator diagnostic hook.
func WithMissingSeparator(fn MissingSeparatorFunc) Option {
	return func(o *Options) { o.MissingSeparator = fn }
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Separator == "" {
		o.Separator = DefaultSeparator
	}
	if o.SectionDelimiter == "" {
		o.SectionDelimiter = DefaultSectionDelimiter
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.Reporter == nil {
		o.Reporter = NewSlogReporter(nil)
	}
	if o.MissingSeparator == nil {
		o.MissingSeparator = defaultMissingSeparator
	}
	return o
}

func defaultMissingSeparator(scope *Scope, text, separator string) {
	scope.Errorf(text, "invalid line - all lines must be a section ending in ':', a comment starting with '#', or an entry of the form 'key%svalue'", separator)
}

// Config is one parsed file: a root section plus format settings. A Config
// is not safe for concurrent mutation; share it through a SharedConfig.
type Config struct {
	name string
	path string
	opts Options

	indent          string
	trailingNewline bool
	bom             bool

	nodes []nodeData
	root  NodeID

	stale    atomic.Bool
	fallback bool
}

// New creates an empty tree.
func New(opts ...Option) *Config {
	c := &Config{
		opts:            buildOptions(opts),
		indent:          DefaultIndentation,
		trailingNewline: true,
	}
	c.root = c.alloc(nodeData{kind: KindSection, line: -1})
	return c
}

// Root returns the anonymous root section.
func (c *Config) Root() Section {
	return Section{Node{c: c, id: c.root}}
}

// Name returns the file name used in diagnostics.
func (c *Config) Name() string {
	return c.name
}

// Path returns the backing file path, or "" for trees parsed from memory.
func (c *Config) Path() string {
	return c.path
}

// Separator returns the entry separator.
func (c *Config) Separator() string {
	return c.opts.Separator
}

// SectionDelimiter returns the section header delimiter.
func (c *Config) SectionDelimiter() string {
	return c.opts.SectionDelimiter
}

// SaveSeparator returns the separator written for entries created in memory.
func (c *Config) SaveSeparator() string {
	switch c.opts.Separator {
	case ":":
		return ": "
	case "=":
		return " = "
	default:
		return " " + c.opts.Separator + " "
	}
}

// Indentation returns the indentation unit.
func (c *Config) Indentation() string {
	return c.indent
}

// SetIndentation changes the unit written per nesting level. The unit must be
// one or more tabs or one or more spaces. Comment and blank lines keep their
// original whitespace.
func (c *Config) SetIndentation(unit string) error {
	if unit == "" || (strings.Trim(unit, "\t") != "" && strings.Trim(unit, " ") != "") {
		return fmt.Errorf("invalid indentation unit %q", unit)
	}
	c.indent = unit
	return nil
}

// IndentationName returns "tab" or "space" depending on the indentation unit.
func (c *Config) IndentationName() string {
	if strings.HasPrefix(c.indent, " ") {
		return "space"
	}
	return "tab"
}

// Simple reports whether leaves are parsed as Simple tokens.
func (c *Config) Simple() bool {
	return c.opts.Simple
}

// Options returns a copy of the parse options.
func (c *Config) Options() Options {
	return c.opts
}

// Valid reports whether the tree is still current. SharedConfig invalidates
// trees it has replaced.
func (c *Config) Valid() bool {
	return !c.stale.Load()
}

// Invalidate marks the tree as replaced.
func (c *Config) Invalidate() {
	c.stale.Store(true)
}

// IsEmpty reports whether the root has no non-void children.
func (c *Config) IsEmpty() bool {
	return c.Root().IsEmpty()
}

// Get resolves a dotted path to a node.
func (c *Config) Get(path string) (Node, bool) {
	steps := splitPath(path)
	if len(steps) == 0 {
		return Node{}, false
	}
	cur := c.root
	for i, step := range steps {
		child, ok := c.lookup(cur, step)
		if !ok {
			return Node{}, false
		}
		if i < len(steps)-1 && c.nodes[child].kind != KindSection {
			return Node{}, false
		}
		cur = child
	}
	return Node{c: c, id: cur}, true
}

// GetNode resolves a dotted path, returning an unlinked handle when it does not exist.
func (c *Config) GetNode(path string) Node {
	if n, ok := c.Get(path); ok {
		return n
	}
	return Node{c: c, id: noNode, path: strings.Join(splitPath(path), ".")}
}

// Value returns the entry value at path.
func (c *Config) Value(path string) (string, bool) {
	n, ok := c.Get(path)
	if !ok {
		return "", false
	}
	return n.Value()
}

// Set writes value at path, creating every missing section along the way and
// the terminal entry if needed.
func (c *Config) Set(path string, value string) error {
	steps := splitPath(path)
	if len(steps) == 0 {
		return ErrEmptyPath
	}
	sec := c.Root()
	for _, step := range steps[:len(steps)-1] {
		n, ok := sec.Get(step)
		if !ok {
			sec = sec.AddSection(step)
			continue
		}
		next, ok := n.AsSection()
		if !ok {
			return fmt.Errorf("%w: %q in path %q is a %s", ErrNotSection, n.Path(), path, n.Kind())
		}
		sec = next
	}
	sec.Set(steps[len(steps)-1], value)
	return nil
}

// Remove detaches the node at path.
func (c *Config) Remove(path string) error {
	n, ok := c.Get(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	n.Remove()
	return nil
}

// Paths returns the dotted paths of every entry in source order.
func (c *Config) Paths() []string {
	var paths []string
	for n := range c.Root().Walk() {
		if n.Kind() == KindEntry {
			paths = append(paths, n.Path())
		}
	}
	return paths
}

// Entries yields every entry of the tree with its dotted path, depth first.
func (c *Config) Entries() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for n := range c.Root().Walk() {
			if v, ok := n.Value(); ok {
				if !yield(n.Path(), v) {
					return
				}
			}
		}
	}
}

// Clone returns a deep copy detached from any backing file lifecycle.
func (c *Config) Clone() *Config {
	clone := &Config{
		name:            c.name,
		path:            c.path,
		opts:            c.opts,
		indent:          c.indent,
		trailingNewline: c.trailingNewline,
		bom:             c.bom,
		nodes:           make([]nodeData, len(c.nodes)),
		root:            c.root,
	}
	for i, d := range c.nodes {
		d.children = slices.Clone(d.children)
		d.leading = slices.Clone(d.leading)
		if d.index != nil {
			idx := make(map[string]NodeID, len(d.index))
			for k, v := range d.index {
				idx[k] = v
			}
			d.index = idx
		}
		clone.nodes[i] = d
	}
	return clone
}

// Compare reports whether other differs from c, ignoring excluded keys or paths.
func (c *Config) Compare(other *Config, excluded ...string) bool {
	return c.Root().Compare(other.Root(), excluded...)
}

// SetValues copies entry values from other into c for every key both trees
// share, ignoring excluded keys or paths. It reports whether the trees differed.
func (c *Config) SetValues(other *Config, excluded ...string) bool {
	return c.Root().SetValues(other.Root(), excluded...)
}

// splitPath splits a dotted path, dropping empty steps.
func splitPath(path string) []string {
	parts := strings.Split(path, ".")
	steps := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			steps = append(steps, p)
		}
	}
	return steps
}

func foldKey(key string) string {
	return strings.ToLower(key)
}

// arena internals

// alloc appends an unparented node to the arena. Slots are never reused.
func (c *Config) alloc(d nodeData) NodeID {
	d.parent = noNode
	if d.kind == KindSection && d.index == nil {
		d.index = make(map[string]NodeID)
	}
	c.nodes = append(c.nodes, d)
	return NodeID(len(c.nodes) - 1)
}

func (c *Config) lookup(section NodeID, key string) (NodeID, bool) {
	id, ok := c.nodes[section].index[foldKey(key)]
	return id, ok
}

// reindex recomputes the index slot for key in section after a removal or
// rename: the first child in sequence order whose key folds to the same value wins.
func (c *Config) reindex(section NodeID, key string) {
	if key == "" {
		return
	}
	d := &c.nodes[section]
	k := foldKey(key)
	delete(d.index, k)
	for _, ch := range d.children {
		if ck := c.nodes[ch].key; ck != "" && foldKey(ck) == k {
			d.index[k] = ch
			return
		}
	}
}

// attach inserts id into section at position pos; pos < 0 appends.
func (c *Config) attach(section, id NodeID, pos int) {
	d := &c.nodes[section]
	if pos < 0 || pos > len(d.children) {
		pos = len(d.children)
	}
	d.children = slices.Insert(d.children, pos, id)
	c.nodes[id].parent = section

	key := c.nodes[id].key
	if key == "" {
		return
	}
	k := foldKey(key)
	// only a holder after pos can lose its slot; appends never rescan
	if cur, ok := d.index[k]; !ok || (pos < len(d.children)-1 && slices.Index(d.children, cur) > pos) {
		d.index[k] = id
	}
}

// detach removes id from its parent's children and index.
func (c *Config) detach(id NodeID) {
	p := c.nodes[id].parent
	if p == noNode {
		return
	}
	d := &c.nodes[p]
	if i := slices.Index(d.children, id); i >= 0 {
		d.children = slices.Delete(d.children, i, i+1)
	}
	c.nodes[id].parent = noNode
	c.reindex(p, c.nodes[id].key)
}

func (c *Config) depth(id NodeID) int {
	depth := 0
	for p := c.nodes[id].parent; p != noNode; p = c.nodes[p].parent {
		depth++
	}
	return depth
}

func (c *Config) isAncestor(ancestor, id NodeID) bool {
	for cur := id; cur != noNode; cur = c.nodes[cur].parent {
		if cur == ancestor {
			return true
		}
	}
	return false
}

// importTree deep-copies the subtree rooted at id of src into c, unparented.
func (c *Config) importTree(src *Config, id NodeID) NodeID {
	d := src.nodes[id]
	d.parent = noNode
	d.leading = slices.Clone(d.leading)
	children := d.children
	d.children = nil
	d.index = nil
	nid := c.alloc(d)
	for _, ch := range children {
		cid := c.importTree(src, ch)
		c.attach(nid, cid, -1)
	}
	return nid
}
