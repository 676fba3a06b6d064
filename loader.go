// FILE: lixenwraith/nodeconf/loader.go
package nodeconf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

const utf8BOM = "\uFEFF"

// Parse reads a whole source from r. Problems in the text are reported to the
// configured Reporter and never abort the parse; only read errors are returned.
func Parse(r io.Reader, name string, opts ...Option) (*Config, error) {
	c := New(opts...)
	c.name = name
	if err := c.load(r); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseString parses text held in memory.
func ParseString(text, name string, opts ...Option) *Config {
	c, _ := Parse(strings.NewReader(text), name, opts...)
	return c
}

// LoadFile parses the file at path.
func LoadFile(path string, opts ...Option) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file '%s': %w", path, err)
	}
	defer f.Close()

	c, err := Parse(f, filepath.Base(path), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}
	c.path = path
	return c, nil
}

// rawLine is one physical line with its 1-based number.
type rawLine struct {
	text string
	num  int
}

// parser holds the state of one parse. Sections are loaded by recursive
// descent; a dedented line is pushed back for the enclosing call.
type parser struct {
	c     *Config
	scope *Scope
	r     *bufio.Reader

	lineNo  int
	pending *rawLine
	eof     bool

	inBlock    bool
	blockStart int
	detected   bool
}

func (c *Config) load(r io.Reader) error {
	p := &parser{
		c:     c,
		scope: NewScope(c.opts.Reporter, c.name),
		r:     bufio.NewReader(r),
	}
	c.trailingNewline = false
	if err := p.section(c.root, 0); err != nil {
		return err
	}
	if p.inBlock {
		restore := p.scope.enterLine(p.blockStart)
		p.scope.Errorf(BlockCommentMarker, "unterminated block comment: the '%s' opened here is never closed", BlockCommentMarker)
		restore()
	}
	return nil
}

// next returns the next physical line, honoring a pushed back one.
func (p *parser) next() (rawLine, bool, error) {
	if p.pending != nil {
		l := *p.pending
		p.pending = nil
		return l, true, nil
	}
	if p.eof {
		return rawLine{}, false, nil
	}
	text, err := p.r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return rawLine{}, false, err
		}
		p.eof = true
		if text == "" {
			return rawLine{}, false, nil
		}
	}
	if strings.HasSuffix(text, "\n") {
		text = text[:len(text)-1]
		p.c.trailingNewline = true
	} else {
		p.c.trailingNewline = false
	}
	p.lineNo++
	if p.lineNo == 1 && strings.HasPrefix(text, utf8BOM) {
		p.c.bom = true
		text = text[len(utf8BOM):]
	}
	return rawLine{text: text, num: p.lineNo}, true, nil
}

func (p *parser) unread(l rawLine) {
	p.pending = &l
}

// section loads children of sec until EOF or a line indented less than depth.
func (p *parser) section(sec NodeID, depth int) error {
	for {
		l, ok, err := p.next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		dedent, err := p.line(sec, depth, l)
		if err != nil {
			return err
		}
		if dedent {
			p.unread(l)
			return nil
		}
	}
}

// line handles one physical line inside sec. It reports dedent when the
// line belongs to an enclosing section.
func (p *parser) line(sec NodeID, depth int, l rawLine) (dedent bool, err error) {
	restore := p.scope.enterLine(l.num)
	defer restore()
	defer func() {
		if r := recover(); r != nil {
			p.scope.Errorf(strings.TrimSpace(l.text), "internal error while parsing this line (%v); simplify its nesting or escaping", r)
			p.c.attach(sec, p.c.newInvalid(l.text, l.num), -1)
			dedent, err = false, nil
		}
	}()

	wasBlock := p.inBlock
	value, comment := SplitLine(l.text, &p.inBlock)
	if !wasBlock && p.inBlock {
		p.blockStart = l.num
	}

	if strings.TrimSpace(value) == "" {
		p.c.attach(sec, p.c.newParsedVoid(l.text, l.num), -1)
		return false, nil
	}

	leading := l.text[:len(l.text)-len(strings.TrimLeft(l.text, " \t"))]
	if !p.detected && leading != "" {
		if strings.ContainsRune(leading, ' ') && strings.ContainsRune(leading, '\t') {
			p.scope.Errorf(strings.TrimSpace(l.text), "indentation error: indentation mixes tabs and spaces")
			p.c.attach(sec, p.c.newInvalid(l.text, l.num), -1)
			return false, nil
		}
		p.c.indent = leading
		p.detected = true
	}

	units, rest := countUnits(leading, p.c.indent)
	switch {
	case rest == "" && units == depth:
	case rest == "" && units < depth:
		return true, nil
	default:
		p.scope.Errorf(strings.TrimSpace(l.text), "indentation error: expected %s, but found %s",
			describeIndent(depth, p.c), describeWhitespace(leading))
		p.c.attach(sec, p.c.newInvalid(l.text, l.num), -1)
		return false, nil
	}

	body := value[len(leading):]
	text := strings.TrimRight(body, " \t\r")
	d := nodeData{
		gap:     body[len(text):],
		comment: comment,
		line:    l.num,
		debug:   strings.HasPrefix(comment, debugMarker),
	}

	if p.opensSection(text, comment) {
		if depth+1 > p.c.opts.MaxDepth {
			p.scope.Errorf(text, "sections are nested deeper than %d levels", p.c.opts.MaxDepth)
			p.c.attach(sec, p.c.newInvalid(l.text, l.num), -1)
			return false, nil
		}
		d.kind = KindSection
		d.key = text[:len(text)-len(p.c.opts.SectionDelimiter)]
		id := p.c.alloc(d)
		p.c.attach(sec, id, -1)
		if err := p.section(id, depth+1); err != nil {
			return false, err
		}
		if !p.c.opts.AllowEmptySections && (Section{Node{c: p.c, id: id}}).IsEmpty() {
			p.scope.Warnf(text, "empty configuration section; you might want to indent one or more of the subsequent lines to make them belong to this section, or remove the delimiter at the end of this line if you don't want it to start a section")
		}
		return false, nil
	}

	if p.c.opts.Simple {
		d.kind = KindSimple
		d.key = text
		p.c.attach(sec, p.c.alloc(d), -1)
		return false, nil
	}

	sep := p.c.opts.Separator
	i := strings.Index(text, sep)
	if i < 0 {
		p.c.opts.MissingSeparator(p.scope, text, sep)
		p.c.attach(sec, p.c.newInvalid(l.text, l.num), -1)
		return false, nil
	}
	key := strings.TrimRight(text[:i], " \t")
	val := strings.TrimLeft(text[i+len(sep):], " \t")
	if key == "" {
		p.scope.Errorf(text, "entry without a key")
		p.c.attach(sec, p.c.newInvalid(l.text, l.num), -1)
		return false, nil
	}
	d.kind = KindEntry
	d.key = key
	d.value = val
	d.sep = text[len(key) : len(text)-len(val)]
	p.c.attach(sec, p.c.alloc(d), -1)
	return false, nil
}

// opensSection decides whether a line starts a nested section. The line must
// end in the section delimiter, the separator must not occur before that
// delimiter in entry mode, and the line must not carry the disabled-line marker.
func (p *parser) opensSection(text, comment string) bool {
	delim := p.c.opts.SectionDelimiter
	if !strings.HasSuffix(text, delim) {
		return false
	}
	if !p.c.opts.Simple {
		if i := strings.Index(text, p.c.opts.Separator); i >= 0 && i < len(text)-len(delim) {
			return false
		}
	}
	return !isDisabledMarker(comment)
}

// isDisabledMarker reports whether a trailing comment is the "#-#" marker,
// alone or followed by whitespace.
func isDisabledMarker(comment string) bool {
	rest, ok := strings.CutPrefix(comment, disabledMarker)
	if !ok {
		return false
	}
	return rest == "" || unicode.IsSpace(rune(rest[0]))
}

// countUnits counts whole indentation units at the start of ws and returns
// the remainder that is not a whole unit.
func countUnits(ws, unit string) (int, string) {
	if unit == "" {
		return 0, ws
	}
	n := 0
	for strings.HasPrefix(ws, unit) {
		ws = ws[len(unit):]
		n++
	}
	return n, ws
}

func describeIndent(depth int, c *Config) string {
	if depth == 0 {
		return "no indentation"
	}
	count := depth * len(c.indent)
	return plural(count, c.IndentationName())
}

func describeWhitespace(ws string) string {
	if ws == "" {
		return "no indentation"
	}
	tabs := strings.Count(ws, "\t")
	spaces := len(ws) - tabs
	switch {
	case tabs == 0:
		return plural(spaces, "space")
	case spaces == 0:
		return plural(tabs, "tab")
	default:
		return plural(tabs, "tab") + " and " + plural(spaces, "space")
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
