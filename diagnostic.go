// FILE: lixenwraith/nodeconf/diagnostic.go
package nodeconf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Severity classifies a Diagnostic.
type Severity int

const (
	// SeverityWarning marks suspicious but accepted input
	SeverityWarning Severity = iota
	// SeverityError marks input that could not be parsed as written
	SeverityError
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is one problem found while parsing or handling a config file.
type Diagnostic struct {
	Severity Severity
	File     string // file name, may be empty
	Line     int    // 1-based source line, or -1 when unknown
	Message  string
	Text     string // offending source text, may be empty
	Err      error  // underlying cause for I/O problems
}

// Error implements error so diagnostics can be joined and wrapped.
func (d Diagnostic) Error() string {
	return d.String()
}

// Unwrap returns the underlying cause, if any.
func (d Diagnostic) Unwrap() error {
	return d.Err
}

// String formats the diagnostic as "file, line N: message (text)".
func (d Diagnostic) String() string {
	loc := d.File
	if loc == "" {
		loc = "<unnamed>"
	}
	if d.Line >= 0 {
		loc = fmt.Sprintf("%s, line %d", loc, d.Line)
	} else {
		loc += ", unknown line"
	}
	msg := fmt.Sprintf("%s: %s", loc, d.Message)
	if d.Text != "" {
		msg += fmt.Sprintf(" (%s)", d.Text)
	}
	if d.Err != nil {
		msg += ": " + d.Err.Error()
	}
	return msg
}

// Reporter receives diagnostics. Implementations must be safe for concurrent
// use when shared between configs that are loaded concurrently.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(d Diagnostic)

// Report calls f(d).
func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// DiscardReporter drops every diagnostic.
var DiscardReporter Reporter = ReporterFunc(func(Diagnostic) {})

// slogReporter forwards diagnostics to a structured logger
type slogReporter struct {
	log *slog.Logger
}

// NewSlogReporter returns a Reporter writing to log. A nil logger uses slog.Default().
func NewSlogReporter(log *slog.Logger) Reporter {
	if log == nil {
		log = slog.Default()
	}
	return &slogReporter{log: log}
}

func (r *slogReporter) Report(d Diagnostic) {
	level := slog.LevelWarn
	if d.Severity == SeverityError {
		level = slog.LevelError
	}
	attrs := []slog.Attr{slog.String("file", d.File)}
	if d.Line >= 0 {
		attrs = append(attrs, slog.Int("line", d.Line))
	}
	if d.Text != "" {
		attrs = append(attrs, slog.String("text", d.Text))
	}
	if d.Err != nil {
		attrs = append(attrs, slog.Any("err", d.Err))
	}
	r.log.LogAttrs(context.Background(), level, d.Message, attrs...)
}

// Collector accumulates diagnostics in memory.
type Collector struct {
	mu    sync.Mutex
	items []Diagnostic
}

// Report appends d.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.items...)
}

// Errors returns only error-severity diagnostics.
func (c *Collector) Errors() []Diagnostic {
	return c.filter(SeverityError)
}

// Warnings returns only warning-severity diagnostics.
func (c *Collector) Warnings() []Diagnostic {
	return c.filter(SeverityWarning)
}

func (c *Collector) filter(s Severity) []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Diagnostic
	for _, d := range c.items {
		if d.Severity == s {
			out = append(out, d)
		}
	}
	return out
}

// Err joins all error-severity diagnostics, or returns nil.
func (c *Collector) Err() error {
	var errs []error
	for _, d := range c.Errors() {
		errs = append(errs, d)
	}
	return errors.Join(errs...)
}

// Reset drops all collected diagnostics.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Scope attributes diagnostics to the node currently being processed.
// It replaces a process-wide "current node" with an explicit value that is
// threaded through parsing and traversal; Enter returns a function restoring
// the previous node, so nested traversals always unwind correctly.
type Scope struct {
	reporter Reporter
	file     string
	current  Node
	line     int
}

// NewScope creates a scope reporting to r for the named file.
func NewScope(r Reporter, file string) *Scope {
	if r == nil {
		r = DiscardReporter
	}
	return &Scope{reporter: r, file: file, line: -1}
}

// Enter makes n the current node and returns a function restoring the previous one.
func (s *Scope) Enter(n Node) (restore func()) {
	prevNode, prevLine := s.current, s.line
	s.current, s.line = n, n.Line()
	return func() {
		s.current, s.line = prevNode, prevLine
	}
}

// enterLine sets the current source line while no node exists for it yet.
func (s *Scope) enterLine(line int) (restore func()) {
	prevNode, prevLine := s.current, s.line
	s.current, s.line = Node{}, line
	return func() {
		s.current, s.line = prevNode, prevLine
	}
}

// Current returns the node diagnostics are attributed to, if any.
func (s *Scope) Current() (Node, bool) {
	return s.current, !s.current.IsZero()
}

// Line returns the source line diagnostics are attributed to.
func (s *Scope) Line() int {
	return s.line
}

// Errorf reports an error at the current position.
func (s *Scope) Errorf(text, format string, args ...any) {
	s.report(SeverityError, text, fmt.Sprintf(format, args...))
}

// Warnf reports a warning at the current position.
func (s *Scope) Warnf(text, format string, args ...any) {
	s.report(SeverityWarning, text, fmt.Sprintf(format, args...))
}

func (s *Scope) report(sev Severity, text, msg string) {
	s.reporter.Report(Diagnostic{
		Severity: sev,
		File:     s.file,
		Line:     s.line,
		Message:  msg,
		Text:     text,
	})
}
