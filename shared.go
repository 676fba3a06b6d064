// FILE: lixenwraith/nodeconf/shared.go
package nodeconf

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// SharedConfig is a reloadable handle around one parsed file. The handle is
// stable while the tree it wraps is swapped on Load, Unload and Reload.
// Config never returns nil: while unloaded an empty fallback tree stands in,
// and the next access loads the file again.
//
// Load, Reload, Unload and Save are serialized. Readers never block on them;
// they observe either the previous tree or the new one.
type SharedConfig struct {
	path     string
	opts     []Option
	reporter Reporter

	mu      sync.Mutex
	current atomic.Pointer[Config]
	modTime atomic.Int64 // unix nanos of the file after the last load or save
}

// NewShared creates an unloaded handle for the file at path.
func NewShared(path string, opts ...Option) *SharedConfig {
	s := &SharedConfig{
		path:     path,
		opts:     opts,
		reporter: buildOptions(opts).Reporter,
	}
	s.current.Store(s.newFallback())
	return s
}

func (s *SharedConfig) newFallback() *Config {
	c := New(s.opts...)
	c.name = filepath.Base(s.path)
	c.path = s.path
	c.fallback = true
	return c
}

// Path returns the backing file path.
func (s *SharedConfig) Path() string {
	return s.path
}

// Loaded reports whether a parsed tree, rather than the fallback, is current.
func (s *SharedConfig) Loaded() bool {
	return !s.current.Load().fallback
}

// Config returns the current tree, loading the file first if the fallback
// is in use. The result is never nil.
func (s *SharedConfig) Config() *Config {
	c := s.current.Load()
	if !c.fallback {
		return c
	}
	s.mu.Lock()
	if s.current.Load().fallback {
		s.loadLocked()
	}
	s.mu.Unlock()
	return s.current.Load()
}

// Load parses the file and makes the result current. On failure the problem
// is reported and the empty fallback becomes current.
func (s *SharedConfig) Load() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Unload replaces the current tree with the empty fallback and invalidates it.
func (s *SharedConfig) Unload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unloadLocked()
}

// Reload unloads and loads again while holding the lock, so concurrent
// accessors wait for the new tree instead of triggering their own load.
func (s *SharedConfig) Reload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unloadLocked()
	return s.loadLocked()
}

// Save writes the current tree to the backing file. Failures are reported.
// An unloaded handle has nothing to save and returns false.
func (s *SharedConfig) Save() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.current.Load()
	if c.fallback {
		return false
	}
	if err := c.Save(s.path); err != nil {
		s.report("cannot save config file", err)
		return false
	}
	s.recordModTime()
	return true
}

func (s *SharedConfig) loadLocked() bool {
	c, err := LoadFile(s.path, s.opts...)
	if err != nil {
		s.report("cannot load config file", err)
		s.swap(s.newFallback())
		return false
	}
	s.swap(c)
	s.recordModTime()
	return true
}

func (s *SharedConfig) unloadLocked() {
	s.swap(s.newFallback())
}

func (s *SharedConfig) swap(c *Config) {
	if old := s.current.Swap(c); old != nil && !old.fallback {
		old.Invalidate()
	}
}

func (s *SharedConfig) recordModTime() {
	if info, err := os.Stat(s.path); err == nil {
		s.modTime.Store(info.ModTime().UnixNano())
	}
}

// lastModTime returns the file modification time seen at the last load or save.
func (s *SharedConfig) lastModTime() time.Time {
	return time.Unix(0, s.modTime.Load())
}

func (s *SharedConfig) report(msg string, err error) {
	s.reporter.Report(Diagnostic{
		Severity: SeverityError,
		File:     s.path,
		Line:     -1,
		Message:  msg,
		Err:      err,
	})
}
