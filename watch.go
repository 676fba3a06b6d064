// FILE: lixenwraith/nodeconf/watch.go
package nodeconf

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change events carried in Change.Event. An empty Event means the entry at
// Change.Path was added, removed or changed value by a reload.
const (
	EventFileDeleted        = "file_deleted"
	EventPermissionsChanged = "permissions_changed"
	EventReloadError        = "reload_error"
	EventReloadTimeout      = "reload_timeout"
)

// WatchOptions configures file watching behavior
type WatchOptions struct {
	// Debounce duration to coalesce rapid writes into one reload
	Debounce time.Duration

	// MaxWatchers limits concurrent subscriber channels
	MaxWatchers int

	// ReloadTimeout bounds a single reload
	ReloadTimeout time.Duration

	// VerifyPermissions skips reloads of files whose group or world
	// permission bits changed
	VerifyPermissions bool

	// Logger for watcher lifecycle events; slog.Default() when nil
	Logger *slog.Logger
}

// DefaultWatchOptions returns sensible defaults for file watching
func DefaultWatchOptions() WatchOptions {
	return WatchOptions{
		Debounce:          DefaultDebounce,
		MaxWatchers:       DefaultMaxWatchers,
		ReloadTimeout:     DefaultReloadTimeout,
		VerifyPermissions: true,
	}
}

// Change describes one observed change of a watched file.
type Change struct {
	File  string // normalized file path
	Path  string // dotted entry path, empty for file events
	Event string // one of the Event constants, empty for entry changes
	Err   error  // set for reload errors
}

func (c Change) String() string {
	switch {
	case c.Event == "":
		return c.File + ": " + c.Path
	case c.Err != nil:
		return fmt.Sprintf("%s: %s: %v", c.File, c.Event, c.Err)
	default:
		return c.File + ": " + c.Event
	}
}

type fileState struct {
	mode fs.FileMode
}

// Watcher reloads cached registry files when they change on disk and fans
// the resulting changes out to subscribers.
type Watcher struct {
	opts    WatchOptions
	log     *slog.Logger
	resolve func(path string) *SharedConfig
	fsw     *fsnotify.Watcher

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu           sync.RWMutex
	dirs         map[string]int
	files        map[string]fileState
	timers       map[string]*time.Timer
	subscribers  map[int64]chan Change
	subscriberID atomic.Int64
	running      atomic.Bool
	stopOnce     sync.Once
}

// Watch starts watching every cached file of the registry and every file it
// loads afterwards. Calling Watch again returns the running watcher.
func (r *Registry[C]) Watch(opts WatchOptions) (*Watcher, error) {
	r.mu.Lock()
	if r.watcher != nil && r.watcher.IsWatching() {
		w := r.watcher
		r.mu.Unlock()
		return w, nil
	}
	r.mu.Unlock()

	if opts.Logger == nil {
		opts.Logger = r.opts.logger
	}
	w, err := newWatcher(opts, r.cached)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if cur := r.watcher; cur != nil && cur.IsWatching() {
		r.mu.Unlock()
		// lost a concurrent start
		w.Close()
		return cur, nil
	}
	r.watcher = w
	r.mu.Unlock()

	for path := range r.live() {
		w.track(path)
	}
	return w, nil
}

// StopWatching stops the registry watcher, if any.
func (r *Registry[C]) StopWatching() {
	r.mu.Lock()
	w := r.watcher
	r.watcher = nil
	r.mu.Unlock()
	if w != nil {
		w.Close()
	}
}

func newWatcher(opts WatchOptions, resolve func(string) *SharedConfig) (*Watcher, error) {
	if opts.Debounce < MinDebounce {
		opts.Debounce = MinDebounce
	}
	if opts.MaxWatchers <= 0 {
		opts.MaxWatchers = DefaultMaxWatchers
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		opts:        opts,
		log:         opts.Logger.With("component", "nodeconf.watcher"),
		resolve:     resolve,
		fsw:         fsw,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
		dirs:        make(map[string]int),
		files:       make(map[string]fileState),
		timers:      make(map[string]*time.Timer),
		subscribers: make(map[int64]chan Change),
	}
	w.running.Store(true)
	go w.loop()
	return w, nil
}

// IsWatching reports whether the watcher is running.
func (w *Watcher) IsWatching() bool {
	return w.running.Load()
}

// Files returns the watched file paths, sorted.
func (w *Watcher) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	files := make([]string, 0, len(w.files))
	for f := range w.files {
		files = append(files, f)
	}
	slices.Sort(files)
	return files
}

// SubscriberCount returns the number of active change channels
func (w *Watcher) SubscriberCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.subscribers)
}

// Subscribe returns a channel receiving changes until the watcher stops.
// Slow subscribers miss changes rather than block reloads. Past MaxWatchers
// the returned channel is already closed.
func (w *Watcher) Subscribe() <-chan Change {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.Load() || len(w.subscribers) >= w.opts.MaxWatchers {
		ch := make(chan Change)
		close(ch)
		return ch
	}

	ch := make(chan Change, subscriberBuffer)
	id := w.subscriberID.Add(1)
	w.subscribers[id] = ch

	go func() {
		<-w.ctx.Done()
		w.mu.Lock()
		delete(w.subscribers, id)
		close(ch)
		w.mu.Unlock()
	}()

	return ch
}

// Close stops watching and closes every subscriber channel.
func (w *Watcher) Close() error {
	var err error
	w.stopOnce.Do(func() {
		w.running.Store(false)
		w.cancel()

		w.mu.Lock()
		for path, t := range w.timers {
			t.Stop()
			delete(w.timers, path)
		}
		w.mu.Unlock()

		err = w.fsw.Close()
		select {
		case <-w.done:
		case <-time.After(ShutdownTimeout):
			w.log.Warn("watcher loop did not exit in time")
		}
	})
	return err
}

// track starts watching path and its directory.
func (w *Watcher) track(path string) {
	if !w.running.Load() {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[path]; ok {
		return
	}

	dir := filepath.Dir(path)
	if w.dirs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			w.log.Warn("cannot watch directory", "dir", dir, "error", err)
			return
		}
	}
	w.dirs[dir]++

	var st fileState
	if info, err := os.Stat(path); err == nil {
		st.mode = info.Mode()
	}
	w.files[path] = st
	w.log.Debug("watching file", "file", path)
}

// untrack stops watching path, dropping its directory once unused.
func (w *Watcher) untrack(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.files[path]; !ok {
		return
	}
	delete(w.files, path)
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}

	dir := filepath.Dir(path)
	w.dirs[dir]--
	if w.dirs[dir] <= 0 {
		delete(w.dirs, dir)
		_ = w.fsw.Remove(dir)
	}
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[path]; !ok {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.reload(path)
	})
}

// reload checks the file state after a burst of events and reloads it when
// its content changed since the last load or save.
func (w *Watcher) reload(path string) {
	if w.ctx.Err() != nil {
		return
	}

	w.mu.Lock()
	delete(w.timers, path)
	st := w.files[path]
	w.mu.Unlock()

	shared := w.resolve(path)
	if shared == nil {
		w.untrack(path)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			w.notify(Change{File: path, Event: EventFileDeleted})
		}
		return
	}

	if w.opts.VerifyPermissions && st.mode != 0 && info.Mode()&0077 != st.mode&0077 {
		w.mu.Lock()
		if s, ok := w.files[path]; ok {
			s.mode = info.Mode()
			w.files[path] = s
		}
		w.mu.Unlock()
		w.log.Warn("config file permissions changed, not reloading", "file", path, "mode", info.Mode())
		w.notify(Change{File: path, Event: EventPermissionsChanged})
		return
	}

	if info.ModTime().Equal(shared.lastModTime()) {
		return
	}

	ctx, cancel := context.WithTimeout(w.ctx, w.opts.ReloadTimeout)
	defer cancel()

	before := entryMap(shared.current.Load())

	done := make(chan bool, 1)
	go func() {
		done <- shared.Reload()
	}()

	select {
	case ok := <-done:
		if !ok {
			w.notify(Change{File: path, Event: EventReloadError, Err: fmt.Errorf("failed to reload '%s'", path)})
			return
		}
		w.log.Info("config reloaded", "file", path)
		for _, p := range changedPaths(before, entryMap(shared.current.Load())) {
			w.notify(Change{File: path, Path: p})
		}
	case <-ctx.Done():
		w.notify(Change{File: path, Event: EventReloadTimeout})
	}
}

// notify sends a change to every subscriber without blocking
func (w *Watcher) notify(c Change) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, ch := range w.subscribers {
		select {
		case ch <- c:
		default:
		}
	}
}

func entryMap(c *Config) map[string]string {
	m := make(map[string]string)
	for path, value := range c.Entries() {
		if _, ok := m[path]; !ok {
			m[path] = value
		}
	}
	return m
}

// changedPaths returns the sorted paths added, removed or changed between
// two entry snapshots.
func changedPaths(before, after map[string]string) []string {
	var paths []string
	for p, v := range after {
		if old, ok := before[p]; !ok || old != v {
			paths = append(paths, p)
		}
	}
	for p := range before {
		if _, ok := after[p]; !ok {
			paths = append(paths, p)
		}
	}
	slices.Sort(paths)
	return paths
}
