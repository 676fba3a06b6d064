// FILE: lixenwraith/nodeconf/registry.go
package nodeconf

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"weak"

	"golang.org/x/sync/singleflight"
)

// DefaultExtension is appended to registry paths that lack it.
const DefaultExtension = ".sk"

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	extension        string
	allowOutsideRoot bool
	parse            []Option
	logger           *slog.Logger
	reporter         Reporter
}

// WithExtension sets the extension appended to paths lacking it.
func WithExtension(ext string) RegistryOption {
	return func(o *registryOptions) {
		if ext != "" && !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		o.extension = ext
	}
}

// AllowOutsideRoot disables the managed directory check. Meant for tests.
func AllowOutsideRoot() RegistryOption {
	return func(o *registryOptions) { o.allowOutsideRoot = true }
}

// WithParseOptions sets the options used to parse registered files.
func WithParseOptions(opts ...Option) RegistryOption {
	return func(o *registryOptions) { o.parse = append(o.parse, opts...) }
}

// WithLogger sets the logger for registry lifecycle events.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(o *registryOptions) { o.logger = l }
}

// WithRegistryReporter sets the sink for registration and I/O diagnostics.
// Parse diagnostics go to the Reporter of the parse options.
func WithRegistryReporter(r Reporter) RegistryOption {
	return func(o *registryOptions) { o.reporter = r }
}

// Registry shares parsed files between consumers. Every path is confined to
// a managed root directory. A file is parsed at most once while any consumer
// holds it: the cache keeps only weak references, so once every consumer has
// released a file it can be collected and is parsed again on next use.
type Registry[C comparable] struct {
	root string
	opts registryOptions
	log  *slog.Logger

	mu        sync.Mutex
	cache     map[string]weak.Pointer[SharedConfig]
	consumers map[C]map[string]*SharedConfig
	group     singleflight.Group
	watcher   *Watcher
}

// NewRegistry creates a registry managing files under root, creating the
// directory if needed.
func NewRegistry[C comparable](root string, opts ...RegistryOption) (*Registry[C], error) {
	o := registryOptions{extension: DefaultExtension}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.reporter == nil {
		o.reporter = NewSlogReporter(o.logger)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve managed directory '%s': %w", root, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create managed directory '%s': %w", abs, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve managed directory '%s': %w", abs, err)
	}

	return &Registry[C]{
		root:      resolved,
		opts:      o,
		log:       o.logger.With("component", "nodeconf.registry"),
		cache:     make(map[string]weak.Pointer[SharedConfig]),
		consumers: make(map[C]map[string]*SharedConfig),
	}, nil
}

// Root returns the canonical managed directory.
func (r *Registry[C]) Root() string {
	return r.root
}

// Normalize appends the default extension when missing (case-insensitively),
// resolves relative paths against the root, resolves symbolic links and
// rejects results outside the root with ErrOutsideRoot.
func (r *Registry[C]) Normalize(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	if ext := r.opts.extension; ext != "" && !strings.HasSuffix(strings.ToLower(path), strings.ToLower(ext)) {
		path += ext
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.root, path)
	}

	resolved, err := resolvePath(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve '%s': %w", path, err)
	}

	if !r.opts.allowOutsideRoot {
		rel, err := filepath.Rel(r.root, resolved)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
		}
	}
	return resolved, nil
}

// resolvePath evaluates symbolic links of the longest existing prefix of p.
func resolvePath(p string) (string, error) {
	var rest []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

// Register associates path with consumer, creating the file and its
// directories if absent. The first registration of a path wins; later ones
// are no-ops. Failures are reported and yield false.
func (r *Registry[C]) Register(consumer C, path string) bool {
	norm, err := r.Normalize(path)
	if err != nil {
		r.report(path, "cannot register config file", err)
		return false
	}

	if _, ok := r.lookup(consumer, norm); ok {
		return true
	}

	if err := createIfMissing(norm); err != nil {
		r.report(norm, "cannot create config file", err)
		return false
	}

	shared, err := r.getOrLoad(norm)
	if err != nil {
		r.report(norm, "cannot load config file", err)
		return false
	}

	r.mu.Lock()
	paths, ok := r.consumers[consumer]
	if !ok {
		paths = make(map[string]*SharedConfig)
		r.consumers[consumer] = paths
	}
	if _, exists := paths[norm]; !exists {
		paths[norm] = shared
	}
	r.mu.Unlock()

	r.log.Debug("config registered", "file", norm)
	return true
}

// IsRegistered reports whether consumer registered path.
func (r *Registry[C]) IsRegistered(consumer C, path string) bool {
	norm, err := r.Normalize(path)
	if err != nil {
		return false
	}
	_, ok := r.lookup(consumer, norm)
	return ok
}

// Config returns the current tree of a path registered by consumer. Calling
// it for a path that is not registered is a programming error and panics;
// check IsRegistered first.
func (r *Registry[C]) Config(consumer C, path string) *Config {
	shared, ok := r.Shared(consumer, path)
	if !ok {
		panic(fmt.Sprintf("nodeconf: %v: %s", ErrNotRegistered, path))
	}
	return shared.Config()
}

// Shared returns the handle of a path registered by consumer.
func (r *Registry[C]) Shared(consumer C, path string) (*SharedConfig, bool) {
	norm, err := r.Normalize(path)
	if err != nil {
		return nil, false
	}
	return r.lookup(consumer, norm)
}

func (r *Registry[C]) lookup(consumer C, norm string) (*SharedConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	shared, ok := r.consumers[consumer][norm]
	return shared, ok
}

// Load returns the shared handle of path, parsing the file unless a live
// handle exists. The file must exist; Register creates it.
func (r *Registry[C]) Load(path string) (*SharedConfig, error) {
	norm, err := r.Normalize(path)
	if err != nil {
		return nil, err
	}
	return r.getOrLoad(norm)
}

func (r *Registry[C]) getOrLoad(norm string) (*SharedConfig, error) {
	if shared := r.cached(norm); shared != nil {
		return shared, nil
	}

	v, err, _ := r.group.Do(norm, func() (any, error) {
		if shared := r.cached(norm); shared != nil {
			return shared, nil
		}

		shared := NewShared(norm, r.opts.parse...)
		if !shared.Load() {
			return nil, fmt.Errorf("failed to load '%s'", norm)
		}

		r.mu.Lock()
		r.cache[norm] = weak.Make(shared)
		w := r.watcher
		r.mu.Unlock()

		runtime.AddCleanup(shared, r.evict, norm)
		if w != nil {
			w.track(norm)
		}
		r.log.Debug("config loaded", "file", norm)
		return shared, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*SharedConfig), nil
}

// cached returns the live handle for norm, if any.
func (r *Registry[C]) cached(norm string) *SharedConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wp, ok := r.cache[norm]; ok {
		return wp.Value()
	}
	return nil
}

// evict drops a dead cache slot after its handle was collected.
func (r *Registry[C]) evict(norm string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if wp, ok := r.cache[norm]; ok && wp.Value() == nil {
		delete(r.cache, norm)
		r.log.Debug("config evicted", "file", norm)
	}
}

// Release drops every registration of consumer. Files no other consumer
// holds become collectable.
func (r *Registry[C]) Release(consumer C) {
	r.mu.Lock()
	delete(r.consumers, consumer)
	r.mu.Unlock()
}

// Paths returns the normalized paths registered by consumer, sorted.
func (r *Registry[C]) Paths(consumer C) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.consumers[consumer]))
	for p := range r.consumers[consumer] {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Cached returns the number of cache slots, live or awaiting eviction.
func (r *Registry[C]) Cached() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

// live returns the handles of every cached file that is still referenced.
func (r *Registry[C]) live() map[string]*SharedConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*SharedConfig, len(r.cache))
	for p, wp := range r.cache {
		if shared := wp.Value(); shared != nil {
			out[p] = shared
		}
	}
	return out
}

func (r *Registry[C]) report(file, msg string, err error) {
	r.opts.reporter.Report(Diagnostic{
		Severity: SeverityError,
		File:     file,
		Line:     -1,
		Message:  msg,
		Err:      err,
	})
}
