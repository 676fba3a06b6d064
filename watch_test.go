// FILE: lixenwraith/nodeconf/watch_test.go
package nodeconf

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// watchedRegistry registers one file for consumer "alpha" and starts watching.
func watchedRegistry(t *testing.T, content string, opts WatchOptions) (*Registry[plugin], *Watcher, string) {
	t.Helper()
	r, _ := newTestRegistry(t)
	path := filepath.Join(r.Root(), "watched.sk")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.True(t, r.Register("alpha", "watched"))

	w, err := r.Watch(opts)
	require.NoError(t, err)
	t.Cleanup(r.StopWatching)
	return r, w, path
}

func testWatchOptions() WatchOptions {
	opts := DefaultWatchOptions()
	opts.Debounce = 50 * time.Millisecond
	return opts
}

func nextChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		require.True(t, ok, "channel closed")
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for change")
		return Change{}
	}
}

func expectQuiet(t *testing.T, ch <-chan Change, d time.Duration) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change: %v", c)
	case <-time.After(d):
	}
}

func TestWatchExternalChange(t *testing.T) {
	r, w, path := watchedRegistry(t, "a: 1\n", testWatchOptions())
	assert.Equal(t, []string{path}, w.Files())
	ch := w.Subscribe()

	require.NoError(t, os.WriteFile(path, []byte("a: 2\nb: 3\n"), 0644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	first := nextChange(t, ch)
	second := nextChange(t, ch)
	assert.Equal(t, Change{File: path, Path: "a"}, first)
	assert.Equal(t, Change{File: path, Path: "b"}, second)

	v, ok := r.Config("alpha", "watched").Value("a")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestWatchOwnSaveIgnored(t *testing.T) {
	r, w, _ := watchedRegistry(t, "a: 1\n", testWatchOptions())
	ch := w.Subscribe()

	s, ok := r.Shared("alpha", "watched")
	require.True(t, ok)
	require.NoError(t, s.Config().Set("b", "2"))
	require.True(t, s.Save())

	expectQuiet(t, ch, 300*time.Millisecond)
}

func TestWatchFileEvents(t *testing.T) {
	t.Run("PermissionsChanged", func(t *testing.T) {
		_, w, path := watchedRegistry(t, "a: 1\n", testWatchOptions())
		ch := w.Subscribe()
		require.NoError(t, os.Chmod(path, 0666))
		assert.Equal(t, Change{File: path, Event: EventPermissionsChanged}, nextChange(t, ch))
	})

	t.Run("Deleted", func(t *testing.T) {
		_, w, path := watchedRegistry(t, "a: 1\n", testWatchOptions())
		ch := w.Subscribe()
		require.NoError(t, os.Remove(path))
		assert.Equal(t, Change{File: path, Event: EventFileDeleted}, nextChange(t, ch))
	})
}

func TestWatchLifecycle(t *testing.T) {
	opts := testWatchOptions()
	opts.MaxWatchers = 2
	r, w, _ := watchedRegistry(t, "a: 1\n", opts)

	t.Run("SameWatcher", func(t *testing.T) {
		again, err := r.Watch(opts)
		require.NoError(t, err)
		assert.Same(t, w, again)
	})

	t.Run("TracksLaterLoads", func(t *testing.T) {
		require.True(t, r.Register("alpha", "later"))
		assert.Contains(t, w.Files(), filepath.Join(r.Root(), "later.sk"))
	})

	ch1 := w.Subscribe()
	ch2 := w.Subscribe()
	assert.Equal(t, 2, w.SubscriberCount())

	t.Run("SubscriberLimit", func(t *testing.T) {
		_, ok := <-w.Subscribe()
		assert.False(t, ok)
	})

	t.Run("CloseClosesChannels", func(t *testing.T) {
		require.NoError(t, w.Close())
		assert.False(t, w.IsWatching())
		for _, ch := range []<-chan Change{ch1, ch2} {
			select {
			case _, ok := <-ch:
				assert.False(t, ok)
			case <-time.After(time.Second):
				t.Fatal("channel not closed")
			}
		}
		_, ok := <-w.Subscribe()
		assert.False(t, ok)
	})
}

func TestWatchConcurrentStart(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.True(t, r.Register("alpha", "watched"))
	t.Cleanup(r.StopWatching)

	const n = 8
	watchers := make([]*Watcher, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w, err := r.Watch(testWatchOptions())
			assert.NoError(t, err)
			watchers[i] = w
		}()
	}
	wg.Wait()

	for _, w := range watchers {
		assert.Same(t, watchers[0], w)
	}
	assert.True(t, watchers[0].IsWatching())
}

func TestChangedPaths(t *testing.T) {
	before := map[string]string{"a": "1", "b": "2", "c": "3"}
	after := map[string]string{"a": "1", "b": "20", "d": "4"}
	assert.Equal(t, []string{"b", "c", "d"}, changedPaths(before, after))
	assert.Empty(t, changedPaths(before, before))
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "f.sk: a.b", Change{File: "f.sk", Path: "a.b"}.String())
	assert.Equal(t, "f.sk: file_deleted", Change{File: "f.sk", Event: EventFileDeleted}.String())
}
