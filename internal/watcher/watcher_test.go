package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/procindex-mcp/internal/events"
)

const waitTimeout = 5 * time.Second

// collector records published events for assertions
type collector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *collector) Publish(e events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) count(kind events.Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

func (c *collector) has(kind events.Kind, path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if pe, ok := e.(events.PathEvent); ok && pe.Kind() == kind && pe.Path == path {
			return true
		}
	}
	return false
}

func (c *collector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var paths []string
	for _, e := range c.events {
		if pe, ok := e.(events.PathEvent); ok {
			paths = append(paths, pe.Path)
		}
	}
	return paths
}

func bpmnOnly(path string) bool {
	return strings.HasSuffix(path, ".bpmn")
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func setupWatcher(t *testing.T, debounce time.Duration) (*Watcher, *collector) {
	t.Helper()
	c := &collector{}
	w := New(c, Config{Debounce: debounce, Filter: bpmnOnly})
	t.Cleanup(func() { _ = w.Close() })
	return w, c
}

func TestInitialScan(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bpmn"), "a")
	writeFile(t, filepath.Join(root, "b.txt"), "b")
	writeFile(t, filepath.Join(root, "nested", "c.bpmn"), "c")
	writeFile(t, filepath.Join(root, "node_modules", "dep.bpmn"), "dep")
	writeFile(t, filepath.Join(root, ".git", "x.bpmn"), "x")

	w, c := setupWatcher(t, 20*time.Millisecond)
	require.NoError(t, w.AddRoot(root))

	require.Eventually(t, func() bool { return c.count(events.WatcherReady) == 1 }, waitTimeout, 5*time.Millisecond)

	expected := []string{
		filepath.Join(root, "a.bpmn"),
		filepath.Join(root, "nested", "c.bpmn"),
	}
	assert.Equal(t, expected, w.Files())
	assert.ElementsMatch(t, expected, c.paths())
	assert.Equal(t, []string{filepath.Clean(root)}, w.Roots())

	// one debounced aggregate signal for the whole scan
	require.Eventually(t, func() bool { return c.count(events.WatcherChanged) == 1 }, waitTimeout, 5*time.Millisecond)
}

func TestAddRootIsIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.bpmn"), "a")

	w, c := setupWatcher(t, 20*time.Millisecond)
	require.NoError(t, w.AddRoot(root))
	require.NoError(t, w.AddRoot(root+string(filepath.Separator)))

	require.Eventually(t, func() bool { return c.count(events.WatcherReady) == 1 }, waitTimeout, 5*time.Millisecond)
	assert.Equal(t, 1, c.count(events.WatcherAdd))
}

func TestReadyFiresOnce(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(second, "late.bpmn"), "late")

	w, c := setupWatcher(t, 20*time.Millisecond)
	require.NoError(t, w.AddRoot(first))
	require.Eventually(t, func() bool { return c.count(events.WatcherReady) == 1 }, waitTimeout, 5*time.Millisecond)

	require.NoError(t, w.AddRoot(second))
	require.Eventually(t, func() bool {
		return c.has(events.WatcherAdd, filepath.Join(second, "late.bpmn"))
	}, waitTimeout, 5*time.Millisecond)

	assert.Equal(t, 1, c.count(events.WatcherReady))
}

func TestDiskChanges(t *testing.T) {
	root := t.TempDir()
	w, c := setupWatcher(t, 20*time.Millisecond)
	require.NoError(t, w.AddRoot(root))
	require.Eventually(t, func() bool { return c.count(events.WatcherReady) == 1 }, waitTimeout, 5*time.Millisecond)

	file := filepath.Join(root, "new.bpmn")

	t.Run("create", func(t *testing.T) {
		writeFile(t, file, "v1")
		require.Eventually(t, func() bool { return c.has(events.WatcherAdd, file) }, waitTimeout, 5*time.Millisecond)
		assert.Contains(t, w.Files(), file)
	})

	t.Run("change", func(t *testing.T) {
		writeFile(t, file, "v2")
		require.Eventually(t, func() bool { return c.has(events.WatcherChange, file) }, waitTimeout, 5*time.Millisecond)
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, os.Remove(file))
		require.Eventually(t, func() bool { return c.has(events.WatcherRemove, file) }, waitTimeout, 5*time.Millisecond)
		assert.NotContains(t, w.Files(), file)
	})

	t.Run("unmatched files are ignored", func(t *testing.T) {
		writeFile(t, filepath.Join(root, "notes.txt"), "x")
		time.Sleep(100 * time.Millisecond)
		assert.NotContains(t, c.paths(), filepath.Join(root, "notes.txt"))
	})
}

func TestNewDirectoryIsWatched(t *testing.T) {
	root := t.TempDir()
	w, c := setupWatcher(t, 20*time.Millisecond)
	require.NoError(t, w.AddRoot(root))
	require.Eventually(t, func() bool { return c.count(events.WatcherReady) == 1 }, waitTimeout, 5*time.Millisecond)

	sub := filepath.Join(root, "sub")
	require.NoError(t, os.Mkdir(sub, 0755))
	require.Eventually(t, func() bool {
		w.mu.Lock()
		defer w.mu.Unlock()
		_, ok := w.dirs[sub]
		return ok
	}, waitTimeout, 5*time.Millisecond)

	file := filepath.Join(sub, "deep.bpmn")
	writeFile(t, file, "deep")
	require.Eventually(t, func() bool { return c.has(events.WatcherAdd, file) }, waitTimeout, 5*time.Millisecond)

	require.NoError(t, os.RemoveAll(sub))
	require.Eventually(t, func() bool { return c.has(events.WatcherRemove, file) }, waitTimeout, 5*time.Millisecond)
	assert.Empty(t, w.Files())
}

func TestChangedIsDebounced(t *testing.T) {
	root := t.TempDir()
	w, c := setupWatcher(t, 150*time.Millisecond)
	require.NoError(t, w.AddRoot(root))
	require.Eventually(t, func() bool { return c.count(events.WatcherReady) == 1 }, waitTimeout, 5*time.Millisecond)

	// empty root: no files, so no aggregate signal yet
	assert.Equal(t, 0, c.count(events.WatcherChanged))

	for i := 0; i < 5; i++ {
		writeFile(t, filepath.Join(root, "burst.bpmn"), strings.Repeat("x", i+1))
		time.Sleep(20 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return c.count(events.WatcherChanged) == 1 }, waitTimeout, 5*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, c.count(events.WatcherChanged))
}

func TestRemoveRoot(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "a.bpmn")
	writeFile(t, file, "a")

	w, c := setupWatcher(t, 20*time.Millisecond)
	require.NoError(t, w.AddRoot(root))
	require.Eventually(t, func() bool { return c.count(events.WatcherReady) == 1 }, waitTimeout, 5*time.Millisecond)
	require.Len(t, w.Files(), 1)

	w.RemoveRoot(root)
	w.RemoveRoot(root)

	assert.Empty(t, w.Roots())
	assert.Empty(t, w.Files())
	assert.Equal(t, 0, c.count(events.WatcherRemove), "unwatching does not report removals")

	writeFile(t, file, "changed")
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, c.count(events.WatcherChange))
}

func TestClose(t *testing.T) {
	t.Run("never opened", func(t *testing.T) {
		w := New(&collector{}, Config{})
		assert.NoError(t, w.Close())
		assert.NoError(t, w.Close())
	})

	t.Run("add after close", func(t *testing.T) {
		w := New(&collector{}, Config{})
		require.NoError(t, w.AddRoot(t.TempDir()))
		require.NoError(t, w.Close())
		assert.ErrorIs(t, w.AddRoot(t.TempDir()), ErrClosed)
	})

	t.Run("pending debounce is cancelled", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.bpmn"), "a")

		c := &collector{}
		w := New(c, Config{Debounce: 100 * time.Millisecond, Filter: bpmnOnly})
		require.NoError(t, w.AddRoot(root))
		require.Eventually(t, func() bool { return c.count(events.WatcherAdd) == 1 }, waitTimeout, 5*time.Millisecond)
		require.NoError(t, w.Close())

		time.Sleep(200 * time.Millisecond)
		assert.Equal(t, 0, c.count(events.WatcherChanged))
	})
}
