package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(99), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.NotNil(t, watcher.logger)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	assert.NoError(t, watcher.AddPath(dir))
	assert.Error(t, watcher.AddPath(filepath.Join(dir, "missing")))

	file := filepath.Join(dir, "file.tpl")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	assert.Error(t, watcher.AddPath(file))
}

func TestFileWatcherAddRecursiveSkipsHidden(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "partials", "mail"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".cache"), 0o755))

	require.NoError(t, watcher.AddRecursive(root))
	assert.ElementsMatch(t, []string{
		root,
		filepath.Join(root, "partials"),
		filepath.Join(root, "partials", "mail"),
	}, watcher.WatchList())
}

func TestFileWatcherDeliversFilteredBatches(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddRecursive(dir))
	watcher.AddFilter(SuffixFilter(".tpl"))
	watcher.AddFilter(NoHiddenFilter)

	var mu sync.Mutex
	var paths []string
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			paths = append(paths, e.Path)
		}
		return nil
	})
	watcher.AddHandler(func([]ChangeEvent) error { return errors.New("logged, not fatal") })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))

	page := filepath.Join(dir, "page.tpl")
	require.NoError(t, os.WriteFile(page, []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(page, []byte("b"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".page.tpl"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(paths) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range paths {
		assert.Equal(t, page, p)
	}
}

func TestDebouncerCoalescesByPath(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.start(ctx)

	d.Add(ChangeEvent{Type: EventTypeCreated, Path: "b.tpl"})
	d.Add(ChangeEvent{Type: EventTypeModified, Path: "a.tpl"})
	d.Add(ChangeEvent{Type: EventTypeModified, Path: "b.tpl"})

	select {
	case batch := <-d.Output():
		require.Len(t, batch, 2)
		assert.Equal(t, "a.tpl", batch[0].Path)
		assert.Equal(t, "b.tpl", batch[1].Path)
		assert.Equal(t, EventTypeModified, batch[1].Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter FileFilter
		path   string
		want   bool
	}{
		{"suffix match", SuffixFilter(".tpl"), "views/page.tpl", true},
		{"suffix mismatch", SuffixFilter(".tpl"), "views/page.go", false},
		{"empty suffix accepts all", SuffixFilter(""), "anything", true},
		{"ignore match", IgnoreFilter([]string{"*.bak", "draft_*"}), "views/draft_home.tpl", false},
		{"ignore miss", IgnoreFilter([]string{"*.bak"}), "views/home.tpl", true},
		{"hidden", NoHiddenFilter, "views/.home.tpl.swp", false},
		{"backup", NoHiddenFilter, "views/home.tpl~", false},
		{"visible", NoHiddenFilter, "views/home.tpl", true},
		{"git nested", NoGitFilter, "repo/.git/HEAD", false},
		{"git root", NoGitFilter, ".git/config", false},
		{"not git", NoGitFilter, "repo/views/a.tpl", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter(tt.path))
		})
	}
}
