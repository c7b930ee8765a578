package manifest

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

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

type fakeCreator struct {
	mu       sync.Mutex
	requests []misp.CreateEventRequest
	fail     map[string]bool
}

func (f *fakeCreator) CreateEvent(ctx context.Context, req misp.CreateEventRequest) (*misp.CreateEventResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.fail[req.EventName] {
		return nil, errors.New("boom")
	}
	return &misp.CreateEventResult{EventID: len(f.requests), Created: true}, nil
}

func (f *fakeCreator) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.requests {
		out = append(out, r.EventName)
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWatcher_OneShot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "org: o\nname: alpha\n")
	writeFile(t, dir, "b.yml", "org: o\nname: beta\n---\norg: o\nname: gamma\n")
	writeFile(t, dir, "broken.yaml", "org: o\n")
	writeFile(t, dir, "notes.txt", "org: o\nname: ignored\n")
	writeFile(t, dir, "fails.json", `{"org":"o","name":"delta"}`)

	fc := &fakeCreator{fail: map[string]bool{"delta": true}}
	w := NewWatcher(fc, Options{Dir: dir})

	require.NoError(t, w.Run(context.Background()))

	assert.ElementsMatch(t, []string{"alpha", "beta", "gamma", "delta"}, fc.names())
	st := w.Stats()
	assert.Equal(t, 3, st.Files)
	assert.Equal(t, 3, st.Events)
	assert.Equal(t, 3, st.Created)
	assert.Equal(t, 2, st.Errors)
}

func TestWatcher_SkipsUnchangedContent(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yaml", "org: o\nname: alpha\n")

	fc := &fakeCreator{}
	w := NewWatcher(fc, Options{Dir: dir})

	w.processFile(context.Background(), path)
	w.processFile(context.Background(), path)
	assert.Equal(t, []string{"alpha"}, fc.names())

	writeFile(t, dir, "a.yaml", "org: o\nname: alpha\npublish: true\n")
	w.processFile(context.Background(), path)
	assert.Equal(t, []string{"alpha", "alpha"}, fc.names())
}

func TestWatcher_RetriesFailedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "org: o\nname: A\n")

	fc := &fakeCreator{fail: map[string]bool{"A": true}}
	w := NewWatcher(fc, Options{Dir: dir})

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []string{"A"}, fc.names())
	assert.Equal(t, 1, w.Stats().Errors)

	fc.mu.Lock()
	fc.fail = nil
	fc.mu.Unlock()

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []string{"A", "A"}, fc.names())
	assert.Equal(t, 1, w.Stats().Events)

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, []string{"A", "A"}, fc.names())
}

func TestTickInterval(t *testing.T) {
	assert.Equal(t, time.Millisecond, tickInterval(time.Nanosecond))
	assert.Equal(t, time.Millisecond, tickInterval(0))
	assert.Equal(t, 125*time.Millisecond, tickInterval(250*time.Millisecond))
}

func TestWatcher_MissingDir(t *testing.T) {
	w := NewWatcher(&fakeCreator{}, Options{Dir: filepath.Join(t.TempDir(), "nope")})
	assert.Error(t, w.Run(context.Background()))
}

func TestWatcher_WatchMode(t *testing.T) {
	dir := t.TempDir()
	fc := &fakeCreator{}
	w := NewWatcher(fc, Options{Dir: dir, Watch: true, Settle: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before creating the file.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "new.yaml", "org: o\nname: fresh\n")

	require.Eventually(t, func() bool {
		return len(fc.names()) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"fresh"}, fc.names())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
