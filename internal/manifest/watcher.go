package manifest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Ashfaaq98/mispctl/internal/misp"
)

// Creator is the part of misp.Client the watcher drives.
type Creator interface {
	CreateEvent(ctx context.Context, req misp.CreateEventRequest) (*misp.CreateEventResult, error)
}

// Options controls a folder run.
type Options struct {
	Dir      string
	Watch    bool
	Patterns []string // e.g. []string{"*.yaml", "*.yml", "*.json"}
	// Settle is how long a file must stay quiet after a write before it is
	// processed.
	Settle time.Duration
	Logger *zap.Logger
}

// Stats counts what a run did.
type Stats struct {
	Files   int
	Events  int
	Created int
	Errors  int
}

// Watcher creates MISP events from manifest files in a directory, once or
// continuously.
type Watcher struct {
	creator Creator
	opts    Options
	logger  *zap.Logger

	mu    sync.Mutex
	seen  map[string][32]byte // content hash of the last processed version
	stats Stats
}

// NewWatcher constructs a watcher.
func NewWatcher(creator Creator, opts Options) *Watcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.Patterns) == 0 {
		opts.Patterns = []string{"*.yaml", "*.yml", "*.json"}
	}
	if opts.Settle <= 0 {
		opts.Settle = 250 * time.Millisecond
	}
	return &Watcher{
		creator: creator,
		opts:    opts,
		logger:  opts.Logger.With(zap.String("component", "manifest-watcher")),
		seen:    make(map[string][32]byte),
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// Run processes existing files and, in watch mode, keeps processing new or
// changed ones until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.scanOnce(ctx); err != nil {
		return err
	}
	if !w.opts.Watch {
		st := w.Stats()
		w.logger.Info("completed one-shot run",
			zap.Int("files", st.Files), zap.Int("events", st.Events),
			zap.Int("created", st.Created), zap.Int("errors", st.Errors))
		return nil
	}
	return w.watchLoop(ctx)
}

func (w *Watcher) matches(name string) bool {
	lower := strings.ToLower(name)
	for _, pat := range w.opts.Patterns {
		p := strings.TrimSpace(strings.ToLower(pat))
		if ok, _ := filepath.Match(p, lower); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) scanOnce(ctx context.Context) error {
	entries, err := os.ReadDir(w.opts.Dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !w.matches(e.Name()) {
			continue
		}
		w.processFile(ctx, filepath.Join(w.opts.Dir, e.Name()))
	}
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.opts.Dir); err != nil {
		return fmt.Errorf("watch add: %w", err)
	}
	w.logger.Info("watching directory",
		zap.String("dir", w.opts.Dir), zap.Strings("patterns", w.opts.Patterns))

	// Editors write in several steps; wait for a file to settle.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(tickInterval(w.opts.Settle))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			st := w.Stats()
			w.logger.Info("watch stopping",
				zap.Int("events", st.Events), zap.Int("created", st.Created), zap.Int("errors", st.Errors))
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.matches(filepath.Base(ev.Name)) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				pending[ev.Name] = time.Now()
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(pending, ev.Name)
				w.mu.Lock()
				delete(w.seen, ev.Name)
				w.mu.Unlock()
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < w.opts.Settle {
					continue
				}
				delete(pending, path)
				w.processFile(ctx, path)
			}
		}
	}
}

// processFile creates the events described in path unless the file content
// is unchanged since it was last processed.
func (w *Watcher) processFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		w.fail(path, err)
		return
	}
	sum := sha256.Sum256(data)

	w.mu.Lock()
	prev, done := w.seen[path]
	w.mu.Unlock()
	if done && prev == sum {
		return
	}

	manifests, err := Parse(bytes.NewReader(data))
	if err != nil {
		w.fail(path, err)
		return
	}

	w.mu.Lock()
	w.stats.Files++
	w.mu.Unlock()

	failed := false
	for _, m := range manifests {
		out, err := w.creator.CreateEvent(ctx, m.Request())
		if err != nil {
			failed = true
			w.fail(path, err)
			continue
		}
		w.mu.Lock()
		w.stats.Events++
		if out.Created {
			w.stats.Created++
		}
		w.mu.Unlock()
		w.logger.Info("manifest applied",
			zap.String("file", path),
			zap.String("event", m.Name),
			zap.Int("event_id", out.EventID),
			zap.Bool("created", out.Created),
			zap.Int("failed_calls", out.Failed()))
	}

	// A file is only settled once every event in it went through; failed
	// files are retried on the next scan or write.
	if !failed {
		w.mu.Lock()
		w.seen[path] = sum
		w.mu.Unlock()
	}
}

// tickInterval is how often pending writes are checked for having settled.
func tickInterval(settle time.Duration) time.Duration {
	return max(settle/2, time.Millisecond)
}

func (w *Watcher) fail(path string, err error) {
	w.mu.Lock()
	w.stats.Errors++
	w.mu.Unlock()
	w.logger.Error("failed to process manifest", zap.String("file", path), zap.Error(err))
}
