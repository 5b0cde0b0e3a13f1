// Package watcher turns raw filesystem notifications into a "file
// discovered" event stream. A path is only emitted once its size and
// modification time have stopped changing for a stability window, so a
// partially written transcript is never handed to the pipeline.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"castpress/internal/config"
	"castpress/internal/logger"
)

// TranscriptExt is the only file extension the watcher recognizes.
const TranscriptExt = ".txt"

// Watcher watches one input directory for new transcript files.
type Watcher struct {
	dir             string
	stabilityWindow time.Duration
	pollInterval    time.Duration

	mu      sync.Mutex
	pending map[string]struct{} // paths currently in a stability wait
	wg      sync.WaitGroup      // stability-wait goroutines still running
	events  chan string
}

// New creates a Watcher over the configured input directory.
func New(cfg config.Watch) *Watcher {
	stability := cfg.StabilityWindow
	if stability <= 0 {
		stability = 2 * time.Second
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	return &Watcher{
		dir:             cfg.InputDir,
		stabilityWindow: stability,
		pollInterval:    poll,
		pending:         make(map[string]struct{}),
		events:          make(chan string),
	}
}

// Start begins watching and returns the discovered-file channel. Files
// already present in the directory are picked up as well. The channel is
// closed when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) (<-chan string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating input directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching %s: %w", w.dir, err)
	}

	// Pick up transcripts that were dropped before the watcher started.
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("scanning input directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			w.track(ctx, filepath.Join(w.dir, entry.Name()))
		}
	}

	go w.loop(ctx, fsw)
	return w.events, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()
	defer func() {
		// Every stability-wait goroutine must have returned before the
		// channel closes, or a late send would panic.
		w.wg.Wait()
		close(w.events)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.track(ctx, event.Name)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("filesystem watcher error", "error", err.Error())
		}
	}
}

// track starts a stability wait for path unless one is already running or
// the path is not a transcript.
func (w *Watcher) track(ctx context.Context, path string) {
	if !strings.EqualFold(filepath.Ext(path), TranscriptExt) {
		return
	}

	w.mu.Lock()
	if _, exists := w.pending[path]; exists {
		w.mu.Unlock()
		return
	}
	w.pending[path] = struct{}{}
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() {
			w.mu.Lock()
			delete(w.pending, path)
			w.mu.Unlock()
		}()
		if !w.awaitStable(ctx, path) {
			return
		}
		select {
		case w.events <- path:
		case <-ctx.Done():
		}
	}()
}

// awaitStable polls until the file's size and mtime have not changed for
// the stability window. It reports false when the file vanished, is not a
// regular file, or the context was cancelled.
func (w *Watcher) awaitStable(ctx context.Context, path string) bool {
	var lastSize int64 = -1
	var lastMod time.Time
	stableSince := time.Now()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		info, err := os.Stat(path)
		if err != nil {
			return false
		}
		if !info.Mode().IsRegular() {
			return false
		}
		if info.Size() != lastSize || !info.ModTime().Equal(lastMod) {
			lastSize = info.Size()
			lastMod = info.ModTime()
			stableSince = time.Now()
		} else if time.Since(stableSince) >= w.stabilityWindow {
			return true
		}

		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
