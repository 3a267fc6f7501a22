// Package watcher keeps a template store synchronized with a directory of
// template files. Saves are debounced so rapid editor writes register
// once.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/logging"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/processor"
	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/store"
)

// Stats tracks watcher activity.
type Stats struct {
	FilesLoaded   int
	FilesRemoved  int
	LoadFailures  int
	Errors        int
	LastEventPath string
	LastEventTime time.Time
}

// TemplateWatcher reloads template files into a store as they change on
// disk.
type TemplateWatcher struct {
	mu          sync.RWMutex
	watcher     *fsnotify.Watcher
	store       *store.TemplateStore
	dir         string
	debounceMap map[string]time.Time
	debounceDur time.Duration
	// byPath remembers which template name each file registered, so a
	// delete can remove the right template even after the file is gone.
	byPath  map[string]string
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
	stats   Stats
}

// New creates a watcher over dir. The directory does not need to exist
// yet; Start retries the watch when it appears.
func New(dir string, st *store.TemplateStore, debounce time.Duration) (*TemplateWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &TemplateWatcher{
		watcher:     fsw,
		store:       st,
		dir:         dir,
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		byPath:      make(map[string]string),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start loads the directory once, then begins watching. Non-blocking.
func (tw *TemplateWatcher) Start(ctx context.Context) error {
	tw.mu.Lock()
	if tw.running {
		tw.mu.Unlock()
		return nil
	}
	tw.running = true
	tw.mu.Unlock()

	if err := os.MkdirAll(tw.dir, 0755); err != nil {
		logging.Get(logging.CategoryWatcher).Warn("failed to create template dir %s: %v (continuing)", tw.dir, err)
	}
	if err := tw.LoadAll(); err != nil {
		logging.Get(logging.CategoryWatcher).Warn("initial template load: %v", err)
	}
	if err := tw.watcher.Add(tw.dir); err != nil {
		logging.Get(logging.CategoryWatcher).Warn("initial watch failed (dir may not exist): %v", err)
	} else {
		logging.Watcher("watching template directory: %s", tw.dir)
	}

	go tw.run(ctx)
	return nil
}

// Stop halts the watcher and waits for the loop to drain.
func (tw *TemplateWatcher) Stop() {
	tw.mu.Lock()
	if !tw.running {
		tw.mu.Unlock()
		return
	}
	tw.running = false
	tw.mu.Unlock()

	close(tw.stopCh)
	<-tw.doneCh

	if err := tw.watcher.Close(); err != nil {
		logging.Get(logging.CategoryWatcher).Error("closing watcher: %v", err)
	}
	logging.Watcher("stopped")
}

// IsWatching reports whether the event loop is running.
func (tw *TemplateWatcher) IsWatching() bool {
	tw.mu.RLock()
	defer tw.mu.RUnlock()
	return tw.running
}

// GetStats returns a snapshot of watcher counters.
func (tw *TemplateWatcher) GetStats() Stats {
	tw.mu.RLock()
	defer tw.mu.RUnlock()
	return tw.stats
}

// LoadAll registers every template file currently in the directory.
func (tw *TemplateWatcher) LoadAll() error {
	tpls, prios, err := processor.LoadTemplateDir(tw.dir)
	if err != nil {
		return err
	}
	for i, tpl := range tpls {
		if err := tw.store.Register(tpl.Name, tpl, prios[i]); err != nil {
			logging.Get(logging.CategoryWatcher).Warn("skipping %s: %v", tpl.Name, err)
			tw.mu.Lock()
			tw.stats.LoadFailures++
			tw.mu.Unlock()
			continue
		}
		tw.mu.Lock()
		tw.byPath[prios[i].Source] = tpl.Name
		tw.stats.FilesLoaded++
		tw.mu.Unlock()
	}
	logging.Watcher("loaded %d templates from %s", len(tpls), tw.dir)
	return nil
}

func (tw *TemplateWatcher) run(ctx context.Context) {
	defer close(tw.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tw.stopCh:
			return
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			tw.handleEvent(event)
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryWatcher).Error("watch error: %v", err)
			tw.mu.Lock()
			tw.stats.Errors++
			tw.mu.Unlock()
		case <-ticker.C:
			tw.processSettled()
		}
	}
}

func (tw *TemplateWatcher) handleEvent(event fsnotify.Event) {
	if !isTemplateFile(event.Name) {
		return
	}

	switch {
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		tw.mu.Lock()
		tw.debounceMap[event.Name] = time.Now()
		tw.stats.LastEventPath = event.Name
		tw.stats.LastEventTime = time.Now()
		tw.mu.Unlock()
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		tw.mu.Lock()
		delete(tw.debounceMap, event.Name)
		name, known := tw.byPath[event.Name]
		delete(tw.byPath, event.Name)
		tw.stats.LastEventPath = event.Name
		tw.stats.LastEventTime = time.Now()
		tw.mu.Unlock()
		if known && tw.store.Remove(name) {
			tw.mu.Lock()
			tw.stats.FilesRemoved++
			tw.mu.Unlock()
			logging.Watcher("removed template %s (file deleted)", name)
		}
	}
}

// processSettled reloads files whose last event is past the debounce
// window.
func (tw *TemplateWatcher) processSettled() {
	tw.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range tw.debounceMap {
		if now.Sub(at) >= tw.debounceDur {
			settled = append(settled, path)
			delete(tw.debounceMap, path)
		}
	}
	tw.mu.Unlock()

	for _, path := range settled {
		tw.reload(path)
	}
}

func (tw *TemplateWatcher) reload(path string) {
	tpl, prio, err := processor.LoadTemplateFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		logging.Get(logging.CategoryWatcher).Warn("reload %s: %v", filepath.Base(path), err)
		tw.mu.Lock()
		tw.stats.LoadFailures++
		tw.mu.Unlock()
		return
	}
	if err := tw.store.Register(tpl.Name, tpl, prio); err != nil {
		logging.Get(logging.CategoryWatcher).Warn("register %s: %v", tpl.Name, err)
		tw.mu.Lock()
		tw.stats.LoadFailures++
		tw.mu.Unlock()
		return
	}
	tw.mu.Lock()
	tw.byPath[path] = tpl.Name
	tw.stats.FilesLoaded++
	tw.mu.Unlock()
	logging.Watcher("registered template %s from %s", tpl.Name, filepath.Base(path))
}

func isTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
