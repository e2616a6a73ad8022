package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/polisai/polis-flow/pkg/domain"
)

const defaultDebounce = 100 * time.Millisecond

// WatcherOptions tune a WorkflowWatcher.
type WatcherOptions struct {
	Logger   *slog.Logger
	Debounce time.Duration
	// OnReload is called after every reload attempt with its error, if any.
	OnReload func(err error)
}

// WorkflowWatcher keeps the latest valid version of a workflow file and
// notifies subscribers when it changes on disk.
type WorkflowWatcher struct {
	path        string
	opts        WatcherOptions
	mu          sync.RWMutex
	current     domain.Workflow
	loaded      bool
	subscribers []chan domain.Workflow
	watcher     *fsnotify.Watcher
	cancel      context.CancelFunc
}

// NewWorkflowWatcher loads path and starts watching it. A file that fails to
// load initially is logged; the watcher still starts and picks it up once it
// becomes valid.
func NewWorkflowWatcher(path string, opts WatcherOptions) (*WorkflowWatcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &WorkflowWatcher{
		path:    absPath,
		opts:    opts,
		watcher: watcher,
		cancel:  cancel,
	}

	if err := w.load(); err != nil {
		opts.Logger.Warn("Initial workflow load failed", "path", absPath, "error", err)
	}

	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		cancel()
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	go w.watchLoop(ctx)

	return w, nil
}

// Current returns the last successfully loaded workflow. ok is false until
// the file has loaded once.
func (w *WorkflowWatcher) Current() (domain.Workflow, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current, w.loaded
}

// Subscribe returns a channel that receives every reloaded workflow. The
// current workflow, when loaded, is delivered immediately. Slow consumers
// miss intermediate versions.
func (w *WorkflowWatcher) Subscribe() <-chan domain.Workflow {
	w.mu.Lock()
	defer w.mu.Unlock()
	ch := make(chan domain.Workflow, 1)
	w.subscribers = append(w.subscribers, ch)
	if w.loaded {
		ch <- w.current
	}
	return ch
}

// Close stops the watcher and cleans up resources.
func (w *WorkflowWatcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

func (w *WorkflowWatcher) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.opts.Debounce, func() {
					if ctx.Err() != nil {
						return
					}
					err := w.load()
					if err != nil {
						w.opts.Logger.Error("Workflow reload failed", "path", w.path, "error", err)
					} else {
						w.opts.Logger.Info("Workflow reloaded", "path", w.path)
					}
					if w.opts.OnReload != nil {
						w.opts.OnReload(err)
					}
				})
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.opts.Logger.Warn("Workflow watcher error", "error", err)
		}
	}
}

func (w *WorkflowWatcher) load() error {
	wf, err := LoadWorkflow(w.path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.current = wf
	w.loaded = true
	subscribers := make([]chan domain.Workflow, len(w.subscribers))
	copy(subscribers, w.subscribers)
	w.mu.Unlock()

	for _, ch := range subscribers {
		select {
		case ch <- wf:
		default:
		}
	}
	return nil
}
