// Package watch monitors directories for new bill-of-quantities files and
// feeds them through the parse pipeline.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/fsnotify.v1"

	"github.com/baukit/gaebconv/pkg/boq"
	"github.com/baukit/gaebconv/pkg/ingest"
)

// Handler receives each successfully parsed document.
type Handler func(*boq.ParsedDocument)

// Watcher monitors directories for accepted-extension files. Writes are
// debounced so a file is parsed once after it settles; per-file failures are
// logged and monitoring continues.
type Watcher struct {
	pipeline *ingest.Pipeline
	log      *zap.Logger
	handler  Handler
	debounce time.Duration

	watcher  *fsnotify.Watcher
	stopChan chan struct{}

	pendingMu sync.Mutex
	pending   map[string]*time.Timer
}

// New creates a watcher. A nil logger disables logging; a zero debounce
// defaults to 500ms.
func New(pipeline *ingest.Pipeline, handler Handler, debounce time.Duration, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		pipeline: pipeline,
		log:      log,
		handler:  handler,
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
}

// Start begins monitoring the given directories. Existing files are not
// replayed; use ScanExisting for a one-shot pass first.
func (w *Watcher) Start(dirs []string) error {
	if len(dirs) == 0 {
		return fmt.Errorf("no directories to watch")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	w.watcher = watcher
	w.stopChan = make(chan struct{})

	go w.watchLoop()

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}
	return nil
}

// Stop ends monitoring.
func (w *Watcher) Stop() {
	if w.stopChan != nil {
		close(w.stopChan)
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
}

// ScanExisting parses every supported file already present in the given
// directories and hands the results to the handler.
func (w *Watcher) ScanExisting(dirs []string) error {
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !ingest.IsSupported(entry.Name()) {
				continue
			}
			w.processFile(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}

// watchLoop handles file system events until stopped.
func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !ingest.IsSupported(event.Name) {
				continue
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create,
				event.Op&fsnotify.Write == fsnotify.Write:
				w.schedule(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

// schedule arms (or re-arms) the debounce timer for a path.
func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.pendingMu.Lock()
		delete(w.pending, path)
		w.pendingMu.Unlock()

		w.processFile(path)
	})
}

func (w *Watcher) processFile(path string) {
	doc, err := w.pipeline.ParseFile(path)
	if err != nil {
		w.log.Warn("skipping file", zap.String("path", path), zap.Error(err))
		return
	}
	w.log.Info("parsed document",
		zap.String("file", doc.FileName),
		zap.String("dialect", string(doc.Header.DetectedFormat)),
		zap.Int("positions", doc.TotalPositions))
	if w.handler != nil {
		w.handler(doc)
	}
}
