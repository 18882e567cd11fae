package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/snarg/meetscribe/internal/pipeline"
)

// audioExtensions mirror the upload endpoint's allowlist.
var audioExtensions = map[string]bool{
	".wav": true,
	".mp3": true,
	".m4a": true,
	".ogg": true,
}

// Processor runs the pipeline for one recording.
type Processor interface {
	Process(ctx context.Context, sourcePath, displayName string) (*pipeline.Result, error)
}

// Watcher monitors a directory for new recordings and runs the pipeline on
// each one. Rapid Create+Write events on the same file are debounced so the
// file is fully written before processing starts.
type Watcher struct {
	dir    string
	runner Processor
	log    zerolog.Logger

	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	processed atomic.Int64
	failed    atomic.Int64
}

// New creates a watcher over dir.
func New(dir string, runner Processor, log zerolog.Logger) *Watcher {
	return &Watcher{
		dir:            dir,
		runner:         runner,
		log:            log.With().Str("component", "watcher").Logger(),
		debounceTimers: make(map[string]*time.Timer),
	}
}

// Run watches until ctx is cancelled. Blocks.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.log.Info().Str("watch_dir", w.dir).Msg("watching for new recordings")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().
				Int64("processed", w.processed.Load()).
				Int64("failed", w.failed.Load()).
				Msg("watcher stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			if !audioExtensions[strings.ToLower(filepath.Ext(event.Name))] {
				continue
			}
			w.scheduleProcess(ctx, event.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleProcess debounces processing by 500ms per path.
func (w *Watcher) scheduleProcess(ctx context.Context, path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(500 * time.Millisecond)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(500*time.Millisecond, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		w.process(ctx, path)
	})
}

func (w *Watcher) process(ctx context.Context, path string) {
	log := w.log.With().Str("file", filepath.Base(path)).Logger()
	log.Info().Msg("processing watched recording")

	if _, err := w.runner.Process(ctx, path, ""); err != nil {
		w.failed.Add(1)
		log.Warn().Err(err).Msg("watched recording failed")
		return
	}
	w.processed.Add(1)
}
