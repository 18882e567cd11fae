package pipeline

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Cleaner tracks temporary artifacts created during a run and guarantees
// their removal on every exit path. Deletion problems are logged and never
// escalated so they cannot mask the run's primary error.
type Cleaner struct {
	log zerolog.Logger

	mu       sync.Mutex
	files    []string
	dirs     []string
	released bool
}

// NewCleaner creates a cleaner scoped to one run.
func NewCleaner(log zerolog.Logger) *Cleaner {
	return &Cleaner{log: log}
}

// Track registers an asset for removal. Non-temporary assets are ignored.
func (c *Cleaner) Track(a AudioAsset) {
	if !a.Temporary || a.Path == "" {
		return
	}
	c.TrackFile(a.Path)
}

// TrackFile registers a file for removal at release time.
func (c *Cleaner) TrackFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files = append(c.files, path)
}

// TrackDir registers a directory tree for removal at release time.
// Directories are removed after files, so per-run work directories can hold
// tracked files.
func (c *Cleaner) TrackDir(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dirs = append(c.dirs, path)
}

// Release removes every tracked artifact exactly once. Safe to call from a
// deferred statement on all exit paths; repeat calls are no-ops.
func (c *Cleaner) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.released {
		return
	}
	c.released = true

	for _, f := range c.files {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			c.log.Warn().Err(err).Str("path", f).Msg("failed to remove temporary file")
		} else {
			c.log.Debug().Str("path", f).Msg("removed temporary file")
		}
	}
	for _, d := range c.dirs {
		if err := os.RemoveAll(d); err != nil {
			c.log.Warn().Err(err).Str("path", d).Msg("failed to remove work directory")
		} else {
			c.log.Debug().Str("path", d).Msg("removed work directory")
		}
	}
}
