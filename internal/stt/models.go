package stt

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/snarg/meetscribe/internal/pipeline"
)

// modelSizes are the recognition model tiers accepted by WHISPER_MODEL.
var modelSizes = map[string]bool{
	"tiny": true, "tiny.en": true,
	"base": true, "base.en": true,
	"small": true, "small.en": true,
	"medium": true, "medium.en": true,
	"large-v2": true, "large-v3": true,
}

// ValidateModelSize rejects unknown recognition model sizes before any audio
// is touched.
func ValidateModelSize(model string) error {
	if modelSizes[model] {
		return nil
	}
	known := make([]string, 0, len(modelSizes))
	for m := range modelSizes {
		known = append(known, m)
	}
	sort.Strings(known)
	return pipeline.Errorf(pipeline.KindConfiguration,
		"unknown recognition model size %q (expected one of %s)", model, strings.Join(known, ", "))
}

// Key identifies a process-wide model handle: what kind of model, which
// model id (or language, for alignment models), and which compute device.
type Key struct {
	Kind   string
	Model  string
	Device string
}

// Registry tracks which models have been initialized on their serving
// backends. Initialization happens explicitly on first use and is never
// repeated for the process lifetime; there is no implicit teardown. Failed
// initializations are not cached, so the next caller retries.
type Registry struct {
	mu    sync.Mutex
	ready map[Key]bool
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{ready: make(map[Key]bool)}
}

// Ensure runs load once per key. Loads are serialized: model initialization
// is expensive and concurrent duplicate loads would waste backend memory.
func (r *Registry) Ensure(ctx context.Context, key Key, load func(context.Context) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready[key] {
		return nil
	}
	if err := load(ctx); err != nil {
		return err
	}
	r.ready[key] = true
	return nil
}

// Loaded reports whether the key has been initialized.
func (r *Registry) Loaded(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready[key]
}
