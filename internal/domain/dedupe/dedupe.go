// Package dedupe tracks record identifiers so duplicate patients or trials are
// dropped with first-wins semantics.
package dedupe

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// Deduper records seen record IDs.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Seen reports whether id was recorded without recording it.
	Seen(ctx context.Context, id string) bool

	// Unrecord removes an ID so it can be recorded again.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map guarded by a RWMutex.
type inMemoryDeduper struct {
	mu        sync.RWMutex
	seen      map[string]struct{}
	capacity  int
	normalize func(string) string
	size      atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		normalize: strings.TrimSpace,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{}, d.capacity)

	return d
}

func (d *inMemoryDeduper) key(id string) string {
	if d.normalize == nil {
		return id
	}
	return d.normalize(id)
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	k := d.key(id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		return true
	}
	d.seen[k] = struct{}{}
	d.size.Add(1)
	return false
}

// Seen reports whether id was recorded.
func (d *inMemoryDeduper) Seen(_ context.Context, id string) bool {
	k := d.key(id)

	d.mu.RLock()
	defer d.mu.RUnlock()

	_, exists := d.seen[k]
	return exists
}

// Unrecord removes an ID from the seen set.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	k := d.key(id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[k]; exists {
		delete(d.seen, k)
		d.size.Add(-1)
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
