// Package dedupe tracks processed contest ids so a replayed feed cannot move
// regions a second time.
package dedupe

import (
	"container/list"
	"context"
	"sync"

	"github.com/okian/territory/internal/domain/model"
)

// Deduper records seen contest ids to ensure at-most-once application.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id, used when a recorded contest was later rejected.
	Unrecord(ctx context.Context, id string)

	// Seen reports whether id was recorded without recording it.
	Seen(ctx context.Context, id string) bool

	Size() int64
}

// inMemoryDeduper keeps ids in a map. In bounded mode the oldest id is
// evicted once maxSize is reached.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int
	seed    []string
}

// NewInMemoryDeduper creates an unbounded deduper unless WithMaxSize says
// otherwise.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		seen:  make(map[string]*list.Element),
		order: list.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, id := range d.seed {
		d.record(id)
	}
	d.seed = nil
	return d
}

// FromLedger returns a deduper seeded with every contest already recorded in
// ledger.
func FromLedger(ledger []model.TransferRecord, opts ...Option) Deduper {
	return NewInMemoryDeduper(append([]Option{WithSeed(model.ContestIDs(ledger)...)}, opts...)...)
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	d.record(id)
	return false
}

// record must be called with d.mu held (or before d is shared).
func (d *inMemoryDeduper) record(id string) {
	if _, ok := d.seen[id]; ok {
		return
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[id] = d.order.PushBack(id)
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
	}
}

func (d *inMemoryDeduper) Seen(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[id]
	return ok
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
