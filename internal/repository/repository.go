// Package repository holds one in-memory collection per resource and keeps
// it synchronized with a store.Store. Every mutation rewrites the whole
// collection before returning.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"slices"
	"sync"

	"github.com/mesh-intelligence/cabinet/internal/store"
	"github.com/mesh-intelligence/cabinet/pkg/types"
)

// Mutation operation names passed to Recorder.Mutation.
const (
	OpAdd    = "add"
	OpDelete = "delete"
)

// Recorder receives collection events. *metrics.Metrics implements it.
type Recorder interface {
	Mutation(resource, op string)
	PersistFailure(resource string)
	SetRecords(resource string, n int)
}

type nopRecorder struct{}

func (nopRecorder) Mutation(string, string) {}
func (nopRecorder) PersistFailure(string)   {}
func (nopRecorder) SetRecords(string, int)  {}

// Option configures a Repository.
type Option func(*options)

type options struct {
	logger     *log.Logger
	recorder   Recorder
	idStrategy string
}

// WithLogger sets the logger for load and save diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithIDStrategy selects types.IDStrategyLast or types.IDStrategyMax.
// Unknown values fall back to types.IDStrategyLast.
func WithIDStrategy(s string) Option {
	return func(o *options) { o.idStrategy = s }
}

// Repository is the ordered collection of one resource type.
// It is safe for concurrent use.
type Repository[T types.Record] struct {
	name  string
	store store.Store
	opts  options

	mu      sync.RWMutex
	records []T
	maxID   int
}

// New loads the named collection from s. Load problems never fail
// construction: a missing collection or unreadable data leaves the
// repository empty and is reported to the logger.
func New[T types.Record](ctx context.Context, name string, s store.Store, opts ...Option) *Repository[T] {
	o := options{
		logger:     log.New(io.Discard, "", 0),
		recorder:   nopRecorder{},
		idStrategy: types.IDStrategyLast,
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := &Repository[T]{name: name, store: s, opts: o}
	records, err := r.load(ctx)
	switch {
	case errors.Is(err, store.ErrNoData):
		o.logger.Printf("%s: no stored data, starting empty", name)
	case err != nil:
		o.logger.Printf("%s: load failed, starting empty: %v", name, err)
	default:
		r.records = records
	}
	for _, rec := range r.records {
		r.maxID = max(r.maxID, rec.RecordID())
	}
	o.recorder.SetRecords(name, len(r.records))
	return r
}

// Name returns the resource name.
func (r *Repository[T]) Name() string { return r.name }

// List returns a copy of the collection in insertion order.
func (r *Repository[T]) List() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.records)
}

// Len returns the number of records.
func (r *Repository[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Find returns the first record with the given id.
func (r *Repository[T]) Find(id int) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.records {
		if rec.RecordID() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Add assigns the next id, builds the record with build, appends it and
// persists the collection. A failed save is logged and counted; the record
// stays in memory and is still returned.
func (r *Repository[T]) Add(ctx context.Context, build func(id int) T) T {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := build(r.nextID())
	r.records = append(r.records, rec)
	r.maxID = max(r.maxID, rec.RecordID())

	r.opts.recorder.Mutation(r.name, OpAdd)
	r.persist(ctx)
	return rec
}

// Delete removes every record with the given id and persists the result.
// Deleting an id that is not present still rewrites the collection.
func (r *Repository[T]) Delete(ctx context.Context, id int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]T, 0, len(r.records))
	for _, rec := range r.records {
		if rec.RecordID() != id {
			kept = append(kept, rec)
		}
	}
	r.records = kept

	r.opts.recorder.Mutation(r.name, OpDelete)
	r.persist(ctx)
}

// nextID must be called with r.mu held.
func (r *Repository[T]) nextID() int {
	if r.opts.idStrategy == types.IDStrategyMax {
		return r.maxID + 1
	}
	if len(r.records) == 0 {
		return 1
	}
	return r.records[len(r.records)-1].RecordID() + 1
}

func (r *Repository[T]) load(ctx context.Context) ([]T, error) {
	raws, err := r.store.Load(ctx, r.name)
	if err != nil {
		return nil, err
	}
	records := make([]T, 0, len(raws))
	for i, raw := range raws {
		var rec T
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// persist must be called with r.mu held.
func (r *Repository[T]) persist(ctx context.Context) {
	r.opts.recorder.SetRecords(r.name, len(r.records))

	raws := make([]json.RawMessage, 0, len(r.records))
	for _, rec := range r.records {
		b, err := json.Marshal(rec)
		if err != nil {
			r.saveFailed(fmt.Errorf("encoding record %d: %w", rec.RecordID(), err))
			return
		}
		raws = append(raws, b)
	}
	// A client that disconnects mid-request must not abort the save of a
	// mutation that is already applied in memory.
	if err := r.store.Save(context.WithoutCancel(ctx), r.name, raws); err != nil {
		r.saveFailed(err)
	}
}

func (r *Repository[T]) saveFailed(err error) {
	r.opts.logger.Printf("%s: save failed: %v", r.name, err)
	r.opts.recorder.PersistFailure(r.name)
}
