package argofloat

import (
	"context"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used by tests and the CLI when no database is configured.
type InMemoryRepository struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	nextID  int64
	records map[int64]*Record
	byKey   map[NaturalKey]int64
}

// NewInMemoryRepository creates a new in-memory float repository.
func NewInMemoryRepository(clock clockwork.Clock) *InMemoryRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &InMemoryRepository{
		clock:   clock,
		records: make(map[int64]*Record),
		byKey:   make(map[NaturalKey]int64),
	}
}

// Upsert inserts or overwrites a record keyed by (platform, cycle).
func (r *InMemoryRepository) Upsert(_ context.Context, rec *Record) (UpsertResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now().UTC()
	key := rec.Key()

	if id, ok := r.byKey[key]; ok {
		existing := r.records[id]
		existing.MergeFrom(rec)
		existing.UpdatedAt = nextUpdatedAt(existing.UpdatedAt, now)

		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = existing.UpdatedAt
		return UpsertResult{ID: id, Inserted: false}, nil
	}

	r.nextID++
	stored := rec.Clone()
	stored.ID = r.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	r.records[stored.ID] = stored
	r.byKey[key] = stored.ID

	rec.ID = stored.ID
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return UpsertResult{ID: stored.ID, Inserted: true}, nil
}

// List returns matching records ordered by ID.
func (r *InMemoryRepository) List(_ context.Context, filter ListFilter) ([]*Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0, len(r.records))
	for _, rec := range r.records {
		if filter.Matches(rec.ObservationTime) {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get retrieves a record by ID.
func (r *InMemoryRepository) Get(_ context.Context, id int64) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrFloatNotFound
	}
	return rec.Clone(), nil
}

// GetMany retrieves records in the order of ids.
func (r *InMemoryRepository) GetMany(_ context.Context, ids []int64) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := r.records[id]
		if !ok {
			return nil, ErrFloatNotFound
		}
		out = append(out, rec.Clone())
	}
	return out, nil
}

// Delete removes a record by ID.
func (r *InMemoryRepository) Delete(_ context.Context, id int64) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrFloatNotFound
	}
	delete(r.records, id)
	delete(r.byKey, rec.Key())
	return rec, nil
}

// Ping always succeeds.
func (r *InMemoryRepository) Ping(_ context.Context) error {
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
