package argofloat

import "context"

// Repository defines the interface for float record persistence.
type Repository interface {
	// Upsert inserts rec or overwrites the record with the same (platform, cycle) key.
	// On success rec.ID, rec.CreatedAt and rec.UpdatedAt reflect the stored row.
	Upsert(ctx context.Context, rec *Record) (UpsertResult, error)

	// List returns records whose observation time falls in the filter window, ordered by ID.
	List(ctx context.Context, filter ListFilter) ([]*Record, error)

	// Get retrieves a record by ID.
	Get(ctx context.Context, id int64) (*Record, error)

	// GetMany retrieves records in the order of ids.
	// Returns ErrFloatNotFound if any id is missing.
	GetMany(ctx context.Context, ids []int64) ([]*Record, error)

	// Delete removes a record and returns it so the caller can clean up the backing file.
	Delete(ctx context.Context, id int64) (*Record, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
