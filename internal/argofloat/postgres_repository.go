package argofloat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
)

const floatColumns = `
	id, platform_number, cycle_number, file_name,
	latitude, longitude, observation_time, creation_time,
	parameters, profile_data, data_mode,
	created_at, updated_at`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

// NewPostgresRepository creates a new PostgreSQL float repository.
func NewPostgresRepository(pool *pgxpool.Pool, clock clockwork.Clock) *PostgresRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PostgresRepository{pool: pool, clock: clock}
}

// Upsert inserts or overwrites a record keyed by (platform, cycle).
// The unique constraint treats a NULL cycle number as a value, so the
// single statement is atomic against concurrent upserts of the same key.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *Record) (UpsertResult, error) {
	profile, err := encodeProfile(rec.Profile)
	if err != nil {
		return UpsertResult{}, err
	}
	params := rec.Parameters
	if params == nil {
		params = []string{}
	}
	lat, lon := pointArgs(rec.Position)

	query := `
		INSERT INTO argo_floats (
			platform_number, cycle_number, file_name,
			latitude, longitude, observation_time, creation_time,
			parameters, profile_data, data_mode,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		ON CONFLICT ON CONSTRAINT argo_floats_platform_cycle_key DO UPDATE SET
			file_name = EXCLUDED.file_name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			observation_time = EXCLUDED.observation_time,
			creation_time = EXCLUDED.creation_time,
			parameters = EXCLUDED.parameters,
			profile_data = EXCLUDED.profile_data,
			data_mode = EXCLUDED.data_mode,
			updated_at = GREATEST(EXCLUDED.updated_at, argo_floats.updated_at + interval '1 microsecond')
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var res UpsertResult
	err = r.pool.QueryRow(ctx, query,
		rec.PlatformNumber,
		rec.CycleNumber,
		rec.FileName,
		lat,
		lon,
		rec.ObservationTime,
		rec.CreationTime,
		params,
		profile,
		rec.DataMode,
		r.clock.Now().UTC(),
	).Scan(&res.ID, &rec.CreatedAt, &rec.UpdatedAt, &res.Inserted)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("upsert float %s: %w", rec.PlatformNumber, err)
	}

	rec.ID = res.ID
	return res, nil
}

// List returns matching records ordered by ID.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query := `SELECT` + floatColumns + ` FROM argo_floats`
	var args []interface{}
	if from, to, ok := filter.Window(); ok {
		query += ` WHERE observation_time >= $1 AND observation_time < $2`
		args = append(args, from, to)
	}
	query += ` ORDER BY id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRecords(rows)
}

// Get retrieves a record by ID.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (*Record, error) {
	query := `SELECT` + floatColumns + ` FROM argo_floats WHERE id = $1`
	return scanRecord(r.pool.QueryRow(ctx, query, id))
}

// GetMany retrieves records in the order of ids.
func (r *PostgresRepository) GetMany(ctx context.Context, ids []int64) ([]*Record, error) {
	if len(ids) == 0 {
		return []*Record{}, nil
	}

	query := `SELECT` + floatColumns + ` FROM argo_floats WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found, err := collectRecords(rows)
	if err != nil {
		return nil, err
	}
	return orderByIDs(found, ids)
}

// Delete removes a record by ID and returns the removed row.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) (*Record, error) {
	query := `DELETE FROM argo_floats WHERE id = $1 RETURNING` + floatColumns
	return scanRecord(r.pool.QueryRow(ctx, query, id))
}

// Ping checks database connectivity.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanRecord(row pgx.Row) (*Record, error) {
	rec, err := scanFrom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFloatNotFound
		}
		return nil, err
	}
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]*Record, error) {
	out := []*Record{}
	for rows.Next() {
		rec, err := scanFrom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanFrom(row pgx.Row) (*Record, error) {
	var (
		rec        Record
		cycle      *int32
		lat, lon   *float64
		obs, made  *time.Time
		parameters []string
		profile    []byte
	)

	err := row.Scan(
		&rec.ID,
		&rec.PlatformNumber,
		&cycle,
		&rec.FileName,
		&lat,
		&lon,
		&obs,
		&made,
		&parameters,
		&profile,
		&rec.DataMode,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cycle != nil {
		n := int(*cycle)
		rec.CycleNumber = &n
	}
	rec.Position = pointFrom(lat, lon)
	rec.ObservationTime = utcPtr(obs)
	rec.CreationTime = utcPtr(made)
	if len(parameters) > 0 {
		rec.Parameters = parameters
	}
	if rec.Profile, err = decodeProfile(profile); err != nil {
		return nil, err
	}
	return &rec, nil
}

func pointArgs(p *Point) (lat, lon *float64) {
	if p == nil {
		return nil, nil
	}
	la, lo := p.Lat, p.Lon
	return &la, &lo
}

func pointFrom(lat, lon *float64) *Point {
	if lat == nil || lon == nil {
		return nil
	}
	return &Point{Lat: *lat, Lon: *lon}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func orderByIDs(found []*Record, ids []int64) ([]*Record, error) {
	byID := make(map[int64]*Record, len(found))
	for _, rec := range found {
		byID[rec.ID] = rec
	}
	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			return nil, ErrFloatNotFound
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
