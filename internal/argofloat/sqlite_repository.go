package argofloat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// SQLiteRepository is a SQLite implementation of Repository.
// Times are stored as Unix microseconds in UTC.
type SQLiteRepository struct {
	db    *sql.DB
	clock clockwork.Clock
	// mu serialises upserts so the select-then-write runs as one unit.
	mu sync.Mutex
}

// NewSQLiteRepository creates a new SQLite float repository.
// The schema must already be migrated.
func NewSQLiteRepository(db *sql.DB, clock clockwork.Clock) *SQLiteRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SQLiteRepository{db: db, clock: clock}
}

// Upsert inserts or overwrites a record keyed by (platform, cycle).
func (r *SQLiteRepository) Upsert(ctx context.Context, rec *Record) (UpsertResult, error) {
	profile, err := encodeProfile(rec.Profile)
	if err != nil {
		return UpsertResult{}, err
	}
	params, err := encodeParameters(rec.Parameters)
	if err != nil {
		return UpsertResult{}, err
	}
	lat, lon := pointArgs(rec.Position)

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.clock.Now().UTC().Truncate(time.Microsecond)

	var (
		id                   int64
		createdAt, updatedAt int64
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at FROM argo_floats WHERE platform_number = ? AND cycle_number IS ?`,
		rec.PlatformNumber, nullableInt(rec.CycleNumber),
	).Scan(&id, &createdAt, &updatedAt)

	var res UpsertResult
	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx, `
			INSERT INTO argo_floats (
				platform_number, cycle_number, file_name,
				latitude, longitude, observation_time, creation_time,
				parameters, profile_data, data_mode,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.PlatformNumber, nullableInt(rec.CycleNumber), rec.FileName,
			nullableFloat(lat), nullableFloat(lon), nullableTime(rec.ObservationTime), nullableTime(rec.CreationTime),
			string(params), string(profile), rec.DataMode,
			now.UnixMicro(), now.UnixMicro(),
		)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("insert float %s: %w", rec.PlatformNumber, err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return UpsertResult{}, err
		}
		res = UpsertResult{ID: id, Inserted: true}
		rec.CreatedAt = now
		rec.UpdatedAt = now

	case err != nil:
		return UpsertResult{}, fmt.Errorf("lookup float %s: %w", rec.PlatformNumber, err)

	default:
		updated := nextUpdatedAt(time.UnixMicro(updatedAt).UTC(), now)
		_, err := tx.ExecContext(ctx, `
			UPDATE argo_floats SET
				file_name = ?, latitude = ?, longitude = ?,
				observation_time = ?, creation_time = ?,
				parameters = ?, profile_data = ?, data_mode = ?,
				updated_at = ?
			WHERE id = ?`,
			rec.FileName, nullableFloat(lat), nullableFloat(lon),
			nullableTime(rec.ObservationTime), nullableTime(rec.CreationTime),
			string(params), string(profile), rec.DataMode,
			updated.UnixMicro(), id,
		)
		if err != nil {
			return UpsertResult{}, fmt.Errorf("update float %s: %w", rec.PlatformNumber, err)
		}
		res = UpsertResult{ID: id, Inserted: false}
		rec.CreatedAt = time.UnixMicro(createdAt).UTC()
		rec.UpdatedAt = updated
	}

	if err := tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit upsert: %w", err)
	}

	rec.ID = res.ID
	return res, nil
}

// List returns matching records ordered by ID.
func (r *SQLiteRepository) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	query := `SELECT` + floatColumns + ` FROM argo_floats`
	var args []interface{}
	if from, to, ok := filter.Window(); ok {
		query += ` WHERE observation_time >= ? AND observation_time < ?`
		args = append(args, from.UnixMicro(), to.UnixMicro())
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSQLRecords(rows)
}

// Get retrieves a record by ID.
func (r *SQLiteRepository) Get(ctx context.Context, id int64) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT`+floatColumns+` FROM argo_floats WHERE id = ?`, id)
	rec, err := scanSQLRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFloatNotFound
		}
		return nil, err
	}
	return rec, nil
}

// GetMany retrieves records in the order of ids.
func (r *SQLiteRepository) GetMany(ctx context.Context, ids []int64) ([]*Record, error) {
	if len(ids) == 0 {
		return []*Record{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT`+floatColumns+` FROM argo_floats WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found, err := collectSQLRecords(rows)
	if err != nil {
		return nil, err
	}
	return orderByIDs(found, ids)
}

// Delete removes a record by ID and returns the removed row.
func (r *SQLiteRepository) Delete(ctx context.Context, id int64) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanSQLRecord(tx.QueryRowContext(ctx, `SELECT`+floatColumns+` FROM argo_floats WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFloatNotFound
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM argo_floats WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete float %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit delete: %w", err)
	}
	return rec, nil
}

// Ping checks database connectivity.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type sqlScanner interface {
	Scan(dest ...interface{}) error
}

func collectSQLRecords(rows *sql.Rows) ([]*Record, error) {
	out := []*Record{}
	for rows.Next() {
		rec, err := scanSQLRecord(rows)
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

func scanSQLRecord(row sqlScanner) (*Record, error) {
	var (
		rec                  Record
		cycle                sql.NullInt64
		lat, lon             sql.NullFloat64
		obs, made            sql.NullInt64
		params, profile      string
		createdAt, updatedAt int64
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
		&params,
		&profile,
		&rec.DataMode,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if cycle.Valid {
		n := int(cycle.Int64)
		rec.CycleNumber = &n
	}
	if lat.Valid && lon.Valid {
		rec.Position = &Point{Lat: lat.Float64, Lon: lon.Float64}
	}
	rec.ObservationTime = timeFromMicros(obs)
	rec.CreationTime = timeFromMicros(made)
	rec.CreatedAt = time.UnixMicro(createdAt).UTC()
	rec.UpdatedAt = time.UnixMicro(updatedAt).UTC()

	if rec.Parameters, err = decodeParameters([]byte(params)); err != nil {
		return nil, err
	}
	if rec.Profile, err = decodeProfile([]byte(profile)); err != nil {
		return nil, err
	}
	return &rec, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullableFloat(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().UnixMicro()
}

func timeFromMicros(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMicro(v.Int64).UTC()
	return &t
}

// Ensure SQLiteRepository implements Repository interface.
var _ Repository = (*SQLiteRepository)(nil)
