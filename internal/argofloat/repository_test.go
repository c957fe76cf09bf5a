package argofloat_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/database"
)

var epoch = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func sampleRecord(platform string, cycle *int, observed *time.Time) *argofloat.Record {
	return &argofloat.Record{
		PlatformNumber:  platform,
		CycleNumber:     cycle,
		FileName:        "R" + platform + ".nc",
		Position:        &argofloat.Point{Lat: 15.5, Lon: 65.25},
		ObservationTime: observed,
		Parameters:      []string{"PRES", "TEMP", "PSAL"},
		Profile: map[string]argofloat.ParameterProfile{
			"TEMP": {Values: []float64{28.1, 27.9, 12.4}, Units: "degree_Celsius", LongName: "Sea temperature"},
		},
		DataMode: "R",
	}
}

type repoFactory func(t *testing.T, clock clockwork.Clock) argofloat.Repository

func repositories() map[string]repoFactory {
	return map[string]repoFactory{
		"memory": func(_ *testing.T, clock clockwork.Clock) argofloat.Repository {
			return argofloat.NewInMemoryRepository(clock)
		},
		"sqlite": func(t *testing.T, clock clockwork.Clock) argofloat.Repository {
			ctx := context.Background()
			db, err := database.OpenSQLite(ctx, ":memory:")
			require.NoError(t, err)
			t.Cleanup(func() { db.Close() })
			require.NoError(t, database.MigrateSQLite(ctx, db, zerolog.Nop()))
			return argofloat.NewSQLiteRepository(db, clock)
		},
	}
}

func TestRepository_UpsertIdempotent(t *testing.T) {
	for name, newRepo := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := clockwork.NewFakeClockAt(epoch)
			repo := newRepo(t, clock)

			first, err := repo.Upsert(ctx, sampleRecord("2902746", intPtr(12), timePtr(epoch)))
			require.NoError(t, err)
			assert.True(t, first.Inserted)

			stored, err := repo.Get(ctx, first.ID)
			require.NoError(t, err)
			assert.True(t, epoch.Equal(stored.CreatedAt))
			assert.True(t, epoch.Equal(stored.UpdatedAt))

			clock.Advance(time.Hour)
			second, err := repo.Upsert(ctx, sampleRecord("2902746", intPtr(12), timePtr(epoch)))
			require.NoError(t, err)
			assert.False(t, second.Inserted)
			assert.Equal(t, first.ID, second.ID)

			all, err := repo.List(ctx, argofloat.ListFilter{})
			require.NoError(t, err)
			require.Len(t, all, 1)

			again := all[0]
			assert.True(t, epoch.Equal(again.CreatedAt))
			assert.True(t, epoch.Add(time.Hour).Equal(again.UpdatedAt))
			assert.Equal(t, stored.PlatformNumber, again.PlatformNumber)
			assert.Equal(t, stored.Profile, again.Profile)
			assert.Equal(t, stored.Parameters, again.Parameters)
			assert.Equal(t, stored.Position, again.Position)
		})
	}
}

func TestRepository_UpdatedAtStrictlyIncreases(t *testing.T) {
	for name, newRepo := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := clockwork.NewFakeClockAt(epoch)
			repo := newRepo(t, clock)

			rec := sampleRecord("5906", intPtr(1), nil)
			_, err := repo.Upsert(ctx, rec)
			require.NoError(t, err)
			before := rec.UpdatedAt

			// clock frozen
			_, err = repo.Upsert(ctx, sampleRecord("5906", intPtr(1), nil))
			require.NoError(t, err)

			got, err := repo.Get(ctx, rec.ID)
			require.NoError(t, err)
			assert.True(t, got.UpdatedAt.After(before))
		})
	}
}

func TestRepository_UpsertOverwritesFields(t *testing.T) {
	for name, newRepo := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, clockwork.NewFakeClockAt(epoch))

			res, err := repo.Upsert(ctx, sampleRecord("1901", intPtr(3), timePtr(epoch)))
			require.NoError(t, err)

			changed := sampleRecord("1901", intPtr(3), nil)
			changed.Position = nil
			changed.Profile = nil
			changed.Parameters = []string{"PRES"}
			changed.DataMode = "D"
			changed.FileName = "D1901_003.nc"
			_, err = repo.Upsert(ctx, changed)
			require.NoError(t, err)

			got, err := repo.Get(ctx, res.ID)
			require.NoError(t, err)
			assert.Nil(t, got.Position)
			assert.Nil(t, got.ObservationTime)
			assert.Empty(t, got.Profile)
			assert.Equal(t, []string{"PRES"}, got.Parameters)
			assert.Equal(t, "D", got.DataMode)
			assert.Equal(t, "D1901_003.nc", got.FileName)
		})
	}
}

func TestRepository_UpsertDropsNonFiniteValues(t *testing.T) {
	for name, newRepo := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, clockwork.NewFakeClockAt(epoch))

			rec := sampleRecord("4903", intPtr(2), timePtr(epoch))
			rec.Profile["TEMP"] = argofloat.ParameterProfile{
				Values: []float64{20, math.NaN(), 21, math.Inf(-1)},
				Units:  "degree_Celsius",
			}
			res, err := repo.Upsert(ctx, rec)
			require.NoError(t, err)

			got, err := repo.Get(ctx, res.ID)
			require.NoError(t, err)
			assert.Equal(t, []float64{20, 21}, got.Profile["TEMP"].Values)
			assert.Equal(t, "degree_Celsius", got.Profile["TEMP"].Units)
		})
	}
}

func TestRepository_NilCycleIsKey(t *testing.T) {
	for name, newRepo := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, clockwork.NewFakeClockAt(epoch))

			a, err := repo.Upsert(ctx, sampleRecord("7777", nil, nil))
			require.NoError(t, err)
			b, err := repo.Upsert(ctx, sampleRecord("7777", nil, nil))
			require.NoError(t, err)
			c, err := repo.Upsert(ctx, sampleRecord("7777", intPtr(0), nil))
			require.NoError(t, err)

			assert.Equal(t, a.ID, b.ID)
			assert.False(t, b.Inserted)
			assert.NotEqual(t, a.ID, c.ID)
			assert.True(t, c.Inserted)

			all, err := repo.List(ctx, argofloat.ListFilter{})
			require.NoError(t, err)
			assert.Len(t, all, 2)
		})
	}
}

func TestRepository_TimesOutsideNanosecondRange(t *testing.T) {
	observed := time.Date(2400, time.June, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(1600, time.January, 1, 0, 0, 0, 0, time.UTC)

	for name, newRepo := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, clockwork.NewFakeClockAt(epoch))

			rec := sampleRecord("6901", intPtr(4), timePtr(observed))
			rec.CreationTime = timePtr(created)
			res, err := repo.Upsert(ctx, rec)
			require.NoError(t, err)

			got, err := repo.Get(ctx, res.ID)
			require.NoError(t, err)
			require.NotNil(t, got.ObservationTime)
			require.NotNil(t, got.CreationTime)
			assert.True(t, observed.Equal(*got.ObservationTime), "observation time %s", got.ObservationTime)
			assert.True(t, created.Equal(*got.CreationTime), "creation time %s", got.CreationTime)

			matched, err := repo.List(ctx, argofloat.ListFilter{Year: 2400, Month: 6})
			require.NoError(t, err)
			require.Len(t, matched, 1)
			assert.Equal(t, res.ID, matched[0].ID)

			none, err := repo.List(ctx, argofloat.ListFilter{Year: 1815})
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestRepository_ListFilter(t *testing.T) {
	for name, newRepo := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, clockwork.NewFakeClockAt(epoch))

			times := []*time.Time{
				timePtr(time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC)),
				timePtr(time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)),
				timePtr(time.Date(2025, time.February, 10, 6, 0, 0, 0, time.UTC)),
				nil,
			}
			for i, ts := range times {
				_, err := repo.Upsert(ctx, sampleRecord("P1", intPtr(i), ts))
				require.NoError(t, err)
			}

			tests := []struct {
				name   string
				filter argofloat.ListFilter
				want   int
			}{
				{"everything", argofloat.ListFilter{}, 4},
				{"year", argofloat.ListFilter{Year: 2024}, 2},
				{"year and month", argofloat.ListFilter{Year: 2024, Month: 2}, 1},
				{"other year", argofloat.ListFilter{Year: 2025}, 1},
				{"empty year", argofloat.ListFilter{Year: 2023}, 0},
				{"day", argofloat.ListFilter{Day: time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC)}, 1},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := repo.List(ctx, tt.filter)
					require.NoError(t, err)
					assert.Len(t, got, tt.want)
				})
			}

			_, err := repo.List(ctx, argofloat.ListFilter{Month: 2})
			assert.ErrorIs(t, err, argofloat.ErrInvalidInput)
		})
	}
}

func TestRepository_GetAndDelete(t *testing.T) {
	for name, newRepo := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, clockwork.NewFakeClockAt(epoch))

			_, err := repo.Get(ctx, 42)
			assert.ErrorIs(t, err, argofloat.ErrFloatNotFound)

			res, err := repo.Upsert(ctx, sampleRecord("3901", intPtr(5), nil))
			require.NoError(t, err)

			removed, err := repo.Delete(ctx, res.ID)
			require.NoError(t, err)
			assert.Equal(t, "R3901.nc", removed.FileName)

			_, err = repo.Get(ctx, res.ID)
			assert.ErrorIs(t, err, argofloat.ErrFloatNotFound)

			_, err = repo.Delete(ctx, res.ID)
			assert.ErrorIs(t, err, argofloat.ErrFloatNotFound)

			// the key is free again
			again, err := repo.Upsert(ctx, sampleRecord("3901", intPtr(5), nil))
			require.NoError(t, err)
			assert.True(t, again.Inserted)
		})
	}
}

func TestRepository_GetMany(t *testing.T) {
	for name, newRepo := range repositories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := newRepo(t, clockwork.NewFakeClockAt(epoch))

			a, err := repo.Upsert(ctx, sampleRecord("A", intPtr(1), nil))
			require.NoError(t, err)
			b, err := repo.Upsert(ctx, sampleRecord("B", intPtr(1), nil))
			require.NoError(t, err)

			got, err := repo.GetMany(ctx, []int64{b.ID, a.ID})
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "B", got[0].PlatformNumber)
			assert.Equal(t, "A", got[1].PlatformNumber)

			_, err = repo.GetMany(ctx, []int64{a.ID, 999})
			assert.ErrorIs(t, err, argofloat.ErrFloatNotFound)
		})
	}
}

func TestInMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := argofloat.NewInMemoryRepository(clockwork.NewFakeClockAt(epoch))

	res, err := repo.Upsert(ctx, sampleRecord("C", intPtr(1), nil))
	require.NoError(t, err)

	got, err := repo.Get(ctx, res.ID)
	require.NoError(t, err)
	got.Profile["TEMP"].Values[0] = -1
	got.PlatformNumber = "mutated"

	again, err := repo.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "C", again.PlatformNumber)
	assert.Equal(t, 28.1, again.Profile["TEMP"].Values[0])
}
