package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argodesk/argodesk/internal/database"
	"github.com/argodesk/argodesk/internal/history"
	"github.com/argodesk/argodesk/internal/observability"
)

var epoch = time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)

func repositories(t *testing.T) map[string]history.Repository {
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.MigrateSQLite(ctx, db, zerolog.Nop()))

	return map[string]history.Repository{
		"memory": history.NewInMemoryRepository(),
		"sqlite": history.NewSQLiteRepository(db),
	}
}

func TestRepository_AppendAndRecent(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, q := range []string{"hello", "help", "list floats"} {
				e := &history.Entry{Question: q, Response: "r", Intent: "x", AskedAt: epoch.Add(time.Duration(i) * time.Minute)}
				require.NoError(t, repo.Append(ctx, e))
				assert.NotZero(t, e.ID)
			}

			got, err := repo.Recent(ctx, 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "list floats", got[0].Question)
			assert.Equal(t, "help", got[1].Question)
			assert.True(t, epoch.Add(2*time.Minute).Equal(got[0].AskedAt))

			got, err = repo.Recent(ctx, 10)
			require.NoError(t, err)
			assert.Len(t, got, 3)
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{0, history.DefaultLimit, false},
		{5, 5, false},
		{500, history.MaxLimit, false},
		{-1, 0, true},
	}
	for _, tt := range tests {
		got, err := history.ClampLimit(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, history.ErrInvalidLimit)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestService_Record(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(epoch)
	svc := history.NewService(history.ServiceConfig{
		Repo:   history.NewInMemoryRepository(),
		Clock:  clock,
		Logger: zerolog.Nop(),
	})

	svc.Record(ctx, "hello", "Hello!", "greeting")

	got, err := svc.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "greeting", got[0].Intent)
	assert.True(t, epoch.Equal(got[0].AskedAt))
}

func TestService_RecentEmpty(t *testing.T) {
	svc := history.NewService(history.ServiceConfig{Repo: history.NewInMemoryRepository()})

	got, err := svc.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

type brokenRepo struct{}

func (brokenRepo) Append(context.Context, *history.Entry) error {
	return errors.New("disk full")
}

func (brokenRepo) Recent(context.Context, int) ([]*history.Entry, error) {
	return nil, errors.New("disk full")
}

func TestService_RecordFailureIsCounted(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	svc := history.NewService(history.ServiceConfig{Repo: brokenRepo{}, Metrics: metrics, Logger: zerolog.Nop()})

	svc.Record(context.Background(), "hello", "Hello!", "greeting")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HistoryWriteErrs))

	_, err := svc.Recent(context.Background(), 10)
	assert.Error(t, err)
}
