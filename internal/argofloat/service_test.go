package argofloat_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/datafile"
	"github.com/argodesk/argodesk/internal/observability"
)

// stubNormalizer returns a canned record per file base name.
type stubNormalizer struct {
	records map[string]*argofloat.Record
}

func (n *stubNormalizer) Normalize(_ context.Context, path string) (*argofloat.Record, error) {
	base := filepath.Base(path)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	rec, ok := n.records[base]
	if !ok {
		return nil, errors.New("not a profile file")
	}
	cpy := rec.Clone()
	cpy.FileName = base
	return cpy, nil
}

type serviceFixture struct {
	svc     *argofloat.Service
	repo    *argofloat.InMemoryRepository
	store   *datafile.Store
	clock   *clockwork.FakeClock
	metrics *observability.Metrics
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(epoch)
	repo := argofloat.NewInMemoryRepository(clock)
	store, err := datafile.NewStore(t.TempDir(), 0)
	require.NoError(t, err)
	metrics := observability.NewMetricsForTesting()

	normalizer := &stubNormalizer{records: map[string]*argofloat.Record{
		"R2902746_012.nc": sampleRecord("2902746", intPtr(12), timePtr(epoch)),
		"R2902746_013.nc": sampleRecord("2902746", intPtr(13), timePtr(epoch.Add(240*time.Hour))),
		"R5906_001.nc": {
			PlatformNumber: "5906",
			CycleNumber:    intPtr(1),
			DataMode:       argofloat.Unknown,
		},
	}}

	svc := argofloat.NewService(argofloat.ServiceConfig{
		Repo:       repo,
		Normalizer: normalizer,
		Files:      store,
		Metrics:    metrics,
		Logger:     zerolog.Nop(),
	})
	return &serviceFixture{svc: svc, repo: repo, store: store, clock: clock, metrics: metrics}
}

func TestService_Upload(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	res, err := f.svc.Upload(ctx, "R2902746_012.nc", strings.NewReader("netcdf"))
	require.NoError(t, err)
	assert.True(t, res.Inserted)
	assert.Equal(t, "Float 2902746 added successfully", res.Message())
	assert.FileExists(t, f.store.Path("R2902746_012.nc"))

	f.clock.Advance(time.Minute)
	res, err = f.svc.Upload(ctx, "R2902746_012.nc", strings.NewReader("netcdf"))
	require.NoError(t, err)
	assert.False(t, res.Inserted)
	assert.Equal(t, "Float 2902746 updated successfully", res.Message())

	all, err := f.svc.List(ctx, argofloat.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FilesIngested.WithLabelValues("inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FilesIngested.WithLabelValues("updated")))
}

func TestService_UploadParseFailureRemovesFile(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Upload(context.Background(), "garbage.nc", strings.NewReader("junk"))
	require.Error(t, err)
	assert.NoFileExists(t, f.store.Path("garbage.nc"))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.FilesIngested.WithLabelValues("failed")))

	all, err := f.svc.List(context.Background(), argofloat.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes record and file", func(t *testing.T) {
		f := newServiceFixture(t)
		res, err := f.svc.Upload(ctx, "R2902746_012.nc", strings.NewReader("x"))
		require.NoError(t, err)

		deleted, err := f.svc.Delete(ctx, res.Record.ID)
		require.NoError(t, err)
		assert.Equal(t, res.Record.PlatformNumber, deleted.PlatformNumber)
		assert.NoFileExists(t, f.store.Path("R2902746_012.nc"))

		_, err = f.svc.Get(ctx, res.Record.ID)
		assert.ErrorIs(t, err, argofloat.ErrFloatNotFound)
	})

	t.Run("missing backing file does not block delete", func(t *testing.T) {
		f := newServiceFixture(t)
		res, err := f.svc.Upload(ctx, "R2902746_012.nc", strings.NewReader("x"))
		require.NoError(t, err)
		require.NoError(t, os.Remove(f.store.Path("R2902746_012.nc")))

		_, err = f.svc.Delete(ctx, res.Record.ID)
		require.NoError(t, err)
		_, err = f.svc.Get(ctx, res.Record.ID)
		assert.ErrorIs(t, err, argofloat.ErrFloatNotFound)
	})

	t.Run("unknown id", func(t *testing.T) {
		f := newServiceFixture(t)
		_, err := f.svc.Delete(ctx, 99)
		assert.ErrorIs(t, err, argofloat.ErrFloatNotFound)
	})
}

func TestService_Compare(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	a, err := f.svc.Upload(ctx, "R2902746_012.nc", strings.NewReader("x"))
	require.NoError(t, err)
	b, err := f.svc.Upload(ctx, "R5906_001.nc", strings.NewReader("x"))
	require.NoError(t, err)

	recs, err := f.svc.Compare(ctx, "2, 1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, b.Record.ID, recs[0].ID)
	assert.Equal(t, a.Record.ID, recs[1].ID)

	_, err = f.svc.Compare(ctx, "1,x")
	assert.ErrorIs(t, err, argofloat.ErrInvalidInput)

	_, err = f.svc.Compare(ctx, "1,42")
	assert.ErrorIs(t, err, argofloat.ErrFloatNotFound)
}

func TestService_Profile(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	withProfile, err := f.svc.Upload(ctx, "R2902746_012.nc", strings.NewReader("x"))
	require.NoError(t, err)
	without, err := f.svc.Upload(ctx, "R5906_001.nc", strings.NewReader("x"))
	require.NoError(t, err)

	rec, err := f.svc.Profile(ctx, withProfile.Record.ID)
	require.NoError(t, err)
	assert.Contains(t, rec.Profile, "TEMP")

	_, err = f.svc.Profile(ctx, without.Record.ID)
	assert.ErrorIs(t, err, argofloat.ErrNoProfileData)

	_, code, series, err := f.svc.ProfileParameter(ctx, withProfile.Record.ID, "temperature")
	require.NoError(t, err)
	assert.Equal(t, "TEMP", code)
	assert.Equal(t, "degree_Celsius", series.Units)

	_, _, _, err = f.svc.ProfileParameter(ctx, withProfile.Record.ID, "salinity")
	assert.ErrorIs(t, err, argofloat.ErrNoProfileData)

	_, _, _, err = f.svc.ProfileParameter(ctx, withProfile.Record.ID, "oxygen")
	assert.ErrorIs(t, err, argofloat.ErrInvalidInput)
}

func TestService_Trajectory(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.repo.Upsert(ctx, &argofloat.Record{
		PlatformNumber:  "A",
		CycleNumber:     intPtr(1),
		Position:        &argofloat.Point{Lat: 10, Lon: 70},
		ObservationTime: timePtr(epoch.Add(2 * time.Hour)),
	})
	require.NoError(t, err)
	_, err = f.repo.Upsert(ctx, &argofloat.Record{
		PlatformNumber:  "B",
		CycleNumber:     intPtr(1),
		Position:        &argofloat.Point{Lat: 20, Lon: 90},
		ObservationTime: timePtr(epoch),
	})
	require.NoError(t, err)
	_, err = f.repo.Upsert(ctx, &argofloat.Record{
		PlatformNumber:  "C",
		CycleNumber:     intPtr(1),
		ObservationTime: timePtr(epoch),
	})
	require.NoError(t, err)

	traj, err := f.svc.Trajectory(ctx, epoch)
	require.NoError(t, err)
	require.Len(t, traj.Points, 2)
	assert.Equal(t, "B", traj.Points[0].PlatformNumber)
	assert.Equal(t, "A", traj.Points[1].PlatformNumber)
	require.NotNil(t, traj.Center)
	assert.Equal(t, argofloat.Point{Lat: 15, Lon: 80}, *traj.Center)

	empty, err := f.svc.Trajectory(ctx, epoch.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, empty.Points)
	assert.Nil(t, empty.Center)
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		input   string
		want    []int64
		wantErr bool
	}{
		{"1", []int64{1}, false},
		{"1,2,3", []int64{1, 2, 3}, false},
		{" 4 , 5 ", []int64{4, 5}, false},
		{"", nil, true},
		{"1,,2", nil, true},
		{"a,b", nil, true},
		{"-1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := argofloat.ParseIDList(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, argofloat.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
