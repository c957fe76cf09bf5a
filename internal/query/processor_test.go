package query_test

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

	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/observability"
	"github.com/argodesk/argodesk/internal/query"
)

func intPtr(v int) *int { return &v }

func at(year int, month time.Month) *time.Time {
	t := time.Date(year, month, 15, 0, 0, 0, 0, time.UTC)
	return &t
}

func seed(t *testing.T, recs ...*argofloat.Record) *argofloat.InMemoryRepository {
	t.Helper()
	repo := argofloat.NewInMemoryRepository(clockwork.NewFakeClock())
	for _, rec := range recs {
		_, err := repo.Upsert(context.Background(), rec)
		require.NoError(t, err)
	}
	return repo
}

func newProcessor(store query.Store) (*query.Processor, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return query.NewProcessor(store, m, zerolog.Nop()), m
}

func TestProcessor_CannedResponses(t *testing.T) {
	p, metrics := newProcessor(failingStore{})
	ctx := context.Background()

	tests := []struct {
		question string
		want     string
		intent   query.Intent
	}{
		{"hi, show me temperature", query.GreetingResponse, query.IntentGreeting},
		{"help", query.HelpResponse, query.IntentHelp},
		{"compare temperature between Arabian Sea and Bay of Bengal", query.ComparisonResponse, query.IntentComparison},
		{"blah", query.DefaultResponse, query.IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			resp, err := p.Process(ctx, tt.question)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Text)
			assert.Equal(t, tt.intent, resp.Intent)
			assert.Nil(t, resp.MapData)
			assert.Nil(t, resp.Visualizations)
		})
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Queries.WithLabelValues("greeting")))
}

func TestProcessor_DataQuery(t *testing.T) {
	repo := seed(t,
		&argofloat.Record{
			PlatformNumber:  "2902746",
			CycleNumber:     intPtr(1),
			Position:        &argofloat.Point{Lat: 10, Lon: 70},
			ObservationTime: at(2024, time.May),
			Parameters:      []string{"PRES", "TEMP"},
			Profile: map[string]argofloat.ParameterProfile{
				"TEMP": {Values: []float64{28, 26, 24}},
				"PRES": {Values: []float64{5, 100, 200}},
			},
		},
		&argofloat.Record{
			PlatformNumber:  "5906221",
			CycleNumber:     intPtr(1),
			Position:        &argofloat.Point{Lat: 20, Lon: 80},
			ObservationTime: at(2024, time.August),
		},
		&argofloat.Record{
			PlatformNumber:  "1901",
			CycleNumber:     intPtr(1),
			Position:        &argofloat.Point{Lat: -30, Lon: 20},
			ObservationTime: at(2025, time.January),
		},
	)
	p, _ := newProcessor(repo)

	resp, err := p.Process(context.Background(), "Show temperature in Arabian Sea in 2024")
	require.NoError(t, err)

	assert.Equal(t, query.IntentData, resp.Intent)
	assert.Equal(t, "I found 2 ARGO floats with TEMP data from 2024 in the Arabian Sea. Here are the details:", resp.Text)

	require.NotNil(t, resp.MapData)
	assert.Equal(t, [2]float64{15, 75}, resp.MapData.Center)
	assert.Equal(t, 4, resp.MapData.Zoom)
	assert.Len(t, resp.MapData.Markers, 2)

	require.Contains(t, resp.Visualizations, "temperature")
	assert.Len(t, resp.Visualizations, 1)
	chart := resp.Visualizations["temperature"]
	assert.Equal(t, "scatter", chart.Type)
	assert.Equal(t, []string{"2902746", "5906221"}, chart.Data.Labels)
	require.Len(t, chart.Data.Datasets[0].Data, 2)
	assert.Equal(t, 26.0, *chart.Data.Datasets[0].Data[0])
	assert.Nil(t, chart.Data.Datasets[0].Data[1])
}

func TestProcessor_DataQueryWithoutParameters(t *testing.T) {
	repo := seed(t,
		&argofloat.Record{PlatformNumber: "A", CycleNumber: intPtr(1), ObservationTime: at(2024, time.May)},
		&argofloat.Record{PlatformNumber: "B", CycleNumber: intPtr(1)},
	)
	p, _ := newProcessor(repo)

	resp, err := p.Process(context.Background(), "show me everything")
	require.NoError(t, err)
	assert.Equal(t, "I found 2 ARGO floats. What specific data would you like to see?", resp.Text)
	assert.Nil(t, resp.MapData, "no positioned records")
	assert.Nil(t, resp.Visualizations)
}

func TestProcessor_DataQueryDepth(t *testing.T) {
	repo := seed(t, &argofloat.Record{
		PlatformNumber: "A",
		CycleNumber:    intPtr(1),
		Profile: map[string]argofloat.ParameterProfile{
			"PSAL": {Values: []float64{35.1, 35.4, 35.9}},
			"PRES": {Values: []float64{10, 95, 400}},
		},
	})
	p, _ := newProcessor(repo)

	resp, err := p.Process(context.Background(), "What is the salinity at 100m depth?")
	require.NoError(t, err)

	require.Contains(t, resp.Visualizations, "salinity")
	require.Contains(t, resp.Visualizations, "pressure")
	sal := resp.Visualizations["salinity"].Data.Datasets[0]
	assert.Equal(t, "Salinity at 100 m (PSU)", sal.Label)
	assert.Equal(t, 35.4, *sal.Data[0])

	pres := resp.Visualizations["pressure"]
	assert.Equal(t, "line", pres.Type)
	assert.Equal(t, []string{"Float A"}, pres.Data.Labels)
	assert.Equal(t, 400.0, *pres.Data.Datasets[0].Data[0])
}

func TestProcessor_EmptyResult(t *testing.T) {
	repo := seed(t, &argofloat.Record{PlatformNumber: "A", CycleNumber: intPtr(1), ObservationTime: at(2024, time.May)})
	p, _ := newProcessor(repo)

	resp, err := p.Process(context.Background(), "show temperature in 2025")
	require.NoError(t, err)
	assert.Equal(t, query.NoDataResponse, resp.Text)
	assert.Nil(t, resp.MapData)
	assert.Nil(t, resp.Visualizations)
}

func TestProcessor_Listing(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		p, _ := newProcessor(seed(t))
		resp, err := p.Process(context.Background(), "list floats")
		require.NoError(t, err)
		assert.Equal(t, query.EmptyListingResponse, resp.Text)
	})

	t.Run("mixed null observation time", func(t *testing.T) {
		repo := seed(t,
			&argofloat.Record{PlatformNumber: "A", CycleNumber: intPtr(1), ObservationTime: at(2025, time.March)},
			&argofloat.Record{PlatformNumber: "B", CycleNumber: intPtr(1), ObservationTime: at(2024, time.March)},
			&argofloat.Record{PlatformNumber: "C", CycleNumber: intPtr(1)},
		)
		p, _ := newProcessor(repo)

		resp, err := p.Process(context.Background(), "list all floats")
		require.NoError(t, err)
		assert.Equal(t,
			"I have data from 3 ARGO floats. Data is available for the years: 2024, 2025. What specific information would you like to know?",
			resp.Text)
	})

	t.Run("no times", func(t *testing.T) {
		repo := seed(t, &argofloat.Record{PlatformNumber: "C", CycleNumber: intPtr(1)})
		p, _ := newProcessor(repo)

		resp, err := p.Process(context.Background(), "available")
		require.NoError(t, err)
		assert.Equal(t, "I have data from 1 ARGO floats. What specific information would you like to know?", resp.Text)
	})
}

type failingStore struct{}

func (failingStore) List(context.Context, argofloat.ListFilter) ([]*argofloat.Record, error) {
	return nil, errors.New("database down")
}

func TestProcessor_StoreError(t *testing.T) {
	p, _ := newProcessor(failingStore{})

	_, err := p.Process(context.Background(), "show temperature")
	assert.Error(t, err)

	_, err = p.Process(context.Background(), "list")
	assert.Error(t, err)
}
