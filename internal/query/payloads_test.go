package query_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/query"
)

func TestBuildMap(t *testing.T) {
	obs := time.Date(2024, 5, 1, 6, 30, 0, 0, time.UTC)
	recs := []*argofloat.Record{
		{ID: 1, PlatformNumber: "A", Position: &argofloat.Point{Lat: 10, Lon: 70}, ObservationTime: &obs, Parameters: []string{"TEMP"}},
		{ID: 2, PlatformNumber: "B"},
		{ID: 3, PlatformNumber: "C", Position: &argofloat.Point{Lat: 20, Lon: 80}},
	}

	m := query.BuildMap(recs)
	require.NotNil(t, m)
	assert.Equal(t, [2]float64{15, 75}, m.Center)
	assert.Equal(t, 4, m.Zoom)
	require.Len(t, m.Markers, 2)

	first := m.Markers[0]
	assert.Equal(t, [2]float64{10, 70}, first.Position)
	assert.Equal(t, "Float A", first.Popup)
	assert.Equal(t, int64(1), first.Data.FloatID)
	assert.Equal(t, "2024-05-01T06:30:00Z", first.Data.Date)
	assert.Equal(t, []string{"TEMP"}, first.Data.Parameters)

	second := m.Markers[1]
	assert.Equal(t, argofloat.Unknown, second.Data.Date)
	assert.NotNil(t, second.Data.Parameters)
	assert.Empty(t, second.Data.Parameters)
}

func TestBuildMap_NoPositions(t *testing.T) {
	assert.Nil(t, query.BuildMap(nil))
	assert.Nil(t, query.BuildMap([]*argofloat.Record{{PlatformNumber: "A"}}))
}

func TestBuildCharts(t *testing.T) {
	recs := []*argofloat.Record{
		{
			PlatformNumber: "A",
			Profile: map[string]argofloat.ParameterProfile{
				"TEMP": {Values: []float64{20, 10}},
				"PSAL": {Values: []float64{35, 36}},
				"PRES": {Values: []float64{5, 1500}},
			},
		},
		{PlatformNumber: "B"},
	}

	t.Run("no parameters", func(t *testing.T) {
		assert.Nil(t, query.BuildCharts(recs, nil, nil))
	})

	t.Run("no records", func(t *testing.T) {
		assert.Nil(t, query.BuildCharts(nil, []string{"TEMP"}, nil))
	})

	t.Run("all kinds", func(t *testing.T) {
		charts := query.BuildCharts(recs, []string{"TEMP", "PSAL", "PRES"}, nil)
		require.Len(t, charts, 3)

		temp := charts[query.VizTemperature]
		assert.Equal(t, "scatter", temp.Type)
		require.NotNil(t, temp.Options)
		assert.Equal(t, "Temperature Comparison", temp.Options.Title.Text)
		assert.Equal(t, "Mean Temperature (°C)", temp.Data.Datasets[0].Label)
		assert.Equal(t, 15.0, *temp.Data.Datasets[0].Data[0])
		assert.Nil(t, temp.Data.Datasets[0].Data[1])

		sal := charts[query.VizSalinity]
		assert.Equal(t, "bar", sal.Type)
		assert.Equal(t, []string{"A", "B"}, sal.Data.Labels)
		assert.Equal(t, 35.5, *sal.Data.Datasets[0].Data[0])

		pres := charts[query.VizPressure]
		assert.Equal(t, "line", pres.Type)
		assert.Equal(t, []string{"Float A", "Float B"}, pres.Data.Labels)
		require.NotNil(t, pres.Data.Datasets[0].Fill)
		assert.False(t, *pres.Data.Datasets[0].Fill)
		assert.Equal(t, 1500.0, *pres.Data.Datasets[0].Data[0])
		assert.Nil(t, pres.Data.Datasets[0].Data[1])
	})

	t.Run("depth falls back to mean on mismatched series", func(t *testing.T) {
		depth := 1000
		mismatched := []*argofloat.Record{{
			PlatformNumber: "A",
			Profile: map[string]argofloat.ParameterProfile{
				"TEMP": {Values: []float64{20, 10, 0}},
				"PRES": {Values: []float64{5, 1500}},
			},
		}}
		charts := query.BuildCharts(mismatched, []string{"TEMP"}, &depth)
		ds := charts[query.VizTemperature].Data.Datasets[0]
		assert.Equal(t, "Temperature at 1000 m (°C)", ds.Label)
		assert.Equal(t, 10.0, *ds.Data[0])

		charts = query.BuildCharts(recs, []string{"TEMP"}, &depth)
		assert.Equal(t, 10.0, *charts[query.VizTemperature].Data.Datasets[0].Data[0])
	})
}
