package query

import (
	"fmt"
	"math"
	"time"

	"github.com/argodesk/argodesk/internal/argofloat"
)

// mapZoom is the fixed zoom level of every map payload.
const mapZoom = 4

// MapPayload positions markers for a set of records.
type MapPayload struct {
	Center  [2]float64 `json:"center"`
	Zoom    int        `json:"zoom"`
	Markers []Marker   `json:"markers"`
}

// Marker is one positioned record.
type Marker struct {
	Position [2]float64 `json:"position"`
	Popup    string     `json:"popup"`
	Data     MarkerData `json:"data"`
}

// MarkerData is the popup payload of a marker.
type MarkerData struct {
	FloatID        int64    `json:"floatId"`
	PlatformNumber string   `json:"platformNumber"`
	Date           string   `json:"date"`
	Parameters     []string `json:"parameters"`
}

// BuildMap returns markers for every positioned record, centred on their
// mean position. It returns nil when no record has a position.
func BuildMap(recs []*argofloat.Record) *MapPayload {
	var markers []Marker
	var sumLat, sumLon float64
	for _, rec := range recs {
		if rec.Position == nil {
			continue
		}
		date := argofloat.Unknown
		if rec.ObservationTime != nil {
			date = rec.ObservationTime.UTC().Format(time.RFC3339)
		}
		params := rec.Parameters
		if params == nil {
			params = []string{}
		}
		markers = append(markers, Marker{
			Position: [2]float64{rec.Position.Lat, rec.Position.Lon},
			Popup:    "Float " + rec.PlatformNumber,
			Data: MarkerData{
				FloatID:        rec.ID,
				PlatformNumber: rec.PlatformNumber,
				Date:           date,
				Parameters:     params,
			},
		})
		sumLat += rec.Position.Lat
		sumLon += rec.Position.Lon
	}
	if len(markers) == 0 {
		return nil
	}

	n := float64(len(markers))
	return &MapPayload{
		Center:  [2]float64{sumLat / n, sumLon / n},
		Zoom:    mapZoom,
		Markers: markers,
	}
}

// ChartSpec is a chart description in Chart.js form.
type ChartSpec struct {
	Type    string        `json:"type"`
	Data    ChartData     `json:"data"`
	Options *ChartOptions `json:"options,omitempty"`
}

// ChartData holds category labels and value series.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartDataset is one value series. Nil entries are records without data.
type ChartDataset struct {
	Label           string     `json:"label"`
	Data            []*float64 `json:"data"`
	BackgroundColor string     `json:"backgroundColor,omitempty"`
	BorderColor     string     `json:"borderColor,omitempty"`
	Fill            *bool      `json:"fill,omitempty"`
}

// ChartOptions holds display options.
type ChartOptions struct {
	Title ChartTitle `json:"title"`
}

// ChartTitle is a chart heading.
type ChartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

// Visualization keys.
const (
	VizTemperature = "temperature"
	VizSalinity    = "salinity"
	VizPressure    = "pressure"
)

// BuildCharts returns one chart per requested parameter, or nil when no
// parameter was requested or there are no records.
//
// Temperature and salinity plot the profile mean per float, or the value at
// the pressure level nearest depthMeters when a depth was asked for.
// Pressure plots the deepest level each float reached.
func BuildCharts(recs []*argofloat.Record, params []string, depthMeters *int) map[string]ChartSpec {
	if len(params) == 0 || len(recs) == 0 {
		return nil
	}

	labels := make([]string, len(recs))
	for i, rec := range recs {
		labels[i] = rec.PlatformNumber
	}

	charts := make(map[string]ChartSpec)
	for _, code := range params {
		switch code {
		case argofloat.ParamTemperature:
			charts[VizTemperature] = ChartSpec{
				Type: "scatter",
				Data: ChartData{
					Labels: labels,
					Datasets: []ChartDataset{{
						Label:           seriesLabel("Temperature", "°C", depthMeters),
						Data:            series(recs, code, depthMeters),
						BackgroundColor: "rgba(255, 99, 132, 0.6)",
					}},
				},
				Options: &ChartOptions{Title: ChartTitle{Display: true, Text: "Temperature Comparison"}},
			}
		case argofloat.ParamSalinity:
			charts[VizSalinity] = ChartSpec{
				Type: "bar",
				Data: ChartData{
					Labels: labels,
					Datasets: []ChartDataset{{
						Label:           seriesLabel("Salinity", "PSU", depthMeters),
						Data:            series(recs, code, depthMeters),
						BackgroundColor: "rgba(54, 162, 235, 0.6)",
					}},
				},
			}
		case argofloat.ParamPressure:
			fill := false
			floatLabels := make([]string, len(recs))
			for i, rec := range recs {
				floatLabels[i] = "Float " + rec.PlatformNumber
			}
			charts[VizPressure] = ChartSpec{
				Type: "line",
				Data: ChartData{
					Labels: floatLabels,
					Datasets: []ChartDataset{{
						Label:       "Max Pressure (dbar)",
						Data:        maxPressure(recs),
						BorderColor: "rgba(75, 192, 192, 1)",
						Fill:        &fill,
					}},
				},
			}
		}
	}
	if len(charts) == 0 {
		return nil
	}
	return charts
}

func seriesLabel(name, unit string, depthMeters *int) string {
	if depthMeters != nil {
		return fmt.Sprintf("%s at %d m (%s)", name, *depthMeters, unit)
	}
	return fmt.Sprintf("Mean %s (%s)", name, unit)
}

func series(recs []*argofloat.Record, code string, depthMeters *int) []*float64 {
	out := make([]*float64, len(recs))
	for i, rec := range recs {
		values := rec.Profile[code].Values
		if len(values) == 0 {
			continue
		}
		if depthMeters != nil {
			if v, ok := valueAtDepth(rec.Profile[argofloat.ParamPressure].Values, values, float64(*depthMeters)); ok {
				out[i] = &v
				continue
			}
		}
		m := mean(values)
		out[i] = &m
	}
	return out
}

// valueAtDepth picks the value at the pressure level nearest depth. Pressure in
// dbar is taken as depth in metres. Series of different lengths cannot be
// paired after fill removal, so they are rejected.
func valueAtDepth(pressure, values []float64, depth float64) (float64, bool) {
	if len(pressure) == 0 || len(pressure) != len(values) {
		return 0, false
	}
	best := 0
	for i := range pressure {
		if math.Abs(pressure[i]-depth) < math.Abs(pressure[best]-depth) {
			best = i
		}
	}
	return values[best], true
}

func maxPressure(recs []*argofloat.Record) []*float64 {
	out := make([]*float64, len(recs))
	for i, rec := range recs {
		values := rec.Profile[argofloat.ParamPressure].Values
		if len(values) == 0 {
			continue
		}
		m := values[0]
		for _, v := range values[1:] {
			m = math.Max(m, v)
		}
		out[i] = &m
	}
	return out
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
