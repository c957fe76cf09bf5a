package handler

import (
	"github.com/argodesk/argodesk/internal/api/models"
	"github.com/argodesk/argodesk/internal/argofloat"
)

func toFloat(rec *argofloat.Record) models.Float {
	f := models.Float{
		ID:              rec.ID,
		PlatformNumber:  rec.PlatformNumber,
		CycleNumber:     rec.CycleNumber,
		FileName:        rec.FileName,
		ObservationTime: models.TimestampPtr(rec.ObservationTime),
		CreationTime:    models.TimestampPtr(rec.CreationTime),
		Parameters:      rec.Parameters,
		DataMode:        rec.DataMode,
		CreatedAt:       models.Timestamp(rec.CreatedAt),
		UpdatedAt:       models.Timestamp(rec.UpdatedAt),
	}
	if f.Parameters == nil {
		f.Parameters = []string{}
	}
	pos := toPosition(rec.Position)
	f.Latitude, f.Longitude = pos.Latitude, pos.Longitude
	return f
}

func toPosition(p *argofloat.Point) models.Position {
	if p == nil {
		return models.Position{}
	}
	lat, lon := p.Lat, p.Lon
	return models.Position{Latitude: &lat, Longitude: &lon}
}

func toSeries(p argofloat.ParameterProfile) models.ProfileSeries {
	values := p.Values
	if values == nil {
		values = []float64{}
	}
	return models.ProfileSeries{Values: values, Units: p.Units, LongName: p.LongName}
}

func toProfileData(profile map[string]argofloat.ParameterProfile) map[string]models.ProfileSeries {
	out := make(map[string]models.ProfileSeries, len(profile))
	for code, p := range profile {
		out[code] = toSeries(p)
	}
	return out
}
