// Package argofloat stores and serves normalized Argo float cycle records.
package argofloat

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Repository and service errors.
var (
	ErrFloatNotFound = errors.New("float not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNoProfileData = errors.New("no profile data")
)

// Unknown is stored when an optional text attribute is missing from a file.
const Unknown = "Unknown"

// Physical parameter codes extracted into profiles.
const (
	ParamPressure    = "PRES"
	ParamTemperature = "TEMP"
	ParamSalinity    = "PSAL"
)

// ProfileParameters lists the parameter codes read into a record profile.
var ProfileParameters = []string{ParamPressure, ParamTemperature, ParamSalinity}

// Record is one measurement cycle of one float.
// (PlatformNumber, CycleNumber) is the natural key; a nil CycleNumber is a key value of its own.
type Record struct {
	ID              int64
	PlatformNumber  string
	CycleNumber     *int
	FileName        string
	Position        *Point
	ObservationTime *time.Time
	CreationTime    *time.Time
	Parameters      []string
	Profile         map[string]ParameterProfile
	DataMode        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Point is a surface position fix.
type Point struct {
	Lat float64
	Lon float64
}

// ParameterProfile is a depth-resolved series with fill values removed.
type ParameterProfile struct {
	Values   []float64
	Units    string
	LongName string
}

// MergeFrom overwrites every normalized field of r with the values from src.
// Identity and bookkeeping fields (ID, CreatedAt, UpdatedAt) are left alone.
func (r *Record) MergeFrom(src *Record) {
	r.PlatformNumber = src.PlatformNumber
	r.CycleNumber = copyInt(src.CycleNumber)
	r.FileName = src.FileName
	r.Position = copyPoint(src.Position)
	r.ObservationTime = copyTime(src.ObservationTime)
	r.CreationTime = copyTime(src.CreationTime)
	r.Parameters = copyStrings(src.Parameters)
	r.Profile = copyProfile(src.Profile)
	r.DataMode = src.DataMode
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	cpy := &Record{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	cpy.MergeFrom(r)
	return cpy
}

// HasProfile reports whether the record carries any profile series.
func (r *Record) HasProfile() bool {
	return len(r.Profile) > 0
}

// Key returns the natural key used to match records on upsert.
func (r *Record) Key() NaturalKey {
	k := NaturalKey{Platform: r.PlatformNumber}
	if r.CycleNumber != nil {
		k.Cycle = *r.CycleNumber
		k.HasCycle = true
	}
	return k
}

// NaturalKey identifies a record by platform and cycle.
type NaturalKey struct {
	Platform string
	Cycle    int
	HasCycle bool
}

// UpsertResult reports the outcome of Repository.Upsert.
type UpsertResult struct {
	ID       int64
	Inserted bool
}

// ListFilter narrows List to records observed within a calendar window.
// The zero value matches every record.
type ListFilter struct {
	Year  int
	Month int
	// Day selects a single UTC day and takes precedence over Year/Month.
	Day time.Time
}

// Validate checks the filter for impossible combinations.
func (f ListFilter) Validate() error {
	if f.Month != 0 && f.Year == 0 {
		return fmt.Errorf("%w: month requires year", ErrInvalidInput)
	}
	if f.Month < 0 || f.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidInput, f.Month)
	}
	if f.Year < 0 || f.Year > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidInput, f.Year)
	}
	return nil
}

// Window returns the half-open [from, to) observation time range selected by the filter.
// ok is false when the filter selects everything.
func (f ListFilter) Window() (from, to time.Time, ok bool) {
	switch {
	case !f.Day.IsZero():
		d := f.Day.UTC()
		from = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 0, 1), true
	case f.Year != 0 && f.Month != 0:
		from = time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(0, 1, 0), true
	case f.Year != 0:
		from = time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return from, from.AddDate(1, 0, 0), true
	}
	return time.Time{}, time.Time{}, false
}

// Matches reports whether an observation time falls in the filter window.
// Records without an observation time only match an empty filter.
func (f ListFilter) Matches(t *time.Time) bool {
	from, to, ok := f.Window()
	if !ok {
		return true
	}
	if t == nil {
		return false
	}
	return !t.Before(from) && t.Before(to)
}

// nextUpdatedAt keeps updated_at strictly increasing across overwrites
// even when the clock has not advanced past the previous value.
func nextUpdatedAt(prev, now time.Time) time.Time {
	if now.After(prev) {
		return now
	}
	return prev.Add(time.Microsecond)
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func copyPoint(p *Point) *Point {
	if p == nil {
		return nil
	}
	cpy := *p
	return &cpy
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	cpy := *t
	return &cpy
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func copyProfile(p map[string]ParameterProfile) map[string]ParameterProfile {
	if p == nil {
		return nil
	}
	out := make(map[string]ParameterProfile, len(p))
	for code, series := range p {
		out[code] = ParameterProfile{
			Values:   finiteValues(series.Values),
			Units:    series.Units,
			LongName: series.LongName,
		}
	}
	return out
}

// finiteValues copies values without NaN and Inf entries, which have no JSON form.
func finiteValues(values []float64) []float64 {
	var out []float64
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}
