package argofile

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/argodesk/argodesk/internal/argofloat"
)

const tracerName = "github.com/argodesk/argodesk/internal/argofile"

// Variable and attribute names in Argo profile files.
const (
	attrPlatformNumber    = "PLATFORM_NUMBER"
	attrReferenceDateTime = "REFERENCE_DATE_TIME"
	attrJulianDay         = "JULD"
	attrDateCreation      = "DATE_CREATION"
	attrDataMode          = "DATA_MODE"
	varLatitude           = "LATITUDE"
	varLongitude          = "LONGITUDE"
	varStationParameters  = "STATION_PARAMETERS"
	varCycleNumber        = "CYCLE_NUMBER"
)

// argoTimeLayout is the fixed-width YYYYMMDDhhmmss layout of Argo date strings.
const argoTimeLayout = "20060102150405"

// defaultReferenceDateTime is used when a file does not carry REFERENCE_DATE_TIME.
const defaultReferenceDateTime = "19500101000000"

// argoFill is the _FillValue Argo uses for JULD, positions and cycle numbers.
const argoFill = 99999.0

// ParseError reports a file that could not be read at all.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", filepath.Base(e.Path), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Normalizer converts profile files into float records.
type Normalizer struct {
	open   OpenFunc
	logger zerolog.Logger
}

// NewNormalizer creates a Normalizer. A nil open reads NetCDF files.
func NewNormalizer(open OpenFunc, logger zerolog.Logger) *Normalizer {
	if open == nil {
		open = OpenNetCDF
	}
	return &Normalizer{open: open, logger: logger}
}

// Normalize reads the file at path into a record.
// Only a file that cannot be opened is an error; missing or malformed
// metadata degrades to nil fields or the Unknown sentinel.
func (n *Normalizer) Normalize(ctx context.Context, path string) (*argofloat.Record, error) {
	_, span := otel.Tracer(tracerName).Start(ctx, "argofile.Normalize")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	ds, err := n.open(path)
	if err != nil {
		span.RecordError(err)
		return nil, &ParseError{Path: path, Err: err}
	}
	defer func() {
		if err := ds.Close(); err != nil {
			n.logger.Debug().Err(err).Str("file", path).Msg("close dataset")
		}
	}()

	logger := n.logger.With().Str("file", filepath.Base(path)).Logger()

	rec := &argofloat.Record{
		FileName:       filepath.Base(path),
		PlatformNumber: textOr(ds, attrPlatformNumber, argofloat.Unknown),
		DataMode:       dataMode(ds),
	}

	rec.ObservationTime = observationTime(ds, logger)
	rec.CreationTime = creationTime(ds, logger)
	rec.Position = position(ds)
	rec.Parameters = stationParameters(ds)
	rec.CycleNumber = cycleNumber(ds)

	if profile := ExtractProfile(ds, argofloat.ProfileParameters, logger); len(profile) > 0 {
		rec.Profile = profile
	}

	span.SetAttributes(
		attribute.String("argo.platform_number", rec.PlatformNumber),
		attribute.Int("argo.profile_parameters", len(rec.Profile)),
	)
	return rec, nil
}

// text reads a string from a global attribute, falling back to a variable of the same name.
func text(ds Dataset, name string) (string, bool) {
	if raw, ok := ds.Attribute(name); ok {
		if s, ok := firstText(raw); ok {
			return s, true
		}
	}
	if v, ok := ds.Variable(name); ok {
		return firstText(v.Values)
	}
	return "", false
}

func textOr(ds Dataset, name, fallback string) string {
	if s, ok := text(ds, name); ok {
		return s
	}
	return fallback
}

// dataMode returns the per-profile mode flag; a DATA_MODE variable holds one
// character per profile and only the first profile is kept.
func dataMode(ds Dataset) string {
	if raw, ok := ds.Attribute(attrDataMode); ok {
		if s, ok := firstText(raw); ok {
			return s
		}
	}
	if v, ok := ds.Variable(attrDataMode); ok {
		if s, ok := firstText(v.Values); ok {
			return s[:1]
		}
	}
	return argofloat.Unknown
}

// observationTime decodes JULD days after REFERENCE_DATE_TIME.
func observationTime(ds Dataset, logger zerolog.Logger) *time.Time {
	ref, err := time.Parse(argoTimeLayout, textOr(ds, attrReferenceDateTime, defaultReferenceDateTime))
	if err != nil {
		logger.Debug().Err(err).Msg("unparseable reference date")
		return nil
	}

	days, ok := julianDay(ds)
	if !ok {
		logger.Debug().Msg("unparseable julian day")
		return nil
	}

	t, ok := addDays(ref, days)
	if !ok {
		logger.Debug().Float64("juld", days).Msg("julian day out of range")
		return nil
	}
	return &t
}

// julianDay reads the day offset from a JULD attribute or the first JULD value.
// A file without JULD decodes to offset zero.
func julianDay(ds Dataset) (float64, bool) {
	if raw, ok := ds.Attribute(attrJulianDay); ok {
		days, ok := firstNumber(raw)
		return days, ok && finite(days)
	}

	v, ok := ds.Variable(attrJulianDay)
	if !ok {
		return 0, true
	}
	days, ok := firstNumber(v.Values)
	if !ok || !finite(days) || isFill(v, days) || days >= 999999 {
		return 0, false
	}
	return days, true
}

func addDays(ref time.Time, days float64) (time.Time, bool) {
	whole, frac := math.Modf(days)
	if math.Abs(whole) > 3e6 {
		return time.Time{}, false
	}
	t := ref.AddDate(0, 0, int(whole)).Add(time.Duration(frac * float64(24*time.Hour)))
	return t.Round(time.Microsecond).UTC(), true
}

func creationTime(ds Dataset, logger zerolog.Logger) *time.Time {
	s, ok := text(ds, attrDateCreation)
	if !ok {
		return nil
	}
	t, err := time.Parse(argoTimeLayout, s)
	if err != nil {
		logger.Debug().Err(err).Str("value", s).Msg("unparseable creation date")
		return nil
	}
	return &t
}

// position returns the first fix only when both coordinates are usable.
func position(ds Dataset) *argofloat.Point {
	lat, ok := firstValue(ds, varLatitude)
	if !ok {
		return nil
	}
	lon, ok := firstValue(ds, varLongitude)
	if !ok {
		return nil
	}
	return &argofloat.Point{Lat: lat, Lon: lon}
}

func stationParameters(ds Dataset) []string {
	v, ok := ds.Variable(varStationParameters)
	if !ok {
		return nil
	}
	var out []string
	for _, row := range toStrings(v.Values) {
		if name := cleanText(row); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func cycleNumber(ds Dataset) *int {
	f, ok := firstValue(ds, varCycleNumber)
	if !ok || f != math.Trunc(f) {
		return nil
	}
	n := int(f)
	return &n
}

// firstValue returns the first element of a numeric variable unless it is a fill value.
func firstValue(ds Dataset, name string) (float64, bool) {
	v, ok := ds.Variable(name)
	if !ok {
		return 0, false
	}
	f, ok := firstNumber(v.Values)
	if !ok || !finite(f) || isFill(v, f) {
		return 0, false
	}
	return f, true
}

func isFill(v *Variable, f float64) bool {
	if raw, ok := v.Attribute("_FillValue"); ok {
		if fill, ok := firstNumber(raw); ok && f == fill {
			return true
		}
	}
	return f == argoFill
}
