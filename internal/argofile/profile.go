package argofile

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/argofloat"
)

// netcdfDefaultFill is the library default fill for float and double
// variables that declare no _FillValue.
const netcdfDefaultFill = 9.969209968386869e36

// ExtractProfile reads the named parameter arrays from ds with fill and
// non-finite values removed.
// Codes missing from the file, or whose data is not numeric, are left out of the result.
func ExtractProfile(ds Dataset, codes []string, logger zerolog.Logger) map[string]argofloat.ParameterProfile {
	out := make(map[string]argofloat.ParameterProfile, len(codes))
	for _, code := range codes {
		v, ok := ds.Variable(code)
		if !ok {
			continue
		}

		raw, ok := toFloats(v.Values)
		if !ok {
			logger.Debug().Str("parameter", code).Msg("skipping non-numeric profile variable")
			continue
		}

		isFill := fillMatcher(v)
		values := make([]float64, 0, len(raw))
		for _, f := range raw {
			if !isFill(f) && finite(f) {
				values = append(values, f)
			}
		}

		units, _ := attributeText(v, "units")
		longName, _ := attributeText(v, "long_name")
		out[code] = argofloat.ParameterProfile{
			Values:   values,
			Units:    units,
			LongName: longName,
		}
	}
	return out
}

// fillMatcher returns a predicate for the variable's declared _FillValue,
// falling back to the library default fill when none is declared.
func fillMatcher(v *Variable) func(float64) bool {
	raw, declared := v.Attribute("_FillValue")
	if !declared {
		return func(f float64) bool {
			return float32(f) == float32(netcdfDefaultFill)
		}
	}

	fill, ok := firstNumber(raw)
	if !ok {
		return func(float64) bool { return false }
	}
	if math.IsNaN(fill) {
		return math.IsNaN
	}
	return func(f float64) bool { return f == fill }
}

func attributeText(v *Variable, name string) (string, bool) {
	raw, ok := v.Attribute(name)
	if !ok {
		return "", false
	}
	rows := toStrings(raw)
	if len(rows) == 0 {
		return "", false
	}
	return rows[0], true
}
