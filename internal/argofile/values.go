package argofile

import (
	"math"
	"reflect"
	"strconv"
	"strings"
)

// toFloats flattens a numeric scalar or (nested) slice into float64 values.
// ok is false when v holds anything that is not a number.
func toFloats(v interface{}) (out []float64, ok bool) {
	if v == nil {
		return nil, false
	}
	ok = appendFloats(reflect.ValueOf(v), &out)
	return out, ok
}

func appendFloats(rv reflect.Value, out *[]float64) bool {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		*out = append(*out, rv.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		*out = append(*out, float64(rv.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		*out = append(*out, float64(rv.Uint()))
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !appendFloats(rv.Index(i), out) {
				return false
			}
		}
	case reflect.Interface, reflect.Ptr:
		if rv.IsNil() {
			return false
		}
		return appendFloats(rv.Elem(), out)
	default:
		return false
	}
	return true
}

// toStrings flattens character data into one string per row.
// Byte slices are treated as a single row of characters.
func toStrings(v interface{}) []string {
	if v == nil {
		return nil
	}
	var out []string
	appendStrings(reflect.ValueOf(v), &out)
	return out
}

func appendStrings(rv reflect.Value, out *[]string) {
	switch rv.Kind() {
	case reflect.String:
		*out = append(*out, rv.String())
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			for i := range b {
				b[i] = byte(rv.Index(i).Uint())
			}
			*out = append(*out, string(b))
			return
		}
		for i := 0; i < rv.Len(); i++ {
			appendStrings(rv.Index(i), out)
		}
	case reflect.Interface, reflect.Ptr:
		if !rv.IsNil() {
			appendStrings(rv.Elem(), out)
		}
	}
}

// cleanText strips NUL padding and surrounding whitespace.
func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

// firstText returns the first non-empty cleaned row of character data.
func firstText(v interface{}) (string, bool) {
	for _, s := range toStrings(v) {
		if c := cleanText(s); c != "" {
			return c, true
		}
	}
	return "", false
}

// firstNumber returns the first element of numeric data, or parses text data as a number.
func firstNumber(v interface{}) (float64, bool) {
	if values, ok := toFloats(v); ok {
		if len(values) == 0 {
			return 0, false
		}
		return values[0], true
	}
	if s, ok := firstText(v); ok {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
