package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/argodesk/argodesk/internal/argofloat"
)

// Facets are the structured filters extracted from one question.
type Facets struct {
	Date DateFacet
	// Parameters holds distinct parameter codes in TEMP, PSAL, PRES order.
	Parameters  []string
	Region      string
	DepthMeters *int
}

// DateFacet is the date part of a question. Zero fields are absent.
type DateFacet struct {
	Year  int
	Month int
	Range *DateRange
}

// DateRange holds the two "<word> <year>" ends of a range verbatim.
type DateRange struct {
	Start string
	End   string
}

// HasParameter reports whether code was requested.
func (f Facets) HasParameter(code string) bool {
	for _, p := range f.Parameters {
		if p == code {
			return true
		}
	}
	return false
}

var (
	monthYearPattern = regexp.MustCompile(`\b(january|february|march|april|may|june|july|august|september|october|november|december)\s+(\d{4})\b`)
	yearPattern      = regexp.MustCompile(`\b(202[4-5])\b`)
	rangePattern     = regexp.MustCompile(`\b(from|between)\s+(\w+\s+\d{4})\s+(to|and)\s+(\w+\s+\d{4})\b`)
	depthPattern     = regexp.MustCompile(`\b(\d+)\s*(m|meters?|depth)\b`)
)

var monthNumbers = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11, "december": 12,
}

type synonym struct {
	keyword string
	value   string
}

var parameterSynonyms = []synonym{
	{"temperature", argofloat.ParamTemperature},
	{"temp", argofloat.ParamTemperature},
	{"thermal", argofloat.ParamTemperature},
	{"salinity", argofloat.ParamSalinity},
	{"salt", argofloat.ParamSalinity},
	{"saline", argofloat.ParamSalinity},
	{"pressure", argofloat.ParamPressure},
	{"depth", argofloat.ParamPressure},
	{"pres", argofloat.ParamPressure},
	{"deep", argofloat.ParamPressure},
}

// regionGazetteer is checked in order; the first matching keyword wins.
var regionGazetteer = []synonym{
	{"arabian sea", "Arabian Sea"},
	{"arabian", "Arabian Sea"},
	{"bay of bengal", "Bay of Bengal"},
	{"bengal", "Bay of Bengal"},
	{"indian ocean", "Indian Ocean"},
	{"indian", "Indian Ocean"},
}

// parameterOrder fixes the output order of the parameter set.
var parameterOrder = []string{argofloat.ParamTemperature, argofloat.ParamSalinity, argofloat.ParamPressure}

// ExtractFacets pulls date, parameter, region and depth facets out of question.
func ExtractFacets(question string) Facets {
	q := strings.ToLower(question)
	return Facets{
		Date:        extractDate(q),
		Parameters:  extractParameters(q),
		Region:      extractRegion(q),
		DepthMeters: extractDepth(q),
	}
}

// extractDate reads a "<month> <year>" pair, else a bare year; a
// "from|between X to|and Y" range is captured independently.
func extractDate(q string) DateFacet {
	var d DateFacet
	if m := monthYearPattern.FindStringSubmatch(q); m != nil {
		d.Month = monthNumbers[m[1]]
		d.Year, _ = strconv.Atoi(m[2])
	} else if m := yearPattern.FindStringSubmatch(q); m != nil {
		d.Year, _ = strconv.Atoi(m[1])
	}
	if m := rangePattern.FindStringSubmatch(q); m != nil {
		d.Range = &DateRange{Start: m[2], End: m[4]}
	}
	return d
}

func extractParameters(q string) []string {
	found := make(map[string]bool)
	for _, s := range parameterSynonyms {
		if strings.Contains(q, s.keyword) {
			found[s.value] = true
		}
	}
	var out []string
	for _, code := range parameterOrder {
		if found[code] {
			out = append(out, code)
		}
	}
	return out
}

func extractRegion(q string) string {
	for _, r := range regionGazetteer {
		if strings.Contains(q, r.keyword) {
			return r.value
		}
	}
	return ""
}

func extractDepth(q string) *int {
	m := depthPattern.FindStringSubmatch(q)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}
