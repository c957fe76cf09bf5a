package query

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/observability"
)

const tracerName = "github.com/argodesk/argodesk/internal/query"

// Canned responses.
const (
	NoDataResponse = "I couldn't find any ARGO float data matching your query."

	ComparisonResponse = "I can help you compare ARGO float data. Please specify what you'd like to compare " +
		"(e.g., 'Compare temperature between Arabian Sea and Bay of Bengal in 2024')."

	EmptyListingResponse = "I don't have any ARGO float data yet. Please upload some NetCDF files first."

	GreetingResponse = "Hello! I'm your ARGO data assistant. I can help you explore ocean data from ARGO floats. " +
		"You can ask me about temperature, salinity, pressure, or compare data between different regions or time periods."

	DefaultResponse = "I'm not sure how to answer that. I specialize in ARGO float data analysis. " +
		"You can ask me about ocean temperature, salinity, pressure, or request comparisons between different regions or time periods."
)

// HelpResponse summarises what can be asked.
var HelpResponse = strings.Join([]string{
	"I can help you with ARGO float data analysis. Here's what you can ask me:",
	"",
	`- **Data queries**: "Show temperature in Arabian Sea in 2024", "What was the salinity at 100m depth?"`,
	`- **Comparisons**: "Compare temperature between Arabian Sea and Bay of Bengal"`,
	`- **List data**: "What ARGO floats do you have data for?", "Show me all floats from 2024"`,
	`- **Specific floats**: "Show me data from float 5906221"`,
	"",
	"You can also upload new NetCDF files using the upload button.",
}, "\n")

// Store is the read side of the float repository used to answer questions.
type Store interface {
	List(ctx context.Context, filter argofloat.ListFilter) ([]*argofloat.Record, error)
}

// Response is the answer to one question. Text is always set; MapData and
// Visualizations are nil when not applicable.
type Response struct {
	Text           string
	MapData        *MapPayload
	Visualizations map[string]ChartSpec

	Intent Intent
	Facets Facets
}

// Processor answers free-text questions. It keeps no state between calls.
type Processor struct {
	store   Store
	metrics *observability.Metrics
	logger  zerolog.Logger
}

// NewProcessor creates a Processor reading from store.
func NewProcessor(store Store, metrics *observability.Metrics, logger zerolog.Logger) *Processor {
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Processor{store: store, metrics: metrics, logger: logger}
}

// Process classifies question, extracts its facets and builds the answer.
// Only repository failures are returned as errors.
func (p *Processor) Process(ctx context.Context, question string) (*Response, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "query.Process")
	defer span.End()

	intent := Classify(question)
	facets := ExtractFacets(question)
	span.SetAttributes(attribute.String("query.intent", intent.String()))
	p.metrics.Queries.WithLabelValues(intent.String()).Inc()

	var (
		resp *Response
		err  error
	)
	switch intent {
	case IntentGreeting:
		resp = &Response{Text: GreetingResponse}
	case IntentHelp:
		resp = &Response{Text: HelpResponse}
	case IntentData:
		resp, err = p.dataQuery(ctx, facets)
	case IntentComparison:
		resp = &Response{Text: ComparisonResponse}
	case IntentListing:
		resp, err = p.listing(ctx)
	default:
		resp = &Response{Text: DefaultResponse}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	resp.Intent = intent
	resp.Facets = facets
	return resp, nil
}

func (p *Processor) dataQuery(ctx context.Context, facets Facets) (*Response, error) {
	// Region is reported in the text only; records carry no region to filter on.
	if facets.Region != "" {
		p.logger.Debug().Str("region", facets.Region).Msg("region facet not applied to storage filter")
	}

	recs, err := p.store.List(ctx, argofloat.ListFilter{Year: facets.Date.Year})
	if err != nil {
		return nil, fmt.Errorf("list floats: %w", err)
	}
	p.metrics.QueryMatches.Observe(float64(len(recs)))

	if len(recs) == 0 {
		return &Response{Text: NoDataResponse}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I found %d ARGO floats", len(recs))
	if len(facets.Parameters) > 0 {
		fmt.Fprintf(&b, " with %s data", strings.Join(facets.Parameters, ", "))
	}
	if facets.Date.Year != 0 {
		fmt.Fprintf(&b, " from %d", facets.Date.Year)
	}
	if facets.Region != "" {
		fmt.Fprintf(&b, " in the %s", facets.Region)
	}
	if len(facets.Parameters) > 0 {
		b.WriteString(". Here are the details:")
	} else {
		b.WriteString(". What specific data would you like to see?")
	}

	return &Response{
		Text:           b.String(),
		MapData:        BuildMap(recs),
		Visualizations: BuildCharts(recs, facets.Parameters, facets.DepthMeters),
	}, nil
}

func (p *Processor) listing(ctx context.Context) (*Response, error) {
	recs, err := p.store.List(ctx, argofloat.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("list floats: %w", err)
	}
	if len(recs) == 0 {
		return &Response{Text: EmptyListingResponse}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "I have data from %d ARGO floats. ", len(recs))

	if years := distinctYears(recs); len(years) > 0 {
		parts := make([]string, len(years))
		for i, y := range years {
			parts[i] = strconv.Itoa(y)
		}
		fmt.Fprintf(&b, "Data is available for the years: %s. ", strings.Join(parts, ", "))
	}
	b.WriteString("What specific information would you like to know?")

	return &Response{Text: b.String()}, nil
}

// distinctYears returns the sorted observation years, skipping records without a time.
func distinctYears(recs []*argofloat.Record) []int {
	seen := make(map[int]bool)
	for _, rec := range recs {
		if rec.ObservationTime != nil {
			seen[rec.ObservationTime.UTC().Year()] = true
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
