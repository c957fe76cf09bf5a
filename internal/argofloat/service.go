package argofloat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/argodesk/argodesk/internal/observability"
)

const tracerName = "github.com/argodesk/argodesk/internal/argofloat"

// Normalizer turns a profile file on disk into a record.
type Normalizer interface {
	Normalize(ctx context.Context, path string) (*Record, error)
}

// FileStore holds the backing files of stored records.
type FileStore interface {
	// Save writes body under a sanitised version of name and returns the stored name.
	Save(name string, body io.Reader) (string, error)
	// Remove deletes a stored file.
	Remove(name string) error
	// Path returns the on-disk path of a stored file.
	Path(name string) string
}

// ServiceConfig holds the dependencies of a Service.
type ServiceConfig struct {
	Repo       Repository
	Normalizer Normalizer
	Files      FileStore
	Metrics    *observability.Metrics
	Logger     zerolog.Logger
}

// Service provides float ingestion and lookup operations.
type Service struct {
	repo       Repository
	normalizer Normalizer
	files      FileStore
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewService creates a new float service.
func NewService(cfg ServiceConfig) *Service {
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Service{
		repo:       cfg.Repo,
		normalizer: cfg.Normalizer,
		files:      cfg.Files,
		metrics:    metrics,
		logger:     cfg.Logger,
	}
}

// IngestResult describes one stored file.
type IngestResult struct {
	Record   *Record
	Inserted bool
}

// Message returns the human-readable outcome of the ingestion.
func (r *IngestResult) Message() string {
	if r.Inserted {
		return fmt.Sprintf("Float %s added successfully", r.Record.PlatformNumber)
	}
	return fmt.Sprintf("Float %s updated successfully", r.Record.PlatformNumber)
}

// Ingest normalizes the file at path and upserts the resulting record.
func (s *Service) Ingest(ctx context.Context, path string) (*IngestResult, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "argofloat.Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("argo.file", filepath.Base(path)))

	start := time.Now()
	defer func() { s.metrics.IngestDuration.Observe(time.Since(start).Seconds()) }()

	rec, err := s.normalizer.Normalize(ctx, path)
	if err != nil {
		s.metrics.FilesIngested.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "normalize failed")
		return nil, err
	}

	res, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		s.metrics.FilesIngested.WithLabelValues("failed").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert failed")
		return nil, fmt.Errorf("store float: %w", err)
	}

	outcome := "updated"
	if res.Inserted {
		outcome = "inserted"
	}
	s.metrics.FilesIngested.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.String("argo.platform_number", rec.PlatformNumber),
		attribute.Int64("argo.float_id", res.ID),
		attribute.Bool("argo.inserted", res.Inserted),
	)

	s.logger.Info().
		Int64("float_id", res.ID).
		Str("platform_number", rec.PlatformNumber).
		Str("file", rec.FileName).
		Str("outcome", outcome).
		Msg("float ingested")

	return &IngestResult{Record: rec, Inserted: res.Inserted}, nil
}

// Upload stores body as a backing file and ingests it.
// The file is removed again when it cannot be parsed or stored.
func (s *Service) Upload(ctx context.Context, name string, body io.Reader) (*IngestResult, error) {
	stored, err := s.files.Save(name, body)
	if err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	res, err := s.Ingest(ctx, s.files.Path(stored))
	if err != nil {
		s.removeFile(stored)
		return nil, err
	}
	return res, nil
}

// List returns the records matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Record, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, filter)
}

// Get retrieves a record by ID.
func (s *Service) Get(ctx context.Context, id int64) (*Record, error) {
	return s.repo.Get(ctx, id)
}

// Delete removes a record and then its backing file, returning the removed record.
// Failing to remove the file is logged and does not fail the delete.
func (s *Service) Delete(ctx context.Context, id int64) (*Record, error) {
	rec, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.metrics.FloatsDeleted.Inc()
	if rec.FileName != "" {
		s.removeFile(rec.FileName)
	}
	s.logger.Info().Int64("float_id", id).Str("platform_number", rec.PlatformNumber).Msg("float deleted")
	return rec, nil
}

func (s *Service) removeFile(name string) {
	if s.files == nil {
		return
	}
	if err := s.files.Remove(name); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		s.metrics.FileCleanupErr.Inc()
		s.logger.Warn().Err(err).Str("file", name).Msg("failed to remove backing file")
	}
}

// Profile returns a record that carries profile data.
func (s *Service) Profile(ctx context.Context, id int64) (*Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.HasProfile() {
		return nil, ErrNoProfileData
	}
	return rec, nil
}

// ProfileParameter returns one parameter series of a record.
// name may be a code (TEMP) or a plain name (temperature).
func (s *Service) ProfileParameter(ctx context.Context, id int64, name string) (*Record, string, ParameterProfile, error) {
	code, ok := ResolveParameter(name)
	if !ok {
		return nil, "", ParameterProfile{}, fmt.Errorf("%w: unknown parameter %q", ErrInvalidInput, name)
	}
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, "", ParameterProfile{}, err
	}
	series, ok := rec.Profile[code]
	if !ok {
		return nil, "", ParameterProfile{}, ErrNoProfileData
	}
	return rec, code, series, nil
}

// Compare loads every record named in a comma-separated ID list.
func (s *Service) Compare(ctx context.Context, idList string) ([]*Record, error) {
	ids, err := ParseIDList(idList)
	if err != nil {
		return nil, err
	}
	return s.repo.GetMany(ctx, ids)
}

// Trajectory is the set of surface positions recorded on one UTC day.
type Trajectory struct {
	Date   time.Time
	Points []TrajectoryPoint
	// Center is the midpoint of the latitude and longitude extents; nil without points.
	Center *Point
}

// TrajectoryPoint is one positioned record on a trajectory.
type TrajectoryPoint struct {
	FloatID        int64
	PlatformNumber string
	CycleNumber    *int
	Position       Point
	Time           time.Time
}

// Trajectory returns the positioned records observed on day, ordered by time.
func (s *Service) Trajectory(ctx context.Context, day time.Time) (*Trajectory, error) {
	if day.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	filter := ListFilter{Day: day}
	from, _, _ := filter.Window()

	recs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	t := &Trajectory{Date: from, Points: []TrajectoryPoint{}}
	for _, rec := range recs {
		if rec.Position == nil || rec.ObservationTime == nil {
			continue
		}
		t.Points = append(t.Points, TrajectoryPoint{
			FloatID:        rec.ID,
			PlatformNumber: rec.PlatformNumber,
			CycleNumber:    rec.CycleNumber,
			Position:       *rec.Position,
			Time:           *rec.ObservationTime,
		})
	}
	if len(t.Points) == 0 {
		return t, nil
	}

	sort.SliceStable(t.Points, func(i, j int) bool { return t.Points[i].Time.Before(t.Points[j].Time) })

	minLat, maxLat := t.Points[0].Position.Lat, t.Points[0].Position.Lat
	minLon, maxLon := t.Points[0].Position.Lon, t.Points[0].Position.Lon
	for _, p := range t.Points[1:] {
		minLat = min(minLat, p.Position.Lat)
		maxLat = max(maxLat, p.Position.Lat)
		minLon = min(minLon, p.Position.Lon)
		maxLon = max(maxLon, p.Position.Lon)
	}
	t.Center = &Point{Lat: (minLat + maxLat) / 2, Lon: (minLon + maxLon) / 2}
	return t, nil
}

// Ping checks that the repository is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// ParseIDList parses a comma-separated list of record IDs such as "1,2,3".
func ParseIDList(raw string) ([]int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: invalid float IDs format", ErrInvalidInput)
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: invalid float IDs format", ErrInvalidInput)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ResolveParameter maps a parameter code or plain name to its code.
func ResolveParameter(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "temp", "temperature":
		return ParamTemperature, true
	case "psal", "salinity":
		return ParamSalinity, true
	case "pres", "pressure":
		return ParamPressure, true
	}
	return "", false
}
