package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/argodesk/argodesk/internal/argofile"
	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/datafile"
	"github.com/argodesk/argodesk/internal/fetch"
	"github.com/argodesk/argodesk/internal/history"
	"github.com/argodesk/argodesk/internal/query"
)

// InspectCmd parses files without storing them.
type InspectCmd struct {
	Files []string `arg:"" type:"existingfile" help:"NetCDF profile files."`
	JSON  bool     `help:"Print records as JSON."`
}

// Run prints one summary per file. Every file is attempted; the first error is returned.
func (c *InspectCmd) Run(rt *Runtime) error {
	normalizer := argofile.NewNormalizer(rt.Open, rt.Logger)

	var firstErr error
	for _, path := range c.Files {
		rec, err := normalizer.Normalize(rt.Ctx, path)
		if err != nil {
			fmt.Fprintf(rt.Out, "%s: %v\n", filepath.Base(path), err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if c.JSON {
			if err := writeJSON(rt, summarize(rec)); err != nil {
				return err
			}
			continue
		}
		printRecord(rt, rec)
	}
	return firstErr
}

// recordSummary is the printable form of a record.
type recordSummary struct {
	File            string         `json:"file"`
	PlatformNumber  string         `json:"platformNumber"`
	CycleNumber     *int           `json:"cycleNumber"`
	Latitude        *float64       `json:"latitude"`
	Longitude       *float64       `json:"longitude"`
	ObservationTime *time.Time     `json:"observationTime"`
	DataMode        string         `json:"dataMode"`
	Parameters      []string       `json:"parameters"`
	Levels          map[string]int `json:"levels"`
}

func summarize(rec *argofloat.Record) recordSummary {
	s := recordSummary{
		File:            rec.FileName,
		PlatformNumber:  rec.PlatformNumber,
		CycleNumber:     rec.CycleNumber,
		ObservationTime: rec.ObservationTime,
		DataMode:        rec.DataMode,
		Parameters:      rec.Parameters,
		Levels:          make(map[string]int, len(rec.Profile)),
	}
	if rec.Position != nil {
		s.Latitude, s.Longitude = &rec.Position.Lat, &rec.Position.Lon
	}
	for code, p := range rec.Profile {
		s.Levels[code] = len(p.Values)
	}
	return s
}

func printRecord(rt *Runtime, rec *argofloat.Record) {
	s := summarize(rec)
	w := tabwriter.NewWriter(rt.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "file\t%s\n", s.File)
	fmt.Fprintf(w, "platform\t%s\n", s.PlatformNumber)
	fmt.Fprintf(w, "cycle\t%s\n", optional(s.CycleNumber))
	if s.Latitude != nil {
		fmt.Fprintf(w, "position\t%.4f, %.4f\n", *s.Latitude, *s.Longitude)
	} else {
		fmt.Fprintf(w, "position\t%s\n", argofloat.Unknown)
	}
	if s.ObservationTime != nil {
		fmt.Fprintf(w, "observed\t%s\n", s.ObservationTime.UTC().Format(time.RFC3339))
	} else {
		fmt.Fprintf(w, "observed\t%s\n", argofloat.Unknown)
	}
	fmt.Fprintf(w, "data mode\t%s\n", s.DataMode)
	fmt.Fprintf(w, "parameters\t%s\n", strings.Join(s.Parameters, " "))

	codes := make([]string, 0, len(s.Levels))
	for code := range s.Levels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		fmt.Fprintf(w, "  %s\t%d levels\n", code, s.Levels[code])
	}
	_ = w.Flush()
	fmt.Fprintln(rt.Out)
}

func optional(v *int) string {
	if v == nil {
		return argofloat.Unknown
	}
	return fmt.Sprint(*v)
}

// IngestCmd stores files and URLs through the same path as the API.
type IngestCmd struct {
	Sources         []string      `arg:"" help:"Local files or http(s)/ftp URLs."`
	DataDir         string        `name:"data-dir" env:"DATA_DIR" default:"./data" help:"Directory for backing files."`
	MaxUploadBytes  int64         `name:"max-upload-bytes" env:"MAX_UPLOAD_BYTES" default:"104857600" help:"Largest accepted file."`
	FetchTimeout    time.Duration `name:"fetch-timeout" env:"FETCH_TIMEOUT" default:"60s" help:"Timeout per download attempt."`
	FetchMaxRetries uint64        `name:"fetch-max-retries" env:"FETCH_MAX_RETRIES" default:"3" help:"Retries per download."`
}

// Run ingests every source, reporting each outcome.
func (c *IngestCmd) Run(rt *Runtime) error {
	store, err := rt.openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := datafile.NewStore(c.DataDir, c.MaxUploadBytes)
	if err != nil {
		return err
	}
	floats := argofloat.NewService(argofloat.ServiceConfig{
		Repo:       store.Floats,
		Normalizer: argofile.NewNormalizer(rt.Open, rt.Logger),
		Files:      files,
		Logger:     rt.Logger,
	})
	fetcher := fetch.New(fetch.Config{
		Timeout:    c.FetchTimeout,
		MaxRetries: c.FetchMaxRetries,
		Logger:     rt.Logger,
	})

	var failed int
	for _, src := range c.Sources {
		res, err := c.ingestOne(rt, floats, fetcher, src)
		if err != nil {
			failed++
			fmt.Fprintf(rt.Out, "FAIL %s: %v\n", src, err)
			continue
		}
		fmt.Fprintf(rt.Out, "ok   %s: %s (id %d)\n", src, res.Message(), res.Record.ID)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sources failed", failed, len(c.Sources))
	}
	return nil
}

func (c *IngestCmd) ingestOne(rt *Runtime, floats *argofloat.Service, fetcher *fetch.Fetcher, src string) (*argofloat.IngestResult, error) {
	if strings.Contains(src, "://") {
		return fetcher.Ingest(rt.Ctx, src, floats)
	}
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return floats.Upload(rt.Ctx, filepath.Base(src), f)
}

// AskCmd runs the query processor.
type AskCmd struct {
	Question []string `arg:"" help:"Question text."`
	JSON     bool     `help:"Print the full response as JSON."`
	Record   bool     `default:"true" negatable:"" help:"Record the question in the query history."`
}

// Run answers the question and prints the response text.
func (c *AskCmd) Run(rt *Runtime) error {
	question := strings.TrimSpace(strings.Join(c.Question, " "))
	if question == "" {
		return errors.New("question is required")
	}

	store, err := rt.openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	resp, err := query.NewProcessor(store.Floats, nil, rt.Logger).Process(rt.Ctx, question)
	if err != nil {
		return err
	}
	if c.Record {
		history.NewService(history.ServiceConfig{Repo: store.History, Logger: rt.Logger}).
			Record(rt.Ctx, question, resp.Text, resp.Intent.String())
	}

	if c.JSON {
		return writeJSON(rt, map[string]interface{}{
			"response":       resp.Text,
			"intent":         resp.Intent.String(),
			"mapData":        resp.MapData,
			"visualizations": resp.Visualizations,
		})
	}
	fmt.Fprintln(rt.Out, resp.Text)
	if resp.MapData != nil {
		fmt.Fprintf(rt.Out, "\n%d floats on map, centre %.2f, %.2f\n",
			len(resp.MapData.Markers), resp.MapData.Center[0], resp.MapData.Center[1])
	}
	return nil
}

// HistoryCmd lists recent questions.
type HistoryCmd struct {
	Limit int `default:"20" help:"Number of entries (max 100)."`
}

// Run prints the most recent entries, newest first.
func (c *HistoryCmd) Run(rt *Runtime) error {
	store, err := rt.openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := history.NewService(history.ServiceConfig{Repo: store.History, Logger: rt.Logger}).
		Recent(rt.Ctx, c.Limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(rt.Out, 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.AskedAt.UTC().Format(time.RFC3339), e.Intent, e.Question)
	}
	return w.Flush()
}

func writeJSON(rt *Runtime, v interface{}) error {
	enc := json.NewEncoder(rt.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
