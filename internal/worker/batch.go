package worker

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/argofloat"
)

// Ingester downloads and ingests one remote file.
type Ingester interface {
	IngestURL(ctx context.Context, url string) (*argofloat.IngestResult, error)
}

// IngestFunc adapts a function to Ingester.
type IngestFunc func(ctx context.Context, url string) (*argofloat.IngestResult, error)

// IngestURL calls f.
func (f IngestFunc) IngestURL(ctx context.Context, url string) (*argofloat.IngestResult, error) {
	return f(ctx, url)
}

// BatchJob ingests lists of remote files with a bounded worker pool.
type BatchJob struct {
	config   BatchConfig
	ingester Ingester
	clock    clockwork.Clock
	logger   zerolog.Logger

	mu    sync.RWMutex
	stats BatchStats
}

// BatchStats accumulates results over all runs.
type BatchStats struct {
	Runs            int64
	FilesInserted   int64
	FilesUpdated    int64
	FilesFailed     int64
	LastRunAt       time.Time
	LastRunDuration time.Duration
}

// BatchJobConfig holds configuration for creating a BatchJob.
type BatchJobConfig struct {
	Config   BatchConfig
	Ingester Ingester
	Clock    clockwork.Clock
	Logger   zerolog.Logger
}

// NewBatchJob creates a new batch ingestion job.
func NewBatchJob(cfg BatchJobConfig) *BatchJob {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return &BatchJob{
		config:   cfg.Config.withDefaults(),
		ingester: cfg.Ingester,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
}

// BatchResult contains the result of one batch.
type BatchResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Total     int
	Inserted  int
	Updated   int
	Failed    int
	Errors    []BatchError
}

// Successful returns the number of files stored.
func (r *BatchResult) Successful() int {
	return r.Inserted + r.Updated
}

// BatchError records one failed file.
type BatchError struct {
	URL   string
	Error string
}

type fileResult struct {
	url      string
	inserted bool
	err      error
}

// Run ingests urls. Files not started before ctx is done count as failed.
func (j *BatchJob) Run(ctx context.Context, urls []string) *BatchResult {
	startTime := j.clock.Now()
	result := &BatchResult{
		StartTime: startTime,
		Total:     len(urls),
	}

	j.logger.Info().
		Int("files", result.Total).
		Int("concurrency", j.config.Concurrency).
		Msg("starting batch ingestion")

	urlsChan := make(chan string, len(urls))
	resultsChan := make(chan fileResult, len(urls))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.ingestWorker(ctx, urlsChan, resultsChan)
		}()
	}

	for _, u := range urls {
		urlsChan <- u
	}
	close(urlsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	seen := 0
	for fr := range resultsChan {
		seen++
		switch {
		case fr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, BatchError{URL: fr.url, Error: fr.err.Error()})
		case fr.inserted:
			result.Inserted++
		default:
			result.Updated++
		}
	}
	if skipped := result.Total - seen; skipped > 0 {
		result.Failed += skipped
		result.Errors = append(result.Errors, BatchError{URL: "", Error: ctx.Err().Error()})
	}

	result.EndTime = j.clock.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateStats(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("batch ingestion completed")

	return result
}

func (j *BatchJob) ingestWorker(ctx context.Context, urls <-chan string, results chan<- fileResult) {
	for u := range urls {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.ingestOne(ctx, u)
		}
	}
}

func (j *BatchJob) ingestOne(ctx context.Context, url string) fileResult {
	fileCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	res, err := j.ingester.IngestURL(fileCtx, url)
	if err != nil {
		j.logger.Warn().Err(err).Str("url", url).Msg("file ingestion failed")
		return fileResult{url: url, err: err}
	}
	return fileResult{url: url, inserted: res.Inserted}
}

func (j *BatchJob) updateStats(result *BatchResult) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.stats.Runs++
	j.stats.FilesInserted += int64(result.Inserted)
	j.stats.FilesUpdated += int64(result.Updated)
	j.stats.FilesFailed += int64(result.Failed)
	j.stats.LastRunAt = result.StartTime
	j.stats.LastRunDuration = result.Duration
}

// Stats returns a copy of the accumulated statistics.
func (j *BatchJob) Stats() BatchStats {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats
}
