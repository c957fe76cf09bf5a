// Package worker runs background ingestion jobs for argodesk.
package worker

import (
	"time"
)

// Job types carried in Pub/Sub messages.
const (
	JobIngestURLs  = "ingest_urls"
	JobHealthCheck = "health_check"
)

// BatchConfig holds configuration for the batch ingestion job.
type BatchConfig struct {
	// Concurrency is the number of files ingested at once.
	// Default: 3
	Concurrency int

	// Timeout bounds the download and ingestion of one file.
	// Default: 2 minutes
	Timeout time.Duration
}

// DefaultBatchConfig returns the default batch configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		Concurrency: 3,
		Timeout:     2 * time.Minute,
	}
}

func (c BatchConfig) withDefaults() BatchConfig {
	def := DefaultBatchConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}
