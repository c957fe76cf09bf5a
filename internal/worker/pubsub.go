package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// ErrMalformedMessage is returned for message payloads that are not valid job JSON.
var ErrMalformedMessage = errors.New("malformed job message")

// JobMessage is a job published to the worker subscription.
type JobMessage struct {
	JobType string   `json:"job_type"`
	URLs    []string `json:"urls,omitempty"`
}

// Pinger checks that the float store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dispatcher runs the job described by one message payload.
type Dispatcher struct {
	batch  *BatchJob
	store  Pinger
	logger zerolog.Logger
}

// NewDispatcher creates a dispatcher for ingestion and health check jobs.
func NewDispatcher(batch *BatchJob, store Pinger, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{batch: batch, store: store, logger: logger}
}

// Handle runs the job in data. A nil error means the message should be acked.
// Unknown job types are acked so they are not redelivered.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	switch msg.JobType {
	case JobIngestURLs:
		return d.handleIngest(ctx, msg)
	case JobHealthCheck:
		return d.handleHealthCheck(ctx)
	default:
		d.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return nil
	}
}

func (d *Dispatcher) handleIngest(ctx context.Context, msg JobMessage) error {
	if len(msg.URLs) == 0 {
		d.logger.Warn().Msg("ingest job without urls")
		return nil
	}

	result := d.batch.Run(ctx, msg.URLs)
	for _, e := range result.Errors {
		d.logger.Debug().Str("url", e.URL).Str("error", e.Error).Msg("batch file error")
	}

	if result.Failed > result.Successful() {
		return fmt.Errorf("too many ingestion failures: %d/%d", result.Failed, result.Total)
	}
	return nil
}

func (d *Dispatcher) handleHealthCheck(ctx context.Context) error {
	d.logger.Debug().Msg("running health check")

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := d.store.Ping(pingCtx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	d.logger.Debug().Msg("health check passed")
	return nil
}

// PubSubHandler feeds Pub/Sub messages to a Dispatcher.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Batches can hold many files; keep the lease alive while they run.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 30 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is done.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	if err := h.dispatcher.Handle(ctx, msg.Data); err != nil {
		logger.Error().Err(err).Msg("job failed")
		msg.Nack()
		return
	}

	logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("job completed successfully")

	msg.Ack()
}
