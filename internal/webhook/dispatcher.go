package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Dispatcher forwards parsed gateway events onward to subscriber
// endpoints as JSON POSTs, retrying each delivery with backoff. It holds
// no persistent state; an event dropped on a full queue or abandoned after
// the retry window is gone.
type Dispatcher struct {
	subscribers []string
	httpClient  *http.Client
	retryOpts   RetryOptions
	logger      *slog.Logger
	queue       chan Event
}

func NewDispatcher(subscribers []string, httpClient *http.Client, retryOpts RetryOptions, logger *slog.Logger) *Dispatcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		subscribers: subscribers,
		httpClient:  httpClient,
		retryOpts:   retryOpts,
		logger:      logger,
		queue:       make(chan Event, 64),
	}
}

// Enqueue hands an event to the dispatch loop. Returns false when the
// queue is full; callers decide whether that matters.
func (d *Dispatcher) Enqueue(event Event) bool {
	select {
	case d.queue <- event:
		return true
	default:
		d.logger.Warn("dispatch queue full, dropping event",
			"kind", event.Kind,
			"correlation_id", event.CorrelationID(),
		)
		return false
	}
}

// Start drains the queue until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("webhook dispatcher started", "subscribers", len(d.subscribers))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("webhook dispatcher stopping")
			return
		case event := <-d.queue:
			d.dispatch(ctx, event)
		}
	}
}

type deliveryEnvelope struct {
	DeliveryID    string          `json:"delivery_id"`
	Kind          EventKind       `json:"kind"`
	CorrelationID string          `json:"correlation_id"`
	ReceivedAt    time.Time       `json:"received_at"`
	Payload       json.RawMessage `json:"payload"`
}

func (d *Dispatcher) dispatch(ctx context.Context, event Event) {
	envelope := deliveryEnvelope{
		DeliveryID:    uuid.NewString(),
		Kind:          event.Kind,
		CorrelationID: event.CorrelationID(),
		ReceivedAt:    time.Now().UTC(),
		Payload:       event.Raw,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		d.logger.Error("could not marshal delivery envelope", "error", err)
		return
	}

	for _, url := range d.subscribers {
		result := RetryWithBackoff(ctx, func(ctx context.Context) error {
			return d.deliver(ctx, url, body)
		}, d.retryOpts)

		if result.Success {
			d.logger.Info("event delivered",
				"delivery_id", envelope.DeliveryID,
				"url", url,
				"attempts", result.Attempts,
			)
		} else {
			d.logger.Error("event delivery abandoned",
				"delivery_id", envelope.DeliveryID,
				"url", url,
				"attempts", result.Attempts,
				"elapsed", result.Elapsed,
				"error", result.LastErr,
			)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("subscriber returned status %d", resp.StatusCode)
	}
	return nil
}
