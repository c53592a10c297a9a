package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/encoding"
	"github.com/inkpress/inkpress/telemetry"
)

const (
	// Default initial retry delay for failed publish operations
	DefaultRetryInitial = 100 * time.Millisecond
	// Default maximum retry delay (exponential backoff cap)
	DefaultRetryMax = 30 * time.Second
	// Default exponential backoff multiplier
	DefaultRetryMultiplier = 2.0
	// Maximum number of retry attempts before dropping an event
	DefaultMaxRetries = 10
)

// WorkerConfig configures a mutation event publisher worker
type WorkerConfig struct {
	Name            string        // Sink name (for logging and metrics)
	Hub             *Hub          // Hub to subscribe to
	Sink            Sink          // Destination sink
	Filter          Filter        // Event filter
	TopicPrefix     string        // Topic prefix (e.g., "inkpress.events")
	RetryInitial    time.Duration // Initial retry delay
	RetryMax        time.Duration // Max retry delay
	RetryMultiplier float64       // Backoff multiplier
	MaxRetries      int           // Maximum retry attempts
}

// Worker drains the hub into a sink. Delivery is best-effort: the hub drops
// events when the worker falls behind, and an event is abandoned after
// MaxRetries failed publishes. Consumers needing a complete feed should
// reconcile against the durable store.
type Worker struct {
	config      WorkerConfig
	stopCh      chan struct{}
	doneCh      chan struct{}
	cancel      func()
	running     atomic.Bool
	lifecycleMu sync.Mutex // Protects Start/Stop lifecycle operations
}

// NewWorker creates a new mutation event worker
func NewWorker(config WorkerConfig) (*Worker, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("worker name is required")
	}
	if config.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}
	if config.Sink == nil {
		return nil, fmt.Errorf("sink is required")
	}
	if config.Filter == nil {
		return nil, fmt.Errorf("filter is required")
	}

	// Set defaults
	if config.RetryInitial <= 0 {
		config.RetryInitial = DefaultRetryInitial
	}
	if config.RetryMax <= 0 {
		config.RetryMax = DefaultRetryMax
	}
	if config.RetryMultiplier <= 0 {
		config.RetryMultiplier = DefaultRetryMultiplier
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	return &Worker{config: config}, nil
}

// Start starts the worker goroutine
func (w *Worker) Start() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if w.running.Load() {
		return // Already running
	}

	w.running.Store(true)
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})

	ch, cancel := w.config.Hub.Subscribe()
	w.cancel = cancel

	log.Info().
		Str("worker", w.config.Name).
		Msg("Starting mutation event worker")

	go w.drainLoop(ch)
}

// Stop stops the worker gracefully
func (w *Worker) Stop() {
	w.lifecycleMu.Lock()
	defer w.lifecycleMu.Unlock()

	if !w.running.Load() {
		return // Not running
	}

	log.Info().Str("worker", w.config.Name).Msg("Stopping mutation event worker")

	w.cancel()
	close(w.stopCh)
	<-w.doneCh // Wait for goroutine to finish
	w.running.Store(false)

	log.Info().Str("worker", w.config.Name).Msg("Mutation event worker stopped")
}

// drainLoop is the main worker loop
func (w *Worker) drainLoop(ch <-chan Event) {
	defer close(w.doneCh)

	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			w.processEvent(event)
		}
	}
}

// processEvent publishes a single event, retrying with backoff
func (w *Worker) processEvent(event Event) {
	if !w.config.Filter.Match(event.Kind) {
		return
	}

	data, err := encoding.Marshal(event)
	if err != nil {
		log.Error().
			Err(err).
			Str("worker", w.config.Name).
			Str("record_id", event.RecordID).
			Msg("Failed to encode event")
		telemetry.EventsPublishedTotal.With(w.config.Name, "error").Inc()
		return
	}

	topic := w.buildTopic(event.Kind)
	if err := w.publishWithRetry(topic, event.RecordID, data); err != nil {
		log.Error().
			Err(err).
			Str("worker", w.config.Name).
			Str("record_id", event.RecordID).
			Str("topic", topic).
			Msg("Dropping event after exhausting retries")
		telemetry.EventsPublishedTotal.With(w.config.Name, "dropped").Inc()
		return
	}

	telemetry.EventsPublishedTotal.With(w.config.Name, "success").Inc()
}

// buildTopic builds the topic name for an event kind
func (w *Worker) buildTopic(kind Kind) string {
	if w.config.TopicPrefix == "" {
		return fmt.Sprintf("records.%s", kind)
	}
	return fmt.Sprintf("%s.records.%s", w.config.TopicPrefix, kind)
}

// publishWithRetry publishes data with exponential backoff retry.
// Returns error if max retries exhausted or worker stopped.
func (w *Worker) publishWithRetry(topic, key string, data []byte) error {
	delay := w.config.RetryInitial
	attempts := 0

	for {
		err := w.config.Sink.Publish(topic, key, data)
		if err == nil {
			return nil
		}

		attempts++
		if attempts >= w.config.MaxRetries {
			return fmt.Errorf("exhausted max retries (%d) for topic %s: %w", w.config.MaxRetries, topic, err)
		}

		log.Warn().
			Err(err).
			Str("worker", w.config.Name).
			Str("topic", topic).
			Int("attempt", attempts).
			Dur("retry_delay", delay).
			Msg("Failed to publish event, retrying")

		if !w.sleep(delay) {
			return fmt.Errorf("worker stopped during retry")
		}

		// Exponential backoff
		delay = time.Duration(float64(delay) * w.config.RetryMultiplier)
		if delay > w.config.RetryMax {
			delay = w.config.RetryMax
		}
	}
}

// sleep sleeps for the given duration, checking stopCh.
// Returns true if sleep completed, false if stopped.
func (w *Worker) sleep(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-w.stopCh:
		return false
	case <-timer.C:
		return true
	}
}
