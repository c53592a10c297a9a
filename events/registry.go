package events

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/inkpress/inkpress/cfg"
)

// SinkFactory builds a sink from its configuration block
type SinkFactory func(config cfg.SinkConfiguration) (Sink, error)

var (
	factoryMu     sync.RWMutex
	sinkFactories = make(map[string]SinkFactory)
)

// RegisterSink registers a sink factory under a type name.
// Called from sink package init functions.
func RegisterSink(sinkType string, factory SinkFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	sinkFactories[sinkType] = factory
}

// Registry manages the lifecycle of all mutation event workers
type Registry struct {
	hub     *Hub
	workers []*Worker
	running atomic.Bool
	mu      sync.Mutex
}

// NewRegistry creates workers for each configured sink
func NewRegistry(hub *Hub, sinkConfigs []cfg.SinkConfiguration) (*Registry, error) {
	if hub == nil {
		return nil, fmt.Errorf("hub is required")
	}

	registry := &Registry{
		hub:     hub,
		workers: make([]*Worker, 0, len(sinkConfigs)),
	}

	for i, sinkCfg := range sinkConfigs {
		if err := registry.addSink(sinkCfg); err != nil {
			registry.closeSinks()
			return nil, fmt.Errorf("sink %d (%s): %w", i, sinkCfg.Type, err)
		}
	}

	return registry, nil
}

func (r *Registry) addSink(sinkCfg cfg.SinkConfiguration) error {
	factoryMu.RLock()
	factory, ok := sinkFactories[sinkCfg.Type]
	factoryMu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown sink type: %s", sinkCfg.Type)
	}

	sink, err := factory(sinkCfg)
	if err != nil {
		return err
	}

	filter, err := NewGlobFilter(sinkCfg.Scopes)
	if err != nil {
		sink.Close()
		return err
	}

	worker, err := NewWorker(WorkerConfig{
		Name:        sinkCfg.Type,
		Hub:         r.hub,
		Sink:        sink,
		Filter:      filter,
		TopicPrefix: sinkCfg.TopicPrefix,
	})
	if err != nil {
		sink.Close()
		return err
	}

	r.workers = append(r.workers, worker)
	return nil
}

// Start starts all workers
func (r *Registry) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running.Load() {
		return
	}
	r.running.Store(true)

	for _, worker := range r.workers {
		worker.Start()
	}

	if len(r.workers) > 0 {
		log.Info().Int("workers", len(r.workers)).Msg("Mutation event publishing started")
	}
}

// Stop stops all workers and closes their sinks
func (r *Registry) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.Load() {
		return
	}
	r.running.Store(false)

	for _, worker := range r.workers {
		worker.Stop()
	}
	r.closeSinks()
}

func (r *Registry) closeSinks() {
	for _, worker := range r.workers {
		if worker.config.Sink != nil {
			if err := worker.config.Sink.Close(); err != nil {
				log.Warn().Err(err).Str("worker", worker.config.Name).Msg("Failed to close sink")
			}
		}
	}
}
