package telemetry

import (
	"context"
	"sync"
	"time"
)

// BacklogProvider reports how many counter keys are waiting for reconciliation
type BacklogProvider interface {
	TrackedKeys(ctx context.Context) (int, error)
}

// MetricsCollector periodically samples the counter backlog and updates gauges
type MetricsCollector struct {
	backlog  BacklogProvider
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(backlog BacklogProvider, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{
		backlog:  backlog,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic collection
func (mc *MetricsCollector) Start() {
	mc.wg.Add(1)
	go mc.collectLoop()
}

// Stop stops the collector
func (mc *MetricsCollector) Stop() {
	close(mc.stopCh)
	mc.wg.Wait()
}

func (mc *MetricsCollector) collectLoop() {
	defer mc.wg.Done()

	ticker := time.NewTicker(mc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-mc.stopCh:
			return
		case <-ticker.C:
			mc.collect()
		}
	}
}

func (mc *MetricsCollector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	n, err := mc.backlog.TrackedKeys(ctx)
	if err != nil {
		return
	}
	TrackedCounters.Set(float64(n))
}
