package provider

import (
	"sync"
	"time"
)

// BaseProvider implements common provider functionality.
// It handles health tracking, metrics, and basic status checks.
type BaseProvider struct {
	name string

	mu           sync.RWMutex
	health       HealthStatus
	totalLatency time.Duration
	successCount int
	failureCount int
	requestCount int

	Monitor *ProviderMonitor
}

// NewBaseProvider creates a new BaseProvider.
func NewBaseProvider(name string) *BaseProvider {
	return &BaseProvider{
		name: name,
		health: HealthStatus{
			Available:     true,
			LastSuccessAt: time.Now(),
		},
		Monitor: NewProviderMonitor(),
	}
}

// Name returns the provider's name.
func (p *BaseProvider) Name() string {
	return p.name
}

// Health returns the provider's health status with a monitor snapshot.
func (p *BaseProvider) Health() HealthStatus {
	stats := p.Monitor.GetStats()

	p.mu.RLock()
	defer p.mu.RUnlock()
	h := p.health
	h.MonitorStats = &stats
	return h
}

// IsAvailable reports whether the endpoint is neither throttled nor blocked
// and has not failed most of its recent requests.
func (p *BaseProvider) IsAvailable() bool {
	status := p.Monitor.CheckProviderStatus()
	if status != StatusHealthy && status != StatusDegraded {
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health.Available
}

func (p *BaseProvider) RecordSuccess(latency time.Duration) {
	p.mu.Lock()
	p.successCount++
	p.requestCount++
	p.totalLatency += latency
	p.health.LastSuccessAt = time.Now()
	p.health.Available = true
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)
	p.health.Latency = p.totalLatency / time.Duration(p.successCount)
	p.mu.Unlock()

	p.Monitor.RecordRequest(latency)
}

func (p *BaseProvider) RecordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failureCount++
	p.requestCount++
	p.health.LastFailureAt = time.Now()
	p.health.ErrorRate = float64(p.failureCount) / float64(p.requestCount)

	if p.health.ErrorRate > 0.5 {
		p.health.Available = false
	}
}
