package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fumiya-kume/repaircoord/pkg/clock"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

// AgentState is the availability of a single agent
type AgentState string

const (
	AgentOperational  AgentState = "operational"
	AgentUnavailable  AgentState = "unavailable"
	AgentUnresponsive AgentState = "unresponsive"
)

// SystemState is the aggregate availability
type SystemState string

const (
	SystemOperational SystemState = "operational"
	SystemDegraded    SystemState = "degraded"
	SystemCritical    SystemState = "critical"
)

// AgentHealth is one agent's entry in a snapshot
type AgentHealth struct {
	Status       AgentState    `json:"status"`
	LastActivity time.Time     `json:"last_activity"`
	SuccessRate  float64       `json:"success_rate"`
	AvgLatency   time.Duration `json:"avg_latency"`
	Calls        int           `json:"calls"`
	Error        string        `json:"error,omitempty"`
}

// HealthSnapshot is a complete, point-in-time health report
type HealthSnapshot struct {
	OverallStatus SystemState               `json:"overall_status"`
	PerAgent      map[AgentName]AgentHealth `json:"per_agent"`
	Unavailable   []AgentName               `json:"unavailable,omitempty"`
	CheckedAt     time.Time                 `json:"checked_at"`
}

// OverallStatusFor maps the number of unavailable agents to the aggregate state
func OverallStatusFor(unavailable int) SystemState {
	switch {
	case unavailable <= 0:
		return SystemOperational
	case unavailable <= 2:
		return SystemDegraded
	default:
		return SystemCritical
	}
}

// Default health monitor timings
const (
	DefaultHealthCheckInterval = 30 * time.Second
	DefaultHealthCheckTimeout  = 5 * time.Second
)

// HealthMonitor samples agent availability and call performance
type HealthMonitor struct {
	registry *Registry
	log      *CommunicationLog
	clock    clock.Clock
	logger   *logger.Logger

	mu       sync.RWMutex
	expected []AgentName
	interval time.Duration
	timeout  time.Duration
	latest   *HealthSnapshot

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthMonitor creates a monitor over registry and log
func NewHealthMonitor(registry *Registry, log *CommunicationLog, expected []AgentName) *HealthMonitor {
	return NewHealthMonitorWithClock(registry, log, expected, clock.NewRealClock())
}

// NewHealthMonitorWithClock creates a monitor with a custom clock
func NewHealthMonitorWithClock(registry *Registry, log *CommunicationLog, expected []AgentName, clk clock.Clock) *HealthMonitor {
	return &HealthMonitor{
		registry: registry,
		log:      log,
		clock:    clk,
		logger:   logger.GetLogger().WithPrefix("health"),
		expected: append([]AgentName(nil), expected...),
		interval: DefaultHealthCheckInterval,
		timeout:  DefaultHealthCheckTimeout,
	}
}

// SetRegistry swaps the registry the monitor inspects
func (hm *HealthMonitor) SetRegistry(registry *Registry) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.registry = registry
}

func (hm *HealthMonitor) SetExpected(expected []AgentName) {
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.expected = append([]AgentName(nil), expected...)
}

func (hm *HealthMonitor) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.interval = d
}

func (hm *HealthMonitor) SetTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	hm.mu.Lock()
	defer hm.mu.Unlock()
	hm.timeout = d
}

// PerformHealthCheck builds a fresh snapshot and replaces the previous one
func (hm *HealthMonitor) PerformHealthCheck(ctx context.Context) HealthSnapshot {
	hm.mu.RLock()
	registry := hm.registry
	expected := append([]AgentName(nil), hm.expected...)
	timeout := hm.timeout
	hm.mu.RUnlock()

	names := hm.candidates(registry, expected)

	var (
		resultsMu sync.Mutex
		perAgent  = make(map[AgentName]AgentHealth, len(names))
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			health := hm.inspect(gctx, registry, name, timeout)

			resultsMu.Lock()
			perAgent[name] = health
			resultsMu.Unlock()
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // inspections never return errors

	snapshot := HealthSnapshot{
		PerAgent:  perAgent,
		CheckedAt: hm.clock.Now(),
	}
	for _, name := range names {
		if perAgent[name].Status != AgentOperational {
			snapshot.Unavailable = append(snapshot.Unavailable, name)
		}
	}
	snapshot.OverallStatus = OverallStatusFor(len(snapshot.Unavailable))

	hm.mu.Lock()
	hm.latest = &snapshot
	hm.mu.Unlock()

	hm.logger.Debug("Health check completed (status: %s, agents: %d, unavailable: %d)",
		snapshot.OverallStatus, len(names), len(snapshot.Unavailable))

	return snapshot
}

func (hm *HealthMonitor) candidates(registry *Registry, expected []AgentName) []AgentName {
	seen := make(map[AgentName]bool)
	var names []AgentName
	for _, name := range expected {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	if registry != nil {
		for _, name := range registry.Names() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

func (hm *HealthMonitor) inspect(ctx context.Context, registry *Registry, name AgentName, timeout time.Duration) AgentHealth {
	health := AgentHealth{Status: AgentUnavailable}
	if hm.log != nil {
		stats := hm.log.Stats(name)
		health.LastActivity = stats.LastActivity
		health.SuccessRate = stats.SuccessRate
		health.AvgLatency = stats.AvgLatency
		health.Calls = stats.Total
	}

	if registry == nil {
		return health
	}
	agent, ok := registry.Get(name)
	if !ok {
		return health
	}

	health.Status = AgentOperational
	checker, ok := agent.(HealthChecker)
	if !ok {
		return health
	}

	if err := probe(ctx, checker, timeout); err != nil {
		health.Status = AgentUnresponsive
		health.Error = err.Error()
		hm.logger.Warn("Agent health probe failed (agent: %s, error: %v)", name, err)
	}
	return health
}

func probe(ctx context.Context, checker HealthChecker, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("health check panicked: %v", r)
			}
		}()
		done <- checker.HealthCheck(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("health check timed out after %v", timeout)
	}
}

// Latest returns the most recent snapshot, if any
func (hm *HealthMonitor) Latest() (HealthSnapshot, bool) {
	hm.mu.RLock()
	defer hm.mu.RUnlock()
	if hm.latest == nil {
		return HealthSnapshot{}, false
	}
	return *hm.latest, true
}

// Start runs a check immediately and then on every interval until Stop
func (hm *HealthMonitor) Start(ctx context.Context) {
	hm.mu.Lock()
	if hm.cancel != nil {
		hm.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	hm.cancel = cancel
	interval := hm.interval
	hm.mu.Unlock()

	hm.logger.Info("Starting health monitor (check_interval: %v)", interval)

	ticker := hm.clock.NewTicker(interval)
	hm.wg.Add(1)
	go func() {
		defer hm.wg.Done()
		defer ticker.Stop()

		hm.PerformHealthCheck(loopCtx)
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C():
				hm.PerformHealthCheck(loopCtx)
			}
		}
	}()
}

// Stop halts the periodic loop and waits for it to exit
func (hm *HealthMonitor) Stop() {
	hm.mu.Lock()
	cancel := hm.cancel
	hm.cancel = nil
	hm.mu.Unlock()

	if cancel == nil {
		return
	}
	hm.logger.Info("Stopping health monitor")
	cancel()
	hm.wg.Wait()
}
