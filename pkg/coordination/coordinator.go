package coordination

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/clock"
	"github.com/fumiya-kume/repaircoord/pkg/errors"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

// IDGenerator produces unique ids for coordinations, events and interventions
type IDGenerator func() string

// DefaultIDGenerator returns random UUIDs
func DefaultIDGenerator() string {
	return uuid.NewString()
}

// ReadinessReport is returned by InitializeAgents
type ReadinessReport struct {
	Success     bool                                    `json:"success"`
	Agents      map[agents.AgentName]agents.AgentStatus `json:"agents"`
	Errors      []string                                `json:"errors"`
	SystemReady bool                                    `json:"system_ready"`
	Health      agents.HealthSnapshot                   `json:"health"`
}

// SystemStatus is the coordinator-wide status report
type SystemStatus struct {
	Health               agents.HealthSnapshot `json:"health"`
	Initialized          bool                  `json:"initialized"`
	InitializationErrors []string              `json:"initialization_errors,omitempty"`
	Coordinations        map[Status]int        `json:"coordinations"`
	QueueLength          int                   `json:"queue_length"`
	CommunicationLogSize int                   `json:"communication_log_size"`
	Timestamp            time.Time             `json:"timestamp"`
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithClock sets the time source
func WithClock(clk clock.Clock) Option {
	return func(c *Coordinator) { c.clock = clk }
}

// WithIDGenerator sets the id source
func WithIDGenerator(ids IDGenerator) Option {
	return func(c *Coordinator) { c.ids = ids }
}

// WithStore shares an existing session store
func WithStore(store *Store) Option {
	return func(c *Coordinator) { c.store = store }
}

// WithEventHooks installs router callbacks for critical and processed events
func WithEventHooks(onCritical, onProcessed func(EventRecord)) Option {
	return func(c *Coordinator) {
		c.onCritical = onCritical
		c.onProcessed = onProcessed
	}
}

// Coordinator owns the agent registry, session store, communication log, health
// monitor and event router for one process.
type Coordinator struct {
	mu         sync.RWMutex
	settings   Settings
	registry   *agents.Registry
	reconciler *Reconciler
	initErrors []string

	store   *Store
	log     *agents.CommunicationLog
	invoker *agents.Invoker
	health  *agents.HealthMonitor
	router  *EventRouter

	clock       clock.Clock
	ids         IDGenerator
	onCritical  func(EventRecord)
	onProcessed func(EventRecord)
	logger      *logger.Logger
}

// NewCoordinator creates a coordinator. Agents are attached with InitializeAgents.
func NewCoordinator(settings Settings, opts ...Option) *Coordinator {
	settings = settings.Normalized()
	c := &Coordinator{
		settings: settings,
		clock:    clock.NewRealClock(),
		ids:      DefaultIDGenerator,
		logger:   logger.GetLogger().WithPrefix("coordinator"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = NewStore()
	}

	c.reconciler = NewReconciler(settings)
	c.log = agents.NewCommunicationLog(settings.CommunicationLogCapacity)
	c.invoker = agents.NewInvoker(c.log, c.clock, settings.AgentTimeout)

	c.health = agents.NewHealthMonitorWithClock(nil, c.log, settings.ExpectedAgents, c.clock)
	c.health.SetInterval(settings.HealthCheckInterval)
	c.health.SetTimeout(settings.HealthCheckTimeout)

	c.router = NewEventRouter(RouterConfig{
		Settings:    settings,
		Invoker:     c.invoker,
		Resolve:     c.ResolveAgentConflicts,
		Clock:       c.clock,
		IDs:         c.ids,
		OnCritical:  c.onCritical,
		OnProcessed: c.onProcessed,
	})

	return c
}

// InitializeAgents attaches registry, instantiates factory-backed agents and
// runs a health check. Missing agents are reported, never fatal.
func (c *Coordinator) InitializeAgents(ctx context.Context, registry *agents.Registry) ReadinessReport {
	if registry == nil {
		c.logger.Error("Agent initialization failed (error: registry is missing)")
		return ReadinessReport{
			Success: false,
			Agents:  map[agents.AgentName]agents.AgentStatus{},
			Errors:  []string{"agent registry is missing"},
		}
	}

	c.mu.RLock()
	expected := append([]agents.AgentName(nil), c.settings.ExpectedAgents...)
	c.mu.RUnlock()

	statuses, errs := registry.Instantiate(expected)

	c.mu.Lock()
	c.registry = registry
	c.initErrors = append([]string(nil), errs...)
	c.mu.Unlock()

	c.health.SetRegistry(registry)
	c.router.SetSource(registry)

	snapshot := c.health.PerformHealthCheck(ctx)
	report := ReadinessReport{
		Success:     true,
		Agents:      statuses,
		Errors:      errs,
		SystemReady: snapshot.OverallStatus == agents.SystemOperational,
		Health:      snapshot,
	}
	if report.Errors == nil {
		report.Errors = []string{}
	}

	c.logger.Info("Agents initialized (agents: %d, errors: %d, system_ready: %t)",
		registry.Len(), len(errs), report.SystemReady)
	return report
}

func (c *Coordinator) snapshot() (*agents.Registry, Settings, *Reconciler) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registry, c.settings, c.reconciler
}

// AnalyzeRepairProcess runs every applicable agent over actx and returns the
// completed coordination. Agent failures degrade the result; only errors before
// the fan-out (missing registry, malformed context) fail it.
func (c *Coordinator) AnalyzeRepairProcess(ctx context.Context, actx agents.AnalysisContext) (*Coordination, error) {
	registry, settings, reconciler := c.snapshot()

	coord := newCoordination(c.ids(), actx, c.clock.Now())
	c.store.Put(coord)

	c.logger.Info("Coordination started (id: %s, priority: %s)", coord.ID, coord.Priority)

	if registry == nil {
		return c.failCoordination(coord, errors.FatalCoordinationError("agent lookup",
			stderrors.New("agent registry not initialized")))
	}
	if err := actx.Validate(); err != nil {
		return c.failCoordination(coord, errors.FatalCoordinationError("validation", err))
	}
	if err := ctx.Err(); err != nil {
		return c.failCoordination(coord, errors.FatalCoordinationError("fan-out", err))
	}

	var applicable []agents.Analyzer
	for _, agent := range registry.Agents() {
		if agent.Applies(actx) {
			applicable = append(applicable, agent)
			coord.Applicable = append(coord.Applicable, agent.Name())
		}
	}

	outcomes := settleAll(ctx, c.invoker, applicable, settings.MaxConcurrentAgents,
		func(ctx context.Context, a agents.Analyzer) (*agents.Report, error) {
			return c.invoker.Analyze(ctx, a, actx)
		})

	perAgent := make(map[agents.AgentName][]agents.Recommendation)
	for _, out := range outcomes {
		if out.Err != nil {
			coord.Degraded = true
			coord.Conflicts = append(coord.Conflicts, Conflict{
				ID:       "agent_failure_" + string(out.Agent),
				Type:     ConflictAgentFailure,
				Severity: agents.PriorityMedium,
				Agent:    out.Agent,
				Message:  out.Err.Error(),
			})
			continue
		}

		report := out.Report.Clone()
		for i := range report.Recommendations {
			if report.Recommendations[i].Source == "" {
				report.Recommendations[i].Source = out.Agent
			}
			report.Recommendations[i].CoordinationID = coord.ID
		}
		coord.AgentResults[out.Agent] = report
		perAgent[out.Agent] = report.Recommendations
	}

	consensus := Synthesize(coord.AgentResults)
	if len(applicable) > 0 && coord.Degraded {
		consensus.Confidence *= float64(len(coord.AgentResults)) / float64(len(applicable))
	}
	coord.Consensus = &consensus

	resolution := reconciler.Resolve(perAgent)
	coord.Resolution = resolution
	coord.Conflicts = append(coord.Conflicts, resolution.Conflicts...)

	coordinatorRecs := c.coordinationRecommendations(coord, len(applicable))
	coord.Recommendations = Finalize(resolution.Consensus, coordinatorRecs)

	if err := coord.complete(c.clock.Now()); err != nil {
		return nil, err
	}
	c.store.Put(coord)

	if coord.Degraded {
		c.logger.Warn("Coordination completed with failed agents (id: %s, failed: %v)", coord.ID, coord.FailedAgents())
	}
	c.logger.Info("Coordination completed (id: %s, agents: %d, recommendations: %d, conflicts: %d, duration: %v)",
		coord.ID, len(coord.AgentResults), len(coord.Recommendations), len(coord.Conflicts), coord.Duration())

	return coord.Clone(), nil
}

func (c *Coordinator) failCoordination(coord *Coordination, cause error) (*Coordination, error) {
	if err := coord.fail(c.clock.Now(), cause); err != nil {
		return nil, err
	}
	c.store.Put(coord)
	c.logger.Error("Coordination failed (id: %s, error: %v)", coord.ID, cause)
	return coord.Clone(), cause
}

// coordinationRecommendations are produced by the coordinator itself rather than any agent
func (c *Coordinator) coordinationRecommendations(coord *Coordination, applicable int) []agents.Recommendation {
	var recs []agents.Recommendation
	add := func(category string, priority agents.Priority, action, details string) {
		recs = append(recs, agents.Recommendation{
			Category:       category,
			Priority:       priority,
			Action:         action,
			Details:        details,
			Source:         agents.CoordinatorSource,
			CoordinationID: coord.ID,
		})
	}

	if applicable == 0 {
		add("system", agents.PriorityMedium, "Provide more context for analysis",
			"No agent could analyze the supplied fields.")
	}
	if failed := coord.FailedAgents(); len(failed) > 0 {
		add("system", agents.PriorityMedium, "Re-run analysis for failed agents",
			fmt.Sprintf("Failed agents: %v", failed))
	}
	if coord.Priority == agents.PriorityCritical {
		add("safety", agents.PriorityCritical, "Activate safety protocol",
			"The process was flagged as an emergency or safety concern.")
	}
	return recs
}

// HandleEvent routes event through the event router
func (c *Coordinator) HandleEvent(ctx context.Context, event agents.Event) (*EventResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	registry, _, _ := c.snapshot()
	if registry == nil {
		return nil, errors.FatalCoordinationError("event routing", stderrors.New("agent registry not initialized"))
	}
	return c.router.Submit(event)
}

// ResolveAgentConflicts reconciles recommendations keyed by agent
func (c *Coordinator) ResolveAgentConflicts(recommendations map[agents.AgentName][]agents.Recommendation) *Resolution {
	_, _, reconciler := c.snapshot()
	return reconciler.Resolve(recommendations)
}

// GetSystemStatus runs a fresh health check and reports store and queue state
func (c *Coordinator) GetSystemStatus(ctx context.Context) SystemStatus {
	health := c.health.PerformHealthCheck(ctx)

	c.mu.RLock()
	initialized := c.registry != nil
	initErrors := append([]string(nil), c.initErrors...)
	c.mu.RUnlock()

	return SystemStatus{
		Health:               health,
		Initialized:          initialized,
		InitializationErrors: initErrors,
		Coordinations:        c.store.Counts(),
		QueueLength:          c.router.QueueLength(),
		CommunicationLogSize: c.log.Len(),
		Timestamp:            c.clock.Now(),
	}
}

// GetCoordination returns the record for id
func (c *Coordinator) GetCoordination(id string) (*Coordination, error) {
	return c.store.Get(id)
}

// ListCoordinations returns every stored record, oldest first
func (c *Coordinator) ListCoordinations() []*Coordination {
	return c.store.List()
}

// Archive removes a record from the session store
func (c *Coordinator) Archive(id string) error {
	if _, err := c.store.Archive(id); err != nil {
		return err
	}
	c.logger.Info("Coordination archived (id: %s)", id)
	return nil
}

// Reset drops every coordination and the communication log
func (c *Coordinator) Reset() {
	c.store.Reset()
	c.log.Reset()
	c.logger.Info("Coordinator reset")
}

// Router exposes the event router for callers that need to wait on the queue
func (c *Coordinator) Router() *EventRouter {
	return c.router
}

// CommunicationLog exposes the shared call log
func (c *Coordinator) CommunicationLog() *agents.CommunicationLog {
	return c.log
}

// Settings returns the active settings
func (c *Coordinator) Settings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.settings
}

// UpdateSettings applies new tuning to a running coordinator. Agent timeout and
// communication log capacity only take effect on a new coordinator.
func (c *Coordinator) UpdateSettings(settings Settings) {
	settings = settings.Normalized()
	c.mu.Lock()
	c.settings = settings
	c.reconciler = NewReconciler(settings)
	c.mu.Unlock()

	c.health.SetExpected(settings.ExpectedAgents)
	c.health.SetInterval(settings.HealthCheckInterval)
	c.health.SetTimeout(settings.HealthCheckTimeout)
	c.router.UpdateSettings(settings)

	c.logger.Info("Settings updated (agent_timeout: %v, max_concurrent_agents: %d)",
		settings.AgentTimeout, settings.MaxConcurrentAgents)
}

// StartMonitoring begins periodic health checks
func (c *Coordinator) StartMonitoring(ctx context.Context) {
	c.health.Start(ctx)
}

// LatestHealth returns the most recent periodic snapshot
func (c *Coordinator) LatestHealth() (agents.HealthSnapshot, bool) {
	return c.health.Latest()
}

// Shutdown stops health monitoring and drains the event queue
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.health.Stop()
	if err := c.router.Close(ctx); err != nil {
		return err
	}
	c.logger.Info("Coordinator shut down")
	return nil
}
