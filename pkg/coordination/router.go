package coordination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fumiya-kume/repaircoord/pkg/agents"
	"github.com/fumiya-kume/repaircoord/pkg/clock"
	"github.com/fumiya-kume/repaircoord/pkg/errors"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

// EventStatus is the state of an event record
type EventStatus string

const (
	EventProcessing EventStatus = "processing"
	EventCompleted  EventStatus = "completed"
	EventFailed     EventStatus = "failed"
)

// Submission outcomes reported to the caller of HandleEvent
const (
	ResponseHandled = "handled"
	ResponseQueued  = "queued"
)

// CoordinatedAction is the reconciled reaction to one event
type CoordinatedAction struct {
	Recommendations []agents.Recommendation `json:"recommendations"`
	Conflicts       int                     `json:"conflicts"`
	Primary         *agents.Recommendation  `json:"primary,omitempty"`
}

// EventRecord tracks one event from submission to its terminal state
type EventRecord struct {
	ID                string                              `json:"id"`
	Timestamp         time.Time                           `json:"timestamp"`
	CompletedAt       time.Time                           `json:"completed_at,omitempty"`
	Event             agents.Event                        `json:"event"`
	Priority          agents.Priority                     `json:"priority"`
	InvolvedAgents    []agents.AgentName                  `json:"involved_agents"`
	Responses         map[agents.AgentName]*agents.Report `json:"responses"`
	Errors            map[agents.AgentName]string         `json:"errors,omitempty"`
	ImmediateActions  []string                            `json:"immediate_actions,omitempty"`
	CoordinatedAction *CoordinatedAction                  `json:"coordinated_action,omitempty"`
	Status            EventStatus                         `json:"status"`
}

// EventResponse is returned synchronously from HandleEvent
type EventResponse struct {
	EventID          string          `json:"event_id"`
	Status           string          `json:"status"`
	Priority         agents.Priority `json:"priority"`
	ImmediateActions []string        `json:"immediate_actions,omitempty"`
	QueuePosition    int             `json:"queue_position,omitempty"`
}

// AgentSource is the view of the registry the router needs
type AgentSource interface {
	Get(name agents.AgentName) (agents.Analyzer, bool)
	Names() []agents.AgentName
}

// RouterConfig wires an EventRouter
type RouterConfig struct {
	Settings Settings
	Invoker  *agents.Invoker
	Resolve  func(map[agents.AgentName][]agents.Recommendation) *Resolution
	Clock    clock.Clock
	IDs      IDGenerator

	// OnCritical is called inline for every critical event
	OnCritical func(record EventRecord)
	// OnProcessed is called from the drain goroutine after each queued event finishes
	OnProcessed func(record EventRecord)
}

// EventRouter handles critical events inline and drains everything else through
// a single FIFO queue, one event at a time.
type EventRouter struct {
	mu       sync.Mutex
	settings Settings
	source   AgentSource
	queue    []*EventRecord
	draining bool
	idle     chan struct{}
	closed   bool

	invoker     *agents.Invoker
	resolve     func(map[agents.AgentName][]agents.Recommendation) *Resolution
	clock       clock.Clock
	ids         IDGenerator
	onCritical  func(EventRecord)
	onProcessed func(EventRecord)
	logger      *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewEventRouter creates a router; agents are supplied later through SetSource
func NewEventRouter(config RouterConfig) *EventRouter {
	if config.Clock == nil {
		config.Clock = clock.NewRealClock()
	}
	if config.IDs == nil {
		config.IDs = DefaultIDGenerator
	}
	if config.Resolve == nil {
		config.Resolve = NewReconciler(config.Settings).Resolve
	}

	idle := make(chan struct{})
	close(idle)

	ctx, cancel := context.WithCancel(context.Background())
	return &EventRouter{
		settings:    config.Settings.Normalized(),
		idle:        idle,
		invoker:     config.Invoker,
		resolve:     config.Resolve,
		clock:       config.Clock,
		ids:         config.IDs,
		onCritical:  config.OnCritical,
		onProcessed: config.OnProcessed,
		logger:      logger.GetLogger().WithPrefix("router"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetSource sets the agents events are routed to
func (r *EventRouter) SetSource(source AgentSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source = source
}

// UpdateSettings swaps the priority, route and immediate-action tables
func (r *EventRouter) UpdateSettings(settings Settings) {
	settings = settings.Normalized()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = settings
}

// SetHooks replaces the critical and processed callbacks
func (r *EventRouter) SetHooks(onCritical, onProcessed func(EventRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onCritical = onCritical
	r.onProcessed = onProcessed
}

// Classify returns the priority of an event type
func (r *EventRouter) Classify(eventType string) agents.Priority {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings.EventPriority(eventType)
}

// Route returns the agents relevant to category. Unmapped categories go to every
// registered agent.
func (r *EventRouter) Route(category string) []agents.AgentName {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.routeLocked(category)
}

func (r *EventRouter) routeLocked(category string) []agents.AgentName {
	if names, ok := r.settings.EventRoutes[normalize(category)]; ok {
		return append([]agents.AgentName(nil), names...)
	}
	if r.source == nil {
		return nil
	}
	return r.source.Names()
}

// Submit classifies event and either handles it inline (critical) or queues it
func (r *EventRouter) Submit(event agents.Event) (*EventResponse, error) {
	if event.Type == "" {
		return nil, errors.ValidationError("event type is required")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, errors.NewError(errors.ErrorTypeFatalCoordination).
			WithMessage("event router is closed").
			Build()
	}

	record := &EventRecord{
		ID:        r.ids(),
		Timestamp: r.clock.Now(),
		Event:     event,
		Priority:  r.settings.EventPriority(event.Type),
		Responses: make(map[agents.AgentName]*agents.Report),
		Status:    EventProcessing,
	}

	if record.Priority == agents.PriorityCritical {
		record.ImmediateActions = r.settings.ImmediateActionsFor(event.Type)
		record.Status = EventCompleted
		record.CompletedAt = r.clock.Now()
		hook := r.onCritical
		r.mu.Unlock()

		r.logger.Warn("Critical event handled immediately (event_id: %s, type: %s, actions: %d)",
			record.ID, event.Type, len(record.ImmediateActions))
		if hook != nil {
			hook(*record)
		}

		return &EventResponse{
			EventID:          record.ID,
			Status:           ResponseHandled,
			Priority:         record.Priority,
			ImmediateActions: append([]string(nil), record.ImmediateActions...),
		}, nil
	}

	record.InvolvedAgents = r.routeLocked(event.Category)
	r.queue = append(r.queue, record)
	position := len(r.queue)

	if !r.draining {
		r.draining = true
		r.idle = make(chan struct{})
		go r.drain()
	}
	r.mu.Unlock()

	r.logger.Info("Event queued (event_id: %s, type: %s, priority: %s, position: %d)",
		record.ID, event.Type, record.Priority, position)

	return &EventResponse{
		EventID:       record.ID,
		Status:        ResponseQueued,
		Priority:      record.Priority,
		QueuePosition: position,
	}, nil
}

// drain processes queued events head to tail until the queue is empty. Only one
// drain runs at a time; events queued meanwhile are picked up by the running one.
func (r *EventRouter) drain() {
	for {
		r.mu.Lock()
		if len(r.queue) == 0 {
			r.draining = false
			close(r.idle)
			r.mu.Unlock()
			return
		}
		record := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		source := r.source
		hook := r.onProcessed
		r.mu.Unlock()

		r.process(record, source)

		if hook != nil {
			hook(*record)
		}
	}
}

func (r *EventRouter) process(record *EventRecord, source AgentSource) {
	record.Errors = make(map[agents.AgentName]string)

	var targets []agents.Analyzer
	for _, name := range record.InvolvedAgents {
		if source == nil {
			record.Errors[name] = "agent registry not initialized"
			continue
		}
		agent, ok := source.Get(name)
		if !ok {
			record.Errors[name] = errors.AgentUnavailableError(string(name)).Error()
			continue
		}
		targets = append(targets, agent)
	}

	outcomes := settleAll(r.ctx, r.invoker, targets, 0, func(ctx context.Context, a agents.Analyzer) (*agents.Report, error) {
		return r.invoker.Respond(ctx, a, record.Event)
	})

	perAgent := make(map[agents.AgentName][]agents.Recommendation)
	for _, out := range outcomes {
		if out.Err != nil {
			record.Errors[out.Agent] = out.Err.Error()
			continue
		}
		record.Responses[out.Agent] = out.Report
		perAgent[out.Agent] = out.Report.Recommendations
	}

	record.CompletedAt = r.clock.Now()
	if len(record.Responses) == 0 {
		record.Status = EventFailed
		r.logger.Warn("Event failed (event_id: %s, type: %s, involved: %d, errors: %d)",
			record.ID, record.Event.Type, len(record.InvolvedAgents), len(record.Errors))
		return
	}

	resolution := r.resolve(perAgent)
	action := &CoordinatedAction{
		Recommendations: resolution.Consensus,
		Conflicts:       len(resolution.Conflicts),
	}
	if len(resolution.Consensus) > 0 {
		primary := resolution.Consensus[0].Clone()
		action.Primary = &primary
	}
	record.CoordinatedAction = action
	record.Status = EventCompleted

	r.logger.Info("Event processed (event_id: %s, type: %s, responses: %d, recommendations: %d)",
		record.ID, record.Event.Type, len(record.Responses), len(action.Recommendations))
}

// QueueLength is the number of events waiting to be drained
func (r *EventRouter) QueueLength() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Draining reports whether a drain is in progress
func (r *EventRouter) Draining() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.draining
}

// WaitIdle blocks until the queue is empty and no drain is running
func (r *EventRouter) WaitIdle(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, waits for the running drain and cancels
// in-flight agent calls if ctx expires first
func (r *EventRouter) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	err := r.WaitIdle(ctx)
	r.cancel()
	if err != nil {
		return fmt.Errorf("event router did not drain: %w", err)
	}
	return nil
}

// outcome is one settled agent call
type outcome struct {
	Agent  agents.AgentName
	Report *agents.Report
	Err    error
}

// settleAll runs call for every agent concurrently and waits for all of them.
// Each goroutine returns nil so one failure never cancels the others; results
// are returned in the order of targets.
func settleAll(ctx context.Context, inv *agents.Invoker, targets []agents.Analyzer, limit int,
	call func(ctx context.Context, a agents.Analyzer) (*agents.Report, error)) []outcome {
	outcomes := make([]outcome, len(targets))
	if inv == nil {
		for i, a := range targets {
			outcomes[i] = outcome{Agent: a.Name(), Err: fmt.Errorf("no invoker configured")}
		}
		return outcomes
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, a := range targets {
		i, a := i, a
		g.Go(func() error {
			report, err := call(ctx, a)
			outcomes[i] = outcome{Agent: a.Name(), Report: report, Err: err}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return errors
	return outcomes
}
