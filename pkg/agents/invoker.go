package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/fumiya-kume/repaircoord/pkg/clock"
	"github.com/fumiya-kume/repaircoord/pkg/errors"
	"github.com/fumiya-kume/repaircoord/pkg/logger"
)

// DefaultAgentTimeout bounds a single agent call
const DefaultAgentTimeout = 30 * time.Second

// CallFunc is one typed agent capability bound to its arguments
type CallFunc func(ctx context.Context) (*Report, error)

// Invoker calls agents uniformly: every call is timeout-wrapped, panics are
// turned into failures and the outcome is recorded in the communication log.
type Invoker struct {
	Log     *CommunicationLog
	Clock   clock.Clock
	Timeout time.Duration
	logger  *logger.Logger
}

// NewInvoker creates an invoker recording into log
func NewInvoker(log *CommunicationLog, clk clock.Clock, timeout time.Duration) *Invoker {
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}
	return &Invoker{
		Log:     log,
		Clock:   clk,
		Timeout: timeout,
		logger:  logger.GetLogger().WithPrefix("invoker"),
	}
}

type callOutcome struct {
	report *Report
	err    error
}

// Call runs fn for agent and always returns, even if fn ignores ctx.
// Failures are wrapped as agent execution errors.
func (inv *Invoker) Call(ctx context.Context, agent AgentName, operation string, fn CallFunc) (*Report, error) {
	start := inv.Clock.Now()

	callCtx, cancel := context.WithTimeout(ctx, inv.Timeout)
	defer cancel()

	done := make(chan callOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callOutcome{err: fmt.Errorf("agent panicked: %v", r)}
			}
		}()
		report, err := fn(callCtx)
		done <- callOutcome{report: report, err: err}
	}()

	var out callOutcome
	select {
	case out = <-done:
	case <-callCtx.Done():
		if ctx.Err() != nil {
			out.err = ctx.Err()
		} else {
			out.err = errors.TimeoutError(fmt.Sprintf("%s %s", agent, operation), inv.Timeout)
		}
	}

	if out.err == nil && out.report == nil {
		out.err = fmt.Errorf("agent returned no report")
	}
	if out.err == nil && out.report.Agent == "" {
		out.report.Agent = agent
	}

	entry := LogEntry{
		Agent:     agent,
		Operation: operation,
		Duration:  inv.Clock.Since(start),
		Success:   out.err == nil,
		Timestamp: inv.Clock.Now(),
	}
	if out.err != nil {
		entry.Error = out.err.Error()
	}
	if inv.Log != nil {
		inv.Log.Record(entry)
	}

	if out.err != nil {
		inv.logger.Warn("Agent call failed (agent: %s, operation: %s, error: %v)", agent, operation, out.err)
		return nil, errors.AgentExecutionError(string(agent), out.err)
	}

	inv.logger.Debug("Agent call completed (agent: %s, operation: %s, duration: %v)", agent, operation, entry.Duration)
	return out.report, nil
}

// Analyze invokes the agent's Analyze capability
func (inv *Invoker) Analyze(ctx context.Context, a Analyzer, actx AnalysisContext) (*Report, error) {
	return inv.Call(ctx, a.Name(), OperationAnalyze, func(ctx context.Context) (*Report, error) {
		return a.Analyze(ctx, actx)
	})
}

// Respond invokes RespondToEvent, falling back to Analyze over the event payload
func (inv *Invoker) Respond(ctx context.Context, a Analyzer, event Event) (*Report, error) {
	return inv.Call(ctx, a.Name(), OperationRespond, func(ctx context.Context) (*Report, error) {
		if responder, ok := a.(EventResponder); ok {
			return responder.RespondToEvent(ctx, event)
		}
		return a.Analyze(ctx, EventContext(event))
	})
}

// EventContext converts an event into an analysis context for agents that only analyze
func EventContext(event Event) AnalysisContext {
	actx := AnalysisContext{}
	for k, v := range event.Payload {
		actx[k] = v
	}
	actx["event_type"] = event.Type
	actx["event_category"] = event.Category
	return actx
}
