// Package workflow drives a remote workflow execution to completion:
// submit, poll for events and status, and stop on terminal state or local
// timeout. The orchestrator and the server are two independent timelines
// joined only by polling; the poll fetch is the single blocking point in
// the loop and the timeout is re-checked on every iteration.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/cosmo-orch/cosmo/pkg/rest"
)

// State of an orchestrated execution as seen locally.
type State string

const (
	StateSubmitted State = "submitted"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateTimedOut  State = "timed_out"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the orchestration loop stops at this state.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateTimedOut, StateCancelled:
		return true
	}
	return false
}

// Request describes one execution to drive.
type Request struct {
	DeploymentID string
	Operation    string
	// Timeout is the wall-clock budget measured from submission. Zero
	// means wait indefinitely.
	Timeout time.Duration
	// Force permits starting while another execution is active on the
	// same deployment. Without it the server is free to reject the start;
	// that rejection surfaces as a Failed result, not a local error.
	Force       bool
	IncludeLogs bool
}

// Result is the terminal outcome of one Run call. ExecutionID is set as
// soon as the server issued one, even when the outcome is Failed or
// TimedOut, so the operator can cancel or re-poll the execution later.
type Result struct {
	ExecutionID string
	State       State
	Error       string
}

// EventSink receives execution events in arrival order. Events are never
// dropped and never reordered.
type EventSink interface {
	OnEvent(event rest.Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(event rest.Event)

func (f EventSinkFunc) OnEvent(event rest.Event) { f(event) }

// Executor is the remote side of the orchestration loop. *rest.Client
// implements it.
type Executor interface {
	StartExecution(ctx context.Context, deploymentID, operation string, force bool) (*rest.Execution, error)
	GetExecution(ctx context.Context, id string) (*rest.Execution, error)
	GetEvents(ctx context.Context, id string, offset int) (*rest.EventPage, error)
	CancelExecution(ctx context.Context, id string) error
}

// Journal records execution history locally. A nil journal disables
// recording. *stores.Journal implements it.
type Journal interface {
	RecordStart(ctx context.Context, executionID, deploymentID, operation string) error
	RecordEvent(ctx context.Context, executionID string, event rest.Event) error
	RecordFinish(ctx context.Context, executionID string, state string, message string) error
}

// Orchestrator runs executions against one Executor.
type Orchestrator struct {
	executor     Executor
	journal      Journal
	pollInterval time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithJournal records runs and their events through j.
func WithJournal(j Journal) Option {
	return func(o *Orchestrator) { o.journal = j }
}

// WithPollInterval overrides the delay between event polls.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.pollInterval = d }
}

// NewOrchestrator returns an orchestrator using executor.
func NewOrchestrator(executor Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		executor:     executor,
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run submits the requested operation and polls until the execution reaches
// a terminal state or the request's timeout elapses. On timeout the remote
// execution is left running: the loop merely stops waiting and reports the
// execution id so the operator can cancel or keep polling by hand. A
// non-nil error is returned only for submission or polling failures; a
// Failed execution is a Result, not an error.
func (o *Orchestrator) Run(ctx context.Context, req Request, sink EventSink) (Result, error) {
	execution, err := o.executor.StartExecution(ctx, req.DeploymentID, req.Operation, req.Force)
	if err != nil {
		return Result{}, fmt.Errorf("failed to start %s on deployment %s: %w", req.Operation, req.DeploymentID, err)
	}

	result := Result{ExecutionID: execution.ID, State: StateSubmitted}
	if execution.Error != "" {
		result.State = StateFailed
		result.Error = execution.Error
		o.finish(ctx, result)
		return result, nil
	}

	if o.journal != nil {
		if err := o.journal.RecordStart(ctx, execution.ID, req.DeploymentID, req.Operation); err != nil {
			return result, fmt.Errorf("failed to record execution start: %w", err)
		}
	}

	submittedAt := time.Now()
	result.State = StateRunning
	offset := 0

	for {
		if req.Timeout > 0 && time.Since(submittedAt) > req.Timeout {
			result.State = StateTimedOut
			result.Error = fmt.Sprintf("execution %s did not terminate within %s and is still running remotely", execution.ID, req.Timeout)
			o.finish(ctx, result)
			return result, nil
		}

		offset, err = o.forwardEvents(ctx, execution.ID, offset, sink)
		if err != nil {
			return result, err
		}

		current, err := o.executor.GetExecution(ctx, execution.ID)
		if err != nil {
			return result, fmt.Errorf("failed to poll execution %s: %w", execution.ID, err)
		}

		if current.Status.Terminal() {
			// Drain the event tail that arrived between the last poll
			// and the terminal status.
			if _, err := o.forwardEvents(ctx, execution.ID, offset, sink); err != nil {
				return result, err
			}
			result.State = terminalState(current)
			result.Error = current.Error
			o.finish(ctx, result)
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(o.pollInterval):
		}
	}
}

// Cancel sends an explicit cancel request for an execution. It returns once
// the server accepted the request; it does not wait for the execution to
// actually stop.
func (o *Orchestrator) Cancel(ctx context.Context, executionID string) error {
	if err := o.executor.CancelExecution(ctx, executionID); err != nil {
		return fmt.Errorf("failed to cancel execution %s: %w", executionID, err)
	}
	if o.journal != nil {
		_ = o.journal.RecordFinish(ctx, executionID, string(StateCancelled), "cancelled by operator")
	}
	return nil
}

func (o *Orchestrator) forwardEvents(ctx context.Context, executionID string, offset int, sink EventSink) (int, error) {
	page, err := o.executor.GetEvents(ctx, executionID, offset)
	if err != nil {
		return offset, fmt.Errorf("failed to fetch events for execution %s: %w", executionID, err)
	}
	for _, event := range page.Events {
		sink.OnEvent(event)
		if o.journal != nil {
			if err := o.journal.RecordEvent(ctx, executionID, event); err != nil {
				return offset, fmt.Errorf("failed to journal event: %w", err)
			}
		}
	}
	if page.NextOffset > offset {
		return page.NextOffset, nil
	}
	return offset + len(page.Events), nil
}

func (o *Orchestrator) finish(ctx context.Context, result Result) {
	if o.journal == nil {
		return
	}
	_ = o.journal.RecordFinish(ctx, result.ExecutionID, string(result.State), result.Error)
}

func terminalState(execution *rest.Execution) State {
	switch execution.Status {
	case rest.ExecutionStatusCancelled:
		return StateCancelled
	case rest.ExecutionStatusFailed:
		return StateFailed
	default:
		if execution.Error != "" {
			return StateFailed
		}
		return StateSucceeded
	}
}
