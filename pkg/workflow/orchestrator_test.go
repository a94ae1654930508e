package workflow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cosmo-orch/cosmo/pkg/rest"
)

// fakeExecutor scripts a server-side execution: a fixed sequence of event
// batches followed by a terminal status. Each GetExecution call advances the
// server one step so polling progress drives the scripted timeline.
type fakeExecutor struct {
	mu sync.Mutex

	executionID string
	batches     [][]rest.Event
	finalStatus rest.ExecutionStatus
	finalError  string
	rejectWith  string

	polls     int
	cancelled bool
	started   bool
}

func newFakeExecutor(batches [][]rest.Event, finalStatus rest.ExecutionStatus) *fakeExecutor {
	return &fakeExecutor{
		executionID: uuid.NewString(),
		batches:     batches,
		finalStatus: finalStatus,
	}
}

func (f *fakeExecutor) StartExecution(ctx context.Context, deploymentID, operation string, force bool) (*rest.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	execution := &rest.Execution{
		ID:           f.executionID,
		DeploymentID: deploymentID,
		Operation:    operation,
		Status:       rest.ExecutionStatusPending,
	}
	if f.rejectWith != "" {
		execution.Error = f.rejectWith
	}
	return execution, nil
}

func (f *fakeExecutor) GetExecution(ctx context.Context, id string) (*rest.Execution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.executionID {
		return nil, fmt.Errorf("unknown execution %s", id)
	}
	f.polls++
	execution := &rest.Execution{ID: id, Status: rest.ExecutionStatusStarted}
	if f.polls > len(f.batches) {
		execution.Status = f.finalStatus
		execution.Error = f.finalError
	}
	return execution, nil
}

func (f *fakeExecutor) GetEvents(ctx context.Context, id string, offset int) (*rest.EventPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []rest.Event
	released := f.polls
	if released > len(f.batches) {
		released = len(f.batches)
	}
	for _, batch := range f.batches[:released] {
		all = append(all, batch...)
	}
	if offset > len(all) {
		return nil, fmt.Errorf("offset %d beyond event log", offset)
	}
	return &rest.EventPage{Events: all[offset:], NextOffset: len(all)}, nil
}

func (f *fakeExecutor) CancelExecution(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.executionID {
		return fmt.Errorf("unknown execution %s", id)
	}
	f.cancelled = true
	return nil
}

// stuckExecutor never leaves the started state.
type stuckExecutor struct {
	fakeExecutor
}

func (s *stuckExecutor) GetExecution(ctx context.Context, id string) (*rest.Execution, error) {
	return &rest.Execution{ID: s.executionID, Status: rest.ExecutionStatusStarted}, nil
}

func (s *stuckExecutor) GetEvents(ctx context.Context, id string, offset int) (*rest.EventPage, error) {
	return &rest.EventPage{NextOffset: offset}, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []rest.Event
}

func (r *recordingSink) OnEvent(event rest.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingSink) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Message
	}
	return out
}

func eventsNamed(messages ...string) []rest.Event {
	events := make([]rest.Event, len(messages))
	for i, m := range messages {
		events[i] = rest.Event{Type: "workflow_event", Message: m}
	}
	return events
}

func TestRunForwardsAllEventsInOrder(t *testing.T) {
	executor := newFakeExecutor([][]rest.Event{
		eventsNamed("starting node web"),
		eventsNamed("configuring node web", "starting node db"),
		eventsNamed("all nodes started"),
	}, rest.ExecutionStatusTerminated)
	orchestrator := NewOrchestrator(executor, WithPollInterval(time.Millisecond))
	sink := &recordingSink{}

	result, err := orchestrator.Run(context.Background(), Request{
		DeploymentID: "d-1",
		Operation:    "install",
	}, sink)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.State != StateSucceeded {
		t.Errorf("state = %s, want %s", result.State, StateSucceeded)
	}
	if result.ExecutionID != executor.executionID {
		t.Errorf("execution id = %q, want %q", result.ExecutionID, executor.executionID)
	}

	want := []string{
		"starting node web",
		"configuring node web",
		"starting node db",
		"all nodes started",
	}
	got := sink.messages()
	if len(got) != len(want) {
		t.Fatalf("forwarded %d events, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunFailedExecutionIsResultNotError(t *testing.T) {
	executor := newFakeExecutor(nil, rest.ExecutionStatusFailed)
	executor.finalError = "task install_agent failed on node web"
	orchestrator := NewOrchestrator(executor, WithPollInterval(time.Millisecond))

	result, err := orchestrator.Run(context.Background(), Request{
		DeploymentID: "d-1",
		Operation:    "install",
	}, EventSinkFunc(func(rest.Event) {}))
	if err != nil {
		t.Fatalf("a failed execution must not be a local error: %v", err)
	}
	if result.State != StateFailed {
		t.Errorf("state = %s, want %s", result.State, StateFailed)
	}
	if result.Error != executor.finalError {
		t.Errorf("error = %q, want the server's message", result.Error)
	}
}

func TestRunServerRejectionOnSubmit(t *testing.T) {
	executor := newFakeExecutor(nil, rest.ExecutionStatusFailed)
	executor.rejectWith = "deployment d-1 has an active execution"
	orchestrator := NewOrchestrator(executor, WithPollInterval(time.Millisecond))

	result, err := orchestrator.Run(context.Background(), Request{
		DeploymentID: "d-1",
		Operation:    "install",
	}, EventSinkFunc(func(rest.Event) {}))
	if err != nil {
		t.Fatalf("a rejected submission must be a Failed result, not an error: %v", err)
	}
	if result.State != StateFailed {
		t.Errorf("state = %s, want %s", result.State, StateFailed)
	}
	if result.ExecutionID == "" {
		t.Error("execution id must be reported even on rejection")
	}
}

func TestRunTimeoutLeavesExecutionRunning(t *testing.T) {
	executor := &stuckExecutor{fakeExecutor: fakeExecutor{executionID: uuid.NewString()}}
	orchestrator := NewOrchestrator(executor, WithPollInterval(time.Millisecond))

	result, err := orchestrator.Run(context.Background(), Request{
		DeploymentID: "d-1",
		Operation:    "install",
		Timeout:      20 * time.Millisecond,
	}, EventSinkFunc(func(rest.Event) {}))
	if err != nil {
		t.Fatalf("timeout must be a result, not an error: %v", err)
	}

	if result.State != StateTimedOut {
		t.Errorf("state = %s, want %s", result.State, StateTimedOut)
	}
	if result.ExecutionID == "" {
		t.Error("execution id must survive a timeout so the operator can cancel")
	}
	if !strings.Contains(result.Error, "still running") {
		t.Errorf("timeout message must say the execution is still running remotely: %q", result.Error)
	}
	if executor.cancelled {
		t.Error("timeout must not cancel the remote execution")
	}

	// The reported id works for an explicit follow-up cancel.
	if err := orchestrator.Cancel(context.Background(), result.ExecutionID); err != nil {
		t.Fatalf("cancel after timeout failed: %v", err)
	}
	if !executor.cancelled {
		t.Error("cancel request did not reach the server")
	}
}

func TestRunContextCancellationStopsPolling(t *testing.T) {
	executor := &stuckExecutor{fakeExecutor: fakeExecutor{executionID: uuid.NewString()}}
	orchestrator := NewOrchestrator(executor, WithPollInterval(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := orchestrator.Run(ctx, Request{
		DeploymentID: "d-1",
		Operation:    "install",
	}, EventSinkFunc(func(rest.Event) {}))
	if err == nil {
		t.Fatal("expected a context error")
	}
}

func TestRunCancelledExecutionState(t *testing.T) {
	executor := newFakeExecutor(nil, rest.ExecutionStatusCancelled)
	orchestrator := NewOrchestrator(executor, WithPollInterval(time.Millisecond))

	result, err := orchestrator.Run(context.Background(), Request{
		DeploymentID: "d-1",
		Operation:    "install",
	}, EventSinkFunc(func(rest.Event) {}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.State != StateCancelled {
		t.Errorf("state = %s, want %s", result.State, StateCancelled)
	}
}

// journalRecorder captures the journal calls the orchestrator makes.
type journalRecorder struct {
	mu      sync.Mutex
	started []string
	events  int
	finish  map[string]string
}

func newJournalRecorder() *journalRecorder {
	return &journalRecorder{finish: make(map[string]string)}
}

func (j *journalRecorder) RecordStart(ctx context.Context, executionID, deploymentID, operation string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started = append(j.started, executionID)
	return nil
}

func (j *journalRecorder) RecordEvent(ctx context.Context, executionID string, event rest.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events++
	return nil
}

func (j *journalRecorder) RecordFinish(ctx context.Context, executionID string, state string, message string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.finish[executionID] = state
	return nil
}

func TestRunRecordsJournalEntries(t *testing.T) {
	executor := newFakeExecutor([][]rest.Event{
		eventsNamed("starting node web"),
	}, rest.ExecutionStatusTerminated)
	journal := newJournalRecorder()
	orchestrator := NewOrchestrator(executor, WithPollInterval(time.Millisecond), WithJournal(journal))

	result, err := orchestrator.Run(context.Background(), Request{
		DeploymentID: "d-1",
		Operation:    "install",
	}, EventSinkFunc(func(rest.Event) {}))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(journal.started) != 1 || journal.started[0] != result.ExecutionID {
		t.Errorf("journal start calls = %v, want the execution id once", journal.started)
	}
	if journal.events != 1 {
		t.Errorf("journal recorded %d events, want 1", journal.events)
	}
	if state := journal.finish[result.ExecutionID]; state != string(StateSucceeded) {
		t.Errorf("journal finish state = %q, want %s", state, StateSucceeded)
	}
}
