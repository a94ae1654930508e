package rest

import "fmt"

// CallError wraps a transport-level failure reaching the management server:
// connection refused, DNS, malformed response body, and so on.
type CallError struct {
	Op  string
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("failed making a call to the management server (%s): %v", e.Op, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// HTTPError is a non-success status returned by the management server. The
// server's own message is preserved when the body carried one.
type HTTPError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("management server returned %d on %s: %s", e.StatusCode, e.Op, e.Message)
	}
	return fmt.Sprintf("management server returned %d on %s", e.StatusCode, e.Op)
}

// ExecutionTimeoutError is a REST call that stopped responding while an
// execution was in flight. It carries the execution id so the operator can
// still cancel or re-poll the execution by hand.
type ExecutionTimeoutError struct {
	Op          string
	ExecutionID string
	Err         error
}

func (e *ExecutionTimeoutError) Error() string {
	return fmt.Sprintf("management server call timed out (%s, execution %s): %v", e.Op, e.ExecutionID, e.Err)
}

func (e *ExecutionTimeoutError) Unwrap() error { return e.Err }
