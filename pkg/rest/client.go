// Package rest is the HTTP client for the Cosmo management server's REST
// service. Failures are typed: CallError for transport problems, HTTPError
// for non-success statuses, and ExecutionTimeoutError for calls that stop
// responding mid-execution.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultPort = 8100

// Client talks to one management server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the management server at address. A bare
// host gets the default management port.
func NewClient(address string) *Client {
	base := address
	if !strings.Contains(address, ":") {
		base = fmt.Sprintf("%s:%d", address, defaultPort)
	}
	return &Client{
		baseURL: "http://" + base,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Status pings the REST service.
func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	status := &ServerStatus{}
	if err := c.doJSON(ctx, http.MethodGet, "/status", nil, status); err != nil {
		return nil, err
	}
	return status, nil
}

// ListBlueprints returns all blueprints on the server.
func (c *Client) ListBlueprints(ctx context.Context) ([]Blueprint, error) {
	var blueprints []Blueprint
	if err := c.doJSON(ctx, http.MethodGet, "/blueprints", nil, &blueprints); err != nil {
		return nil, err
	}
	return blueprints, nil
}

// PublishBlueprint uploads the blueprint archive at path. The server assigns
// the id when requestedID is empty.
func (c *Client) PublishBlueprint(ctx context.Context, path, requestedID string) (*Blueprint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &CallError{Op: "publish blueprint", Err: err}
	}
	defer file.Close()

	endpoint := "/blueprints"
	if requestedID != "" {
		endpoint += "?id=" + url.QueryEscape(requestedID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, file)
	if err != nil {
		return nil, &CallError{Op: "publish blueprint", Err: err}
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Blueprint-Filename", filepath.Base(path))

	blueprint := &Blueprint{}
	if err := c.send(req, "publish blueprint", blueprint); err != nil {
		return nil, err
	}
	return blueprint, nil
}

// DeleteBlueprint removes a blueprint from the server.
func (c *Client) DeleteBlueprint(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/blueprints/"+url.PathEscape(id), nil, nil)
}

// ListDeployments returns all deployments on the server.
func (c *Client) ListDeployments(ctx context.Context) ([]Deployment, error) {
	var deployments []Deployment
	if err := c.doJSON(ctx, http.MethodGet, "/deployments", nil, &deployments); err != nil {
		return nil, err
	}
	return deployments, nil
}

// CreateDeployment creates a deployment of blueprintID. The server assigns
// the deployment id when requestedID is empty.
func (c *Client) CreateDeployment(ctx context.Context, blueprintID, requestedID string) (*Deployment, error) {
	body := map[string]string{"blueprint_id": blueprintID}
	if requestedID != "" {
		body["id"] = requestedID
	}
	deployment := &Deployment{}
	if err := c.doJSON(ctx, http.MethodPost, "/deployments", body, deployment); err != nil {
		return nil, err
	}
	return deployment, nil
}

// DeleteDeployment removes a deployment. ignoreLiveNodes lets the server
// delete even when the deployment still has running nodes.
func (c *Client) DeleteDeployment(ctx context.Context, id string, ignoreLiveNodes bool) error {
	endpoint := "/deployments/" + url.PathEscape(id)
	if ignoreLiveNodes {
		endpoint += "?ignore_live_nodes=true"
	}
	return c.doJSON(ctx, http.MethodDelete, endpoint, nil, nil)
}

// ListWorkflows returns the workflows a deployment exposes.
func (c *Client) ListWorkflows(ctx context.Context, deploymentID string) ([]Workflow, error) {
	var workflows []Workflow
	endpoint := "/deployments/" + url.PathEscape(deploymentID) + "/workflows"
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

// StartExecution asks the server to start operation on the deployment. With
// force the server permits starting while another execution is active;
// without it a concurrent start is rejected by the server and surfaces in
// the returned execution's error field, not as a local error.
func (c *Client) StartExecution(ctx context.Context, deploymentID, operation string, force bool) (*Execution, error) {
	body := map[string]interface{}{"operation": operation, "force": force}
	execution := &Execution{}
	endpoint := "/deployments/" + url.PathEscape(deploymentID) + "/executions"
	if err := c.doJSON(ctx, http.MethodPost, endpoint, body, execution); err != nil {
		return nil, err
	}
	return execution, nil
}

// GetExecution fetches the current state of an execution.
func (c *Client) GetExecution(ctx context.Context, id string) (*Execution, error) {
	execution := &Execution{}
	if err := c.doJSON(ctx, http.MethodGet, "/executions/"+url.PathEscape(id), nil, execution); err != nil {
		if isTimeout(err) {
			return nil, &ExecutionTimeoutError{Op: "get execution", ExecutionID: id, Err: err}
		}
		return nil, err
	}
	return execution, nil
}

// GetEvents fetches events for an execution starting at offset.
func (c *Client) GetEvents(ctx context.Context, id string, offset int) (*EventPage, error) {
	page := &EventPage{}
	endpoint := fmt.Sprintf("/executions/%s/events?from=%d", url.PathEscape(id), offset)
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, page); err != nil {
		if isTimeout(err) {
			return nil, &ExecutionTimeoutError{Op: "get events", ExecutionID: id, Err: err}
		}
		return nil, err
	}
	return page, nil
}

// CancelExecution sends an explicit cancel request. It does not wait for the
// server to acknowledge completion of the cancellation.
func (c *Client) CancelExecution(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/executions/"+url.PathEscape(id)+"/cancel", nil, nil)
}

// GetProviderContext fetches the provider context stored on the server.
func (c *Client) GetProviderContext(ctx context.Context) (string, map[string]interface{}, error) {
	payload := struct {
		Name    string                 `json:"name"`
		Context map[string]interface{} `json:"context"`
	}{}
	if err := c.doJSON(ctx, http.MethodGet, "/provider/context", nil, &payload); err != nil {
		return "", nil, err
	}
	return payload.Name, payload.Context, nil
}

// PostProviderContext stores the provider context on the server.
func (c *Client) PostProviderContext(ctx context.Context, name string, providerContext map[string]interface{}) error {
	payload := map[string]interface{}{"name": name, "context": providerContext}
	return c.doJSON(ctx, http.MethodPost, "/provider/context", payload, nil)
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body, out interface{}) error {
	op := method + " " + endpoint
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &CallError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return &CallError{Op: op, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, op, out)
}

func (c *Client) send(req *http.Request, op string, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &CallError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Op: op, StatusCode: resp.StatusCode, Message: readServerMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &CallError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func readServerMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	payload := struct {
		Message string `json:"message"`
	}{}
	if json.Unmarshal(data, &payload) == nil && payload.Message != "" {
		return payload.Message
	}
	return string(bytes.TrimSpace(data))
}

func isTimeout(err error) bool {
	var callErr *CallError
	if !errors.As(err, &callErr) {
		return false
	}
	var netErr interface{ Timeout() bool }
	if errors.As(callErr.Err, &netErr) {
		return netErr.Timeout()
	}
	return errors.Is(callErr.Err, context.DeadlineExceeded)
}
