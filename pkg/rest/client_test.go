package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(strings.TrimPrefix(server.URL, "http://"))
}

func TestNewClientAppendsDefaultPort(t *testing.T) {
	client := NewClient("10.0.0.1")
	if client.baseURL != "http://10.0.0.1:8100" {
		t.Errorf("baseURL = %q, want the default port appended", client.baseURL)
	}

	client = NewClient("10.0.0.1:9999")
	if client.baseURL != "http://10.0.0.1:9999" {
		t.Errorf("baseURL = %q, an explicit port must be kept", client.baseURL)
	}
}

func TestStatus(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("path = %q, want /status", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(ServerStatus{Status: "running"})
	}))

	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.Status != "running" {
		t.Errorf("status = %q, want running", status.Status)
	}
}

func TestStartExecutionSendsForce(t *testing.T) {
	var got map[string]interface{}
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deployments/d-1/executions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(Execution{ID: "e-1", Status: ExecutionStatusPending})
	}))

	execution, err := client.StartExecution(context.Background(), "d-1", "install", true)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if execution.ID != "e-1" {
		t.Errorf("execution id = %q, want e-1", execution.ID)
	}
	if got["operation"] != "install" {
		t.Errorf("operation = %v, want install", got["operation"])
	}
	if got["force"] != true {
		t.Errorf("force = %v, want true", got["force"])
	}
}

func TestGetEventsPassesOffset(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("from") != "3" {
			t.Errorf("from = %q, want 3", r.URL.Query().Get("from"))
		}
		_ = json.NewEncoder(w).Encode(EventPage{
			Events:     []Event{{Type: "workflow_event", Message: "starting node web"}},
			NextOffset: 4,
		})
	}))

	page, err := client.GetEvents(context.Background(), "e-1", 3)
	if err != nil {
		t.Fatalf("get events failed: %v", err)
	}
	if len(page.Events) != 1 || page.NextOffset != 4 {
		t.Errorf("page = %+v", page)
	}
}

func TestHTTPErrorCarriesServerMessage(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "blueprint b-1 not found"})
	}))

	_, err := client.ListWorkflows(context.Background(), "d-1")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", httpErr.StatusCode)
	}
	if httpErr.Message != "blueprint b-1 not found" {
		t.Errorf("message = %q, want the server's message", httpErr.Message)
	}
}

func TestConnectionRefusedIsCallError(t *testing.T) {
	// A port nothing listens on.
	client := NewClient("127.0.0.1:1")

	_, err := client.ListBlueprints(context.Background())
	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
}

func TestGetExecutionTimeoutIsTyped(t *testing.T) {
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetExecution(ctx, "e-1")
	var timeoutErr *ExecutionTimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected ExecutionTimeoutError, got %v", err)
	}
	if timeoutErr.ExecutionID != "e-1" {
		t.Errorf("execution id = %q, want e-1", timeoutErr.ExecutionID)
	}
}

func TestDeleteDeploymentIgnoreLiveNodes(t *testing.T) {
	var gotQuery string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.DeleteDeployment(context.Background(), "d-1", true); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if gotQuery != "ignore_live_nodes=true" {
		t.Errorf("query = %q, want ignore_live_nodes=true", gotQuery)
	}
}

func TestProviderContextRoundTrip(t *testing.T) {
	stored := struct {
		Name    string                 `json:"name"`
		Context map[string]interface{} `json:"context"`
	}{}
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&stored); err != nil {
				t.Errorf("bad request body: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(stored)
		}
	}))

	ctx := context.Background()
	if err := client.PostProviderContext(ctx, "cosmo_baremetal", map[string]interface{}{"host": "10.0.0.9"}); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	name, providerContext, err := client.GetProviderContext(ctx)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if name != "cosmo_baremetal" {
		t.Errorf("name = %q, want cosmo_baremetal", name)
	}
	if providerContext["host"] != "10.0.0.9" {
		t.Errorf("context = %v", providerContext)
	}
}
