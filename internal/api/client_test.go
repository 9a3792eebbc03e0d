package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestListTasks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/farms/7/tasks" {
			t.Errorf("path = %s, want /api/farms/7/tasks", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"tasks":[{"id":1,"farmId":7,"assigneeId":42,"title":"check irrigation","priority":"high"}]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	tasks, err := c.ListTasks(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Title != "check irrigation" || tasks[0].AssigneeID != 42 {
		t.Errorf("task = %+v", tasks[0])
	}
}

func TestRaiseAlert(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req AlertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Message != "fence breach" {
			t.Errorf("message = %q", req.Message)
		}
		json.NewEncoder(w).Encode(AlertResponse{Delivered: 3})
	}))
	defer server.Close()

	c := NewClient(server.URL, "tok")
	delivered, err := c.RaiseAlert(context.Background(), 7, "fence breach")
	if err != nil {
		t.Fatalf("RaiseAlert: %v", err)
	}
	if delivered != 3 {
		t.Errorf("delivered = %d, want 3", delivered)
	}
}

func TestRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"tasks":[]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
	if _, err := c.ListTasks(context.Background(), 1); err != nil {
		t.Fatalf("ListTasks after retries: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, "", WithRetries(3, time.Millisecond))
	_, err := c.ListTasks(context.Background(), 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Fatalf("err = %v, want 404 APIError", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}
