package ticketing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPClientCreate(t *testing.T) {
	var gotReq CreateRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/workorders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"order_id":"OS-REMOTE01"}}`))
	}))
	t.Cleanup(srv.Close)

	client := NewHTTPClient(srv.URL, "secret-key", 5*time.Second)
	orderID, err := client.Create(context.Background(), sampleRequest())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if orderID != "OS-REMOTE01" {
		t.Errorf("orderID = %q, want %q", orderID, "OS-REMOTE01")
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret-key")
	}
	if gotReq.Title != "CH670 harvester not starting" {
		t.Errorf("gotReq.Title = %q, want %q", gotReq.Title, "CH670 harvester not starting")
	}
	if gotReq.Specialist != "Agricultural Machinery Mechanic" {
		t.Errorf("gotReq.Specialist = %q, want %q", gotReq.Specialist, "Agricultural Machinery Mechanic")
	}
}

func TestHTTPClientCreateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := NewHTTPClient(srv.URL, "", 5*time.Second)
	_, err := client.Create(context.Background(), sampleRequest())
	if err == nil {
		t.Fatal("Create() should fail on a 500 response")
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("Create() error = %v, want status code in message", err)
	}
}

func TestHTTPClientCreateMissingOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{}}`))
	}))
	t.Cleanup(srv.Close)

	client := NewHTTPClient(srv.URL, "", 5*time.Second)
	_, err := client.Create(context.Background(), sampleRequest())
	if err == nil {
		t.Fatal("Create() should fail when the response has no order id")
	}
}

func TestHTTPClientCreateCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"order_id":"OS-REMOTE01"}}`))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewHTTPClient(srv.URL, "", 5*time.Second)
	if _, err := client.Create(ctx, sampleRequest()); err == nil {
		t.Fatal("Create() should fail with a cancelled context")
	}
}
