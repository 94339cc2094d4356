package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testServer(handler http.HandlerFunc) (*httptest.Server, *Client) {
	srv := httptest.NewServer(handler)
	client := NewClient(srv.URL, 5*time.Second)
	return srv, client
}

func TestNetworkRequests(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions/SESSION_DEV_c1_1/network-requests" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]NetworkRequest{
			{Direction: DirectionOutbound, Destination: DestAuthService, Success: true},
			{Direction: DirectionOutbound, Destination: DestMuleService, Success: true, ResponseBody: `{"start_url":"https://cat.example.com/x"}`},
		})
	})
	defer srv.Close()

	entries, err := client.NetworkRequests(context.Background(), "SESSION_DEV_c1_1")
	if err != nil {
		t.Fatalf("NetworkRequests: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].Destination != DestAuthService {
		t.Errorf("destination = %q", entries[0].Destination)
	}
	if !entries[1].Success {
		t.Error("second entry should be successful")
	}
}

func TestGetSession(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sessions/key-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Session{SessionKey: "key-1", Catalog: "https://cat.example.com/y"})
	})
	defer srv.Close()

	s, err := client.GetSession(context.Background(), "key-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s.Catalog != "https://cat.example.com/y" {
		t.Errorf("catalog = %q", s.Catalog)
	}
}

func TestCreateTestRecord(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/punchout-tests" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q", r.Method)
		}
		var rec TestRecord
		json.NewDecoder(r.Body).Decode(&rec)
		if rec.Status != TestStatusSuccess {
			t.Errorf("status = %q", rec.Status)
		}
		if rec.SessionKey != "key-2" {
			t.Errorf("session key = %q", rec.SessionKey)
		}
		w.WriteHeader(http.StatusCreated)
	})
	defer srv.Close()

	err := client.CreateTestRecord(context.Background(), &TestRecord{
		TestName:    "smoke",
		Environment: "DEV",
		Tester:      "admin",
		Status:      TestStatusSuccess,
		SessionKey:  "key-2",
	})
	if err != nil {
		t.Fatalf("CreateTestRecord: %v", err)
	}
}

func TestHTTPErrorSurfaces(t *testing.T) {
	srv, client := testServer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	defer srv.Close()

	if _, err := client.NetworkRequests(context.Background(), "k"); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}
