package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codr1/courtledger/internal/api/authz"
	"github.com/codr1/courtledger/internal/config"
	"github.com/codr1/courtledger/internal/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Parse([]byte(`app:
  name: "courtledger"
  port: 8080
database:
  filename: "data/test.db"
payments:
  gateway_base_url: "https://gateway.test"
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return cfg
}

func TestNewServerRoutes(t *testing.T) {
	server := newServer(testConfig(t), metrics.New())

	tests := []struct {
		name   string
		method string
		path   string
		header map[string]string
		status int
	}{
		{name: "health", method: http.MethodGet, path: "/health", status: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", status: http.StatusOK},
		{name: "malformed actor", method: http.MethodGet, path: "/bookings/1", header: map[string]string{authz.HeaderActorID: "abc"}, status: http.StatusUnauthorized},
		{name: "wrong method", method: http.MethodPatch, path: "/bookings/1", status: http.StatusMethodNotAllowed},
		{name: "unknown route", method: http.MethodGet, path: "/reservations", status: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			for k, v := range tc.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			server.Handler.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Fatalf("missing X-Request-ID")
			}
		})
	}
}

func TestNewServerWithoutMetrics(t *testing.T) {
	server := newServer(testConfig(t), nil)
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("metrics status = %d, want 404 when disabled", rec.Code)
	}
	if server.Addr != ":8080" {
		t.Fatalf("addr = %q", server.Addr)
	}
}
