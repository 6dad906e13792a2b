package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/codr1/courtledger/internal/api/authz"
	"github.com/codr1/courtledger/internal/ratelimit"
)

func TestChainMiddlewareSetsRequestIDAndActor(t *testing.T) {
	var (
		gotRequestID string
		gotActor     *authz.Actor
	)
	handler := ChainMiddleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotRequestID = RequestIDFromContext(r.Context())
			gotActor = authz.ActorFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}),
		WithActor,
		WithLogging,
		WithRecovery,
		WithRequestID,
	)

	req := httptest.NewRequest(http.MethodGet, "/bookings/1", nil)
	req.Header.Set(authz.HeaderActorID, "5")
	req.Header.Set(authz.HeaderActorRole, "staff")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotRequestID == "" || rec.Header().Get("X-Request-ID") != gotRequestID {
		t.Fatalf("request id %q, header %q", gotRequestID, rec.Header().Get("X-Request-ID"))
	}
	if gotActor == nil || gotActor.ID != 5 || !gotActor.IsStaff {
		t.Fatalf("actor = %+v", gotActor)
	}
}

func TestWithActorRejectsMalformedHeaders(t *testing.T) {
	handler := WithActor(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not run")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(authz.HeaderActorID, "nobody")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestWithRecovery(t *testing.T) {
	handler := WithRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestWithJSONBody(t *testing.T) {
	handler := WithJSONBody(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	tests := []struct {
		contentType string
		want        int
	}{
		{"application/json", http.StatusOK},
		{"application/json; charset=utf-8", http.StatusOK},
		{"", http.StatusOK},
		{"text/plain", http.StatusUnsupportedMediaType},
	}
	for _, tc := range tests {
		req := httptest.NewRequest(http.MethodPost, "/bookings", nil)
		if tc.contentType != "" {
			req.Header.Set("Content-Type", tc.contentType)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("content type %q: status = %d, want %d", tc.contentType, rec.Code, tc.want)
		}
	}
}

func TestWithTokenBucket(t *testing.T) {
	handler := WithTokenBucket(ratelimit.NewBucket(0.001, 1))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	statuses := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/payments/webhook", nil))
		statuses = append(statuses, rec.Code)
	}
	if statuses[0] != http.StatusOK || statuses[1] != http.StatusTooManyRequests {
		t.Fatalf("statuses = %v, want [200 429]", statuses)
	}
}
