package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/codr1/courtledger/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewHTTPClient(Config{BaseURL: server.URL + "/", AccessToken: "token", Timeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	return client
}

func TestCreatePreference(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/checkout/preferences" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("authorization = %q", got)
		}
		var req PreferenceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ExternalReference != "12" || len(req.Items) != 1 || req.Items[0].UnitPriceCents != 5000 {
			t.Errorf("request = %+v", req)
		}
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://pay.example/pref-1"}`))
	})

	pref, err := client.CreatePreference(context.Background(), PreferenceRequest{
		ExternalReference: "12",
		Items:             []PreferenceItem{{Title: "Court", Quantity: 1, UnitPriceCents: 5000, Currency: "USD"}},
	})
	if err != nil {
		t.Fatalf("CreatePreference: %v", err)
	}
	if pref.ID != "pref-1" || pref.InitPoint != "https://pay.example/pref-1" {
		t.Fatalf("preference = %+v", pref)
	}
}

func TestGetPaymentKeepsRawBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/987" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"approved","external_reference":"3_4","transaction_amount_cents":2500,"extra":true}`))
	})

	payment, err := client.GetPayment(context.Background(), "987")
	if err != nil {
		t.Fatalf("GetPayment: %v", err)
	}
	if payment.ID != "987" || payment.Status != StatusApproved || payment.ExternalReference != "3_4" || payment.AmountCents != 2500 {
		t.Fatalf("payment = %+v", payment)
	}
	if !strings.Contains(string(payment.Raw), `"extra":true`) {
		t.Fatalf("raw body not preserved: %s", payment.Raw)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, models.ErrUnknownReference},
		{"server error", http.StatusBadGateway, models.ErrGatewayUnavailable},
		{"throttled", http.StatusTooManyRequests, models.ErrGatewayUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tc.status)
			})
			_, err := client.GetPayment(context.Background(), "1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			var statusErr *StatusError
			if !errors.As(err, &statusErr) || statusErr.Code != tc.status {
				t.Fatalf("expected StatusError with code %d, got %v", tc.status, err)
			}
		})
	}
}

func TestUnreachableGateway(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client, err := NewHTTPClient(Config{BaseURL: server.URL, Timeout: 200 * time.Millisecond}, nil)
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if _, err := client.Refund(context.Background(), "1", 100); !errors.Is(err, models.ErrGatewayUnavailable) {
		t.Fatalf("error = %v, want gateway unavailable", err)
	}
}

func TestRefund(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/payments/55/refunds" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"r-1","status":"approved","amount_cents":700}`))
	})

	refund, err := client.Refund(context.Background(), "55", 700)
	if err != nil {
		t.Fatalf("Refund: %v", err)
	}
	if refund.ID != "r-1" || refund.AmountCents != 700 {
		t.Fatalf("refund = %+v", refund)
	}
}

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	if _, err := NewHTTPClient(Config{}, nil); err == nil {
		t.Fatalf("expected error without base url")
	}
}
