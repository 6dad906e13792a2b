package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.BookingCreated()
	m.BookingConflict()
	m.BookingTransition("confirmed")
	m.PaymentRecorded("cash")
	m.Refunded()
	m.SplitOutcome("completed")
	m.WebhookOutcome("applied")
	m.ObserveGateway("get_payment", time.Now(), nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("nil handler status = %d", rec.Code)
	}
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.BookingCreated()
	m.BookingConflict()
	m.WebhookOutcome("duplicate")
	m.ObserveGateway("refund", time.Now(), errors.New("down"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		"courtledger_bookings_created_total 1",
		"courtledger_booking_conflicts_total 1",
		`courtledger_webhook_events_total{outcome="duplicate"} 1`,
		`courtledger_gateway_request_duration_seconds_count{operation="refund",result="error"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
