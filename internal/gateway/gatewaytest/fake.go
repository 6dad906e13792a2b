// Package gatewaytest provides an in-memory payment gateway for tests.
package gatewaytest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/codr1/courtledger/internal/gateway"
	"github.com/codr1/courtledger/internal/models"
)

type Fake struct {
	mu          sync.Mutex
	payments    map[string]gateway.Payment
	Preferences []gateway.PreferenceRequest
	Refunds     []string
	GetCalls    int

	// Err, when set, is returned by every call.
	Err error
}

func New() *Fake {
	return &Fake{payments: map[string]gateway.Payment{}}
}

// SetPayment registers the gateway's canonical state for paymentID.
func (f *Fake) SetPayment(paymentID, status, externalReference string, amountCents int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	payment := gateway.Payment{
		ID:                paymentID,
		Status:            status,
		ExternalReference: externalReference,
		AmountCents:       amountCents,
	}
	raw, _ := json.Marshal(map[string]any{
		"id":                       paymentID,
		"status":                   status,
		"external_reference":       externalReference,
		"transaction_amount_cents": amountCents,
	})
	payment.Raw = raw
	f.payments[paymentID] = payment
}

func (f *Fake) CreatePreference(_ context.Context, req gateway.PreferenceRequest) (gateway.Preference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return gateway.Preference{}, f.Err
	}
	f.Preferences = append(f.Preferences, req)
	id := fmt.Sprintf("pref-%d", len(f.Preferences))
	return gateway.Preference{ID: id, InitPoint: "https://gateway.test/checkout/" + id}, nil
}

func (f *Fake) GetPayment(_ context.Context, paymentID string) (gateway.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++
	if f.Err != nil {
		return gateway.Payment{}, f.Err
	}
	payment, ok := f.payments[paymentID]
	if !ok {
		return gateway.Payment{}, fmt.Errorf("payment %s: %w", paymentID, models.ErrUnknownReference)
	}
	return payment, nil
}

func (f *Fake) Refund(_ context.Context, paymentID string, amountCents int64) (gateway.Refund, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return gateway.Refund{}, f.Err
	}
	f.Refunds = append(f.Refunds, paymentID)
	return gateway.Refund{ID: "refund-" + paymentID, Status: gateway.StatusApproved, AmountCents: amountCents}, nil
}

func (f *Fake) GetPaymentCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.GetCalls
}

var _ gateway.Client = (*Fake)(nil)
