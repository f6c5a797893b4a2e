package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/lcollia/paytrack/internal/payment"
)

func TestMockVerifyDecodesEnvelope(t *testing.T) {
	m := NewMock()
	payload := []byte(`{"type":"checkout.session.completed","session":{"id":"cs_1","paid":true,"amount_total":500,"currency":"usd"}}`)

	ev, err := m.Verify(payload, "")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	completed, ok := ev.(payment.CheckoutCompleted)
	if !ok || !completed.Paid || completed.SessionID != "cs_1" {
		t.Fatalf("event = %#v", ev)
	}
}

func TestMockVerifyRejectsUnknownType(t *testing.T) {
	m := NewMock()
	_, err := m.Verify([]byte(`{"type":"invoice.paid","session":{"id":"in_1"}}`), "")
	if !errors.Is(err, payment.ErrUnknownEventType) {
		t.Fatalf("Verify() error = %v, want ErrUnknownEventType", err)
	}
}

func TestMockCreateSeedsLookup(t *testing.T) {
	m := NewMock()
	sess, err := m.CreateCheckoutSession(context.Background(), []string{"price_mock_tea"})
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if sess.SessionID == "" || sess.URL == "" {
		t.Fatalf("session = %+v", sess)
	}

	if _, err := m.LookupSession(context.Background(), sess.SessionID); err != nil {
		t.Fatalf("LookupSession() error = %v", err)
	}
	if _, err := m.LookupSession(context.Background(), "cs_absent"); !errors.Is(err, payment.ErrNotFound) {
		t.Fatalf("LookupSession() error = %v, want ErrNotFound", err)
	}
}
