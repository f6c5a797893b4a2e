package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/lcollia/paytrack/internal/payment"
)

// Mock provides deterministic local behavior when no Stripe key is
// configured. It skips signature verification, so it is only wired for
// local development and tests.
type Mock struct {
	mu       sync.Mutex
	sessions map[string]payment.Lookup
	products []Product

	LookupErr error
}

func NewMock() *Mock {
	return &Mock{
		sessions: make(map[string]payment.Lookup),
		products: []Product{
			{PriceID: "price_mock_tea", Name: "Loose Leaf Tea", UnitAmount: 1200, Currency: "usd"},
			{PriceID: "price_mock_mug", Name: "Stoneware Mug", UnitAmount: 1800, Currency: "usd"},
		},
	}
}

// SetSession seeds the provider's view of a checkout session.
func (m *Mock) SetSession(lu payment.Lookup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[lu.SessionID] = lu
}

type mockEnvelope struct {
	Type    string `json:"type"`
	Session struct {
		ID            string `json:"id"`
		Paid          bool   `json:"paid"`
		CustomerEmail string `json:"customer_email"`
		AmountTotal   int64  `json:"amount_total"`
		Currency      string `json:"currency"`
	} `json:"session"`
}

// Verify decodes a simplified unsigned event envelope.
func (m *Mock) Verify(payload []byte, _ string) (payment.Event, error) {
	var env mockEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedEvent, err)
	}
	if env.Session.ID == "" {
		return nil, fmt.Errorf("%w: missing session id", payment.ErrMalformedEvent)
	}

	switch env.Type {
	case "checkout.session.completed":
		return payment.CheckoutCompleted{
			SessionID:     env.Session.ID,
			Paid:          env.Session.Paid,
			CustomerEmail: env.Session.CustomerEmail,
			AmountTotal:   env.Session.AmountTotal,
			Currency:      env.Session.Currency,
		}, nil
	case "checkout.session.async_payment_succeeded":
		return payment.AsyncPaymentSucceeded{
			SessionID:     env.Session.ID,
			CustomerEmail: env.Session.CustomerEmail,
			AmountTotal:   env.Session.AmountTotal,
			Currency:      env.Session.Currency,
		}, nil
	case "checkout.session.async_payment_failed":
		return payment.AsyncPaymentFailed{SessionID: env.Session.ID}, nil
	case "checkout.session.expired":
		return payment.CheckoutExpired{SessionID: env.Session.ID}, nil
	default:
		return nil, fmt.Errorf("%w: %s", payment.ErrUnknownEventType, env.Type)
	}
}

func (m *Mock) LookupSession(_ context.Context, sessionID string) (payment.Lookup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LookupErr != nil {
		return payment.Lookup{}, m.LookupErr
	}
	lu, ok := m.sessions[sessionID]
	if !ok {
		return payment.Lookup{}, fmt.Errorf("%w: %s", payment.ErrNotFound, sessionID)
	}
	return lu, nil
}

func (m *Mock) CreateCheckoutSession(_ context.Context, priceIDs []string) (CheckoutSession, error) {
	if len(priceIDs) == 0 {
		return CheckoutSession{}, fmt.Errorf("no price ids supplied")
	}
	id := "cs_mock_" + uuid.NewString()

	m.mu.Lock()
	m.sessions[id] = payment.Lookup{SessionID: id}
	m.mu.Unlock()

	return CheckoutSession{
		SessionID: id,
		URL:       "https://checkout.stripe.com/c/pay/" + id,
	}, nil
}

func (m *Mock) ListProducts(_ context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, len(m.products))
	copy(out, m.products)
	return out, nil
}
