package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"

	"github.com/lcollia/paytrack/internal/payment"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(t *testing.T, eventType string, object map[string]any) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":          "evt_test_1",
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        eventType,
		"data":        map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal event payload: %v", err)
	}
	return body
}

func newTestStripe() *Stripe {
	return NewStripe(StripeConfig{
		SecretKey:        "sk_test_key",
		WebhookSecret:    testWebhookSecret,
		WebhookTolerance: 5 * time.Minute,
		BaseURL:          "http://localhost:8080",
	})
}

func TestVerifyDecodesCompletedPaidEvent(t *testing.T) {
	s := newTestStripe()
	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"id":             "cs_1",
		"payment_status": "paid",
		"customer_email": "a@b.com",
		"amount_total":   500,
		"currency":       "usd",
	})

	ev, err := s.Verify(payload, signPayload(payload, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	completed, ok := ev.(payment.CheckoutCompleted)
	if !ok {
		t.Fatalf("event type = %T, want CheckoutCompleted", ev)
	}
	if !completed.Paid {
		t.Fatalf("Paid = false, want true")
	}
	if completed.SessionID != "cs_1" || completed.CustomerEmail != "a@b.com" ||
		completed.AmountTotal != 500 || completed.Currency != "usd" {
		t.Fatalf("decoded event = %+v", completed)
	}
}

func TestVerifyPrefersCustomerDetailsEmail(t *testing.T) {
	s := newTestStripe()
	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"id":               "cs_1",
		"payment_status":   "paid",
		"customer_details": map[string]any{"email": "details@b.com"},
	})

	ev, err := s.Verify(payload, signPayload(payload, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got := ev.(payment.CheckoutCompleted).CustomerEmail; got != "details@b.com" {
		t.Fatalf("CustomerEmail = %q, want %q", got, "details@b.com")
	}
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	s := newTestStripe()
	payload := eventPayload(t, "checkout.session.completed", map[string]any{
		"id":             "cs_1",
		"payment_status": "paid",
	})
	header := signPayload(payload, testWebhookSecret, time.Now())

	tampered := make([]byte, len(payload))
	copy(tampered, payload)
	tampered[len(tampered)/2] ^= 0x01

	_, err := s.Verify(tampered, header)
	if !errors.Is(err, payment.ErrSignatureInvalid) {
		t.Fatalf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	s := newTestStripe()
	payload := eventPayload(t, "checkout.session.completed", map[string]any{"id": "cs_1"})
	header := signPayload(payload, testWebhookSecret, time.Now().Add(-time.Hour))

	_, err := s.Verify(payload, header)
	if !errors.Is(err, payment.ErrSignatureInvalid) {
		t.Fatalf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifyRejectsMissingHeader(t *testing.T) {
	s := newTestStripe()
	payload := eventPayload(t, "checkout.session.completed", map[string]any{"id": "cs_1"})

	_, err := s.Verify(payload, "")
	if !errors.Is(err, payment.ErrSignatureInvalid) {
		t.Fatalf("Verify() error = %v, want ErrSignatureInvalid", err)
	}
}

func TestVerifyRejectsUnparsableSignedBody(t *testing.T) {
	s := newTestStripe()
	payload := []byte(`{"type": "checkout.session.completed", truncated`)

	_, err := s.Verify(payload, signPayload(payload, testWebhookSecret, time.Now()))
	if !errors.Is(err, payment.ErrMalformedEvent) {
		t.Fatalf("Verify() error = %v, want ErrMalformedEvent", err)
	}
}

func TestVerifyRejectsEventWithoutSessionID(t *testing.T) {
	s := newTestStripe()
	payload := eventPayload(t, "checkout.session.expired", map[string]any{})

	_, err := s.Verify(payload, signPayload(payload, testWebhookSecret, time.Now()))
	if !errors.Is(err, payment.ErrMalformedEvent) {
		t.Fatalf("Verify() error = %v, want ErrMalformedEvent", err)
	}
}

func TestVerifySurfacesUnknownEventType(t *testing.T) {
	s := newTestStripe()
	payload := eventPayload(t, "invoice.paid", map[string]any{"id": "in_1"})

	_, err := s.Verify(payload, signPayload(payload, testWebhookSecret, time.Now()))
	if !errors.Is(err, payment.ErrUnknownEventType) {
		t.Fatalf("Verify() error = %v, want ErrUnknownEventType", err)
	}
}

func TestVerifyDecodesFailureAndExpiry(t *testing.T) {
	s := newTestStripe()

	payload := eventPayload(t, "checkout.session.async_payment_failed", map[string]any{"id": "cs_2"})
	ev, err := s.Verify(payload, signPayload(payload, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if failed, ok := ev.(payment.AsyncPaymentFailed); !ok || failed.SessionID != "cs_2" {
		t.Fatalf("event = %#v, want AsyncPaymentFailed{cs_2}", ev)
	}

	payload = eventPayload(t, "checkout.session.expired", map[string]any{"id": "cs_3"})
	ev, err = s.Verify(payload, signPayload(payload, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if expired, ok := ev.(payment.CheckoutExpired); !ok || expired.SessionID != "cs_3" {
		t.Fatalf("event = %#v, want CheckoutExpired{cs_3}", ev)
	}
}

func stripeWithBackend(url string, httpClient *http.Client) *Stripe {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:        stripe.String(url),
		HTTPClient: httpClient,
	})
	api := &client.API{}
	api.Init("sk_test_key", &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &Stripe{
		api:              api,
		webhookSecret:    testWebhookSecret,
		webhookTolerance: 5 * time.Minute,
	}
}

func TestLookupSessionMapsProviderView(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "cs_1",
			"object":         "checkout.session",
			"status":         "complete",
			"payment_status": "unpaid",
			"customer_email": "a@b.com",
			"amount_total":   500,
			"currency":       "usd",
		})
	}))
	defer ts.Close()

	s := stripeWithBackend(ts.URL, ts.Client())
	lu, err := s.LookupSession(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("LookupSession() error = %v", err)
	}
	if lu.Paid {
		t.Fatalf("Paid = true, want false for unpaid session")
	}
	if !lu.CheckoutComplete {
		t.Fatalf("CheckoutComplete = false, want true")
	}
	if lu.CustomerEmail != "a@b.com" || lu.AmountTotal != 500 || lu.Currency != "usd" {
		t.Fatalf("lookup = %+v", lu)
	}
}

func TestLookupSessionUnknownIsNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"type":    "invalid_request_error",
				"code":    "resource_missing",
				"message": "No such checkout.session",
			},
		})
	}))
	defer ts.Close()

	s := stripeWithBackend(ts.URL, ts.Client())
	_, err := s.LookupSession(context.Background(), "cs_missing")
	if !errors.Is(err, payment.ErrNotFound) {
		t.Fatalf("LookupSession() error = %v, want ErrNotFound", err)
	}
}
