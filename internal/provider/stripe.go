package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/lcollia/paytrack/internal/payment"
	"github.com/lcollia/paytrack/internal/reliability"
)

// StripeConfig carries the credentials and URLs the Stripe provider needs.
type StripeConfig struct {
	SecretKey        string
	WebhookSecret    string
	WebhookTolerance time.Duration
	BaseURL          string
}

// Stripe talks to the real payment processor. Webhook signature checking is
// delegated to stripe-go's webhook primitive (HMAC recompute, constant-time
// compare, timestamp tolerance).
type Stripe struct {
	api              *client.API
	webhookSecret    string
	webhookTolerance time.Duration
	successURL       string
	cancelURL        string
}

func NewStripe(cfg StripeConfig) *Stripe {
	api := &client.API{}
	api.Init(cfg.SecretKey, nil)

	tolerance := cfg.WebhookTolerance
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}

	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Stripe{
		api:              api,
		webhookSecret:    cfg.WebhookSecret,
		webhookTolerance: tolerance,
		successURL:       base + "/success?session_id={CHECKOUT_SESSION_ID}",
		cancelURL:        base + "/cancel",
	}
}

// Verify authenticates a raw webhook payload against its signature header
// and decodes it into a typed lifecycle event. Verification runs over the
// raw bytes exactly as received.
func (s *Stripe) Verify(payload []byte, sigHeader string) (payment.Event, error) {
	ev, err := webhook.ConstructEventWithTolerance(payload, sigHeader, s.webhookSecret, s.webhookTolerance)
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", payment.ErrSignatureInvalid, err)
		}
		return nil, fmt.Errorf("%w: %v", payment.ErrMalformedEvent, err)
	}
	return eventFromStripe(ev)
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrTooOld)
}

func eventFromStripe(ev stripe.Event) (payment.Event, error) {
	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: %v", payment.ErrMalformedEvent, err)
		}
		if sess.ID == "" {
			return nil, fmt.Errorf("%w: event %s carries no session id", payment.ErrMalformedEvent, ev.Type)
		}
		if ev.Type == stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded {
			return payment.AsyncPaymentSucceeded{
				SessionID:     sess.ID,
				CustomerEmail: sessionEmail(&sess),
				AmountTotal:   sess.AmountTotal,
				Currency:      string(sess.Currency),
			}, nil
		}
		return payment.CheckoutCompleted{
			SessionID:     sess.ID,
			Paid:          sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
			CustomerEmail: sessionEmail(&sess),
			AmountTotal:   sess.AmountTotal,
			Currency:      string(sess.Currency),
		}, nil

	case stripe.EventTypeCheckoutSessionAsyncPaymentFailed,
		stripe.EventTypeCheckoutSessionExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("%w: %v", payment.ErrMalformedEvent, err)
		}
		if sess.ID == "" {
			return nil, fmt.Errorf("%w: event %s carries no session id", payment.ErrMalformedEvent, ev.Type)
		}
		if ev.Type == stripe.EventTypeCheckoutSessionExpired {
			return payment.CheckoutExpired{SessionID: sess.ID}, nil
		}
		return payment.AsyncPaymentFailed{SessionID: sess.ID}, nil

	default:
		return nil, fmt.Errorf("%w: %s", payment.ErrUnknownEventType, ev.Type)
	}
}

func sessionEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.CustomerEmail
}

// LookupSession retrieves the provider's current view of a session, with one
// backoff retry on transient transport failures.
func (s *Stripe) LookupSession(ctx context.Context, sessionID string) (payment.Lookup, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt, 100*time.Millisecond, time.Second)
			select {
			case <-ctx.Done():
				return payment.Lookup{}, fmt.Errorf("%w: %v", payment.ErrLookupFailed, ctx.Err())
			case <-time.After(wait):
			}
		}

		params := &stripe.CheckoutSessionParams{}
		params.Context = ctx
		sess, err := s.api.CheckoutSessions.Get(sessionID, params)
		if err == nil {
			return payment.Lookup{
				SessionID:        sess.ID,
				Paid:             sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
				CheckoutComplete: sess.Status == stripe.CheckoutSessionStatusComplete,
				CustomerEmail:    sessionEmail(sess),
				AmountTotal:      sess.AmountTotal,
				Currency:         string(sess.Currency),
			}, nil
		}

		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			if stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripe.ErrorCodeResourceMissing {
				return payment.Lookup{}, fmt.Errorf("%w: %s", payment.ErrNotFound, sessionID)
			}
			if !reliability.IsRetryableHTTPStatus(stripeErr.HTTPStatusCode) {
				return payment.Lookup{}, fmt.Errorf("%w: %v", payment.ErrLookupFailed, err)
			}
		}
		lastErr = err
	}
	return payment.Lookup{}, fmt.Errorf("%w: %v", payment.ErrLookupFailed, lastErr)
}

// CreateCheckoutSession opens a payment-mode checkout for the given price
// identifiers and returns the redirect URL.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, priceIDs []string) (CheckoutSession, error) {
	if len(priceIDs) == 0 {
		return CheckoutSession{}, errors.New("no price ids supplied")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
	}
	params.Context = ctx
	for _, priceID := range priceIDs {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		})
	}

	sess, err := s.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// ListProducts returns the active prices with their product names.
func (s *Stripe) ListProducts(ctx context.Context) ([]Product, error) {
	params := &stripe.PriceListParams{Active: stripe.Bool(true)}
	params.Context = ctx
	params.AddExpand("data.product")

	var products []Product
	iter := s.api.Prices.List(params)
	for iter.Next() {
		price := iter.Price()
		name := ""
		if price.Product != nil {
			name = price.Product.Name
		}
		products = append(products, Product{
			PriceID:    price.ID,
			Name:       name,
			UnitAmount: price.UnitAmount,
			Currency:   string(price.Currency),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list prices: %w", err)
	}
	return products, nil
}
