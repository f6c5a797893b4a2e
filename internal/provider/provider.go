// Package provider wraps the payment processor: webhook event verification,
// live session lookup for the pull path, and the thin collaborator calls
// (checkout session creation, product listing).
package provider

import "context"

// CheckoutSession is a newly created checkout session the buyer gets
// redirected to.
type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// Product is a purchasable price entry from the provider's catalog.
type Product struct {
	PriceID    string `json:"price_id"`
	Name       string `json:"name"`
	UnitAmount int64  `json:"unit_amount"`
	Currency   string `json:"currency"`
}

// Checkout covers the collaborator calls this service makes on behalf of
// the agent surface. Session status lookup lives on payment.ProviderLookup.
type Checkout interface {
	CreateCheckoutSession(ctx context.Context, priceIDs []string) (CheckoutSession, error)
	ListProducts(ctx context.Context) ([]Product, error)
}
