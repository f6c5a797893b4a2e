package payment

import "errors"

var (
	// ErrSignatureInvalid means the webhook payload failed signature
	// verification. It never carries which byte mismatched.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrMalformedEvent means the payload passed verification but could not
	// be decoded into a known event shape.
	ErrMalformedEvent = errors.New("malformed webhook event")

	// ErrUnknownEventType marks event types outside the checkout lifecycle.
	// They are acknowledged so the processor does not retry them.
	ErrUnknownEventType = errors.New("unknown webhook event type")

	// ErrNotFound means neither the store nor the provider know the session.
	ErrNotFound = errors.New("session not found")

	// ErrLookupFailed means the live provider lookup could not complete.
	ErrLookupFailed = errors.New("provider lookup failed")
)
