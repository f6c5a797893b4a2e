package payment

// Event is one of the closed set of checkout lifecycle signals the payment
// processor emits. Decoding from the wire happens at the verification
// boundary; the reconciler only ever sees these variants.
type Event interface {
	EventSessionID() string
	eventKind() string
}

// CheckoutCompleted signals that the buyer finished the checkout flow. Paid
// reports whether the payment has already settled; when false the payment is
// still processing (delayed payment methods).
type CheckoutCompleted struct {
	SessionID     string
	Paid          bool
	CustomerEmail string
	AmountTotal   int64
	Currency      string
}

// AsyncPaymentSucceeded signals that a delayed payment settled.
type AsyncPaymentSucceeded struct {
	SessionID     string
	CustomerEmail string
	AmountTotal   int64
	Currency      string
}

// AsyncPaymentFailed signals that a delayed payment failed; the session has
// no valid paid state.
type AsyncPaymentFailed struct {
	SessionID string
}

// CheckoutExpired signals that the session expired before completion.
type CheckoutExpired struct {
	SessionID string
}

func (e CheckoutCompleted) EventSessionID() string     { return e.SessionID }
func (e AsyncPaymentSucceeded) EventSessionID() string { return e.SessionID }
func (e AsyncPaymentFailed) EventSessionID() string    { return e.SessionID }
func (e CheckoutExpired) EventSessionID() string       { return e.SessionID }

func (CheckoutCompleted) eventKind() string     { return "checkout_completed" }
func (AsyncPaymentSucceeded) eventKind() string { return "async_payment_succeeded" }
func (AsyncPaymentFailed) eventKind() string    { return "async_payment_failed" }
func (CheckoutExpired) eventKind() string       { return "checkout_expired" }

// EventKind names the variant for logs and metrics.
func EventKind(ev Event) string {
	if ev == nil {
		return "unknown"
	}
	return ev.eventKind()
}
