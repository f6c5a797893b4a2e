package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Lookup is the provider's live view of a checkout session, fetched on the
// pull path when no pushed state exists.
type Lookup struct {
	SessionID        string
	Paid             bool
	CheckoutComplete bool
	CustomerEmail    string
	AmountTotal      int64
	Currency         string
}

// ProviderLookup retrieves the provider's current view of a session.
// Implementations must honor ctx cancellation and wrap unknown sessions in
// ErrNotFound and transport failures in ErrLookupFailed.
type ProviderLookup interface {
	LookupSession(ctx context.Context, sessionID string) (Lookup, error)
}

// StatusReader answers status queries. The store is authoritative when it
// has a record (push path wins); otherwise a live provider lookup derives a
// one-off view that is never written back, so stale pull data can never mask
// a later authoritative event.
type StatusReader struct {
	store      *Store
	provider   ProviderLookup
	timeout    time.Duration
	log        zerolog.Logger
	onFallback func(result string)
}

func NewStatusReader(store *Store, provider ProviderLookup, timeout time.Duration, log zerolog.Logger) *StatusReader {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StatusReader{store: store, provider: provider, timeout: timeout, log: log}
}

// SetFallbackHook registers a callback observing pull-path outcomes, keyed
// by derived status or failure kind. Set during wiring.
func (r *StatusReader) SetFallbackHook(hook func(result string)) {
	r.onFallback = hook
}

// Query returns the current status view for the session. The provider
// lookup runs outside any store lock and with a bounded timeout; a query
// that exceeds it fails with ErrLookupFailed rather than hanging.
func (r *StatusReader) Query(ctx context.Context, sessionID string) (Record, error) {
	if rec, ok := r.store.Get(sessionID); ok {
		return rec, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	lu, err := r.provider.LookupSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.observeFallback("not_found")
			return Record{}, err
		}
		r.observeFallback("failed")
		r.log.Warn().Err(err).Str("session_id", sessionID).Msg("provider lookup failed")
		if errors.Is(err, ErrLookupFailed) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	rec := Record{
		SessionID:     sessionID,
		Status:        deriveStatus(lu),
		LastEventAt:   time.Now().UTC(),
		CustomerEmail: lu.CustomerEmail,
		AmountTotal:   lu.AmountTotal,
		Currency:      lu.Currency,
	}
	r.observeFallback(string(rec.Status))
	return rec, nil
}

func (r *StatusReader) observeFallback(result string) {
	if r.onFallback != nil {
		r.onFallback(result)
	}
}

// deriveStatus maps the provider's two-axis view onto the record state
// machine: settled payment is complete; a finished checkout awaiting
// settlement is processing; everything else is still pending.
func deriveStatus(lu Lookup) Status {
	switch {
	case lu.Paid:
		return StatusComplete
	case lu.CheckoutComplete:
		return StatusProcessing
	default:
		return StatusPending
	}
}
