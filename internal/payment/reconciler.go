package payment

import (
	"time"

	"github.com/rs/zerolog"
)

// Outcome describes what applying an event did to the store.
type Outcome string

const (
	OutcomeComplete   Outcome = "complete"
	OutcomeProcessing Outcome = "processing"
	OutcomeRemoved    Outcome = "removed"
	OutcomeNoop       Outcome = "noop"
)

// Reconciler applies verified lifecycle events to the session store using a
// deterministic transition policy. Every transition is a pure function of
// (current record, event payload), so redelivered events are no-ops with
// respect to final state.
type Reconciler struct {
	store      *Store
	log        zerolog.Logger
	onComplete func(Record)
}

func NewReconciler(store *Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: store, log: log}
}

// SetCompleteHook registers a callback fired once per session when its
// status first transitions into complete. Set during wiring, before any
// events are applied.
func (r *Reconciler) SetCompleteHook(hook func(Record)) {
	r.onComplete = hook
}

// Apply runs one event through the transition table and returns what
// happened. It never fails: events that do not match a live transition are
// absorbed as no-ops so a redelivery or an out-of-order arrival cannot
// corrupt unrelated state.
func (r *Reconciler) Apply(ev Event) Outcome {
	now := time.Now().UTC()

	switch e := ev.(type) {
	case CheckoutCompleted:
		if e.Paid {
			return r.markComplete(e.SessionID, e.CustomerEmail, e.AmountTotal, e.Currency, now)
		}
		var was Status
		r.store.Upsert(e.SessionID, func(rec *Record) {
			was = rec.Status
			rec.LastEventAt = now
			if rec.Status == StatusComplete {
				return
			}
			rec.Status = StatusProcessing
			setDisclosedFields(rec, e.CustomerEmail, e.AmountTotal, e.Currency)
		})
		if was == StatusComplete {
			return OutcomeNoop
		}
		return OutcomeProcessing

	case AsyncPaymentSucceeded:
		return r.markComplete(e.SessionID, e.CustomerEmail, e.AmountTotal, e.Currency, now)

	case AsyncPaymentFailed:
		if rec, ok := r.store.Get(e.SessionID); ok && rec.Status == StatusComplete {
			// The provider should never emit a failure for a session it has
			// already reported complete. Honor the removal but flag it for
			// manual reconciliation.
			r.log.Warn().
				Str("session_id", e.SessionID).
				Msg("payment failure event for already-complete session")
		}
		if r.store.Remove(e.SessionID) {
			return OutcomeRemoved
		}
		return OutcomeNoop

	case CheckoutExpired:
		if r.store.Remove(e.SessionID) {
			return OutcomeRemoved
		}
		return OutcomeNoop

	default:
		r.log.Warn().
			Str("event_kind", EventKind(ev)).
			Msg("reconciler received unhandled event variant")
		return OutcomeNoop
	}
}

func (r *Reconciler) markComplete(sessionID, email string, amount int64, currency string, now time.Time) Outcome {
	var was Status
	rec := r.store.Upsert(sessionID, func(rec *Record) {
		was = rec.Status
		rec.Status = StatusComplete
		rec.LastEventAt = now
		setDisclosedFields(rec, email, amount, currency)
	})
	if was == StatusComplete {
		return OutcomeNoop
	}
	if r.onComplete != nil {
		r.onComplete(rec)
	}
	return OutcomeComplete
}

// setDisclosedFields fills optional fields once the provider discloses them,
// never clearing values a previous event already supplied.
func setDisclosedFields(rec *Record, email string, amount int64, currency string) {
	if email != "" {
		rec.CustomerEmail = email
	}
	if amount != 0 {
		rec.AmountTotal = amount
	}
	if currency != "" {
		rec.Currency = currency
	}
}
