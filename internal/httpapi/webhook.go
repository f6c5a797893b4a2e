package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/lcollia/paytrack/internal/payment"
	"github.com/lcollia/paytrack/internal/policy"
)

const maxWebhookBody = 1 << 20

// handleWebhook ingests one signed lifecycle event from the payment
// processor. Verification runs against the raw bytes exactly as received;
// re-serializing before verifying would break the signature.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		s.log.Warn().Err(err).Msg("webhook body read failed")
		respondError(w, http.StatusBadRequest, "invalid_payload", "could not read request body")
		return
	}

	ev, err := s.deps.Verifier.Verify(body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		s.respondWebhookError(w, body, err)
		return
	}

	outcome := s.deps.Reconciler.Apply(ev)
	s.deps.Metrics.WebhookEvents.WithLabelValues(payment.EventKind(ev), string(outcome)).Inc()
	s.deps.Metrics.TrackedSessions.Set(float64(s.deps.Store.Len()))

	s.log.Info().
		Str("event_kind", payment.EventKind(ev)).
		Str("session_id", ev.EventSessionID()).
		Str("outcome", string(outcome)).
		Msg("webhook event applied")

	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func (s *Server) respondWebhookError(w http.ResponseWriter, body []byte, err error) {
	switch {
	case errors.Is(err, payment.ErrUnknownEventType):
		// Acknowledged so the processor stops retrying an event we will
		// never handle.
		s.log.Info().Err(err).Msg("ignoring webhook event outside checkout lifecycle")
		s.deps.Metrics.WebhookEvents.WithLabelValues("unknown", "ignored").Inc()
		respondJSON(w, http.StatusOK, map[string]bool{"received": true})

	case errors.Is(err, payment.ErrSignatureInvalid):
		s.log.Warn().Err(err).Msg("webhook signature verification failed")
		s.deps.Metrics.WebhookEvents.WithLabelValues("unknown", "rejected_signature").Inc()
		respondError(w, http.StatusBadRequest, "signature_invalid", "webhook signature verification failed")

	case errors.Is(err, payment.ErrMalformedEvent):
		snippet, _ := policy.RedactPII(truncate(string(body), 256))
		s.log.Warn().Err(err).Str("payload", snippet).Msg("webhook payload unparsable")
		s.deps.Metrics.WebhookEvents.WithLabelValues("unknown", "rejected_malformed").Inc()
		respondError(w, http.StatusBadRequest, "malformed_event", "webhook payload could not be decoded")

	default:
		// Anything unexpected is transient from the processor's point of
		// view: answer 5xx so it redelivers.
		s.log.Error().Err(err).Msg("webhook processing failed")
		respondError(w, http.StatusInternalServerError, "internal_error", "webhook processing failed")
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
