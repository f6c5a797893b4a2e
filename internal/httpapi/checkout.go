package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lcollia/paytrack/internal/payment"
)

// handleStatus answers "what is the status of session S" for the polling
// client: event-derived state when present, a one-off provider lookup when
// not.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}

	start := time.Now()
	view, err := s.deps.Reader.Query(r.Context(), sessionID)
	s.deps.Metrics.ObserveStatusQuery(time.Since(start))

	if err != nil {
		if errors.Is(err, payment.ErrNotFound) {
			respondError(w, http.StatusNotFound, "session_not_found", "session not found")
			return
		}
		respondError(w, http.StatusBadGateway, "lookup_failed", "status unavailable")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

type createCheckoutRequest struct {
	PriceIDs []string `json:"price_ids"`
}

// handleCreateCheckout opens a checkout session with the provider and hands
// back the redirect URL. This service only tracks the session afterwards.
func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(req.PriceIDs) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "price_ids must not be empty")
		return
	}

	sess, err := s.deps.Checkout.CreateCheckoutSession(r.Context(), req.PriceIDs)
	if err != nil {
		s.log.Error().Err(err).Msg("checkout session creation failed")
		respondError(w, http.StatusBadGateway, "provider_error", "could not create checkout session")
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.deps.Checkout.ListProducts(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("product listing failed")
		respondError(w, http.StatusBadGateway, "provider_error", "could not list products")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	recent, err := s.deps.Archive.RecentOrders(r.Context(), limit)
	if err != nil {
		s.log.Error().Err(err).Msg("order listing failed")
		respondError(w, http.StatusInternalServerError, "archive_error", "could not list orders")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": recent})
}
