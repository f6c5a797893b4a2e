package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/lcollia/paytrack/internal/config"
	"github.com/lcollia/paytrack/internal/observability"
	"github.com/lcollia/paytrack/internal/orders"
	"github.com/lcollia/paytrack/internal/payment"
	"github.com/lcollia/paytrack/internal/provider"
)

// EventVerifier authenticates a raw webhook payload and decodes it into a
// typed lifecycle event. This is the sole authentication boundary for
// writes to the session store.
type EventVerifier interface {
	Verify(payload []byte, sigHeader string) (payment.Event, error)
}

// Deps bundles the wired components the API serves.
type Deps struct {
	Store      *payment.Store
	Reconciler *payment.Reconciler
	Reader     *payment.StatusReader
	Verifier   EventVerifier
	Checkout   provider.Checkout
	Archive    orders.Archive
	Metrics    *observability.Metrics
}

type Server struct {
	cfg      config.Config
	deps     Deps
	log      zerolog.Logger
	upgrader websocket.Upgrader

	// streamInterval paces websocket status pushes; shortened in tests.
	streamInterval time.Duration
}

func New(cfg config.Config, deps Deps, log zerolog.Logger) *Server {
	return &Server{
		cfg:            cfg,
		deps:           deps,
		log:            log,
		streamInterval: 2 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only allow browser websocket connections from the same
				// origin unless explicitly opened up. Non-browser clients
				// omit Origin and are allowed.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/api/webhooks/stripe", s.handleWebhook)

	r.Group(func(r chi.Router) {
		if s.cfg.StatusRateLimit > 0 {
			r.Use(httprate.Limit(
				s.cfg.StatusRateLimit,
				s.cfg.StatusRateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
			))
		}
		r.Get("/v1/checkout/status", s.handleStatus)
		r.Get("/v1/checkout/status/ws", s.handleStatusWS)
	})

	r.Post("/v1/checkout/sessions", s.handleCreateCheckout)
	r.Get("/v1/products", s.handleListProducts)
	r.Get("/v1/orders", s.handleListOrders)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "ready",
		"tracked_sessions": s.deps.Store.Len(),
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
