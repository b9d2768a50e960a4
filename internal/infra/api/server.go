package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/usecase"
)

// signatureHeader carries the IPN HMAC of the raw request body.
const signatureHeader = "x-nowpayments-sig"

// maxWebhookBody bounds the raw callback read. Real IPN bodies are tiny.
const maxWebhookBody = 1 << 16

// Server is the public HTTP surface: the payment webhook, checkout, payment
// polling, and content access checks.
type Server struct {
	reconcile   usecase.ReconcileUseCase
	checkout    usecase.CheckoutUseCase
	entitlement usecase.EntitlementUseCase
	stats       usecase.StatsUseCase
	log         *zerolog.Logger
}

func NewServer(
	reconcile usecase.ReconcileUseCase,
	checkout usecase.CheckoutUseCase,
	entitlement usecase.EntitlementUseCase,
	stats usecase.StatsUseCase,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "APIServer").Logger()
	return &Server{
		reconcile:   reconcile,
		checkout:    checkout,
		entitlement: entitlement,
		stats:       stats,
		log:         &l,
	}
}

func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))

	r.Post("/payment_webhook", s.handleWebhook)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/checkout", s.handleCheckout)
		r.Get("/payments/{paymentID}", s.handlePaymentStatus)
		r.Get("/videos/{videoID}/access", s.handleVideoAccess)
		r.Get("/stats", s.handleStats)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// handleWebhook applies one pushed gateway observation. Response codes tell
// the gateway whether to retry: 2xx for anything we understood (including
// observations we reject by policy), 401 for a bad signature, 400 for a body
// we cannot parse, 5xx only for our own faults.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	rec, err := s.reconcile.ApplyWebhook(r.Context(), r.Header.Get(signatureHeader), body)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": string(rec.Status)})
	case errors.Is(err, domain.ErrUnauthorized):
		http.Error(w, "invalid signature", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrUnknownPayment), errors.Is(err, domain.ErrInvalidTransition):
		// Understood but not applicable (unmatched id, frozen record, or a status
		// outside the known set). Acknowledge so the gateway stops retrying.
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	default:
		s.log.Error().Err(err).Msg("webhook processing failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

type checkoutRequest struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}

type checkoutResponse struct {
	PaymentID  string  `json:"payment_id"`
	GatewayID  string  `json:"gateway_id"`
	PaymentURL string  `json:"payment_url"`
	PayAddress string  `json:"pay_address,omitempty"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Status     string  `json:"status"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var in checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	tier, err := model.ParseTier(in.Plan)
	if err != nil || tier == model.TierNone {
		http.Error(w, "unknown plan", http.StatusBadRequest)
		return
	}

	p, err := s.checkout.Initiate(r.Context(), in.UserID, tier)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		PaymentID:  p.ID,
		GatewayID:  p.GatewayID,
		PaymentURL: p.PaymentURL,
		PayAddress: p.PayAddress,
		Amount:     p.Amount,
		Currency:   p.Currency,
		Status:     string(p.Status),
	})
}

type paymentStatusResponse struct {
	GatewayID    string     `json:"gateway_id"`
	Status       string     `json:"status"`
	ActuallyPaid float64    `json:"actually_paid"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

// handlePaymentStatus polls the gateway for fresh status and returns the
// reconciled record. Clients hit this from the "waiting for payment" page.
func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request) {
	gatewayID := chi.URLParam(r, "paymentID")
	p, err := s.reconcile.Poll(r.Context(), gatewayID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentStatusResponse{
		GatewayID:    p.GatewayID,
		Status:       string(p.Status),
		ActuallyPaid: p.ActuallyPaid,
		ConfirmedAt:  p.ConfirmedAt,
	})
}

type accessResponse struct {
	Allowed bool   `json:"allowed"`
	Tier    string `json:"tier"`
}

func (s *Server) handleVideoAccess(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	allowed, tier, err := s.entitlement.CanAccess(r.Context(), userID, chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accessResponse{Allowed: allowed, Tier: string(tier)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	totals, err := s.stats.Totals(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrUnknownPayment):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrGatewayUnavailable):
		http.Error(w, "payment gateway unavailable", http.StatusBadGateway)
	case errors.Is(err, domain.ErrGatewayRejected):
		http.Error(w, "payment gateway rejected the request", http.StatusBadGateway)
	default:
		s.log.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Run serves the router until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
