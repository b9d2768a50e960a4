package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"content-subscription-platform/internal/domain"
	"content-subscription-platform/internal/domain/model"
	"content-subscription-platform/internal/domain/ports/repository"
	"content-subscription-platform/internal/usecase"
)

type loginRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !s.auth.CheckAPIKey(req.APIKey) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("admin login rejected")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	token, err := s.auth.Mint(w, "admin")
	if err != nil {
		http.Error(w, "Failed to mint session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.auth.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func statsHandler(statsUC usecase.StatsUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := statsUC.Totals(r.Context())
		if err != nil {
			http.Error(w, "Failed to get totals", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, totals)
	}
}

type userSummary struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email,omitempty"`
	Tier         string     `json:"tier"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"`
	IsAdmin      bool       `json:"is_admin,omitempty"`
}

func toUserSummary(u *model.User) userSummary {
	return userSummary{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Tier:         string(u.Subscription.Tier),
		ExpiresAt:    u.Subscription.ExpiresAt,
		RegisteredAt: u.RegisteredAt,
		IsAdmin:      u.IsAdmin,
	}
}

func usersListHandler(userUC usecase.UserUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		users, err := userUC.List(r.Context(), offset, limit)
		if err != nil {
			http.Error(w, "Failed to list users", http.StatusInternalServerError)
			return
		}
		out := make([]userSummary, 0, len(users))
		for _, u := range users {
			out = append(out, toUserSummary(u))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

type paymentSummary struct {
	ID           string     `json:"id"`
	GatewayID    string     `json:"gateway_id"`
	Plan         string     `json:"plan"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	Status       string     `json:"status"`
	ActuallyPaid float64    `json:"actually_paid"`
	CreatedAt    time.Time  `json:"created_at"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
}

// userGetHandler returns one account plus its payment history, the view the
// operator needs when a customer disputes a charge.
func userGetHandler(userUC usecase.UserUseCase, payments repository.PaymentRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/users"), "/")

		user, err := userUC.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrUserNotFound) {
				http.Error(w, "User not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get user", http.StatusInternalServerError)
			return
		}

		history, err := payments.ListByUser(r.Context(), repository.NoTX, user.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			http.Error(w, "Failed to list payments", http.StatusInternalServerError)
			return
		}
		ps := make([]paymentSummary, 0, len(history))
		for _, p := range history {
			ps = append(ps, paymentSummary{
				ID:           p.ID,
				GatewayID:    p.GatewayID,
				Plan:         string(p.Plan),
				Amount:       p.Amount,
				Currency:     p.Currency,
				Status:       string(p.Status),
				ActuallyPaid: p.ActuallyPaid,
				CreatedAt:    p.CreatedAt,
				ConfirmedAt:  p.ConfirmedAt,
			})
		}

		writeJSON(w, http.StatusOK, struct {
			User     userSummary      `json:"user"`
			Payments []paymentSummary `json:"payments"`
		}{toUserSummary(user), ps})
	}
}

type videoCreateRequest struct {
	Title        string `json:"title"`
	RequiredTier string `json:"required_tier"`
}

func videoCreateHandler(videoUC usecase.VideoUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req videoCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		tier, err := model.ParseTier(req.RequiredTier)
		if err != nil || tier == model.TierNone {
			http.Error(w, "Invalid required_tier", http.StatusBadRequest)
			return
		}
		v, err := videoUC.Create(r.Context(), req.Title, tier)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to create video", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

func videosListHandler(videoUC usecase.VideoUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		videos, err := videoUC.List(r.Context(), offset, limit)
		if err != nil {
			http.Error(w, "Failed to list videos", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, videos)
	}
}

func videoGetHandler(videoUC usecase.VideoUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/videos"), "/")
		v, err := videoUC.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Video not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get video", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
