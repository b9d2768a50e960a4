package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"content-subscription-platform/internal/domain/ports/repository"
	"content-subscription-platform/internal/usecase"
)

// Server is the private admin API. It runs on its own port, separate from the
// public surface, so the operator can firewall it off entirely.
type Server struct {
	statsUC  usecase.StatsUseCase
	userUC   usecase.UserUseCase
	videoUC  usecase.VideoUseCase
	payments repository.PaymentRepository
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(
	statsUC usecase.StatsUseCase,
	userUC usecase.UserUseCase,
	videoUC usecase.VideoUseCase,
	payments repository.PaymentRepository,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	l := logger.With().Str("component", "AdminServer").Logger()
	return &Server{
		statsUC:  statsUC,
		userUC:   userUC,
		videoUC:  videoUC,
		payments: payments,
		auth:     auth,
		log:      &l,
	}
}

// RegisterRoutes sets up the routing for the admin API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/login", s.loginHandler)
	mux.HandleFunc("/api/v1/logout", s.logoutHandler)

	mux.Handle("/api/v1/stats", s.auth.Middleware(statsHandler(s.statsUC)))

	usersRouter := s.auth.Middleware(s.usersRouter())
	mux.Handle("/api/v1/users", usersRouter)
	mux.Handle("/api/v1/users/", usersRouter)

	videosRouter := s.auth.Middleware(s.videosRouter())
	mux.Handle("/api/v1/videos", videosRouter)
	mux.Handle("/api/v1/videos/", videosRouter)
}

func (s *Server) usersRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/users")
		path = strings.Trim(path, "/")

		if path == "" {
			usersListHandler(s.userUC)(w, r)
		} else {
			userGetHandler(s.userUC, s.payments)(w, r)
		}
	})
}

func (s *Server) videosRouter() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/api/v1/videos")
		path = strings.Trim(path, "/")

		if path == "" {
			switch r.Method {
			case http.MethodGet:
				videosListHandler(s.videoUC)(w, r)
			case http.MethodPost:
				videoCreateHandler(s.videoUC)(w, r)
			default:
				http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			}
			return
		}
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		videoGetHandler(s.videoUC)(w, r)
	})
}

// Run serves the admin mux until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	srv := &http.Server{Addr: addr, Handler: mux}
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
