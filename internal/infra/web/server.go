package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"social-video-orchestrator/internal/infra/logging"
	"social-video-orchestrator/internal/usecase"
)

type Server struct {
	videoUC  usecase.VideoUseCase
	adminKey string
	log      *zerolog.Logger
}

func NewServer(videoUC usecase.VideoUseCase, adminKey string, logger *zerolog.Logger) *Server {
	srvLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		videoUC:  videoUC,
		adminKey: adminKey,
		log:      &srvLog,
	}
}

// Router builds the HTTP surface. User routes are owner-scoped via the
// X-User-ID header set by the upstream auth gateway; operator routes sit
// behind the bearer admin key.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireOwner)
			r.Post("/uploads", s.handleUpload)
			r.Route("/videos", func(r chi.Router) {
				r.Post("/", s.handleCreate)
				r.Get("/", s.handleList)
				r.Get("/{id}", s.handleGet)
				r.Get("/{id}/download", s.handleDownload)
				r.Delete("/{id}", s.handleDelete)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.adminAuth)
			r.Post("/videos/{id}/check", s.handleForceCheck)
			r.Post("/videos/sweep", s.handleSweep)
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		logging.With(ctx, s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// requireOwner extracts the authenticated owner identity. Authentication
// itself happens upstream; an absent header means the request never passed
// the gateway.
func (s *Server) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if owner == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(logging.WithOwnerID(r.Context(), owner)))
	})
}

// adminAuth provides simple Bearer token authentication for the operator API.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}
		if tokenParts[1] != s.adminKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
