package handlers

import (
	"fmt"
	"net/http"
	"time"

	"giveawaybot/internal/auth"
	"giveawaybot/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds what the router needs besides the API itself
type RouterConfig struct {
	BotToken    string
	InitDataTTL time.Duration
	OrganizerID int64
	// Registry is exposed on /metrics when set
	Registry *prometheus.Registry
}

// NewRouter mounts the public, participant and organizer endpoints
func NewRouter(api *API, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", api.HandlePing)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.BotToken, cfg.InitDataTTL))
			r.Get("/giveaway", api.HandleGiveaway)

			r.Route("/admin", func(r chi.Router) {
				r.Use(auth.RequireUser(cfg.OrganizerID))
				r.Get("/winners", api.HandleWinners)
				r.Get("/deliveries", api.HandleDeliveries)
			})
		})
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug(0, "http_request", fmt.Sprintf("request_id=%s method=%s path=%s status=%d duration=%s",
			middleware.GetReqID(r.Context()), r.Method, r.URL.Path, ww.Status(), time.Since(start)))
	})
}
