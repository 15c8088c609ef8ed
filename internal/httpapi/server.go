package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hamed0406/heartbeat/internal/domain"
	apimw "github.com/hamed0406/heartbeat/internal/httpapi/middleware"
	"github.com/hamed0406/heartbeat/internal/metrics"
	"github.com/hamed0406/heartbeat/internal/repo"
)

type Server struct {
	Logger   *zap.Logger
	Monitors repo.MonitorStore
	Admin    repo.AdminStore
	Now      func() time.Time

	// TrustProxy rewrites RemoteAddr from X-Forwarded-For / X-Real-IP before
	// rate limiting. Leave off unless a reverse proxy sets those headers.
	TrustProxy bool
}

func NewServer(l *zap.Logger, ms repo.MonitorStore, as repo.AdminStore) *Server {
	return &Server{Logger: l, Monitors: ms, Admin: as, Now: time.Now}
}

// Router wires the heartbeat ingestion routes (ingest or admin key) and the
// management routes (admin key only), each group with its own rate limit.
func (s *Server) Router(keys apimw.Keys, allowedOrigins []string, publicRPM, publicBurst, adminRPM, adminBurst int) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if s.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	r.Use(apimw.Prometheus)
	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-API-Key"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(apimw.RateLimit(publicRPM, publicBurst))
		r.Use(apimw.RequireAny(keys))
		r.Get("/heartbeat/{slug}", s.handlePing)
		r.Post("/heartbeat/{slug}", s.handlePing)
		r.Post("/heartbeat/{slug}/fail", s.handleFail)
	})

	r.Route("/api/monitors", func(r chi.Router) {
		r.Use(apimw.RateLimit(adminRPM, adminBurst))
		r.Use(apimw.RequireAdmin(keys))
		r.Get("/", s.handleList)
		r.Get("/{slug}", s.handleGet)
		r.Delete("/{slug}", s.handleDelete)
		r.Post("/{slug}/pause", s.handlePause(true))
		r.Post("/{slug}/resume", s.handlePause(false))
	})

	return r
}

type pingResponse struct {
	OK      bool          `json:"ok"`
	NextDue string        `json:"next_due"`
	Status  domain.Status `json:"status"`
}

type failResponse struct {
	OK     bool          `json:"ok"`
	Status domain.Status `json:"status"`
}

// monitorView is a stored monitor plus its live status.
type monitorView struct {
	domain.Monitor
	Status domain.Status `json:"status"`
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	slug, err := domain.ParseSlug(chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	var interval uint64
	if raw := r.URL.Query().Get("interval"); raw != "" {
		if interval, err = domain.ParseInterval(raw); err != nil {
			s.writeError(w, err)
			return
		}
	} else if interval, err = s.currentInterval(r, slug); err != nil {
		s.writeError(w, err)
		return
	}

	now := s.Now().Unix()
	m := domain.NewPing(slug, interval, now)
	if err := s.Monitors.Upsert(r.Context(), &m); err != nil {
		s.writeError(w, err)
		return
	}
	metrics.PingsTotal.WithLabelValues("ping").Inc()
	s.Logger.Debug("heartbeat_recorded",
		zap.String("slug", m.Slug),
		zap.Uint64("interval_secs", m.IntervalSecs),
		zap.Int64("next_due", m.NextDue))

	writeJSON(w, http.StatusOK, pingResponse{
		OK:      true,
		NextDue: m.NextDueTime().Format(time.RFC3339),
		Status:  m.Status(now),
	})
}

func (s *Server) handleFail(w http.ResponseWriter, r *http.Request) {
	slug, err := domain.ParseSlug(chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	interval, err := s.currentInterval(r, slug)
	if err != nil {
		s.writeError(w, err)
		return
	}

	now := s.Now().Unix()
	m := domain.NewFail(slug, interval, now)
	if err := s.Monitors.Upsert(r.Context(), &m); err != nil {
		s.writeError(w, err)
		return
	}
	metrics.PingsTotal.WithLabelValues("fail").Inc()
	s.Logger.Info("heartbeat_failed", zap.String("slug", m.Slug))

	writeJSON(w, http.StatusOK, failResponse{OK: true, Status: m.Status(now)})
}

// currentInterval is the stored interval for slug, or the default for a new monitor.
func (s *Server) currentInterval(r *http.Request, slug domain.Slug) (uint64, error) {
	existing, err := s.Monitors.Get(r.Context(), slug.String())
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return domain.DefaultIntervalSecs, nil
	}
	return existing.IntervalSecs, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ms, err := s.Admin.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	now := s.Now().Unix()
	out := make([]monitorView, 0, len(ms))
	for i := range ms {
		out = append(out, monitorView{Monitor: ms[i], Status: ms[i].Status(now)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	slug, err := domain.ParseSlug(chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	m, err := s.Monitors.Get(r.Context(), slug.String())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if m == nil {
		s.writeError(w, repo.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, monitorView{Monitor: *m, Status: m.Status(s.Now().Unix())})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	slug, err := domain.ParseSlug(chi.URLParam(r, "slug"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.Admin.Delete(r.Context(), slug.String()); err != nil {
		s.writeError(w, err)
		return
	}
	s.Logger.Info("monitor_deleted", zap.String("slug", slug.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePause(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug, err := domain.ParseSlug(chi.URLParam(r, "slug"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		if err := s.Admin.SetPaused(r.Context(), slug.String(), paused); err != nil {
			s.writeError(w, err)
			return
		}
		s.Logger.Info("monitor_paused", zap.String("slug", slug.String()), zap.Bool("paused", paused))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "paused": paused})
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, repo.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		s.Logger.Error("request_failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
