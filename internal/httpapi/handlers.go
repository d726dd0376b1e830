package httpapi

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/mossylife/pulse/internal/config"
	"github.com/mossylife/pulse/internal/core"
	"github.com/mossylife/pulse/internal/metrics"
	"github.com/mossylife/pulse/internal/visitor"
)

type Router struct {
	cfg     config.Config
	svc     *core.Service
	limiter *rateLimiter
}

func NewRouter(cfg config.Config, svc *core.Service) http.Handler {
	r := chi.NewRouter()
	// Logging middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("req_id", "Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", dur).
			Msg("request")
	}))
	r.Use(middleware.Recoverer)

	api := &Router{
		cfg:     cfg,
		svc:     svc,
		limiter: newRateLimiter(cfg.TrackRateRPS, cfg.TrackRateBurst),
	}

	r.MethodFunc(http.MethodGet, "/healthz", api.handleHealth)
	r.MethodFunc(http.MethodGet, "/readyz", api.handleReady)

	// Metrics
	r.MethodFunc(http.MethodGet, "/metrics", metrics.Handler)

	// Ingestion endpoint
	r.MethodFunc(http.MethodPost, "/track", api.handleTrack)
	r.MethodFunc(http.MethodOptions, "/track", api.handlePreflight)

	return r
}

type successResp struct {
	Success bool `json:"success"`
}

type errorResp struct {
	Error string `json:"error"`
}

func (rt *Router) handleTrack(w http.ResponseWriter, r *http.Request) {
	setCORS(w)

	ip := clientIP(r)
	if !rt.limiter.Allow(ip) {
		writeJSON(w, errorResp{Error: "rate limit exceeded"}, http.StatusTooManyRequests)
		return
	}

	var ev core.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		metrics.EventsRejected.Inc()
		writeJSON(w, errorResp{Error: "malformed request body"}, http.StatusBadRequest)
		return
	}

	// Identity comes from the connection, never the body.
	hash := visitor.Hash(ip, r.UserAgent(), time.Now())

	if err := rt.svc.Track(r.Context(), ev, hash); err != nil {
		if errors.Is(err, core.ErrInvalidEventType) {
			metrics.EventsRejected.Inc()
			writeJSON(w, errorResp{Error: "Invalid event type"}, http.StatusBadRequest)
			return
		}
		metrics.StoreErrors.Inc()
		hlog.FromRequest(r).Error().Err(err).Str("event", ev.Event).Msg("track failed")
		writeJSON(w, errorResp{Error: "Internal server error"}, http.StatusInternalServerError)
		return
	}

	metrics.EventsAccepted.WithLabelValues(ev.Event).Inc()
	writeJSON(w, successResp{Success: true}, http.StatusOK)
}

// handlePreflight answers CORS preflight with an empty 200 and touches nothing.
func (rt *Router) handlePreflight(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	w.WriteHeader(http.StatusOK)
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (rt *Router) handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func clientIP(r *http.Request) string {
	// Try X-Forwarded-For or Real-IP first
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if rip := r.Header.Get("X-Real-Ip"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
