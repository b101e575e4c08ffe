package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"pair-relay/auth"
	"pair-relay/domain"
	"pair-relay/observability"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pion/webrtc/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type verifier interface {
	Verify(token string) (domain.Identity, error)
}

type RouterConfig struct {
	AllowedOrigins []string
	ICEServers     []webrtc.ICEServer
}

// Dependencies are the handlers and services mounted on the router.
type Dependencies struct {
	WebSocket  http.Handler
	Monitoring *observability.MonitoringManager
	Gatherer   prometheus.Gatherer
	Tokens     verifier
}

func NewRouter(log *slog.Logger, deps Dependencies, config RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(log))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/ws", deps.WebSocket)
	r.Get("/healthz", health)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	// Routes exposing participants or TURN credentials need a session token
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(deps.Tokens))
		r.Get("/api/ice-servers", iceServers(config.ICEServers))
		r.Get("/debug/stats", stats(deps.Monitoring))
	})

	return r
}

// Logger writes one access log line per request.
func Logger(log *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info("Request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"latency", time.Since(start),
					"request_id", chimw.GetReqID(r.Context()),
					"remote_addr", r.RemoteAddr)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func stats(monitoring *observability.MonitoringManager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, monitoring.GetLatest())
	}
}

// iceServers hands STUN/TURN configuration to authenticated clients only,
// since TURN credentials are shared secrets.
func iceServers(servers []webrtc.ICEServer) http.HandlerFunc {
	if servers == nil {
		servers = []webrtc.ICEServer{}
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"iceServers": servers})
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
