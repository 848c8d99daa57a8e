// Package api exposes the conversion service over HTTP: a multipart
// conversion endpoint, the latest track summary, archived output retrieval
// and the embedded upload page.
package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/bybunni/vector-space/internal/archive"
	"github.com/bybunni/vector-space/internal/auth"
	"github.com/bybunni/vector-space/internal/health"
	"github.com/bybunni/vector-space/internal/httputil"
	"github.com/bybunni/vector-space/internal/metrics"
)

// Config holds the server's tunable settings.
type Config struct {
	Workers          int  // NED batch driver workers per conversion
	MaxUploadBytes   int64
	MaxConcurrentPer int  // concurrent conversions allowed per client IP
	TrustProxy       bool // honor X-Forwarded-For / X-Real-IP
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        Config
	arch       *archive.Archive
	limiter    *convertLimiter
	lastState  *summaryState
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, cfg Config, arch *archive.Archive, webContent fs.FS) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 64 << 20
	}
	if cfg.MaxConcurrentPer <= 0 {
		cfg.MaxConcurrentPer = 4
	}

	s := &Server{
		logger:    logger,
		cfg:       cfg,
		arch:      arch,
		limiter:   newConvertLimiter(cfg.MaxConcurrentPer),
		lastState: &summaryState{},
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.Handle("/healthz", requireMethod(http.MethodGet, http.HandlerFunc(health.Healthz)))
	mux.Handle("/readyz", requireMethod(http.MethodGet, http.HandlerFunc(health.Readyz(arch.Check))))
	mux.Handle("/metrics", requireMethod(http.MethodGet, metrics.Handler()))
	mux.Handle("/api/v1/convert", requireMethod(http.MethodPost, http.HandlerFunc(s.handleConvert)))
	mux.Handle("/api/v1/summary", requireMethod(http.MethodGet, http.HandlerFunc(s.handleSummary)))
	mux.Handle("/api/v1/archive/latest", requireMethod(http.MethodGet, http.HandlerFunc(s.handleArchiveLatest)))
	mux.Handle("/", requireMethod(http.MethodGet, http.FileServer(http.FS(webContent))))

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}

// requireMethod restricts a handler to a single HTTP method, matching the
// method-pattern routing used by net/http's ServeMux in Go 1.22+.
func requireMethod(method string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
