package health

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
	"github.com/selivandex/supplier-risk/pkg/worker"
)

// Checker is an optional dependency probed by readiness
type Checker interface {
	Health() error
}

// ReportSource exposes the most recent scoring report
type ReportSource interface {
	Latest() *models.Report
}

// WorkerStatuses reports background worker statistics
type WorkerStatuses interface {
	Statuses() []worker.Status
}

// Server provides health, metrics and score endpoints
type Server struct {
	server    *http.Server
	router    *mux.Router
	reports   ReportSource
	workers   WorkerStatuses
	checks    map[string]Checker
	refresh   func()
	ready     bool
	readyMu   sync.RWMutex
	startTime time.Time
}

// HealthStatus represents system health
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ReadinessStatus represents system readiness
type ReadinessStatus struct {
	Ready     bool              `json:"ready"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Workers   []worker.Status   `json:"workers,omitempty"`
}

// Option configures the server
type Option func(*Server)

// WithCheck adds a named dependency to the readiness probe
func WithCheck(name string, c Checker) Option {
	return func(s *Server) { s.checks[name] = c }
}

// WithWorkers includes worker statistics in readiness output
func WithWorkers(w WorkerStatuses) Option {
	return func(s *Server) { s.workers = w }
}

// WithRefresh enables POST /scores/refresh
func WithRefresh(fn func()) Option {
	return func(s *Server) { s.refresh = fn }
}

// NewServer creates new health check server
func NewServer(port string, reports ReportSource, opts ...Option) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		reports:   reports,
		checks:    make(map[string]Checker),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.routes()
	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

func (s *Server) routes() {
	// probes
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReadiness).Methods(http.MethodGet)
	s.router.HandleFunc("/readyz", s.handleReadiness).Methods(http.MethodGet)

	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.router.HandleFunc("/scores", s.handleScores).Methods(http.MethodGet)
	s.router.HandleFunc("/scores/refresh", s.handleRefresh).Methods(http.MethodPost)
	s.router.HandleFunc("/scores/{supplier}", s.handleSupplier).Methods(http.MethodGet)
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler { return s.router }

// Start starts the health check server
func (s *Server) Start() error {
	logger.Info("health check server starting",
		zap.String("addr", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping health check server...")
	return s.server.Shutdown(ctx)
}

// SetReady marks the service as ready
func (s *Server) SetReady(ready bool) {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	s.ready = ready

	if ready {
		logger.Info("✅ service marked as READY")
	} else {
		logger.Warn("⚠️ service marked as NOT READY")
	}
}

// handleHealth is the liveness probe; it succeeds while the process is up
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	if r.URL.Query().Get("verbose") == "true" {
		status.Checks, _ = s.runChecks()
	}

	writeJSON(w, http.StatusOK, status)
}

// handleReadiness succeeds once startup completed, a first report exists and every dependency is healthy
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.readyMu.RLock()
	ready := s.ready
	s.readyMu.RUnlock()

	checks, allHealthy := s.runChecks()
	if s.reports.Latest() == nil {
		checks["report"] = "pending"
		allHealthy = false
	} else {
		checks["report"] = "available"
	}

	status := ReadinessStatus{
		Ready:     ready && allHealthy,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}
	if s.workers != nil {
		status.Workers = s.workers.Statuses()
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	report := s.reports.Latest()
	if report == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no report yet"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSupplier(w http.ResponseWriter, r *http.Request) {
	report := s.reports.Latest()
	if report == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no report yet"})
		return
	}

	name := strings.TrimSpace(mux.Vars(r)["supplier"])
	for _, score := range report.Scores {
		if strings.EqualFold(score.Supplier, name) {
			writeJSON(w, http.StatusOK, score)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown supplier"})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "refresh not available"})
		return
	}
	s.refresh()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *Server) runChecks() (map[string]string, bool) {
	checks := make(map[string]string, len(s.checks)+1)
	healthy := true
	for name, c := range s.checks {
		if err := c.Health(); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks[name] = "healthy"
		}
	}
	return checks, healthy
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}
