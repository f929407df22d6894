package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"wallet-activity-stats/internal/application/source"
	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StatsProvider serves budgeted AddressStats
type StatsProvider interface {
	ComputeWithBudget(ctx context.Context, address string, window entity.TimeWindow) (*entity.AddressStats, error)
}

// CohortScorer scores a participant cohort
type CohortScorer interface {
	Score(ctx context.Context, req entity.ScoreRequest) (*entity.ScoreResult, error)
}

// Scanner runs the strict direct scan with progress
type Scanner interface {
	Scan(ctx context.Context, address string, window entity.TimeWindow, progress source.ProgressFunc) (*entity.AddressStats, error)
}

// Server exposes the stats, scoring and scan endpoints
type Server struct {
	stats   StatsProvider
	scorer  CohortScorer
	scanner Scanner
	config  *config.HTTPConfig
	logger  *logger.Logger
	server  *http.Server
}

// NewServer creates new HTTP API server
func NewServer(stats StatsProvider, scorer CohortScorer, scanner Scanner, cfg *config.HTTPConfig, log *logger.Logger) *Server {
	return &Server{
		stats:   stats,
		scorer:  scorer,
		scanner: scanner,
		config:  cfg,
		logger:  log.WithComponent("http-api"),
	}
}

// Router returns the route table
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(withCORS)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/address/stats", s.handleAddressStats).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/analyze", s.handleAnalyze).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/api/ws/scan", s.handleScan).Methods(http.MethodGet)

	if s.config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
	return r
}

// Start begins serving in the background
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
		}
	}()

	s.logger.Info("HTTP server listening", zap.String("addr", addr))
	return nil
}

// Stop drains in-flight requests
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}

// withCORS adds permissive CORS headers and answers preflights
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodGet+", "+http.MethodPost+", "+http.MethodOptions)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
