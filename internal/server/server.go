package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"supmatch/internal/domain"
)

// Facade is the server-facing subset of the application service.
type Facade interface {
	Query(raw string) ([]domain.RankedSupervisor, error)
	AddSupervisor(rec domain.RawRecord, id int64) (domain.IngestReport, error)
	Catalog() ([]domain.SupervisorSummary, error)
}

// Config configures the HTTP listener.
type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server exposes the service facade over HTTP.
type Server struct {
	svc        Facade
	log        *zap.Logger
	httpServer *http.Server
}

func New(cfg Config, svc Facade, log *zap.Logger) *Server {
	s := &Server{svc: svc, log: log}
	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed for handler tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", s.handleQuery)
	mux.HandleFunc("/api/supervisors", s.handleSupervisors)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("http server listening", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the listener, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
