// Package api exposes the bank reconciliation services over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/alexanderdeibel-Fintutto/vermieter-freude-sub001/internal/service"
)

// Deps wires the server to its services. Metrics may be nil.
type Deps struct {
	Sync         *service.SyncService
	Override     *service.OverrideService
	Rules        *service.RuleService
	Connections  *service.ConnectionService
	Suggest      *service.SuggestService
	Transactions *service.TransactionService
	Metrics      http.Handler
	JWTSecret    []byte
	Logger       *zap.Logger
}

// Server routes API requests to the services.
type Server struct {
	deps      Deps
	router    *mux.Router
	validate  *validator.Validate
	jwtSecret []byte
	logger    *zap.Logger
}

func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		deps:      deps,
		router:    mux.NewRouter(),
		validate:  validator.New(),
		jwtSecret: deps.JWTSecret,
		logger:    logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.Use(s.logRequests)
	s.router.HandleFunc("/health", s.health).Methods(http.MethodGet)
	if s.deps.Metrics != nil {
		s.router.Handle("/metrics", s.deps.Metrics).Methods(http.MethodGet)
	}

	bank := s.router.PathPrefix("/api/bank").Subrouter()
	bank.Use(s.authenticate)
	bank.HandleFunc("/sync", s.sync).Methods(http.MethodPost)
	bank.HandleFunc("/transactions", s.listTransactions).Methods(http.MethodGet)
	bank.HandleFunc("/transactions/{id}/match", s.matchTransaction).Methods(http.MethodPost)
	bank.HandleFunc("/transactions/{id}/ignore", s.ignoreTransaction).Methods(http.MethodPost)
	bank.HandleFunc("/transactions/{id}/suggestions", s.suggestions).Methods(http.MethodGet)
	bank.HandleFunc("/rules", s.listRules).Methods(http.MethodGet)
	bank.HandleFunc("/rules", s.createRule).Methods(http.MethodPost)
	bank.HandleFunc("/rules/{id}", s.updateRule).Methods(http.MethodPut)
	bank.HandleFunc("/rules/{id}", s.deleteRule).Methods(http.MethodDelete)
	bank.HandleFunc("/connections", s.listConnections).Methods(http.MethodGet)
	bank.HandleFunc("/connections", s.registerConnection).Methods(http.MethodPost)
	bank.HandleFunc("/connections/{id}", s.disconnect).Methods(http.MethodDelete)
}

// Handler returns the HTTP handler for the API server.
func (s *Server) Handler() http.Handler {
	return s.router
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
