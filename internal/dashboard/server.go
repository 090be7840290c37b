// Package dashboard serves a small JSON API over the advisor's read paths:
// recommendations, portfolio, and account state.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/openclaw/wheelhouse/internal/models"
	"github.com/openclaw/wheelhouse/internal/orders"
	"github.com/openclaw/wheelhouse/internal/quotes"
	"github.com/openclaw/wheelhouse/internal/wheel"
)

// Recommender is the engine dependency.
type Recommender interface {
	Recommend(ctx context.Context, symbol string, strategy models.Strategy) (*models.Recommendation, error)
}

// Reporter is the portfolio dependency.
type Reporter interface {
	Positions(ctx context.Context) ([]models.Position, error)
	AccountSummary(ctx context.Context) (*models.AccountSummary, error)
}

// Quoter is the price lookup dependency.
type Quoter interface {
	GetPrice(ctx context.Context, symbol string) (*models.Quote, error)
}

// Config configures the dashboard server.
type Config struct {
	Port      int
	AuthToken string
}

// Server is the dashboard HTTP server.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	engine    Recommender
	reporter  Reporter
	quoter    Quoter
	logger    *logrus.Logger
	port      int
	authToken string
}

// NewServer wires the dashboard routes over the advisor components.
func NewServer(cfg Config, engine Recommender, reporter Reporter, quoter Quoter, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	s := &Server{
		router:    chi.NewRouter(),
		engine:    engine,
		reporter:  reporter,
		quoter:    quoter,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	if s.authToken != "" {
		s.router.Use(s.authMiddleware)
	}

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/quote/{symbol}", s.handleQuote)
	s.router.Get("/api/recommendation/{symbol}", s.handleRecommendation)
	s.router.Get("/api/portfolio", s.handlePortfolio)
	s.router.Get("/api/account", s.handleAccount)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if token != s.authToken {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start runs the server until Shutdown or listener failure.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.logger.Infof("Starting dashboard server on port %d", s.port)
	return s.server.ListenAndServe()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	quote, err := s.quoter.GetPrice(r.Context(), symbol)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, quote)
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	strategy := models.Strategy(r.URL.Query().Get("strategy"))
	if strategy == "" {
		strategy = models.StrategyCSP
	}
	if !strategy.Valid() {
		http.Error(w, fmt.Sprintf("unknown strategy %q", strategy), http.StatusBadRequest)
		return
	}

	rec, err := s.engine.Recommend(r.Context(), symbol, strategy)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, rec)
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	positions, err := s.reporter.Positions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, positions)
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	summary, err := s.reporter.AccountSummary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, summary)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

// writeError maps the advisor's error taxonomy onto HTTP statuses, keeping
// the error text as the one-line explanation.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway

	var notFound *wheel.NoContractError
	var precondition *wheel.PreconditionError
	var invalidRoll *wheel.InvalidRolloverError
	var unavailable *quotes.DataUnavailableError
	var readonly *orders.ReadOnlyError
	var missing *orders.MissingParameterError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &precondition), errors.As(err, &invalidRoll), errors.As(err, &missing):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &readonly):
		status = http.StatusForbidden
	case errors.As(err, &unavailable):
		status = http.StatusBadGateway
	}

	s.logger.WithError(err).Warn("Request failed")
	http.Error(w, err.Error(), status)
}
