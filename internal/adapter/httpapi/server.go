// Package httpapi exposes the engine over a JSON HTTP API. Every response
// uses the {"status": ..., "data"/"message": ...} envelope.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/finworks/capflow-backend/internal/config"
	"github.com/finworks/capflow-backend/internal/observability"
	"github.com/finworks/capflow-backend/internal/usecase/planner"
	"github.com/finworks/capflow-backend/internal/usecase/recommend"
)

// Options wires the server's collaborators. Logger defaults to
// slog.Default(), Profiles to the built-in scenarios; nil RateLimiter or
// Observability simply drop that middleware.
type Options struct {
	Planner        *planner.Service
	Recommender    *recommend.Service
	Profiles       map[string]config.Profile
	DefaultBalance decimal.Decimal
	APIToken       string
	Logger         *slog.Logger
	Observability  *observability.Provider
	RateLimiter    *RateLimiter
}

// Server handles HTTP requests against the planner and recommender
type Server struct {
	planner        *planner.Service
	recommender    *recommend.Service
	profiles       map[string]config.Profile
	defaultBalance decimal.Decimal
	apiToken       string
	logger         *slog.Logger
	obs            *observability.Provider
	limiter        *RateLimiter
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	profiles := opts.Profiles
	if profiles == nil {
		profiles = config.BuiltinProfiles()
	}
	return &Server{
		planner:        opts.Planner,
		recommender:    opts.Recommender,
		profiles:       profiles,
		defaultBalance: opts.DefaultBalance,
		apiToken:       opts.APIToken,
		logger:         logger,
		obs:            opts.Observability,
		limiter:        opts.RateLimiter,
	}
}

// Handler builds the route table and wraps it in the middleware chain:
// observability outermost, then logging, auth, rate limiting.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("POST /api/v1/counterparties", s.handleCreateCounterparty)
	mux.HandleFunc("GET /api/v1/counterparties", s.handleListCounterparties)
	mux.HandleFunc("PUT /api/v1/counterparties/{id}/risk", s.handleSetCounterpartyRisk)
	mux.HandleFunc("POST /api/v1/obligations", s.handleCreateObligation)
	mux.HandleFunc("GET /api/v1/obligations/{direction}", s.handleListObligations)
	mux.HandleFunc("GET /api/v1/forecast", s.handleForecast)
	mux.HandleFunc("POST /api/v1/optimize", s.handleOptimize)
	mux.HandleFunc("POST /api/v1/plan", s.handlePlan)

	var handler http.Handler = mux
	if s.limiter != nil {
		handler = rateLimitMiddleware(s.limiter, handler)
	}
	handler = authMiddleware(s.apiToken, handler)
	handler = loggingMiddleware(s.logger, handler)
	if s.obs != nil {
		handler = observabilityMiddleware(s.obs, handler)
	}
	return handler
}
