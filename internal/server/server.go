// Package server exposes the analysis engine over HTTP: an HTML dashboard,
// a JSON API, PNG chart endpoints, CSV downloads and the optional Telegram
// webhook mount.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"stockRiskAnalyzer/internal/analysis"
	"stockRiskAnalyzer/internal/config"
	"stockRiskAnalyzer/internal/marketdata"
	"stockRiskAnalyzer/internal/storage"
)

// PriceSource assembles validated price tables for a set of tickers.
type PriceSource interface {
	FetchPriceTable(ctx context.Context, tickers []string, w marketdata.Window) (*analysis.PriceTable, error)
}

// InsightsSource produces AI commentary for a finished report. Nil when the
// feature is not configured.
type InsightsSource interface {
	Commentary(ctx context.Context, report *analysis.Report) (string, error)
}

// Config wires the server's collaborators.
type Config struct {
	Log      zerolog.Logger
	App      *config.Config
	Market   PriceSource
	Store    *storage.Store
	Insights InsightsSource
	Webhook  http.HandlerFunc
}

// Server is the HTTP front of the dashboard.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	app      *config.Config
	market   PriceSource
	store    *storage.Store
	insights InsightsSource
}

// New builds the router, middleware chain and http.Server.
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		app:      cfg.App,
		market:   cfg.Market,
		store:    cfg.Store,
		insights: cfg.Insights,
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.Webhook)

	s.server = &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes(webhook http.HandlerFunc) {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/", s.handleDashboard)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/analysis", s.handleAnalysis)
		r.Get("/portfolio", s.handlePortfolio)
		r.Get("/charts/usage.png", s.handleUsageChart)
		r.Get("/charts/{kind}.png", s.handleChart)
		r.Get("/export/prices.csv", s.handleExportPrices)
		r.Get("/export/metrics.csv", s.handleExportMetrics)
		r.Get("/insights", s.handleInsights)
	})

	if webhook != nil {
		s.router.Post("/telegram/webhook", webhook)
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting http server")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down http server")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler tree, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
