package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"stockRiskAnalyzer/internal/analysis"
	"stockRiskAnalyzer/internal/charts"
	"stockRiskAnalyzer/internal/export"
	"stockRiskAnalyzer/internal/marketdata"
)

const insightsTimeout = 45 * time.Second

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.log.Warn().
		Err(err).
		Int("status", status).
		Str("path", r.URL.Path).
		Msg("request failed")
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// fetchStatus maps a price-fetch failure onto an HTTP status: rejected
// tickers and too-short histories are the caller's fault, everything else
// means Yahoo let us down.
func fetchStatus(err error) int {
	if errors.Is(err, marketdata.ErrInvalidTicker) || errors.Is(err, analysis.ErrInsufficientData) {
		return http.StatusBadRequest
	}
	return http.StatusBadGateway
}

// runReport executes the shared request pipeline: parse params, fetch
// prices, build the full report. On failure it returns the HTTP status the
// caller should respond with.
func (s *Server) runReport(r *http.Request) (analysisParams, *analysis.Report, int, error) {
	p, err := s.parseAnalysisParams(r.URL.Query())
	if err != nil {
		return p, nil, http.StatusBadRequest, err
	}
	table, err := s.market.FetchPriceTable(r.Context(), p.Tickers, p.Window)
	if err != nil {
		return p, nil, fetchStatus(err), err
	}
	rep, err := analysis.BuildReport(table, p.RiskFree, p.Threshold)
	if err != nil {
		return p, nil, http.StatusBadRequest, err
	}
	return p, rep, 0, nil
}

func (s *Server) record(kind string, tickers []string, window string, started time.Time) {
	if s.store == nil {
		return
	}
	err := s.store.RecordUsage(kind, tickers, window, time.Since(started).Milliseconds(), time.Now().Unix())
	if err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("failed to record usage")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	p, rep, status, err := s.runReport(r)
	if err != nil {
		s.writeError(w, r, status, err)
		return
	}
	s.record("analysis", p.Tickers, p.RawRange, started)
	s.writeJSON(w, http.StatusOK, buildAnalysisJSON(rep, p.Window.String()))
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	p, rep, status, err := s.runReport(r)
	if err != nil {
		s.writeError(w, r, status, err)
		return
	}
	weights, err := parseWeights(r.URL.Query().Get("weights"), rep.Prices.Tickers())
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	stats, err := analysis.ComputePortfolioStats(rep.Returns, weights, p.RiskFree)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	s.record("portfolio", p.Tickers, p.RawRange, started)
	s.writeJSON(w, http.StatusOK, buildPortfolioJSON(rep, weights, stats, p.Window.String()))
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	kind := chi.URLParam(r, "kind")
	p, rep, status, err := s.runReport(r)
	if err != nil {
		s.writeError(w, r, status, err)
		return
	}

	var img []byte
	switch kind {
	case "prices":
		img, err = charts.PriceLines(rep)
	case "returns":
		ticker := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("ticker")))
		if ticker == "" {
			ticker = rep.Prices.Tickers()[0]
		}
		if _, ok := rep.Returns.Column(ticker); !ok {
			s.writeError(w, r, http.StatusBadRequest,
				fmt.Errorf("%w: ticker %s is not in this analysis", errBadParam, ticker))
			return
		}
		img, err = charts.ReturnsHistogram(rep, ticker)
	case "cumulative":
		img, err = charts.CumulativeLines(rep)
	case "riskreturn":
		img, err = charts.RiskReturnBars(rep)
	case "correlation":
		img, err = charts.CorrelationBars(rep)
	case "portfolio":
		weights, werr := parseWeights(r.URL.Query().Get("weights"), rep.Prices.Tickers())
		if werr != nil {
			s.writeError(w, r, http.StatusBadRequest, werr)
			return
		}
		stats, serr := analysis.ComputePortfolioStats(rep.Returns, weights, p.RiskFree)
		if serr != nil {
			s.writeError(w, r, http.StatusBadRequest, serr)
			return
		}
		img, err = charts.PortfolioGrowth(rep, weights, stats)
	default:
		s.writeError(w, r, http.StatusBadRequest,
			fmt.Errorf("%w: unknown chart kind %q", errBadParam, kind))
		return
	}
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, fmt.Errorf("failed to render %s chart: %w", kind, err))
		return
	}

	s.record("chart", p.Tickers, p.RawRange, started)
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img); err != nil {
		s.log.Warn().Err(err).Str("kind", kind).Msg("failed to write chart response")
	}
}

func (s *Server) handleUsageChart(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("usage tracking is not configured"))
		return
	}

	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 365 {
			s.writeError(w, r, http.StatusBadRequest,
				fmt.Errorf("%w: days %q must be in 1..365", errBadParam, v))
			return
		}
		days = n
	}
	since := time.Now().AddDate(0, 0, -days).Unix()

	var img []byte
	switch view := r.URL.Query().Get("view"); view {
	case "", "pie":
		stats, err := s.store.UsageByKind(since)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		img, err = charts.UsagePie(stats, days)
		if err != nil {
			s.writeError(w, r, http.StatusNotFound, err)
			return
		}
	case "daily":
		series, err := s.store.UsageTimeSeries(since)
		if err != nil {
			s.writeError(w, r, http.StatusInternalServerError, err)
			return
		}
		img, err = charts.UsageLines(series, days)
		if err != nil {
			s.writeError(w, r, http.StatusNotFound, err)
			return
		}
	default:
		s.writeError(w, r, http.StatusBadRequest,
			fmt.Errorf("%w: view %q must be pie or daily", errBadParam, view))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img); err != nil {
		s.log.Warn().Err(err).Msg("failed to write usage chart response")
	}
}

func (s *Server) handleExportPrices(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	p, err := s.parseAnalysisParams(r.URL.Query())
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	table, err := s.market.FetchPriceTable(r.Context(), p.Tickers, p.Window)
	if err != nil {
		s.writeError(w, r, fetchStatus(err), err)
		return
	}

	var buf bytes.Buffer
	if err := export.WritePrices(&buf, table); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.record("export", p.Tickers, p.RawRange, started)
	s.sendCSV(w, export.PricesFilename(time.Now()), buf.Bytes())
}

func (s *Server) handleExportMetrics(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	p, rep, status, err := s.runReport(r)
	if err != nil {
		s.writeError(w, r, status, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMetrics(&buf, rep); err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}

	s.record("export", p.Tickers, p.RawRange, started)
	s.sendCSV(w, export.MetricsFilename(time.Now()), buf.Bytes())
}

func (s *Server) sendCSV(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(data); err != nil {
		s.log.Warn().Err(err).Str("filename", filename).Msg("failed to write csv response")
	}
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	if s.insights == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("insights are not configured"))
		return
	}
	p, rep, status, err := s.runReport(r)
	if err != nil {
		s.writeError(w, r, status, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), insightsTimeout)
	defer cancel()
	text, err := s.insights.Commentary(ctx, rep)
	if err != nil {
		s.writeError(w, r, http.StatusBadGateway, fmt.Errorf("insights generation failed: %w", err))
		return
	}

	s.record("insights", p.Tickers, p.RawRange, started)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"tickers":  p.Tickers,
		"window":   p.Window.String(),
		"insights": text,
	})
}
