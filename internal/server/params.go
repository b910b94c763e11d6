package server

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockRiskAnalyzer/internal/analysis"
	"stockRiskAnalyzer/internal/marketdata"
)

var errBadParam = errors.New("bad parameter")

// analysisParams carries everything a request needs to run the pipeline.
// RawRange keeps the requested window string for telemetry and echoes.
type analysisParams struct {
	Tickers   []string
	Window    marketdata.Window
	RawRange  string
	RiskFree  float64
	Threshold float64
}

func (s *Server) parseAnalysisParams(q url.Values) (analysisParams, error) {
	p := analysisParams{
		RiskFree:  s.app.RiskFreeRate,
		Threshold: s.app.CorrelationThreshold,
	}

	raw := s.app.DefaultTickers
	if t := q.Get("tickers"); t != "" {
		raw = strings.Split(t, ",")
	}
	tickers, err := marketdata.ValidateTickers(raw)
	if err != nil {
		return p, err
	}
	p.Tickers = tickers

	start, end := q.Get("start"), q.Get("end")
	switch {
	case start != "" || end != "":
		st, err := time.Parse("2006-01-02", start)
		if err != nil {
			return p, fmt.Errorf("%w: start date %q", errBadParam, start)
		}
		en, err := time.Parse("2006-01-02", end)
		if err != nil {
			return p, fmt.Errorf("%w: end date %q", errBadParam, end)
		}
		w, err := marketdata.WindowBetween(st, en)
		if err != nil {
			return p, fmt.Errorf("%w: %v", errBadParam, err)
		}
		p.Window = w
		p.RawRange = w.Key()
	default:
		rangeStr := q.Get("range")
		if rangeStr == "" {
			rangeStr = s.app.DefaultRange
		}
		w, err := marketdata.ParseWindow(rangeStr)
		if err != nil {
			return p, fmt.Errorf("%w: range %q", errBadParam, rangeStr)
		}
		p.Window = w
		p.RawRange = rangeStr
	}

	if v := q.Get("rf"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return p, fmt.Errorf("%w: rf %q", errBadParam, v)
		}
		p.RiskFree = f
	}
	if v := q.Get("threshold"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			return p, fmt.Errorf("%w: threshold %q must be in [0,1]", errBadParam, v)
		}
		p.Threshold = f
	}
	return p, nil
}

// parseWeights reads the weights query value, e.g. "AAPL:0.5,MSFT:0.5".
// An empty value means equal weights across the given tickers. Only syntax
// is checked here; sum and ticker-set validation belong to the engine.
func parseWeights(value string, tickers []string) (analysis.PortfolioWeights, error) {
	weights := make(analysis.PortfolioWeights)
	if strings.TrimSpace(value) == "" {
		for _, t := range tickers {
			weights[t] = 1.0 / float64(len(tickers))
		}
		return weights, nil
	}

	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sym, weightStr, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("%w: weight %q is not TICKER:WEIGHT", errBadParam, part)
		}
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" {
			return nil, fmt.Errorf("%w: empty ticker in weights", errBadParam)
		}
		if _, dup := weights[sym]; dup {
			return nil, fmt.Errorf("%w: duplicate ticker %s in weights", errBadParam, sym)
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(weightStr), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: weight %q for %s", errBadParam, weightStr, sym)
		}
		weights[sym] = f
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: weights listed no tickers", errBadParam)
	}
	return weights, nil
}

// parseSliderWeights reads the dashboard's 0..100 integer sliders (w_TICKER
// params) and renormalizes them by their sum, falling back to equal weights
// when every slider is zero. This mirrors what the UI promises: the engine
// itself never renormalizes.
func parseSliderWeights(q url.Values, tickers []string) analysis.PortfolioWeights {
	rawTotal := 0.0
	raw := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		v := float64(100 / len(tickers))
		if p := q.Get("w_" + t); p != "" {
			if f, err := strconv.ParseFloat(p, 64); err == nil && f >= 0 {
				v = f
			}
		}
		raw[t] = v
		rawTotal += v
	}

	weights := make(analysis.PortfolioWeights, len(tickers))
	for _, t := range tickers {
		if rawTotal > 0 {
			weights[t] = raw[t] / rawTotal
		} else {
			weights[t] = 1.0 / float64(len(tickers))
		}
	}
	return weights
}
