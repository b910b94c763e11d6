package server

import (
	"math"
	"time"

	"stockRiskAnalyzer/internal/analysis"
)

// JSON shapes for the API. Sharpe ratios and correlation cells can be NaN
// inside the engine, which encoding/json refuses to serialize, so those
// fields travel as *float64 and undefined values become null.

type assetStatsJSON struct {
	MeanDailyReturn      float64  `json:"mean_daily_return"`
	DailyVolatility      float64  `json:"daily_volatility"`
	AnnualizedReturn     float64  `json:"annualized_return"`
	AnnualizedVolatility float64  `json:"annualized_volatility"`
	SharpeRatio          *float64 `json:"sharpe_ratio"`
}

type summaryJSON struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Q25    float64 `json:"q25"`
	Median float64 `json:"median"`
	Q75    float64 `json:"q75"`
	Max    float64 `json:"max"`
}

type correlationPairJSON struct {
	TickerA     string  `json:"ticker_a"`
	TickerB     string  `json:"ticker_b"`
	Correlation float64 `json:"correlation"`
}

type averagesJSON struct {
	MeanDailyReturn      float64 `json:"mean_daily_return"`
	DailyVolatility      float64 `json:"daily_volatility"`
	AnnualizedReturn     float64 `json:"annualized_return"`
	AnnualizedVolatility float64 `json:"annualized_volatility"`
}

type analysisJSON struct {
	Tickers              []string                   `json:"tickers"`
	Window               string                     `json:"window"`
	RiskFreeRate         float64                    `json:"risk_free_rate"`
	CorrelationThreshold float64                    `json:"correlation_threshold"`
	Dates                []string                   `json:"dates"`
	ReturnDates          []string                   `json:"return_dates"`
	Prices               map[string][]float64       `json:"prices"`
	Returns              map[string][]float64       `json:"returns"`
	Cumulative           map[string][]float64       `json:"cumulative"`
	Stats                map[string]assetStatsJSON  `json:"stats"`
	Summary              map[string]summaryJSON     `json:"summary"`
	Correlation          [][]*float64               `json:"correlation"`
	HighCorrelation      []correlationPairJSON      `json:"high_correlation"`
	Averages             averagesJSON               `json:"averages"`
}

type portfolioJSON struct {
	Tickers              []string           `json:"tickers"`
	Window               string             `json:"window"`
	Weights              map[string]float64 `json:"weights"`
	MeanDailyReturn      float64            `json:"mean_daily_return"`
	DailyVolatility      float64            `json:"daily_volatility"`
	DailyVariance        float64            `json:"daily_variance"`
	AnnualizedReturn     float64            `json:"annualized_return"`
	AnnualizedVolatility float64            `json:"annualized_volatility"`
	SharpeRatio          *float64           `json:"sharpe_ratio"`
}

func nullableFloat(v float64, defined bool) *float64 {
	if !defined || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	return out
}

func copyColumns(tickers []string, column func(string) ([]float64, bool)) map[string][]float64 {
	out := make(map[string][]float64, len(tickers))
	for _, t := range tickers {
		src, ok := column(t)
		if !ok {
			continue
		}
		vals := make([]float64, len(src))
		copy(vals, src)
		out[t] = vals
	}
	return out
}

func buildAnalysisJSON(r *analysis.Report, window string) analysisJSON {
	tickers := r.Prices.Tickers()

	stats := make(map[string]assetStatsJSON, len(tickers))
	for t, st := range r.AssetStats {
		stats[t] = assetStatsJSON{
			MeanDailyReturn:      st.MeanDailyReturn,
			DailyVolatility:      st.DailyVolatility,
			AnnualizedReturn:     st.AnnualizedReturn,
			AnnualizedVolatility: st.AnnualizedVolatility,
			SharpeRatio:          nullableFloat(st.SharpeRatio, st.SharpeDefined),
		}
	}

	summary := make(map[string]summaryJSON, len(tickers))
	for t, sm := range r.Summary {
		summary[t] = summaryJSON{
			Count:  sm.Count,
			Mean:   sm.Mean,
			Std:    sm.Std,
			Min:    sm.Min,
			Q25:    sm.Q25,
			Median: sm.Median,
			Q75:    sm.Q75,
			Max:    sm.Max,
		}
	}

	corrTickers := r.Correlation.Tickers()
	corr := make([][]*float64, len(corrTickers))
	for i := range corrTickers {
		corr[i] = make([]*float64, len(corrTickers))
		for j := range corrTickers {
			v := r.Correlation.At(i, j)
			corr[i][j] = nullableFloat(v, true)
		}
	}

	pairs := make([]correlationPairJSON, len(r.HighCorrelation))
	for i, p := range r.HighCorrelation {
		pairs[i] = correlationPairJSON{TickerA: p.TickerA, TickerB: p.TickerB, Correlation: p.Correlation}
	}

	return analysisJSON{
		Tickers:              tickers,
		Window:               window,
		RiskFreeRate:         r.RiskFreeRate,
		CorrelationThreshold: r.CorrelationThreshold,
		Dates:                formatDates(r.Prices.Dates()),
		ReturnDates:          formatDates(r.Returns.Dates()),
		Prices:               copyColumns(tickers, r.Prices.Column),
		Returns:              copyColumns(tickers, r.Returns.Column),
		Cumulative:           copyColumns(tickers, r.Cumulative.Column),
		Stats:                stats,
		Summary:              summary,
		Correlation:          corr,
		HighCorrelation:      pairs,
		Averages: averagesJSON{
			MeanDailyReturn:      r.AvgMeanDailyReturn,
			DailyVolatility:      r.AvgDailyVolatility,
			AnnualizedReturn:     r.AvgAnnualizedReturn,
			AnnualizedVolatility: r.AvgAnnualizedVolatility,
		},
	}
}

func buildPortfolioJSON(r *analysis.Report, weights analysis.PortfolioWeights, stats analysis.PortfolioStats, window string) portfolioJSON {
	w := make(map[string]float64, len(weights))
	for t, v := range weights {
		w[t] = v
	}
	return portfolioJSON{
		Tickers:              r.Prices.Tickers(),
		Window:               window,
		Weights:              w,
		MeanDailyReturn:      stats.MeanDailyReturn,
		DailyVolatility:      stats.DailyVolatility,
		DailyVariance:        stats.DailyVariance,
		AnnualizedReturn:     stats.AnnualizedReturn,
		AnnualizedVolatility: stats.AnnualizedVolatility,
		SharpeRatio:          nullableFloat(stats.SharpeRatio, stats.SharpeDefined),
	}
}
