package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualization convention: daily means scale by
// 252, daily volatilities by sqrt(252).
const TradingDaysPerYear = 252

// AssetStats holds the per-ticker descriptive statistics. Volatility is the
// sample standard deviation (n-1 denominator). SharpeRatio is only
// meaningful when SharpeDefined is true; a zero annualized volatility makes
// the ratio undefined and the value is NaN, never +-Inf.
type AssetStats struct {
	MeanDailyReturn      float64
	DailyVolatility      float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	SharpeRatio          float64
	SharpeDefined        bool
}

// ComputeAssetStats calculates per-column statistics over a returns table.
// Annualized return = mean * 252; annualized volatility = std * sqrt(252);
// Sharpe = (annualized return - riskFreeRate) / annualized volatility.
// Sample statistics need at least two return observations per column.
func ComputeAssetStats(returns *ReturnsTable, riskFreeRate float64) (map[string]AssetStats, error) {
	if returns.NumRows() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 return rows for sample statistics, got %d",
			ErrInsufficientData, returns.NumRows())
	}

	out := make(map[string]AssetStats, len(returns.tickers))
	for c, ticker := range returns.tickers {
		col := returns.columns[c]
		mean := stat.Mean(col, nil)
		std := stat.StdDev(col, nil)
		out[ticker] = newAssetStats(mean, std, riskFreeRate)
	}
	return out, nil
}

func newAssetStats(meanDaily, stdDaily, riskFreeRate float64) AssetStats {
	s := AssetStats{
		MeanDailyReturn:      meanDaily,
		DailyVolatility:      stdDaily,
		AnnualizedReturn:     meanDaily * TradingDaysPerYear,
		AnnualizedVolatility: stdDaily * math.Sqrt(TradingDaysPerYear),
	}
	if s.AnnualizedVolatility == 0 {
		s.SharpeRatio = math.NaN()
		return s
	}
	s.SharpeRatio = (s.AnnualizedReturn - riskFreeRate) / s.AnnualizedVolatility
	s.SharpeDefined = true
	return s
}

// SummaryStats describes a price column the way a summary table does:
// count, mean, sample std and the quartile spread.
type SummaryStats struct {
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// ComputeSummaryStats produces per-ticker descriptive statistics of the
// prices themselves. Quartiles interpolate linearly between closest ranks.
func ComputeSummaryStats(prices *PriceTable) map[string]SummaryStats {
	out := make(map[string]SummaryStats, len(prices.tickers))
	for c, ticker := range prices.tickers {
		col := prices.columns[c]
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)
		out[ticker] = SummaryStats{
			Count:  len(col),
			Mean:   stat.Mean(col, nil),
			Std:    stat.StdDev(col, nil),
			Min:    sorted[0],
			Q25:    quantile(sorted, 0.25),
			Median: quantile(sorted, 0.50),
			Q75:    quantile(sorted, 0.75),
			Max:    sorted[len(sorted)-1],
		}
	}
	return out
}

// quantile interpolates linearly at rank (n-1)*p over an ascending-sorted
// slice. gonum's stat.Quantile cumulant kinds follow a different convention,
// so the closest-ranks rule is computed directly.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := float64(len(sorted)-1) * p
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
