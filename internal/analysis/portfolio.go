package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// WeightSumTolerance is how far from 1.0 a weight vector's sum may drift
// before it is rejected.
const WeightSumTolerance = 1e-6

// PortfolioWeights maps ticker to its fractional capital allocation.
// Weights must be non-negative and sum to 1.0 within WeightSumTolerance,
// and the ticker set must exactly match the returns table being analyzed.
type PortfolioWeights map[string]float64

// Validate checks the weight vector against a returns table's ticker set.
// Every violation is reported as ErrWeightMismatch with detail.
func (w PortfolioWeights) Validate(returns *ReturnsTable) error {
	var missing, extra []string
	for _, t := range returns.tickers {
		if _, ok := w[t]; !ok {
			missing = append(missing, t)
		}
	}
	for t := range w {
		if _, ok := returns.index[t]; !ok {
			extra = append(extra, t)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(missing)
		sort.Strings(extra)
		return fmt.Errorf("%w: ticker set differs (missing %v, extra %v)", ErrWeightMismatch, missing, extra)
	}

	sum := 0.0
	for _, t := range returns.tickers {
		wt := w[t]
		if math.IsNaN(wt) || math.IsInf(wt, 0) || wt < 0 {
			return fmt.Errorf("%w: weight for %s is %v, must be non-negative", ErrWeightMismatch, t, wt)
		}
		sum += wt
	}
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.9f, expected 1.0 within %.0e", ErrWeightMismatch, sum, WeightSumTolerance)
	}
	return nil
}

// Renormalize scales the weights so they sum to 1.0, preserving
// proportions, and returns the result as a new map. A non-positive sum
// falls back to equal weights over the given tickers. This mirrors what
// interactive weight controls do before calling the engine; the engine
// itself never renormalizes.
func (w PortfolioWeights) Renormalize(tickers []string) PortfolioWeights {
	sum := 0.0
	for _, t := range tickers {
		if wt := w[t]; wt > 0 {
			sum += wt
		}
	}
	out := make(PortfolioWeights, len(tickers))
	if sum <= 0 {
		for _, t := range tickers {
			out[t] = 1.0 / float64(len(tickers))
		}
		return out
	}
	for _, t := range tickers {
		wt := w[t]
		if wt < 0 {
			wt = 0
		}
		out[t] = wt / sum
	}
	return out
}

// PortfolioStats aggregates a weighted portfolio. MeanDailyReturn and
// DailyVolatility come from the realized weighted daily-return series;
// DailyVariance comes from the quadratic form w'*Cov*w over the sample
// covariance matrix. The two variance paths are mathematically identical
// and agree to floating-point precision.
type PortfolioStats struct {
	MeanDailyReturn      float64
	DailyVolatility      float64
	DailyVariance        float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	SharpeRatio          float64
	SharpeDefined        bool
}

// ComputePortfolioStats validates the weight vector, builds the weighted
// daily return series and derives mean/volatility/Sharpe exactly as for a
// single asset. Needs at least two return observations.
func ComputePortfolioStats(returns *ReturnsTable, weights PortfolioWeights, riskFreeRate float64) (PortfolioStats, error) {
	if err := weights.Validate(returns); err != nil {
		return PortfolioStats{}, err
	}
	if returns.NumRows() < 2 {
		return PortfolioStats{}, fmt.Errorf("%w: need at least 2 return rows for sample statistics, got %d",
			ErrInsufficientData, returns.NumRows())
	}

	wv := make([]float64, len(returns.tickers))
	for i, t := range returns.tickers {
		wv[i] = weights[t]
	}

	series := PortfolioReturnSeries(returns, weights)
	mean := stat.Mean(series, nil)
	std := stat.StdDev(series, nil)

	sigma := covarianceMatrix(returns)
	wVec := mat.NewVecDense(len(wv), wv)
	variance := mat.Inner(wVec, sigma, wVec)

	base := newAssetStats(mean, std, riskFreeRate)
	return PortfolioStats{
		MeanDailyReturn:      base.MeanDailyReturn,
		DailyVolatility:      base.DailyVolatility,
		DailyVariance:        variance,
		AnnualizedReturn:     base.AnnualizedReturn,
		AnnualizedVolatility: base.AnnualizedVolatility,
		SharpeRatio:          base.SharpeRatio,
		SharpeDefined:        base.SharpeDefined,
	}, nil
}

// PortfolioReturnSeries builds the realized daily return series of the
// weighted portfolio: out[t] = sum over tickers of weight * return[t].
// Weights are assumed validated.
func PortfolioReturnSeries(returns *ReturnsTable, weights PortfolioWeights) []float64 {
	out := make([]float64, returns.NumRows())
	for c, t := range returns.tickers {
		w := weights[t]
		for row, r := range returns.columns[c] {
			out[row] += w * r
		}
	}
	return out
}

// covarianceMatrix builds the sample covariance matrix of the return
// columns (n-1 denominator, matching the sample standard deviation).
func covarianceMatrix(returns *ReturnsTable) *mat.SymDense {
	n := len(returns.tickers)
	sigma := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sigma.SetSym(i, j, stat.Covariance(returns.columns[i], returns.columns[j], nil))
		}
	}
	return sigma
}
