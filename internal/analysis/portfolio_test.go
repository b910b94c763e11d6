package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeAssetReturns(t *testing.T) *ReturnsTable {
	t.Helper()
	pt := mustTable(t, []string{"JPM", "AAPL", "MSFT"}, [][]float64{
		{100, 103, 101, 106, 104, 108},
		{200, 198, 207, 204, 212, 209},
		{400, 410, 405, 420, 415, 430},
	})
	rt, err := ComputeReturns(pt)
	require.NoError(t, err)
	return rt
}

func equalWeights(rt *ReturnsTable) PortfolioWeights {
	w := make(PortfolioWeights, len(rt.Tickers()))
	for _, ticker := range rt.Tickers() {
		w[ticker] = 1.0 / float64(len(rt.Tickers()))
	}
	return w
}

func TestPortfolioWeightsValidate(t *testing.T) {
	rt := threeAssetReturns(t)

	t.Run("accepts exact sum", func(t *testing.T) {
		require.NoError(t, equalWeights(rt).Validate(rt))
	})

	t.Run("accepts sum within 1e-7 of one", func(t *testing.T) {
		w := PortfolioWeights{"JPM": 0.3, "AAPL": 0.3, "MSFT": 0.4 + 1e-7}
		require.NoError(t, w.Validate(rt))
		w = PortfolioWeights{"JPM": 0.3, "AAPL": 0.3, "MSFT": 0.4 - 1e-7}
		require.NoError(t, w.Validate(rt))
	})

	t.Run("rejects sum of 0.99", func(t *testing.T) {
		w := PortfolioWeights{"JPM": 0.33, "AAPL": 0.33, "MSFT": 0.33}
		err := w.Validate(rt)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWeightMismatch)
	})

	t.Run("rejects missing ticker", func(t *testing.T) {
		w := PortfolioWeights{"JPM": 0.5, "AAPL": 0.5}
		err := w.Validate(rt)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWeightMismatch)
	})

	t.Run("rejects extra ticker", func(t *testing.T) {
		w := PortfolioWeights{"JPM": 0.25, "AAPL": 0.25, "MSFT": 0.25, "TSLA": 0.25}
		err := w.Validate(rt)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWeightMismatch)
	})

	t.Run("rejects negative weight", func(t *testing.T) {
		w := PortfolioWeights{"JPM": 0.6, "AAPL": 0.6, "MSFT": -0.2}
		err := w.Validate(rt)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrWeightMismatch)
	})
}

func TestPortfolioWeightsRenormalize(t *testing.T) {
	tickers := []string{"JPM", "AAPL"}

	w := PortfolioWeights{"JPM": 30, "AAPL": 50}.Renormalize(tickers)
	assert.InDelta(t, 0.375, w["JPM"], 1e-12)
	assert.InDelta(t, 0.625, w["AAPL"], 1e-12)

	w = PortfolioWeights{}.Renormalize(tickers)
	assert.InDelta(t, 0.5, w["JPM"], 1e-12)
	assert.InDelta(t, 0.5, w["AAPL"], 1e-12)
}

func TestComputePortfolioStatsLinearity(t *testing.T) {
	rt := threeAssetReturns(t)
	weights := PortfolioWeights{"JPM": 0.5, "AAPL": 0.3, "MSFT": 0.2}

	stats, err := ComputePortfolioStats(rt, weights, 0.02)
	require.NoError(t, err)

	assetStats, err := ComputeAssetStats(rt, 0.02)
	require.NoError(t, err)

	// linearity of expectation: series mean equals the weighted asset means
	want := 0.0
	for ticker, w := range weights {
		want += w * assetStats[ticker].MeanDailyReturn
	}
	assert.InDelta(t, want, stats.MeanDailyReturn, 1e-9)
}

func TestComputePortfolioStatsVarianceAgreement(t *testing.T) {
	rt := threeAssetReturns(t)

	stats, err := ComputePortfolioStats(rt, equalWeights(rt), 0.02)
	require.NoError(t, err)

	// w'*Cov*w must match the realized series variance
	assert.InDelta(t, stats.DailyVolatility*stats.DailyVolatility, stats.DailyVariance, 1e-9)
	assert.Greater(t, stats.DailyVariance, 0.0)
}

func TestComputePortfolioStatsSingleAsset(t *testing.T) {
	pt := mustTable(t, []string{"AAPL"}, [][]float64{{100, 102, 106.08, 104}})
	rt, err := ComputeReturns(pt)
	require.NoError(t, err)

	assetStats, err := ComputeAssetStats(rt, 0.02)
	require.NoError(t, err)

	stats, err := ComputePortfolioStats(rt, PortfolioWeights{"AAPL": 1.0}, 0.02)
	require.NoError(t, err)

	s := assetStats["AAPL"]
	assert.Equal(t, s.MeanDailyReturn, stats.MeanDailyReturn)
	assert.Equal(t, s.DailyVolatility, stats.DailyVolatility)
	assert.Equal(t, s.AnnualizedReturn, stats.AnnualizedReturn)
	assert.Equal(t, s.AnnualizedVolatility, stats.AnnualizedVolatility)
	assert.Equal(t, s.SharpeRatio, stats.SharpeRatio)
	assert.Equal(t, s.SharpeDefined, stats.SharpeDefined)
}

func TestComputePortfolioStatsRejectsBadWeightsBeforeComputing(t *testing.T) {
	rt := threeAssetReturns(t)

	_, err := ComputePortfolioStats(rt, PortfolioWeights{"JPM": 1.0}, 0.02)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrWeightMismatch)
}

func TestPortfolioReturnSeries(t *testing.T) {
	pt := mustTable(t, []string{"A", "B"}, [][]float64{
		{100, 110, 99},
		{100, 90, 99},
	})
	rt, err := ComputeReturns(pt)
	require.NoError(t, err)

	series := PortfolioReturnSeries(rt, PortfolioWeights{"A": 0.5, "B": 0.5})
	require.Len(t, series, 2)
	// day 1: 0.5*0.10 + 0.5*(-0.10) = 0
	assert.InDelta(t, 0.0, series[0], 1e-12)
	// day 2: 0.5*(-0.10) + 0.5*0.10 = 0
	assert.InDelta(t, 0.0, series[1], 1e-12)
}

func TestComputePortfolioStatsDeterministic(t *testing.T) {
	rt := threeAssetReturns(t)
	w := equalWeights(rt)

	first, err := ComputePortfolioStats(rt, w, 0.02)
	require.NoError(t, err)
	second, err := ComputePortfolioStats(rt, w, 0.02)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSharpeNeverInfinite(t *testing.T) {
	// a zero-volatility portfolio must surface an undefined Sharpe, not Inf
	pt := mustTable(t, []string{"FLAT"}, [][]float64{{100, 200, 400}})
	rt, err := ComputeReturns(pt)
	require.NoError(t, err)

	stats, err := ComputePortfolioStats(rt, PortfolioWeights{"FLAT": 1.0}, 0.02)
	require.NoError(t, err)
	assert.False(t, stats.SharpeDefined)
	assert.True(t, math.IsNaN(stats.SharpeRatio))
	assert.False(t, math.IsInf(stats.SharpeRatio, 0))
}
