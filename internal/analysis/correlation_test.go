package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeCorrelationMatrixSymmetryAndDiagonal(t *testing.T) {
	pt := mustTable(t, []string{"AAPL", "MSFT", "SPY"}, [][]float64{
		{100, 102, 101, 105, 104},
		{200, 195, 203, 207, 202},
		{400, 404, 399, 408, 410},
	})
	rt, err := ComputeReturns(pt)
	require.NoError(t, err)

	m, err := ComputeCorrelationMatrix(rt)
	require.NoError(t, err)

	n := len(m.Tickers())
	require.Equal(t, 3, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, 1.0, m.At(i, i), "diagonal must be exactly 1.0")
		for j := 0; j < n; j++ {
			assert.Equal(t, m.At(i, j), m.At(j, i), "matrix must be symmetric at (%d,%d)", i, j)
			assert.LessOrEqual(t, m.At(i, j), 1.0+1e-12)
			assert.GreaterOrEqual(t, m.At(i, j), -1.0-1e-12)
		}
	}
}

func TestComputeCorrelationMatrixPerfectCorrelation(t *testing.T) {
	// Y's returns are exactly double X's: perfectly correlated.
	// Z moves exactly opposite to X.
	pt := mustTable(t, []string{"X", "Y", "Z"}, [][]float64{
		{100, 101, 103.02, 106.1106},
		{100, 102, 106.08, 112.4448},
		{100, 99, 97.02, 94.1094},
	})
	rt, err := ComputeReturns(pt)
	require.NoError(t, err)

	m, err := ComputeCorrelationMatrix(rt)
	require.NoError(t, err)

	xy, ok := m.Lookup("X", "Y")
	require.True(t, ok)
	assert.InDelta(t, 1.0, xy, 1e-9)

	xz, ok := m.Lookup("X", "Z")
	require.True(t, ok)
	assert.InDelta(t, -1.0, xz, 1e-9)
}

// exampleMatrix reproduces a fixed four-ticker correlation structure used
// to pin down pair extraction ordering.
func exampleMatrix() *CorrelationMatrix {
	tickers := []string{"JPM", "AAPL", "MSFT", "SPY"}
	pairs := map[[2]string]float64{
		{"JPM", "AAPL"}:  0.45,
		{"JPM", "MSFT"}:  0.42,
		{"JPM", "SPY"}:   0.68,
		{"AAPL", "MSFT"}: 0.78,
		{"AAPL", "SPY"}:  0.62,
		{"MSFT", "SPY"}:  0.71,
	}

	index := make(map[string]int, len(tickers))
	for i, t := range tickers {
		index[t] = i
	}
	values := make([][]float64, len(tickers))
	for i := range values {
		values[i] = make([]float64, len(tickers))
		values[i][i] = 1.0
	}
	for pair, r := range pairs {
		i, j := index[pair[0]], index[pair[1]]
		values[i][j] = r
		values[j][i] = r
	}
	return &CorrelationMatrix{tickers: tickers, values: values, index: index}
}

func TestFindHighCorrelationPairs(t *testing.T) {
	pairs := FindHighCorrelationPairs(exampleMatrix(), 0.7)

	require.Len(t, pairs, 2)
	assert.Equal(t, CorrelationPair{TickerA: "AAPL", TickerB: "MSFT", Correlation: 0.78}, pairs[0])
	assert.Equal(t, CorrelationPair{TickerA: "MSFT", TickerB: "SPY", Correlation: 0.71}, pairs[1])
}

func TestFindHighCorrelationPairsThresholdInclusive(t *testing.T) {
	pairs := FindHighCorrelationPairs(exampleMatrix(), 0.68)

	require.Len(t, pairs, 3)
	assert.Equal(t, "AAPL", pairs[0].TickerA)
	assert.Equal(t, "MSFT", pairs[1].TickerA)
	// 0.68 sits exactly on the threshold and must be included
	assert.Equal(t, CorrelationPair{TickerA: "JPM", TickerB: "SPY", Correlation: 0.68}, pairs[2])
}

func TestFindHighCorrelationPairsNegativeAndTies(t *testing.T) {
	tickers := []string{"A", "B", "C", "D"}
	index := map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}
	values := [][]float64{
		{1, -0.9, 0.75, 0},
		{-0.9, 1, 0, 0},
		{0.75, 0, 1, 0.75},
		{0, 0, 0.75, 1},
	}
	m := &CorrelationMatrix{tickers: tickers, values: values, index: index}

	pairs := FindHighCorrelationPairs(m, 0.7)
	require.Len(t, pairs, 3)
	// strongest absolute correlation first even when negative
	assert.Equal(t, CorrelationPair{TickerA: "A", TickerB: "B", Correlation: -0.9}, pairs[0])
	// equal-magnitude pairs fall back to lexical order
	assert.Equal(t, CorrelationPair{TickerA: "A", TickerB: "C", Correlation: 0.75}, pairs[1])
	assert.Equal(t, CorrelationPair{TickerA: "C", TickerB: "D", Correlation: 0.75}, pairs[2])
}

func TestFindHighCorrelationPairsEmpty(t *testing.T) {
	pairs := FindHighCorrelationPairs(exampleMatrix(), 0.99)
	assert.Empty(t, pairs)
}
