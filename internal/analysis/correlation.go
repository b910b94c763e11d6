package analysis

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// CorrelationMatrix holds pairwise Pearson correlations of daily returns.
// Symmetric by construction with the diagonal pinned to exactly 1.0. A cell
// involving a zero-variance column is NaN (the coefficient is undefined
// there); such cells never appear in high-correlation pair output.
type CorrelationMatrix struct {
	tickers []string
	values  [][]float64
	index   map[string]int
}

// Tickers returns the row/column order.
func (m *CorrelationMatrix) Tickers() []string { return m.tickers }

// At returns the correlation at (row, col) positions.
func (m *CorrelationMatrix) At(row, col int) float64 { return m.values[row][col] }

// Lookup returns the correlation between two tickers and whether both exist.
func (m *CorrelationMatrix) Lookup(a, b string) (float64, bool) {
	i, ok := m.index[a]
	if !ok {
		return 0, false
	}
	j, ok := m.index[b]
	if !ok {
		return 0, false
	}
	return m.values[i][j], true
}

// ComputeCorrelationMatrix calculates the Pearson correlation of every
// ticker pair's daily returns. Needs at least two return observations.
func ComputeCorrelationMatrix(returns *ReturnsTable) (*CorrelationMatrix, error) {
	if returns.NumRows() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 return rows for correlation, got %d",
			ErrInsufficientData, returns.NumRows())
	}

	n := len(returns.tickers)
	values := make([][]float64, n)
	for i := range values {
		values[i] = make([]float64, n)
		values[i][i] = 1.0
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := stat.Correlation(returns.columns[i], returns.columns[j], nil)
			values[i][j] = r
			values[j][i] = r
		}
	}

	index := make(map[string]int, n)
	for i, t := range returns.tickers {
		index[t] = i
	}
	return &CorrelationMatrix{
		tickers: append([]string(nil), returns.tickers...),
		values:  values,
		index:   index,
	}, nil
}

// CorrelationPair is one off-diagonal entry at or above a threshold.
// TickerA sorts lexically before TickerB.
type CorrelationPair struct {
	TickerA     string
	TickerB     string
	Correlation float64
}

// FindHighCorrelationPairs returns every unordered ticker pair whose
// absolute correlation is at or above threshold, each pair reported once,
// sorted by descending absolute correlation with ties broken by lexical
// (TickerA, TickerB) order.
func FindHighCorrelationPairs(matrix *CorrelationMatrix, threshold float64) []CorrelationPair {
	pairs := []CorrelationPair{}
	n := len(matrix.tickers)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r := matrix.values[i][j]
			if math.Abs(r) >= threshold {
				a, b := matrix.tickers[i], matrix.tickers[j]
				if b < a {
					a, b = b, a
				}
				pairs = append(pairs, CorrelationPair{TickerA: a, TickerB: b, Correlation: r})
			}
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		ai, aj := math.Abs(pairs[i].Correlation), math.Abs(pairs[j].Correlation)
		if ai != aj {
			return ai > aj
		}
		if pairs[i].TickerA != pairs[j].TickerA {
			return pairs[i].TickerA < pairs[j].TickerA
		}
		return pairs[i].TickerB < pairs[j].TickerB
	})
	return pairs
}
