package openai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockRiskAnalyzer/internal/analysis"
)

func TestRenderReport(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
	}
	table, err := analysis.NewPriceTable(dates,
		[]string{"AAPL", "MSFT"},
		[][]float64{
			{100, 102, 101, 104},
			{200, 204, 202, 208},
		})
	require.NoError(t, err)
	rep, err := analysis.BuildReport(table, 0.02, 0.7)
	require.NoError(t, err)

	got := renderReport(rep)
	assert.Contains(t, got, "Window: 2024-01-02 to 2024-01-05, 4 trading days")
	assert.Contains(t, got, "Risk-free rate: 2.00%")
	assert.Contains(t, got, "AAPL: mean daily ")
	assert.Contains(t, got, "MSFT: mean daily ")
	assert.Contains(t, got, "Averages: annualized return ")
	// the two synthetic series move in lockstep, so the pair must be listed
	assert.Contains(t, got, "AAPL/MSFT: 1.00")
	assert.NotContains(t, got, "undefined")
}

func TestRenderReportUndefinedSharpe(t *testing.T) {
	dates := []time.Time{
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC),
	}
	table, err := analysis.NewPriceTable(dates,
		[]string{"FLAT"},
		[][]float64{{100, 200, 400}})
	require.NoError(t, err)
	rep, err := analysis.BuildReport(table, 0.02, 0.7)
	require.NoError(t, err)

	got := renderReport(rep)
	assert.Contains(t, got, "Sharpe undefined (zero volatility)")
}
