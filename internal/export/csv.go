// Package export writes the analysis outputs as CSV downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"stockRiskAnalyzer/internal/analysis"
)

// PricesFilename names the price download for the given day, e.g.
// stock_prices_20240102.csv.
func PricesFilename(now time.Time) string {
	return fmt.Sprintf("stock_prices_%s.csv", now.Format("20060102"))
}

// MetricsFilename names the metrics download for the given day.
func MetricsFilename(now time.Time) string {
	return fmt.Sprintf("risk_return_metrics_%s.csv", now.Format("20060102"))
}

// WritePrices streams the price table: a Date column plus one column per
// ticker, dates as YYYY-MM-DD.
func WritePrices(w io.Writer, table *analysis.PriceTable) error {
	cw := csv.NewWriter(w)

	header := append([]string{"Date"}, table.Tickers()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	dates := table.Dates()
	for row, date := range dates {
		record := make([]string, 0, len(header))
		record = append(record, date.Format("2006-01-02"))
		for col := range table.Tickers() {
			record = append(record, strconv.FormatFloat(table.At(row, col), 'f', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteMetrics streams the per-ticker risk/return metrics, values rounded to
// 4 decimals. An undefined Sharpe ratio is written as the literal NaN.
func WriteMetrics(w io.Writer, r *analysis.Report) error {
	cw := csv.NewWriter(w)

	header := []string{
		"Ticker",
		"Mean Daily Return",
		"Volatility (Daily)",
		"Annualized Return (%)",
		"Annualized Volatility (%)",
		"Sharpe Ratio",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, ticker := range r.Prices.Tickers() {
		s := r.AssetStats[ticker]
		sharpe := "NaN"
		if s.SharpeDefined {
			sharpe = format4(s.SharpeRatio)
		}
		record := []string{
			ticker,
			format4(s.MeanDailyReturn),
			format4(s.DailyVolatility),
			format4(s.AnnualizedReturn * 100),
			format4(s.AnnualizedVolatility * 100),
			sharpe,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// format4 rounds to 4 decimals and prints the shortest representation of the
// rounded value.
func format4(v float64) string {
	return strconv.FormatFloat(math.Round(v*1e4)/1e4, 'f', -1, 64)
}
