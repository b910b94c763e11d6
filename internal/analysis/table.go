// Package analysis implements the portfolio statistics engine: pure,
// deterministic computations over validated in-memory price and return
// tables. All validation happens at construction; no function here performs
// I/O, retries, or keeps state between calls.
package analysis

import (
	"fmt"
	"math"
	"time"
)

// PriceTable is an ordered series of trading dates with one adjusted-close
// column per ticker. Invariants enforced at construction: dates strictly
// ascending and unique, at least two rows, every column the same length as
// the date index, every price a positive finite number.
type PriceTable struct {
	dates   []time.Time
	tickers []string
	columns [][]float64
	index   map[string]int
}

// NewPriceTable builds a validated PriceTable. The columns slice is parallel
// to tickers; input slices are copied so later caller mutations cannot
// corrupt the table.
func NewPriceTable(dates []time.Time, tickers []string, columns [][]float64) (*PriceTable, error) {
	if len(dates) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, got %d", ErrInsufficientData, len(dates))
	}
	if len(tickers) == 0 {
		return nil, fmt.Errorf("price table: no tickers")
	}
	if len(tickers) != len(columns) {
		return nil, fmt.Errorf("price table: %d tickers but %d columns", len(tickers), len(columns))
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("price table: dates not strictly ascending at row %d (%s >= %s)",
				i, dates[i-1].Format("2006-01-02"), dates[i].Format("2006-01-02"))
		}
	}

	index := make(map[string]int, len(tickers))
	for i, t := range tickers {
		if t == "" {
			return nil, fmt.Errorf("price table: empty ticker at column %d", i)
		}
		if _, dup := index[t]; dup {
			return nil, fmt.Errorf("price table: duplicate ticker %s", t)
		}
		index[t] = i
		if len(columns[i]) != len(dates) {
			return nil, fmt.Errorf("price table: column %s has %d rows, index has %d", t, len(columns[i]), len(dates))
		}
		for row, p := range columns[i] {
			if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
				return nil, fmt.Errorf("price table: invalid price %v for %s at row %d", p, t, row)
			}
		}
	}

	cp := &PriceTable{
		dates:   append([]time.Time(nil), dates...),
		tickers: append([]string(nil), tickers...),
		columns: make([][]float64, len(columns)),
		index:   index,
	}
	for i, col := range columns {
		cp.columns[i] = append([]float64(nil), col...)
	}
	return cp, nil
}

// Dates returns the shared date index.
func (pt *PriceTable) Dates() []time.Time { return pt.dates }

// Tickers returns the column order.
func (pt *PriceTable) Tickers() []string { return pt.tickers }

// NumRows returns the number of trading dates.
func (pt *PriceTable) NumRows() int { return len(pt.dates) }

// Column returns the price series for a ticker and whether it exists.
func (pt *PriceTable) Column(ticker string) ([]float64, bool) {
	i, ok := pt.index[ticker]
	if !ok {
		return nil, false
	}
	return pt.columns[i], true
}

// At returns the price at (row, column-position).
func (pt *PriceTable) At(row, col int) float64 { return pt.columns[col][row] }

// ReturnsTable is a date-indexed table of fractional values with the same
// column set as the PriceTable it derives from and one fewer row. It is also
// the shape cumulative-return series are carried in.
type ReturnsTable struct {
	dates   []time.Time
	tickers []string
	columns [][]float64
	index   map[string]int
}

// Dates returns the date index (the first price row's date is dropped).
func (rt *ReturnsTable) Dates() []time.Time { return rt.dates }

// Tickers returns the column order.
func (rt *ReturnsTable) Tickers() []string { return rt.tickers }

// NumRows returns the number of return observations.
func (rt *ReturnsTable) NumRows() int { return len(rt.dates) }

// Column returns the return series for a ticker and whether it exists.
func (rt *ReturnsTable) Column(ticker string) ([]float64, bool) {
	i, ok := rt.index[ticker]
	if !ok {
		return nil, false
	}
	return rt.columns[i], true
}

// At returns the value at (row, column-position).
func (rt *ReturnsTable) At(row, col int) float64 { return rt.columns[col][row] }

// ComputeReturns derives the daily percentage-change table:
// cell[t,k] = (price[t,k] - price[t-1,k]) / price[t-1,k].
// The result has the same columns and exactly one fewer row.
func ComputeReturns(prices *PriceTable) (*ReturnsTable, error) {
	if prices.NumRows() < 2 {
		return nil, fmt.Errorf("%w: need at least 2 price rows, got %d", ErrInsufficientData, prices.NumRows())
	}

	n := prices.NumRows() - 1
	rt := &ReturnsTable{
		dates:   append([]time.Time(nil), prices.dates[1:]...),
		tickers: append([]string(nil), prices.tickers...),
		columns: make([][]float64, len(prices.tickers)),
		index:   make(map[string]int, len(prices.tickers)),
	}
	for c := range prices.tickers {
		col := make([]float64, n)
		for t := 1; t <= n; t++ {
			prev := prices.columns[c][t-1]
			col[t-1] = (prices.columns[c][t] - prev) / prev
		}
		rt.columns[c] = col
		rt.index[prices.tickers[c]] = c
	}
	return rt, nil
}

// ComputeCumulativeReturns compounds daily returns into the running total
// return through each date: cell[t,k] = prod(1+r[s,k], s<=t) - 1.
func ComputeCumulativeReturns(returns *ReturnsTable) *ReturnsTable {
	ct := &ReturnsTable{
		dates:   append([]time.Time(nil), returns.dates...),
		tickers: append([]string(nil), returns.tickers...),
		columns: make([][]float64, len(returns.tickers)),
		index:   make(map[string]int, len(returns.tickers)),
	}
	for c := range returns.tickers {
		col := make([]float64, returns.NumRows())
		growth := 1.0
		for t, r := range returns.columns[c] {
			growth *= 1 + r
			col[t] = growth - 1
		}
		ct.columns[c] = col
		ct.index[returns.tickers[c]] = c
	}
	return ct
}
