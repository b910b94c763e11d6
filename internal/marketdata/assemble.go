package marketdata

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"stockRiskAnalyzer/internal/analysis"
)

// ErrInvalidTicker marks ticker validation failures so callers can separate
// bad input from upstream fetch trouble.
var ErrInvalidTicker = errors.New("invalid ticker")

var tickerPattern = regexp.MustCompile(`^[A-Z0-9.^=-]{1,10}$`)

// ValidateTickers trims, uppercases and dedups symbols, preserving first
// occurrence order. At least one valid symbol is required.
func ValidateTickers(raw []string) ([]string, error) {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		su := strings.ToUpper(strings.TrimSpace(s))
		if su == "" {
			continue
		}
		if !tickerPattern.MatchString(su) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTicker, s)
		}
		if _, ok := seen[su]; ok {
			continue
		}
		seen[su] = struct{}{}
		out = append(out, su)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no symbols given", ErrInvalidTicker)
	}
	return out, nil
}

// FetchPriceTable downloads daily bars for every ticker over the window,
// aligns them onto one trading-date calendar (forward-filling interior gaps,
// dropping leading rows until every column has a value) and returns the
// validated table. Results are cached for a short TTL.
func (c *Client) FetchPriceTable(ctx context.Context, tickers []string, w Window) (*analysis.PriceTable, error) {
	tickers, err := ValidateTickers(tickers)
	if err != nil {
		return nil, err
	}

	cacheKey := strings.Join(tickers, ",") + "|" + w.Key()
	if table, ok := c.cache.get(cacheKey); ok {
		return table, nil
	}

	series := make([]assetSeries, 0, len(tickers))
	for _, ticker := range tickers {
		ts, prices, err := c.fetchDailySeries(ctx, ticker, w)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", ticker, err)
		}
		ts, prices = filterToTargetDays(ts, prices, w.TargetDays)
		dates, daily := toTradingDates(ts, prices)
		if len(dates) == 0 {
			return nil, fmt.Errorf("no data available for %s", ticker)
		}
		series = append(series, assetSeries{Ticker: ticker, Dates: dates, Prices: daily})
	}

	dates, columns, err := alignDaily(series)
	if err != nil {
		return nil, err
	}

	table, err := analysis.NewPriceTable(dates, tickers, columns)
	if err != nil {
		return nil, fmt.Errorf("assembling price table: %w", err)
	}

	c.cache.set(cacheKey, table)
	c.log.Debug().
		Strs("tickers", tickers).
		Str("window", w.String()).
		Int("rows", table.NumRows()).
		Msg("assembled price table")
	return table, nil
}

// toTradingDates collapses bar timestamps to their UTC trading date. When
// two bars land on one date (a finished bar plus the live one) the last
// value wins.
func toTradingDates(ts []int64, prices []float64) ([]time.Time, []float64) {
	dates := make([]time.Time, 0, len(ts))
	out := make([]float64, 0, len(prices))
	for i := range ts {
		y, m, d := time.Unix(ts[i], 0).UTC().Date()
		day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		if n := len(dates); n > 0 && dates[n-1].Equal(day) {
			out[n-1] = prices[i]
			continue
		}
		dates = append(dates, day)
		out = append(out, prices[i])
	}
	return dates, out
}

// alignDaily merges per-ticker series onto the union of their trading
// dates. Interior gaps take the prior value; rows before a ticker's first
// observation are dropped for every column, so the table starts at the
// latest first-valid date.
func alignDaily(series []assetSeries) ([]time.Time, [][]float64, error) {
	if len(series) == 0 {
		return nil, nil, fmt.Errorf("no series to align")
	}

	calendar := map[time.Time]struct{}{}
	for _, s := range series {
		for _, d := range s.Dates {
			calendar[d] = struct{}{}
		}
	}
	dates := make([]time.Time, 0, len(calendar))
	for d := range calendar {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	columns := make([][]float64, len(series))
	firstValid := 0
	for i, s := range series {
		byDate := make(map[time.Time]float64, len(s.Dates))
		for j, d := range s.Dates {
			byDate[d] = s.Prices[j]
		}

		col := make([]float64, len(dates))
		last := 0.0
		started := false
		for j, d := range dates {
			if p, ok := byDate[d]; ok {
				last = p
				if !started {
					started = true
					if j > firstValid {
						firstValid = j
					}
				}
			}
			if started {
				col[j] = last
			}
		}
		if !started {
			return nil, nil, fmt.Errorf("no data available for %s", s.Ticker)
		}
		columns[i] = col
	}

	aligned := dates[firstValid:]
	if len(aligned) < 2 {
		return nil, nil, fmt.Errorf("%w: only %d aligned trading days", analysis.ErrInsufficientData, len(aligned))
	}
	for i := range columns {
		columns[i] = columns[i][firstValid:]
	}
	return aligned, columns, nil
}
