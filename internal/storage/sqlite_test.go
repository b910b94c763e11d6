package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(db))
	return NewStore(db)
}

func TestRecordAndAggregateUsage(t *testing.T) {
	s := setupStore(t)
	now := time.Now().Unix()

	require.NoError(t, s.RecordUsage("analysis", []string{"AAPL", "MSFT"}, "1y", 120, now))
	require.NoError(t, s.RecordUsage("analysis", []string{"AAPL"}, "6mo", 80, now+1))
	require.NoError(t, s.RecordUsage("portfolio", []string{"JPM", "SPY"}, "1y", 200, now+2))

	stats, err := s.UsageByKind(now)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	analysis := stats["analysis"]
	require.NotNil(t, analysis)
	assert.Equal(t, 2, analysis.Count)
	assert.Equal(t, map[string]int{"AAPL": 2, "MSFT": 1}, analysis.Tickers)

	portfolio := stats["portfolio"]
	require.NotNil(t, portfolio)
	assert.Equal(t, 1, portfolio.Count)
	assert.Equal(t, map[string]int{"JPM": 1, "SPY": 1}, portfolio.Tickers)
}

func TestUsageByKindSinceFilter(t *testing.T) {
	s := setupStore(t)
	cutoff := time.Now().Unix()

	require.NoError(t, s.RecordUsage("analysis", []string{"AAPL"}, "1y", 50, cutoff-3600))
	require.NoError(t, s.RecordUsage("analysis", []string{"MSFT"}, "1y", 50, cutoff+3600))

	stats, err := s.UsageByKind(cutoff)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats["analysis"].Count)
	assert.Equal(t, map[string]int{"MSFT": 1}, stats["analysis"].Tickers)
}

func TestUsageTimeSeriesBucketsByDay(t *testing.T) {
	s := setupStore(t)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).Unix()

	require.NoError(t, s.RecordUsage("analysis", []string{"AAPL"}, "1y", 50, day+3600))
	require.NoError(t, s.RecordUsage("analysis", []string{"MSFT"}, "1y", 60, day+7200))
	require.NoError(t, s.RecordUsage("analysis", []string{"SPY"}, "1y", 70, day+86400+60))
	require.NoError(t, s.RecordUsage("chart", []string{"SPY"}, "1y", 30, day+60))

	series, err := s.UsageTimeSeries(day)
	require.NoError(t, err)

	require.Len(t, series["analysis"], 2)
	assert.Equal(t, TimeSeriesPoint{Timestamp: day, Count: 2}, series["analysis"][0])
	assert.Equal(t, TimeSeriesPoint{Timestamp: day + 86400, Count: 1}, series["analysis"][1])
	require.Len(t, series["chart"], 1)
	assert.Equal(t, TimeSeriesPoint{Timestamp: day, Count: 1}, series["chart"][0])
}

func TestTopTickers(t *testing.T) {
	s := setupStore(t)
	now := time.Now().Unix()

	require.NoError(t, s.RecordUsage("analysis", []string{"AAPL", "MSFT"}, "1y", 10, now))
	require.NoError(t, s.RecordUsage("analysis", []string{"AAPL", "MSFT"}, "1y", 10, now))
	require.NoError(t, s.RecordUsage("portfolio", []string{"AAPL", "MSFT", "SPY"}, "1y", 10, now))

	top, err := s.TopTickers(now, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "SPY"}, top)

	top, err = s.TopTickers(now, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, top)
}

func TestEmptyStore(t *testing.T) {
	s := setupStore(t)

	stats, err := s.UsageByKind(0)
	require.NoError(t, err)
	assert.Empty(t, stats)

	series, err := s.UsageTimeSeries(0)
	require.NoError(t, err)
	assert.Empty(t, series)

	top, err := s.TopTickers(0, 5)
	require.NoError(t, err)
	assert.Empty(t, top)
}
