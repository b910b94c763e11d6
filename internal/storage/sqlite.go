// Package storage persists usage telemetry in SQLite: one row per served
// analysis, aggregated for the /usage views.
package storage

import (
	"database/sql"
	"sort"
	"strings"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

type Store struct{ db DB }

// UsageStats aggregates one request kind: total count plus per-ticker counts.
type UsageStats struct {
	Count   int
	Tickers map[string]int
}

// TimeSeriesPoint is one day bucket of request counts.
type TimeSeriesPoint struct {
	Timestamp int64
	Count     int
}

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS usage_log(
		kind TEXT, tickers TEXT, window TEXT, duration_ms INTEGER, ts INTEGER
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_usage_ts ON usage_log(ts)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

// RecordUsage logs one served request. Tickers are stored comma-joined in
// request order.
func (s *Store) RecordUsage(kind string, tickers []string, window string, durationMS int64, ts int64) error {
	_, err := s.db.Exec(`INSERT INTO usage_log(kind,tickers,window,duration_ms,ts) VALUES(?,?,?,?,?)`,
		kind, strings.Join(tickers, ","), window, durationMS, ts)
	return err
}

// UsageByKind aggregates requests since the given epoch into per-kind stats
// with ticker breakdowns.
func (s *Store) UsageByKind(since int64) (map[string]*UsageStats, error) {
	rows, err := s.db.Query(`SELECT kind, tickers FROM usage_log WHERE ts>=?`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*UsageStats)
	for rows.Next() {
		var kind, tickers string
		if err := rows.Scan(&kind, &tickers); err != nil {
			return nil, err
		}
		stat, ok := out[kind]
		if !ok {
			stat = &UsageStats{Tickers: make(map[string]int)}
			out[kind] = stat
		}
		stat.Count++
		for _, t := range strings.Split(tickers, ",") {
			if t != "" {
				stat.Tickers[t]++
			}
		}
	}
	return out, rows.Err()
}

// UsageTimeSeries buckets requests since the given epoch into UTC days, one
// series per kind. Days with no requests are absent.
func (s *Store) UsageTimeSeries(since int64) (map[string][]TimeSeriesPoint, error) {
	rows, err := s.db.Query(
		`SELECT kind, (ts/86400)*86400 AS day, COUNT(*) FROM usage_log WHERE ts>=? GROUP BY kind, day ORDER BY day ASC`,
		since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]TimeSeriesPoint)
	for rows.Next() {
		var kind string
		var day int64
		var count int
		if err := rows.Scan(&kind, &day, &count); err != nil {
			return nil, err
		}
		out[kind] = append(out[kind], TimeSeriesPoint{Timestamp: day, Count: count})
	}
	return out, rows.Err()
}

// TopTickers returns the most requested tickers since the given epoch,
// descending by count with lexical tie-break, at most limit entries.
func (s *Store) TopTickers(since int64, limit int) ([]string, error) {
	byKind, err := s.UsageByKind(since)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, stat := range byKind {
		for t, n := range stat.Tickers {
			counts[t] += n
		}
	}
	tickers := make([]string, 0, len(counts))
	for t := range counts {
		tickers = append(tickers, t)
	}
	sort.Slice(tickers, func(i, j int) bool {
		if counts[tickers[i]] != counts[tickers[j]] {
			return counts[tickers[i]] > counts[tickers[j]]
		}
		return tickers[i] < tickers[j]
	})
	if limit > 0 && len(tickers) > limit {
		tickers = tickers[:limit]
	}
	return tickers, nil
}
