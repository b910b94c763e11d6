package marketdata

import (
	"sync"
	"time"

	"stockRiskAnalyzer/internal/analysis"
)

// tableCache keeps recently assembled price tables for a short TTL so a
// dashboard page load (report, several charts, CSVs) hits Yahoo once per
// ticker set instead of once per request.
type tableCache struct {
	mu      sync.Mutex
	entries map[string]tableCacheEntry
}

func newTableCache() *tableCache {
	return &tableCache{entries: map[string]tableCacheEntry{}}
}

func (tc *tableCache) get(key string) (*analysis.PriceTable, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if entry, ok := tc.entries[key]; ok {
		if time.Now().Before(entry.createdAt.Add(tableCacheTTL)) {
			return entry.table, true
		}
		delete(tc.entries, key)
	}
	return nil, false
}

func (tc *tableCache) set(key string, table *analysis.PriceTable) {
	tc.mu.Lock()
	tc.entries[key] = tableCacheEntry{createdAt: time.Now(), table: table}
	tc.mu.Unlock()
}
