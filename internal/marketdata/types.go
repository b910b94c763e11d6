package marketdata

import (
	"time"

	"stockRiskAnalyzer/internal/analysis"
)

// yahooChartResp mirrors the Yahoo v8 chart response (trimmed to needed
// fields). The adjclose indicator is only present when events are requested;
// raw quote closes are the fallback.
type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GmtOffset int    `json:"gmtoffset"`
				Timezone  string `json:"timezone"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
				} `json:"quote"`
				Adjclose []struct {
					Adjclose []float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}

// yahooSparkResp mirrors the Yahoo v7 spark fallback (trimmed). Spark has no
// adjusted closes, so fallback data is raw closes.
type yahooSparkResp struct {
	Spark struct {
		Result []struct {
			Symbol   string `json:"symbol"`
			Response []struct {
				Timestamp []int64   `json:"timestamp"`
				Close     []float64 `json:"close"`
			} `json:"response"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"spark"`
}

// assetSeries is one ticker's cleaned daily bars before alignment.
type assetSeries struct {
	Ticker string
	Dates  []time.Time
	Prices []float64
}

// tableCacheEntry holds an assembled price table with its creation time.
// Tables are never mutated after construction, so entries can be shared.
type tableCacheEntry struct {
	createdAt time.Time
	table     *analysis.PriceTable
}

const tableCacheTTL = 60 * time.Second
