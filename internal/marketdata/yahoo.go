package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	yahooHosts = []string{"query1.finance.yahoo.com", "query2.finance.yahoo.com"}
	backoffs   = []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second}
)

const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// Client fetches daily adjusted closing prices from the Yahoo Finance chart
// API. It retries across two hosts with staged backoff, falls back to the v7
// spark endpoint, rate-limits its own requests, and caches assembled tables
// for a short TTL.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *tableCache
	log        zerolog.Logger
}

// NewClient builds a market data client. The limiter keeps burst dashboard
// traffic from hammering the upstream.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		cache:      newTableCache(),
		log:        log.With().Str("component", "marketdata").Logger(),
	}
}

// chartURL builds the v8 chart request for one symbol. A window resolves
// either to a named range or to an explicit period1/period2 epoch pair.
func chartURL(host, symbol string, w Window) string {
	if w.Explicit() {
		return fmt.Sprintf("https://%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&includePrePost=false&events=div%%2Csplits",
			host, symbol, w.Start.Unix(), w.End.Unix())
	}
	return fmt.Sprintf("https://%s/v8/finance/chart/%s?range=%s&interval=1d&includePrePost=false&events=div%%2Csplits",
		host, symbol, w.Range)
}

func sparkURL(host, symbol string, w Window) string {
	return fmt.Sprintf("https://%s/v7/finance/spark?symbols=%s&range=%s&interval=1d",
		host, strings.ToUpper(symbol), w.rangeOrDefault())
}

// fetchDailySeries fetches one symbol's daily bars: timestamps plus adjusted
// closes (raw closes when the response has no adjclose indicator).
func (c *Client) fetchDailySeries(ctx context.Context, symbol string, w Window) ([]int64, []float64, error) {
	var yc yahooChartResp
	var lastErr error

	for attempt := 0; attempt < len(backoffs)+1; attempt++ {
		for _, host := range yahooHosts {
			body, err := c.get(ctx, chartURL(host, symbol, w), symbol, host)
			if err != nil {
				lastErr = err
				continue
			}
			if err := json.Unmarshal(body, &yc); err != nil {
				lastErr = fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
				continue
			}
			lastErr = nil
			break
		}
		if lastErr == nil {
			break
		}
		c.log.Warn().Str("symbol", symbol).Int("attempt", attempt+1).Err(lastErr).Msg("yahoo chart fetch failed, retrying")
		if attempt < len(backoffs) {
			if err := sleepCtx(ctx, backoffs[attempt]); err != nil {
				return nil, nil, err
			}
		}
	}

	if lastErr != nil {
		// spark only understands named ranges, so explicit date windows
		// cannot fall back
		if w.Explicit() {
			return nil, nil, lastErr
		}
		ts, cl, sparkErr := c.fetchSpark(ctx, symbol, w)
		if sparkErr != nil {
			return nil, nil, lastErr
		}
		return ts, cl, nil
	}

	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil, fmt.Errorf("no data for %s", symbol)
	}
	res := yc.Chart.Result[0]
	ts := res.Timestamp
	cl := res.Indicators.Quote[0].Close
	if len(res.Indicators.Adjclose) > 0 && len(res.Indicators.Adjclose[0].Adjclose) == len(ts) {
		cl = res.Indicators.Adjclose[0].Adjclose
	}
	if len(ts) == 0 || len(cl) == 0 {
		return nil, nil, fmt.Errorf("empty bars for %s", symbol)
	}
	ts, cl = filterNonPositive(ts, cl)
	ts, cl = filterIQR(ts, cl, 1.5, 20)
	return ts, cl, nil
}

// fetchSpark is the v7 fallback used when every chart attempt failed.
func (c *Client) fetchSpark(ctx context.Context, symbol string, w Window) ([]int64, []float64, error) {
	var lastErr error
	for attempt := 0; attempt < len(backoffs)+1; attempt++ {
		for _, host := range yahooHosts {
			body, err := c.get(ctx, sparkURL(host, symbol, w), symbol, host)
			if err != nil {
				lastErr = err
				continue
			}
			var sp yahooSparkResp
			if err := json.Unmarshal(body, &sp); err != nil {
				lastErr = fmt.Errorf("failed to parse yahoo spark json: %v", err)
				continue
			}
			if len(sp.Spark.Result) > 0 && len(sp.Spark.Result[0].Response) > 0 {
				ts := sp.Spark.Result[0].Response[0].Timestamp
				cl := sp.Spark.Result[0].Response[0].Close
				ts, cl = filterNonPositive(ts, cl)
				ts, cl = filterIQR(ts, cl, 1.5, 20)
				return ts, cl, nil
			}
			lastErr = fmt.Errorf("spark returned no series for %s", symbol)
		}
		if attempt < len(backoffs) {
			if err := sleepCtx(ctx, backoffs[attempt]); err != nil {
				return nil, nil, err
			}
		}
	}
	return nil, nil, lastErr
}

// get performs one rate-limited request with browser-like headers and the
// body checks Yahoo needs: 429 detection and HTML/error-page rejection.
func (c *Client) get(ctx context.Context, url, symbol, host string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/chart", strings.ToUpper(symbol)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read yahoo response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests") {
		return nil, fmt.Errorf("yahoo %s returned 429: Edge: Too Many Requests", host)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s returned %d: %s", host, resp.StatusCode, preview(body))
	}
	if strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:") {
		return nil, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	return body, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
