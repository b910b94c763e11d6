package marketdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func stubResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

// chartJSON builds a minimal v8 chart payload with adjusted closes.
func chartJSON(symbol string, timestamps []int64, closes, adjcloses []float64) string {
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":%q,"gmtoffset":-18000,"timezone":"EST"},"timestamp":%s,"indicators":{"quote":[{"close":%s}],"adjclose":[{"adjclose":%s}]}}],"error":null}}`,
		symbol, joinInts(timestamps), joinFloats(closes), joinFloats(adjcloses))
}

func joinInts(xs []int64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%d", x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func joinFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprintf("%g", x)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func testClient(rt roundTripFunc) *Client {
	c := NewClient(zerolog.New(nil).Level(zerolog.Disabled))
	c.httpClient = &http.Client{Transport: rt}
	return c
}

func dailyBars(startDayOfJan, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = time.Date(2024, 1, startDayOfJan+i, 14, 30, 0, 0, time.UTC).Unix()
	}
	return out
}

func TestFetchPriceTable(t *testing.T) {
	aaa := chartJSON("AAA", dailyBars(2, 4), []float64{99, 99, 99, 99}, []float64{100, 101, 102, 103})
	bbb := chartJSON("BBB", []int64{dailyBars(3, 1)[0], dailyBars(5, 1)[0]}, []float64{20, 22}, []float64{20, 22})

	calls := 0
	client := testClient(func(r *http.Request) (*http.Response, error) {
		calls++
		switch {
		case strings.Contains(r.URL.Path, "/v8/finance/chart/AAA"):
			return stubResponse(200, aaa), nil
		case strings.Contains(r.URL.Path, "/v8/finance/chart/BBB"):
			return stubResponse(200, bbb), nil
		default:
			return stubResponse(404, "not found"), nil
		}
	})

	table, err := client.FetchPriceTable(context.Background(), []string{"aaa", "bbb"}, DefaultWindow())
	require.NoError(t, err)

	// adjusted closes win over raw closes
	col, ok := table.Column("AAA")
	require.True(t, ok)
	assert.Equal(t, []float64{101, 102, 103}, col)

	// BBB starts Jan 3, so the table drops AAA's Jan 2 row; the Jan 4 gap
	// forward-fills
	col, ok = table.Column("BBB")
	require.True(t, ok)
	assert.Equal(t, []float64{20, 20, 22}, col)
	require.Equal(t, 3, table.NumRows())

	// second fetch hits the cache, not the transport
	before := calls
	_, err = client.FetchPriceTable(context.Background(), []string{"AAA", "BBB"}, DefaultWindow())
	require.NoError(t, err)
	assert.Equal(t, before, calls)
}

func TestFetchDailySeriesSecondHostFallback(t *testing.T) {
	payload := chartJSON("AAA", dailyBars(2, 3), []float64{100, 101, 102}, []float64{100, 101, 102})

	client := testClient(func(r *http.Request) (*http.Response, error) {
		if r.URL.Host == "query1.finance.yahoo.com" {
			return stubResponse(429, "Edge: Too Many Requests"), nil
		}
		return stubResponse(200, payload), nil
	})

	ts, cl, err := client.fetchDailySeries(context.Background(), "AAA", DefaultWindow())
	require.NoError(t, err)
	assert.Len(t, ts, 3)
	assert.Equal(t, []float64{100, 101, 102}, cl)
}

func TestFetchDailySeriesRejectsHTMLBody(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return stubResponse(200, "<html>blocked</html>"), nil
	})

	_, _, err := client.fetchDailySeries(context.Background(), "AAA", Window{Range: "1y", Start: time.Now().AddDate(-1, 0, 0), End: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-json")
}

func TestFetchDailySeriesSparkFallback(t *testing.T) {
	spark := fmt.Sprintf(`{"spark":{"result":[{"symbol":"AAA","response":[{"timestamp":%s,"close":[100,101,102]}]}],"error":null}}`,
		joinInts(dailyBars(2, 3)))

	client := testClient(func(r *http.Request) (*http.Response, error) {
		if strings.Contains(r.URL.Path, "/v7/finance/spark") {
			return stubResponse(200, spark), nil
		}
		return stubResponse(500, "server error"), nil
	})

	ts, cl, err := client.fetchDailySeries(context.Background(), "AAA", DefaultWindow())
	require.NoError(t, err)
	assert.Len(t, ts, 3)
	assert.Equal(t, []float64{100, 101, 102}, cl)
}

func TestFetchPriceTableCancelledContext(t *testing.T) {
	client := testClient(func(r *http.Request) (*http.Response, error) {
		return stubResponse(500, "server error"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.FetchPriceTable(ctx, []string{"AAA"}, DefaultWindow())
	require.Error(t, err)
}

func TestChartURL(t *testing.T) {
	w := Window{Range: "6mo"}
	url := chartURL("query1.finance.yahoo.com", "AAPL", w)
	assert.Contains(t, url, "/v8/finance/chart/AAPL")
	assert.Contains(t, url, "range=6mo")
	assert.Contains(t, url, "interval=1d")

	exp, err := WindowBetween(day(2), day(31))
	require.NoError(t, err)
	url = chartURL("query2.finance.yahoo.com", "MSFT", exp)
	assert.Contains(t, url, fmt.Sprintf("period1=%d", day(2).Unix()))
	assert.Contains(t, url, fmt.Sprintf("period2=%d", day(31).Unix()))
	assert.NotContains(t, url, "range=")
}
