// Package charts renders the analysis and telemetry PNGs with go-charts.
// Rendered images are cached for a short TTL keyed by chart kind and the
// table identity (tickers plus date span).
package charts

import (
	"fmt"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"stockRiskAnalyzer/internal/analysis"
)

const histogramBins = 50

// reportKey identifies a report by its tickers and date span. Reports built
// from the same table render identical pixels, so this is a safe cache key.
func reportKey(kind string, r *analysis.Report, extra string) string {
	dates := r.Prices.Dates()
	return fmt.Sprintf("%s|%s|%d|%d|%s", kind, strings.Join(r.Prices.Tickers(), ","),
		dates[0].Unix(), dates[len(dates)-1].Unix(), extra)
}

func dateLabels(dates []time.Time) []string {
	layout := "Jan 02"
	if len(dates) > 60 {
		layout = "Jan '06"
	}
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(layout)
	}
	return out
}

func dateSpan(dates []time.Time) string {
	return fmt.Sprintf("%s to %s",
		dates[0].Format("Jan 02, 2006"), dates[len(dates)-1].Format("Jan 02, 2006"))
}

func paddedRange(values [][]float64) (float64, float64) {
	minVal, maxVal := values[0][0], values[0][0]
	for _, series := range values {
		for _, v := range series {
			if v < minVal {
				minVal = v
			}
			if v > maxVal {
				maxVal = v
			}
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = maxVal * 0.05
	}
	return minVal - padding, maxVal + padding
}

func splitNumber(points int) int {
	splitNum := 6
	if points <= 30 {
		splitNum = points / 3
		if splitNum < 3 {
			splitNum = 3
		}
	}
	return splitNum
}

func renderLines(values [][]float64, names, xLabels []string, title, subtitle string) ([]byte, error) {
	yMin, yMax := paddedRange(values)
	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			BoundaryGap: charts.FalseFlag(),
			SplitNumber: splitNumber(len(xLabels)),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionTop}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(500),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

func renderBars(values [][]float64, names, xLabels []string, title, subtitle string) ([]byte, error) {
	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeBar)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}
	opts := []charts.OptionFunc{
		charts.TitleTextOptionFunc(title, subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(500),
	}
	if len(names) > 1 {
		opts = append(opts, charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionTop}))
	}
	p, err := charts.Render(charts.ChartOption{SeriesList: seriesList}, opts...)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// PriceLines renders one adjusted-close line per ticker.
func PriceLines(r *analysis.Report) ([]byte, error) {
	key := reportKey("prices", r, "")
	if img, ok := cacheGet(key); ok {
		return img, nil
	}

	tickers := r.Prices.Tickers()
	values := make([][]float64, 0, len(tickers))
	for _, tk := range tickers {
		col, _ := r.Prices.Column(tk)
		values = append(values, col)
	}

	img, err := renderLines(values, tickers, dateLabels(r.Prices.Dates()),
		"Price History", dateSpan(r.Prices.Dates()))
	if err != nil {
		return nil, err
	}
	cacheSet(key, img)
	return img, nil
}

// CumulativeLines renders the compounded total return per ticker, in percent.
func CumulativeLines(r *analysis.Report) ([]byte, error) {
	key := reportKey("cumulative", r, "")
	if img, ok := cacheGet(key); ok {
		return img, nil
	}

	tickers := r.Cumulative.Tickers()
	values := make([][]float64, 0, len(tickers))
	for _, tk := range tickers {
		col, _ := r.Cumulative.Column(tk)
		pct := make([]float64, len(col))
		for i, v := range col {
			pct[i] = v * 100
		}
		values = append(values, pct)
	}

	img, err := renderLines(values, tickers, dateLabels(r.Cumulative.Dates()),
		"Cumulative Returns (%)", dateSpan(r.Cumulative.Dates()))
	if err != nil {
		return nil, err
	}
	cacheSet(key, img)
	return img, nil
}

// ReturnsHistogram renders one ticker's daily-return distribution: counts
// over 50 equal-width bins spanning that ticker's return range, in percent.
func ReturnsHistogram(r *analysis.Report, ticker string) ([]byte, error) {
	key := reportKey("returns", r, ticker)
	if img, ok := cacheGet(key); ok {
		return img, nil
	}

	col, ok := r.Returns.Column(ticker)
	if !ok {
		return nil, fmt.Errorf("no returns for ticker %s", ticker)
	}
	pct := make([]float64, len(col))
	for i, v := range col {
		pct[i] = v * 100
	}

	minV, maxV := pct[0], pct[0]
	for _, v := range pct {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	// flat series still needs a non-zero bin width
	if maxV == minV {
		maxV = minV + 1
	}
	width := (maxV - minV) / histogramBins

	counts := make([]float64, histogramBins)
	for _, v := range pct {
		idx := int((v - minV) / width)
		if idx >= histogramBins {
			idx = histogramBins - 1
		}
		counts[idx]++
	}
	labels := make([]string, histogramBins)
	for i := range labels {
		labels[i] = fmt.Sprintf("%.2f", minV+width*(float64(i)+0.5))
	}

	img, err := renderBars([][]float64{counts}, []string{ticker}, labels,
		fmt.Sprintf("%s Daily Returns (%%)", ticker), dateSpan(r.Returns.Dates()))
	if err != nil {
		return nil, err
	}
	cacheSet(key, img)
	return img, nil
}

// RiskReturnBars renders annualized return and volatility side by side per
// ticker. The renderer has no scatter type, so grouped bars stand in for the
// usual risk/return scatter.
func RiskReturnBars(r *analysis.Report) ([]byte, error) {
	key := reportKey("riskreturn", r, "")
	if img, ok := cacheGet(key); ok {
		return img, nil
	}

	tickers := r.Prices.Tickers()
	rets := make([]float64, len(tickers))
	vols := make([]float64, len(tickers))
	for i, tk := range tickers {
		s := r.AssetStats[tk]
		rets[i] = s.AnnualizedReturn * 100
		vols[i] = s.AnnualizedVolatility * 100
	}

	img, err := renderBars([][]float64{rets, vols},
		[]string{"Annualized Return (%)", "Annualized Volatility (%)"}, tickers,
		"Risk vs Return", dateSpan(r.Prices.Dates()))
	if err != nil {
		return nil, err
	}
	cacheSet(key, img)
	return img, nil
}

// CorrelationBars renders the correlation matrix one row per ticker as a
// grouped bar chart over the same ticker axis.
func CorrelationBars(r *analysis.Report) ([]byte, error) {
	key := reportKey("correlation", r, "")
	if img, ok := cacheGet(key); ok {
		return img, nil
	}

	tickers := r.Correlation.Tickers()
	values := make([][]float64, len(tickers))
	for i := range tickers {
		row := make([]float64, len(tickers))
		for j := range tickers {
			row[j] = r.Correlation.At(i, j)
		}
		values[i] = row
	}

	img, err := renderBars(values, tickers, tickers,
		"Return Correlations", fmt.Sprintf("threshold %.2f", r.CorrelationThreshold))
	if err != nil {
		return nil, err
	}
	cacheSet(key, img)
	return img, nil
}

// PortfolioGrowth renders the weighted portfolio value indexed to 100 at the
// window start, with headline stats in the subtitle.
func PortfolioGrowth(r *analysis.Report, weights analysis.PortfolioWeights, stats analysis.PortfolioStats) ([]byte, error) {
	tickers := r.Returns.Tickers()
	composition := make([]string, 0, len(tickers))
	for _, tk := range tickers {
		composition = append(composition, fmt.Sprintf("%s %.1f%%", tk, weights[tk]*100))
	}
	key := reportKey("portfolio", r, strings.Join(composition, ","))
	if img, ok := cacheGet(key); ok {
		return img, nil
	}

	series := analysis.PortfolioReturnSeries(r.Returns, weights)
	values := make([]float64, len(series))
	growth := 100.0
	for i, ret := range series {
		growth *= 1 + ret
		values[i] = growth
	}

	sharpe := "n/a"
	if stats.SharpeDefined {
		sharpe = fmt.Sprintf("%.2f", stats.SharpeRatio)
	}
	subtitle := fmt.Sprintf("Return: %.2f%% | Sharpe: %s | Vol: %.2f%%",
		values[len(values)-1]-100, sharpe, stats.AnnualizedVolatility*100)

	img, err := renderLines([][]float64{values}, []string{"Portfolio"},
		dateLabels(r.Returns.Dates()),
		fmt.Sprintf("Weighted Portfolio (%s)", strings.Join(composition, ", ")), subtitle)
	if err != nil {
		return nil, err
	}
	cacheSet(key, img)
	return img, nil
}
