package server

import (
	_ "embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"stockRiskAnalyzer/internal/analysis"
)

//go:embed dashboard.html
var dashboardHTML string

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"colorClass": colorClass,
	"heatStyle":  heatStyle,
}).Parse(dashboardHTML))

func colorClass(v float64) string {
	switch {
	case v > 0:
		return "positive"
	case v < 0:
		return "negative"
	}
	return "neutral"
}

// heatStyle shades a correlation cell: red toward +1, blue toward -1,
// white near zero. NaN cells go gray.
func heatStyle(v float64) template.CSS {
	if math.IsNaN(v) {
		return template.CSS("background:#e7e7e7")
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	fade := 255 - int(math.Abs(v)*160)
	if v >= 0 {
		return template.CSS(fmt.Sprintf("background:rgb(255,%d,%d)", fade, fade))
	}
	return template.CSS(fmt.Sprintf("background:rgb(%d,%d,255)", fade, fade))
}

type dashboardCard struct {
	Label string
	Value string
	Raw   float64
}

type metricsRow struct {
	Ticker    string
	MeanDaily float64
	AnnRet    float64

	MeanDailyStr string
	DailyVolStr  string
	AnnRetStr    string
	AnnVolStr    string
	SharpeStr    string
}

type corrRow struct {
	Ticker string
	Cells  []float64
}

type pairView struct {
	TickerA     string
	TickerB     string
	Correlation string
}

type summaryRow struct {
	Ticker string
	Count  int
	Mean   string
	Std    string
	Min    string
	Q25    string
	Median string
	Q75    string
	Max    string
}

type histogramView struct {
	Ticker string
	URL    template.URL
}

type weightView struct {
	Ticker string
	Slider int
	Pct    string
}

type portfolioView struct {
	Weights   []weightView
	MeanDaily string
	DailyVol  string
	Variance  string
	AnnRet    float64
	AnnRetStr string
	AnnVolStr string
	SharpeStr string
	ChartURL  template.URL
}

type dashboardView struct {
	Title     string
	Generated string
	Error     string

	TickersCSV string
	Range      string
	Ranges     []string
	Start      string
	End        string
	RiskFree   float64
	Threshold  float64
	Query      template.URL

	HaveReport bool
	Window     string
	DateSpan   string
	Rows       int

	Cards      []dashboardCard
	Metrics    []metricsRow
	CorrTicks  []string
	CorrRows   []corrRow
	Pairs      []pairView
	Summary    []summaryRow
	Histograms []histogramView
	Portfolio  *portfolioView

	InsightsEnabled bool
}

var rangePresets = []string{"1m", "3m", "6m", "1y"}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	view := dashboardView{
		Title:           "Stock Risk Analyzer",
		Generated:       time.Now().UTC().Format("15:04:05 UTC, 02 Jan 2006"),
		Ranges:          rangePresets,
		TickersCSV:      strings.Join(s.app.DefaultTickers, ","),
		Range:           s.app.DefaultRange,
		RiskFree:        s.app.RiskFreeRate,
		Threshold:       s.app.CorrelationThreshold,
		InsightsEnabled: s.insights != nil,
	}

	p, err := s.parseAnalysisParams(r.URL.Query())
	if err != nil {
		view.Error = err.Error()
		s.renderDashboard(w, view)
		return
	}
	view.TickersCSV = strings.Join(p.Tickers, ",")
	view.RiskFree = p.RiskFree
	view.Threshold = p.Threshold
	if p.Window.Explicit() {
		view.Range = ""
		view.Start = p.Window.Start.Format("2006-01-02")
		view.End = p.Window.End.Format("2006-01-02")
	} else {
		view.Range = p.RawRange
	}

	table, err := s.market.FetchPriceTable(r.Context(), p.Tickers, p.Window)
	if err != nil {
		view.Error = err.Error()
		s.renderDashboard(w, view)
		return
	}
	rep, err := analysis.BuildReport(table, p.RiskFree, p.Threshold)
	if err != nil {
		view.Error = err.Error()
		s.renderDashboard(w, view)
		return
	}

	weights := parseSliderWeights(r.URL.Query(), rep.Prices.Tickers())
	s.fillReportView(&view, p, rep, weights)
	s.record("dashboard", p.Tickers, p.RawRange, started)
	s.renderDashboard(w, view)
}

func (s *Server) fillReportView(view *dashboardView, p analysisParams, rep *analysis.Report, weights analysis.PortfolioWeights) {
	tickers := rep.Prices.Tickers()
	dates := rep.Prices.Dates()

	view.HaveReport = true
	view.Window = p.Window.String()
	view.DateSpan = dates[0].Format("Jan 02, 2006") + " to " + dates[len(dates)-1].Format("Jan 02, 2006")
	view.Rows = rep.Prices.NumRows()

	query := baseQuery(p)
	view.Query = template.URL(query.Encode())

	view.Cards = []dashboardCard{
		{Label: "Avg Daily Return", Value: fmt.Sprintf("%.3f%%", rep.AvgMeanDailyReturn*100), Raw: rep.AvgMeanDailyReturn},
		{Label: "Avg Daily Volatility", Value: fmt.Sprintf("%.3f%%", rep.AvgDailyVolatility*100), Raw: 0},
		{Label: "Avg Annualized Return", Value: fmt.Sprintf("%.2f%%", rep.AvgAnnualizedReturn*100), Raw: rep.AvgAnnualizedReturn},
		{Label: "Avg Annualized Volatility", Value: fmt.Sprintf("%.2f%%", rep.AvgAnnualizedVolatility*100), Raw: 0},
	}

	for _, t := range tickers {
		st := rep.AssetStats[t]
		row := metricsRow{
			Ticker:       t,
			MeanDaily:    st.MeanDailyReturn,
			AnnRet:       st.AnnualizedReturn,
			MeanDailyStr: fmt.Sprintf("%.4f", st.MeanDailyReturn),
			DailyVolStr:  fmt.Sprintf("%.4f", st.DailyVolatility),
			AnnRetStr:    fmt.Sprintf("%.4f", st.AnnualizedReturn*100),
			AnnVolStr:    fmt.Sprintf("%.4f", st.AnnualizedVolatility*100),
			SharpeStr:    "NaN",
		}
		if st.SharpeDefined {
			row.SharpeStr = fmt.Sprintf("%.4f", st.SharpeRatio)
		}
		view.Metrics = append(view.Metrics, row)
	}

	corrTickers := rep.Correlation.Tickers()
	view.CorrTicks = corrTickers
	for i, t := range corrTickers {
		row := corrRow{Ticker: t, Cells: make([]float64, len(corrTickers))}
		for j := range corrTickers {
			row.Cells[j] = rep.Correlation.At(i, j)
		}
		view.CorrRows = append(view.CorrRows, row)
	}
	for _, pr := range rep.HighCorrelation {
		view.Pairs = append(view.Pairs, pairView{
			TickerA:     pr.TickerA,
			TickerB:     pr.TickerB,
			Correlation: fmt.Sprintf("%.2f", pr.Correlation),
		})
	}

	for _, t := range tickers {
		sm := rep.Summary[t]
		view.Summary = append(view.Summary, summaryRow{
			Ticker: t,
			Count:  sm.Count,
			Mean:   fmt.Sprintf("%.2f", sm.Mean),
			Std:    fmt.Sprintf("%.2f", sm.Std),
			Min:    fmt.Sprintf("%.2f", sm.Min),
			Q25:    fmt.Sprintf("%.2f", sm.Q25),
			Median: fmt.Sprintf("%.2f", sm.Median),
			Q75:    fmt.Sprintf("%.2f", sm.Q75),
			Max:    fmt.Sprintf("%.2f", sm.Max),
		})
	}

	for i, t := range tickers {
		if i >= 4 {
			break
		}
		hq := cloneQuery(query)
		hq.Set("ticker", t)
		view.Histograms = append(view.Histograms, histogramView{
			Ticker: t,
			URL:    template.URL(hq.Encode()),
		})
	}

	stats, err := analysis.ComputePortfolioStats(rep.Returns, weights, p.RiskFree)
	if err != nil {
		s.log.Warn().Err(err).Msg("portfolio stats unavailable for dashboard")
		return
	}
	pv := &portfolioView{
		MeanDaily: fmt.Sprintf("%.4f", stats.MeanDailyReturn),
		DailyVol:  fmt.Sprintf("%.4f", stats.DailyVolatility),
		Variance:  fmt.Sprintf("%.6f", stats.DailyVariance),
		AnnRet:    stats.AnnualizedReturn,
		AnnRetStr: fmt.Sprintf("%.2f%%", stats.AnnualizedReturn*100),
		AnnVolStr: fmt.Sprintf("%.2f%%", stats.AnnualizedVolatility*100),
		SharpeStr: "n/a",
	}
	if stats.SharpeDefined {
		pv.SharpeStr = fmt.Sprintf("%.2f", stats.SharpeRatio)
	}
	parts := make([]string, 0, len(tickers))
	for _, t := range tickers {
		wt := weights[t]
		pv.Weights = append(pv.Weights, weightView{
			Ticker: t,
			Slider: int(math.Round(wt * 100)),
			Pct:    fmt.Sprintf("%.1f%%", wt*100),
		})
		parts = append(parts, fmt.Sprintf("%s:%.9f", t, wt))
	}
	pq := cloneQuery(query)
	pq.Set("weights", strings.Join(parts, ","))
	pv.ChartURL = template.URL(pq.Encode())
	view.Portfolio = pv
}

// baseQuery rebuilds the canonical query string that chart and export URLs
// share with the page itself.
func baseQuery(p analysisParams) url.Values {
	q := url.Values{}
	q.Set("tickers", strings.Join(p.Tickers, ","))
	if p.Window.Explicit() {
		q.Set("start", p.Window.Start.Format("2006-01-02"))
		q.Set("end", p.Window.End.Format("2006-01-02"))
	} else {
		q.Set("range", p.RawRange)
	}
	q.Set("rf", strconv.FormatFloat(p.RiskFree, 'f', -1, 64))
	q.Set("threshold", strconv.FormatFloat(p.Threshold, 'f', -1, 64))
	return q
}

func cloneQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, vs := range q {
		out[k] = append([]string(nil), vs...)
	}
	return out
}

func (s *Server) renderDashboard(w http.ResponseWriter, view dashboardView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, view); err != nil {
		s.log.Error().Err(err).Msg("failed to render dashboard")
	}
}
