package telegram

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"stockRiskAnalyzer/internal/analysis"
	"stockRiskAnalyzer/internal/charts"
	"stockRiskAnalyzer/internal/config"
	"stockRiskAnalyzer/internal/marketdata"
	"stockRiskAnalyzer/internal/storage"
)

var (
	// /analyze S1 S2 ... [1m|3m|6m|1y]
	reAnalyze = regexp.MustCompile(`^/analyze(?:@[\w_]+)?\s+([A-Za-z0-9\.^=\-\s]+?)(?:\s+(1m|3m|6m|1y))?$`)
	// /corr S1 S2 ... [threshold]
	reCorr = regexp.MustCompile(`^/corr(?:@[\w_]+)?\s+([A-Za-z0-9\.^=\-\s]+?)(?:\s+([01](?:\.\d+)?))?$`)
	// /port S1:W1 S2:W2 ... [1m|3m|6m|1y]
	rePort = regexp.MustCompile(`^/port(?:@[\w_]+)?\s+([A-Za-z0-9\.^=:\-\s]+?)(?:\s+(1m|3m|6m|1y))?$`)
	// /usage [days]
	reUsage = regexp.MustCompile(`^/usage(?:@[\w_]+)?(?:\s+(\d+))?$`)
	reHelp  = regexp.MustCompile(`^/(help|start)(?:@[\w_]+)?$`)
)

const fetchTimeout = 60 * time.Second

// PriceSource is the slice of the market-data client the handlers consume.
type PriceSource interface {
	FetchPriceTable(ctx context.Context, tickers []string, w marketdata.Window) (*analysis.PriceTable, error)
}

type Handlers struct {
	api    *tgbotapi.BotAPI
	market PriceSource
	store  *storage.Store
	app    *config.Config
	log    zerolog.Logger
}

func NewHandlers(api *tgbotapi.BotAPI, market PriceSource, store *storage.Store, app *config.Config, log zerolog.Logger) *Handlers {
	return &Handlers{api: api, market: market, store: store, app: app, log: log}
}

// HandleMessage dispatches one incoming message. Every recognized command
// yields exactly one reply: a photo with a stats caption, or a text message
// when something fails.
func (h *Handlers) HandleMessage(m *tgbotapi.Message) {
	txt := strings.TrimSpace(m.Text)
	switch {
	case reAnalyze.MatchString(txt):
		g := reAnalyze.FindStringSubmatch(txt)
		h.handleAnalyze(m.Chat.ID, strings.TrimSpace(g[1]), g[2])

	case reCorr.MatchString(txt):
		g := reCorr.FindStringSubmatch(txt)
		h.handleCorr(m.Chat.ID, strings.TrimSpace(g[1]), g[2])

	case rePort.MatchString(txt):
		g := rePort.FindStringSubmatch(txt)
		h.handlePort(m.Chat.ID, strings.TrimSpace(g[1]), g[2])

	case reUsage.MatchString(txt):
		days := 30
		if g := reUsage.FindStringSubmatch(txt); g[1] != "" {
			fmt.Sscanf(g[1], "%d", &days)
			if days < 1 {
				days = 1
			}
			if days > 365 {
				days = 365
			}
		}
		h.handleUsage(m.Chat.ID, days)

	case reHelp.MatchString(txt):
		h.handleHelp(m.Chat.ID)
	}
}

func (h *Handlers) buildReport(symbols []string, window string) (*analysis.Report, marketdata.Window, error) {
	w, err := marketdata.ParseWindow(windowOrDefault(window, h.app.DefaultRange))
	if err != nil {
		return nil, w, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	table, err := h.market.FetchPriceTable(ctx, symbols, w)
	if err != nil {
		return nil, w, err
	}
	rep, err := analysis.BuildReport(table, h.app.RiskFreeRate, h.app.CorrelationThreshold)
	if err != nil {
		return nil, w, err
	}
	return rep, w, nil
}

func (h *Handlers) handleAnalyze(chatID int64, symsField, window string) {
	started := time.Now()
	syms, err := marketdata.ValidateTickers(strings.Fields(symsField))
	if err != nil {
		h.reply(chatID, "Analysis failed: "+err.Error())
		return
	}

	rep, w, err := h.buildReport(syms, window)
	if err != nil {
		h.reply(chatID, "Analysis failed: "+err.Error())
		return
	}
	img, err := charts.PriceLines(rep)
	if err != nil {
		h.reply(chatID, "Analysis failed: "+err.Error())
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  strings.Join(syms, "_") + "_prices.png",
		Bytes: img,
	})
	photo.Caption = analyzeCaption(rep, w)
	h.send(photo, chatID)
	h.recordUsage(syms, w, started)
}

func (h *Handlers) handleCorr(chatID int64, symsField, thresholdArg string) {
	started := time.Now()
	syms, err := marketdata.ValidateTickers(strings.Fields(symsField))
	if err != nil {
		h.reply(chatID, "Correlation failed: "+err.Error())
		return
	}
	if len(syms) < 2 {
		h.reply(chatID, "Please provide at least two symbols, e.g. /corr SPY AAPL 0.7")
		return
	}

	threshold := h.app.CorrelationThreshold
	if thresholdArg != "" {
		if f, err := strconv.ParseFloat(thresholdArg, 64); err == nil && f >= 0 && f <= 1 {
			threshold = f
		}
	}

	w, err := marketdata.ParseWindow(h.app.DefaultRange)
	if err != nil {
		h.reply(chatID, "Correlation failed: "+err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()
	table, err := h.market.FetchPriceTable(ctx, syms, w)
	if err != nil {
		h.reply(chatID, "Correlation failed: "+err.Error())
		return
	}
	rep, err := analysis.BuildReport(table, h.app.RiskFreeRate, threshold)
	if err != nil {
		h.reply(chatID, "Correlation failed: "+err.Error())
		return
	}
	img, err := charts.CorrelationBars(rep)
	if err != nil {
		h.reply(chatID, "Correlation failed: "+err.Error())
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  strings.Join(syms, "_") + "_corr.png",
		Bytes: img,
	})
	photo.Caption = corrCaption(rep, w)
	h.send(photo, chatID)
	h.recordUsage(syms, w, started)
}

func (h *Handlers) handlePort(chatID int64, posField, window string) {
	started := time.Now()
	weights, err := parsePositions(posField)
	if err != nil {
		h.reply(chatID, "Portfolio failed: "+err.Error())
		return
	}
	syms := make([]string, 0, len(weights))
	for s := range weights {
		syms = append(syms, s)
	}
	sort.Strings(syms)

	rep, w, err := h.buildReport(syms, window)
	if err != nil {
		h.reply(chatID, "Portfolio failed: "+err.Error())
		return
	}
	stats, err := analysis.ComputePortfolioStats(rep.Returns, weights, h.app.RiskFreeRate)
	if err != nil {
		h.reply(chatID, "Portfolio failed: "+err.Error())
		return
	}
	img, err := charts.PortfolioGrowth(rep, weights, stats)
	if err != nil {
		h.reply(chatID, "Portfolio failed: "+err.Error())
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  strings.Join(syms, "_") + "_portfolio.png",
		Bytes: img,
	})
	photo.Caption = portCaption(rep, weights, stats, w)
	h.send(photo, chatID)
	h.recordUsage(syms, w, started)
}

func (h *Handlers) handleUsage(chatID int64, days int) {
	since := time.Now().AddDate(0, 0, -days).Unix()
	stats, err := h.store.UsageByKind(since)
	if err != nil {
		h.reply(chatID, "Usage lookup failed: "+err.Error())
		return
	}
	if len(stats) == 0 {
		h.reply(chatID, "No usage data available for the selected period.")
		return
	}
	img, err := charts.UsagePie(stats, days)
	if err != nil {
		h.reply(chatID, "Usage chart failed: "+err.Error())
		return
	}

	top, err := h.store.TopTickers(since, 5)
	if err != nil {
		h.log.Warn().Err(err).Msg("top tickers lookup failed")
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "usage.png",
		Bytes: img,
	})
	photo.Caption = usageCaption(stats, top, days)
	h.send(photo, chatID)
}

func (h *Handlers) handleHelp(chatID int64) {
	help := "Commands\n\n" +
		"- /analyze S1 S2 ... [1m|3m|6m|1y] - Price chart plus per-ticker return, volatility and Sharpe\n" +
		"- /corr S1 S2 ... [threshold] - Correlation chart; caption lists pairs at or above the threshold\n" +
		"- /port S1:W1 S2:W2 ... [1m|3m|6m|1y] - Weighted portfolio growth and stats (weights must sum to 1)\n" +
		"- /usage [days] - Usage breakdown for the last N days (default 30)\n" +
		"\nDefaults: range " + h.app.DefaultRange +
		fmt.Sprintf(", risk-free rate %.2f%%, correlation threshold %.2f", h.app.RiskFreeRate*100, h.app.CorrelationThreshold)
	h.reply(chatID, help)
}

func (h *Handlers) reply(chatID int64, text string) {
	if _, err := h.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (h *Handlers) send(photo tgbotapi.PhotoConfig, chatID int64) {
	if _, err := h.api.Send(photo); err != nil {
		h.log.Warn().Err(err).Int64("chat_id", chatID).Msg("photo send failed")
	}
}

func (h *Handlers) recordUsage(syms []string, w marketdata.Window, started time.Time) {
	if h.store == nil {
		return
	}
	err := h.store.RecordUsage("telegram", syms, w.String(), time.Since(started).Milliseconds(), time.Now().Unix())
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to record usage")
	}
}

func windowOrDefault(window, fallback string) string {
	if strings.TrimSpace(window) == "" {
		return fallback
	}
	return window
}

// parsePositions parses space-separated SYMBOL:WEIGHT pairs. Only syntax is
// checked; the engine rejects weights that do not sum to 1 or do not match
// the fetched ticker set.
func parsePositions(field string) (analysis.PortfolioWeights, error) {
	weights := make(analysis.PortfolioWeights)
	for _, part := range strings.Fields(field) {
		sym, weightStr, found := strings.Cut(part, ":")
		if !found {
			return nil, fmt.Errorf("position %q is not SYMBOL:WEIGHT", part)
		}
		su := strings.ToUpper(strings.TrimSpace(sym))
		if su == "" {
			return nil, fmt.Errorf("position %q has an empty symbol", part)
		}
		if _, dup := weights[su]; dup {
			return nil, fmt.Errorf("symbol %s listed twice", su)
		}
		f, err := strconv.ParseFloat(weightStr, 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q for %s is not a number", weightStr, su)
		}
		weights[su] = f
	}
	if len(weights) == 0 {
		return nil, fmt.Errorf("no positions given, e.g. /port AAPL:0.6 MSFT:0.4")
	}
	return weights, nil
}

func analyzeCaption(rep *analysis.Report, w marketdata.Window) string {
	tickers := rep.Prices.Tickers()
	var b strings.Builder
	fmt.Fprintf(&b, "%s • %s • %d trading days\n", strings.Join(tickers, ", "), w.String(), rep.Prices.NumRows())
	for _, t := range tickers {
		st := rep.AssetStats[t]
		sharpe := "n/a"
		if st.SharpeDefined {
			sharpe = fmt.Sprintf("%.2f", st.SharpeRatio)
		}
		fmt.Fprintf(&b, "%s: ann %.2f%%, vol %.2f%%, Sharpe %s\n",
			t, st.AnnualizedReturn*100, st.AnnualizedVolatility*100, sharpe)
	}
	fmt.Fprintf(&b, "Avg ann return %.2f%% • avg ann vol %.2f%%",
		rep.AvgAnnualizedReturn*100, rep.AvgAnnualizedVolatility*100)
	return b.String()
}

func corrCaption(rep *analysis.Report, w marketdata.Window) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Correlation • %s • threshold %.2f\n", w.String(), rep.CorrelationThreshold)
	if len(rep.HighCorrelation) == 0 {
		b.WriteString("No pairs at or above the threshold.")
		return b.String()
	}
	for _, p := range rep.HighCorrelation {
		fmt.Fprintf(&b, "%s / %s: %.2f\n", p.TickerA, p.TickerB, p.Correlation)
	}
	return strings.TrimRight(b.String(), "\n")
}

func portCaption(rep *analysis.Report, weights analysis.PortfolioWeights, stats analysis.PortfolioStats, w marketdata.Window) string {
	tickers := rep.Prices.Tickers()
	parts := make([]string, 0, len(tickers))
	for _, t := range tickers {
		parts = append(parts, fmt.Sprintf("%s %.1f%%", t, weights[t]*100))
	}
	sharpe := "n/a"
	if stats.SharpeDefined {
		sharpe = fmt.Sprintf("%.2f", stats.SharpeRatio)
	}
	return fmt.Sprintf("Portfolio: %s • %s\nAnn return %.2f%% • ann vol %.2f%% • Sharpe %s",
		strings.Join(parts, ", "), w.String(),
		stats.AnnualizedReturn*100, stats.AnnualizedVolatility*100, sharpe)
}

func usageCaption(stats map[string]*storage.UsageStats, top []string, days int) string {
	kinds := make([]string, 0, len(stats))
	total := 0
	for kind := range stats {
		kinds = append(kinds, kind)
		total += stats[kind].Count
	}
	sort.Strings(kinds)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 Usage, last %d days • %d requests\n", days, total)
	for _, kind := range kinds {
		st := stats[kind]
		fmt.Fprintf(&b, "%s: %d (%.1f%%)\n", kind, st.Count, float64(st.Count)/float64(total)*100)
	}
	if len(top) > 0 {
		fmt.Fprintf(&b, "Top tickers: %s", strings.Join(top, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}
