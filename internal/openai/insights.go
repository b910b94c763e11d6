// Package openai turns a finished analysis report into short natural-language
// commentary through the OpenAI chat API.
package openai

import (
	"context"
	"fmt"
	"strings"

	oa "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"stockRiskAnalyzer/internal/analysis"
)

type Analyst struct {
	cli oa.Client
}

func NewAnalyst(apiKey string) *Analyst {
	client := oa.NewClient(option.WithAPIKey(apiKey))
	return &Analyst{cli: client}
}

const analystPrompt = `You are a cautious markets analyst commenting on computed portfolio statistics: daily and annualized returns, volatilities, Sharpe ratios and pairwise return correlations for a basket of stocks.

Guidelines:
- Point out what stands out: strong or weak risk-adjusted performance, unusually high volatility, highly correlated pairs that reduce diversification
- Keep it under 250 words, formatted as short bullet points
- Never give direct buy or sell advice and never predict prices
- Close with a one-line reminder that past performance does not predict future results`

// Commentary asks the model to discuss the report's statistics. The response
// is bounded so it stays usable as a dashboard panel or chat reply.
func (a *Analyst) Commentary(ctx context.Context, rep *analysis.Report) (string, error) {
	resp, err := a.cli.Chat.Completions.New(ctx, oa.ChatCompletionNewParams{
		Model: "gpt-4",
		Messages: []oa.ChatCompletionMessageParamUnion{
			oa.SystemMessage(analystPrompt),
			oa.UserMessage("Comment on these portfolio statistics:\n\n" + renderReport(rep)),
		},
		MaxTokens: oa.Int(1500),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// renderReport flattens the report into the compact plain-text block the
// model receives. Only aggregates go in, never raw price series.
func renderReport(rep *analysis.Report) string {
	dates := rep.Prices.Dates()
	tickers := rep.Prices.Tickers()

	var b strings.Builder
	fmt.Fprintf(&b, "Window: %s to %s, %d trading days\n",
		dates[0].Format("2006-01-02"), dates[len(dates)-1].Format("2006-01-02"), rep.Prices.NumRows())
	fmt.Fprintf(&b, "Risk-free rate: %.2f%%\n\n", rep.RiskFreeRate*100)

	for _, t := range tickers {
		st := rep.AssetStats[t]
		sharpe := "undefined (zero volatility)"
		if st.SharpeDefined {
			sharpe = fmt.Sprintf("%.2f", st.SharpeRatio)
		}
		fmt.Fprintf(&b, "%s: mean daily %.4f%%, annualized return %.2f%%, annualized volatility %.2f%%, Sharpe %s\n",
			t, st.MeanDailyReturn*100, st.AnnualizedReturn*100, st.AnnualizedVolatility*100, sharpe)
	}

	fmt.Fprintf(&b, "\nAverages: annualized return %.2f%%, annualized volatility %.2f%%\n",
		rep.AvgAnnualizedReturn*100, rep.AvgAnnualizedVolatility*100)

	if len(rep.HighCorrelation) > 0 {
		fmt.Fprintf(&b, "Highly correlated pairs (threshold %.2f):\n", rep.CorrelationThreshold)
		for _, p := range rep.HighCorrelation {
			fmt.Fprintf(&b, "- %s/%s: %.2f\n", p.TickerA, p.TickerB, p.Correlation)
		}
	} else {
		fmt.Fprintf(&b, "No ticker pair correlates at or above %.2f.\n", rep.CorrelationThreshold)
	}
	return b.String()
}
