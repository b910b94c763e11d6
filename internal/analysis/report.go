package analysis

// Report bundles every output of the engine for one price table, ready for
// rendering, serialization or commentary. Averages are taken across tickers
// and feed the dashboard headline cards.
type Report struct {
	Prices          *PriceTable
	Returns         *ReturnsTable
	Cumulative      *ReturnsTable
	AssetStats      map[string]AssetStats
	Correlation     *CorrelationMatrix
	HighCorrelation []CorrelationPair
	Summary         map[string]SummaryStats

	AvgMeanDailyReturn      float64
	AvgDailyVolatility      float64
	AvgAnnualizedReturn     float64
	AvgAnnualizedVolatility float64

	RiskFreeRate         float64
	CorrelationThreshold float64
}

// BuildReport runs the full analysis pipeline over a validated price table.
// Any failing step aborts the whole report; no partial results are returned.
func BuildReport(prices *PriceTable, riskFreeRate, correlationThreshold float64) (*Report, error) {
	returns, err := ComputeReturns(prices)
	if err != nil {
		return nil, err
	}
	stats, err := ComputeAssetStats(returns, riskFreeRate)
	if err != nil {
		return nil, err
	}
	corr, err := ComputeCorrelationMatrix(returns)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Prices:               prices,
		Returns:              returns,
		Cumulative:           ComputeCumulativeReturns(returns),
		AssetStats:           stats,
		Correlation:          corr,
		HighCorrelation:      FindHighCorrelationPairs(corr, correlationThreshold),
		Summary:              ComputeSummaryStats(prices),
		RiskFreeRate:         riskFreeRate,
		CorrelationThreshold: correlationThreshold,
	}

	n := float64(len(stats))
	for _, s := range stats {
		rep.AvgMeanDailyReturn += s.MeanDailyReturn / n
		rep.AvgDailyVolatility += s.DailyVolatility / n
		rep.AvgAnnualizedReturn += s.AnnualizedReturn / n
		rep.AvgAnnualizedVolatility += s.AnnualizedVolatility / n
	}
	return rep, nil
}
