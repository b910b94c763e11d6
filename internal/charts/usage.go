package charts

import (
	"fmt"
	"sort"
	"time"

	"github.com/vicanso/go-charts/v2"

	"stockRiskAnalyzer/internal/storage"
)

// UsagePie renders the distribution of served requests by kind.
func UsagePie(stats map[string]*storage.UsageStats, days int) ([]byte, error) {
	if len(stats) == 0 {
		return nil, fmt.Errorf("no usage data available")
	}

	kinds := make([]string, 0, len(stats))
	total := 0
	for kind, stat := range stats {
		kinds = append(kinds, kind)
		total += stat.Count
	}
	sort.Strings(kinds)

	values := make([]float64, 0, len(kinds))
	labels := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		count := stats[kind].Count
		values = append(values, float64(count))
		labels = append(labels, fmt.Sprintf("%s (%.1f%%)", kind, float64(count)/float64(total)*100))
	}

	p, err := charts.PieRender(
		values,
		charts.TitleTextOptionFunc(fmt.Sprintf("Requests by Kind (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: labels,
			Top:  charts.PositionTop,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(800),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}

// UsageLines renders requests per day, one line per kind. Day buckets with no
// requests plot as zero.
func UsageLines(series map[string][]storage.TimeSeriesPoint, days int) ([]byte, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("no time series data available")
	}

	daySet := make(map[int64]bool)
	var allDays []int64
	for _, points := range series {
		for _, point := range points {
			if !daySet[point.Timestamp] {
				daySet[point.Timestamp] = true
				allDays = append(allDays, point.Timestamp)
			}
		}
	}
	sort.Slice(allDays, func(i, j int) bool { return allDays[i] < allDays[j] })

	xLabels := make([]string, len(allDays))
	for i, day := range allDays {
		xLabels[i] = time.Unix(day, 0).UTC().Format("01/02")
	}

	kinds := make([]string, 0, len(series))
	for kind := range series {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	values := make([][]float64, 0, len(kinds))
	for _, kind := range kinds {
		byDay := make(map[int64]int, len(series[kind]))
		for _, point := range series[kind] {
			byDay[point.Timestamp] = point.Count
		}
		data := make([]float64, len(allDays))
		for i, day := range allDays {
			data[i] = float64(byDay[day])
		}
		values = append(values, data)
	}

	p, err := charts.LineRender(
		values,
		charts.XAxisOptionFunc(charts.XAxisOption{Data: xLabels}),
		charts.TitleTextOptionFunc(fmt.Sprintf("Requests per Day (%d days)", days)),
		charts.LegendOptionFunc(charts.LegendOption{
			Data: kinds,
			Top:  charts.PositionTop,
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(1000),
		charts.HeightOptionFunc(600),
	)
	if err != nil {
		return nil, err
	}
	return p.Bytes()
}
