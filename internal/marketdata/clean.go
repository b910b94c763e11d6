package marketdata

import (
	"math"
	"sort"
)

// filterNonPositive removes bars whose close is missing, non-finite or not
// strictly positive, keeping timestamp and value arrays aligned. Yahoo pads
// gaps with zeros, and downstream tables only accept positive prices.
func filterNonPositive(ts []int64, cl []float64) ([]int64, []float64) {
	ts, cl = trimToShorter(ts, cl)
	outTs := make([]int64, 0, len(ts))
	outCl := make([]float64, 0, len(cl))
	for i := 0; i < len(ts); i++ {
		if cl[i] <= 0 || math.IsNaN(cl[i]) || math.IsInf(cl[i], 0) {
			continue
		}
		outTs = append(outTs, ts[i])
		outCl = append(outCl, cl[i])
	}
	return outTs, outCl
}

// filterIQR removes outliers using the interquartile range rule: any value
// outside [Q1 - k*IQR, Q3 + k*IQR] is dropped. Series shorter than minPoints
// pass through untouched, and the filter backs off entirely rather than
// discard more than half the series.
func filterIQR(ts []int64, cl []float64, k float64, minPoints int) ([]int64, []float64) {
	ts, cl = trimToShorter(ts, cl)
	if len(cl) < minPoints {
		return ts, cl
	}

	vals := make([]float64, len(cl))
	copy(vals, cl)
	sort.Float64s(vals)

	percentile := func(p float64) float64 {
		pos := p * float64(len(vals)-1)
		lo := int(pos)
		if lo >= len(vals)-1 {
			return vals[len(vals)-1]
		}
		frac := pos - float64(lo)
		return vals[lo]*(1-frac) + vals[lo+1]*frac
	}

	q1 := percentile(0.25)
	q3 := percentile(0.75)
	iqr := q3 - q1
	if iqr <= 0 {
		return ts, cl
	}

	lower := q1 - k*iqr
	upper := q3 + k*iqr
	outTs := make([]int64, 0, len(ts))
	outCl := make([]float64, 0, len(cl))
	for i := 0; i < len(ts); i++ {
		if cl[i] < lower || cl[i] > upper {
			continue
		}
		outTs = append(outTs, ts[i])
		outCl = append(outCl, cl[i])
	}
	if len(outCl) < minPoints/2 {
		return ts, cl
	}
	return outTs, outCl
}

func trimToShorter(ts []int64, cl []float64) ([]int64, []float64) {
	if len(ts) == len(cl) {
		return ts, cl
	}
	n := len(ts)
	if len(cl) < n {
		n = len(cl)
	}
	return ts[:n], cl[:n]
}
