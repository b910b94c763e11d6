package marketdata

import (
	"fmt"
	"strings"
	"time"
)

// Window describes the lookback to fetch: either a named Yahoo range
// (resolved from presets like 1m/3m/6m/1y) with an optional most-recent-days
// filter, or an explicit start/end date pair.
type Window struct {
	Range      string
	TargetDays int
	Start      time.Time
	End        time.Time
}

// Explicit reports whether the window carries concrete start/end dates
// instead of a named range.
func (w Window) Explicit() bool { return !w.Start.IsZero() && !w.End.IsZero() }

func (w Window) rangeOrDefault() string {
	if w.Range == "" {
		return "1y"
	}
	return w.Range
}

// Key is the window's cache-key fragment.
func (w Window) Key() string {
	if w.Explicit() {
		return w.Start.Format("20060102") + "-" + w.End.Format("20060102")
	}
	return fmt.Sprintf("%s:%d", w.rangeOrDefault(), w.TargetDays)
}

// String renders the window for captions and logs.
func (w Window) String() string {
	if w.Explicit() {
		return w.Start.Format("2006-01-02") + ".." + w.End.Format("2006-01-02")
	}
	return strings.ToUpper(w.rangeOrDefault())
}

// DefaultWindow is one year back from today.
func DefaultWindow() Window { return Window{Range: "1y", TargetDays: 365} }

// ParseWindow maps a lookback like 5d, 2w, 3m or 1y onto the Yahoo range
// parameter that covers it plus the day count to trim the fetched series to.
// An empty string means the one-year default.
func ParseWindow(window string) (Window, error) {
	if window == "" {
		return DefaultWindow(), nil
	}

	window = strings.ToLower(strings.TrimSpace(window))
	num := 0
	unit := window[len(window)-1:]
	if _, err := fmt.Sscanf(strings.TrimSuffix(window, unit), "%d", &num); err != nil || num <= 0 {
		return Window{}, fmt.Errorf("invalid window format: %s (use forms like 5d, 2w, 3m, 1y)", window)
	}

	switch unit {
	case "d":
		switch {
		case num <= 5:
			return Window{Range: "5d", TargetDays: num}, nil
		case num <= 30:
			return Window{Range: "1mo", TargetDays: num}, nil
		case num <= 90:
			return Window{Range: "3mo", TargetDays: num}, nil
		default:
			return Window{Range: "1y", TargetDays: num}, nil
		}
	case "w":
		days := num * 7
		switch {
		case num <= 1:
			return Window{Range: "5d", TargetDays: days}, nil
		case num <= 4:
			return Window{Range: "1mo", TargetDays: days}, nil
		case num <= 12:
			return Window{Range: "3mo", TargetDays: days}, nil
		case num <= 26:
			return Window{Range: "6mo", TargetDays: days}, nil
		default:
			return Window{Range: "1y", TargetDays: days}, nil
		}
	case "m":
		days := num * 30
		switch {
		case num <= 1:
			return Window{Range: "1mo", TargetDays: days}, nil
		case num <= 3:
			return Window{Range: "3mo", TargetDays: days}, nil
		case num <= 6:
			return Window{Range: "6mo", TargetDays: days}, nil
		case num <= 12:
			return Window{Range: "1y", TargetDays: days}, nil
		case num <= 24:
			return Window{Range: "2y", TargetDays: days}, nil
		default:
			return Window{Range: "5y", TargetDays: days}, nil
		}
	case "y":
		days := num * 365
		switch {
		case num <= 1:
			return Window{Range: "1y", TargetDays: days}, nil
		case num <= 2:
			return Window{Range: "2y", TargetDays: days}, nil
		case num <= 5:
			return Window{Range: "5y", TargetDays: days}, nil
		case num <= 10:
			return Window{Range: "10y", TargetDays: days}, nil
		default:
			return Window{Range: "max", TargetDays: days}, nil
		}
	default:
		return Window{}, fmt.Errorf("invalid window format: %s (use forms like 5d, 2w, 3m, 1y)", window)
	}
}

// WindowBetween builds an explicit date window. End is clamped to now when
// it lies in the future; the pair must span at least one day.
func WindowBetween(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, fmt.Errorf("window needs both start and end dates")
	}
	if now := time.Now(); end.After(now) {
		end = now
	}
	if !end.After(start) {
		return Window{}, fmt.Errorf("window end %s must be after start %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}
	return Window{Start: start, End: end}, nil
}

// filterToTargetDays trims a series to the most recent targetDays, measured
// back from its latest timestamp. A zero target keeps everything.
func filterToTargetDays(timestamps []int64, prices []float64, targetDays int) ([]int64, []float64) {
	if len(timestamps) == 0 || targetDays <= 0 || len(timestamps) <= targetDays {
		return timestamps, prices
	}

	cutoff := timestamps[len(timestamps)-1] - int64(targetDays)*24*3600
	startIdx := 0
	for i, ts := range timestamps {
		if ts >= cutoff {
			startIdx = i
			break
		}
	}
	return timestamps[startIdx:], prices[startIdx:]
}
