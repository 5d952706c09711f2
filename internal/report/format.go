package report

import (
	"fmt"
	"math"
)

// FormatPct formats a fraction as a signed percentage, e.g. "+12.3%".
// Drops the decimal at or above 1000% to keep the column narrow.
func FormatPct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	pct := v * 100
	if math.Abs(pct) >= 1000 {
		return fmt.Sprintf("%+.0f%%", pct)
	}
	return fmt.Sprintf("%+.1f%%", pct)
}

// FormatDrawdown formats a drawdown fraction as "-X.X%", or "0.0%" if none.
func FormatDrawdown(v float64) string {
	if v <= 0 {
		return "0.0%"
	}
	return fmt.Sprintf("-%.1f%%", v*100)
}

// FormatRatio formats a ratio such as Sharpe with two decimals.
func FormatRatio(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
