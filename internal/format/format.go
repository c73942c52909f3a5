// Package format renders metrics for tables, CLI output, and alert messages.
package format

import (
	"fmt"
	"strconv"
)

// Number formats a count with K/M suffixes for display.
func Number(n float64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", n/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", n/1_000)
	default:
		return groupThousands(int64(n))
	}
}

// CTR formats a click-through rate as a percentage string.
func CTR(ctr float64) string {
	return fmt.Sprintf("%.2f%%", ctr*100)
}

// Position formats an average position.
func Position(pos float64) string {
	return fmt.Sprintf("%.1f", pos)
}

// Delta formats a relative change between two values for KPI cards.
func Delta(current, previous float64) string {
	if previous == 0 {
		return "N/A"
	}
	change := (current - previous) / previous * 100
	sign := ""
	if change >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f%%", sign, change)
}

// CTRDelta formats a CTR change in percentage points.
func CTRDelta(current, previous float64) string {
	diff := (current - previous) * 100
	sign := ""
	if diff >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2fpp", sign, diff)
}

// PositionDelta formats a position change. Lower position is better, so the
// sign is inverted for display: positive means improvement.
func PositionDelta(current, previous float64) string {
	diff := previous - current
	sign := ""
	if diff >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.1f", sign, diff)
}

// groupThousands renders an integer with comma separators.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, ch := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, ch)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
