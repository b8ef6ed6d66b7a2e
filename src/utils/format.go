package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// -----------------------------------------------------------------------------
// Status markers carried on stored entries and embedded in display strings.
// -----------------------------------------------------------------------------

const (
	StatusUp      = "🚀"
	StatusDown    = "🔻"
	StatusNeutral = "➖"
)

// -----------------------------------------------------------------------------

// CurrentWibTime formats the given instant as HH:MM:SS in UTC+7.
func CurrentWibTime(now time.Time) string {
	return now.UTC().Add(7 * time.Hour).Format("15:04:05")
}

// -----------------------------------------------------------------------------

// FormatRupiah renders n with dot thousand separators ("1.234.567").
func FormatRupiah(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	if len(s) > 3 {
		var b strings.Builder
		b.Grow(len(s) + len(s)/3)
		first := len(s) % 3
		if first > 0 {
			b.WriteString(s[:first])
		}
		for i := first; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}

	if neg {
		return "-" + s
	}
	return s
}

// -----------------------------------------------------------------------------

// FormatDiffDisplay renders the signed delta with its directional marker.
func FormatDiffDisplay(diff int64, status string) string {
	switch status {
	case StatusUp:
		return StatusUp + "+" + FormatRupiah(diff)
	case StatusDown:
		return StatusDown + "-" + FormatRupiah(-diff)
	default:
		return StatusNeutral + "tetap"
	}
}

// -----------------------------------------------------------------------------

// FormatWaktuOnly extracts the HH:MM:SS part of a "YYYY-MM-DD HH:MM:SS"
// timestamp and appends the status marker.
func FormatWaktuOnly(createdAt, status string) string {
	t := createdAt
	if len(createdAt) >= 19 {
		t = createdAt[11:19]
	}
	return t + status
}

// -----------------------------------------------------------------------------

// CalcProfit computes the profit of buying gold with `modal` rupiah against a
// principal of `pokok`, valued at the current selling rate.
func CalcProfit(buyRate, sellRate, modal, pokok int64) string {
	if buyRate == 0 {
		return "-"
	}

	gram := float64(modal) / float64(buyRate)
	val := int64(gram*float64(sellRate) - float64(pokok))
	gramStr := strings.Replace(strconv.FormatFloat(gram, 'f', 4, 64), ".", ",", 1)

	switch {
	case val > 0:
		return fmt.Sprintf("+%s🟢%sgr", FormatRupiah(val), gramStr)
	case val < 0:
		return fmt.Sprintf("-%s🔴%sgr", FormatRupiah(-val), gramStr)
	default:
		return fmt.Sprintf("%s➖%sgr", FormatRupiah(0), gramStr)
	}
}
