package grinder

import (
	"fmt"
	"math/big"
	"time"
)

// ETA estimates how long until the next match at the given rate. Key
// draws are independent, so the expected wait does not shrink with the
// attempts already made. Returns 0 when there is nothing to estimate.
func ETA(difficulty *big.Int, ratePerSec float64) time.Duration {
	if difficulty == nil || difficulty.Sign() <= 0 || ratePerSec <= 0 {
		return 0
	}
	secs, _ := new(big.Float).Quo(new(big.Float).SetInt(difficulty), big.NewFloat(ratePerSec)).Float64()
	if secs > float64(1<<62)/float64(time.Second) {
		return time.Duration(1<<63 - 1)
	}
	return time.Duration(secs * float64(time.Second))
}

// Rate returns attempts per second over elapsed.
func Rate(attempts uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(attempts) / elapsed.Seconds()
}

// FormatCount renders an attempt counter compactly, e.g. 1.25M.
func FormatCount(n uint64) string {
	switch {
	case n < 1_000:
		return fmt.Sprintf("%d", n)
	case n < 1_000_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	case n < 1_000_000_000:
		return fmt.Sprintf("%.2fM", float64(n)/1e6)
	default:
		return fmt.Sprintf("%.3fB", float64(n)/1e9)
	}
}

// FormatDuration renders d as mm:ss, hh:mm:ss or with a day count. ETAs for
// long patterns run to years, which still read fine as days.
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	days := int(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	h, m, s := int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, h, m, s)
	case h > 0:
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	default:
		return fmt.Sprintf("%02d:%02d", m, s)
	}
}
