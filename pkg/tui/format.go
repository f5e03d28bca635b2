package tui

import (
	"fmt"
	"strconv"
	"time"
)

// FormatDuration renders d as "00h 00m 00s". Hours are not capped.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02dh %02dm %02ds", secs/3600, secs/60%60, secs%60)
}

// FormatThousands inserts a comma every three digits.
func FormatThousands(n uint64) string {
	s := strconv.FormatUint(n, 10)
	if len(s) <= 3 {
		return s
	}
	out := make([]byte, 0, len(s)+len(s)/3)
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	out = append(out, s[:lead]...)
	for i := lead; i < len(s); i += 3 {
		out = append(out, ',')
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}

// shortHash keeps the first and last eight characters of a hash.
func shortHash(h string) string {
	if len(h) <= 20 {
		return h
	}
	return h[:8] + "…" + h[len(h)-8:]
}
