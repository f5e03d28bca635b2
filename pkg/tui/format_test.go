package tui

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// TestFormatDuration checks the fixed-width uptime format.
func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00h 00m 00s"},
		{-time.Second, "00h 00m 00s"},
		{59 * time.Second, "00h 00m 59s"},
		{time.Hour + 2*time.Minute + 3*time.Second + 900*time.Millisecond, "01h 02m 03s"},
		{123 * time.Hour, "123h 00m 00s"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// TestFormatThousands checks digit grouping.
func TestFormatThousands(t *testing.T) {
	tests := map[uint64]string{
		0:                    "0",
		999:                  "999",
		1000:                 "1,000",
		840000:               "840,000",
		1234567:              "1,234,567",
		18446744073709551615: "18,446,744,073,709,551,615",
	}
	for n, want := range tests {
		if got := FormatThousands(n); got != want {
			t.Errorf("FormatThousands(%d) = %q, want %q", n, got, want)
		}
	}
}

// TestFormatThousands_Property checks that removing the commas gives the
// plain number and that every group after the first has three digits.
func TestFormatThousands_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Uint64().Draw(t, "n")
		got := FormatThousands(n)

		if plain := strings.ReplaceAll(got, ",", ""); plain != strconv.FormatUint(n, 10) {
			t.Fatalf("FormatThousands(%d) = %q does not round trip", n, got)
		}
		groups := strings.Split(got, ",")
		for _, g := range groups[1:] {
			if len(g) != 3 {
				t.Fatalf("FormatThousands(%d) = %q has a short group", n, got)
			}
		}
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			t.Fatalf("FormatThousands(%d) = %q has a bad leading group", n, got)
		}
	})
}
