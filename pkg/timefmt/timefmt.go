// Package timefmt formats timestamps and durations for logs and ETA display.
package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// ISOLayout is the ISO-8601 layout used for log and status timestamps.
const ISOLayout = "2006-01-02T15:04:05.000000Z"

// ISO formats t in UTC as ISO-8601 with a trailing Z.
func ISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// NowISO returns the current time formatted by ISO.
func NowISO() string {
	return ISO(time.Now())
}

// FormatETA renders a remaining-seconds estimate as "1h02m", "3m05s" or "7s".
// A nil estimate renders as "-".
func FormatETA(seconds *int) string {
	if seconds == nil {
		return "-"
	}
	s := *seconds
	if s < 0 {
		s = 0
	}
	h := s / 3600
	m := (s % 3600) / 60
	sec := s % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, sec)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

// FormatDuration is FormatETA for a time.Duration, rounded to whole seconds.
func FormatDuration(d time.Duration) string {
	s := int(d.Round(time.Second) / time.Second)
	return FormatETA(&s)
}

// FormatPercent renders a 0-100 percentage with two decimals, clamped.
func FormatPercent(percent float64) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return fmt.Sprintf("%.2f%%", percent)
}

// ProgressBar renders "[#####-----]  50.00%" for a 0-100 percentage.
func ProgressBar(percent float64, width int) string {
	if width <= 0 {
		return "[no-progress]"
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	bar := strings.Repeat("#", filled) + strings.Repeat("-", width-filled)
	return fmt.Sprintf("[%s] %7s", bar, FormatPercent(percent))
}
