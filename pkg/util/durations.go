package util

import (
	"fmt"
	"time"
)

// PrettyDuration returns a human-formatted duration string given a Go time.Duration value.
// Short durations, like those of optimizer runs, keep sub-second precision.
func PrettyDuration(duration time.Duration) string {
	switch {
	case duration < time.Millisecond:
		return fmt.Sprintf("%dµs", duration.Microseconds())
	case duration < time.Second:
		return fmt.Sprintf("%dms", duration.Milliseconds())
	case duration < 10*time.Second:
		return fmt.Sprintf("%.1fs", duration.Seconds())
	case duration < 4*time.Minute:
		return fmt.Sprintf("%ds", int(duration.Seconds()))
	case duration < 2*time.Hour:
		return fmt.Sprintf("%dm", int(duration.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(duration.Hours()))
	}
}
