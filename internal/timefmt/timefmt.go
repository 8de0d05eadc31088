// Package timefmt renders wall clock durations the way a human reads them.
package timefmt

import (
	"fmt"
	"time"
)

// Duration formats d as milliseconds under a second, seconds under a minute,
// M:SS under an hour and H:MM:SS beyond that.
func Duration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d.Microseconds())/1000)
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		total := int(d.Seconds())
		return fmt.Sprintf("%d:%02ds", total/60, total%60)
	default:
		total := int(d.Seconds())
		return fmt.Sprintf("%02d:%02d:%02ds", total/3600, total%3600/60, total%60)
	}
}
