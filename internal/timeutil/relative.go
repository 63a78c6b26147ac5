// Package timeutil provides the time formatting used by the submitter's
// `history` listing: relative timestamps and a millisecond-duration
// formatter for the numbers recorded in a result's .meta file.
package timeutil

import (
	"fmt"
	"time"
)

// weekAgo is the cutoff beyond which RelativeTime stops bucketing by
// elapsed unit and falls back to an absolute date: the history table
// already has a DAY column for same-week entries, so anything older
// is better read as a calendar date than a stale "3 weeks ago".
const weekAgo = 7 * 24 * time.Hour

// RelativeTime describes how long ago t happened, for the WHEN column
// in the `history` listing.
func RelativeTime(t time.Time) string {
	return RelativeTimeWithNow(t, time.Now())
}

// RelativeTimeWithNow is RelativeTime with an injectable reference
// time, for deterministic tests. Every t this package is ever asked
// to format names something that has already happened — a command's
// submission time, an audit log entry — so there is no future branch:
// a t after now (clock skew between submission and archival, or a
// stale now argument in a test) is just clamped to "just now".
func RelativeTimeWithNow(t, now time.Time) string {
	elapsed := now.Sub(t)
	if elapsed < time.Second {
		return "just now"
	}
	if elapsed >= weekAgo {
		return t.Format("2006-01-02")
	}

	switch {
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds ago", int(elapsed.Seconds()))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(elapsed.Hours())/24)
	}
}

// FormatDurationMS renders a wall-clock duration the way it is recorded
// in a result's .meta file (duration_ms=<integer>) back into a string
// fit for `history` table output, e.g. "842ms" or "3.4s".
func FormatDurationMS(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000)
}

// DurationMS converts d to the integer millisecond count written to a
// result's .meta file.
func DurationMS(d time.Duration) int64 {
	return d.Milliseconds()
}
