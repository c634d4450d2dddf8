package cookie

import (
	"fmt"
	"time"
)

var weekdayAbbrev = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
var monthAbbrev = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// FormatHTTPDate renders t in the RFC-style format spec.md §6 requires:
// "Day, DD Mon YYYY HH:MM:SS GMT", always in UTC with English
// abbreviations regardless of the host locale.
func FormatHTTPDate(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("%s, %02d %s %04d %02d:%02d:%02d GMT",
		weekdayAbbrev[u.Weekday()],
		u.Day(),
		monthAbbrev[u.Month()-1],
		u.Year(),
		u.Hour(), u.Minute(), u.Second(),
	)
}

// FormatHTTPDateIn renders now+d in the same format, used by the
// response builder's addHeader(k, Duration) overload (spec.md §4.3).
func FormatHTTPDateIn(d time.Duration) string {
	return FormatHTTPDate(time.Now().Add(d))
}
