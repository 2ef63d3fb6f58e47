package runner

import (
	"strconv"
	"strings"
	"time"
)

// ExpandDestination resolves an archive-page naming template against the
// run's current time. Recognized placeholders are {page}, {year}, {month}
// and {week} (ISO week). Calendar fields are not zero-padded, so
// "{page}/{year}-{month}" yields "Reports/2021-6" in June.
func ExpandDestination(template, page string, now time.Time) string {
	_, week := now.ISOWeek()
	replacer := strings.NewReplacer(
		"{page}", page,
		"{year}", strconv.Itoa(now.Year()),
		"{month}", strconv.Itoa(int(now.Month())),
		"{week}", strconv.Itoa(week),
	)
	return replacer.Replace(template)
}
