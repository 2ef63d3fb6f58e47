package classify

import (
	"regexp"
	"time"
)

// signatureTime matches the timestamp portion of a standard signature,
// for example "22:25, 11 September 2019 (UTC)".
var signatureTime = regexp.MustCompile(`\d{2}:\d{2}, \d{1,2} [A-Za-z]+ \d{4} \(UTC\)`)

const signatureLayout = "15:04, 2 January 2006 (UTC)"

// LastActivity scans the body for signature timestamps and returns the most
// recent one that parses. It returns false when no timestamp is found or
// none parse, which callers must treat as "never archive".
func LastActivity(body string) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, raw := range signatureTime.FindAllString(body, -1) {
		ts, err := time.Parse(signatureLayout, raw)
		if err != nil {
			continue
		}
		if !found || ts.After(latest) {
			latest = ts
			found = true
		}
	}
	return latest, found
}
