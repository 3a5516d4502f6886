package dict

import (
	"strconv"
	"time"
)

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }

func formatDecimal(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func formatDateTime(unixSeconds int64) string {
	return time.Unix(unixSeconds, 0).UTC().Format(time.RFC3339)
}

// parseWholeSecondRFC3339 parses an xsd:dateTime lexical form, returning
// its Unix-seconds value only when it carries no sub-second component
// (the inline id space has no room for fractional seconds).
func parseWholeSecondRFC3339(s string) (int64, bool) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return 0, false
		}
	}
	if t.Nanosecond() != 0 {
		return 0, false
	}
	return t.Unix(), true
}
