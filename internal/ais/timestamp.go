package ais

import (
	"strings"
	"time"
	"unicode"
)

// Timestamp layouts seen in aisstream time_utc values, tried in order.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an AIS time_utc string into a UTC instant. The feed
// emits several variants: with or without fractional seconds of arbitrary
// precision, and with a trailing " UTC" or "+0000" zone marker. Fractional
// seconds are truncated to microseconds. The boolean is false when the value
// cannot be parsed; this function never returns an error.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.ReplaceAll(s, " UTC", "")
	s = strings.ReplaceAll(s, "+0000", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if prefix, rest, found := strings.Cut(s, "."); found {
		var sub strings.Builder
		for _, ch := range rest {
			if !unicode.IsDigit(ch) {
				continue
			}
			if sub.Len() == 6 {
				break
			}
			sub.WriteRune(ch)
		}
		frac := sub.String()
		for len(frac) < 6 {
			frac += "0"
		}
		s = prefix + "." + frac
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
