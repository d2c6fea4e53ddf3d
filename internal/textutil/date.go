package textutil

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const isoDate = "2006-01-02"

var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"1/2/2006",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// NormalizeDate renders a loosely typed date value as YYYY-MM-DD. Numbers
// are epoch seconds, or milliseconds when larger than 1e12. Objects are
// unwrapped through their $date, date, value or iso key. Anything
// unparseable yields "".
func NormalizeDate(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if t.IsZero() {
			return ""
		}
		return t.Format(isoDate)
	case float64:
		return fromEpoch(t)
	case float32:
		return fromEpoch(float64(t))
	case int:
		return fromEpoch(float64(t))
	case int64:
		return fromEpoch(float64(t))
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return ""
		}
		return fromEpoch(f)
	case map[string]interface{}:
		for _, key := range []string{"$date", "date", "value", "iso"} {
			if inner, ok := t[key]; ok {
				return NormalizeDate(inner)
			}
		}
		return ""
	case string:
		return normalizeDateString(t)
	default:
		return normalizeDateString(fmt.Sprint(v))
	}
}

func fromEpoch(ts float64) string {
	if ts > 1e12 {
		ts /= 1000
	}
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC().Format(isoDate)
}

func normalizeDateString(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(isoDate)
		}
	}
	return ""
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(isoDate, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
