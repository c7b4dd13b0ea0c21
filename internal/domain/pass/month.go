package pass

import (
	"fmt"
	"time"
)

const (
	minYear = 1970
	maxYear = 9999
)

// Month identifies a calendar month as a zero-padded YYYY-MM token.
// It is the history key and the rollover watermark of a Record.
type Month string

// MonthOf returns the UTC month token for t.
func MonthOf(t time.Time) Month {
	t = t.UTC()
	return Month(fmt.Sprintf("%04d-%02d", t.Year(), int(t.Month())))
}

// ParseMonth validates s and returns it as a Month.
func ParseMonth(s string) (Month, error) {
	if _, _, ok := splitMonth(s); !ok {
		return "", fmt.Errorf("%w: %q, want YYYY-MM", ErrInvalidMonth, s)
	}
	return Month(s), nil
}

// IsValidMonth reports whether s is a YYYY-MM token with year 1970-9999 and month 01-12.
func IsValidMonth(s string) bool {
	_, _, ok := splitMonth(s)
	return ok
}

// Start returns the first instant of the month in UTC.
// The result is the zero time for an invalid token.
func (m Month) Start() time.Time {
	y, mo, ok := splitMonth(string(m))
	if !ok {
		return time.Time{}
	}
	return time.Date(y, time.Month(mo), 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month.
func (m Month) Next() Month {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

func (m Month) String() string { return string(m) }

func splitMonth(s string) (year, month int, ok bool) {
	if len(s) != 7 || s[4] != '-' {
		return 0, 0, false
	}
	for i, c := range s {
		if i == 4 {
			continue
		}
		if c < '0' || c > '9' {
			return 0, 0, false
		}
	}
	year = int(s[0]-'0')*1000 + int(s[1]-'0')*100 + int(s[2]-'0')*10 + int(s[3]-'0')
	month = int(s[5]-'0')*10 + int(s[6]-'0')
	if year < minYear || year > maxYear || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}
