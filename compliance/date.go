package compliance

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// DATE - Calendar date without a time component
// =============================================================================

const dateLayout = "2006-01-02"

// Date is a calendar day in UTC. The zero value means "not set".
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts "YYYY-MM-DD" and full RFC 3339 timestamps.
// The empty string parses to the zero Date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return DateOf(t), nil
}

func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool       { return d.t.IsZero() }
func (d Date) Year() int          { return d.t.Year() }
func (d Date) Month() time.Month  { return d.t.Month() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) Period() Period     { return Period{Year: d.Year(), Month: d.Month()} }

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysBetween returns the number of whole days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.t.Sub(a.t).Hours() / 24)
}

// =============================================================================
// PERIOD - A (year, month) generation target
// =============================================================================

type Period struct {
	Year  int
	Month time.Month
}

func (p Period) Valid() bool {
	return p.Year > 0 && p.Month >= time.January && p.Month <= time.December
}

// Index orders periods on a single month axis.
func (p Period) Index() int { return p.Year*12 + int(p.Month) - 1 }

// End is the last calendar day of the period.
func (p Period) End() Date {
	return Date{t: time.Date(p.Year, p.Month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)}
}

// MonthName is the lowercase month name stored on checks.
func (p Period) MonthName() string { return MonthName(p.Month) }

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month)) }

// MonthName returns "january".."december".
func MonthName(m time.Month) string { return strings.ToLower(m.String()) }

// ParseMonthName is the inverse of MonthName and ignores case.
func ParseMonthName(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for m := time.January; m <= time.December; m++ {
		if MonthName(m) == s {
			return m, true
		}
	}
	return 0, false
}
