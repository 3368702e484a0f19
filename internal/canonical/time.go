package canonical

import (
	"fmt"
	"time"
)

// Fixed layouts. TimeLayout always renders six fractional digits and a
// literal Z; variable-precision renderings (trimming zero microseconds,
// omitting the zone) are exactly how independent implementations drift
// apart on hash input.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "2006-01-02T15:04:05.000000Z"
)

// Date is a calendar date with no time-of-day component.
type Date struct {
	t time.Time
}

func (Date) canonicalValue() {}

// NewDate constructs a Date for the given calendar day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, m, d)
}

// ParseDate parses "2006-01-02" text.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("canonical: malformed date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// String renders the fixed date layout.
func (d Date) String() string {
	return d.t.Format(DateLayout)
}

// AsTime returns midnight UTC on the date.
func (d Date) AsTime() time.Time {
	return d.t
}

// After reports whether d falls after o.
func (d Date) After(o Date) bool {
	return d.t.After(o.t)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time is an instant carried at microsecond precision in UTC.
type Time struct {
	t time.Time
}

func (Time) canonicalValue() {}

// TimeOf converts an instant to UTC and truncates sub-microsecond
// precision, so the stored value and the rendered text agree exactly.
func TimeOf(t time.Time) Time {
	return Time{t: t.UTC().Truncate(time.Microsecond)}
}

// ParseTime parses the fixed TimeLayout text.
func ParseTime(s string) (Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return Time{}, fmt.Errorf("canonical: malformed timestamp %q: %w", s, err)
	}
	return Time{t: t.UTC()}, nil
}

// String renders the fixed timestamp layout.
func (t Time) String() string {
	return t.t.Format(TimeLayout)
}

// AsTime returns the underlying instant.
func (t Time) AsTime() time.Time {
	return t.t
}

// Before reports whether t precedes o.
func (t Time) Before(o Time) bool {
	return t.t.Before(o.t)
}

// IsZero reports whether t is the zero Time.
func (t Time) IsZero() bool {
	return t.t.IsZero()
}
