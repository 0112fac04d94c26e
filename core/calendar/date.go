package calendar

import (
	"fmt"
	"strconv"
	"time"
)

// Date is a calendar date encoded as yyyymmdd. Integer order is date order.
type Date int

// ParseDate parses a yyyymmdd date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("20060102", s)
	if err != nil {
		return 0, fmt.Errorf("invalid service date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// FromTime returns the date of t in t's location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date(y*10000 + int(m)*100 + d)
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	n := int(d)
	return time.Date(n/10000, time.Month(n/100%100), n%100, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of the week.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Next returns the following day.
func (d Date) Next() Date {
	return FromTime(d.Time().AddDate(0, 0, 1))
}

func (d Date) String() string {
	return strconv.Itoa(int(d))
}
