// Package clock provides the site wall clock and the date and time formats
// used by the visitor log.
//
// The front desk works in Western Indonesian Time (WIB, UTC+7) regardless of
// the host's zone, so all "today" calculations go through a Clock bound to the
// configured site location.
package clock

import (
	"strings"
	"time"
	"unicode"
)

// DefaultZone is the IANA name of the default site zone.
const DefaultZone = "Asia/Jakarta"

// Layouts used across the app.
const (
	VisitDateLayout = "02-Jan"          // stored on each record
	LongDateLayout  = "02 January 2006" // page header
	FormDateLayout  = "2006-01-02"      // <input type="date">
)

// wib is used when the tz database is unavailable on the host.
var wib = time.FixedZone("WIB", 7*60*60)

// Location loads the named IANA zone. An empty name means DefaultZone.
// When the zone cannot be loaded, a fixed UTC+7 zone is returned.
func Location(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		name = DefaultZone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return wib
	}
	return loc
}

// ValidZone reports whether name is empty or a loadable IANA zone.
func ValidZone(name string) bool {
	if strings.TrimSpace(name) == "" {
		return true
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

// Clock reports the current time in the site location.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Clock for loc backed by time.Now.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = wib
	}
	return &Clock{loc: loc, now: time.Now}
}

// Fixed returns a Clock that always reports t. Used by tests.
func Fixed(loc *time.Location, t time.Time) *Clock {
	c := New(loc)
	c.now = func() time.Time { return t }
	return c
}

// Location returns the site location.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current time in the site location.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns midnight of the current site day.
func (c *Clock) Today() time.Time {
	n := c.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// ParseFormDate parses a yyyy-mm-dd form value in the site location.
// It returns today and false when s is empty or malformed.
func (c *Clock) ParseFormDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return c.Today(), false
	}
	t, err := time.ParseInLocation(FormDateLayout, s, c.loc)
	if err != nil {
		return c.Today(), false
	}
	return t, true
}

// FormatClock normalizes a typed clock time. When the input contains exactly
// four digits they are rendered as "HH.MM", so "0930" and "09:30" both become
// "09.30". Anything else is returned unchanged.
func FormatClock(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) == 4 {
		return d[:2] + "." + d[2:]
	}
	return raw
}

// VisitDate formats t the way it is stored on a record.
func VisitDate(t time.Time) string {
	return t.Format(VisitDateLayout)
}

// LongDate formats t for display in the page header.
func LongDate(t time.Time) string {
	return t.Format(LongDateLayout)
}

// FormDate formats t for a date input value.
func FormDate(t time.Time) string {
	return t.Format(FormDateLayout)
}
