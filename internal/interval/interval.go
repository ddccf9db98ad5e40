// Package interval compares half-open minute intervals [start, end) on a
// calendar date.
package interval

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

const (
	MinutesPerDay = 24 * 60
	DateLayout    = "2006-01-02"
)

// Interval is [Start, End) in minutes since midnight on Date.
type Interval struct {
	Date  string `json:"date"`
	Start int    `json:"start_minute"`
	End   int    `json:"end_minute"`
}

// New builds [start, start+duration) on date. Non-positive durations and
// intervals leaving the day are rejected.
func New(date time.Time, startMinute, durationMinutes int) (Interval, error) {
	if durationMinutes <= 0 {
		return Interval{}, apperrors.InvalidInterval("duration must be positive, got %d", durationMinutes)
	}
	return FromBounds(FormatDate(date), startMinute, startMinute+durationMinutes)
}

// FromBounds builds [start, end) on an already formatted date.
func FromBounds(date string, startMinute, endMinute int) (Interval, error) {
	if endMinute <= startMinute {
		return Interval{}, apperrors.InvalidInterval("end %s is not after start %s", FormatClock(endMinute), FormatClock(startMinute))
	}
	if startMinute < 0 || endMinute > MinutesPerDay {
		return Interval{}, apperrors.InvalidInterval("[%d, %d) does not fit within a day", startMinute, endMinute)
	}
	return Interval{Date: date, Start: startMinute, End: endMinute}, nil
}

func (i Interval) Duration() int {
	return i.End - i.Start
}

// Overlaps is true iff both intervals share a date and a.Start < b.End && b.Start < a.End.
// A booking ending at 10:00 does not overlap one starting at 10:00.
func (i Interval) Overlaps(o Interval) bool {
	return i.Date == o.Date && Overlap(i.Start, i.End, o.Start, o.End)
}

// Contains reports whether o lies entirely within i. The date is not
// compared so weekly windows can be checked against dated requests.
func (i Interval) Contains(o Interval) bool {
	return i.Start <= o.Start && o.End <= i.End
}

// Subtract removes o from i, returning zero, one or two remaining pieces.
func (i Interval) Subtract(o Interval) []Interval {
	if !Overlap(i.Start, i.End, o.Start, o.End) {
		return []Interval{i}
	}
	var out []Interval
	if i.Start < o.Start {
		out = append(out, Interval{Date: i.Date, Start: i.Start, End: o.Start})
	}
	if o.End < i.End {
		out = append(out, Interval{Date: i.Date, Start: o.End, End: i.End})
	}
	return out
}

func (i Interval) String() string {
	return fmt.Sprintf("%s [%s, %s)", i.Date, FormatClock(i.Start), FormatClock(i.End))
}

// Overlap compares raw half-open minute ranges.
func Overlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// FormatDate renders the calendar date of t, ignoring its clock.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.BadRequest(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s), err)
	}
	return t, nil
}

// ParseClock converts "HH:MM" to minutes since midnight. "24:00" is accepted
// as the end of day.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, apperrors.BadRequest(fmt.Sprintf("invalid time %q, expected HH:MM", s), nil)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, apperrors.BadRequest(fmt.Sprintf("invalid hour in %q", s), err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, apperrors.BadRequest(fmt.Sprintf("invalid minute in %q", s), err)
	}
	if h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, apperrors.BadRequest(fmt.Sprintf("time %q out of range", s), nil)
	}
	return h*60 + m, nil
}

func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
