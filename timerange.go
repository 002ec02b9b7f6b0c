package esm

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// TimeRange names a relative or calendar time window understood by the
// appliance.
type TimeRange string

// Named time ranges.
const (
	Custom          TimeRange = "CUSTOM"
	LastMinute      TimeRange = "LAST_MINUTE"
	Last10Minutes   TimeRange = "LAST_10_MINUTES"
	Last30Minutes   TimeRange = "LAST_30_MINUTES"
	LastHour        TimeRange = "LAST_HOUR"
	CurrentDay      TimeRange = "CURRENT_DAY"
	PreviousDay     TimeRange = "PREVIOUS_DAY"
	Last24Hours     TimeRange = "LAST_24_HOURS"
	Last2Days       TimeRange = "LAST_2_DAYS"
	Last3Days       TimeRange = "LAST_3_DAYS"
	CurrentWeek     TimeRange = "CURRENT_WEEK"
	PreviousWeek    TimeRange = "PREVIOUS_WEEK"
	CurrentMonth    TimeRange = "CURRENT_MONTH"
	PreviousMonth   TimeRange = "PREVIOUS_MONTH"
	CurrentQuarter  TimeRange = "CURRENT_QUARTER"
	PreviousQuarter TimeRange = "PREVIOUS_QUARTER"
	CurrentYear     TimeRange = "CURRENT_YEAR"
	PreviousYear    TimeRange = "PREVIOUS_YEAR"
)

var timeRanges = []TimeRange{
	Custom, LastMinute, Last10Minutes, Last30Minutes, LastHour,
	CurrentDay, PreviousDay, Last24Hours, Last2Days, Last3Days,
	CurrentWeek, PreviousWeek, CurrentMonth, PreviousMonth,
	CurrentQuarter, PreviousQuarter, CurrentYear, PreviousYear,
}

// TimeRanges returns every known range name.
func TimeRanges() []TimeRange {
	return slices.Clone(timeRanges)
}

// Valid reports whether r is a known range.
func (r TimeRange) Valid() bool {
	return slices.Contains(timeRanges, r)
}

// ParseTimeRange parses a range name, case-insensitively.
func ParseTimeRange(s string) (TimeRange, error) {
	r := TimeRange(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", configErr("time range", "unknown range %q", s)
	}
	return r, nil
}

// NoBound is returned by TimeSpec.Start and TimeSpec.End when the
// specification is a named range.
var NoBound = time.Time{}

// TimeSpec is either a named range or explicit start and end times, never
// both. Build one with Named or Between.
type TimeSpec struct {
	named      TimeRange
	start, end time.Time
}

// Named returns a spec for a named range.
func Named(r TimeRange) TimeSpec {
	return TimeSpec{named: r}
}

// Between returns a custom spec with explicit bounds.
func Between(start, end time.Time) TimeSpec {
	return TimeSpec{named: Custom, start: start, end: end}
}

// Range returns the range name, Custom for explicit bounds.
func (s TimeSpec) Range() TimeRange {
	if s.named == "" {
		return Custom
	}
	return s.named
}

// Start returns the explicit start, or NoBound for named ranges.
func (s TimeSpec) Start() time.Time {
	if s.Range() != Custom {
		return NoBound
	}
	return s.start
}

// End returns the explicit end, or NoBound for named ranges.
func (s TimeSpec) End() time.Time {
	if s.Range() != Custom {
		return NoBound
	}
	return s.end
}

// IsZero reports whether the spec was never set.
func (s TimeSpec) IsZero() bool {
	return s.named == "" && s.start.IsZero() && s.end.IsZero()
}

// Validate checks the range name and, for custom specs, the bounds.
func (s TimeSpec) Validate() error {
	r := s.Range()
	if !r.Valid() {
		return configErr("time range", "unknown range %q", string(r))
	}
	if r != Custom {
		return nil
	}
	if s.start.IsZero() || s.end.IsZero() {
		return configErr("time range", "custom range needs both start and end")
	}
	if s.end.Before(s.start) {
		return configErr("time range", "end %s before start %s", s.end.Format(time.RFC3339), s.start.Format(time.RFC3339))
	}
	return nil
}

func (s TimeSpec) String() string {
	if s.Range() == Custom {
		return fmt.Sprintf("%s..%s", s.start.Format(time.RFC3339), s.end.Format(time.RFC3339))
	}
	return string(s.named)
}

// Resolve returns absolute bounds relative to now. Calendar ranges use now's
// location and weeks start on Monday.
func (s TimeSpec) Resolve(now time.Time) (start, end time.Time, err error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, time.Time{}, err
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch s.Range() {
	case Custom:
		return s.start, s.end, nil
	case LastMinute:
		return now.Add(-time.Minute), now, nil
	case Last10Minutes:
		return now.Add(-10 * time.Minute), now, nil
	case Last30Minutes:
		return now.Add(-30 * time.Minute), now, nil
	case LastHour:
		return now.Add(-time.Hour), now, nil
	case Last24Hours:
		return now.Add(-24 * time.Hour), now, nil
	case Last2Days:
		return now.Add(-48 * time.Hour), now, nil
	case Last3Days:
		return now.Add(-72 * time.Hour), now, nil
	case CurrentDay:
		return day, now, nil
	case PreviousDay:
		return day.AddDate(0, 0, -1), day, nil
	case CurrentWeek:
		return weekStart(day), now, nil
	case PreviousWeek:
		ws := weekStart(day)
		return ws.AddDate(0, 0, -7), ws, nil
	case CurrentMonth:
		return monthStart(day), now, nil
	case PreviousMonth:
		ms := monthStart(day)
		return ms.AddDate(0, -1, 0), ms, nil
	case CurrentQuarter:
		return quarterStart(day), now, nil
	case PreviousQuarter:
		qs := quarterStart(day)
		return qs.AddDate(0, -3, 0), qs, nil
	case CurrentYear:
		return yearStart(day), now, nil
	case PreviousYear:
		ys := yearStart(day)
		return ys.AddDate(-1, 0, 0), ys, nil
	}
	return time.Time{}, time.Time{}, configErr("time range", "unknown range %q", string(s.Range()))
}

func weekStart(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func monthStart(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
}

func quarterStart(day time.Time) time.Time {
	m := time.Month((int(day.Month())-1)/3*3 + 1)
	return time.Date(day.Year(), m, 1, 0, 0, 0, 0, day.Location())
}

func yearStart(day time.Time) time.Time {
	return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
}

// splitWindow divides [start, end] into n contiguous windows of equal length.
// The last window ends exactly at end.
func splitWindow(start, end time.Time, n int) []TimeSpec {
	if n < 1 {
		n = 1
	}
	step := end.Sub(start) / time.Duration(n)
	out := make([]TimeSpec, n)
	for i := range n {
		ws := start.Add(time.Duration(i) * step)
		we := start.Add(time.Duration(i+1) * step)
		if i == n-1 {
			we = end
		}
		out[i] = Between(ws, we)
	}
	return out
}

// esmTimeLayout is the timestamp format the appliance accepts in query
// configurations and alarm filters.
const esmTimeLayout = "2006-01-02T15:04:05.000Z"

func formatESMTime(t time.Time) string {
	return t.UTC().Format(esmTimeLayout)
}

var esmTimeLayouts = []string{
	esmTimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000-0700",
	"2006/01/02 15:04:05",
	"01/02/2006 15:04:05",
	"2006-01-02 15:04:05",
}

func parseESMTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range esmTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized appliance time %q", s)
}
