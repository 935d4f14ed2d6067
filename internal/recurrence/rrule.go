package recurrence

import (
	"fmt"
	"time"

	"github.com/dukerupert/checkin/internal/model"
)

type Freq int

const (
	Weekly Freq = iota
	Monthly
)

var freqNames = map[Freq]string{
	Weekly:  "WEEKLY",
	Monthly: "MONTHLY",
}

type Rule struct {
	Freq     Freq
	Interval int // 2 = biweekly when Freq=Weekly
}

// FromPattern maps a stored recurrence pattern to its rule. Anything that is
// not biweekly or monthly repeats weekly, including values written before
// patterns were validated.
func FromPattern(p model.RecurrencePattern) Rule {
	switch p {
	case model.Biweekly:
		return Rule{Freq: Weekly, Interval: 2}
	case model.Monthly:
		return Rule{Freq: Monthly, Interval: 1}
	case model.Weekly:
		return Rule{Freq: Weekly, Interval: 1}
	default:
		return Rule{Freq: Weekly, Interval: 1}
	}
}

// String serializes the rule. INTERVAL is always written, calendar
// providers accept it and it keeps the three patterns textually distinct.
func (r Rule) String() string {
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}
	return fmt.Sprintf("FREQ=%s;INTERVAL=%d", freqNames[r.Freq], interval)
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Freq {
	case Weekly:
		if r.Interval == 2 {
			return "Repeats every 2 weeks"
		} else if r.Interval > 2 {
			return fmt.Sprintf("Repeats every %d weeks", r.Interval)
		}
		return "Repeats weekly"
	case Monthly:
		if r.Interval > 1 {
			return fmt.Sprintf("Repeats every %d months", r.Interval)
		}
		return "Repeats monthly"
	}
	return ""
}

// Next returns the first occurrence of a series starting at start that is
// not before after. Monthly series keep the start's day of month and skip
// months that are too short for it.
func Next(r Rule, start, after time.Time) time.Time {
	if !start.Before(after) {
		return start
	}
	interval := r.Interval
	if interval < 1 {
		interval = 1
	}

	switch r.Freq {
	case Monthly:
		for n := interval; ; n += interval {
			y, m, _ := start.Date()
			target := time.Month(int(m) + n)
			if start.Day() > daysInMonth(y, target) {
				continue
			}
			occ := time.Date(y, target, start.Day(), start.Hour(), start.Minute(), start.Second(), start.Nanosecond(), start.Location())
			if !occ.Before(after) {
				return occ
			}
		}
	default:
		step := time.Duration(7*interval) * 24 * time.Hour
		periods := after.Sub(start) / step
		occ := start.Add(periods * step)
		if occ.Before(after) {
			occ = occ.Add(step)
		}
		return occ
	}
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
