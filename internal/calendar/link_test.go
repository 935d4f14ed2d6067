package calendar

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/checkin/internal/model"
)

func parseLink(t *testing.T, link string) url.Values {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if u.Host != "calendar.google.com" || u.Path != "/calendar/render" {
		t.Errorf("link target = %s%s, want calendar.google.com/calendar/render", u.Host, u.Path)
	}
	return u.Query()
}

func TestLinkDefaultEnd(t *testing.T) {
	start := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	q := parseLink(t, Link(Event{Title: "Check in", Start: start}))

	if got := q.Get("dates"); got != "20260314T150926Z/20260314T160926Z" {
		t.Errorf("dates = %q", got)
	}
	if got := q.Get("action"); got != "TEMPLATE" {
		t.Errorf("action = %q, want TEMPLATE", got)
	}
	if q.Has("recur") {
		t.Error("expected no recur parameter for a one-off event")
	}
}

func TestLinkDatesRoundTrip(t *testing.T) {
	loc := time.FixedZone("UTC-7", -7*60*60)
	tests := []struct {
		name  string
		start time.Time
		end   time.Time
	}{
		{"default end", time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC), time.Time{}},
		{"explicit end", time.Date(2026, 6, 30, 8, 0, 5, 0, time.UTC), time.Date(2026, 6, 30, 9, 45, 0, 0, time.UTC)},
		{"non-UTC zone", time.Date(2026, 12, 31, 20, 0, 0, 0, loc), time.Time{}},
		{"sub-second truncated", time.Date(2026, 2, 2, 2, 2, 2, 999, time.UTC), time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := parseLink(t, Link(Event{Title: "x", Start: tt.start, End: tt.end}))
			start, end, err := parseDates(q.Get("dates"))
			if err != nil {
				t.Fatalf("parseDates: %v", err)
			}

			wantEnd := tt.end
			if wantEnd.IsZero() {
				wantEnd = tt.start.Add(time.Hour)
			}
			if !start.Equal(tt.start.Truncate(time.Second)) {
				t.Errorf("start = %v, want %v", start, tt.start)
			}
			if !end.Equal(wantEnd.Truncate(time.Second)) {
				t.Errorf("end = %v, want %v", end, wantEnd)
			}
			if tt.end.IsZero() && end.Sub(start) != time.Hour {
				t.Errorf("default duration = %v, want 1h", end.Sub(start))
			}
		})
	}
}

func TestLinkRecurrence(t *testing.T) {
	start := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		pattern model.RecurrencePattern
		want    string
	}{
		{model.Weekly, "RRULE:FREQ=WEEKLY;INTERVAL=1"},
		{model.Biweekly, "RRULE:FREQ=WEEKLY;INTERVAL=2"},
		{model.Monthly, "RRULE:FREQ=MONTHLY;INTERVAL=1"},
		{"fortnightly", "RRULE:FREQ=WEEKLY;INTERVAL=1"},
		{"", "RRULE:FREQ=WEEKLY;INTERVAL=1"},
	}

	for _, tt := range tests {
		q := parseLink(t, Link(Event{Title: "x", Start: start, Recurring: true, Pattern: tt.pattern}))
		if got := q.Get("recur"); got != tt.want {
			t.Errorf("pattern %q: recur = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestLinkEncodesValues(t *testing.T) {
	start := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	title := "Check in with Ana & Bo about knee #2?"
	details := "Reminder: line one\n\nsms:555?body=a%20b"

	link := Link(Event{Title: title, Start: start, Description: details})
	if strings.ContainsAny(link[strings.Index(link, "?")+1:], " #\n") {
		t.Errorf("link contains unescaped characters: %q", link)
	}

	q := parseLink(t, link)
	if got := q.Get("text"); got != title {
		t.Errorf("text = %q, want %q", got, title)
	}
	if got := q.Get("details"); got != details {
		t.Errorf("details = %q, want %q", got, details)
	}
}

func TestSMSLink(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		message string
		want    string
	}{
		{"empty phone", "", "hi", ""},
		{"blank phone", "  - ", "hi", ""},
		{"strips spaces and hyphens", " 123-456-7890 ", "hi", "sms:1234567890?body=hi"},
		{"keeps plus prefix", "+1 555 010 9999", "How are you doing?", "sms:+15550109999?body=How%20are%20you%20doing%3F"},
		{"encodes ampersand", "5550100", "knees & hips", "sms:5550100?body=knees%20%26%20hips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SMSLink(tt.phone, tt.message); got != tt.want {
				t.Errorf("SMSLink(%q, %q) = %q, want %q", tt.phone, tt.message, got, tt.want)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	if got := Describe("Reminder: x", ""); got != "Reminder: x" {
		t.Errorf("Describe without link = %q", got)
	}
	if got := Describe("Reminder: x", "sms:1?body=y"); got != "Reminder: x\n\nsms:1?body=y" {
		t.Errorf("Describe with link = %q", got)
	}
}

// parseDates splits a dates parameter back into its start and end.
func parseDates(dates string) (time.Time, time.Time, error) {
	startStr, endStr, _ := strings.Cut(dates, "/")
	start, err := time.Parse(TimeFormat, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := time.Parse(TimeFormat, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
