package recurrence

import (
	"testing"
	"time"

	"github.com/dukerupert/checkin/internal/model"
)

func TestFromPattern(t *testing.T) {
	tests := []struct {
		pattern model.RecurrencePattern
		want    string
	}{
		{model.Weekly, "FREQ=WEEKLY;INTERVAL=1"},
		{model.Biweekly, "FREQ=WEEKLY;INTERVAL=2"},
		{model.Monthly, "FREQ=MONTHLY;INTERVAL=1"},
		{"", "FREQ=WEEKLY;INTERVAL=1"},
		{"daily", "FREQ=WEEKLY;INTERVAL=1"},
	}

	for _, tt := range tests {
		if got := FromPattern(tt.pattern).String(); got != tt.want {
			t.Errorf("FromPattern(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		pattern model.RecurrencePattern
		want    string
	}{
		{model.Weekly, "Repeats weekly"},
		{model.Biweekly, "Repeats every 2 weeks"},
		{model.Monthly, "Repeats monthly"},
	}
	for _, tt := range tests {
		if got := FromPattern(tt.pattern).Describe(); got != tt.want {
			t.Errorf("Describe(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestNextWeekly(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // Monday
	after := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	got := Next(FromPattern(model.Weekly), start, after)
	want := time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Next weekly = %v, want %v", got, want)
	}

	got = Next(FromPattern(model.Biweekly), start, after)
	want = time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Next biweekly = %v, want %v", got, want)
	}

	got = Next(FromPattern(model.Biweekly), start, time.Date(2026, 3, 16, 10, 0, 0, 0, time.UTC))
	want = time.Date(2026, 3, 30, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Next biweekly after occurrence = %v, want %v", got, want)
	}
}

func TestNextExactBoundary(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	after := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	got := Next(FromPattern(model.Weekly), start, after)
	if !got.Equal(after) {
		t.Errorf("Next = %v, want %v", got, after)
	}
}

func TestNextFutureStart(t *testing.T) {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	after := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	got := Next(FromPattern(model.Monthly), start, after)
	if !got.Equal(start) {
		t.Errorf("Next = %v, want start %v", got, start)
	}
}

func TestNextMonthlySkipsShortMonths(t *testing.T) {
	start := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)
	after := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	got := Next(FromPattern(model.Monthly), start, after)
	want := time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Next monthly = %v, want %v", got, want)
	}
}
