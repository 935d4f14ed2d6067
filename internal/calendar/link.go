// Package calendar builds deep links that pre-fill a Google Calendar event
// or an SMS compose screen on the user's own device.
package calendar

import (
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/dukerupert/checkin/internal/model"
	"github.com/dukerupert/checkin/internal/recurrence"
)

const (
	templateURL = "https://calendar.google.com/calendar/render"

	// TimeFormat is the compact UTC form used in the dates parameter.
	TimeFormat = "20060102T150405Z"

	DefaultDuration = time.Hour
)

// Event describes a calendar event to pre-fill. A zero End means
// Start + DefaultDuration. Pattern is only read when Recurring is set.
type Event struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
	Recurring   bool
	Pattern     model.RecurrencePattern
}

// Link returns the event-creation URL for e.
func Link(e Event) string {
	end := e.End
	if end.IsZero() {
		end = e.Start.Add(DefaultDuration)
	}

	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", e.Title)
	params.Set("dates", FormatTime(e.Start)+"/"+FormatTime(end))
	params.Set("details", e.Description)
	if e.Recurring {
		params.Set("recur", "RRULE:"+recurrence.FromPattern(e.Pattern).String())
	}

	return templateURL + "?" + params.Encode()
}

// FormatTime formats t in UTC as YYYYMMDDTHHMMSSZ.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// SMSLink returns an sms: URI that opens a compose screen addressed to phone
// with message as the body. It returns "" when there is no number to text.
func SMSLink(phone, message string) string {
	number := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, phone)
	if number == "" {
		return ""
	}
	body := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "sms:" + number + "?body=" + body
}

// Describe joins the primary event description with an SMS shortcut,
// separated by a blank line. An empty link leaves the description as is.
func Describe(primary, smsLink string) string {
	if smsLink == "" {
		return primary
	}
	return primary + "\n\n" + smsLink
}
