// Package reminder derives reminder text and calendar links and implements
// the owner-scoped reminder operations.
package reminder

import (
	"fmt"

	"github.com/dukerupert/checkin/internal/calendar"
	"github.com/dukerupert/checkin/internal/model"
)

const fullReportSMS = "How are you doing?"

// Composition is the text derived for a reminder. SMSMessage is empty when
// there is nothing to ask about.
type Composition struct {
	Text       string
	SMSMessage string
}

// Compose derives the reminder text and SMS body for target. Missing answer
// data yields an empty item, never an error.
func Compose(recipientName string, answers model.Answers, target model.Target) Composition {
	switch t := target.(type) {
	case model.AnswerItem:
		item := answers.Item(t.Question, t.Item)
		c := Composition{Text: fmt.Sprintf("Check in with %s about %s", recipientName, item)}
		if item != "" {
			c.SMSMessage = fmt.Sprintf("How is %s?", item)
		}
		return c
	case model.FullReport:
		return fullReport(recipientName)
	default:
		return fullReport(recipientName)
	}
}

func fullReport(recipientName string) Composition {
	return Composition{
		Text:       fmt.Sprintf("Check in with %s about their care report", recipientName),
		SMSMessage: fullReportSMS,
	}
}

// Event builds the calendar event for a stored reminder. The title uses the
// frozen reminder text while the SMS shortcut is re-derived from the current
// answers, so the two can drift if a response changes after creation.
func Event(r *model.Reminder, answers model.Answers) calendar.Event {
	var smsLink string
	if r.RecipientPhone != "" {
		if msg := Compose(r.RecipientName, answers, r.Target()).SMSMessage; msg != "" {
			smsLink = calendar.SMSLink(r.RecipientPhone, msg)
		}
	}

	return calendar.Event{
		Title:       r.ReminderText,
		Start:       r.ReminderTime,
		Description: calendar.Describe("Reminder: "+r.ReminderText, smsLink),
		Recurring:   r.IsRecurring,
		Pattern:     r.RecurrencePattern,
	}
}

// CalendarLink is shorthand for calendar.Link(Event(r, answers)).
func CalendarLink(r *model.Reminder, answers model.Answers) string {
	return calendar.Link(Event(r, answers))
}
