package model

import (
	"fmt"
	"time"
)

type ReminderType string

const (
	ReminderFull ReminderType = "full"
	ReminderItem ReminderType = "item"
)

func ParseReminderType(s string) (ReminderType, error) {
	switch ReminderType(s) {
	case ReminderFull, ReminderItem:
		return ReminderType(s), nil
	}
	return "", fmt.Errorf("unknown reminder type: %q", s)
}

type RecurrencePattern string

const (
	Weekly   RecurrencePattern = "weekly"
	Biweekly RecurrencePattern = "biweekly"
	Monthly  RecurrencePattern = "monthly"
)

func ParseRecurrencePattern(s string) (RecurrencePattern, error) {
	switch RecurrencePattern(s) {
	case Weekly, Biweekly, Monthly:
		return RecurrencePattern(s), nil
	}
	return "", fmt.Errorf("unknown recurrence pattern: %q", s)
}

// Target is what a reminder is about: the whole report or one answer item.
type Target interface {
	Type() ReminderType
}

type FullReport struct{}

func (FullReport) Type() ReminderType { return ReminderFull }

type AnswerItem struct {
	Question int
	Item     int
}

func (AnswerItem) Type() ReminderType { return ReminderItem }

type Reminder struct {
	ID                string            `json:"id"`
	ResponseID        string            `json:"response_id"`
	ReminderType      ReminderType      `json:"reminder_type"`
	ItemIndex         *int              `json:"item_index"`
	QuestionIndex     *int              `json:"question_index"`
	ReminderTime      time.Time         `json:"reminder_time"`
	SenderPhone       string            `json:"sender_phone"`
	RecipientPhone    string            `json:"recipient_phone"`
	Sent              bool              `json:"sent"`
	RecipientName     string            `json:"recipient_name"`
	ReminderText      string            `json:"reminder_text"`
	IsRecurring       bool              `json:"is_recurring"`
	RecurrencePattern RecurrencePattern `json:"recurrence_pattern,omitempty"`
}

// Target rebuilds the reminder's target from its stored columns. An item
// reminder with missing indices degrades to an out-of-range item.
func (r *Reminder) Target() Target {
	if r.ReminderType != ReminderItem {
		return FullReport{}
	}
	t := AnswerItem{Question: -1, Item: -1}
	if r.QuestionIndex != nil {
		t.Question = *r.QuestionIndex
	}
	if r.ItemIndex != nil {
		t.Item = *r.ItemIndex
	}
	return t
}

// ReminderSummary is a reminder row joined with its checkin for the
// dashboard listing.
type ReminderSummary struct {
	Reminder
	CheckinID             string     `json:"checkin_id"`
	CheckinRecipientName  string     `json:"checkin_recipient_name"`
	RecurrenceDescription string     `json:"recurrence_description,omitempty"`
	NextOccurrence        *time.Time `json:"next_occurrence,omitempty"`
}

// DueReminder is a reminder waiting for delivery together with the user who
// owns it. OwnerID is empty for reminders under legacy unowned checkins.
type DueReminder struct {
	Reminder
	OwnerID string
}
