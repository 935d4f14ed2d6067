package reminder

import (
	"log/slog"
	"time"

	"github.com/dukerupert/checkin/internal/apperr"
	"github.com/dukerupert/checkin/internal/model"
	"github.com/dukerupert/checkin/internal/ownership"
	"github.com/dukerupert/checkin/internal/recurrence"
	"github.com/dukerupert/checkin/internal/store"
)

// CreateInput is a reminder request as submitted by the sender.
type CreateInput struct {
	ResponseID        string
	ReminderType      string
	QuestionIndex     *int
	ItemIndex         *int
	ReminderTime      time.Time
	SenderPhone       string
	RecipientPhone    string
	IsRecurring       bool
	RecurrencePattern string
}

// UpdateInput holds the mutable fields. A nil ReminderText keeps the stored
// text; nothing is re-derived from the response.
type UpdateInput struct {
	ReminderTime      time.Time
	ReminderText      *string
	IsRecurring       bool
	RecurrencePattern string
}

// Result is a stored reminder with its calendar link.
type Result struct {
	Reminder    *model.Reminder `json:"reminder"`
	CalendarURL string          `json:"calendar_url"`
}

type Service struct {
	reminders *store.ReminderStore
	responses *store.ResponseStore
	checkins  *store.CheckinStore
	guard     *ownership.Guard
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(reminders *store.ReminderStore, responses *store.ResponseStore, checkins *store.CheckinStore, guard *ownership.Guard, logger *slog.Logger) *Service {
	return &Service{
		reminders: reminders,
		responses: responses,
		checkins:  checkins,
		guard:     guard,
		logger:    logger,
		now:       time.Now,
	}
}

// Create validates in, checks that principal owns the response, composes
// the reminder text and persists the reminder.
func (s *Service) Create(principal string, in CreateInput) (*Result, error) {
	if in.ResponseID == "" {
		return nil, apperr.Invalid("response_id is required")
	}
	if in.ReminderTime.IsZero() {
		return nil, apperr.Invalid("reminder_time is required")
	}
	target, err := parseTarget(in.ReminderType, in.QuestionIndex, in.ItemIndex)
	if err != nil {
		return nil, err
	}
	pattern, err := resolvePattern(in.IsRecurring, in.RecurrencePattern)
	if err != nil {
		return nil, err
	}

	if err := s.guard.Check(principal, ownership.ResponseTarget(in.ResponseID)); err != nil {
		return nil, err
	}

	resp, err := s.responses.GetByID(in.ResponseID)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to create reminder")
	}
	if resp == nil {
		return nil, apperr.NotFoundf("Response not found")
	}
	checkin, err := s.checkins.GetByID(resp.CheckinID)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to create reminder")
	}
	if checkin == nil {
		return nil, apperr.NotFoundf("Checkin not found")
	}

	name := model.RecipientName(checkin.RecipientName, resp.RecipientName)
	composed := Compose(name, resp.Answers, target)

	r := &model.Reminder{
		ResponseID:        resp.ID,
		ReminderType:      target.Type(),
		ReminderTime:      in.ReminderTime,
		SenderPhone:       in.SenderPhone,
		RecipientPhone:    in.RecipientPhone,
		RecipientName:     name,
		ReminderText:      composed.Text,
		IsRecurring:       in.IsRecurring,
		RecurrencePattern: pattern,
	}
	if item, ok := target.(model.AnswerItem); ok {
		r.QuestionIndex = &item.Question
		r.ItemIndex = &item.Item
	}

	created, err := s.reminders.Create(r)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to create reminder")
	}
	s.logger.Info("reminder created", "reminder_id", created.ID, "response_id", resp.ID, "type", created.ReminderType)

	return &Result{Reminder: created, CalendarURL: CalendarLink(created, resp.Answers)}, nil
}

// ListByResponse returns a response's reminders, soonest first.
func (s *Service) ListByResponse(principal, responseID string) ([]model.Reminder, error) {
	if err := s.guard.Check(principal, ownership.ResponseTarget(responseID)); err != nil {
		return nil, err
	}
	reminders, err := s.reminders.ListByResponse(responseID)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load reminders")
	}
	if reminders == nil {
		reminders = []model.Reminder{}
	}
	return reminders, nil
}

// ListForUser returns every reminder owned by principal, soonest first.
// Recurring rows carry a description and their next occurrence.
func (s *Service) ListForUser(principal string) ([]model.ReminderSummary, error) {
	summaries, err := s.reminders.ListForUser(principal)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to load reminders")
	}
	if summaries == nil {
		return []model.ReminderSummary{}, nil
	}

	now := s.now()
	for i := range summaries {
		r := &summaries[i]
		if !r.IsRecurring {
			continue
		}
		rule := recurrence.FromPattern(r.RecurrencePattern)
		next := recurrence.Next(rule, r.ReminderTime, now).UTC()
		r.RecurrenceDescription = rule.Describe()
		r.NextOccurrence = &next
	}
	return summaries, nil
}

// CalendarLink rebuilds the calendar link for a stored reminder using the
// response's current answers.
func (s *Service) CalendarLink(principal, id string) (string, error) {
	if err := s.guard.Check(principal, ownership.ReminderTarget(id)); err != nil {
		return "", err
	}
	r, answers, err := s.load(id)
	if err != nil {
		return "", err
	}
	return CalendarLink(r, answers), nil
}

// Update changes the mutable fields of a reminder and returns it with a
// fresh calendar link. Type and indices never change.
func (s *Service) Update(principal, id string, in UpdateInput) (*Result, error) {
	if in.ReminderTime.IsZero() {
		return nil, apperr.Invalid("reminder_time is required")
	}
	pattern, err := resolvePattern(in.IsRecurring, in.RecurrencePattern)
	if err != nil {
		return nil, err
	}

	if err := s.guard.Check(principal, ownership.ReminderTarget(id)); err != nil {
		return nil, err
	}
	current, _, err := s.load(id)
	if err != nil {
		return nil, err
	}

	text := current.ReminderText
	if in.ReminderText != nil {
		text = *in.ReminderText
	}
	ok, err := s.reminders.Update(id, store.ReminderUpdate{
		ReminderTime:      in.ReminderTime,
		ReminderText:      text,
		IsRecurring:       in.IsRecurring,
		RecurrencePattern: pattern,
	})
	if err != nil {
		return nil, apperr.Internal(err, "Failed to update reminder")
	}
	if !ok {
		return nil, apperr.NotFoundf("Reminder not found")
	}

	updated, answers, err := s.load(id)
	if err != nil {
		return nil, err
	}
	s.logger.Info("reminder updated", "reminder_id", id)
	return &Result{Reminder: updated, CalendarURL: CalendarLink(updated, answers)}, nil
}

// Delete removes a reminder. A missing reminder reports NotFound, so a
// second delete of the same id fails.
func (s *Service) Delete(principal, id string) error {
	if err := s.guard.Check(principal, ownership.ReminderTarget(id)); err != nil {
		return err
	}
	ok, err := s.reminders.Delete(id)
	if err != nil {
		return apperr.Internal(err, "Failed to delete reminder")
	}
	if !ok {
		return apperr.NotFoundf("Reminder not found")
	}
	s.logger.Info("reminder deleted", "reminder_id", id)
	return nil
}

// MarkSent records delivery of a reminder. It is not reachable over HTTP;
// the dispatcher calls it after a successful send.
func (s *Service) MarkSent(id string) error {
	ok, err := s.reminders.MarkSent(id)
	if err != nil {
		return apperr.Internal(err, "Failed to mark reminder sent")
	}
	if !ok {
		return apperr.NotFoundf("Reminder not found")
	}
	return nil
}

func (s *Service) load(id string) (*model.Reminder, model.Answers, error) {
	r, err := s.reminders.GetByID(id)
	if err != nil {
		return nil, nil, apperr.Internal(err, "Failed to load reminder")
	}
	if r == nil {
		return nil, nil, apperr.NotFoundf("Reminder not found")
	}
	resp, err := s.responses.GetByID(r.ResponseID)
	if err != nil {
		return nil, nil, apperr.Internal(err, "Failed to load reminder")
	}
	if resp == nil {
		return r, nil, nil
	}
	return r, resp.Answers, nil
}

func parseTarget(kind string, question, item *int) (model.Target, error) {
	t, err := model.ParseReminderType(kind)
	if err != nil {
		return nil, apperr.Invalid("reminder_type must be %q or %q", model.ReminderItem, model.ReminderFull)
	}

	switch t {
	case model.ReminderItem:
		if question == nil || item == nil {
			return nil, apperr.Invalid("item reminders require question_index and item_index")
		}
		if *question < 0 || *item < 0 {
			return nil, apperr.Invalid("question_index and item_index must not be negative")
		}
		return model.AnswerItem{Question: *question, Item: *item}, nil
	case model.ReminderFull:
		if question != nil || item != nil {
			return nil, apperr.Invalid("question_index and item_index are only valid for item reminders")
		}
		return model.FullReport{}, nil
	}
	return nil, apperr.Invalid("unknown reminder_type %q", kind)
}

// resolvePattern returns the stored pattern. Non-recurring reminders store
// none; recurring ones default to weekly.
func resolvePattern(recurring bool, raw string) (model.RecurrencePattern, error) {
	if !recurring {
		return "", nil
	}
	if raw == "" {
		return model.Weekly, nil
	}
	p, err := model.ParseRecurrencePattern(raw)
	if err != nil {
		return "", apperr.Invalid("recurrence_pattern must be weekly, biweekly or monthly")
	}
	return p, nil
}
