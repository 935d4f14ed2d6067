package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/checkin/internal/model"
)

type ReminderStore struct {
	db *sql.DB
}

func NewReminderStore(db *sql.DB) *ReminderStore {
	return &ReminderStore{db: db}
}

// ReminderUpdate holds the mutable reminder columns.
type ReminderUpdate struct {
	ReminderTime      time.Time
	ReminderText      string
	IsRecurring       bool
	RecurrencePattern model.RecurrencePattern
}

func scanReminder(scanner interface{ Scan(...any) error }, extra ...any) (*model.Reminder, error) {
	var r model.Reminder
	var itemIdx, questionIdx sql.NullInt64
	var sent, recurring int
	var pattern string
	dest := []any{&r.ID, &r.ResponseID, &r.ReminderType, &itemIdx, &questionIdx, &r.ReminderTime,
		&r.SenderPhone, &r.RecipientPhone, &sent, &r.RecipientName, &r.ReminderText, &recurring, &pattern}
	if err := scanner.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if itemIdx.Valid {
		v := int(itemIdx.Int64)
		r.ItemIndex = &v
	}
	if questionIdx.Valid {
		v := int(questionIdx.Int64)
		r.QuestionIndex = &v
	}
	r.Sent = sent != 0
	r.IsRecurring = recurring != 0
	r.RecurrencePattern = model.RecurrencePattern(pattern)
	r.ReminderTime = r.ReminderTime.UTC()
	return &r, nil
}

const reminderCols = `id, response_id, reminder_type, item_index, question_index, reminder_time,
	sender_phone, recipient_phone, sent, recipient_name, reminder_text, is_recurring, recurrence_pattern`

const reminderColsJoined = `r.id, r.response_id, r.reminder_type, r.item_index, r.question_index, r.reminder_time,
	r.sender_phone, r.recipient_phone, r.sent, r.recipient_name, r.reminder_text, r.is_recurring, r.recurrence_pattern`

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIndex(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

// Create inserts r with a fresh id. The reminder time is stored in UTC at
// second precision.
func (s *ReminderStore) Create(r *model.Reminder) (*model.Reminder, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO reminders (`+reminderCols+`, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, r.ResponseID, string(r.ReminderType), nullIndex(r.ItemIndex), nullIndex(r.QuestionIndex),
		r.ReminderTime.UTC().Truncate(time.Second), r.SenderPhone, r.RecipientPhone, boolInt(r.Sent),
		r.RecipientName, r.ReminderText, boolInt(r.IsRecurring), string(r.RecurrencePattern),
		time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert reminder: %w", err)
	}
	return s.GetByID(id)
}

func (s *ReminderStore) GetByID(id string) (*model.Reminder, error) {
	row := s.db.QueryRow(`SELECT `+reminderCols+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get reminder: %w", err)
	}
	return r, nil
}

// ListByResponse returns a response's reminders, soonest first.
func (s *ReminderStore) ListByResponse(responseID string) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderCols+` FROM reminders WHERE response_id = ? ORDER BY reminder_time ASC, rowid ASC`,
		responseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

// ListForUser returns every reminder whose checkin is owned by userID,
// soonest first, joined with the checkin id and recipient name.
func (s *ReminderStore) ListForUser(userID string) ([]model.ReminderSummary, error) {
	rows, err := s.db.Query(
		`SELECT `+reminderColsJoined+`, resp.checkin_id, c.recipient_name
		 FROM reminders r
		 JOIN responses resp ON r.response_id = resp.id
		 JOIN checkins c ON resp.checkin_id = c.id
		 WHERE c.user_id = ?
		 ORDER BY r.reminder_time ASC, r.rowid ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders for user: %w", err)
	}
	defer rows.Close()

	var summaries []model.ReminderSummary
	for rows.Next() {
		var checkinID, checkinName string
		r, err := scanReminder(rows, &checkinID, &checkinName)
		if err != nil {
			return nil, fmt.Errorf("scan reminder summary: %w", err)
		}
		summaries = append(summaries, model.ReminderSummary{
			Reminder:             *r,
			CheckinID:            checkinID,
			CheckinRecipientName: checkinName,
		})
	}
	return summaries, rows.Err()
}

// Update writes the mutable columns. It reports false when no row has id.
func (s *ReminderStore) Update(id string, u ReminderUpdate) (bool, error) {
	result, err := s.db.Exec(
		`UPDATE reminders SET reminder_time = ?, reminder_text = ?, is_recurring = ?, recurrence_pattern = ?
		 WHERE id = ?`,
		u.ReminderTime.UTC().Truncate(time.Second), u.ReminderText, boolInt(u.IsRecurring),
		string(u.RecurrencePattern), id,
	)
	if err != nil {
		return false, fmt.Errorf("update reminder: %w", err)
	}
	return affected(result)
}

// Delete removes a reminder. It reports false when no row has id.
func (s *ReminderStore) Delete(id string) (bool, error) {
	result, err := s.db.Exec(`DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete reminder: %w", err)
	}
	return affected(result)
}

// MarkSent flags a reminder as delivered. Marking twice is harmless.
func (s *ReminderStore) MarkSent(id string) (bool, error) {
	result, err := s.db.Exec(`UPDATE reminders SET sent = 1 WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return affected(result)
}

// ListDue returns unsent reminders due at or before now, oldest first, with
// the id of the user who owns each one. A reminder qualifies when it has a
// sender phone, or when withPush is set and its owner has at least one push
// subscription.
func (s *ReminderStore) ListDue(now time.Time, limit int, withPush bool) ([]model.DueReminder, error) {
	deliverable := `r.sender_phone != ''`
	if withPush {
		deliverable = `(r.sender_phone != '' OR EXISTS (
			SELECT 1 FROM push_subscriptions p WHERE p.user_id = c.user_id))`
	}
	rows, err := s.db.Query(
		`SELECT `+reminderColsJoined+`, COALESCE(c.user_id, '')
		 FROM reminders r
		 JOIN responses resp ON r.response_id = resp.id
		 JOIN checkins c ON resp.checkin_id = c.id
		 WHERE r.sent = 0 AND r.reminder_time <= ? AND `+deliverable+`
		 ORDER BY r.reminder_time ASC, r.rowid ASC
		 LIMIT ?`,
		now.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list due reminders: %w", err)
	}
	defer rows.Close()

	var due []model.DueReminder
	for rows.Next() {
		var owner string
		r, err := scanReminder(rows, &owner)
		if err != nil {
			return nil, fmt.Errorf("scan due reminder: %w", err)
		}
		due = append(due, model.DueReminder{Reminder: *r, OwnerID: owner})
	}
	return due, rows.Err()
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
