package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/checkin/internal/model"
)

type CheckinStore struct {
	db *sql.DB
}

func NewCheckinStore(db *sql.DB) *CheckinStore {
	return &CheckinStore{db: db}
}

func scanCheckin(scanner interface{ Scan(...any) error }) (*model.Checkin, error) {
	var c model.Checkin
	var userID sql.NullString
	var questions string
	err := scanner.Scan(&c.ID, &userID, &c.SenderEmail, &c.SenderName, &c.RecipientName,
		&c.Intro, &questions, &c.SenderPhone, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		c.UserID = &userID.String
	}
	if err := json.Unmarshal([]byte(questions), &c.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	if c.Questions == nil {
		c.Questions = []string{}
	}
	return &c, nil
}

const checkinCols = `id, user_id, sender_email, sender_name, recipient_name, intro, questions, sender_phone, created_at`

// Create inserts c with a fresh id and returns the stored row.
func (s *CheckinStore) Create(c *model.Checkin) (*model.Checkin, error) {
	questions := c.Questions
	if questions == nil {
		questions = []string{}
	}
	encoded, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("encode questions: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO checkins (`+checkinCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, c.UserID, c.SenderEmail, c.SenderName, c.RecipientName,
		c.Intro, string(encoded), c.SenderPhone, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert checkin: %w", err)
	}
	return s.GetByID(id)
}

func (s *CheckinStore) GetByID(id string) (*model.Checkin, error) {
	row := s.db.QueryRow(`SELECT `+checkinCols+` FROM checkins WHERE id = ?`, id)
	c, err := scanCheckin(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get checkin: %w", err)
	}
	return c, nil
}

// ListByUser returns the user's checkins, newest first. includeUnowned also
// returns legacy rows that have no owner.
func (s *CheckinStore) ListByUser(userID string, includeUnowned bool) ([]model.Checkin, error) {
	rows, err := s.db.Query(
		`SELECT `+checkinCols+` FROM checkins
		 WHERE user_id = ? OR (? AND user_id IS NULL)
		 ORDER BY created_at DESC, rowid DESC`,
		userID, includeUnowned,
	)
	if err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	defer rows.Close()

	var checkins []model.Checkin
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, fmt.Errorf("scan checkin: %w", err)
		}
		checkins = append(checkins, *c)
	}
	return checkins, rows.Err()
}
