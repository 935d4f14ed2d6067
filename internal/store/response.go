package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/checkin/internal/model"
)

type ResponseStore struct {
	db *sql.DB
}

func NewResponseStore(db *sql.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

func scanResponse(scanner interface{ Scan(...any) error }) (*model.Response, error) {
	var r model.Response
	var answers string
	err := scanner.Scan(&r.ID, &r.CheckinID, &r.RecipientName, &answers, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(answers), &r.Answers); err != nil {
		return nil, fmt.Errorf("decode answers: %w", err)
	}
	if r.Answers == nil {
		r.Answers = model.Answers{}
	}
	return &r, nil
}

const responseCols = `id, checkin_id, recipient_name, answers, created_at`

func (s *ResponseStore) Create(checkinID, recipientName string, answers model.Answers) (*model.Response, error) {
	if answers == nil {
		answers = model.Answers{}
	}
	encoded, err := json.Marshal(answers)
	if err != nil {
		return nil, fmt.Errorf("encode answers: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO responses (`+responseCols+`) VALUES (?, ?, ?, ?, ?)`,
		id, checkinID, recipientName, string(encoded), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert response: %w", err)
	}
	return s.GetByID(id)
}

func (s *ResponseStore) GetByID(id string) (*model.Response, error) {
	row := s.db.QueryRow(`SELECT `+responseCols+` FROM responses WHERE id = ?`, id)
	r, err := scanResponse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	return r, nil
}

// ListByCheckin returns a checkin's responses, newest first.
func (s *ResponseStore) ListByCheckin(checkinID string) ([]model.Response, error) {
	rows, err := s.db.Query(
		`SELECT `+responseCols+` FROM responses WHERE checkin_id = ? ORDER BY created_at DESC, rowid DESC`,
		checkinID,
	)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, *r)
	}
	return responses, rows.Err()
}
