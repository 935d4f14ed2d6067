package store

import (
	"database/sql"
	"fmt"
)

// OwnershipStore resolves the user at the end of each ownership chain:
// reminder to response to checkin to user.
type OwnershipStore struct {
	db *sql.DB
}

func NewOwnershipStore(db *sql.DB) *OwnershipStore {
	return &OwnershipStore{db: db}
}

// CheckinOwner returns the checkin's owner. found is false when the checkin
// does not exist; owner is empty for legacy unowned rows.
func (s *OwnershipStore) CheckinOwner(id string) (owner string, found bool, err error) {
	return s.owner("checkin", `SELECT user_id FROM checkins WHERE id = ?`, id)
}

// ResponseOwner returns the owner of the response's checkin.
func (s *OwnershipStore) ResponseOwner(id string) (string, bool, error) {
	return s.owner("response", `
		SELECT c.user_id FROM responses resp
		JOIN checkins c ON resp.checkin_id = c.id
		WHERE resp.id = ?`, id)
}

// ReminderOwner returns the owner at the end of the reminder's chain.
func (s *OwnershipStore) ReminderOwner(id string) (string, bool, error) {
	return s.owner("reminder", `
		SELECT c.user_id FROM reminders r
		JOIN responses resp ON r.response_id = resp.id
		JOIN checkins c ON resp.checkin_id = c.id
		WHERE r.id = ?`, id)
}

func (s *OwnershipStore) owner(entity, query, id string) (string, bool, error) {
	var owner sql.NullString
	err := s.db.QueryRow(query, id).Scan(&owner)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("resolve %s owner: %w", entity, err)
	}
	return owner.String, true, nil
}
