package model

import "time"

type Checkin struct {
	ID            string    `json:"id"`
	UserID        *string   `json:"user_id"`
	SenderEmail   string    `json:"sender_email"`
	SenderName    string    `json:"sender_name"`
	RecipientName string    `json:"recipient_name"`
	Intro         string    `json:"intro"`
	Questions     []string  `json:"questions"`
	SenderPhone   string    `json:"sender_phone"`
	CreatedAt     time.Time `json:"created_at"`
}

// OwnedBy reports whether userID owns the checkin. Legacy rows without an
// owner belong to nobody.
func (c *Checkin) OwnedBy(userID string) bool {
	return c.UserID != nil && *c.UserID == userID
}
