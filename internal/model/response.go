package model

import "time"

// Answers holds one ordered list of free-text items per question.
type Answers [][]string

// Item returns answers[question][item], or "" when either index is out of range.
func (a Answers) Item(question, item int) string {
	if question < 0 || question >= len(a) {
		return ""
	}
	items := a[question]
	if item < 0 || item >= len(items) {
		return ""
	}
	return items[item]
}

type Response struct {
	ID            string    `json:"id"`
	CheckinID     string    `json:"checkin_id"`
	RecipientName string    `json:"recipient_name"`
	Answers       Answers   `json:"answers"`
	CreatedAt     time.Time `json:"created_at"`
}

// ResponseReport is a response as shown to the checkin owner: the checkin's
// questions are attached and the recipient label is resolved.
type ResponseReport struct {
	Response
	Questions            []string `json:"questions"`
	CheckinRecipientName string   `json:"checkin_recipient_name"`
}

// RecipientName resolves the label for a recipient. The checkin's name wins
// over the name typed in by the responder.
func RecipientName(checkinName, responseName string) string {
	if checkinName != "" {
		return checkinName
	}
	return responseName
}
