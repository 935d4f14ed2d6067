package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/checkin/internal/apperr"
	"github.com/dukerupert/checkin/internal/auth"
	"github.com/dukerupert/checkin/internal/reminder"
	"github.com/dukerupert/checkin/internal/websocket"
)

type ReminderHandler struct {
	svc    *reminder.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewReminderHandler(svc *reminder.Service, hub *websocket.Hub, logger *slog.Logger) *ReminderHandler {
	return &ReminderHandler{svc: svc, hub: hub, logger: logger}
}

func (h *ReminderHandler) notify(userID, action, id string, extra map[string]any) {
	if h.hub != nil {
		h.hub.SendToUser(userID, websocket.NewMessage("reminder", action, id, extra))
	}
}

type createReminderRequest struct {
	ResponseID        string `json:"response_id"`
	ReminderType      string `json:"reminder_type"`
	ItemIndex         *int   `json:"item_index"`
	QuestionIndex     *int   `json:"question_index"`
	ReminderTime      string `json:"reminder_time"`
	SenderPhone       string `json:"sender_phone"`
	RecipientPhone    string `json:"recipient_phone"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern"`
}

type updateReminderRequest struct {
	ReminderTime      string  `json:"reminder_time"`
	ReminderText      *string `json:"reminder_text"`
	IsRecurring       bool    `json:"is_recurring"`
	RecurrencePattern string  `json:"recurrence_pattern"`
}

// parseTime accepts RFC 3339 with or without fractional seconds. An empty
// string is the zero time, which the service rejects as missing.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, apperr.Invalid("reminder_time must be RFC3339 format")
	}
	return t, nil
}

func (h *ReminderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	at, err := parseTime(req.ReminderTime)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID := auth.UserID(r.Context())
	res, err := h.svc.Create(userID, reminder.CreateInput{
		ResponseID:        req.ResponseID,
		ReminderType:      req.ReminderType,
		QuestionIndex:     req.QuestionIndex,
		ItemIndex:         req.ItemIndex,
		ReminderTime:      at,
		SenderPhone:       req.SenderPhone,
		RecipientPhone:    req.RecipientPhone,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notify(userID, "created", res.Reminder.ID, map[string]any{"response_id": res.Reminder.ResponseID})
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":           res.Reminder.ID,
		"success":      true,
		"calendar_url": res.CalendarURL,
		"reminder":     res.Reminder,
	})
}

func (h *ReminderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.svc.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}

func (h *ReminderHandler) ListForResponse(w http.ResponseWriter, r *http.Request) {
	reminders, err := h.svc.ListByResponse(auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, reminders)
}

func (h *ReminderHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.CalendarLink(auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"calendar_url": link})
}

func (h *ReminderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateReminderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	at, err := parseTime(req.ReminderTime)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	userID := auth.UserID(r.Context())
	res, err := h.svc.Update(userID, r.PathValue("id"), reminder.UpdateInput{
		ReminderTime:      at,
		ReminderText:      req.ReminderText,
		IsRecurring:       req.IsRecurring,
		RecurrencePattern: req.RecurrencePattern,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notify(userID, "updated", res.Reminder.ID, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"calendar_url": res.CalendarURL,
		"reminder":     res.Reminder,
	})
}

func (h *ReminderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id := r.PathValue("id")
	if err := h.svc.Delete(userID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.notify(userID, "deleted", id, nil)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
