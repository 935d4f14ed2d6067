package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/checkin/internal/apperr"
	"github.com/dukerupert/checkin/internal/auth"
	"github.com/dukerupert/checkin/internal/model"
	"github.com/dukerupert/checkin/internal/push"
	"github.com/dukerupert/checkin/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	notifier  *push.Notifier
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, logger *slog.Logger) *PushHandler {
	return &PushHandler{
		pushStore: ps,
		service:   svc,
		notifier:  push.NewNotifier(svc, ps, logger),
		logger:    logger,
	}
}

type subscribeRequest struct {
	Endpoint   string `json:"endpoint"`
	P256dh     string `json:"p256dh"`
	Auth       string `json:"auth"`
	DeviceName string `json:"device_name"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.Endpoint == "" || req.P256dh == "" || req.Auth == "" {
		writeError(w, h.logger, apperr.Invalid("endpoint, p256dh, and auth are required"))
		return
	}

	sub, err := h.pushStore.CreateSubscription(auth.UserID(r.Context()), req.Endpoint, req.P256dh, req.Auth, req.DeviceName)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to save subscription"))
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.pushStore.ListByUser(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to list subscriptions"))
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	ok, err := h.pushStore.DeleteSubscription(r.PathValue("id"), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to delete subscription"))
		return
	}
	if !ok {
		writeError(w, h.logger, apperr.NotFoundf("Subscription not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// TestNotification handles POST /api/push/test
func (h *PushHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	sent, err := h.notifier.Notify(r.Context(), auth.UserID(r.Context()), "test", "Push notifications are working!")
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to list subscriptions"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}
