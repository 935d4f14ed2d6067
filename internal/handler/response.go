package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/checkin/internal/apperr"
	"github.com/dukerupert/checkin/internal/auth"
	"github.com/dukerupert/checkin/internal/model"
	"github.com/dukerupert/checkin/internal/ownership"
	"github.com/dukerupert/checkin/internal/store"
)

type ResponseHandler struct {
	responseStore *store.ResponseStore
	checkinStore  *store.CheckinStore
	guard         *ownership.Guard
	logger        *slog.Logger
}

func NewResponseHandler(rs *store.ResponseStore, cs *store.CheckinStore, guard *ownership.Guard, logger *slog.Logger) *ResponseHandler {
	return &ResponseHandler{responseStore: rs, checkinStore: cs, guard: guard, logger: logger}
}

type responseRequest struct {
	CheckinID     string        `json:"checkin_id"`
	RecipientName string        `json:"recipient_name"`
	Answers       model.Answers `json:"answers"`
}

// Submit records a recipient's answers. It needs no account; the checkin id
// is the capability.
func (h *ResponseHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req responseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if req.CheckinID == "" {
		writeError(w, h.logger, apperr.Invalid("checkin_id is required"))
		return
	}

	c, err := h.checkinStore.GetByID(req.CheckinID)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to save response"))
		return
	}
	if c == nil {
		writeError(w, h.logger, apperr.NotFoundf("Check-in not found"))
		return
	}

	for i := range req.Answers {
		if req.Answers[i] == nil {
			req.Answers[i] = []string{}
		}
	}

	resp, err := h.responseStore.Create(c.ID, strings.TrimSpace(req.RecipientName), req.Answers)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to save response"))
		return
	}

	h.logger.Info("response submitted", "response_id", resp.ID, "checkin_id", c.ID)
	writeJSON(w, http.StatusCreated, map[string]any{"id": resp.ID, "success": true})
}

func (h *ResponseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.guard.Check(auth.UserID(r.Context()), ownership.ResponseTarget(id)); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp, err := h.responseStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to load response"))
		return
	}
	if resp == nil {
		writeError(w, h.logger, apperr.NotFoundf("Response not found"))
		return
	}
	c, err := h.checkinStore.GetByID(resp.CheckinID)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to load response"))
		return
	}
	if c == nil {
		writeError(w, h.logger, apperr.NotFoundf("Check-in not found"))
		return
	}

	writeJSON(w, http.StatusOK, report(c, *resp))
}
