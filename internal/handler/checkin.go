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

type CheckinHandler struct {
	checkinStore  *store.CheckinStore
	responseStore *store.ResponseStore
	guard         *ownership.Guard
	legacy        bool
	logger        *slog.Logger
}

// NewCheckinHandler creates the checkin handler. legacy makes unowned rows
// from before accounts existed visible in every user's list.
func NewCheckinHandler(cs *store.CheckinStore, rs *store.ResponseStore, guard *ownership.Guard, legacy bool, logger *slog.Logger) *CheckinHandler {
	return &CheckinHandler{checkinStore: cs, responseStore: rs, guard: guard, legacy: legacy, logger: logger}
}

type checkinRequest struct {
	Intro         string   `json:"intro"`
	Questions     []string `json:"questions"`
	SenderEmail   string   `json:"sender_email"`
	SenderName    string   `json:"sender_name"`
	RecipientName string   `json:"recipient_name"`
	SenderPhone   string   `json:"sender_phone"`
}

func (h *CheckinHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(req.Questions) == 0 {
		writeError(w, h.logger, apperr.Invalid("at least one question is required"))
		return
	}
	for i, q := range req.Questions {
		req.Questions[i] = strings.TrimSpace(q)
		if req.Questions[i] == "" {
			writeError(w, h.logger, apperr.Invalid("questions must not be blank"))
			return
		}
	}

	userID := auth.UserID(r.Context())
	c, err := h.checkinStore.Create(&model.Checkin{
		UserID:        &userID,
		SenderEmail:   strings.TrimSpace(req.SenderEmail),
		SenderName:    strings.TrimSpace(req.SenderName),
		RecipientName: strings.TrimSpace(req.RecipientName),
		Intro:         req.Intro,
		Questions:     req.Questions,
		SenderPhone:   strings.TrimSpace(req.SenderPhone),
	})
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to create check-in"))
		return
	}

	h.logger.Info("checkin created", "checkin_id", c.ID, "questions", len(c.Questions))
	writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID, "link": "/checkin/" + c.ID})
}

// Get is public: knowing the id is what lets a recipient answer.
func (h *CheckinHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.checkinStore.GetByID(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to load check-in"))
		return
	}
	if c == nil {
		writeError(w, h.logger, apperr.NotFoundf("Check-in not found"))
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CheckinHandler) List(w http.ResponseWriter, r *http.Request) {
	checkins, err := h.checkinStore.ListByUser(auth.UserID(r.Context()), h.legacy)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to load check-ins"))
		return
	}
	if checkins == nil {
		checkins = []model.Checkin{}
	}
	writeJSON(w, http.StatusOK, checkins)
}

// Responses lists a checkin's responses, newest first, each with the
// checkin's questions and the resolved recipient name.
func (h *CheckinHandler) Responses(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.guard.Check(auth.UserID(r.Context()), ownership.CheckinTarget(id)); err != nil {
		writeError(w, h.logger, err)
		return
	}

	c, err := h.checkinStore.GetByID(id)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to load responses"))
		return
	}
	if c == nil {
		writeError(w, h.logger, apperr.NotFoundf("Check-in not found"))
		return
	}
	responses, err := h.responseStore.ListByCheckin(id)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to load responses"))
		return
	}

	reports := make([]model.ResponseReport, 0, len(responses))
	for _, resp := range responses {
		reports = append(reports, report(c, resp))
	}
	writeJSON(w, http.StatusOK, reports)
}

func report(c *model.Checkin, resp model.Response) model.ResponseReport {
	resp.RecipientName = model.RecipientName(c.RecipientName, resp.RecipientName)
	return model.ResponseReport{
		Response:             resp,
		Questions:            c.Questions,
		CheckinRecipientName: c.RecipientName,
	}
}
