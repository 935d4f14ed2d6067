package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/checkin/internal/apperr"
	"github.com/dukerupert/checkin/internal/auth"
	"github.com/dukerupert/checkin/internal/model"
	"github.com/dukerupert/checkin/internal/store"
)

const (
	bcryptCost       = 10
	msgEmailTaken    = "Email already registered. Try logging in instead."
	msgBadLogin      = "Invalid email or password"
	msgMissingFields = "Email and password are required"
)

type AuthHandler struct {
	userStore *store.UserStore
	tokens    *auth.Issuer
	logger    *slog.Logger
}

func NewAuthHandler(us *store.UserStore, tokens *auth.Issuer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{userStore: us, tokens: tokens, logger: logger}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type userView struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

func viewUser(u *model.User) userView {
	return userView{ID: u.ID, Email: u.Email, Name: u.Name}
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, h.logger, apperr.Invalid(msgMissingFields))
		return
	}

	existing, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to create user"))
		return
	}
	if existing != nil {
		writeError(w, h.logger, apperr.Invalid(msgEmailTaken))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to create user"))
		return
	}

	user, err := h.userStore.Create(req.Email, string(hash), strings.TrimSpace(req.Name))
	if errors.Is(err, store.ErrEmailTaken) {
		writeError(w, h.logger, apperr.Invalid(msgEmailTaken))
		return
	}
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to create user"))
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to create user"))
		return
	}

	h.logger.Info("user signed up", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: viewUser(user)})
}

// Login never reveals whether the email or the password was wrong.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeError(w, h.logger, apperr.Invalid(msgMissingFields))
		return
	}

	user, err := h.userStore.GetByEmail(req.Email)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Login failed"))
		return
	}
	if user == nil || !user.HasPassword() {
		writeError(w, h.logger, apperr.Unauthenticated(msgBadLogin))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, h.logger, apperr.Unauthenticated(msgBadLogin))
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Login failed"))
		return
	}

	writeJSON(w, http.StatusOK, authResponse{Token: token, User: viewUser(user)})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userStore.GetByID(auth.UserID(r.Context()))
	if err != nil {
		writeError(w, h.logger, apperr.Internal(err, "Failed to load user"))
		return
	}
	if user == nil {
		writeError(w, h.logger, apperr.NotFoundf("User not found"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": viewUser(user)})
}
