package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/dukerupert/checkin/internal/auth"
	"github.com/dukerupert/checkin/internal/handler"
	"github.com/dukerupert/checkin/internal/middleware"
	"github.com/dukerupert/checkin/internal/ownership"
	"github.com/dukerupert/checkin/internal/push"
	"github.com/dukerupert/checkin/internal/reminder"
	"github.com/dukerupert/checkin/internal/store"
	ws "github.com/dukerupert/checkin/internal/websocket"
)

type Config struct {
	AllowedOrigins        []string
	LegacyUnownedCheckins bool
	// Push enables the /api/push routes when it holds VAPID keys.
	Push *push.Service
}

type Server struct {
	cfg           Config
	tokens        *auth.Issuer
	hub           *ws.Hub
	authLimiter   *middleware.RateLimiter
	submitLimiter *middleware.RateLimiter
	logger        *slog.Logger

	authH     *handler.AuthHandler
	checkinH  *handler.CheckinHandler
	responseH *handler.ResponseHandler
	reminderH *handler.ReminderHandler
	pushH     *handler.PushHandler
}

func New(db *sql.DB, tokens *auth.Issuer, cfg Config, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	checkinStore := store.NewCheckinStore(db)
	responseStore := store.NewResponseStore(db)
	reminderStore := store.NewReminderStore(db)
	guard := ownership.NewGuard(store.NewOwnershipStore(db))

	hub := ws.NewHub(logger.With("component", "websocket"))
	reminderSvc := reminder.NewService(reminderStore, responseStore, checkinStore, guard, logger.With("component", "reminder"))

	srv := &Server{
		cfg:           cfg,
		tokens:        tokens,
		hub:           hub,
		authLimiter:   middleware.NewRateLimiter(10, time.Minute),
		submitLimiter: middleware.NewRateLimiter(30, time.Minute),
		logger:        logger,

		authH:     handler.NewAuthHandler(userStore, tokens, logger.With("component", "auth")),
		checkinH:  handler.NewCheckinHandler(checkinStore, responseStore, guard, cfg.LegacyUnownedCheckins, logger.With("component", "checkin")),
		responseH: handler.NewResponseHandler(responseStore, checkinStore, guard, logger.With("component", "response")),
		reminderH: handler.NewReminderHandler(reminderSvc, hub, logger.With("component", "reminder_handler")),
	}
	if cfg.Push.Configured() {
		srv.pushH = handler.NewPushHandler(store.NewPushStore(db), cfg.Push, logger.With("component", "push"))
	}
	return srv
}

// RateLimiters returns the limiters so main can prune idle entries.
func (s *Server) RateLimiters() []*middleware.RateLimiter {
	return []*middleware.RateLimiter{s.authLimiter, s.submitLimiter}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	requireAuth := middleware.RequireAuth(s.tokens)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireAuth(h)
	}

	mux.HandleFunc("GET /health", s.healthHandler)

	// Auth
	mux.Handle("POST /api/auth/signup", s.limited(s.authLimiter, s.authH.Signup))
	mux.Handle("POST /api/auth/login", s.limited(s.authLimiter, s.authH.Login))
	mux.Handle("GET /api/auth/me", protected(s.authH.Me))

	// Checkins
	mux.Handle("POST /api/checkin", protected(s.checkinH.Create))
	mux.HandleFunc("GET /api/checkin/{id}", s.checkinH.Get)
	mux.Handle("GET /api/checkins", protected(s.checkinH.List))
	mux.Handle("GET /api/checkin/{id}/responses", protected(s.checkinH.Responses))

	// Responses
	mux.Handle("POST /api/response", s.limited(s.submitLimiter, s.responseH.Submit))
	mux.Handle("GET /api/response/{id}", protected(s.responseH.Get))
	mux.Handle("GET /api/response/{id}/reminders", protected(s.reminderH.ListForResponse))

	// Reminders
	mux.Handle("POST /api/reminder", protected(s.reminderH.Create))
	mux.Handle("GET /api/reminders/all", protected(s.reminderH.ListAll))
	mux.Handle("GET /api/reminder/{id}/calendar", protected(s.reminderH.Calendar))
	mux.Handle("PUT /api/reminder/{id}", protected(s.reminderH.Update))
	mux.Handle("DELETE /api/reminder/{id}", protected(s.reminderH.Delete))

	// Push
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.Handle("POST /api/push/subscribe", protected(s.pushH.Subscribe))
		mux.Handle("GET /api/push/subscriptions", protected(s.pushH.ListSubscriptions))
		mux.Handle("DELETE /api/push/subscriptions/{id}", protected(s.pushH.Unsubscribe))
		mux.Handle("POST /api/push/test", protected(s.pushH.TestNotification))
	}

	mux.HandleFunc("GET /api/ws", ws.HandleWebSocket(s.hub, s.tokens, originHosts(s.cfg.AllowedOrigins), s.logger.With("component", "websocket")))

	corsMiddleware := cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})

	return middleware.RequestLogger(s.logger.With("component", "http"))(corsMiddleware(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) limited(rl *middleware.RateLimiter, h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(rl, middleware.RealIP)(h)
}
