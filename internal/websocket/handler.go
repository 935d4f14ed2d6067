package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/checkin/internal/auth"
)

// TokenVerifier maps a bearer token to the principal it names.
type TokenVerifier interface {
	Verify(token string) (auth.AuthContext, error)
}

// HandleWebSocket returns an HTTP handler that authenticates the token in
// the "token" query parameter, upgrades the connection and runs it as a Hub
// client for that user. Browsers cannot set headers on a websocket request,
// hence the query parameter.
func HandleWebSocket(hub *Hub, tokens TokenVerifier, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		ac, err := tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusForbidden, "Invalid or expired token")
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("accept", "error", err)
			return
		}
		defer conn.CloseNow()

		client := NewClient(hub, conn, ac.UserID)
		client.Run(r.Context())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
