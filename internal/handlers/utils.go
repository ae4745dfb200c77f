// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jason-s-yu/liarspoker/internal/auth"
	"github.com/jason-s-yu/liarspoker/internal/database"
	"github.com/jason-s-yu/liarspoker/internal/game"
	"github.com/jason-s-yu/liarspoker/internal/lobby"
	"github.com/jason-s-yu/liarspoker/internal/matchmaking"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/jason-s-yu/liarspoker/internal/poker"
)

var errUnavailable = errors.New("accounts are unavailable without a database")

func badRequest(msg string) error {
	return fmt.Errorf("%w: %s", game.ErrInvalidRequest, msg)
}

// statusFor maps a domain error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, lobby.ErrNotHost), errors.Is(err, game.ErrPlayerNotFound):
		return http.StatusForbidden
	case errors.Is(err, lobby.ErrRoomNotFound), errors.Is(err, lobby.ErrGameNotStarted),
		errors.Is(err, lobby.ErrNotInRoom), errors.Is(err, database.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, lobby.ErrRoomFull), errors.Is(err, lobby.ErrGameInProgress),
		errors.Is(err, lobby.ErrRoomExists), errors.Is(err, database.ErrEmailTaken),
		errors.Is(err, game.ErrNotYourTurn), errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, game.ErrCannotChallengeOwnDeclaration), errors.Is(err, game.ErrCannotPassOwnDeclaration),
		errors.Is(err, game.ErrPlayerEliminated):
		return http.StatusConflict
	case errors.Is(err, lobby.ErrNotEnoughPlayers), errors.Is(err, game.ErrInvalidRequest),
		errors.Is(err, poker.ErrInvalidHandType), errors.Is(err, poker.ErrWrongCardCount),
		errors.Is(err, poker.ErrInvalidCard), errors.Is(err, poker.ErrMustNotDecrease),
		errors.Is(err, poker.ErrMustExceedValue),
		errors.Is(err, models.ErrInvalidGameMode), errors.Is(err, models.ErrInvalidMaxPlayers),
		errors.Is(err, models.ErrInvalidUsername), errors.Is(err, models.ErrInvalidRoomCode),
		errors.Is(err, matchmaking.ErrInvalidQueueType), errors.Is(err, matchmaking.ErrInvalidPreferredPlayers):
		return http.StatusBadRequest
	case errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeOK sends {"success": true, ...fields}.
func writeOK(w http.ResponseWriter, fields map[string]interface{}) {
	body := map[string]interface{}{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

// writeError sends {"success": false, "error": "..."}. Unexpected errors are
// not echoed to the client.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]interface{}{"success": false, "error": msg})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return game.ErrInvalidRequest
	}
	return nil
}

// tokenFromRequest finds the auth token in the Authorization header, the
// auth cookie, or the token query parameter used by browser WebSockets.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(auth.CookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}
