// internal/handlers/api_server.go
package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jason-s-yu/liarspoker/internal/auth"
	"github.com/jason-s-yu/liarspoker/internal/lobby"
	"github.com/jason-s-yu/liarspoker/internal/matchmaking"
	"github.com/jason-s-yu/liarspoker/internal/middleware"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/sirupsen/logrus"
)

// UserStore is the account storage the user endpoints need.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ClaimUser(ctx context.Context, u *models.User) error
}

// Server bundles everything the HTTP and WebSocket handlers reach into.
type Server struct {
	Rooms  *lobby.Registry
	Queue  *matchmaking.Queue
	Hub    *Hub
	Signer *auth.Signer

	// Users is nil when no database is configured; only guest identities work then.
	Users UserStore

	Logger         *logrus.Logger
	AllowedOrigins []string
}

// Router wires every route behind the request logger.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.LogMiddleware(s.Logger))

	r.HandleFunc("/user/guest", s.GuestHandler).Methods(http.MethodPost)
	r.HandleFunc("/user/create", s.CreateUserHandler).Methods(http.MethodPost)
	r.HandleFunc("/user/login", s.LoginHandler).Methods(http.MethodPost)
	r.HandleFunc("/user/claim", s.ClaimGuestHandler).Methods(http.MethodPost)
	r.HandleFunc("/user/me", s.MeHandler).Methods(http.MethodGet)

	r.HandleFunc("/rooms", s.ListRoomsHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms", s.CreateRoomHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/leave", s.LeaveRoomHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}", s.GetRoomHandler).Methods(http.MethodGet)
	r.HandleFunc("/rooms/{code}/join", s.JoinRoomHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}/start", s.StartGameHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}/settings", s.UpdateSettingsHandler).Methods(http.MethodPut)
	r.HandleFunc("/rooms/{code}/action", s.ActionHandler).Methods(http.MethodPost)
	r.HandleFunc("/rooms/{code}/state", s.StateHandler).Methods(http.MethodGet)

	r.HandleFunc("/matchmaking/join", s.JoinQueueHandler).Methods(http.MethodPost)
	r.HandleFunc("/matchmaking/leave", s.LeaveQueueHandler).Methods(http.MethodPost)
	r.HandleFunc("/matchmaking/stats", s.QueueStatsHandler).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.WSHandler)
	return r
}

// identify verifies the caller's token.
func (s *Server) identify(r *http.Request) (auth.Identity, error) {
	token := tokenFromRequest(r)
	if token == "" {
		return auth.Identity{}, auth.ErrInvalidToken
	}
	return s.Signer.Verify(token)
}

// authed wraps a handler that needs a verified identity.
func (s *Server) authed(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, err := s.identify(r)
	if err != nil {
		writeError(w, err)
		return auth.Identity{}, false
	}
	return id, true
}

func (s *Server) originPatterns() []string {
	if len(s.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.AllowedOrigins
}
