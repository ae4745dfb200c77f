package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/auth"
	"github.com/jason-s-yu/liarspoker/internal/database"
	"github.com/jason-s-yu/liarspoker/internal/models"
)

var errBadCredentials = errors.New("authentication failed")

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// issue signs a token for id, sets the auth cookie and writes the response.
func (s *Server) issue(w http.ResponseWriter, id auth.Identity) {
	token, err := s.Signer.Issue(id)
	if err != nil {
		s.Logger.WithError(err).Error("failed to sign token")
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	writeOK(w, map[string]interface{}{"token": token, "user": id})
}

// GuestHandler hands out a guest identity. With a database the guest is also
// stored so it can be claimed later.
//
// Request payload:
//
//	{"username": "Alice"}
func (s *Server) GuestHandler(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	name, err := models.NormalizeUsername(req.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	id := auth.Identity{UserID: uuid.New(), Name: name, Guest: true}
	if s.Users != nil {
		u := models.User{ID: id.UserID, Username: name, IsEphemeral: true}
		if err := s.Users.CreateUser(r.Context(), &u); err != nil {
			s.Logger.WithError(err).Error("failed to create guest user")
			writeError(w, err)
			return
		}
	}
	s.issue(w, id)
}

// CreateUserHandler registers a full account.
func (s *Server) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	if s.Users == nil {
		writeError(w, errUnavailable)
		return
	}
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.newAccount(req)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.Users.CreateUser(r.Context(), u); err != nil {
		writeError(w, err)
		return
	}
	s.issue(w, auth.Identity{UserID: u.ID, Name: u.Username})
}

// newAccount validates credentials and hashes the password.
func (s *Server) newAccount(req credentialsRequest) (*models.User, error) {
	name, err := models.NormalizeUsername(req.Username)
	if err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") || req.Password == "" {
		return nil, badRequest("email and password are required")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	return &models.User{Email: email, Password: hash, Username: name}, nil
}

// LoginHandler checks email and password and issues a token.
//
// Request payload:
//
//	{"email": "someone@example.com", "password": "password"}
//
// The token is returned in the body and also set as the auth cookie.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if s.Users == nil {
		writeError(w, errUnavailable)
		return
	}
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.Users.GetUserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			writeJSON(w, http.StatusForbidden, map[string]interface{}{"success": false, "error": errBadCredentials.Error()})
			return
		}
		writeError(w, err)
		return
	}
	ok, err := auth.VerifyPassword(req.Password, u.Password)
	if err != nil || !ok {
		s.Logger.WithField("user", u.ID).Debug("login rejected")
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"success": false, "error": errBadCredentials.Error()})
		return
	}
	s.issue(w, auth.Identity{UserID: u.ID, Name: u.Username})
}

// ClaimGuestHandler upgrades the caller's stored guest account to a full one.
func (s *Server) ClaimGuestHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	if s.Users == nil {
		writeError(w, errUnavailable)
		return
	}
	u, err := s.Users.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !u.IsEphemeral {
		writeError(w, badRequest("user is not a guest"))
		return
	}

	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Username == "" {
		req.Username = u.Username
	}
	claimed, err := s.newAccount(req)
	if err != nil {
		writeError(w, err)
		return
	}
	claimed.ID = u.ID
	if err := s.Users.ClaimUser(r.Context(), claimed); err != nil {
		writeError(w, err)
		return
	}
	s.issue(w, auth.Identity{UserID: claimed.ID, Name: claimed.Username})
}

// MeHandler echoes the caller's identity and current room.
func (s *Server) MeHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	fields := map[string]interface{}{"user": id}
	if room, inRoom := s.Rooms.RoomOf(id.UserID); inRoom {
		fields["room"] = room
	}
	writeOK(w, fields)
}
