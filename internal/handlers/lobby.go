// internal/handlers/lobby.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jason-s-yu/liarspoker/internal/lobby"
	"github.com/jason-s-yu/liarspoker/internal/matchmaking"
	"github.com/jason-s-yu/liarspoker/internal/models"
)

// CreateRoomHandler opens a room hosted by the caller. The body holds the
// room settings; an explicit "code" registers under that code.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	var req struct {
		Code string `json:"code"`
		models.RoomSettings
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.Queue.Dequeue(id.UserID)
	room, err := s.Rooms.RegisterSession(req.Code, id.UserID, id.Name, req.RoomSettings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]interface{}{"roomCode": room.Code, "room": room})
}

// ListRoomsHandler lists public rooms; ?status=waiting keeps only joinable ones.
func (s *Server) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	onlyWaiting := r.URL.Query().Get("status") == string(lobby.StatusWaiting)
	writeOK(w, map[string]interface{}{"rooms": s.Rooms.ListRooms(onlyWaiting)})
}

// GetRoomHandler returns one room.
func (s *Server) GetRoomHandler(w http.ResponseWriter, r *http.Request) {
	room, err := s.Rooms.GetRoom(mux.Vars(r)["code"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]interface{}{"room": room})
}

// JoinRoomHandler seats the caller in the room.
func (s *Server) JoinRoomHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	s.Queue.Dequeue(id.UserID)
	room, err := s.Rooms.JoinRoom(mux.Vars(r)["code"], id.UserID, id.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]interface{}{"roomCode": room.Code, "room": room})
}

// LeaveRoomHandler takes the caller out of whatever room they are in.
func (s *Server) LeaveRoomHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	if !s.Rooms.LeaveRoom(id.UserID) {
		writeError(w, lobby.ErrNotInRoom)
		return
	}
	writeOK(w, nil)
}

// StartGameHandler deals a game; host only.
func (s *Server) StartGameHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	state, err := s.Rooms.StartGame(mux.Vars(r)["code"], id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]interface{}{"state": state})
}

// UpdateSettingsHandler replaces the room settings; host only.
func (s *Server) UpdateSettingsHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	var settings models.RoomSettings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, err)
		return
	}
	room, err := s.Rooms.UpdateSettings(mux.Vars(r)["code"], id.UserID, settings)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]interface{}{"room": room})
}

// ActionHandler applies a declaration, challenge or pass.
//
// Request payload:
//
//	{"action": "declaration", "declarationType": "ONE_PAIR",
//	 "declaredCards": [{"rank": "5", "suit": "hearts"}, {"rank": "5", "suit": "spades"}]}
func (s *Server) ActionHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	var action models.GameAction
	if err := decodeBody(r, &action); err != nil {
		writeError(w, err)
		return
	}
	state, err := s.Rooms.PerformAction(mux.Vars(r)["code"], id.UserID, action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]interface{}{"state": state})
}

// StateHandler returns the game as the caller sees it.
func (s *Server) StateHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	view, err := s.Rooms.PlayerState(mux.Vars(r)["code"], id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]interface{}{"state": view})
}

// JoinQueueHandler puts the caller in the matchmaking queue.
func (s *Server) JoinQueueHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	var prefs matchmaking.Preferences
	if err := decodeBody(r, &prefs); err != nil {
		writeError(w, err)
		return
	}
	pos, err := s.Queue.Enqueue(id.UserID, id.Name, prefs)
	if err != nil {
		writeError(w, err)
		return
	}
	fields := map[string]interface{}{"queuePosition": pos}
	if pos == 0 {
		if room, inRoom := s.Rooms.RoomOf(id.UserID); inRoom {
			fields["roomCode"] = room.Code
		}
	}
	writeOK(w, fields)
}

// LeaveQueueHandler drops the caller from the queue.
func (s *Server) LeaveQueueHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authed(w, r)
	if !ok {
		return
	}
	writeOK(w, map[string]interface{}{"removed": s.Queue.Dequeue(id.UserID)})
}

// QueueStatsHandler reports queue length and estimated wait.
func (s *Server) QueueStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]interface{}{"stats": s.Queue.Stats()})
}
