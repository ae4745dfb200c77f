// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/liarspoker/internal/auth"
	"github.com/jason-s-yu/liarspoker/internal/game"
	"github.com/jason-s-yu/liarspoker/internal/lobby"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the WebSocket subprotocol clients must request.
const Subprotocol = "liarspoker"

const writeTimeout = 5 * time.Second

// ClientMessage is an inbound WebSocket frame.
type ClientMessage struct {
	Type string `json:"type"`

	// RoomCode defaults to the room the player currently sits in.
	RoomCode string `json:"roomCode,omitempty"`

	// Action is read for "action" messages.
	Action models.GameAction `json:"action"`
}

// WSHandler upgrades an authenticated request to the player's notification
// stream. The socket also accepts game actions, so a client can play without
// the REST surface.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	id, err := s.identify(r)
	if err != nil {
		writeError(w, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{Subprotocol},
		OriginPatterns: s.originPatterns(),
	})
	if err != nil {
		s.Logger.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != Subprotocol {
		c.Close(BadSubprotocolError, fmt.Sprintf("client must speak the %s subprotocol", Subprotocol))
		return
	}

	log := s.Logger.WithFields(logrus.Fields{"player": id.UserID, "remote": r.RemoteAddr})
	log.Info("WebSocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cl := &client{playerID: id.UserID, send: make(chan []byte, sendBuffer)}
	s.Hub.register(cl)
	go writePump(ctx, c, cl, log)

	s.reply(cl, s.welcome(id))
	err = s.readPump(ctx, c, cl, id, log)

	if s.Hub.unregister(cl) && s.Queue.Dequeue(id.UserID) {
		log.Debug("dropped disconnected player from queue")
	}
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		log.Info("WebSocket closed")
		c.Close(websocket.StatusNormalClosure, "")
		return
	}
	log.WithError(err).Info("WebSocket disconnected")
}

// welcome describes where the player stands on connect.
func (s *Server) welcome(id auth.Identity) map[string]interface{} {
	msg := map[string]interface{}{"type": "connected", "user": id}
	if room, ok := s.Rooms.RoomOf(id.UserID); ok {
		msg["room"] = room
		if view, err := s.Rooms.PlayerState(room.Code, id.UserID); err == nil {
			msg["state"] = view
		}
	}
	return msg
}

// readPump handles inbound frames until the socket or ctx closes.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn, cl *client, id auth.Identity, log logrus.FieldLogger) error {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			return err
		}
		if msgType != websocket.MessageText {
			log.Warnf("ignoring non-text message type %d", msgType)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.replyError(cl, "", game.ErrInvalidRequest)
			continue
		}
		log.Debugf("received %q", msg.Type)

		switch msg.Type {
		case "ping":
			s.reply(cl, map[string]string{"type": "pong"})
		case "action":
			code, err := s.roomFor(msg.RoomCode, id)
			if err != nil {
				s.replyError(cl, msg.Type, err)
				continue
			}
			state, err := s.Rooms.PerformAction(code, id.UserID, msg.Action)
			if err != nil {
				s.replyError(cl, msg.Type, err)
				continue
			}
			s.reply(cl, map[string]interface{}{"type": "action_result", "success": true, "state": state})
		case "state":
			code, err := s.roomFor(msg.RoomCode, id)
			if err != nil {
				s.replyError(cl, msg.Type, err)
				continue
			}
			view, err := s.Rooms.PlayerState(code, id.UserID)
			if err != nil {
				s.replyError(cl, msg.Type, err)
				continue
			}
			s.reply(cl, map[string]interface{}{"type": "state", "success": true, "state": view})
		default:
			s.replyError(cl, msg.Type, fmt.Errorf("%w: unknown message type %q", game.ErrInvalidRequest, msg.Type))
		}
	}
}

func (s *Server) roomFor(code string, id auth.Identity) (string, error) {
	if code != "" {
		return code, nil
	}
	room, ok := s.Rooms.RoomOf(id.UserID)
	if !ok {
		return "", lobby.ErrNotInRoom
	}
	return room.Code, nil
}

func (s *Server) reply(cl *client, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.Logger.WithError(err).Error("failed to marshal reply")
		return
	}
	s.Hub.push(cl, data)
}

func (s *Server) replyError(cl *client, replyTo string, err error) {
	msg := err.Error()
	if statusFor(err) == http.StatusInternalServerError && !errors.Is(err, context.Canceled) {
		s.Logger.WithError(err).Error("websocket request failed")
		msg = "internal server error"
	}
	s.reply(cl, map[string]interface{}{
		"type":    "error",
		"replyTo": replyTo,
		"success": false,
		"error":   msg,
	})
}

// writePump is the only writer on the socket.
func writePump(ctx context.Context, c *websocket.Conn, cl *client, log logrus.FieldLogger) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-cl.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.WithError(err).Warn("failed to write to WebSocket")
				return
			}
		}
	}
}
