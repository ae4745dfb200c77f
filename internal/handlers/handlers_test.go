package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/liarspoker/internal/auth"
	"github.com/jason-s-yu/liarspoker/internal/database"
	"github.com/jason-s-yu/liarspoker/internal/lobby"
	"github.com/jason-s-yu/liarspoker/internal/matchmaking"
	"github.com/jason-s-yu/liarspoker/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{byID: make(map[uuid.UUID]models.User)}
}

func (m *memoryUsers) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	for _, other := range m.byID {
		if u.Email != "" && other.Email == u.Email {
			return database.ErrEmailTaken
		}
	}
	m.byID[u.ID] = *u
	return nil
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, database.ErrUserNotFound
}

func (m *memoryUsers) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	return &u, nil
}

func (m *memoryUsers) ClaimUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[u.ID]; !ok {
		return database.ErrUserNotFound
	}
	u.IsEphemeral = false
	m.byID[u.ID] = *u
	return nil
}

func newTestServer(t *testing.T, users UserStore) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	signer, err := auth.NewSigner(time.Hour)
	require.NoError(t, err)
	hub := NewHub(logger)
	rooms := lobby.NewRegistry(lobby.Options{Notifier: hub, Logger: logger, Rand: rand.New(rand.NewSource(3))})
	return &Server{
		Rooms:  rooms,
		Queue:  matchmaking.New(rooms, matchmaking.Options{Notifier: hub, Logger: logger}),
		Hub:    hub,
		Signer: signer,
		Users:  users,
		Logger: logger,
	}
}

// call sends a JSON request through the router and decodes the JSON reply.
func call(t *testing.T, h http.Handler, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func guest(t *testing.T, h http.Handler, name string) (string, string) {
	t.Helper()
	code, body := call(t, h, http.MethodPost, "/user/guest", "", map[string]string{"username": name})
	require.Equal(t, http.StatusOK, code, body)
	user := body["user"].(map[string]interface{})
	return body["token"].(string), user["id"].(string)
}

func TestGuestAndMe(t *testing.T) {
	s := newTestServer(t, nil)
	h := s.Router()

	token, id := guest(t, h, "Alice")
	code, body := call(t, h, http.MethodGet, "/user/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])
	user := body["user"].(map[string]interface{})
	assert.Equal(t, id, user["id"])
	assert.Equal(t, "Alice", user["name"])
	assert.Equal(t, true, user["guest"])

	code, body = call(t, h, http.MethodPost, "/user/guest", "", map[string]string{"username": "A"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])
}

func TestRequestsNeedAToken(t *testing.T) {
	h := newTestServer(t, nil).Router()

	code, body := call(t, h, http.MethodPost, "/rooms", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])

	code, _ = call(t, h, http.MethodPost, "/rooms", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRoomFlow(t *testing.T) {
	h := newTestServer(t, nil).Router()
	alice, _ := guest(t, h, "Alice")
	bob, _ := guest(t, h, "Bob")

	code, body := call(t, h, http.MethodPost, "/rooms", alice, map[string]interface{}{"maxPlayers": 4})
	require.Equal(t, http.StatusOK, code, body)
	room := body["roomCode"].(string)

	code, body = call(t, h, http.MethodPost, "/rooms/ZZZZZZ/join", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Room not found", body["error"])

	code, _ = call(t, h, http.MethodPost, "/rooms/"+strings.ToLower(room)+"/join", bob, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = call(t, h, http.MethodPost, "/rooms/"+room+"/start", bob, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Only the host can start the game", body["error"])

	code, body = call(t, h, http.MethodPost, "/rooms/"+room+"/start", alice, nil)
	require.Equal(t, http.StatusOK, code, body)
	state := body["state"].(map[string]interface{})
	assert.Equal(t, "declaration", state["phase"])

	code, body = call(t, h, http.MethodPost, "/rooms/"+room+"/action", bob, map[string]interface{}{"action": "fold"})
	assert.Equal(t, http.StatusBadRequest, code, body)

	declare := map[string]interface{}{
		"action":          "declaration",
		"declarationType": "ONE_PAIR",
		"declaredCards": []map[string]string{
			{"rank": "5", "suit": "hearts"},
			{"rank": "5", "suit": "spades"},
		},
	}
	code, body = call(t, h, http.MethodPost, "/rooms/"+room+"/action", alice, declare)
	assert.Equal(t, http.StatusConflict, code, "Bob opens, not Alice")

	code, body = call(t, h, http.MethodPost, "/rooms/"+room+"/action", bob, declare)
	require.Equal(t, http.StatusOK, code, body)
	state = body["state"].(map[string]interface{})
	assert.Equal(t, "challenge", state["phase"])

	code, body = call(t, h, http.MethodGet, "/rooms/"+room+"/state", alice, nil)
	require.Equal(t, http.StatusOK, code)
	view := body["state"].(map[string]interface{})
	assert.Len(t, view["hand"], 2)

	code, body = call(t, h, http.MethodGet, "/rooms", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["rooms"], 1)
	code, body = call(t, h, http.MethodGet, "/rooms?status=waiting", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["rooms"], 0)

	code, _ = call(t, h, http.MethodPost, "/rooms/leave", bob, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = call(t, h, http.MethodPost, "/rooms/leave", bob, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateSettingsEndpoint(t *testing.T) {
	h := newTestServer(t, nil).Router()
	alice, _ := guest(t, h, "Alice")
	_, body := call(t, h, http.MethodPost, "/rooms", alice, nil)
	room := body["roomCode"].(string)

	code, body := call(t, h, http.MethodPut, "/rooms/"+room+"/settings", alice, map[string]interface{}{"maxPlayers": 6, "gameMode": "quick"})
	require.Equal(t, http.StatusOK, code, body)
	settings := body["room"].(map[string]interface{})["settings"].(map[string]interface{})
	assert.Equal(t, float64(6), settings["maxPlayers"])
	assert.Equal(t, "quick", settings["gameMode"])

	code, _ = call(t, h, http.MethodPut, "/rooms/"+room+"/settings", alice, map[string]interface{}{"gameMode": "blitz"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestMatchmakingEndpoints(t *testing.T) {
	h := newTestServer(t, nil).Router()

	code, body := call(t, h, http.MethodGet, "/matchmaking/stats", "", nil)
	require.Equal(t, http.StatusOK, code)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(0), stats["playersInQueue"])
	assert.Equal(t, false, stats["isActive"])

	var tokens []string
	for _, name := range []string{"Alice", "Bob", "Carol"} {
		tok, _ := guest(t, h, name)
		tokens = append(tokens, tok)
		code, body = call(t, h, http.MethodPost, "/matchmaking/join", tok, map[string]interface{}{"queueType": "casual"})
		require.Equal(t, http.StatusOK, code, body)
		assert.Equal(t, float64(len(tokens)), body["queuePosition"])
	}

	code, body = call(t, h, http.MethodPost, "/matchmaking/join", tokens[0], map[string]interface{}{"queueType": "bots"})
	assert.Equal(t, http.StatusBadRequest, code, body)

	dave, _ := guest(t, h, "Dave")
	code, body = call(t, h, http.MethodPost, "/matchmaking/join", dave, nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(0), body["queuePosition"])
	assert.NotEmpty(t, body["roomCode"])

	code, body = call(t, h, http.MethodPost, "/matchmaking/leave", dave, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["removed"])
}

func TestAccountsNeedADatabase(t *testing.T) {
	h := newTestServer(t, nil).Router()
	code, body := call(t, h, http.MethodPost, "/user/create", "", map[string]string{
		"email": "a@example.com", "password": "pw", "username": "Alice",
	})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, false, body["success"])
}

func TestRegisterLoginAndClaim(t *testing.T) {
	users := newMemoryUsers()
	h := newTestServer(t, users).Router()

	creds := map[string]string{"email": "Alice@Example.com", "password": "hunter2", "username": "Alice"}
	code, body := call(t, h, http.MethodPost, "/user/create", "", creds)
	require.Equal(t, http.StatusOK, code, body)
	assert.NotEmpty(t, body["token"])

	code, _ = call(t, h, http.MethodPost, "/user/create", "", creds)
	assert.Equal(t, http.StatusConflict, code)

	code, body = call(t, h, http.MethodPost, "/user/login", "", map[string]string{"email": "alice@example.com", "password": "hunter2"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, false, body["user"].(map[string]interface{})["guest"])

	code, _ = call(t, h, http.MethodPost, "/user/login", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = call(t, h, http.MethodPost, "/user/login", "", map[string]string{"email": "who@example.com", "password": "nope"})
	assert.Equal(t, http.StatusForbidden, code)

	token, id := guest(t, h, "Bobby")
	code, body = call(t, h, http.MethodPost, "/user/claim", token, map[string]string{"email": "bob@example.com", "password": "pw"})
	require.Equal(t, http.StatusOK, code, body)
	claimed := body["user"].(map[string]interface{})
	assert.Equal(t, id, claimed["id"])
	assert.Equal(t, "Bobby", claimed["name"])
	assert.Equal(t, false, claimed["guest"])

	stored, err := users.GetUserByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsEphemeral)
	ok, err := auth.VerifyPassword("pw", stored.Password)
	require.NoError(t, err)
	assert.True(t, ok)

	code, _ = call(t, h, http.MethodPost, "/user/claim", token, map[string]string{"email": "bob2@example.com", "password": "pw"})
	assert.Equal(t, http.StatusBadRequest, code, "already claimed")
}

func readUntil(t *testing.T, ctx context.Context, c *websocket.Conn, typ string) map[string]interface{} {
	t.Helper()
	for {
		_, data, err := c.Read(ctx)
		require.NoError(t, err)
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestWebSocketStreamsRoomEvents(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	alice, _ := guest(t, s.Router(), "Alice")
	bob, bobID := guest(t, s.Router(), "Bob")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + alice
	c, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	hello := readUntil(t, ctx, c, "connected")
	assert.Equal(t, "Alice", hello["user"].(map[string]interface{})["name"])

	_, body := call(t, s.Router(), http.MethodPost, "/rooms", alice, nil)
	room := body["roomCode"].(string)
	code, _ := call(t, s.Router(), http.MethodPost, "/rooms/"+room+"/join", bob, nil)
	require.Equal(t, http.StatusOK, code)

	joined := readUntil(t, ctx, c, lobby.EventPlayerJoined)
	assert.Equal(t, room, joined["roomCode"])
	player := joined["payload"].(map[string]interface{})["player"].(map[string]interface{})
	assert.Equal(t, bobID, player["id"])

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"type":"ping"}`)))
	readUntil(t, ctx, c, "pong")

	require.NoError(t, c.Write(ctx, websocket.MessageText, []byte(`{"type":"state"}`)))
	errMsg := readUntil(t, ctx, c, "error")
	assert.Equal(t, "state", errMsg["replyTo"])
	assert.Equal(t, "Game has not started", errMsg["error"])

	code, _ = call(t, s.Router(), http.MethodPost, "/rooms/"+room+"/start", alice, nil)
	require.Equal(t, http.StatusOK, code)
	readUntil(t, ctx, c, "game_started")
	hand := readUntil(t, ctx, c, "private_hand")
	assert.Len(t, hand["hand"], 2)
}

func TestWebSocketRequiresToken(t *testing.T) {
	s := newTestServer(t, nil)
	ts := httptest.NewServer(s.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
