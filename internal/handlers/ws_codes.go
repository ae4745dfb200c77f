// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// BadSubprotocolError closes a client that connected without the Subprotocol.
const BadSubprotocolError websocket.StatusCode = 3000
