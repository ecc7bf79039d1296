package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs binds an upgraded connection to the hub and blocks until the
// peer disconnects.
func ServeWs(hub *Hub, conn *websocket.Conn, userID uuid.UUID) {
	c := &client{hub: hub, conn: conn, userID: userID, send: make(chan []byte, 256)}
	hub.register <- c

	go c.writePump()
	c.readPump()
}
