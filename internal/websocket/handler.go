package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs attaches a display connection to the hub and blocks until it closes.
func ServeWs(hub *Hub, c *websocket.Conn) {
	client := &Client{Hub: hub, Conn: c, ID: uuid.New(), Send: make(chan []byte, sendBuffer)}
	if !hub.add(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
