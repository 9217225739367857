package handlers

import (
	"crypto/subtle"
	"log"
	"net/http"

	"quizhall/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Displays connect from the venue network
	},
}

// HallHandler upgrades hall display connections and hands them to the hub.
type HallHandler struct {
	hub          *services.Hub
	displayToken string
}

func NewHallHandler(hub *services.Hub, displayToken string) *HallHandler {
	return &HallHandler{
		hub:          hub,
		displayToken: displayToken,
	}
}

// Serve handles GET /ws/hall?token=... The token is a static shared secret
// for the venue displays, checked before the upgrade.
func (h *HallHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.displayToken)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid display token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("hall display upgrade failed: %v", err)
		return
	}

	h.hub.SendCurrent(c.Request.Context(), conn)
	h.hub.Register(conn)
	log.Printf("hall display connected, %d online", h.hub.ConnectionCount())

	// Displays never send anything meaningful; the read loop only detects
	// disconnects and consumes pings.
	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				log.Printf("hall display disconnected: %v", err)
				return
			}
		}
	}()
}
