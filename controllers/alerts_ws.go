package controller

import (
	"log"
	"sync"

	"github.com/gofiber/websocket/v2"
	"nurtureflow/models"
)

// AlertHub fans sales alerts out to connected dashboard clients. Connections
// are grouped per user so alerts never cross account boundaries.
type AlertHub struct {
	mu    sync.RWMutex
	conns map[uint]map[*websocket.Conn]bool
}

func NewAlertHub() *AlertHub {
	return &AlertHub{
		conns: make(map[uint]map[*websocket.Conn]bool),
	}
}

func (h *AlertHub) register(userID uint, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]bool)
	}
	h.conns[userID][c] = true
}

func (h *AlertHub) unregister(userID uint, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[userID], c)
	if len(h.conns[userID]) == 0 {
		delete(h.conns, userID)
	}
}

// Broadcast pushes the alert to every open connection of its owner
func (h *AlertHub) Broadcast(alert *models.SalesAlert) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.conns[alert.UserID] {
		if err := c.WriteJSON(alert); err != nil {
			log.Printf("Error writing alert to websocket: %v", err)
		}
	}
}

// HandleAlertsWS streams sales alerts to the dashboard. The user ID is
// stashed in locals by the JWT middleware before the connection upgrade.
func (h *AlertHub) HandleAlertsWS(c *websocket.Conn) {
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		c.Close()
		return
	}

	h.register(userID, c)
	defer func() {
		h.unregister(userID, c)
		c.Close()
	}()

	// Reads are only needed to detect the client going away
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}
