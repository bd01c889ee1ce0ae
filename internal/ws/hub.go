package ws

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// dashboardRoom receives every event; match rooms only their own.
	dashboardRoom = "dashboard"
)

func matchRoom(matchID uuid.UUID) string {
	return "match_" + matchID.String()
}

// Hub tracks connected clients per room and fans broadcast frames out to
// them. It implements event.Broadcaster for the engine services.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run owns room membership. Start it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) broadcast(room string, payload any) {
	frame, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal broadcast frame", "room", room, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		select {
		case client.send <- frame:
		default:
			// Slow client; drop the frame rather than block the engine.
		}
	}
}

func (h *Hub) HealthChanged(matchID, playerID uuid.UUID, newHealth int) {
	h.broadcast(dashboardRoom, map[string]any{
		"type":       "health_update",
		"match_id":   matchID,
		"player_id":  playerID,
		"new_health": newHealth,
	})
	h.broadcast(matchRoom(matchID), map[string]any{
		"type":        "health_update",
		"your_health": newHealth,
	})
}

func (h *Hub) MatchCompleted(matchID uuid.UUID, winnerID *uuid.UUID) {
	h.broadcast(dashboardRoom, map[string]any{
		"type":      "match_complete",
		"match_id":  matchID,
		"winner_id": winnerID,
	})
	h.broadcast(matchRoom(matchID), map[string]any{
		"type":      "match_end",
		"winner_id": winnerID,
	})
}

func (h *Hub) RoundCompleted(roundNumber int) {
	h.broadcast(dashboardRoom, map[string]any{
		"type":         "round_complete",
		"round_number": roundNumber,
	})
}
