package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Define notification types
const (
	NotificationTypePairBonus = "pair_bonus"
	NotificationTypeDownline  = "new_downline"
)

// Notification represents a message sent over WebSocket
type Notification struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Client represents a connected WebSocket client, keyed by the member's
// referral code.
type Client struct {
	ReferralCode string
	Conn         *websocket.Conn
}

// Hub maintains the set of active clients and pushes commission
// notifications to them.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ReferralCode] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if current, ok := h.clients[client.ReferralCode]; ok && current == client {
				delete(h.clients, client.ReferralCode)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToMember sends a notification to a specific member if connected.
func (h *Hub) SendToMember(referralCode string, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[referralCode]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("member not connected")
	}

	return client.Conn.WriteJSON(notification)
}

// NotifyPairBonus pushes a pair-bonus credit to the credited member.
// Implements network.Notifier; a member who is not connected just
// misses the push, the ledger is the source of truth.
func (h *Hub) NotifyPairBonus(referralCode string, pairs int, amount float64) {
	notification := Notification{
		Type:    NotificationTypePairBonus,
		Message: "You earned a pair bonus",
		Data: map[string]interface{}{
			"pairs":  pairs,
			"amount": amount,
		},
	}

	if err := h.SendToMember(referralCode, notification); err != nil {
		// Not connected; nothing to do.
		return
	}
}
