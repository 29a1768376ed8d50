package ws

import (
	"context"
	"strings"
	"sync"

	"github.com/cafe-pos/api/internal/events"
	"github.com/sirupsen/logrus"
)

// Screens a client can subscribe to.
const (
	ScreenKitchen = "kitchen"
	ScreenFloor   = "floor"
	ScreenBilling = "billing"
)

// IsScreen reports whether s names a known screen.
func IsScreen(s string) bool {
	return s == ScreenKitchen || s == ScreenFloor || s == ScreenBilling
}

// ScreensFor returns the screens that receive an event type.
func ScreensFor(eventType string) []string {
	switch {
	case strings.HasPrefix(eventType, "order."):
		return []string{ScreenKitchen, ScreenFloor}
	case strings.HasPrefix(eventType, "table."):
		return []string{ScreenFloor, ScreenBilling}
	case strings.HasPrefix(eventType, "payment."):
		return []string{ScreenBilling, ScreenFloor}
	}
	return nil
}

// screenMessage is an encoded envelope bound for one screen.
type screenMessage struct {
	screen  string
	message []byte
}

// Hub keeps one room of clients per screen and fans events out to them.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan screenMessage
	done       chan struct{}

	log *logrus.Logger
	mu  sync.RWMutex
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan screenMessage, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled. It
// must be called once.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.screen] == nil {
				h.rooms[client.screen] = make(map[*Client]bool)
			}
			h.rooms[client.screen][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.drop(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[msg.screen] {
				select {
				case client.send <- msg.message:
				default:
					// slow consumer
					h.log.WithField("screen", msg.screen).Warn("dropping websocket client with full buffer")
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// join registers client. It returns false once the hub has stopped.
func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// leave unregisters client; after shutdown there is nothing to leave.
func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// drop removes a client and closes its send channel. Caller holds mu.
func (h *Hub) drop(client *Client) {
	clients, ok := h.rooms[client.screen]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.screen)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.drop(client)
		}
	}
}

// Publish routes an event to its screens. It never blocks the caller: when
// the hub is backed up the event is dropped for websocket subscribers.
func (h *Hub) Publish(_ context.Context, e events.Event) error {
	screens := ScreensFor(e.Type)
	if len(screens) == 0 {
		return nil
	}
	message, err := e.Marshal()
	if err != nil {
		return err
	}
	for _, screen := range screens {
		select {
		case h.broadcast <- screenMessage{screen: screen, message: message}:
		default:
			h.log.WithFields(logrus.Fields{"screen": screen, "event": e.Type}).Warn("websocket hub backlog full, event dropped")
		}
	}
	return nil
}

// ClientCount returns the number of connected clients on screen.
func (h *Hub) ClientCount(screen string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[screen])
}
