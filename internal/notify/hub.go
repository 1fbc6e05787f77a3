package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"standoff-tracker/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

// Message is one toast pushed to a connected user.
type Message struct {
	Text     string    `json:"text"`
	Severity string    `json:"severity"`
	SentAt   time.Time `json:"sent_at"`
}

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub fans notifications out to the websocket connections of each user.
// Delivery is fire and forget: a user with no open connection, or one whose
// send buffer is full, simply misses the message.
type Hub struct {
	mu       sync.RWMutex
	clients  map[uint]map[*client]bool
	upgrader websocket.Upgrader
	log      *logrus.Entry
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[uint]map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: logging.Component("notify-hub"),
	}
}

// Serve upgrades the request to a websocket and keeps it registered for the
// given user until the peer disconnects.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	c := &client{conn: conn, send: make(chan Message, sendBufferSize)}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]bool)
	}
	h.clients[userID][c] = true
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(userID, c)
}

// NotifyUser queues a message for every open connection of the user.
func (h *Hub) NotifyUser(userID uint, text, severity string) {
	msg := Message{Text: text, Severity: severity, SentAt: time.Now()}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
		default:
			h.log.WithField("user_id", userID).Debug("Dropping notification, send buffer full")
		}
	}
}

// ConnectedUsers returns how many users have at least one open connection.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) writePump(c *client) {
	for msg := range c.send {
		data, err := json.Marshal(msg)
		if err != nil {
			continue
		}
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; it exists to notice the peer closing.
func (h *Hub) readPump(userID uint, c *client) {
	defer func() {
		h.mu.Lock()
		delete(h.clients[userID], c)
		if len(h.clients[userID]) == 0 {
			delete(h.clients, userID)
		}
		h.mu.Unlock()
		close(c.send)
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
