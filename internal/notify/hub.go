package notify

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"hotelier/internal/alerts"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WebSocket upgrader configuration
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboard is served from the same deployment
	},
}

// Hub tracks the connected dashboard clients and broadcasts
// notification payloads to all of them.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// HandleWebSocket upgrades a dashboard connection and starts its pumps
func (h *Hub) HandleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	h.mu.Unlock()

	go cl.writePump()
	go h.readPump(cl)
}

// Broadcast queues a payload for every connected client, dropping it
// for clients whose buffer is full.
func (h *Hub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for cl := range h.clients {
		select {
		case cl.send <- data:
		default:
			log.Println("WebSocket buffer full, dropping message")
		}
	}
}

// ClientCount returns the number of connected dashboards
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// readPump drains client messages until the connection closes. The
// dashboard stream is one way; inbound messages are discarded.
func (h *Hub) readPump(cl *client) {
	defer func() {
		// Closing send under the lock keeps Broadcast from writing to
		// a closed channel.
		h.mu.Lock()
		delete(h.clients, cl)
		close(cl.send)
		h.mu.Unlock()
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(4 * 1024)
	cl.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps queued payloads to the WebSocket connection
func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// The channel was closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Sink adapts the hub into an alerts.NotificationSink: each stock
// notification is marshaled once and broadcast to every dashboard,
// which renders toast/popup and plays the tone envelope per its
// channel flags.
type Sink struct {
	hub *Hub
}

// NewSink creates a hub-backed notification sink
func NewSink(hub *Hub) *Sink {
	return &Sink{hub: hub}
}

// Notify implements alerts.NotificationSink
func (s *Sink) Notify(n alerts.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	s.hub.Broadcast(data)
	return nil
}
