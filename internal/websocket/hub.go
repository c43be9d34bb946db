package websocket

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"electivas/internal/middleware"
	"electivas/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
	queueSize      = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are enforced by the CORS layer in front of the API
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the envelope pushed to subscribers.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Events implementing these are only delivered to the matching subscribers.
type (
	electiveScoped interface{ Elective() string }
	owned          interface{ Owner() string }
)

type outbound struct {
	payload    []byte
	electiveID string
	ownerID    string
}

// Client is one live subscriber. ElectiveID, when set, narrows elective-scoped events to that elective.
type Client struct {
	Hub        *Hub
	Conn       *websocket.Conn
	Send       chan []byte
	UserID     string
	Role       model.Role
	ElectiveID string
}

// wants reports whether m may be delivered to c. Request events reach their student and department heads only.
func (c *Client) wants(m outbound) bool {
	if c.ElectiveID != "" && m.electiveID != "" && m.electiveID != c.ElectiveID {
		return false
	}
	if m.ownerID != "" && c.Role != model.RoleJefe && m.ownerID != c.UserID {
		return false
	}
	return true
}

// Hub fans seat, request and period changes out to the subscribers allowed to see them
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	// stopped is closed once Run has returned; nothing receives on register or unregister after that
	stopped chan struct{}
	mu      sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan outbound, queueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
		clients:    make(map[*Client]bool),
	}
}

// Run starts the dispatch loop; it returns when done is closed.
func (h *Hub) Run(done <-chan struct{}) {
	for {
		select {
		case <-done:
			h.mu.Lock()
			for client := range h.clients {
				h.drop(client)
			}
			h.mu.Unlock()
			close(h.stopped)
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("WebSocket subscriber connected (user=%s role=%s elective=%q)", client.UserID, client.Role, client.ElectiveID)
		case client := <-h.unregister:
			h.mu.Lock()
			if h.clients[client] {
				h.drop(client)
				log.Printf("WebSocket subscriber disconnected (user=%s)", client.UserID)
			}
			h.mu.Unlock()
		case m := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.wants(m) {
					continue
				}
				select {
				case client.Send <- m.payload:
				default:
					// slow consumer
					h.drop(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// drop must be called with h.mu held.
func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.Send)
}

// Publish queues an event for delivery. It never blocks the caller:
// when the queue is full the event is dropped and logged.
func (h *Hub) Publish(event string, data interface{}) {
	payload, err := json.Marshal(Message{Type: event, Data: data})
	if err != nil {
		log.Printf("Failed to encode %s event: %v", event, err)
		return
	}

	m := outbound{payload: payload}
	if s, ok := data.(electiveScoped); ok {
		m.electiveID = s.Elective()
	}
	if o, ok := data.(owned); ok {
		m.ownerID = o.Owner()
	}

	select {
	case h.broadcast <- m:
	default:
		log.Printf("WebSocket broadcast queue full, dropping %s event", event)
	}
}

// ClientCount reports the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one frame per event keeps each payload a single JSON document
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.stopped:
		}
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Subscribers never send; reads only service control frames and detect the close.
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
	}
}

// ServeWs authenticates the token query parameter and upgrades the connection.
// An optional elective_id query parameter subscribes to a single elective.
func ServeWs(hub *Hub, c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		log.Println("WebSocket connection rejected: missing token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	principal, err := middleware.ParseToken(tokenString)
	if err != nil {
		log.Println("WebSocket connection rejected:", err)
		status := http.StatusUnauthorized
		if errors.Is(err, middleware.ErrUnknownRole) {
			status = http.StatusForbidden
		}
		c.AbortWithStatus(status)
		return
	}

	electiveID := c.Query("elective_id")
	if electiveID != "" {
		if _, err := uuid.Parse(electiveID); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Println("WebSocket upgrade failed:", err)
		return
	}
	client := &Client{
		Hub:        hub,
		Conn:       conn,
		Send:       make(chan []byte, sendBuffer),
		UserID:     principal.UserID,
		Role:       principal.Role,
		ElectiveID: electiveID,
	}
	select {
	case hub.register <- client:
	case <-hub.stopped:
		log.Println("WebSocket connection closed: hub stopped")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
