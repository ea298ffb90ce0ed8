package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stillwater-labs/stillwater/internal/database"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageSize = 4096
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: restrict origins once the web client's domains are fixed.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientCommand is what a connected client may send: room subscription
// changes and typing indicators. Typing indicators are relayed, never stored.
type clientCommand struct {
	Action    string    `json:"action"`
	SessionID uuid.UUID `json:"session_id"`
}

type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	send   chan []byte
	rooms  map[uuid.UUID]struct{}
}

// Hub tracks websocket clients and the session rooms they watch. Events
// arrive over redis pub/sub, so hubs on different instances stay in sync.
type Hub struct {
	redis     *database.Redis
	publisher Publisher
	logger    *slog.Logger

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*client]struct{}
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(redis *database.Redis, publisher Publisher, logger *slog.Logger) *Hub {
	return &Hub{
		redis:     redis,
		publisher: publisher,
		logger:    logger,
		rooms:     make(map[uuid.UUID]map[*client]struct{}),
	}
}

// Run consumes the room pattern subscription and fans events out to local
// clients until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			sessionID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, channelPrefix))
			if err != nil {
				continue
			}
			h.broadcast(sessionID, []byte(msg.Payload))
		}
	}
}

// ServeConn upgrades the request and runs the connection until it closes.
// Authentication happens before this is called.
func (h *Hub) ServeConn(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[uuid.UUID]struct{}),
	}

	h.logger.Info("websocket connected", "user_id", userID)
	go c.writePump()
	c.readPump(r.Context())
}

func (h *Hub) broadcast(sessionID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[sessionID] {
		select {
		case c.send <- payload:
		default:
			// Slow consumer. Drop the event rather than block the hub.
		}
	}
}

func (h *Hub) subscribe(c *client, sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[*client]struct{})
		h.rooms[sessionID] = room
	}
	room[c] = struct{}{}
	c.rooms[sessionID] = struct{}{}
}

func (h *Hub) unsubscribe(c *client, sessionID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.detach(c, sessionID)
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sessionID := range c.rooms {
		h.detach(c, sessionID)
	}
}

// detach removes a client from one room. Caller holds the lock.
func (h *Hub) detach(c *client, sessionID uuid.UUID) {
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
	delete(c.rooms, sessionID)
}

func (c *client) readPump(ctx context.Context) {
	defer func() {
		c.hub.drop(c)
		close(c.send)
		c.conn.Close()
		c.hub.logger.Info("websocket disconnected", "user_id", c.userID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd clientCommand
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "user_id", c.userID, "error", err)
			}
			return
		}
		c.handle(ctx, cmd)
	}
}

func (c *client) handle(ctx context.Context, cmd clientCommand) {
	if cmd.SessionID == uuid.Nil {
		return
	}
	switch cmd.Action {
	case "subscribe":
		c.hub.subscribe(c, cmd.SessionID)
	case "unsubscribe":
		c.hub.unsubscribe(c, cmd.SessionID)
	case EventTypingStart, EventTypingEnd:
		err := c.hub.publisher.PublishEvent(ctx, Event{
			Type:      cmd.Action,
			SessionID: cmd.SessionID,
			Data:      map[string]string{"user_id": c.userID.String()},
		})
		if err != nil {
			c.hub.logger.Warn("failed to relay typing event", "user_id", c.userID, "error", err)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
