package realtime

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/models"
)

const (
	writeWait      = 10 * time.Second
	maxInboundSize = 4096
	sendBuffer     = 256
)

// Origins are checked by the CORS middleware on the HTTP routes.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// WSMessage is the WebSocket message envelope.
type WSMessage struct {
	Event string          `json:"event"`
	Topic string          `json:"topic,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Identity is the signed-in browser behind a connection.
type Identity struct {
	ClientID string
	Username string
	Role     models.Role
}

// Lifecycle is told when a browser's first connection opens and its last one closes.
type Lifecycle interface {
	Acquire(clientID, username string)
	Release(clientID string)
	Refresh(clientID string)
}

// Client represents a single WebSocket connection.
type Client struct {
	ID       string
	Identity Identity
	Topics   []string
	hub      *Hub
	conn     *websocket.Conn
	send     chan WSMessage
	done     chan struct{}
	logger   *zap.Logger
}

// NewClient creates an unconnected client subscribed to the identity's topics.
func NewClient(hub *Hub, id Identity, logger *zap.Logger) *Client {
	return &Client{
		ID:       uuid.New().String(),
		Identity: id,
		Topics:   []string{UserTopic(id.Username), ClientTopic(id.ClientID), TopicCatalog},
		hub:      hub,
		send:     make(chan WSMessage, sendBuffer),
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// ServeWs handles the WebSocket upgrade and runs the client loop. identify resolves the
// session established by the middleware; lifecycle may be nil.
func ServeWs(hub *Hub, logger *zap.Logger, identify func(c *gin.Context) (Identity, bool), lifecycle Lifecycle) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		id, ok := identify(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "sign in required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(hub, id, logger)
		client.conn = conn
		hub.Register(client)
		if lifecycle != nil {
			lifecycle.Acquire(id.ClientID, id.Username)
		}
		go client.writePump()
		client.readPump(lifecycle)
	}
}

// readPump only listens for "refresh" requests; anything else from the browser is dropped.
func (c *Client) readPump(lifecycle Lifecycle) {
	defer func() {
		c.hub.Unregister(c)
		close(c.done)
		if lifecycle != nil {
			lifecycle.Release(c.Identity.ClientID)
		}
		_ = c.conn.Close()
	}()

	extend := func() { _ = c.conn.SetReadDeadline(time.Now().Add(PongWait * time.Second)) }
	c.conn.SetReadLimit(maxInboundSize)
	extend()
	c.conn.SetPongHandler(func(string) error { extend(); return nil })

	for {
		var msg WSMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket closed", zap.String("conn_id", c.ID), zap.Error(err))
			}
			return
		}
		extend()
		if msg.Event == "refresh" && lifecycle != nil {
			lifecycle.Refresh(c.Identity.ClientID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PingInterval * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		var err error
		select {
		case <-c.done:
			return
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			err = c.conn.WriteJSON(msg)
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err = c.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}
