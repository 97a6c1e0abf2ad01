// Package realtime pushes live notifications to connected browsers over WebSocket.
// Subscriptions are keyed by topic: "user:<username>" for registration changes,
// "client:<clientID>" for refreshed snapshots and "catalog" for event and category updates.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/neighbourhood-events/portal/internal/metrics"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Event names.
const (
	EventRegistrationChanged = "registration_changed"
	EventEventUpdated        = "event_updated"
	EventEventDeleted        = "event_deleted"
	EventCategoryUpdated     = "category_updated"
	EventSnapshot            = "snapshot"
)

// TopicCatalog carries event and category changes visible to everyone.
const TopicCatalog = "catalog"

// UserTopic is the topic for changes to username's registrations.
func UserTopic(username string) string { return "user:" + username }

// ClientTopic is the topic for messages addressed to one browser.
func ClientTopic(clientID string) string { return "client:" + clientID }

// DeliveryHook is called after an event was delivered to a topic on this instance.
type DeliveryHook func(topic, event string, payload json.RawMessage)

// Hub maintains topic -> set of connections and broadcasts messages.
// Uses Redis pub/sub for horizontal scaling when a publisher is configured.
type Hub struct {
	// topic -> map[connID]*Client
	topics    map[string]map[string]*Client
	subs      map[string]func() // cancel Redis subscription per topic
	mu        sync.RWMutex
	logger    *zap.Logger
	redis     RedisPublisher
	redisSub  RedisSubscriber
	onDeliver DeliveryHook
}

// RedisPublisher is the interface for publishing to Redis (for cross-instance broadcast).
type RedisPublisher interface {
	PublishTopicEvent(topic, event string, payload []byte) error
}

// RedisSubscriber subscribes to topic channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeTopic(topic string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a single instance.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics:   make(map[string]map[string]*Client),
		subs:     make(map[string]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// SetDeliveryHook sets the callback run for every event delivered on this instance.
func (h *Hub) SetDeliveryHook(fn DeliveryHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onDeliver = fn
}

// Register adds a client to each of its topics. Starts a Redis subscription for a topic on
// its first client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range c.Topics {
		if h.topics[topic] == nil {
			h.topics[topic] = make(map[string]*Client)
			if h.redisSub != nil {
				topic := topic
				cancel, err := h.redisSub.SubscribeTopic(topic, func(event string, payload []byte) {
					h.Broadcast(topic, event, json.RawMessage(payload))
				})
				if err != nil {
					h.logger.Warn("redis subscribe failed", zap.String("topic", topic), zap.Error(err))
				} else {
					h.subs[topic] = cancel
				}
			}
		}
		h.topics[topic][c.ID] = c
	}
	h.logger.Debug("client subscribed", zap.String("conn_id", c.ID), zap.Strings("topics", c.Topics))
}

// Unregister removes a client from its topics. Cancels a topic's Redis subscription when its
// last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, topic := range c.Topics {
		m, ok := h.topics[topic]
		if !ok {
			continue
		}
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.topics, topic)
			if cancel, ok := h.subs[topic]; ok {
				cancel()
				delete(h.subs, topic)
			}
		}
	}
	h.logger.Debug("client unsubscribed", zap.String("conn_id", c.ID))
}

func encode(payload interface{}) (json.RawMessage, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		return json.Marshal(payload)
	}
}

// Broadcast sends a message to all clients of a topic on this instance, then runs the
// delivery hook. Slow clients whose buffer is full miss the message.
func (h *Hub) Broadcast(topic, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode broadcast payload", zap.String("event", event), zap.Error(err))
		return
	}
	msg := WSMessage{Event: event, Topic: topic, Data: data}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.topics[topic]))
	for _, c := range h.topics[topic] {
		clients = append(clients, c)
	}
	onDeliver := h.onDeliver
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
	if onDeliver != nil {
		onDeliver(topic, event, data)
	}
}

// Publish delivers an event to every instance. With Redis configured the message goes
// through Redis only, so the subscriber callback broadcasts it once everywhere (this
// instance included); otherwise it is broadcast locally.
func (h *Hub) Publish(topic, event string, payload interface{}) {
	data, err := encode(payload)
	if err != nil {
		h.logger.Warn("encode publish payload", zap.String("event", event), zap.Error(err))
		return
	}
	metrics.Notifications.WithLabelValues(event).Inc()
	if h.redis != nil {
		err := h.redis.PublishTopicEvent(topic, event, data)
		if err == nil {
			return
		}
		h.logger.Warn("redis publish failed, delivering locally", zap.String("topic", topic), zap.Error(err))
	}
	h.Broadcast(topic, event, data)
}
