// Package realtime pushes live events to dashboards over WebSocket. Every connection subscribes to
// one topic; Redis pub/sub carries events between server instances.
package realtime

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// Topics.
const (
	// TopicScanner carries every meal redemption result. Staff only.
	TopicScanner = "scanner"
	// TopicAnnouncements carries newly posted announcements to every signed-in user.
	TopicAnnouncements = "announcements"
)

// Events.
const (
	EventMealRedemption = "meal_redemption"
	EventAnnouncement   = "announcement"
	EventSubscribers    = "subscriber_count"
)

// Publisher publishes a topic event to other instances.
type Publisher interface {
	PublishEvent(topic, event string, payload []byte) error
}

// Subscriber subscribes to a topic and invokes handler for incoming events.
type Subscriber interface {
	SubscribeTopic(topic string, handler func(event string, payload []byte)) (cancel func(), err error)
}

// Hub maintains topic -> set of connections and broadcasts messages.
type Hub struct {
	topics map[string]map[string]*Client
	subs   map[string]func()
	mu     sync.RWMutex
	logger *zap.Logger
	pub    Publisher
	sub    Subscriber
}

// NewHub creates a hub. pub and sub may be nil for a single instance.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		topics: make(map[string]map[string]*Client),
		subs:   make(map[string]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to its topic. The Redis subscription for the topic is made on the first
// client and retried on later ones until it succeeds.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.topics[c.Topic] == nil {
		h.topics[c.Topic] = make(map[string]*Client)
	}
	h.subscribeLocked(c.Topic)
	h.topics[c.Topic][c.ID] = c
	count := len(h.topics[c.Topic])
	h.mu.Unlock()

	h.Broadcast(c.Topic, EventSubscribers, map[string]int{"count": count})
	h.logger.Debug("client subscribed", zap.String("client_id", c.ID), zap.String("topic", c.Topic), zap.String("user_id", c.UserID))
}

// subscribeLocked subscribes to topic on Redis unless already subscribed. Callers hold h.mu.
func (h *Hub) subscribeLocked(topic string) {
	if h.sub == nil {
		return
	}
	if _, ok := h.subs[topic]; ok {
		return
	}
	cancel, err := h.sub.SubscribeTopic(topic, func(event string, payload []byte) {
		h.Broadcast(topic, event, json.RawMessage(payload))
	})
	if err != nil {
		h.logger.Warn("redis subscribe failed", zap.String("topic", topic), zap.Error(err))
		return
	}
	h.subs[topic] = cancel
}

// Unregister removes a client and closes its send channel. The Redis subscription is cancelled
// when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.topics[c.Topic]; ok {
		if _, present := m[c.ID]; present {
			delete(m, c.ID)
			close(c.send)
		}
		if len(m) == 0 {
			delete(h.topics, c.Topic)
			if cancel, ok := h.subs[c.Topic]; ok {
				cancel()
				delete(h.subs, c.Topic)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client unsubscribed", zap.String("client_id", c.ID), zap.String("topic", c.Topic))
}

// Broadcast sends a message to every local client of a topic. Slow clients with a full buffer miss it.
func (h *Hub) Broadcast(topic, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		var err error
		if data, err = json.Marshal(payload); err != nil {
			h.logger.Warn("marshal event", zap.String("event", event), zap.Error(err))
			return
		}
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.topics[topic] {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Publish delivers an event to every instance. With Redis configured the event goes out through
// Redis and the subscription callback broadcasts it, so local clients get it exactly once. Local
// clients of a topic whose subscription failed are broadcast to directly.
func (h *Hub) Publish(topic, event string, payload interface{}) {
	if h.pub == nil {
		h.Broadcast(topic, event, payload)
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warn("marshal event", zap.String("event", event), zap.Error(err))
		return
	}
	if err := h.pub.PublishEvent(topic, event, data); err != nil {
		h.logger.Warn("redis publish failed, broadcasting locally", zap.String("topic", topic), zap.Error(err))
		h.Broadcast(topic, event, json.RawMessage(data))
		return
	}
	h.mu.RLock()
	_, subscribed := h.subs[topic]
	h.mu.RUnlock()
	if !subscribed {
		h.Broadcast(topic, event, json.RawMessage(data))
	}
}

// Subscribers returns the number of local clients on a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
