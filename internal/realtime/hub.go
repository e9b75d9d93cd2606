// Package realtime fans change events out to websocket subscribers. It stands
// in for the database change feed the admin console and ticket views listen to.
package realtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TopicAdmin = "admin"

	EventImageGenerated    = "image.generated"
	EventImageDeleted      = "image.deleted"
	EventSubscriptionSaved = "subscription.updated"
	EventTicketCreated     = "ticket.created"
	EventTicketUpdated     = "ticket.updated"
	EventMessageCreated    = "message.created"
	EventUserCreated       = "user.created"
	EventUserUpdated       = "user.updated"
	EventUserDeleted       = "user.deleted"
)

func TicketTopic(ticketID uuid.UUID) string {
	return fmt.Sprintf("ticket:%s", ticketID.String())
}

type Event struct {
	Topic   string      `json:"topic"`
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	SentAt  time.Time   `json:"sent_at"`
}

// Publisher is what services depend on.
type Publisher interface {
	Publish(topic, event string, payload interface{})
}

type subscriber struct {
	ch    chan Event
	topic string
}

type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[string]map[*subscriber]struct{}), buffer: buffer}
}

// Subscribe registers a listener on topic. The returned cancel func must be
// called to release it; the channel is closed afterwards.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, h.buffer), topic: topic}

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*subscriber]struct{})
	}
	h.subs[topic][s] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.remove(s) })
	}
	return s.ch, cancel
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.topic]; ok {
		if _, ok := set[s]; ok {
			delete(set, s)
			close(s.ch)
		}
		if len(set) == 0 {
			delete(h.subs, s.topic)
		}
	}
}

// Publish never blocks. A subscriber whose buffer is full misses the event.
func (h *Hub) Publish(topic, event string, payload interface{}) {
	e := Event{Topic: topic, Type: event, Payload: payload, SentAt: time.Now().UTC()}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[topic] {
		select {
		case s.ch <- e:
		default:
		}
	}
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
