package pubsub

import (
	"sync"
	"time"

	"github.com/johnboyce/golf-outing-manager/internal/logger"
)

// Event types published by the draft session
const (
	EventRosterLoaded    = "roster:loaded"
	EventCaptains        = "draft:captains"
	EventDraftStarted    = "draft:start"
	EventPick            = "draft:pick"
	EventDraftCompleted  = "draft:complete"
	EventDraftReset      = "draft:reset"
	EventCommissioned    = "draft:commission"
	EventDraftSaved      = "draft:saved"
	EventPlayerAdded     = "player:added"
	EventCourseAdded     = "course:added"
	EventHandicapsSynced = "handicaps:synced"
)

// Event represents a pubsub event
type Event struct {
	Type    string         `json:"type"`
	Time    time.Time      `json:"time"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, payload map[string]any) Event {
	return Event{Type: eventType, Time: time.Now().UTC(), Payload: payload}
}

// Broker is anything events can be published to and read back from. The
// local PubSub, the NATS client and the embedded NATS server all satisfy it.
type Broker interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// PubSub implements a simple in-process publish-subscribe system
type PubSub struct {
	mu          sync.RWMutex
	subscribers []chan Event
	upstream    Broker // Optional upstream publisher (e.g., NATS)
}

// New creates a new PubSub instance
func New() *PubSub {
	return &PubSub{
		subscribers: []chan Event{},
	}
}

// NewWithUpstream creates a PubSub that bridges to an upstream broker.
// Published events go to the upstream, which echoes them back to every
// instance; events from the upstream are forwarded to local subscribers.
func NewWithUpstream(upstream Broker) *PubSub {
	ps := &PubSub{
		subscribers: []chan Event{},
		upstream:    upstream,
	}

	ch := upstream.Subscribe()
	go func() {
		logger.Debug("PubSub: Subscribed to upstream, waiting for events")
		for event := range ch {
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: Upstream channel closed")
	}()

	return ps
}

// Subscribe adds a new subscriber and returns a channel for receiving events
func (ps *PubSub) Subscribe() chan Event {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan Event, 10)
	ps.subscribers = append(ps.subscribers, ch)
	logger.Debug("PubSub: New subscriber added", "totalSubscribers", len(ps.subscribers))
	return ch
}

// Unsubscribe removes a subscriber
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, sub := range ps.subscribers {
		if sub == ch {
			close(ch)
			ps.subscribers = append(ps.subscribers[:i], ps.subscribers[i+1:]...)
			break
		}
	}
}

// Publish sends an event to all subscribers, through the upstream when one
// is configured.
func (ps *PubSub) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if ps.upstream != nil {
		logger.Debug("PubSub: Forwarding to upstream", logger.FieldEventType, event.Type)
		ps.upstream.Publish(event)
		return
	}
	ps.publishLocal(event)
}

// SubscriberCount returns the number of local subscribers.
func (ps *PubSub) SubscriberCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers)
}

// publishLocal sends an event to local subscribers only
func (ps *PubSub) publishLocal(event Event) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	logger.Debug("PubSub: publishLocal", logger.FieldEventType, event.Type, "subscriberCount", len(ps.subscribers))

	for _, ch := range ps.subscribers {
		select {
		case ch <- event:
		default:
			// Skip if channel is full
		}
	}
}

// Publisher is the write side of a Broker.
type Publisher interface {
	Publish(Event)
}
