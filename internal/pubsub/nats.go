package pubsub

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/johnboyce/golf-outing-manager/internal/logger"
)

const (
	// DefaultSubject carries every outing event
	DefaultSubject = "outing.events"
	// DefaultStreamName is the JetStream stream backing DefaultSubject
	DefaultStreamName = "OUTING_EVENTS"
)

// NATSOptions configures a connection to an external NATS server
type NATSOptions struct {
	URL        string
	Subject    string
	StreamName string
	// MaxAge bounds event retention; zero keeps events indefinitely.
	MaxAge time.Duration
}

// NATSPubSub implements pub/sub using NATS JetStream. Every instance
// connected to the same stream sees every event, including its own.
type NATSPubSub struct {
	nc          *nats.Conn
	js          nats.JetStreamContext
	sub         *nats.Subscription
	subject     string
	subscribers []chan Event
	mu          sync.RWMutex
}

// NewNATSPubSub connects to NATS and ensures the stream exists
func NewNATSPubSub(opts NATSOptions) (*NATSPubSub, error) {
	nc, err := nats.Connect(opts.URL, nats.Name("golf-outing-manager"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p, err := newJetStreamPubSub(nc, opts.Subject, opts.StreamName, nats.FileStorage, opts.MaxAge)
	if err != nil {
		nc.Close()
		return nil, err
	}
	logger.Info("Connected to NATS", "url", opts.URL, "subject", p.subject)
	return p, nil
}

func newJetStreamPubSub(nc *nats.Conn, subject, stream string, storage nats.StorageType, maxAge time.Duration) (*NATSPubSub, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if stream == "" {
		stream = DefaultStreamName
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if _, err := js.StreamInfo(stream); err != nil {
		if !errors.Is(err, nats.ErrStreamNotFound) {
			return nil, fmt.Errorf("failed to look up stream %s: %w", stream, err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     stream,
			Subjects: []string{subject},
			Storage:  storage,
			MaxAge:   maxAge,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
		logger.Info("JetStream stream created", "stream", stream, "subject", subject)
	}

	p := &NATSPubSub{
		nc:          nc,
		js:          js,
		subject:     subject,
		subscribers: make([]chan Event, 0),
	}

	p.sub, err = js.Subscribe(subject, p.deliver, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	return p, nil
}

// deliver fans a JetStream message out to local subscribers
func (p *NATSPubSub) deliver(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err)
		_ = msg.Term()
		return
	}

	// Sends are non-blocking, so holding the read lock keeps Close from
	// closing a channel mid-send.
	p.mu.RLock()
	for _, sub := range p.subscribers {
		select {
		case sub <- event:
		default:
			logger.Warn("NATS: Skipping slow subscriber", logger.FieldEventType, event.Type)
		}
	}
	p.mu.RUnlock()
	_ = msg.Ack()
}

// Publish publishes an event to NATS JetStream
func (p *NATSPubSub) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, logger.FieldEventType, event.Type)
		return
	}

	if _, err := p.js.Publish(p.subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", p.subject, logger.FieldEventType, event.Type)
		return
	}
	logger.Debug("Published event to NATS", logger.FieldEventType, event.Type, "subject", p.subject)
}

// Subscribe creates a subscription channel for events
func (p *NATSPubSub) Subscribe() chan Event {
	ch := make(chan Event, 100)

	p.mu.Lock()
	p.subscribers = append(p.subscribers, ch)
	p.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscription channel
func (p *NATSPubSub) Unsubscribe(ch chan Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, sub := range p.subscribers {
		if sub == ch {
			p.subscribers = append(p.subscribers[:i], p.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// SubscriberCount returns the number of active local subscribers
func (p *NATSPubSub) SubscriberCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.subscribers)
}

// Connected reports whether the NATS connection is usable.
func (p *NATSPubSub) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

// Close drains the subscription and closes the connection
func (p *NATSPubSub) Close() {
	if p.sub != nil {
		_ = p.sub.Unsubscribe()
	}

	p.mu.Lock()
	for _, sub := range p.subscribers {
		close(sub)
	}
	p.subscribers = nil
	p.mu.Unlock()

	if p.nc != nil {
		p.nc.Close()
	}
}
