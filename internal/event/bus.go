// Package event implements the pub/sub bus riding the tunnels: per-event-type
// subscriber sets with bounded buffers, publisher-side enrichment and
// non-blocking fan-out. A slow subscriber is disconnected rather than ever
// back-pressuring a publisher.
package event

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/opizontas/grpc-gateway/internal/logging"
	"github.com/opizontas/grpc-gateway/internal/proto"
)

var (
	// ErrNoSubscribers distinguishes "published to nobody" from success.
	ErrNoSubscribers = errors.New("no subscribers for event type")

	// ErrTooManySubscribers means the per-type subscriber cap is reached.
	ErrTooManySubscribers = errors.New("too many subscribers for event type")

	// ErrSlowSubscriber is reported on a subscription that was disconnected
	// because its buffer overflowed.
	ErrSlowSubscriber = errors.New("subscriber disconnected: buffer overflow")
)

// Config tunes the bus.
type Config struct {
	MaxSubscribersPerType int
	ChannelCapacity       int
	EnableMetrics         bool
}

// DefaultConfig mirrors the gateway's config defaults.
func DefaultConfig() Config {
	return Config{
		MaxSubscribersPerType: 1000,
		ChannelCapacity:       1024,
		EnableMetrics:         true,
	}
}

type subscriber struct {
	id           string
	eventType    string
	ch           chan *proto.EventMessage
	subscribedAt time.Time
	received     int64 // delivered events; guarded by Bus.mu
	err          error // set under Bus.mu before ch is closed
}

// Subscription is one subscriber's handle on one event type.
type Subscription struct {
	bus *Bus
	sub *subscriber
}

// C returns the delivery channel. It is closed on unsubscribe and on
// slow-subscriber disconnection; check Err afterwards to tell the two
// apart.
func (s *Subscription) C() <-chan *proto.EventMessage {
	return s.sub.ch
}

// Err reports why the channel was closed; nil means a plain unsubscribe.
func (s *Subscription) Err() error {
	s.bus.mu.RLock()
	defer s.bus.mu.RUnlock()
	return s.sub.err
}

// Bus is the in-process event bus. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	topics map[string]map[string]*subscriber // event type -> subscriber id -> sub

	cfg    Config
	logger *logging.Logger

	published    atomic.Int64
	delivered    atomic.Int64
	disconnected atomic.Int64
}

func NewBus(cfg Config, logger *logging.Logger) *Bus {
	if cfg.MaxSubscribersPerType <= 0 {
		cfg.MaxSubscribersPerType = DefaultConfig().MaxSubscribersPerType
	}
	if cfg.ChannelCapacity <= 0 {
		cfg.ChannelCapacity = DefaultConfig().ChannelCapacity
	}
	return &Bus{
		topics: make(map[string]map[string]*subscriber),
		cfg:    cfg,
		logger: logger,
	}
}

// Publish enriches the event (missing id, zero timestamp) and fans it out
// to every subscriber of its type. Returns the number of subscribers at
// publish time; zero subscribers is ErrNoSubscribers. A subscriber whose
// buffer is full is disconnected, never waited on.
func (b *Bus) Publish(ev *proto.EventMessage) (int, error) {
	if ev.GetEventId() == "" {
		ev.EventId = uuid.NewString()
	}
	if ev.GetTimestamp() == 0 {
		ev.Timestamp = time.Now().Unix()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[ev.GetEventType()]
	if len(subs) == 0 {
		return 0, ErrNoSubscribers
	}
	count := len(subs)

	for id, sub := range subs {
		select {
		case sub.ch <- ev:
			sub.received++
			if b.cfg.EnableMetrics {
				b.delivered.Add(1)
			}
		default:
			sub.err = ErrSlowSubscriber
			close(sub.ch)
			delete(subs, id)
			b.disconnected.Add(1)
			b.logger.Warn("Disconnected slow subscriber %s on %s", id, ev.GetEventType())
		}
	}
	if len(subs) == 0 {
		delete(b.topics, ev.GetEventType())
	}

	if b.cfg.EnableMetrics {
		b.published.Add(1)
	}
	return count, nil
}

// Subscribe registers subscriberID on eventType. Subscribing again with the
// same id replaces the previous subscription (its channel closes cleanly).
func (b *Bus) Subscribe(eventType, subscriberID string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.topics[eventType]
	if !ok {
		subs = make(map[string]*subscriber)
		b.topics[eventType] = subs
	}

	if old, ok := subs[subscriberID]; ok {
		close(old.ch)
		delete(subs, subscriberID)
	} else if len(subs) >= b.cfg.MaxSubscribersPerType {
		return nil, ErrTooManySubscribers
	}

	sub := &subscriber{
		id:           subscriberID,
		eventType:    eventType,
		ch:           make(chan *proto.EventMessage, b.cfg.ChannelCapacity),
		subscribedAt: time.Now(),
	}
	subs[subscriberID] = sub
	return &Subscription{bus: b, sub: sub}, nil
}

// Unsubscribe removes subscriberID from the given event types; an empty
// list means every type.
func (b *Bus) Unsubscribe(subscriberID string, eventTypes []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(eventTypes) == 0 {
		for eventType := range b.topics {
			b.removeLocked(eventType, subscriberID)
		}
		return
	}
	for _, eventType := range eventTypes {
		b.removeLocked(eventType, subscriberID)
	}
}

// RemoveSubscriber drops every subscription of subscriberID; used when its
// tunnel goes away.
func (b *Bus) RemoveSubscriber(subscriberID string) {
	b.Unsubscribe(subscriberID, nil)
}

func (b *Bus) removeLocked(eventType, subscriberID string) {
	subs, ok := b.topics[eventType]
	if !ok {
		return
	}
	if sub, ok := subs[subscriberID]; ok {
		close(sub.ch)
		delete(subs, subscriberID)
	}
	if len(subs) == 0 {
		delete(b.topics, eventType)
	}
}

// Stats is the admin-facing view of bus state.
type Stats struct {
	Topics       map[string]int `json:"topics"`
	Subscribers  int            `json:"subscribers"`
	Published    int64          `json:"published"`
	Delivered    int64          `json:"delivered"`
	Disconnected int64          `json:"disconnected"`
}

func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	topics := make(map[string]int, len(b.topics))
	total := 0
	for eventType, subs := range b.topics {
		topics[eventType] = len(subs)
		total += len(subs)
	}
	return Stats{
		Topics:       topics,
		Subscribers:  total,
		Published:    b.published.Load(),
		Delivered:    b.delivered.Load(),
		Disconnected: b.disconnected.Load(),
	}
}

// SubscriberInfo is the admin-facing view of one subscription.
type SubscriberInfo struct {
	ID             string    `json:"id"`
	EventType      string    `json:"event_type"`
	SubscribedAt   time.Time `json:"subscribed_at"`
	EventsReceived int64     `json:"events_received"`
}

// Subscribers lists every active subscription.
func (b *Bus) Subscribers() []SubscriberInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]SubscriberInfo, 0)
	for eventType, subs := range b.topics {
		for _, sub := range subs {
			out = append(out, SubscriberInfo{
				ID:             sub.id,
				EventType:      eventType,
				SubscribedAt:   sub.subscribedAt,
				EventsReceived: sub.received,
			})
		}
	}
	return out
}

// SubscriberCount returns the number of subscribers on one event type.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[eventType])
}
