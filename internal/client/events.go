package client

import (
	"time"

	"github.com/opizontas/grpc-gateway/internal/proto"
)

const eventBuffer = 256

// Publish sends an event over the tunnel. The gateway fills in the event
// id and timestamp when left empty.
func (c *Client) Publish(eventType string, payload []byte, metadata map[string]string) error {
	c.mu.RLock()
	publisherID := c.connectionID
	c.mu.RUnlock()

	return c.send(&proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Event{Event: &proto.EventMessage{
			EventType:   eventType,
			PublisherId: publisherID,
			Payload:     payload,
			Timestamp:   time.Now().Unix(),
			Metadata:    metadata,
		}},
	})
}

// Subscribe asks the gateway for the given event types and returns the
// channel inbound events of those types are delivered on. Events arriving
// faster than the consumer reads are dropped client-side; the gateway
// additionally disconnects subscribers that lag on its side.
func (c *Client) Subscribe(eventTypes ...string) (<-chan *proto.EventMessage, error) {
	ch := make(chan *proto.EventMessage, eventBuffer)

	c.eventsMu.Lock()
	for _, t := range eventTypes {
		c.events[t] = ch
	}
	c.eventsMu.Unlock()

	err := c.send(&proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Subscription{Subscription: &proto.SubscriptionRequest{
			Action:       proto.SubscriptionAction_SUBSCRIBE,
			EventTypes:   eventTypes,
			SubscriberId: c.ConnectionID(),
		}},
	})
	if err != nil {
		c.eventsMu.Lock()
		for _, t := range eventTypes {
			delete(c.events, t)
		}
		c.eventsMu.Unlock()
		return nil, err
	}
	return ch, nil
}

// Unsubscribe stops delivery for the given event types.
func (c *Client) Unsubscribe(eventTypes ...string) error {
	c.eventsMu.Lock()
	for _, t := range eventTypes {
		delete(c.events, t)
	}
	c.eventsMu.Unlock()

	return c.send(&proto.ConnectionMessage{
		MessageType: &proto.ConnectionMessage_Subscription{Subscription: &proto.SubscriptionRequest{
			Action:       proto.SubscriptionAction_UNSUBSCRIBE,
			EventTypes:   eventTypes,
			SubscriberId: c.ConnectionID(),
		}},
	})
}

func (c *Client) deliverEvent(ev *proto.EventMessage) {
	c.eventsMu.RLock()
	ch, ok := c.events[ev.GetEventType()]
	c.eventsMu.RUnlock()

	if !ok {
		c.logger.Debug("Event on unsubscribed type %s dropped", ev.GetEventType())
		return
	}
	select {
	case ch <- ev:
	default:
		c.logger.Warn("Local event buffer full; dropped %s", ev.GetEventId())
	}
}
