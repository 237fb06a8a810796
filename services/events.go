package services

import ws "github.com/krshsl/brandcast/websocket"

// EventPublisher pushes lifecycle events to an owner's live connections.
type EventPublisher interface {
	Publish(userID string, event ws.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, ws.Event) {}

func publisherOrNop(p EventPublisher) EventPublisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
