package testutil

import (
	"context"
	"sync"
)

// SentMessage is a notification captured by InMemoryNotifier
type SentMessage struct {
	EventType string
	EventID   string
	Payload   interface{}
}

// InMemoryNotifier records order notifications instead of delivering them
type InMemoryNotifier struct {
	mu       sync.Mutex
	messages []SentMessage
	err      error
}

func NewInMemoryNotifier() *InMemoryNotifier {
	return &InMemoryNotifier{}
}

func (n *InMemoryNotifier) SendMessage(ctx context.Context, eventType string, eventID string, payload interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, SentMessage{EventType: eventType, EventID: eventID, Payload: payload})
	return nil
}

// Fail makes every send return err
func (n *InMemoryNotifier) Fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

func (n *InMemoryNotifier) Messages() []SentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]SentMessage(nil), n.messages...)
}

func (n *InMemoryNotifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = nil
	n.err = nil
}
