package messaging

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/slush-dev/pushclient"
)

// DefaultSubscriptionBuffer is used by Subscribe when buffer is not positive.
const DefaultSubscriptionBuffer = 16

// Subscription is a stream of foreground messages. It replaces the previous
// listener or subscription on the transport when created.
type Subscription struct {
	id          string
	ch          chan pushclient.MessagePayload
	unsubscribe func()

	mu      sync.Mutex
	closed  bool
	dropped atomic.Uint64
}

// Subscribe registers a handler that forwards every foreground message to
// the returned Subscription. When the buffer is full the message is dropped
// and counted rather than blocking delivery. Close the subscription and call
// Subscribe again to restart the stream.
func (m *Messaging) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultSubscriptionBuffer
	}
	s := &Subscription{
		id: uuid.NewString(),
		ch: make(chan pushclient.MessagePayload, buffer),
	}
	logger := m.logger.With("subscription", s.id)
	s.unsubscribe = m.transport.OnMessage(func(p pushclient.MessagePayload) {
		if !s.send(p) {
			logger.Warn("Subscription buffer full, dropping message", "message_id", p.MessageID)
		}
	})
	logger.Debug("Subscription started", "buffer", buffer)
	return s
}

// send reports false when p was dropped because the buffer is full. Messages
// sent after Close are discarded silently.
func (s *Subscription) send(p pushclient.MessagePayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- p:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// ID identifies the subscription in logs.
func (s *Subscription) ID() string { return s.id }

// C returns the message channel. It is closed by Close.
func (s *Subscription) C() <-chan pushclient.MessagePayload { return s.ch }

// Dropped returns how many messages were discarded because the buffer was full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Close removes the handler and closes C. It is safe to call more than once.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.unsubscribe()
	close(s.ch)
}
