package messaging

import (
	"context"
	"sync"

	"github.com/slush-dev/pushclient"
)

// OnMessageListener waits for the next foreground message and returns it.
// Only the first message is taken; the handler stays registered but ignores
// everything after it until another listener or subscription replaces it.
// There is no timeout: the call returns early only when ctx is done.
func (m *Messaging) OnMessageListener(ctx context.Context) (pushclient.MessagePayload, error) {
	return m.ArmListener()(ctx)
}

// ArmListener registers a one-shot handler immediately and returns the
// function that waits for its message. A message that arrives between the two
// calls is kept, so callers can arm before starting Listen. The wait function
// behaves like OnMessageListener and should be called once.
func (m *Messaging) ArmListener() func(ctx context.Context) (pushclient.MessagePayload, error) {
	ch := make(chan pushclient.MessagePayload, 1)
	var once sync.Once
	unsubscribe := m.transport.OnMessage(func(p pushclient.MessagePayload) {
		once.Do(func() { ch <- p })
	})

	return func(ctx context.Context) (pushclient.MessagePayload, error) {
		select {
		case p := <-ch:
			m.logger.Info("Foreground message received",
				"message_id", p.MessageID,
				"from", p.From,
				"title", p.Title(),
			)
			return p, nil
		case <-ctx.Done():
			unsubscribe()
			return pushclient.MessagePayload{}, ctx.Err()
		}
	}
}
