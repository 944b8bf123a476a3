package messaging

import (
	"context"
	"log/slog"

	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/fcm"
)

// componentKey identifies the Messaging component inside an App.
const componentKey = "messaging"

// Transport obtains registration tokens and delivers foreground messages.
// *fcm.Client is the default implementation.
type Transport interface {
	// GetToken returns a registration token for the sender identified by
	// vapidKey. An empty token with a nil error means none is available yet.
	GetToken(ctx context.Context, vapidKey string) (string, error)

	// OnMessage sets the handler for foreground messages, replacing any
	// previous handler. The returned function removes fn if it is still the
	// current handler.
	OnMessage(fn func(pushclient.MessagePayload)) (unsubscribe func())

	// Listen runs the delivery loop until ctx is cancelled.
	Listen(ctx context.Context) error
}

var _ Transport = (*fcm.Client)(nil)

// Option configures Messaging. Options only take effect on the first
// GetMessaging call for an App.
type Option func(*Messaging)

// WithTransport replaces the FCM transport.
func WithTransport(t Transport) Option {
	return func(m *Messaging) {
		m.transport = t
	}
}

// Messaging is the messaging client of one App.
type Messaging struct {
	app       *pushclient.App
	transport Transport
	logger    *slog.Logger
	vapidKey  string
}

// GetMessaging returns the Messaging client of app, creating it on the first
// call. Every later call returns the same instance and ignores opts.
func GetMessaging(app *pushclient.App, opts ...Option) *Messaging {
	return app.Component(componentKey, func() any {
		return newMessaging(app, opts...)
	}).(*Messaging)
}

func newMessaging(app *pushclient.App, opts ...Option) *Messaging {
	cfg := app.Config()
	m := &Messaging{
		app:      app,
		logger:   app.Logger(),
		vapidKey: cfg.VAPIDKey,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.transport == nil {
		m.transport = fcm.NewClient(cfg, app.SessionDir(),
			fcm.WithLogger(app.Logger()),
			fcm.WithHTTPClient(app.HTTPClient()),
		)
	}
	return m
}

// App returns the App this client is bound to.
func (m *Messaging) App() *pushclient.App { return m.app }

// Transport returns the transport in use.
func (m *Messaging) Transport() Transport { return m.transport }

// Listen runs the transport delivery loop until ctx is cancelled. Messages
// reach OnMessageListener and Subscribe only while Listen is running.
func (m *Messaging) Listen(ctx context.Context) error {
	return m.transport.Listen(ctx)
}
