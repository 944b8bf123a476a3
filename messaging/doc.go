// Package messaging is the messaging client bound to a pushclient.App.
//
// A Messaging value is obtained with GetMessaging and is shared by every
// caller that passes the same App:
//
//	app := pushclient.InitializeApp(cfg)
//	m := messaging.GetMessaging(app)
//
//	res := m.RequestToken(ctx)
//	if token, ok := res.Value(); ok {
//		// hand token to the application server
//	}
//
//	go m.Listen(ctx)
//	msg, err := m.OnMessageListener(ctx)
//
// RequestToken never fails; it reports what happened through TokenResult.
// OnMessageListener resolves with exactly one message. Subscribe gives a
// stream of messages for callers that want more than one.
package messaging
