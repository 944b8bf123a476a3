// Package fcm is a native FCM (Firebase Cloud Messaging) transport.
//
// It performs a GCM device checkin, an optional Firebase Installations
// handshake, GCM registration for the configured sender, and runs an MCS
// (Mobile Connection Server) client that receives push messages while the
// process is in the foreground.
//
// Usage:
//
//	client := fcm.NewClient(cfg, sessionDir)
//	unsubscribe := client.OnMessage(func(p pushclient.MessagePayload) { ... })
//	token, err := client.GetToken(ctx, cfg.VAPIDKey)
//	err = client.Listen(ctx)
package fcm
