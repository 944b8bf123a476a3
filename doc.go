// Package pushclient provides a Go client for receiving Firebase Cloud
// Messaging (FCM) push notifications.
//
// It includes the application configuration (read from the VITE_* environment
// variables or a TOML file), the App handle that owns process-wide components,
// and the MessagePayload type delivered to foreground listeners.
//
// The messaging subpackage provides the Messaging client (token requests and
// foreground message listeners); the fcm subpackage provides the native FCM
// transport used underneath it.
package pushclient
