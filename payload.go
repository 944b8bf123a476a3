package pushclient

// NotificationPayload is the display part of a push message.
type NotificationPayload struct {
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Body  string `json:"body,omitempty" yaml:"body,omitempty"`
	Image string `json:"image,omitempty" yaml:"image,omitempty"`
	Icon  string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// FCMOptions carries the options FCM attaches to a message.
type FCMOptions struct {
	Link string `json:"link,omitempty" yaml:"link,omitempty"`
}

// MessagePayload is a message delivered while the client is listening in the
// foreground. Its shape follows what the push service sends; the client does
// not interpret Data.
type MessagePayload struct {
	From         string               `json:"from,omitempty" yaml:"from,omitempty"`
	CollapseKey  string               `json:"collapseKey,omitempty" yaml:"collapse_key,omitempty"`
	MessageID    string               `json:"messageId,omitempty" yaml:"message_id,omitempty"`
	PersistentID string               `json:"-" yaml:"-"`
	Notification *NotificationPayload `json:"notification,omitempty" yaml:"notification,omitempty"`
	Data         map[string]string    `json:"data,omitempty" yaml:"data,omitempty"`
	FCMOptions   *FCMOptions          `json:"fcmOptions,omitempty" yaml:"fcm_options,omitempty"`
}

// Title returns the notification title, or "" when the message carries no
// notification part.
func (p MessagePayload) Title() string {
	if p.Notification == nil {
		return ""
	}
	return p.Notification.Title
}
