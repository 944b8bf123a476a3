package fcm

import (
	"strings"

	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/internal/mcspb"
)

// notificationPrefixes carry the display part of a message. Both spellings
// are sent by FCM depending on the API used.
var notificationPrefixes = []string{"gcm.notification.", "gcm.n."}

// payloadFromStanza converts a plaintext data message into a MessagePayload.
// Service-internal keys (google.*, gcm.*) are dropped; every other pair goes
// to Data.
func payloadFromStanza(msg *mcspb.DataMessageStanza) pushclient.MessagePayload {
	p := pushclient.MessagePayload{
		From:         msg.From,
		MessageID:    msg.ID,
		CollapseKey:  msg.Token,
		PersistentID: msg.PersistentID,
	}

	for _, kv := range msg.AppData {
		key, value := kv.Key, kv.Value

		if field, ok := notificationField(key); ok {
			applyNotificationField(&p, field, value)
			continue
		}

		switch {
		case key == "google.message_id":
			p.MessageID = value
		case key == "fcm_options.link":
			applyNotificationField(&p, "link", value)
		case key == "collapse_key":
			p.CollapseKey = value
		case key == "from":
			if p.From == "" {
				p.From = value
			}
		case strings.HasPrefix(key, "google."), strings.HasPrefix(key, "gcm."):
		default:
			if p.Data == nil {
				p.Data = make(map[string]string)
			}
			p.Data[key] = value
		}
	}
	return p
}

func notificationField(key string) (string, bool) {
	for _, prefix := range notificationPrefixes {
		if field, ok := strings.CutPrefix(key, prefix); ok {
			return field, true
		}
	}
	return "", false
}

func applyNotificationField(p *pushclient.MessagePayload, field, value string) {
	switch field {
	case "link":
		if p.FCMOptions == nil {
			p.FCMOptions = &pushclient.FCMOptions{}
		}
		p.FCMOptions.Link = value
	case "title", "body", "image", "icon":
		if p.Notification == nil {
			p.Notification = &pushclient.NotificationPayload{}
		}
		n := p.Notification
		switch field {
		case "title":
			n.Title = value
		case "body":
			n.Body = value
		case "image":
			n.Image = value
		case "icon":
			n.Icon = value
		}
	}
}
