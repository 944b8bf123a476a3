package fcm

import (
	"testing"

	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/internal/mcspb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadFromStanza_FCMOptionsLink(t *testing.T) {
	p := payloadFromStanza(&mcspb.DataMessageStanza{
		AppData: []*mcspb.AppData{
			{Key: "fcm_options.link", Value: "https://example.com/open"},
			{Key: "orderId", Value: "42"},
		},
	})

	require.NotNil(t, p.FCMOptions)
	assert.Equal(t, "https://example.com/open", p.FCMOptions.Link)
	assert.Nil(t, p.Notification)
	assert.Equal(t, map[string]string{"orderId": "42"}, p.Data)
}

func TestPayloadFromStanza(t *testing.T) {
	msg := &mcspb.DataMessageStanza{
		ID:           "stanza-id",
		From:         "1234567890",
		Token:        "stanza-collapse",
		PersistentID: "0:1700000000%abc",
		AppData: []*mcspb.AppData{
			{Key: "gcm.notification.title", Value: "Hello"},
			{Key: "gcm.notification.body", Value: "World"},
			{Key: "gcm.n.image", Value: "https://example.com/i.png"},
			{Key: "gcm.notification.icon", Value: "icon.png"},
			{Key: "gcm.n.link", Value: "https://example.com"},
			{Key: "gcm.n.e", Value: "1"},
			{Key: "google.message_id", Value: "0:msg"},
			{Key: "google.c.a.e", Value: "1"},
			{Key: "google.sent_time", Value: "1700000000000"},
			{Key: "collapse_key", Value: "updates"},
			{Key: "from", Value: "ignored"},
			{Key: "orderId", Value: "42"},
		},
	}

	p := payloadFromStanza(msg)
	assert.Equal(t, "1234567890", p.From)
	assert.Equal(t, "0:msg", p.MessageID)
	assert.Equal(t, "updates", p.CollapseKey)
	assert.Equal(t, "0:1700000000%abc", p.PersistentID)

	require.NotNil(t, p.Notification)
	assert.Equal(t, pushclient.NotificationPayload{
		Title: "Hello",
		Body:  "World",
		Image: "https://example.com/i.png",
		Icon:  "icon.png",
	}, *p.Notification)
	require.NotNil(t, p.FCMOptions)
	assert.Equal(t, "https://example.com", p.FCMOptions.Link)
	assert.Equal(t, map[string]string{"orderId": "42"}, p.Data)
	assert.Equal(t, "Hello", p.Title())
}

func TestPayloadFromStanza_DataOnly(t *testing.T) {
	p := payloadFromStanza(&mcspb.DataMessageStanza{
		ID:      "stanza-id",
		AppData: []*mcspb.AppData{{Key: "from", Value: "987"}, {Key: "k", Value: "v"}},
	})
	assert.Equal(t, "987", p.From)
	assert.Equal(t, "stanza-id", p.MessageID)
	assert.Nil(t, p.Notification)
	assert.Nil(t, p.FCMOptions)
	assert.Equal(t, map[string]string{"k": "v"}, p.Data)
	assert.Empty(t, p.Title())
}

func TestPayloadFromStanza_UnknownNotificationKey(t *testing.T) {
	p := payloadFromStanza(&mcspb.DataMessageStanza{
		AppData: []*mcspb.AppData{{Key: "gcm.n.analytics_data", Value: "x"}},
	})
	assert.Nil(t, p.Notification)
	assert.Nil(t, p.Data)
}
