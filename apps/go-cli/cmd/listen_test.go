package cmd

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenCommandFlags(t *testing.T) {
	flag := listenCmd.Flags().Lookup("once")
	require.NotNil(t, flag, "expected --once flag to be registered")

	once, err := listenCmd.Flags().GetBool("once")
	require.NoError(t, err)
	assert.False(t, once)

	timeout, err := listenCmd.Flags().GetDuration("timeout")
	require.NoError(t, err)
	assert.Zero(t, timeout)

	buffer, err := listenCmd.Flags().GetInt("buffer")
	require.NoError(t, err)
	assert.Equal(t, messaging.DefaultSubscriptionBuffer, buffer)
}

func TestRunListen_Once(t *testing.T) {
	stub := &stubTransport{}
	m := newStubMessaging(t, stub)
	var out syncBuffer

	errCh := make(chan error, 1)
	go func() {
		errCh <- runListen(context.Background(), m, &out, io.Discard, listenOptions{once: true})
	}()

	require.Eventually(t, stub.hasHandler, time.Second, 5*time.Millisecond)
	stub.fire(pushclient.MessagePayload{From: "123", Notification: &pushclient.NotificationPayload{Title: "x", Body: "hello"}})

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listen --once did not return")
	}
	assert.Equal(t, ">> [123] x: hello\n", out.String())
}

func TestRunListen_OnceMessageOnConnect(t *testing.T) {
	stub := &stubTransport{onConnect: &pushclient.MessagePayload{From: "123", MessageID: "m-1"}}
	m := newStubMessaging(t, stub)
	var out syncBuffer

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, runListen(ctx, m, &out, io.Discard, listenOptions{once: true}))
	assert.Equal(t, ">> [123] (no title)\n   id: m-1\n", out.String())
}

func TestRunListen_OnceTimeout(t *testing.T) {
	m := newStubMessaging(t, &stubTransport{})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := runListen(ctx, m, io.Discard, io.Discard, listenOptions{once: true})
	assert.ErrorIs(t, err, errNoMessage)
}

func TestRunListen_OnceInterrupted(t *testing.T) {
	m := newStubMessaging(t, &stubTransport{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, runListen(ctx, m, io.Discard, io.Discard, listenOptions{once: true}))
}

func TestRunListen_Stream(t *testing.T) {
	stub := &stubTransport{}
	m := newStubMessaging(t, stub)
	var out syncBuffer

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- runListen(ctx, m, &out, io.Discard, listenOptions{buffer: 4})
	}()

	require.Eventually(t, stub.hasHandler, time.Second, 5*time.Millisecond)
	stub.fire(pushclient.MessagePayload{MessageID: "m1", Data: map[string]string{"k": "v"}})
	stub.fire(pushclient.MessagePayload{MessageID: "m2"})
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "m2") }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listen did not return after cancel")
	}
	assert.Contains(t, out.String(), "id: m1")
	assert.Contains(t, out.String(), "k=v")
	assert.False(t, stub.hasHandler(), "subscription closed on return")
}

func TestRunListen_ListenerFailure(t *testing.T) {
	for _, once := range []bool{false, true} {
		stub := &stubTransport{listenErr: errors.New("boom")}
		m := newStubMessaging(t, stub)

		err := runListen(context.Background(), m, io.Discard, io.Discard, listenOptions{once: once})
		require.Error(t, err, "once=%v", once)
		assert.Contains(t, err.Error(), "listener stopped: boom")
	}
}
