package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/messaging"
	"github.com/spf13/cobra"
)

// stubTransport is a messaging.Transport driven by the test.
type stubTransport struct {
	token     string
	err       error
	listenErr error
	// onConnect is delivered as soon as Listen starts.
	onConnect *pushclient.MessagePayload

	mu      sync.Mutex
	handler func(pushclient.MessagePayload)
	seq     int
}

func (s *stubTransport) GetToken(ctx context.Context, vapidKey string) (string, error) {
	return s.token, s.err
}

func (s *stubTransport) OnMessage(fn func(pushclient.MessagePayload)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	seq := s.seq
	s.handler = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.seq == seq {
			s.handler = nil
		}
	}
}

func (s *stubTransport) Listen(ctx context.Context) error {
	if s.listenErr != nil {
		return s.listenErr
	}
	if s.onConnect != nil {
		s.fire(*s.onConnect)
	}
	<-ctx.Done()
	return nil
}

func (s *stubTransport) hasHandler() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler != nil
}

func (s *stubTransport) fire(p pushclient.MessagePayload) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(p)
	}
}

func newStubMessaging(t *testing.T, stub *stubTransport) *messaging.Messaging {
	t.Helper()
	app := pushclient.InitializeApp(pushclient.Config{VAPIDKey: "BVapid"},
		pushclient.WithLogger(slog.New(slog.DiscardHandler)),
		pushclient.WithSessionDir(t.TempDir()),
	)
	return messaging.GetMessaging(app, messaging.WithTransport(stub))
}

// useStubMessaging makes every command build its messaging client on stub.
func useStubMessaging(t *testing.T, stub *stubTransport) {
	t.Helper()
	orig := newMessagingFn
	newMessagingFn = func(cfg pushclient.Config) *messaging.Messaging {
		app := pushclient.InitializeApp(cfg,
			pushclient.WithLogger(slog.New(slog.DiscardHandler)),
			pushclient.WithSessionDir(t.TempDir()),
		)
		return messaging.GetMessaging(app, messaging.WithTransport(stub))
	}
	t.Cleanup(func() { newMessagingFn = orig })
}

// clearEnv empties every configuration variable for the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		pushclient.EnvAPIKey, pushclient.EnvAuthDomain, pushclient.EnvProjectID, pushclient.EnvStorageBucket,
		pushclient.EnvMessagingSenderID, pushclient.EnvAppID, pushclient.EnvMeasurementID, pushclient.EnvVAPIDKey,
	} {
		t.Setenv(name, "")
	}
}

// resetFlags restores the named flags of c to their defaults after the test.
func resetFlags(t *testing.T, c *cobra.Command, names ...string) {
	t.Helper()
	t.Cleanup(func() {
		for _, name := range names {
			if f := c.Flags().Lookup(name); f != nil {
				f.Value.Set(f.DefValue)
				f.Changed = false
			}
		}
	})
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append([]string{"--session-dir", t.TempDir()}, args...))
	t.Cleanup(func() {
		useYAML, configPath, verbose = false, "", false
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

// syncBuffer is a bytes.Buffer safe for one writer and a polling reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
