package fcm

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/internal/mcspb"
)

// DefaultAppPackage is the app package registered with GCM unless
// WithAppIdentity says otherwise.
const DefaultAppPackage = "org.chromium.linux"

// mcsAddr is the MCS endpoint.
const mcsAddr = "mtalk.google.com:5228"

// Option configures Client.
type Option func(*Client)

// WithLogger sets a custom logger for Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client for checkin and registration.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithDevice overrides the device identity sent at checkin.
func WithDevice(device AndroidDeviceInfo) Option {
	return func(c *Client) {
		c.device = device
	}
}

// WithAppIdentity sets the app package and its signing certificate SHA1
// registered with GCM.
func WithAppIdentity(appPackage, certSHA1 string) Option {
	return func(c *Client) {
		c.appPackage = appPackage
		c.appCert = certSHA1
	}
}

// Client obtains registration tokens and receives foreground messages over
// MCS.
type Client struct {
	config     pushclient.Config
	store      stateStore
	logger     *slog.Logger
	httpClient *http.Client
	device     AndroidDeviceInfo
	appPackage string
	appCert    string
	now        func() time.Time

	// mu serializes registration and is held across its HTTP round trips.
	mu           sync.Mutex
	installation *installation

	// stateMu guards the fields below. It is never held during network I/O,
	// so the MCS read loop does not wait on a registration in progress.
	stateMu     sync.Mutex
	state       *deviceState
	token       string
	tokenSender string

	handlerMu  sync.Mutex
	handler    func(pushclient.MessagePayload)
	handlerSeq uint64

	// dialMCS is overridable for testing (returns a conn to MCS server).
	dialMCS func(ctx context.Context) (io.ReadWriteCloser, error)

	onConnected    func()
	onDisconnected func()
	onError        func(error)
}

// NewClient creates a Client for cfg that keeps its device state in sessionDir.
func NewClient(cfg pushclient.Config, sessionDir string, opts ...Option) *Client {
	c := &Client{
		config:     cfg,
		store:      stateStore{dir: sessionDir},
		logger:     slog.Default(),
		httpClient: http.DefaultClient,
		device:     DefaultAndroidDevice(),
		appPackage: DefaultAppPackage,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnConnected registers a callback invoked when the MCS login succeeds.
// Must be called before Listen().
func (c *Client) OnConnected(fn func()) { c.onConnected = fn }

// OnDisconnected registers a callback invoked when the MCS connection drops.
// Must be called before Listen().
func (c *Client) OnDisconnected(fn func()) { c.onDisconnected = fn }

// OnError registers a callback for messages that could not be delivered.
// Must be called before Listen().
func (c *Client) OnError(fn func(error)) { c.onError = fn }

// Token returns the registration token from the last successful GetToken, or
// "" if there is none.
func (c *Client) Token() string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	return c.token
}

// PersistentIDs returns the IDs of the most recently received messages, at
// most maxPersistentIDs of them. They are sent with every MCS login.
func (c *Client) PersistentIDs() []string {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state == nil {
		return nil
	}
	ids := make([]string, len(c.state.PersistentIDs))
	copy(ids, c.state.PersistentIDs)
	return ids
}

// OnMessage sets the handler for incoming messages, replacing any previous
// one. Messages arriving while no handler is set are dropped. The returned
// function removes fn if it is still the current handler.
func (c *Client) OnMessage(fn func(pushclient.MessagePayload)) (unsubscribe func()) {
	c.handlerMu.Lock()
	c.handlerSeq++
	seq := c.handlerSeq
	c.handler = fn
	c.handlerMu.Unlock()

	return func() {
		c.handlerMu.Lock()
		defer c.handlerMu.Unlock()
		if c.handlerSeq == seq {
			c.handler = nil
		}
	}
}

func (c *Client) deliver(p pushclient.MessagePayload) {
	c.handlerMu.Lock()
	h := c.handler
	c.handlerMu.Unlock()
	if h == nil {
		c.logger.Debug("No message handler registered, dropping message", "persistentId", p.PersistentID)
		return
	}
	h(p)
}

// GetToken returns a registration token for the sender identified by
// vapidKey, or by the configured MessagingSenderID when vapidKey is empty.
// The token is cached in memory for the life of the Client. An empty token
// from the service is returned as "" with a nil error.
func (c *Client) GetToken(ctx context.Context, vapidKey string) (string, error) {
	sender := vapidKey
	if sender == "" {
		sender = c.config.MessagingSenderID
	}
	if sender == "" {
		return "", &RegistrationError{Op: "register", Code: "INVALID_SENDER", Body: "no sender ID or VAPID key configured"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.stateMu.Lock()
	cached, cachedSender := c.token, c.tokenSender
	c.stateMu.Unlock()
	if cached != "" && cachedSender == sender {
		return cached, nil
	}

	state, err := c.ensureCheckinLocked(ctx)
	if err != nil {
		return "", err
	}

	var inst *installation
	if c.installationsEnabled() {
		if inst, err = c.ensureInstallationLocked(ctx); err != nil {
			return "", err
		}
	}

	c.logger.Debug("Starting FCM registration", "sender", truncate(sender, 20), "app", c.appPackage)
	token, err := gcmRegister(ctx, c.loggingHTTPClient(), registerParams{
		AndroidID:     state.AndroidID,
		SecurityToken: state.SecurityToken,
		AppPackage:    c.appPackage,
		AppCert:       c.appCert,
		Subtype:       state.Subtype,
		Sender:        sender,
		GMPAppID:      c.config.AppID,
		Installation:  inst,
		Device:        c.device,
	})
	if err != nil {
		return "", err
	}
	if token == "" {
		c.logger.Debug("FCM registration returned an empty token")
		return "", nil
	}

	c.stateMu.Lock()
	c.token, c.tokenSender = token, sender
	c.stateMu.Unlock()
	c.logger.Info("FCM registration complete", "token_prefix", truncate(token, 20))
	return token, nil
}

func (c *Client) installationsEnabled() bool {
	return c.config.APIKey != "" && c.config.ProjectID != "" && c.config.AppID != ""
}

// ensureCheckinLocked returns a copy of the device credentials, loading them
// from the session dir or performing a fresh checkin. c.mu must be held.
func (c *Client) ensureCheckinLocked(ctx context.Context) (*deviceState, error) {
	c.stateMu.Lock()
	if !c.state.checkedIn() {
		if state, err := c.store.load(); err == nil && state.checkedIn() {
			c.logger.Debug("Reusing stored FCM device credentials", "androidId", state.AndroidID)
			c.state = state
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to load FCM device state; performing fresh checkin", "error", err)
		}
	}
	checkedIn := c.state.checkedIn()
	c.stateMu.Unlock()

	changed := false
	if !checkedIn {
		androidID, securityToken, err := gcmCheckin(ctx, c.loggingHTTPClient(), 0, 0, c.device)
		if err != nil {
			return nil, err
		}
		c.logger.Debug("GCM checkin complete", "androidId", androidID)
		c.stateMu.Lock()
		c.state = &deviceState{AndroidID: androidID, SecurityToken: securityToken, PersistentIDs: []string{}}
		c.stateMu.Unlock()
		changed = true
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state.Subtype == "" {
		c.state.Subtype = newSubtype(c.config)
		changed = true
	}
	if changed {
		if err := c.store.save(c.state); err != nil {
			c.logger.Error("Failed to save FCM device state", "error", err)
		}
	}
	state := *c.state
	state.PersistentIDs = slices.Clone(c.state.PersistentIDs)
	return &state, nil
}

// newSubtype returns the per-client registration subtype, unique per session
// dir so one sender can address several clients.
func newSubtype(cfg pushclient.Config) string {
	origin := "pushclient"
	if cfg.AuthDomain != "" {
		origin = "https://" + cfg.AuthDomain + "/"
	}
	return "wp:" + origin + "#" + uuid.NewString()
}

// ensureInstallationLocked returns a Firebase Installation with a usable auth
// token. c.mu must be held and device credentials must exist.
func (c *Client) ensureInstallationLocked(ctx context.Context) (*installation, error) {
	now := c.now()
	if c.installation.valid(now) {
		return c.installation, nil
	}
	httpClient := c.loggingHTTPClient()

	if c.installation == nil {
		c.stateMu.Lock()
		fid, refresh := c.state.InstallationFID, c.state.InstallationRefreshToken
		c.stateMu.Unlock()
		if fid != "" && refresh != "" {
			c.installation = &installation{FID: fid, RefreshToken: refresh}
		}
	}

	if c.installation != nil && c.installation.RefreshToken != "" {
		inst, err := generateAuthToken(ctx, httpClient, c.config, *c.installation, now)
		if err == nil {
			c.installation = inst
			return inst, nil
		}
		var regErr *RegistrationError
		if !errors.As(err, &regErr) || (regErr.StatusCode != http.StatusUnauthorized && regErr.StatusCode != http.StatusNotFound) {
			return nil, err
		}
		c.logger.Info("Firebase installation no longer valid, creating a new one", "fid", c.installation.FID)
		c.installation = nil
	}

	fid, err := generateFID()
	if err != nil {
		return nil, err
	}
	inst, err := createInstallation(ctx, httpClient, c.config, fid, now)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("Firebase installation created", "fid", inst.FID, "expires_at", inst.ExpiresAt)

	c.installation = inst
	c.stateMu.Lock()
	c.state.InstallationFID = inst.FID
	c.state.InstallationRefreshToken = inst.RefreshToken
	if err := c.store.save(c.state); err != nil {
		c.logger.Error("Failed to save FCM device state", "error", err)
	}
	c.stateMu.Unlock()
	return inst, nil
}

// Listen connects to MCS and delivers incoming messages to the OnMessage
// handler. It blocks until ctx is cancelled (returning nil) or the
// connection fails. Device credentials are obtained first if needed.
func (c *Client) Listen(ctx context.Context) error {
	c.mu.Lock()
	state, err := c.ensureCheckinLocked(ctx)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("fcm listen: %w", err)
	}
	c.mu.Unlock()
	androidID, securityToken, persistentIDs := state.AndroidID, state.SecurityToken, state.PersistentIDs

	conn, err := c.dialMCSConn(ctx)
	if err != nil {
		return fmt.Errorf("MCS connect: %w", &RegistrationError{Op: "listen", Err: err})
	}

	mcs := newMCSClient(conn, androidID, securityToken, persistentIDs, c.logger)
	mcs.onConnected = func() {
		c.logger.Debug("MCS connected")
		if c.onConnected != nil {
			c.onConnected()
		}
	}
	mcs.onDisconnected = func(reason string) {
		c.logger.Debug("MCS disconnected", "reason", reason)
		if c.onDisconnected != nil {
			c.onDisconnected()
		}
	}
	mcs.onDataMessage = c.handleDataMessage

	return mcs.connect(ctx)
}

// dialMCSConn dials mtalk.google.com:5228 over TLS, or uses the test hook.
func (c *Client) dialMCSConn(ctx context.Context) (io.ReadWriteCloser, error) {
	if c.dialMCS != nil {
		return c.dialMCS(ctx)
	}
	dialer := &tls.Dialer{NetDialer: &net.Dialer{Timeout: 30 * time.Second}}
	return dialer.DialContext(ctx, "tcp", mcsAddr)
}

// handleDataMessage converts a data message stanza and hands it to the
// current handler. Encrypted stanzas are reported through OnError.
func (c *Client) handleDataMessage(msg *mcspb.DataMessageStanza) {
	c.logger.Debug("MCS message received", "persistentId", msg.PersistentID)

	if len(msg.RawData) > 0 {
		err := fmt.Errorf("fcm: message %q carries an encrypted payload, which is not supported", msg.PersistentID)
		c.logger.Warn("Dropping encrypted FCM message", "persistentId", msg.PersistentID)
		if c.onError != nil {
			c.onError(err)
		}
	} else {
		c.deliver(payloadFromStanza(msg))
	}

	c.addPersistentID(msg.PersistentID)
}

// maxPersistentIDs caps the stored persistent IDs so the state file and the
// MCS LoginRequest stay bounded.
const maxPersistentIDs = 200

// addPersistentID records a received message ID and saves the device state.
func (c *Client) addPersistentID(id string) {
	if id == "" {
		return
	}

	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	if c.state == nil {
		return
	}
	c.state.PersistentIDs = append(c.state.PersistentIDs, id)
	if len(c.state.PersistentIDs) > maxPersistentIDs {
		c.state.PersistentIDs = c.state.PersistentIDs[len(c.state.PersistentIDs)-maxPersistentIDs:]
	}
	if err := c.store.save(c.state); err != nil {
		c.logger.Error("Failed to save persistent IDs", "error", err)
	}
}

// loggingHTTPClient returns the Client's HTTP client wrapped with
// request/response logging if the logger is at Debug level.
func (c *Client) loggingHTTPClient() *http.Client {
	if !c.logger.Enabled(context.Background(), slog.LevelDebug) {
		return c.httpClient
	}
	transport := c.httpClient.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &http.Client{
		Transport: &loggingRoundTripper{inner: transport, logger: c.logger},
		Timeout:   c.httpClient.Timeout,
	}
}

// secretHeaders are logged with their values masked.
var secretHeaders = map[string]bool{
	"Authorization":  true,
	"X-Goog-Api-Key": true,
}

// loggingRoundTripper logs every request and response at Debug level.
type loggingRoundTripper struct {
	inner  http.RoundTripper
	logger *slog.Logger
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	t.logger.Debug(">>> "+req.Method, "url", req.URL.String())
	for k, v := range req.Header {
		val := strings.Join(v, ", ")
		if secretHeaders[http.CanonicalHeaderKey(k)] {
			val = truncate(val, 12) + "..."
		}
		t.logger.Debug("  Request header", "key", k, "value", val)
	}
	if req.Body != nil && req.Body != http.NoBody {
		bodyBytes, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err == nil {
			t.logger.Debug("  Request body", "length", len(bodyBytes))
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}
	}

	resp, err := t.inner.RoundTrip(req)
	if err != nil {
		t.logger.Debug("<<< Error", "error", err)
		return nil, err
	}

	t.logger.Debug("<<< Response", "status", resp.StatusCode, "url", req.URL.String())
	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr == nil {
		t.logger.Debug("  Response body", "length", len(respBody))
		resp.Body = io.NopCloser(bytes.NewReader(respBody))
	}
	return resp, nil
}

// truncate returns the first maxLen bytes of s, or s itself if shorter.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
