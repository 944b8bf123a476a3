package fcm

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/slush-dev/pushclient/internal/mcspb"
)

const mcsVersion = 41

// mcsTag is the one-byte message type that precedes every MCS packet.
type mcsTag uint8

const (
	tagHeartbeatPing     mcsTag = 0
	tagHeartbeatAck      mcsTag = 1
	tagLoginRequest      mcsTag = 2
	tagLoginResponse     mcsTag = 3
	tagClose             mcsTag = 4
	tagIqStanza          mcsTag = 7
	tagDataMessageStanza mcsTag = 8
	tagStreamErrorStanza mcsTag = 10
)

// maxPacketSize bounds a single MCS packet body.
const maxPacketSize = 4 << 20

var errServerClose = errors.New("mcs: server sent close")

type wireMessage interface {
	Marshal() ([]byte, error)
}

// mcsClient runs one MCS session: login, then packets until the stream ends.
type mcsClient struct {
	conn io.ReadWriteCloser
	r    *bufio.Reader

	androidID     uint64
	securityToken uint64
	persistentIDs []string
	logger        *slog.Logger

	heartbeatInterval time.Duration

	onDataMessage  func(*mcspb.DataMessageStanza)
	onConnected    func()
	onDisconnected func(reason string)

	writeMu sync.Mutex
}

func newMCSClient(conn io.ReadWriteCloser, androidID, securityToken uint64, persistentIDs []string, logger *slog.Logger) *mcsClient {
	return &mcsClient{
		conn:              conn,
		r:                 bufio.NewReader(conn),
		androidID:         androidID,
		securityToken:     securityToken,
		persistentIDs:     persistentIDs,
		logger:            logger,
		heartbeatInterval: 5 * time.Minute,
	}
}

// connect logs in and processes packets until the session ends. Cancelling
// ctx closes the connection and makes connect return nil.
func (m *mcsClient) connect(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { m.conn.Close() })
	defer stop()

	err := m.session(ctx)
	if ctx.Err() != nil {
		m.disconnected("context cancelled")
		return nil
	}
	if err == nil {
		m.disconnected("read loop ended")
		return nil
	}
	m.disconnected(err.Error())
	return err
}

func (m *mcsClient) disconnected(reason string) {
	if m.onDisconnected != nil {
		m.onDisconnected(reason)
	}
}

func (m *mcsClient) session(ctx context.Context) error {
	if err := m.writePacket(tagLoginRequest, m.loginRequest(), true); err != nil {
		return fmt.Errorf("mcs: send login: %w", err)
	}

	version, err := m.r.ReadByte()
	if err != nil {
		return fmt.Errorf("mcs: read version: %w", err)
	}
	if version < mcsVersion {
		return fmt.Errorf("mcs: unsupported server version %d", version)
	}

	hbCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go m.heartbeat(hbCtx)

	for {
		tag, body, err := m.readPacket()
		if err != nil {
			return err
		}
		if err := m.dispatch(tag, body); err != nil {
			return err
		}
	}
}

func (m *mcsClient) loginRequest() *mcspb.LoginRequest {
	user := strconv.FormatUint(m.androidID, 10)
	device := "android-" + strconv.FormatUint(m.androidID, 16)
	return &mcspb.LoginRequest{
		ID:                    device,
		Domain:                "mcs.android.com",
		User:                  user,
		Resource:              user,
		AuthToken:             strconv.FormatUint(m.securityToken, 10),
		DeviceID:              device,
		LastRmqID:             1,
		ReceivedPersistentIDs: m.persistentIDs,
		UseRmq2:               true,
		AccountID:             1000000,
		AuthService:           mcspb.AuthServiceAndroidID,
		NetworkType:           1,
		Settings:              []*mcspb.Setting{{Name: "new_vc", Value: "1"}},
	}
}

// writePacket frames msg as [version] tag size body and sends it in a single
// Write.
func (m *mcsClient) writePacket(tag mcsTag, msg wireMessage, withVersion bool) error {
	body, err := msg.Marshal()
	if err != nil {
		return fmt.Errorf("encoding tag %d: %w", tag, err)
	}

	frame := make([]byte, 0, len(body)+2+binary.MaxVarintLen64)
	if withVersion {
		frame = append(frame, mcsVersion)
	}
	frame = append(frame, byte(tag))
	frame = binary.AppendUvarint(frame, uint64(len(body)))
	frame = append(frame, body...)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_, err = m.conn.Write(frame)
	return err
}

func (m *mcsClient) readPacket() (mcsTag, []byte, error) {
	tag, err := m.r.ReadByte()
	if err != nil {
		return 0, nil, fmt.Errorf("mcs: read tag: %w", err)
	}
	size, err := binary.ReadUvarint(m.r)
	if err != nil {
		return 0, nil, fmt.Errorf("mcs: read size: %w", err)
	}
	if size > maxPacketSize {
		return 0, nil, fmt.Errorf("mcs: packet of %d bytes exceeds limit", size)
	}
	body := make([]byte, size)
	if _, err := io.ReadFull(m.r, body); err != nil {
		return 0, nil, fmt.Errorf("mcs: read body: %w", err)
	}
	return mcsTag(tag), body, nil
}

// dispatch handles one packet. Undecodable pings, data messages and IQ
// stanzas are logged and skipped; a non-nil error ends the session.
func (m *mcsClient) dispatch(tag mcsTag, body []byte) error {
	switch tag {
	case tagLoginResponse:
		return m.handleLogin(body)
	case tagHeartbeatPing:
		var ping mcspb.HeartbeatPing
		if err := ping.Unmarshal(body); err != nil {
			m.logger.Warn("Dropping malformed heartbeat ping", "error", err)
			return nil
		}
		if err := m.writePacket(tagHeartbeatAck, &mcspb.HeartbeatAck{}, false); err != nil {
			return fmt.Errorf("mcs: send heartbeat ack: %w", err)
		}
		m.logger.Debug("Answered heartbeat ping")
	case tagHeartbeatAck:
		m.logger.Debug("Heartbeat acknowledged")
	case tagDataMessageStanza:
		var msg mcspb.DataMessageStanza
		if err := msg.Unmarshal(body); err != nil {
			m.logger.Warn("Dropping malformed data message", "error", err)
			return nil
		}
		m.logger.Debug("Data message", "from", msg.From, "category", msg.Category, "persistentId", msg.PersistentID)
		if m.onDataMessage != nil {
			m.onDataMessage(&msg)
		}
	case tagIqStanza:
		var iq mcspb.IqStanza
		if err := iq.Unmarshal(body); err != nil {
			m.logger.Warn("Dropping malformed IQ stanza", "error", err)
			return nil
		}
		m.logger.Debug("IQ stanza", "type", iq.Type, "id", iq.ID, "from", iq.From, "to", iq.To)
	case tagClose:
		return errServerClose
	case tagStreamErrorStanza:
		var se mcspb.StreamErrorStanza
		if err := se.Unmarshal(body); err != nil {
			return fmt.Errorf("mcs: undecodable stream error: %w", err)
		}
		return fmt.Errorf("mcs: stream error: type=%s text=%s", se.Type, se.Text)
	default:
		m.logger.Debug("Ignoring MCS packet", "tag", tag, "size", len(body))
	}
	return nil
}

func (m *mcsClient) handleLogin(body []byte) error {
	var resp mcspb.LoginResponse
	if err := resp.Unmarshal(body); err != nil {
		return fmt.Errorf("mcs: decode login response: %w", err)
	}
	if resp.Error != nil && resp.Error.Code != 0 {
		return fmt.Errorf("mcs: login rejected: %d %s", resp.Error.Code, resp.Error.Message)
	}
	m.logger.Debug("MCS login accepted", "id", resp.ID)
	// The server has now seen the acknowledged IDs.
	m.persistentIDs = nil
	if m.onConnected != nil {
		m.onConnected()
	}
	return nil
}

func (m *mcsClient) heartbeat(ctx context.Context) {
	ticker := time.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := m.writePacket(tagHeartbeatPing, &mcspb.HeartbeatPing{}, false); err != nil {
			m.logger.Warn("Heartbeat ping failed", "error", err)
			return
		}
		m.logger.Debug("Sent heartbeat ping")
	}
}
