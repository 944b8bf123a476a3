// Package mcspb encodes and decodes the subset of the MCS (Mobile Connection
// Server) protocol messages used by the FCM listener.
package mcspb

import (
	"fmt"

	"github.com/slush-dev/pushclient/internal/pbwire"
)

// AuthService identifies how a LoginRequest authenticates.
type AuthService int32

const AuthServiceAndroidID AuthService = 2

// IqType is the type of an IqStanza.
type IqType int32

const (
	IqGet    IqType = 0
	IqSet    IqType = 1
	IqResult IqType = 2
	IqError  IqType = 3
)

func (t IqType) String() string {
	switch t {
	case IqGet:
		return "GET"
	case IqSet:
		return "SET"
	case IqResult:
		return "RESULT"
	case IqError:
		return "IQ_ERROR"
	}
	return fmt.Sprintf("IqType(%d)", int32(t))
}

// Setting is a name/value pair sent with LoginRequest.
type Setting struct {
	Name  string
	Value string
}

func (m *Setting) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendString(b, 1, m.Name)
	b = pbwire.AppendString(b, 2, m.Value)
	return b, nil
}

func (m *Setting) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.Name = f.String()
		case 2:
			m.Value = f.String()
		}
		return nil
	})
}

// LoginRequest is the first packet a client sends on a new connection.
type LoginRequest struct {
	ID                    string
	Domain                string
	User                  string
	Resource              string
	AuthToken             string
	DeviceID              string
	LastRmqID             int64
	Settings              []*Setting
	ReceivedPersistentIDs []string
	AdaptiveHeartbeat     bool
	UseRmq2               bool
	AccountID             int64
	AuthService           AuthService
	NetworkType           int32
}

func (m *LoginRequest) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendString(b, 1, m.ID)
	b = pbwire.AppendString(b, 2, m.Domain)
	b = pbwire.AppendString(b, 3, m.User)
	b = pbwire.AppendString(b, 4, m.Resource)
	b = pbwire.AppendString(b, 5, m.AuthToken)
	b = pbwire.AppendString(b, 6, m.DeviceID)
	b = pbwire.AppendVarint(b, 7, uint64(m.LastRmqID))
	for _, s := range m.Settings {
		sb, _ := s.Marshal()
		b = pbwire.AppendMessage(b, 8, sb)
	}
	for _, id := range m.ReceivedPersistentIDs {
		b = pbwire.AppendMessage(b, 10, []byte(id))
	}
	b = pbwire.AppendBool(b, 12, m.AdaptiveHeartbeat)
	b = pbwire.AppendBool(b, 14, m.UseRmq2)
	b = pbwire.AppendVarint(b, 15, uint64(m.AccountID))
	b = pbwire.AppendVarint(b, 16, uint64(m.AuthService))
	b = pbwire.AppendVarint(b, 17, uint64(m.NetworkType))
	return b, nil
}

func (m *LoginRequest) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.ID = f.String()
		case 2:
			m.Domain = f.String()
		case 3:
			m.User = f.String()
		case 4:
			m.Resource = f.String()
		case 5:
			m.AuthToken = f.String()
		case 6:
			m.DeviceID = f.String()
		case 7:
			m.LastRmqID = int64(f.Int)
		case 8:
			s := &Setting{}
			if err := s.Unmarshal(f.Bytes); err != nil {
				return fmt.Errorf("setting: %w", err)
			}
			m.Settings = append(m.Settings, s)
		case 10:
			m.ReceivedPersistentIDs = append(m.ReceivedPersistentIDs, f.String())
		case 12:
			m.AdaptiveHeartbeat = f.Bool()
		case 14:
			m.UseRmq2 = f.Bool()
		case 15:
			m.AccountID = int64(f.Int)
		case 16:
			m.AuthService = AuthService(f.Int)
		case 17:
			m.NetworkType = int32(f.Int)
		}
		return nil
	})
}

// ErrorInfo is attached to a failed LoginResponse.
type ErrorInfo struct {
	Code    int32
	Message string
	Type    string
}

func (m *ErrorInfo) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendVarintAlways(b, 1, uint64(m.Code))
	b = pbwire.AppendString(b, 2, m.Message)
	b = pbwire.AppendString(b, 3, m.Type)
	return b, nil
}

func (m *ErrorInfo) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.Code = int32(f.Int)
		case 2:
			m.Message = f.String()
		case 3:
			m.Type = f.String()
		}
		return nil
	})
}

// LoginResponse answers a LoginRequest.
type LoginResponse struct {
	ID              string
	Jid             string
	Error           *ErrorInfo
	StreamID        int32
	ServerTimestamp int64
}

func (m *LoginResponse) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendString(b, 1, m.ID)
	b = pbwire.AppendString(b, 2, m.Jid)
	if m.Error != nil {
		eb, _ := m.Error.Marshal()
		b = pbwire.AppendMessage(b, 3, eb)
	}
	b = pbwire.AppendVarint(b, 5, uint64(m.StreamID))
	b = pbwire.AppendVarint(b, 8, uint64(m.ServerTimestamp))
	return b, nil
}

func (m *LoginResponse) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.ID = f.String()
		case 2:
			m.Jid = f.String()
		case 3:
			m.Error = &ErrorInfo{}
			if err := m.Error.Unmarshal(f.Bytes); err != nil {
				return fmt.Errorf("error info: %w", err)
			}
		case 5:
			m.StreamID = int32(f.Int)
		case 8:
			m.ServerTimestamp = int64(f.Int)
		}
		return nil
	})
}

// HeartbeatPing keeps an idle connection alive.
type HeartbeatPing struct {
	StreamID             int32
	LastStreamIDReceived int32
	Status               int64
}

func (m *HeartbeatPing) Marshal() ([]byte, error) {
	return marshalHeartbeat(m.StreamID, m.LastStreamIDReceived, m.Status), nil
}

func (m *HeartbeatPing) Unmarshal(b []byte) error {
	return unmarshalHeartbeat(b, &m.StreamID, &m.LastStreamIDReceived, &m.Status)
}

// HeartbeatAck answers a HeartbeatPing.
type HeartbeatAck struct {
	StreamID             int32
	LastStreamIDReceived int32
	Status               int64
}

func (m *HeartbeatAck) Marshal() ([]byte, error) {
	return marshalHeartbeat(m.StreamID, m.LastStreamIDReceived, m.Status), nil
}

func (m *HeartbeatAck) Unmarshal(b []byte) error {
	return unmarshalHeartbeat(b, &m.StreamID, &m.LastStreamIDReceived, &m.Status)
}

func marshalHeartbeat(streamID, lastReceived int32, status int64) []byte {
	var b []byte
	b = pbwire.AppendVarint(b, 1, uint64(streamID))
	b = pbwire.AppendVarint(b, 2, uint64(lastReceived))
	b = pbwire.AppendVarint(b, 3, uint64(status))
	return b
}

func unmarshalHeartbeat(b []byte, streamID, lastReceived *int32, status *int64) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			*streamID = int32(f.Int)
		case 2:
			*lastReceived = int32(f.Int)
		case 3:
			*status = int64(f.Int)
		}
		return nil
	})
}

// Close asks the peer to close the connection.
type Close struct{}

func (m *Close) Marshal() ([]byte, error) { return nil, nil }

func (m *Close) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(pbwire.Field) error { return nil })
}

// IqStanza is an info/query exchange. The listener only logs them.
type IqStanza struct {
	RmqID        int64
	Type         IqType
	ID           string
	From         string
	To           string
	PersistentID string
}

func (m *IqStanza) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendVarint(b, 1, uint64(m.RmqID))
	b = pbwire.AppendVarintAlways(b, 2, uint64(m.Type))
	b = pbwire.AppendString(b, 3, m.ID)
	b = pbwire.AppendString(b, 4, m.From)
	b = pbwire.AppendString(b, 5, m.To)
	b = pbwire.AppendString(b, 8, m.PersistentID)
	return b, nil
}

func (m *IqStanza) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.RmqID = int64(f.Int)
		case 2:
			m.Type = IqType(f.Int)
		case 3:
			m.ID = f.String()
		case 4:
			m.From = f.String()
		case 5:
			m.To = f.String()
		case 8:
			m.PersistentID = f.String()
		}
		return nil
	})
}

// AppData is one key/value pair of a data message.
type AppData struct {
	Key   string
	Value string
}

func (m *AppData) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendMessage(b, 1, []byte(m.Key))
	b = pbwire.AppendMessage(b, 2, []byte(m.Value))
	return b, nil
}

func (m *AppData) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.Key = f.String()
		case 2:
			m.Value = f.String()
		}
		return nil
	})
}

// DataMessageStanza carries a push message.
type DataMessageStanza struct {
	ID           string
	From         string
	To           string
	Category     string
	Token        string
	AppData      []*AppData
	PersistentID string
	TTL          int32
	Sent         int64
	RawData      []byte
}

func (m *DataMessageStanza) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendString(b, 2, m.ID)
	b = pbwire.AppendString(b, 3, m.From)
	b = pbwire.AppendString(b, 4, m.To)
	b = pbwire.AppendString(b, 5, m.Category)
	b = pbwire.AppendString(b, 6, m.Token)
	for _, kv := range m.AppData {
		kb, _ := kv.Marshal()
		b = pbwire.AppendMessage(b, 7, kb)
	}
	b = pbwire.AppendString(b, 9, m.PersistentID)
	b = pbwire.AppendVarint(b, 17, uint64(m.TTL))
	b = pbwire.AppendVarint(b, 18, uint64(m.Sent))
	b = pbwire.AppendBytes(b, 21, m.RawData)
	return b, nil
}

func (m *DataMessageStanza) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 2:
			m.ID = f.String()
		case 3:
			m.From = f.String()
		case 4:
			m.To = f.String()
		case 5:
			m.Category = f.String()
		case 6:
			m.Token = f.String()
		case 7:
			kv := &AppData{}
			if err := kv.Unmarshal(f.Bytes); err != nil {
				return fmt.Errorf("app data: %w", err)
			}
			m.AppData = append(m.AppData, kv)
		case 9:
			m.PersistentID = f.String()
		case 17:
			m.TTL = int32(f.Int)
		case 18:
			m.Sent = int64(f.Int)
		case 21:
			m.RawData = append([]byte(nil), f.Bytes...)
		}
		return nil
	})
}

// StreamErrorStanza reports a fatal stream error.
type StreamErrorStanza struct {
	Type string
	Text string
}

func (m *StreamErrorStanza) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendString(b, 1, m.Type)
	b = pbwire.AppendString(b, 2, m.Text)
	return b, nil
}

func (m *StreamErrorStanza) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.Type = f.String()
		case 2:
			m.Text = f.String()
		}
		return nil
	})
}
