// Package checkinpb encodes and decodes the Android checkin request and
// response used to obtain GCM device credentials.
package checkinpb

import (
	"fmt"

	"github.com/slush-dev/pushclient/internal/pbwire"
)

// DeviceType is the kind of device performing a checkin.
type DeviceType int32

const (
	DeviceAndroidOS     DeviceType = 1
	DeviceIOSOS         DeviceType = 2
	DeviceChromeBrowser DeviceType = 3
	DeviceChromeOS      DeviceType = 4
)

// AndroidBuildProto describes the build of the checking-in device.
type AndroidBuildProto struct {
	Fingerprint        string
	Hardware           string
	Brand              string
	Radio              string
	Bootloader         string
	ClientID           string
	Time               int64
	PackageVersionCode int32
	Device             string
	SDKVersion         int32
	Model              string
	Manufacturer       string
	Product            string
	OtaInstalled       bool
}

func (m *AndroidBuildProto) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendString(b, 1, m.Fingerprint)
	b = pbwire.AppendString(b, 2, m.Hardware)
	b = pbwire.AppendString(b, 3, m.Brand)
	b = pbwire.AppendString(b, 4, m.Radio)
	b = pbwire.AppendString(b, 5, m.Bootloader)
	b = pbwire.AppendString(b, 6, m.ClientID)
	b = pbwire.AppendVarint(b, 7, uint64(m.Time))
	b = pbwire.AppendVarint(b, 8, uint64(m.PackageVersionCode))
	b = pbwire.AppendString(b, 9, m.Device)
	b = pbwire.AppendVarint(b, 10, uint64(m.SDKVersion))
	b = pbwire.AppendString(b, 11, m.Model)
	b = pbwire.AppendString(b, 12, m.Manufacturer)
	b = pbwire.AppendString(b, 13, m.Product)
	b = pbwire.AppendBool(b, 14, m.OtaInstalled)
	return b, nil
}

func (m *AndroidBuildProto) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.Fingerprint = f.String()
		case 2:
			m.Hardware = f.String()
		case 3:
			m.Brand = f.String()
		case 4:
			m.Radio = f.String()
		case 5:
			m.Bootloader = f.String()
		case 6:
			m.ClientID = f.String()
		case 7:
			m.Time = int64(f.Int)
		case 8:
			m.PackageVersionCode = int32(f.Int)
		case 9:
			m.Device = f.String()
		case 10:
			m.SDKVersion = int32(f.Int)
		case 11:
			m.Model = f.String()
		case 12:
			m.Manufacturer = f.String()
		case 13:
			m.Product = f.String()
		case 14:
			m.OtaInstalled = f.Bool()
		}
		return nil
	})
}

// AndroidCheckinProto is the device section of a checkin request.
type AndroidCheckinProto struct {
	Build           *AndroidBuildProto
	LastCheckinMsec int64
	Type            DeviceType
}

func (m *AndroidCheckinProto) Marshal() ([]byte, error) {
	var b []byte
	if m.Build != nil {
		bb, err := m.Build.Marshal()
		if err != nil {
			return nil, err
		}
		b = pbwire.AppendMessage(b, 1, bb)
	}
	b = pbwire.AppendVarint(b, 2, uint64(m.LastCheckinMsec))
	b = pbwire.AppendVarint(b, 12, uint64(m.Type))
	return b, nil
}

func (m *AndroidCheckinProto) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.Build = &AndroidBuildProto{}
			if err := m.Build.Unmarshal(f.Bytes); err != nil {
				return fmt.Errorf("build: %w", err)
			}
		case 2:
			m.LastCheckinMsec = int64(f.Int)
		case 12:
			m.Type = DeviceType(f.Int)
		}
		return nil
	})
}

// AndroidCheckinRequest is posted to the checkin endpoint. ID and
// SecurityToken are zero on a first checkin.
type AndroidCheckinRequest struct {
	ID               int64
	Digest           string
	Checkin          *AndroidCheckinProto
	Locale           string
	TimeZone         string
	SecurityToken    uint64
	Version          int32
	Fragment         int32
	UserSerialNumber int32
}

func (m *AndroidCheckinRequest) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendVarint(b, 2, uint64(m.ID))
	b = pbwire.AppendString(b, 3, m.Digest)
	checkin := m.Checkin
	if checkin == nil {
		checkin = &AndroidCheckinProto{}
	}
	cb, err := checkin.Marshal()
	if err != nil {
		return nil, fmt.Errorf("checkin: %w", err)
	}
	b = pbwire.AppendMessage(b, 4, cb)
	b = pbwire.AppendString(b, 6, m.Locale)
	b = pbwire.AppendString(b, 12, m.TimeZone)
	b = pbwire.AppendFixed64(b, 13, m.SecurityToken)
	b = pbwire.AppendVarintAlways(b, 14, uint64(m.Version))
	b = pbwire.AppendVarintAlways(b, 20, uint64(m.Fragment))
	b = pbwire.AppendVarintAlways(b, 22, uint64(m.UserSerialNumber))
	return b, nil
}

func (m *AndroidCheckinRequest) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 2:
			m.ID = int64(f.Int)
		case 3:
			m.Digest = f.String()
		case 4:
			m.Checkin = &AndroidCheckinProto{}
			if err := m.Checkin.Unmarshal(f.Bytes); err != nil {
				return fmt.Errorf("checkin: %w", err)
			}
		case 6:
			m.Locale = f.String()
		case 12:
			m.TimeZone = f.String()
		case 13:
			m.SecurityToken = f.Int
		case 14:
			m.Version = int32(f.Int)
		case 20:
			m.Fragment = int32(f.Int)
		case 22:
			m.UserSerialNumber = int32(f.Int)
		}
		return nil
	})
}

// AndroidCheckinResponse carries the device credentials.
type AndroidCheckinResponse struct {
	StatsOk       bool
	TimeMsec      int64
	Digest        string
	AndroidID     uint64
	SecurityToken uint64
	VersionInfo   string
}

func (m *AndroidCheckinResponse) Marshal() ([]byte, error) {
	var b []byte
	b = pbwire.AppendBool(b, 1, m.StatsOk)
	b = pbwire.AppendVarint(b, 3, uint64(m.TimeMsec))
	b = pbwire.AppendString(b, 4, m.Digest)
	b = pbwire.AppendFixed64(b, 7, m.AndroidID)
	b = pbwire.AppendFixed64(b, 8, m.SecurityToken)
	b = pbwire.AppendString(b, 11, m.VersionInfo)
	return b, nil
}

func (m *AndroidCheckinResponse) Unmarshal(b []byte) error {
	return pbwire.Range(b, func(f pbwire.Field) error {
		switch f.Num {
		case 1:
			m.StatsOk = f.Bool()
		case 3:
			m.TimeMsec = int64(f.Int)
		case 4:
			m.Digest = f.String()
		case 7:
			m.AndroidID = f.Int
		case 8:
			m.SecurityToken = f.Int
		case 11:
			m.VersionInfo = f.String()
		}
		return nil
	})
}
