package fcm

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// deviceStateFile is the name of the device state file in the session dir.
const deviceStateFile = "fcm_device.json"

// deviceState is what survives a restart. The registration token itself is
// never written; it is requested again on every start.
type deviceState struct {
	AndroidID     uint64 `json:"androidId"`
	SecurityToken uint64 `json:"securityToken"`
	Subtype       string `json:"subtype,omitempty"`

	InstallationFID          string `json:"installationFid,omitempty"`
	InstallationRefreshToken string `json:"installationRefreshToken,omitempty"`

	PersistentIDs []string `json:"persistentIds"`
}

func (s *deviceState) checkedIn() bool {
	return s != nil && s.AndroidID != 0 && s.SecurityToken != 0
}

// stateStore reads and writes deviceState under an advisory file lock so two
// processes sharing a session dir see whole files.
type stateStore struct {
	dir string
}

func (s stateStore) path() string { return filepath.Join(s.dir, deviceStateFile) }

func (s stateStore) lock() (*flock.Flock, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}
	fl := flock.New(s.path() + ".lock")
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("locking FCM device state: %w", err)
	}
	return fl, nil
}

// load returns the stored state. A missing file yields an error matching
// os.ErrNotExist.
func (s stateStore) load() (*deviceState, error) {
	if _, err := os.Stat(s.path()); err != nil {
		return nil, err
	}
	fl, err := s.lock()
	if err != nil {
		return nil, err
	}
	defer fl.Unlock()

	data, err := os.ReadFile(s.path())
	if err != nil {
		return nil, err
	}
	var state deviceState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing FCM device state: %w", err)
	}
	return &state, nil
}

func (s stateStore) save(state *deviceState) error {
	if state == nil {
		return fmt.Errorf("no device state to save")
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing FCM device state: %w", err)
	}

	fl, err := s.lock()
	if err != nil {
		return err
	}
	defer fl.Unlock()

	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing FCM device state: %w", err)
	}
	if err := os.Rename(tmp, s.path()); err != nil {
		return fmt.Errorf("writing FCM device state: %w", err)
	}
	return nil
}
