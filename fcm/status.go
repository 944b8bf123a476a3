package fcm

import (
	"errors"
	"os"
)

// DeviceStatus summarizes the device state stored in a session dir.
type DeviceStatus struct {
	StatePath       string `yaml:"state_path"`
	CheckedIn       bool   `yaml:"checked_in"`
	AndroidID       uint64 `yaml:"android_id,omitempty"`
	InstallationFID string `yaml:"installation_fid,omitempty"`
	PersistentIDs   int    `yaml:"persistent_ids"`
}

// ReadDeviceStatus reports what a client built on sessionDir would resume
// from. A session dir without device state yields a zero status (not
// checked in) and no error.
func ReadDeviceStatus(sessionDir string) (DeviceStatus, error) {
	store := stateStore{dir: sessionDir}
	status := DeviceStatus{StatePath: store.path()}

	state, err := store.load()
	if errors.Is(err, os.ErrNotExist) {
		return status, nil
	}
	if err != nil {
		return status, err
	}
	status.CheckedIn = state.checkedIn()
	if status.CheckedIn {
		status.AndroidID = state.AndroidID
	}
	status.InstallationFID = state.InstallationFID
	status.PersistentIDs = len(state.PersistentIDs)
	return status, nil
}
