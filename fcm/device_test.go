package fcm

import (
	"regexp"
	"testing"
)

func TestDefaultAndroidDevice(t *testing.T) {
	device := DefaultAndroidDevice()

	// brand/product/device:version/build_id/build_number:user/release-keys
	fingerprintPattern := regexp.MustCompile(`^[^/]+/[^/]+/[^:]+:[0-9]+/[^/]+/[^:]+:(user|userdebug)/(release-keys|dev-keys)$`)
	if !fingerprintPattern.MatchString(device.BuildFingerprint) {
		t.Errorf("BuildFingerprint has invalid format: %s", device.BuildFingerprint)
	}

	if device.SDKVersion < 24 || device.SDKVersion > 40 {
		t.Errorf("SDKVersion should be between 24 and 40, got: %d", device.SDKVersion)
	}
	if device.GMSVersion == 0 {
		t.Error("GMSVersion should not be zero")
	}
	if device.Device == "" || device.Model == "" {
		t.Error("Device and Model should not be empty")
	}
	if device.ClientVersion == "" {
		t.Error("ClientVersion should not be empty")
	}
}
