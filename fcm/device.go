package fcm

// AndroidDeviceInfo is the device identity sent with the GCM checkin and
// registration requests.
type AndroidDeviceInfo struct {
	// BuildFingerprint format: brand/product/device:version/build_id/build_number:user/release-keys
	BuildFingerprint string

	SDKVersion int
	GMSVersion int // Google Play Services version

	Device       string // codename, e.g. "panther"
	Model        string
	Hardware     string
	Brand        string
	Manufacturer string
	Product      string
	Bootloader   string
	Radio        string

	// BuildTime is Build.TIME in seconds since epoch.
	BuildTime int64

	// ClientVersion is reported as the instance-id library version.
	ClientVersion string
}

// DefaultAndroidDevice returns a Pixel 7 on Android 13 with a mid-2023 Play
// Services build.
func DefaultAndroidDevice() AndroidDeviceInfo {
	return AndroidDeviceInfo{
		BuildFingerprint: "google/panther/panther:13/TQ3A.230805.001/10316531:user/release-keys",
		SDKVersion:       33,
		GMSVersion:       241516037,
		Device:           "panther",
		Model:            "Pixel 7",
		Hardware:         "panther",
		Brand:            "google",
		Manufacturer:     "Google",
		Product:          "panther",
		Bootloader:       "slider-1.2-9819352",
		Radio:            "g5300g-230511-230925-B-10484716",
		BuildTime:        1691193600,
		ClientVersion:    "fcm-23.1.2",
	}
}
