package fcm

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/slush-dev/pushclient/internal/checkinpb"
)

// gcmCheckinURL and gcmRegisterURL are package-level vars so tests can override them.
var (
	gcmCheckinURL  = "https://android.clients.google.com/checkin"
	gcmRegisterURL = "https://android.clients.google.com/c2dm/register3"
)

// gcmCheckin performs an Android GCM checkin. If androidID and securityToken
// are non-zero, this is a re-checkin with existing credentials.
func gcmCheckin(ctx context.Context, httpClient *http.Client, androidID, securityToken uint64, device AndroidDeviceInfo) (uint64, uint64, error) {
	req := &checkinpb.AndroidCheckinRequest{
		Checkin: &checkinpb.AndroidCheckinProto{
			Build: &checkinpb.AndroidBuildProto{
				Fingerprint:        device.BuildFingerprint,
				Hardware:           device.Hardware,
				Brand:              device.Brand,
				Radio:              device.Radio,
				Bootloader:         device.Bootloader,
				ClientID:           "android-google",
				Time:               device.BuildTime,
				PackageVersionCode: int32(device.GMSVersion),
				Device:             device.Device,
				SDKVersion:         int32(device.SDKVersion),
				Model:              device.Model,
				Manufacturer:       device.Manufacturer,
				Product:            device.Product,
			},
			Type: checkinpb.DeviceAndroidOS,
		},
		Version:  3,
		Locale:   "en_US",
		TimeZone: "America/New_York",
	}
	if androidID != 0 {
		req.ID = int64(androidID)
		req.SecurityToken = securityToken
	}

	body, err := req.Marshal()
	if err != nil {
		return 0, 0, fmt.Errorf("gcm checkin: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, gcmCheckinURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("gcm checkin: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return 0, 0, &RegistrationError{Op: "checkin", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, &RegistrationError{Op: "checkin", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, &RegistrationError{Op: "checkin", StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var checkinResp checkinpb.AndroidCheckinResponse
	if err := checkinResp.Unmarshal(respBody); err != nil {
		return 0, 0, &RegistrationError{Op: "checkin", StatusCode: resp.StatusCode, Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if checkinResp.AndroidID == 0 || checkinResp.SecurityToken == 0 {
		return 0, 0, &RegistrationError{Op: "checkin", StatusCode: resp.StatusCode, Body: "response without device credentials"}
	}
	return checkinResp.AndroidID, checkinResp.SecurityToken, nil
}

// generateInstanceID returns a random 11-character hex string, the legacy GCM
// instance ID format.
func generateInstanceID() (string, error) {
	b := make([]byte, 6)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate instance ID: %w", err)
	}
	return hex.EncodeToString(b)[:11], nil
}

// registerParams is everything gcmRegister sends to register3.
type registerParams struct {
	AndroidID     uint64
	SecurityToken uint64
	AppPackage    string
	AppCert       string
	Subtype       string
	Sender        string
	GMPAppID      string
	Installation  *installation
	Device        AndroidDeviceInfo
}

// gcmRegister registers with the c2dm/register3 endpoint and returns the
// registration token. A "token=" response with an empty value returns "" and
// no error.
func gcmRegister(ctx context.Context, httpClient *http.Client, p registerParams) (string, error) {
	form := url.Values{
		"app":     {p.AppPackage},
		"sender":  {p.Sender},
		"device":  {strconv.FormatUint(p.AndroidID, 10)},
		"gcm_ver": {strconv.Itoa(p.Device.GMSVersion)},
		"X-osv":   {strconv.Itoa(p.Device.SDKVersion)},
		"X-gmsv":  {strconv.Itoa(p.Device.GMSVersion)},
		"X-cliv":  {p.Device.ClientVersion},
	}
	if p.AppCert != "" {
		form.Set("cert", p.AppCert)
	}
	if p.Subtype != "" {
		form.Set("X-subtype", p.Subtype)
	}

	if p.Installation != nil {
		form.Set("X-scope", "*")
		form.Set("X-appid", p.Installation.FID)
		form.Set("X-Goog-Firebase-Installations-Auth", p.Installation.AuthToken)
		form.Set("X-gmp_app_id", p.GMPAppID)
	} else {
		instanceID, err := generateInstanceID()
		if err != nil {
			return "", err
		}
		form.Set("X-scope", "GCM")
		form.Set("X-appid", instanceID)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, gcmRegisterURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("gcm register: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", fmt.Sprintf("AidLogin %d:%d", p.AndroidID, p.SecurityToken))
	httpReq.Header.Set("User-Agent", fmt.Sprintf("Android-GCM/1.5 (%s %s)", p.Device.Device, p.Device.Model))
	httpReq.Header.Set("app", p.AppPackage)

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return "", &RegistrationError{Op: "register", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RegistrationError{Op: "register", StatusCode: resp.StatusCode, Err: err}
	}
	body := strings.TrimSpace(string(respBody))

	if code, found := strings.CutPrefix(body, "Error="); found {
		return "", &RegistrationError{Op: "register", StatusCode: resp.StatusCode, Code: code, Body: body}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &RegistrationError{Op: "register", StatusCode: resp.StatusCode, Body: body}
	}
	if token, found := strings.CutPrefix(body, "token="); found {
		return token, nil
	}
	return "", &RegistrationError{Op: "register", StatusCode: resp.StatusCode, Body: "unexpected response: " + body}
}
