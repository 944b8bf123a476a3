package fcm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slush-dev/pushclient"
	"github.com/slush-dev/pushclient/internal/checkinpb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// overrideURL points a package-level endpoint at srv for the duration of t.
func overrideURL(t *testing.T, target *string, url string) {
	t.Helper()
	orig := *target
	*target = url
	t.Cleanup(func() { *target = orig })
}

func checkinHandler(t *testing.T, androidID, securityToken uint64, received *checkinpb.AndroidCheckinRequest) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-protobuf", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		if received != nil {
			require.NoError(t, received.Unmarshal(body))
		}

		resp := &checkinpb.AndroidCheckinResponse{StatsOk: true, AndroidID: androidID, SecurityToken: securityToken}
		data, err := resp.Marshal()
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write(data)
	}
}

func TestGCMCheckin(t *testing.T) {
	var req checkinpb.AndroidCheckinRequest
	srv := httptest.NewServer(checkinHandler(t, 123456789, 987654321, &req))
	defer srv.Close()
	overrideURL(t, &gcmCheckinURL, srv.URL)

	device := DefaultAndroidDevice()
	androidID, securityToken, err := gcmCheckin(context.Background(), srv.Client(), 0, 0, device)
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789), androidID)
	assert.Equal(t, uint64(987654321), securityToken)

	require.NotNil(t, req.Checkin)
	assert.Equal(t, checkinpb.DeviceAndroidOS, req.Checkin.Type)
	assert.Zero(t, req.ID)
	assert.Equal(t, int32(3), req.Version)
	assert.Equal(t, "en_US", req.Locale)
	assert.Equal(t, "America/New_York", req.TimeZone)

	build := req.Checkin.Build
	require.NotNil(t, build)
	assert.Equal(t, device.BuildFingerprint, build.Fingerprint)
	assert.Equal(t, device.Model, build.Model)
	assert.Equal(t, int32(device.SDKVersion), build.SDKVersion)
	assert.Equal(t, int32(device.GMSVersion), build.PackageVersionCode)
	assert.Equal(t, "android-google", build.ClientID)
}

func TestGCMCheckin_Recheckin(t *testing.T) {
	var req checkinpb.AndroidCheckinRequest
	srv := httptest.NewServer(checkinHandler(t, 111, 222, &req))
	defer srv.Close()
	overrideURL(t, &gcmCheckinURL, srv.URL)

	androidID, securityToken, err := gcmCheckin(context.Background(), srv.Client(), 111, 222, DefaultAndroidDevice())
	require.NoError(t, err)
	assert.Equal(t, uint64(111), androidID)
	assert.Equal(t, uint64(222), securityToken)
	assert.Equal(t, int64(111), req.ID)
	assert.Equal(t, uint64(222), req.SecurityToken)
}

func TestGCMCheckin_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
	}))
	defer srv.Close()
	overrideURL(t, &gcmCheckinURL, srv.URL)

	_, _, err := gcmCheckin(context.Background(), srv.Client(), 0, 0, DefaultAndroidDevice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.ErrorIs(t, err, pushclient.ErrTransport)
}

func TestGCMCheckin_MissingCredentials(t *testing.T) {
	srv := httptest.NewServer(checkinHandler(t, 0, 0, nil))
	defer srv.Close()
	overrideURL(t, &gcmCheckinURL, srv.URL)

	_, _, err := gcmCheckin(context.Background(), srv.Client(), 0, 0, DefaultAndroidDevice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without device credentials")
}

func TestGCMRegister_Legacy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "AidLogin 123:456", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultAppPackage, r.Header.Get("app"))
		assert.Contains(t, r.Header.Get("User-Agent"), "Android-GCM/1.5")

		require.NoError(t, r.ParseForm())
		assert.Equal(t, DefaultAppPackage, r.PostForm.Get("app"))
		assert.Equal(t, "1234567890", r.PostForm.Get("sender"))
		assert.Equal(t, "123", r.PostForm.Get("device"))
		assert.Equal(t, "GCM", r.PostForm.Get("X-scope"))
		assert.Equal(t, "wp:pushclient#abc", r.PostForm.Get("X-subtype"))
		assert.Regexp(t, "^[0-9a-f]{11}$", r.PostForm.Get("X-appid"))
		assert.NotEmpty(t, r.PostForm.Get("gcm_ver"))
		assert.NotEmpty(t, r.PostForm.Get("X-osv"))
		assert.NotEmpty(t, r.PostForm.Get("X-cliv"))
		assert.Empty(t, r.PostForm.Get("cert"))
		assert.Empty(t, r.PostForm.Get("X-Goog-Firebase-Installations-Auth"))

		fmt.Fprint(w, "token=test-fcm-token-xyz \n")
	}))
	defer srv.Close()
	overrideURL(t, &gcmRegisterURL, srv.URL)

	token, err := gcmRegister(context.Background(), srv.Client(), registerParams{
		AndroidID:     123,
		SecurityToken: 456,
		AppPackage:    DefaultAppPackage,
		Subtype:       "wp:pushclient#abc",
		Sender:        "1234567890",
		Device:        DefaultAndroidDevice(),
	})
	require.NoError(t, err)
	assert.Equal(t, "test-fcm-token-xyz", token)
}

func TestGCMRegister_WithInstallation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "*", r.PostForm.Get("X-scope"))
		assert.Equal(t, "fid-1", r.PostForm.Get("X-appid"))
		assert.Equal(t, "auth-token", r.PostForm.Get("X-Goog-Firebase-Installations-Auth"))
		assert.Equal(t, "1:1:web:1", r.PostForm.Get("X-gmp_app_id"))
		assert.Equal(t, "com.example.app", r.PostForm.Get("app"))
		assert.Equal(t, "abcdef", r.PostForm.Get("cert"))
		fmt.Fprint(w, "token=with-installation")
	}))
	defer srv.Close()
	overrideURL(t, &gcmRegisterURL, srv.URL)

	token, err := gcmRegister(context.Background(), srv.Client(), registerParams{
		AndroidID:     1,
		SecurityToken: 2,
		AppPackage:    "com.example.app",
		AppCert:       "abcdef",
		Sender:        "BOvapid",
		GMPAppID:      "1:1:web:1",
		Installation:  &installation{FID: "fid-1", AuthToken: "auth-token"},
		Device:        DefaultAndroidDevice(),
	})
	require.NoError(t, err)
	assert.Equal(t, "with-installation", token)
}

func TestGCMRegister_EmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "token=")
	}))
	defer srv.Close()
	overrideURL(t, &gcmRegisterURL, srv.URL)

	token, err := gcmRegister(context.Background(), srv.Client(), registerParams{Sender: "1", Device: DefaultAndroidDevice()})
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestGCMRegister_ErrorCodes(t *testing.T) {
	tests := []struct {
		body string
		want error
	}{
		{"Error=PHONE_REGISTRATION_ERROR", pushclient.ErrNoToken},
		{"Error=AUTHENTICATION_FAILED", pushclient.ErrPermissionDenied},
		{"Error=INVALID_SENDER", pushclient.ErrPermissionDenied},
		{"Error=SERVICE_NOT_AVAILABLE", pushclient.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()
			overrideURL(t, &gcmRegisterURL, srv.URL)

			_, err := gcmRegister(context.Background(), srv.Client(), registerParams{Sender: "1", Device: DefaultAndroidDevice()})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var regErr *RegistrationError
			require.True(t, errors.As(err, &regErr))
			assert.Equal(t, "register", regErr.Op)
		})
	}
}

func TestGCMRegister_HTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, pushclient.ErrPermissionDenied},
		{http.StatusForbidden, pushclient.ErrPermissionDenied},
		{http.StatusServiceUnavailable, pushclient.ErrTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer srv.Close()
			overrideURL(t, &gcmRegisterURL, srv.URL)

			_, err := gcmRegister(context.Background(), srv.Client(), registerParams{Sender: "1", Device: DefaultAndroidDevice()})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), fmt.Sprint(tt.status))
		})
	}
}

func TestGCMRegister_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	overrideURL(t, &gcmRegisterURL, srv.URL)

	_, err := gcmRegister(context.Background(), http.DefaultClient, registerParams{Sender: "1", Device: DefaultAndroidDevice()})
	require.Error(t, err)
	assert.ErrorIs(t, err, pushclient.ErrTransport)
	assert.NotErrorIs(t, err, pushclient.ErrPermissionDenied)
}

func TestGenerateInstanceID(t *testing.T) {
	id, err := generateInstanceID()
	require.NoError(t, err)
	assert.Regexp(t, "^[0-9a-f]{11}$", id)
}
