package fcm

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/slush-dev/pushclient"
)

// installationsBaseURL is a package-level var so tests can override it.
var installationsBaseURL = "https://firebaseinstallations.googleapis.com/v1"

const (
	installationsSDKVersion = "w:0.6.4"

	// authTokenRefreshWindow: an auth token closer than this to expiry is
	// regenerated before use.
	authTokenRefreshWindow = time.Hour
)

// installation is a Firebase Installation and its current auth token.
type installation struct {
	FID          string
	RefreshToken string
	AuthToken    string
	ExpiresAt    time.Time
}

func (i *installation) valid(now time.Time) bool {
	return i != nil && i.AuthToken != "" && now.Add(authTokenRefreshWindow).Before(i.ExpiresAt)
}

// generateFID returns a random Firebase Installation ID: 17 random bytes with
// the 0111 prefix in the first four bits, base64url encoded and cut to 22
// characters.
func generateFID() (string, error) {
	b := make([]byte, 17)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate FID: %w", err)
	}
	b[0] = 0b01110000 | (b[0] & 0b00001111)
	return base64.URLEncoding.EncodeToString(b)[:22], nil
}

type authTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn string `json:"expiresIn"`
}

type createInstallationResponse struct {
	Name         string            `json:"name"`
	FID          string            `json:"fid"`
	RefreshToken string            `json:"refreshToken"`
	AuthToken    authTokenResponse `json:"authToken"`
}

type googleAPIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// createInstallation registers fid with the Firebase Installations API.
func createInstallation(ctx context.Context, httpClient *http.Client, cfg pushclient.Config, fid string, now time.Time) (*installation, error) {
	endpoint := fmt.Sprintf("%s/projects/%s/installations", installationsBaseURL, url.PathEscape(cfg.ProjectID))
	body := map[string]string{
		"fid":         fid,
		"authVersion": "FIS_v2",
		"appId":       cfg.AppID,
		"sdkVersion":  installationsSDKVersion,
	}

	var resp createInstallationResponse
	if err := installationsRequest(ctx, httpClient, endpoint, cfg.APIKey, "", body, &resp); err != nil {
		return nil, err
	}
	if resp.FID == "" {
		resp.FID = fid
	}
	return &installation{
		FID:          resp.FID,
		RefreshToken: resp.RefreshToken,
		AuthToken:    resp.AuthToken.Token,
		ExpiresAt:    authTokenExpiry(resp.AuthToken.Token, resp.AuthToken.ExpiresIn, now),
	}, nil
}

// generateAuthToken issues a fresh auth token for an existing installation.
func generateAuthToken(ctx context.Context, httpClient *http.Client, cfg pushclient.Config, inst installation, now time.Time) (*installation, error) {
	endpoint := fmt.Sprintf("%s/projects/%s/installations/%s/authTokens:generate",
		installationsBaseURL, url.PathEscape(cfg.ProjectID), url.PathEscape(inst.FID))
	body := map[string]any{
		"installation": map[string]string{
			"sdkVersion": installationsSDKVersion,
			"appId":      cfg.AppID,
		},
	}

	var resp authTokenResponse
	if err := installationsRequest(ctx, httpClient, endpoint, cfg.APIKey, inst.RefreshToken, body, &resp); err != nil {
		return nil, err
	}
	inst.AuthToken = resp.Token
	inst.ExpiresAt = authTokenExpiry(resp.Token, resp.ExpiresIn, now)
	return &inst, nil
}

func installationsRequest(ctx context.Context, httpClient *http.Client, endpoint, apiKey, refreshToken string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("installations: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("installations: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)
	if refreshToken != "" {
		req.Header.Set("Authorization", "FIS_v2 "+refreshToken)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return &RegistrationError{Op: "installations", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &RegistrationError{Op: "installations", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		regErr := &RegistrationError{Op: "installations", StatusCode: resp.StatusCode, Body: string(respBody)}
		var apiErr googleAPIError
		if json.Unmarshal(respBody, &apiErr) == nil {
			regErr.Code = apiErr.Error.Status
		}
		return regErr
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &RegistrationError{Op: "installations", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// authTokenExpiry reads the exp claim of an installation auth token. The token
// is not verified; the claim only decides when to ask for a new one. When the
// token carries no usable claim, expiresIn ("604800s") is used instead.
func authTokenExpiry(token, expiresIn string, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if d, err := time.ParseDuration(expiresIn); err == nil {
		return now.Add(d)
	}
	return now
}
