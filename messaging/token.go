package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/slush-dev/pushclient"
)

// TokenStatus says what RequestToken found.
type TokenStatus int

const (
	// TokenAvailable: a registration token was issued.
	TokenAvailable TokenStatus = iota + 1
	// TokenNotYetAvailable: the request succeeded but no token exists yet.
	TokenNotYetAvailable
	// TokenPermissionDenied: the service refused this client.
	TokenPermissionDenied
	// TokenTransportError: the request could not be completed.
	TokenTransportError
)

var tokenStatusNames = map[TokenStatus]string{
	TokenAvailable:        "available",
	TokenNotYetAvailable:  "not_yet_available",
	TokenPermissionDenied: "permission_denied",
	TokenTransportError:   "transport_error",
}

func (s TokenStatus) String() string {
	if name, ok := tokenStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TokenStatus(%d)", int(s))
}

// MarshalText renders the status by name in JSON and YAML output.
func (s TokenStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TokenResult is the outcome of RequestToken. Token is set only when Status
// is TokenAvailable; Err is set for the failure statuses and may be set for
// TokenNotYetAvailable.
type TokenResult struct {
	Status TokenStatus `json:"status" yaml:"status"`
	Token  string      `json:"token,omitempty" yaml:"token,omitempty"`
	Err    error       `json:"-" yaml:"-"`
}

// Value returns the token and true when one is available, and "" and false
// for every other outcome.
func (r TokenResult) Value() (string, bool) {
	if r.Status != TokenAvailable || r.Token == "" {
		return "", false
	}
	return r.Token, true
}

// RequestToken asks the transport for a registration token using the
// configured VAPID key. It never returns an error: failures are logged and
// classified into the result.
func (m *Messaging) RequestToken(ctx context.Context) TokenResult {
	token, err := m.transport.GetToken(ctx, m.vapidKey)
	res := classifyToken(token, err)

	switch res.Status {
	case TokenAvailable:
		// Sending the token to the application server is up to the caller.
		m.logger.Info("Registration token available", "token_prefix", tokenPrefix(token))
	case TokenNotYetAvailable:
		m.logger.Info("No registration token available. Request permission to generate one.")
	case TokenPermissionDenied:
		m.logger.Warn("An error occurred while retrieving token: permission denied", "error", err)
	default:
		m.logger.Error("An error occurred while retrieving token", "error", err)
	}
	return res
}

func classifyToken(token string, err error) TokenResult {
	switch {
	case err == nil && token != "":
		return TokenResult{Status: TokenAvailable, Token: token}
	case err == nil, errors.Is(err, pushclient.ErrNoToken):
		return TokenResult{Status: TokenNotYetAvailable, Err: err}
	case errors.Is(err, pushclient.ErrPermissionDenied):
		return TokenResult{Status: TokenPermissionDenied, Err: err}
	default:
		return TokenResult{Status: TokenTransportError, Err: err}
	}
}

// tokenPrefix is the part of a token that is safe to log.
func tokenPrefix(token string) string {
	if len(token) <= 20 {
		return token
	}
	return token[:20]
}
