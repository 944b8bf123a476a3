package fcm

import (
	"fmt"
	"net/http"

	"github.com/slush-dev/pushclient"
)

// RegistrationError is returned when checkin, installation or registration
// fails. It matches pushclient.ErrPermissionDenied, pushclient.ErrNoToken or
// pushclient.ErrTransport under errors.Is.
type RegistrationError struct {
	Op         string // "checkin", "installations" or "register"
	StatusCode int    // HTTP status, 0 when the request never completed
	Code       string // GCM "Error=" code or Google API status
	Body       string
	Err        error // network or decoding failure
}

func (e *RegistrationError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fcm %s: %v", e.Op, e.Err)
	case e.Code != "":
		return fmt.Sprintf("fcm %s: %s", e.Op, e.Code)
	default:
		return fmt.Sprintf("fcm %s: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
	}
}

func (e *RegistrationError) Unwrap() error { return e.Err }

// Is reports whether the error belongs to the class target.
func (e *RegistrationError) Is(target error) bool {
	return target == e.class()
}

// permissionCodes are the GCM and Google API codes that mean the service
// refused this client or its credentials.
var permissionCodes = map[string]bool{
	"AUTHENTICATION_FAILED": true,
	"INVALID_SENDER":        true,
	"MISSING_CERTIFICATE":   true,
	"INVALID_PARAMETERS":    true,
	"PERMISSION_DENIED":     true,
	"UNAUTHENTICATED":       true,
	"INVALID_ARGUMENT":      true,
}

// noTokenCodes mean the device is not ready to receive a token yet.
var noTokenCodes = map[string]bool{
	"PHONE_REGISTRATION_ERROR": true,
}

func (e *RegistrationError) class() error {
	switch {
	case e.Err != nil:
		return pushclient.ErrTransport
	case permissionCodes[e.Code]:
		return pushclient.ErrPermissionDenied
	case noTokenCodes[e.Code]:
		return pushclient.ErrNoToken
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return pushclient.ErrPermissionDenied
	default:
		return pushclient.ErrTransport
	}
}
