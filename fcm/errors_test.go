package fcm

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/slush-dev/pushclient"
	"github.com/stretchr/testify/assert"
)

func TestRegistrationError_Class(t *testing.T) {
	tests := []struct {
		name string
		err  *RegistrationError
		want error
	}{
		{"network", &RegistrationError{Op: "register", Err: io.ErrUnexpectedEOF}, pushclient.ErrTransport},
		{"auth failed", &RegistrationError{Op: "register", Code: "AUTHENTICATION_FAILED"}, pushclient.ErrPermissionDenied},
		{"missing cert", &RegistrationError{Op: "register", Code: "MISSING_CERTIFICATE"}, pushclient.ErrPermissionDenied},
		{"phone registration", &RegistrationError{Op: "register", Code: "PHONE_REGISTRATION_ERROR"}, pushclient.ErrNoToken},
		{"forbidden", &RegistrationError{Op: "installations", StatusCode: http.StatusForbidden}, pushclient.ErrPermissionDenied},
		{"server error", &RegistrationError{Op: "checkin", StatusCode: http.StatusBadGateway}, pushclient.ErrTransport},
		{"unknown code", &RegistrationError{Op: "register", Code: "TOO_MANY_REGISTRATIONS"}, pushclient.ErrTransport},
	}
	classes := []error{pushclient.ErrTransport, pushclient.ErrPermissionDenied, pushclient.ErrNoToken}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			for _, class := range classes {
				assert.Equal(t, class == tt.want, errors.Is(wrapped, class), "class %v", class)
			}
		})
	}
}

func TestRegistrationError_Message(t *testing.T) {
	assert.Equal(t, "fcm register: INVALID_SENDER", (&RegistrationError{Op: "register", Code: "INVALID_SENDER"}).Error())
	assert.Equal(t, "fcm checkin: HTTP 500: boom", (&RegistrationError{Op: "checkin", StatusCode: 500, Body: "boom"}).Error())
	assert.Equal(t, "fcm listen: unexpected EOF", (&RegistrationError{Op: "listen", Err: io.ErrUnexpectedEOF}).Error())

	err := &RegistrationError{Op: "listen", Err: io.ErrUnexpectedEOF}
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
