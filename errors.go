package pushclient

import "errors"

var (
	// ErrPermissionDenied reports that the push service refused to issue a
	// token for this client (bad credentials, wrong sender, revoked app).
	ErrPermissionDenied = errors.New("push permission denied")

	// ErrNoToken reports that no registration token is available yet.
	ErrNoToken = errors.New("no registration token available")

	// ErrTransport reports a failure talking to the push service.
	ErrTransport = errors.New("push transport error")
)
