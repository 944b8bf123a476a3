package cmd

import (
	"fmt"
	"testing"

	"github.com/slush-dev/pushclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestTokenCommand_Available(t *testing.T) {
	clearEnv(t)
	useStubMessaging(t, &stubTransport{token: "abc123"})

	out, err := runCLI(t, "token")
	require.NoError(t, err)
	assert.Equal(t, "Registration token: abc123\n", out)
}

func TestTokenCommand_YAML(t *testing.T) {
	clearEnv(t)
	useStubMessaging(t, &stubTransport{token: "abc123"})

	out, err := runCLI(t, "--yaml", "token")
	require.NoError(t, err)

	var row map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &row))
	assert.Equal(t, map[string]string{"status": "available", "token": "abc123"}, row)
}

func TestTokenCommand_NotYetAvailable(t *testing.T) {
	clearEnv(t)
	useStubMessaging(t, &stubTransport{})

	out, err := runCLI(t, "token")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not_yet_available")
	assert.Equal(t, "No registration token available. Request permission to generate one.\n", out)
}

func TestTokenCommand_PermissionDenied(t *testing.T) {
	clearEnv(t)
	useStubMessaging(t, &stubTransport{err: fmt.Errorf("register: %w", pushclient.ErrPermissionDenied)})

	out, err := runCLI(t, "--yaml", "token")
	require.Error(t, err)

	var row map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &row))
	assert.Equal(t, "permission_denied", row["status"])
	assert.Contains(t, row["error"], "permission denied")
	assert.NotContains(t, row, "token")
}
