package sshclient

import (
	"testing"

	"github.com/ankouros/rshell/internal/model"
	"github.com/stretchr/testify/require"
)

func TestAuthMethodPassword(t *testing.T) {
	host := model.Host{
		Auth: model.AuthConfig{Method: model.AuthPassword},
	}

	t.Run("no provider", func(t *testing.T) {
		_, _, err := authMethod(host, nil)
		require.Error(t, err)
	})

	t.Run("with provider", func(t *testing.T) {
		called := 0
		auth, cleanup, err := authMethod(host, func() (string, error) {
			called++
			return "secret", nil
		})
		require.NoError(t, err)
		require.NotNil(t, auth)
		require.Nil(t, cleanup)
		require.Equal(t, 1, called)
	})
}

func TestAuthMethodUnknown(t *testing.T) {
	host := model.Host{
		Auth: model.AuthConfig{Method: model.AuthMethod("kerberos")},
	}
	_, _, err := authMethod(host, nil)
	require.ErrorContains(t, err, "unknown auth method")
}

func TestHostKeyCallbackInsecureMode(t *testing.T) {
	host := model.Host{
		HostKey: model.HostKeyConfig{Mode: model.HostKeyInsecure},
	}
	cb, err := hostKeyCallback(host)
	require.NoError(t, err)
	require.NotNil(t, cb)
}

func TestExpandHome(t *testing.T) {
	require.Equal(t, "/etc/ssh/key", expandHome("/etc/ssh/key"))
	require.Equal(t, "", expandHome(""))

	got := expandHome("~/.ssh/id_ed25519")
	require.NotContains(t, got, "~")
	require.Contains(t, got, ".ssh/id_ed25519")
}
