package main

import (
	"testing"

	"github.com/ankouros/rshell/internal/model"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newBoundHostFlags() (*hostFlags, *cobra.Command) {
	f := &hostFlags{}
	cmd := &cobra.Command{Use: "test"}
	f.bind(cmd)
	return f, cmd
}

func configuredHost() model.Host {
	return model.Host{
		Host:    "db01.example.net",
		Port:    2222,
		User:    "deploy",
		Auth:    model.AuthConfig{Method: model.AuthKey, KeyPath: "~/.ssh/id_ed25519"},
		HostKey: model.HostKeyConfig{Mode: model.HostKeyKnownHosts},
	}
}

func TestApplyKeepsConfigPortWithoutFlag(t *testing.T) {
	f, cmd := newBoundHostFlags()

	host, err := f.apply(cmd, configuredHost())
	require.NoError(t, err)
	require.Equal(t, 2222, host.Port)
}

func TestApplyExplicitDefaultPortOverridesConfig(t *testing.T) {
	f, cmd := newBoundHostFlags()
	require.NoError(t, cmd.Flags().Set("port", "22"))

	// --port 22 equals the flag default but was passed explicitly, so it
	// wins over the configured port.
	host, err := f.apply(cmd, configuredHost())
	require.NoError(t, err)
	require.Equal(t, 22, host.Port)
}

func TestApplyFillsMissingPort(t *testing.T) {
	f, cmd := newBoundHostFlags()
	h := configuredHost()
	h.Port = 0

	host, err := f.apply(cmd, h)
	require.NoError(t, err)
	require.Equal(t, 22, host.Port)
}

func TestApplyFlagOverrides(t *testing.T) {
	f, cmd := newBoundHostFlags()
	require.NoError(t, cmd.Flags().Set("user", "root"))
	require.NoError(t, cmd.Flags().Set("port", "2200"))
	require.NoError(t, cmd.Flags().Set("insecure-host-key", "true"))

	host, err := f.apply(cmd, configuredHost())
	require.NoError(t, err)
	require.Equal(t, "root", host.User)
	require.Equal(t, 2200, host.Port)
	require.Equal(t, model.HostKeyInsecure, host.HostKey.Mode)
}

func TestApplyRequiresHostAndUser(t *testing.T) {
	f, cmd := newBoundHostFlags()

	_, err := f.apply(cmd, model.Host{Port: 22})
	require.Error(t, err)

	_, err = f.apply(cmd, model.Host{Host: "db01.example.net", Port: 22})
	require.Error(t, err)
}
