package sshclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/ankouros/rshell/internal/model"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

/*
Known-hosts UX errors
*/

type ErrUnknownHostKey struct {
	HostPort    string
	Fingerprint string
	Key         ssh.PublicKey
}

func (e ErrUnknownHostKey) Error() string {
	return "unknown host key: " + e.HostPort + " (" + e.Fingerprint + ")"
}

type ErrHostKeyMismatch struct {
	HostPort    string
	Fingerprint string
	Key         ssh.PublicKey
}

func (e ErrHostKeyMismatch) Error() string {
	return "host key mismatch: " + e.HostPort + " (" + e.Fingerprint + ")"
}

/*
Dialing
*/

// DialClient connects and authenticates to host. The returned cleanup
// releases auth resources (agent socket) and must be called once the client
// is no longer used. Retry policy belongs to the caller.
func DialClient(
	ctx context.Context,
	host model.Host,
	passwordProvider func() (string, error),
) (*ssh.Client, func(), error) {

	cfg, cleanup, err := buildClientConfig(host, passwordProvider)
	if err != nil {
		return nil, nil, err
	}

	addr := net.JoinHostPort(host.Host, fmt.Sprint(host.Port))

	dialer := net.Dialer{Timeout: 8 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, err
	}

	if cleanup == nil {
		cleanup = func() {}
	}
	return ssh.NewClient(c, chans, reqs), cleanup, nil
}

/*
Client config
*/

func buildClientConfig(
	host model.Host,
	passwordProvider func() (string, error),
) (*ssh.ClientConfig, func(), error) {

	auth, cleanup, err := authMethod(host, passwordProvider)
	if err != nil {
		return nil, nil, err
	}

	hkcb, err := hostKeyCallback(host)
	if err != nil {
		if cleanup != nil {
			cleanup()
		}
		return nil, nil, err
	}

	return &ssh.ClientConfig{
		User:            host.User,
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hkcb,
		Timeout:         10 * time.Second,
	}, cleanup, nil
}

/*
Authentication
*/

func authMethod(
	host model.Host,
	passwordProvider func() (string, error),
) (ssh.AuthMethod, func(), error) {

	switch host.Auth.Method {

	case model.AuthPassword:
		if passwordProvider == nil {
			return nil, nil, errors.New("password provider not set")
		}
		pwd, err := passwordProvider()
		if err != nil {
			return nil, nil, err
		}
		return ssh.Password(pwd), nil, nil

	case model.AuthKey:
		kp := expandHome(host.Auth.KeyPath)
		if kp == "" {
			kp = expandHome("~/.ssh/id_rsa")
		}
		b, err := os.ReadFile(kp)
		if err != nil {
			return nil, nil, err
		}
		signer, err := ssh.ParsePrivateKey(b)
		if err != nil {
			return nil, nil, err
		}
		return ssh.PublicKeys(signer), nil, nil

	case model.AuthAgent:
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return nil, nil, errors.New("SSH_AUTH_SOCK is not set")
		}
		conn, err := net.DialTimeout("unix", sock, 2*time.Second)
		if err != nil {
			return nil, nil, err
		}
		ag := agent.NewClient(conn)
		return ssh.PublicKeysCallback(ag.Signers), func() { _ = conn.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown auth method: %s", host.Auth.Method)
	}
}

/*
Host key verification
*/

func hostKeyCallback(host model.Host) (ssh.HostKeyCallback, error) {
	if host.HostKey.Mode == model.HostKeyInsecure {
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec // explicit opt-in per host
	}

	khPath := expandHome("~/.ssh/known_hosts")

	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		fp := ssh.FingerprintSHA256(key)
		hostPort := knownhosts.Normalize(hostname)

		matcher, err := knownhosts.New(khPath)
		if err != nil {
			return err
		}

		err = matcher(hostname, remote, key)
		if err == nil {
			return nil
		}

		var kerr *knownhosts.KeyError
		if errors.As(err, &kerr) {

			// Unknown host
			if len(kerr.Want) == 0 {
				return ErrUnknownHostKey{
					HostPort:    hostPort,
					Fingerprint: fp,
					Key:         key,
				}
			}

			// Host key mismatch
			return ErrHostKeyMismatch{
				HostPort:    hostPort,
				Fingerprint: fp,
				Key:         key,
			}
		}

		return err
	}, nil
}

/*
Trust helper
*/

func TrustHostKey(hostPort string, key ssh.PublicKey) error {
	khPath := expandHome("~/.ssh/known_hosts")

	if err := os.MkdirAll(filepath.Dir(khPath), 0o700); err != nil {
		return err
	}

	line := knownhosts.Line([]string{hostPort}, key)

	f, err := os.OpenFile(khPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteString(line + "\n")
	return err
}

/*
Utils
*/

func expandHome(p string) string {
	if len(p) >= 2 && p[:2] == "~/" {
		if h, err := os.UserHomeDir(); err == nil {
			return filepath.Join(h, p[2:])
		}
	}
	return p
}
