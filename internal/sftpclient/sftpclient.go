package sftpclient

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Client wraps an SFTP subsystem on an established SSH connection for the
// admin file-transfer commands. The SSH client stays open after Close; the
// caller owns it.
type Client struct {
	sftp *sftp.Client
}

func New(conn *ssh.Client) (*Client, error) {
	sf, err := sftp.NewClient(conn)
	if err != nil {
		return nil, fmt.Errorf("open sftp subsystem: %w", err)
	}
	return &Client{sftp: sf}, nil
}

func (c *Client) Close() error {
	return c.sftp.Close()
}

// Download copies a remote file to localPath.
func (c *Client) Download(remotePath, localPath string) error {
	rp := cleanRemotePath(remotePath)

	fi, err := c.sftp.Stat(rp)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return errors.New("remote path is a directory")
	}

	rf, err := c.sftp.Open(rp)
	if err != nil {
		return err
	}
	defer rf.Close()

	lf, err := os.OpenFile(localPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer lf.Close()

	_, err = io.Copy(lf, rf)
	return err
}

// Upload copies a local file to remotePath.
func (c *Client) Upload(localPath, remotePath string) error {
	lf, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer lf.Close()

	rp := cleanRemotePath(remotePath)
	if fi, statErr := c.sftp.Stat(rp); statErr == nil && fi.IsDir() {
		rp = path.Join(rp, path.Base(localPath))
	}

	rf, err := c.sftp.OpenFile(rp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY)
	if err != nil {
		return err
	}
	defer rf.Close()

	_, err = io.Copy(rf, lf)
	return err
}

func cleanRemotePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "."
	}
	// Force Unix semantics.
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "~") {
		// Let server resolve it best-effort.
		return p
	}
	return path.Clean(p)
}
