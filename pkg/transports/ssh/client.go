// Package ssh is the transport used to reach management hosts directly:
// provider bootstrap runs its setup commands through it, and `cosmo ssh`
// hands the operator a shell on the active management server.
package ssh

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Config holds the SSH connection settings for one management host.
type Config struct {
	// Host is the remote hostname or IP address.
	Host string

	// Port is the SSH port (default 22).
	Port int

	// User is the SSH username.
	User string

	// KeyPath is the path to the private key file.
	KeyPath string

	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
}

// TransportError wraps an SSH transport failure with the operation that
// produced it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ssh %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Client is an SSH connection to one host.
type Client struct {
	config *Config
	client *ssh.Client
}

// NewClient returns an unconnected client for the given config.
func NewClient(config *Config) (*Client, error) {
	if config.Host == "" || config.User == "" {
		return nil, fmt.Errorf("ssh config requires host and user")
	}
	if config.Port == 0 {
		config.Port = 22
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 30 * time.Second
	}
	return &Client{config: config}, nil
}

// Connect establishes the SSH connection.
func (c *Client) Connect(ctx context.Context) error {
	key, err := os.ReadFile(c.config.KeyPath)
	if err != nil {
		return &TransportError{Op: "connect", Err: fmt.Errorf("failed to read key %s: %w", c.config.KeyPath, err)}
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return &TransportError{Op: "connect", Err: fmt.Errorf("failed to parse key %s: %w", c.config.KeyPath, err)}
	}

	clientConfig := &ssh.ClientConfig{
		User:            c.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.config.ConnectTimeout,
	}

	addr := fmt.Sprintf("%s:%d", c.config.Host, c.config.Port)
	dialCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	type dialResult struct {
		client *ssh.Client
		err    error
	}
	done := make(chan dialResult, 1)
	go func() {
		client, err := ssh.Dial("tcp", addr, clientConfig)
		done <- dialResult{client, err}
	}()

	select {
	case <-dialCtx.Done():
		return &TransportError{Op: "connect", Err: dialCtx.Err()}
	case result := <-done:
		if result.err != nil {
			return &TransportError{Op: "connect", Err: result.err}
		}
		c.client = result.client
		return nil
	}
}

// Run executes a command on the remote host and returns its combined
// output.
func (c *Client) Run(ctx context.Context, command string) (string, error) {
	if c.client == nil {
		return "", &TransportError{Op: "run", Err: fmt.Errorf("not connected")}
	}
	session, err := c.client.NewSession()
	if err != nil {
		return "", &TransportError{Op: "run", Err: err}
	}
	defer session.Close()

	var output bytes.Buffer
	session.Stdout = &output
	session.Stderr = &output

	done := make(chan error, 1)
	go func() { done <- session.Run(command) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		return output.String(), &TransportError{Op: "run", Err: ctx.Err()}
	case err := <-done:
		if err != nil {
			return output.String(), &TransportError{Op: "run", Err: err}
		}
		return output.String(), nil
	}
}

// Upload copies a local file to the remote host via SFTP.
func (c *Client) Upload(ctx context.Context, localPath, remotePath string, mode os.FileMode) error {
	if c.client == nil {
		return &TransportError{Op: "upload", Err: fmt.Errorf("not connected")}
	}
	sftpClient, err := sftp.NewClient(c.client)
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	defer sftpClient.Close()

	local, err := os.Open(localPath)
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	defer local.Close()

	remote, err := sftpClient.Create(remotePath)
	if err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	defer remote.Close()

	if _, err := io.Copy(remote, local); err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	if err := sftpClient.Chmod(remotePath, mode); err != nil {
		return &TransportError{Op: "upload", Err: err}
	}
	return nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
