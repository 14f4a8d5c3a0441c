package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/fgeck/timetracker-installer/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/ssh"
)

// SSHClient wraps ssh.Client for mocking.
type SSHClient interface {
	NewSession() (SSHSession, error)
	Close() error
}

// SSHSession wraps ssh.Session for mocking.
type SSHSession interface {
	SetStdin(r io.Reader)
	CombinedOutput(cmd string) ([]byte, error)
	Close() error
}

// ClientFactory creates SSH clients.
type ClientFactory interface {
	NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error)
}

// DefaultClientFactory is the default SSH client factory.
type DefaultClientFactory struct{}

// NewClient creates a new SSH client.
func (f *DefaultClientFactory) NewClient(network, addr string, config *ssh.ClientConfig) (SSHClient, error) {
	client, err := ssh.Dial(network, addr, config)
	if err != nil {
		return nil, err
	}
	return &defaultSSHClient{client: client}, nil
}

type defaultSSHClient struct {
	client *ssh.Client
}

func (c *defaultSSHClient) NewSession() (SSHSession, error) {
	session, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &defaultSSHSession{session: session}, nil
}

func (c *defaultSSHClient) Close() error {
	return c.client.Close()
}

type defaultSSHSession struct {
	session *ssh.Session
}

func (s *defaultSSHSession) SetStdin(r io.Reader) {
	s.session.Stdin = r
}

func (s *defaultSSHSession) CombinedOutput(cmd string) ([]byte, error) {
	return s.session.CombinedOutput(cmd)
}

func (s *defaultSSHSession) Close() error {
	return s.session.Close()
}

// SSH runs operations on a remote machine over SSH.
type SSH struct {
	cfg           models.RemoteConfig
	sudo          models.SudoMode
	user          string
	clientFactory ClientFactory
	client        SSHClient
	logger        zerolog.Logger
}

// NewSSH creates a remote host. An empty user falls back to the SSH username.
func NewSSH(logger zerolog.Logger, cfg models.RemoteConfig, sudo models.SudoMode, user string) *SSH {
	return &SSH{
		cfg:           cfg,
		sudo:          sudo,
		user:          user,
		clientFactory: &DefaultClientFactory{},
		logger:        logger,
	}
}

// NewSSHWithClientFactory creates a remote host with a custom client factory (for testing).
func NewSSHWithClientFactory(
	logger zerolog.Logger,
	factory ClientFactory,
	cfg models.RemoteConfig,
	sudo models.SudoMode,
	user string,
) *SSH {
	return &SSH{
		cfg:           cfg,
		sudo:          sudo,
		user:          user,
		clientFactory: factory,
		logger:        logger,
	}
}

func (h *SSH) addr() string {
	return net.JoinHostPort(h.cfg.Host, strconv.Itoa(h.cfg.Port))
}

// Name returns user@host:port.
func (h *SSH) Name() string {
	return h.cfg.Username + "@" + h.addr()
}

// Username returns the configured user or the SSH login name.
func (h *SSH) Username(_ context.Context) (string, error) {
	if h.user != "" {
		return h.user, nil
	}
	return h.cfg.Username, nil
}

// WorkDir returns the configured remote working directory.
func (h *SSH) WorkDir(_ context.Context) (string, error) {
	if h.cfg.WorkDir == "" {
		return "", fmt.Errorf("remote.work_dir is not set")
	}
	return h.cfg.WorkDir, nil
}

// Exists reports whether path exists on the remote host.
func (h *SSH) Exists(ctx context.Context, path string) (bool, error) {
	_, err := h.exec(ctx, nil, shellJoin("test", "-e", path))
	if err == nil {
		return true, nil
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
		return false, nil
	}
	return false, err
}

// MakeExecutable runs chmod +x on the remote host.
func (h *SSH) MakeExecutable(ctx context.Context, path string) error {
	_, err := h.exec(ctx, nil, shellJoin("chmod", "+x", path))
	return err
}

// ReadFile returns the contents of a remote file.
func (h *SSH) ReadFile(ctx context.Context, path string) ([]byte, error) {
	return h.exec(ctx, nil, shellJoin("cat", path))
}

// WriteFile streams data into a remote file.
func (h *SSH) WriteFile(ctx context.Context, path string, data []byte) error {
	_, err := h.exec(ctx, bytes.NewReader(data), "cat > "+shellQuote(path))
	return err
}

// CopyFile copies src to dst on the remote host.
func (h *SSH) CopyFile(ctx context.Context, src, dst string, privileged bool) error {
	_, err := h.exec(ctx, nil, h.command(privileged, "cp", src, dst))
	return err
}

// Remove deletes a remote file. A missing file is not an error.
func (h *SSH) Remove(ctx context.Context, path string, privileged bool) error {
	_, err := h.exec(ctx, nil, h.command(privileged, "rm", "-f", path))
	return err
}

// Run executes a command on the remote host.
func (h *SSH) Run(ctx context.Context, privileged bool, name string, args ...string) ([]byte, error) {
	return h.exec(ctx, nil, h.command(privileged, name, args...))
}

// Close closes the SSH connection if one is open.
func (h *SSH) Close() error {
	if h.client == nil {
		return nil
	}
	err := h.client.Close()
	h.client = nil
	return err
}

func (h *SSH) command(privileged bool, name string, args ...string) string {
	if privileged && h.elevate() {
		return shellJoin("sudo", append([]string{name}, args...)...)
	}
	return shellJoin(name, args...)
}

func (h *SSH) elevate() bool {
	switch h.sudo {
	case models.SudoAlways:
		return true
	case models.SudoNever:
		return false
	default:
		return h.cfg.Username != "root"
	}
}

func (h *SSH) buildConfig() (*ssh.ClientConfig, error) {
	var key []byte
	var err error

	// Load private key from file or use provided key
	if len(h.cfg.PrivateKey) > 0 {
		key = h.cfg.PrivateKey
	} else if h.cfg.KeyPath != "" {
		key, err = os.ReadFile(h.cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key from %s: %w", h.cfg.KeyPath, err)
		}
	} else {
		return nil, fmt.Errorf("no private key provided")
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &ssh.ClientConfig{
		User: h.cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // install targets are on a trusted LAN
		Timeout:         30 * time.Second,
	}, nil
}

func (h *SSH) connect(ctx context.Context) error {
	if h.client != nil {
		return nil
	}

	sshConfig, err := h.buildConfig()
	if err != nil {
		return err
	}

	h.logger.Debug().Str("addr", h.addr()).Str("user", h.cfg.Username).Msg("connecting")

	// Create client with context timeout
	clientChan := make(chan struct {
		client SSHClient
		err    error
	}, 1)

	go func() {
		client, err := h.clientFactory.NewClient("tcp", h.addr(), sshConfig)
		clientChan <- struct {
			client SSHClient
			err    error
		}{client, err}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-clientChan:
		if res.err != nil {
			return fmt.Errorf("failed to connect to %s: %w", h.addr(), res.err)
		}
		h.client = res.client
	}
	return nil
}

func (h *SSH) exec(ctx context.Context, stdin io.Reader, cmd string) ([]byte, error) {
	if err := h.connect(ctx); err != nil {
		return nil, err
	}

	session, err := h.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer func() { _ = session.Close() }()

	if stdin != nil {
		session.SetStdin(stdin)
	}

	h.logger.Debug().Str("host", h.cfg.Host).Str("command", cmd).Msg("running remote command")

	output, err := session.CombinedOutput(cmd)
	if err != nil {
		if ctx.Err() != nil {
			return output, ctx.Err()
		}
		code := 1
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitStatus() > 0 {
			code = exitErr.ExitStatus()
		}
		return output, &CommandError{
			Command:  cmd,
			Output:   string(output),
			ExitCode: code,
			Err:      err,
		}
	}
	return output, nil
}
