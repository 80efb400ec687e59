package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

var (
	ErrSSHConnection     = errors.New("ssh: connection failed")
	ErrSSHAuthentication = errors.New("ssh: authentication failed")
)

type SSHConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	PrivateKeyPath string
	KnownHostsPath string
	Timeout        time.Duration
	MaxRetries     int
}

// SSHDialer opens authenticated connections to one host.
type SSHDialer struct {
	config SSHConfig
	log    *logger.Logger
}

func NewSSHDialer(cfg SSHConfig, log *logger.Logger) *SSHDialer {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &SSHDialer{config: cfg, log: log}
}

func (d *SSHDialer) address() string {
	return net.JoinHostPort(d.config.Host, fmt.Sprint(d.config.Port))
}

func (d *SSHDialer) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if d.config.PrivateKeyPath != "" {
		raw, err := os.ReadFile(d.config.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("%w: read private key: %v", ErrSSHAuthentication, err)
		}
		signer, err := ssh.ParsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid private key", ErrSSHAuthentication)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	if d.config.Password != "" {
		methods = append(methods, ssh.Password(d.config.Password))
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: no credentials provided", ErrSSHAuthentication)
	}
	return methods, nil
}

func (d *SSHDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if d.config.KnownHostsPath == "" {
		d.log.Warnw("ssh_host_key_unchecked", "host", d.config.Host)
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(d.config.KnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("load known hosts: %w", err)
	}
	return cb, nil
}

// Connect dials the host, retrying with a linear backoff until MaxRetries
// attempts fail or ctx ends.
func (d *SSHDialer) Connect(ctx context.Context) (*ssh.Client, error) {
	auth, err := d.authMethods()
	if err != nil {
		return nil, err
	}
	hostKey, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}

	clientConfig := &ssh.ClientConfig{
		User:            d.config.User,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         d.config.Timeout,
	}

	addr := d.address()
	var lastErr error
	for attempt := 1; attempt <= d.config.MaxRetries; attempt++ {
		client, err := d.dial(ctx, addr, clientConfig)
		if err == nil {
			return client, nil
		}
		lastErr = err
		d.log.Warnw("ssh_connect_attempt_failed", "addr", addr, "attempt", attempt, "error", err)

		if attempt == d.config.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrSSHConnection, ctx.Err())
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	errType := "connection failed"
	if errors.Is(lastErr, context.DeadlineExceeded) || strings.Contains(fmt.Sprint(lastErr), "timeout") {
		errType = "connection timed out"
	}
	return nil, fmt.Errorf("%w: %s: %v (after %d attempts)", ErrSSHConnection, errType, lastErr, d.config.MaxRetries)
}

func (d *SSHDialer) dial(ctx context.Context, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: d.config.Timeout, KeepAlive: 60 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// Bound the handshake only; the session itself has no deadline.
	_ = conn.SetDeadline(time.Now().Add(d.config.Timeout))
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}
