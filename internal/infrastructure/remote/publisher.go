package remote

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/pkg/sftp"
	"github.com/vetclinic/aiadmin/internal/config"
	"github.com/vetclinic/aiadmin/internal/core/ports"
	"github.com/vetclinic/aiadmin/internal/domain"
	"github.com/vetclinic/aiadmin/internal/infrastructure/logger"
)

// SFTPPublisher uploads committed reports as <slug>.html to a web host.
type SFTPPublisher struct {
	dialer    *SSHDialer
	remoteDir string
	baseURL   string
	log       *logger.Logger
}

var _ ports.ReportPublisher = (*SFTPPublisher)(nil)

func NewSFTPPublisher(cfg config.PublishConfig, log *logger.Logger) *SFTPPublisher {
	return &SFTPPublisher{
		dialer: NewSSHDialer(SSHConfig{
			Host:           cfg.Host,
			Port:           cfg.Port,
			User:           cfg.User,
			Password:       cfg.Password,
			PrivateKeyPath: cfg.PrivateKeyPath,
			KnownHostsPath: cfg.KnownHostsPath,
			Timeout:        cfg.Timeout,
		}, log),
		remoteDir: cfg.RemoteDir,
		baseURL:   cfg.PublicBaseURL,
		log:       log,
	}
}

func (p *SFTPPublisher) Publish(ctx context.Context, report *domain.Report) (string, error) {
	conn, err := p.dialer.Connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return "", fmt.Errorf("failed to create sftp client: %w", err)
	}
	defer client.Close()

	remotePath, err := upload(client, p.remoteDir, report)
	if err != nil {
		return "", err
	}
	p.log.Infow("report_uploaded", "slug", report.Slug, "path", remotePath, "size_bytes", len(report.Content))
	return PublicURL(p.baseURL, remotePath, report.Slug), nil
}

func upload(client *sftp.Client, dir string, report *domain.Report) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := client.MkdirAll(dir); err != nil {
		return "", fmt.Errorf("failed to create remote dir %s: %w", dir, err)
	}

	remotePath := path.Join(dir, report.Slug+".html")
	f, err := client.Create(remotePath)
	if err != nil {
		return "", fmt.Errorf("failed to create remote file: %w", err)
	}
	if _, err := io.Copy(f, strings.NewReader(report.Content)); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write remote file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close remote file: %w", err)
	}
	return remotePath, nil
}

// PublicURL is where readers fetch a published report. Without a base URL
// the remote path is returned.
func PublicURL(baseURL, remotePath, slug string) string {
	if baseURL == "" {
		return remotePath
	}
	u, err := url.JoinPath(baseURL, slug+".html")
	if err != nil {
		return strings.TrimRight(baseURL, "/") + "/" + slug + ".html"
	}
	return u
}
