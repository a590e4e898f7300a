package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

const dialTimeout = 20 * time.Second

// Target describes the SFTP server the dataset is uploaded to.
type Target struct {
	Host      string
	Port      int
	User      string
	Password  string
	RemoteDir string
}

// connectFunc opens an SFTP session. The returned closer tears down the
// session and its transport.
type connectFunc func(ctx context.Context) (*sftp.Client, func() error, error)

// Publisher uploads persisted datasets to a remote directory.
type Publisher struct {
	target  Target
	connect connectFunc
	logger  *slog.Logger
}

// NewPublisher returns a publisher for target using password authentication.
func NewPublisher(target Target, logger *slog.Logger) *Publisher {
	if target.Port <= 0 {
		target.Port = 22
	}
	if target.RemoteDir == "" {
		target.RemoteDir = "/"
	}
	p := &Publisher{target: target, logger: logger}
	p.connect = p.dialSSH
	return p
}

// Upload copies the file at localPath into the remote directory under the
// same base name, replacing any existing copy.
func (p *Publisher) Upload(ctx context.Context, localPath string) error {
	client, closeFn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := client.MkdirAll(p.target.RemoteDir); err != nil {
		return fmt.Errorf("sftp: mkdir %s: %w", p.target.RemoteDir, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("sftp: open local file: %w", err)
	}
	defer src.Close()

	remotePath := path.Join(p.target.RemoteDir, filepath.Base(localPath))
	dst, err := client.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("sftp: create remote file: %w", err)
	}
	n, err := io.Copy(dst, src)
	if err != nil {
		dst.Close()
		return fmt.Errorf("sftp: upload copy: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("sftp: close remote file: %w", err)
	}

	p.logger.Info("dataset published", "host", p.target.Host, "path", remotePath, "bytes", n)
	return nil
}

func (p *Publisher) dialSSH(ctx context.Context) (*sftp.Client, func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("sftp: dial canceled: %w", err)
	}
	sshCfg := &ssh.ClientConfig{
		User:            p.target.User,
		Auth:            []ssh.AuthMethod{ssh.Password(p.target.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         dialTimeout,
	}
	addr := net.JoinHostPort(p.target.Host, strconv.Itoa(p.target.Port))

	type dialRes struct {
		client *ssh.Client
		err    error
	}
	ch := make(chan dialRes, 1)
	go func() {
		c, err := ssh.Dial("tcp", addr, sshCfg)
		ch <- dialRes{client: c, err: err}
	}()

	var sshClient *ssh.Client
	select {
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.client != nil {
				r.client.Close()
			}
		}()
		return nil, nil, fmt.Errorf("sftp: dial canceled: %w", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return nil, nil, fmt.Errorf("sftp: dial %s: %w", addr, r.err)
		}
		sshClient = r.client
	}

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, nil, fmt.Errorf("sftp: new client: %w", err)
	}
	closeFn := func() error {
		client.Close()
		return sshClient.Close()
	}
	return client, closeFn, nil
}
