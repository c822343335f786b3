package remote

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net"
	pathpkg "path"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"github.com/spf13/afero/sftpfs"
	"golang.org/x/crypto/ssh"

	"github.com/sadopc/arqrel/internal/model"
	"github.com/sadopc/arqrel/internal/scanner"
)

const (
	defaultRemotePath  = "."
	defaultDialTimeout = 15 * time.Second
)

// Config configures a remote SFTP scan.
type Config struct {
	Target      string
	Port        int
	BatchMode   bool
	Timeout     time.Duration
	ScanTimeout time.Duration
}

// SFTPScanner inventories a remote filesystem over the SFTP subsystem.
type SFTPScanner struct {
	cfg   Config
	table *model.ExtensionTable
	dial  func(context.Context, Config) (scanner.Source, io.Closer, error)
}

var _ scanner.Scanner = (*SFTPScanner)(nil)

var dialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, network, address)
}

var sshNewClientConn = func(conn net.Conn, addr string, config *ssh.ClientConfig) (ssh.Conn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	return ssh.NewClientConn(conn, addr, config)
}

// NewSFTPScanner creates a new remote scanner. A nil table selects
// model.DefaultTable.
func NewSFTPScanner(cfg Config, table *model.ExtensionTable) *SFTPScanner {
	return &SFTPScanner{cfg: cfg, table: table, dial: dialSource}
}

// Scan connects, inventories remotePath and disconnects.
func (s *SFTPScanner) Scan(ctx context.Context, remotePath string, opts scanner.ScanOptions) (*model.Report, error) {
	if s == nil {
		return nil, fmt.Errorf("remote scanner is nil")
	}
	if s.dial == nil {
		s.dial = dialSource
	}

	if s.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScanTimeout)
		defer cancel()
	}

	src, closer, err := s.dial(ctx, s.cfg)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	if strings.TrimSpace(remotePath) == "" {
		remotePath = defaultRemotePath
	}
	return scanner.NewSession(src, cleanRemotePath(remotePath), s.table, opts).RunContext(ctx)
}

// NewSource exposes an SFTP client as a scan source. Paths use POSIX
// separators and resolve through the server's realpath.
func NewSource(client *sftp.Client, name string) scanner.Source {
	return scanner.Source{
		Fs: sftpfs.New(client),
		Resolve: func(p string) (string, error) {
			resolved, err := client.RealPath(cleanRemotePath(p))
			if err != nil {
				return "", err
			}
			return cleanRemotePath(resolved), nil
		},
		ReadDir: func(ctx context.Context, dir string) ([]fs.FileInfo, error) {
			return client.ReadDirContext(ctx, dir)
		},
		Name:  name,
		Local: false,
	}
}

func cleanRemotePath(p string) string {
	if p == "" {
		return defaultRemotePath
	}
	clean := pathpkg.Clean(strings.ReplaceAll(p, "\\", "/"))
	if clean == "" {
		return defaultRemotePath
	}
	return clean
}

func dialSource(ctx context.Context, cfg Config) (scanner.Source, io.Closer, error) {
	client, closer, err := dialSFTP(ctx, cfg)
	if err != nil {
		return scanner.Source{}, nil, err
	}
	user, host, _ := parseSSHTarget(cfg.Target)
	return NewSource(client, "sftp://"+user+"@"+sshAddr(host, cfg.Port)), closer, nil
}

func dialSFTP(ctx context.Context, cfg Config) (*sftp.Client, io.Closer, error) {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, nil, fmt.Errorf("ssh port must be between 1 and 65535")
	}

	user, host, err := parseSSHTarget(cfg.Target)
	if err != nil {
		return nil, nil, err
	}

	hostCB, err := hostKeyCallback(host, cfg.Port, cfg.BatchMode)
	if err != nil {
		return nil, nil, err
	}

	auth, err := buildAuthMethods(user, host, cfg.BatchMode)
	if err != nil {
		return nil, nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sshConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            auth,
		HostKeyCallback: hostCB,
		Timeout:         timeout,
	}

	sshClient, err := connectSSH(dialCtx, sshAddr(host, cfg.Port), sshConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("SSH connection failed: %w", err)
	}

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("cannot start SFTP subsystem: %w", err)
	}

	closer := &remoteCloser{ssh: sshClient, sftp: sftpClient}
	return sftpClient, closer, nil
}

func sshAddr(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func connectSSH(ctx context.Context, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := dialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	// Ensure cancellation interrupts handshake/authentication.
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c, chans, reqs, err := sshNewClientConn(conn, addr, config)
	close(done)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return ssh.NewClient(c, chans, reqs), nil
}

type remoteCloser struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (c *remoteCloser) Close() error {
	var retErr error
	if c.sftp != nil {
		if err := c.sftp.Close(); err != nil {
			retErr = err
		}
	}
	if c.ssh != nil {
		if err := c.ssh.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}
	return retErr
}
