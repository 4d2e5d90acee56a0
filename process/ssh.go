package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/nomis52/solrsetup/config"
	"github.com/nomis52/solrsetup/logging"
)

const defaultSSHPort = "22"

// SSHRunner runs programs on a remote host over a persistent SSH connection.
type SSHRunner struct {
	client *ssh.Client
	stdout io.Writer
	stderr io.Writer
}

// NewSSHRunner connects to remote.Host using the private key in remote.PrivateKeyFile.
func NewSSHRunner(ctx context.Context, remote config.RemoteConfig) (*SSHRunner, error) {
	key, err := os.ReadFile(remote.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if remote.KnownHostsFile != "" {
		hostKeyCallback, err = knownhosts.New(remote.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("loading known hosts: %w", err)
		}
	}

	cfg := &ssh.ClientConfig{
		User:            remote.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}

	addr := remote.Host
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, defaultSSHPort)
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("SSH handshake with %s: %w", addr, err)
	}

	return newSSHRunner(ssh.NewClient(c, chans, reqs)), nil
}

func newSSHRunner(client *ssh.Client) *SSHRunner {
	return &SSHRunner{
		client: client,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// RunBlocking runs cmd in a new session and waits for it to exit.
func (r *SSHRunner) RunBlocking(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	session, err := r.client.NewSession()
	if err != nil {
		return Result{}, errors.Join(ErrStart, fmt.Errorf("failed to create SSH session: %w", err))
	}
	defer session.Close()

	session.Stdout = r.stdout
	session.Stderr = r.stderr

	started := time.Now()
	if err := session.Start(remoteCommandLine(cmd)); err != nil {
		return Result{}, errors.Join(ErrStart, fmt.Errorf("%s: %w", cmd.Executable, err))
	}
	code, err := sshExitCode(session.Wait())
	return Result{ExitCode: code, Duration: time.Since(started)}, err
}

// Start launches cmd in a new session and streams its output to the logger carried by ctx.
func (r *SSHRunner) Start(ctx context.Context, cmd Command) (*Execution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session, err := r.client.NewSession()
	if err != nil {
		return nil, errors.Join(ErrStart, fmt.Errorf("failed to create SSH session: %w", err))
	}

	logger := logging.FromContext(ctx)
	stdout := newLineLogger(logger, slog.LevelInfo, "stdout")
	stderr := newLineLogger(logger, slog.LevelWarn, "stderr")
	session.Stdout = stdout
	session.Stderr = stderr

	execution := newExecution(cmd)
	if err := session.Start(remoteCommandLine(cmd)); err != nil {
		session.Close()
		stdout.Close()
		stderr.Close()
		return nil, errors.Join(ErrStart, fmt.Errorf("%s: %w", cmd.Executable, err))
	}
	logger.Debug("remote process started", "command", cmd.String())

	go func() {
		defer session.Close()
		waitErr := session.Wait()
		stdout.Close()
		stderr.Close()
		execution.finish(sshExitCode(waitErr))
	}()
	return execution, nil
}

// Close closes the underlying SSH connection.
func (r *SSHRunner) Close() error {
	return r.client.Close()
}

// remoteCommandLine flattens cmd for the remote shell, changing into cmd.Dir first.
func remoteCommandLine(cmd Command) string {
	line := cmd.String()
	if cmd.Dir != "" {
		line = "cd " + quoteArg(cmd.Dir) + " && " + line
	}
	return line
}

func sshExitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	return 1, fmt.Errorf("waiting for remote process: %w", err)
}
