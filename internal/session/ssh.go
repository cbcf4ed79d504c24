package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
)

// Compile-time interface guard.
var _ Session = (*SSHSession)(nil)

// promptRE matches an IOS exec or privileged-exec prompt at the end of the
// accumulated output ("Switch>", "core-sw-01#").
var promptRE = regexp.MustCompile(`(?m)^[\w.()/:-]+[#>] ?$`)

// Config holds everything needed to establish an SSH session to a device.
type Config struct {
	Host           string
	Port           int
	Username       string
	Password       string
	EnableSecret   string
	ConnectTimeout time.Duration
}

// SSHSession is an interactive SSH shell session to a switch. Pagination is
// disabled at dial time so command output arrives in one piece.
type SSHSession struct {
	client *ssh.Client
	shell  *ssh.Session
	stdin  io.WriteCloser
	chunks chan chunk
	logger *zap.Logger

	mu     sync.Mutex
	alive  bool
	closed bool
}

type chunk struct {
	data []byte
	err  error
}

// Dial connects to the device, elevates to privileged mode when an enable
// secret is configured, and disables terminal pagination.
func Dial(ctx context.Context, cfg Config, logger *zap.Logger) (*SSHSession, error) {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}
	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))

	sshCfg := &ssh.ClientConfig{
		User: cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range questions {
					answers[i] = cfg.Password
				}
				return answers, nil
			}),
		},
		// Switch host keys rotate on reimage and are rarely pinned in
		// monitoring deployments.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // G106
		Timeout:         cfg.ConnectTimeout,
		Config: ssh.Config{
			// Older IOS images only offer legacy ciphers.
			Ciphers: append([]string{"aes128-cbc", "3des-cbc"}, defaultCiphers...),
		},
	}

	dialer := net.Dialer{Timeout: cfg.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Host: cfg.Host, Err: err}
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, &ConnectError{Host: cfg.Host, Err: err}
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	shell, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, &ConnectError{Host: cfg.Host, Err: err}
	}

	modes := ssh.TerminalModes{
		ssh.ECHO:          0,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := shell.RequestPty("vt100", 0, 512, modes); err != nil {
		shell.Close()
		client.Close()
		return nil, &ConnectError{Host: cfg.Host, Err: fmt.Errorf("request pty: %w", err)}
	}

	stdin, err := shell.StdinPipe()
	if err != nil {
		shell.Close()
		client.Close()
		return nil, &ConnectError{Host: cfg.Host, Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stdout, err := shell.StdoutPipe()
	if err != nil {
		shell.Close()
		client.Close()
		return nil, &ConnectError{Host: cfg.Host, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	if err := shell.Shell(); err != nil {
		shell.Close()
		client.Close()
		return nil, &ConnectError{Host: cfg.Host, Err: fmt.Errorf("start shell: %w", err)}
	}

	s := &SSHSession{
		client: client,
		shell:  shell,
		stdin:  stdin,
		chunks: make(chan chunk, 16),
		logger: logger,
		alive:  true,
	}
	go s.readLoop(stdout)

	// Drain the login banner up to the first prompt.
	if _, err := s.collect(ctx, cfg.ConnectTimeout); err != nil {
		s.Close()
		return nil, &ConnectError{Host: cfg.Host, Err: fmt.Errorf("wait for prompt: %w", err)}
	}

	if cfg.EnableSecret != "" {
		if err := s.elevate(ctx, cfg.EnableSecret, cfg.ConnectTimeout); err != nil {
			s.Close()
			return nil, &ConnectError{Host: cfg.Host, Err: err}
		}
	}

	// Without this, long output stalls on "--More--" and every command
	// times out.
	if _, err := s.Send(ctx, "terminal length 0", cfg.ConnectTimeout); err != nil {
		s.Close()
		return nil, &ConnectError{Host: cfg.Host, Err: fmt.Errorf("disable pagination: %w", err)}
	}

	logger.Info("session established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Bool("privileged", cfg.EnableSecret != ""),
	)
	return s, nil
}

var defaultCiphers = []string{
	"aes128-gcm@openssh.com", "aes256-gcm@openssh.com",
	"chacha20-poly1305@openssh.com",
	"aes128-ctr", "aes192-ctr", "aes256-ctr",
}

func (s *SSHSession) readLoop(r io.Reader) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			s.chunks <- chunk{data: data}
		}
		if err != nil {
			s.chunks <- chunk{err: err}
			return
		}
	}
}

// elevate enters privileged exec mode with the enable secret.
func (s *SSHSession) elevate(ctx context.Context, secret string, timeout time.Duration) error {
	if err := s.write("enable\n"); err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	out, err := s.collectUntil(ctx, timeout, func(text string) bool {
		return strings.Contains(text, "Password:") || promptAtEnd(text)
	})
	if err != nil {
		return fmt.Errorf("enable: %w", err)
	}
	if strings.Contains(out, "Password:") {
		if err := s.write(secret + "\n"); err != nil {
			return fmt.Errorf("enable secret: %w", err)
		}
		out, err = s.collect(ctx, timeout)
		if err != nil {
			return fmt.Errorf("enable secret: %w", err)
		}
	}
	if strings.Contains(out, "Access denied") || strings.Contains(out, "% Bad") {
		return fmt.Errorf("enable mode rejected")
	}
	return nil
}

// Send issues one command and collects output until the next prompt.
func (s *SSHSession) Send(ctx context.Context, command string, timeout time.Duration) (string, error) {
	s.mu.Lock()
	ok := s.alive
	s.mu.Unlock()
	if !ok {
		return "", &TransportError{Op: "send", Err: fmt.Errorf("session is closed")}
	}

	if err := s.write(command + "\n"); err != nil {
		return "", err
	}

	out, err := s.collect(ctx, timeout)
	if err != nil {
		return "", err
	}
	return trimResponse(out, command), nil
}

func (s *SSHSession) write(data string) error {
	if _, err := io.WriteString(s.stdin, data); err != nil {
		s.markDead()
		return &TransportError{Op: "send", Err: err}
	}
	return nil
}

// collect accumulates output until a prompt appears at the end of it.
func (s *SSHSession) collect(ctx context.Context, timeout time.Duration) (string, error) {
	return s.collectUntil(ctx, timeout, promptAtEnd)
}

func (s *SSHSession) collectUntil(ctx context.Context, timeout time.Duration, done func(string) bool) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var b strings.Builder
	for {
		select {
		case c := <-s.chunks:
			if c.err != nil {
				s.markDead()
				return "", &TransportError{Op: "read", Err: c.err}
			}
			b.Write(c.data)
			if done(b.String()) {
				return b.String(), nil
			}
		case <-timer.C:
			return "", ErrTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (s *SSHSession) markDead() {
	s.mu.Lock()
	s.alive = false
	s.mu.Unlock()
}

// Alive reports whether the session has seen no transport failure.
func (s *SSHSession) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.alive
}

// Close tears down the shell and the SSH connection.
func (s *SSHSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.alive = false
	s.mu.Unlock()

	s.stdin.Close()
	s.shell.Close()
	err := s.client.Close()
	if s.logger != nil {
		s.logger.Info("session closed")
	}
	return err
}

// promptAtEnd reports whether the text ends with a device prompt.
func promptAtEnd(text string) bool {
	tail := text
	if len(tail) > 256 {
		tail = tail[len(tail)-256:]
	}
	lines := strings.Split(tail, "\n")
	last := strings.TrimRight(lines[len(lines)-1], " \r")
	return promptRE.MatchString(last)
}

// trimResponse strips the echoed command and the trailing prompt line.
func trimResponse(out, command string) string {
	out = strings.ReplaceAll(out, "\r\n", "\n")
	lines := strings.Split(out, "\n")

	// Drop the trailing prompt.
	for len(lines) > 0 {
		last := strings.TrimSpace(lines[len(lines)-1])
		if last == "" || promptRE.MatchString(last) {
			lines = lines[:len(lines)-1]
			continue
		}
		break
	}
	// Drop the echoed command at the top.
	if len(lines) > 0 && strings.TrimSpace(lines[0]) == strings.TrimSpace(command) {
		lines = lines[1:]
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
