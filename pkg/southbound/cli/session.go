// Package cli provides interactive SSH CLI sessions for GPON OLT devices:
// connection establishment, expect-driven command execution, scoped CLI
// mode handling, and the shared error taxonomy.
package cli

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// Config holds SSH connection configuration for one device session.
type Config struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Username string        `json:"username"`
	Password string        `json:"password"`
	Timeout  time.Duration `json:"timeout"`
}

// Session is one live, authenticated CLI session against an OLT. A session
// executes at most one command at a time; concurrent use is serialized by
// the internal mutex, but callers should treat a session as single-owner
// (the connection pool enforces this).
type Session struct {
	config        Config
	client        *ssh.Client
	expectSession *ExpectSession
	firmware      string
	mu            sync.Mutex
}

var versionLineRE = regexp.MustCompile(`(?im)^\s*VERSION\s*:?\s*(\S+)`)

// Dial opens an SSH connection to the device, spawns the interactive expect
// session, and detects the firmware version with a one-shot version query.
func Dial(ctx context.Context, config Config) (*Session, error) {
	if config.Port == 0 {
		config.Port = 22
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	// Some OLT firmware answers password auth with keyboard-interactive
	// prompts; answer every question with the password.
	keyboardInteractiveAuth := ssh.KeyboardInteractive(
		func(user, instruction string, questions []string, echos []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range questions {
				answers[i] = config.Password
			}
			return answers, nil
		},
	)

	sshConfig := &ssh.ClientConfig{
		User: config.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(config.Password),
			keyboardInteractiveAuth,
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // User-controlled equipment
		Timeout:         config.Timeout,
	}

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	client, err := ssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		if strings.Contains(err.Error(), "unable to authenticate") {
			return nil, NewAuthenticationError(config.Host, config.Username, "SSH authentication rejected", err)
		}
		return nil, NewConnectionError(config.Host, config.Port, "SSH dial failed", err)
	}

	expectSession, err := NewExpectSession(ExpectSessionConfig{
		SSHClient:    client,
		Timeout:      config.Timeout,
		DisablePager: true,
		Username:     config.Username,
		Password:     config.Password,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	s := &Session{
		config:        config,
		client:        client,
		expectSession: expectSession,
	}

	// Firmware drives parsing rule selection later; detection failure is
	// not fatal, commands fall back to version-agnostic rules.
	if out, err := expectSession.Execute(ctx, "display version"); err == nil {
		if m := versionLineRE.FindStringSubmatch(out); len(m) > 1 {
			s.firmware = m[1]
		}
	}

	return s, nil
}

// Execute runs a single CLI command and returns its cleaned output.
func (s *Session) Execute(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expectSession == nil {
		return "", NewConnectionError(s.config.Host, s.config.Port, "not connected", nil)
	}
	return s.expectSession.Execute(ctx, cmd)
}

// ExecuteConfirm runs a command that may prompt for y/n confirmation.
func (s *Session) ExecuteConfirm(ctx context.Context, cmd, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expectSession == nil {
		return "", NewConnectionError(s.config.Host, s.config.Port, "not connected", nil)
	}
	return s.expectSession.ExecuteConfirm(ctx, cmd, key)
}

// Firmware returns the firmware version string detected at dial time, or
// empty when detection failed.
func (s *Session) Firmware() string {
	return s.firmware
}

// Host returns the device address this session is connected to.
func (s *Session) Host() string {
	return s.config.Host
}

// IsAlive probes the session with a trivial command.
func (s *Session) IsAlive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.expectSession != nil && s.expectSession.IsAlive()
}

// Close terminates the expect session and the SSH connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.expectSession != nil {
		if err := s.expectSession.Close(); err != nil {
			errs = append(errs, err)
		}
		s.expectSession = nil
	}
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			errs = append(errs, err)
		}
		s.client = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
