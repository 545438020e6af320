package cli

import (
	"context"
	"regexp"
	"strings"
	"time"

	expect "github.com/google/goexpect"
	"golang.org/x/crypto/ssh"
)

// DefaultPromptPattern matches common CLI prompts like "hostname#" or "hostname>".
var DefaultPromptPattern = regexp.MustCompile(`(?m)[\w\-\[\]()]+[#>]\s*$`)

// HuaweiPromptPattern matches Huawei MA5600/MA5800 series prompts:
// "<hostname>" in user mode, "OLT(config)#" / "OLT(config-if-gpon-0/1)#"
// in config contexts, and bracketed diagnose prompts.
var HuaweiPromptPattern = regexp.MustCompile(`(?m)(<[\w\-.]+>|[\w\-.]+(\([\w\-~/ ]+\))?#|\[[\w\-~/.]+\])\s*$`)

// ConfirmPromptPattern matches interactive confirmation prompts the firmware
// emits for destructive operations ("(y/n)[n]:", "Are you sure? (y/n)").
var ConfirmPromptPattern = regexp.MustCompile(`(?i)(\(y/n\)(\[[yn]\])?\s*:?|are you sure[^\n]*)\s*$`)

// pagerDisableCommand turns off terminal paging so multi-screen output
// arrives in one read.
const pagerDisableCommand = "screen-length 0 temporary"

// hardErrorPatterns are CLI responses that always indicate the command was
// rejected by the parser, regardless of operation semantics.
var hardErrorPatterns = []string{
	"command not found",
	"% unknown command",
	"% invalid",
	"% incomplete command",
	"syntax error",
	"unrecognized command",
	"bad command",
	"parameter error",
}

// ExpectSession wraps google/goexpect for interactive OLT CLI sessions.
type ExpectSession struct {
	expecter  *expect.GExpect
	sshClient *ssh.Client
	promptRE  *regexp.Regexp
	timeout   time.Duration
}

// ExpectSessionConfig holds configuration for creating an expect session.
type ExpectSessionConfig struct {
	SSHClient    *ssh.Client
	Timeout      time.Duration
	CustomPrompt *regexp.Regexp
	DisablePager bool
	// Credentials for CLI-level authentication on firmware that asks for a
	// second login after the SSH handshake.
	Username string
	Password string
}

// NewExpectSession creates a new interactive CLI session using expect.
func NewExpectSession(cfg ExpectSessionConfig) (*ExpectSession, error) {
	if cfg.SSHClient == nil {
		return nil, NewConnectionError("", 0, "SSH client is required", nil)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	promptRE := cfg.CustomPrompt
	if promptRE == nil {
		promptRE = HuaweiPromptPattern
	}

	exp, _, err := expect.SpawnSSH(cfg.SSHClient, cfg.Timeout,
		expect.Verbose(false),
		expect.CheckDuration(500*time.Millisecond),
	)
	if err != nil {
		return nil, NewConnectionError("", 0, "failed to spawn SSH expect session", err)
	}

	session := &ExpectSession{
		expecter:  exp,
		sshClient: cfg.SSHClient,
		promptRE:  promptRE,
		timeout:   cfg.Timeout,
	}

	// Some firmware asks for a second CLI-level login after SSH auth.
	loginRE := regexp.MustCompile(`(?i)(login|user\s*name|username)\s*:\s*$`)
	passwordRE := regexp.MustCompile(`(?i)password\s*:\s*$`)
	combinedRE := regexp.MustCompile(`(?m)(` + promptRE.String() + `|(?i)(login|user\s*name|username)\s*:\s*$)`)

	output, _, err := exp.Expect(combinedRE, cfg.Timeout)
	if err != nil {
		exp.Close()
		return nil, NewConnectionError("", 0, "failed to detect initial prompt or login", err)
	}

	if loginRE.MatchString(output) {
		if cfg.Username == "" {
			exp.Close()
			return nil, NewAuthenticationError("", cfg.Username, "CLI login required but no username provided", nil)
		}
		if err := exp.Send(cfg.Username + "\n"); err != nil {
			exp.Close()
			return nil, NewAuthenticationError("", cfg.Username, "failed to send username", err)
		}
		if _, _, err := exp.Expect(passwordRE, cfg.Timeout); err != nil {
			exp.Close()
			return nil, NewAuthenticationError("", cfg.Username, "failed to detect password prompt", err)
		}
		if err := exp.Send(cfg.Password + "\n"); err != nil {
			exp.Close()
			return nil, NewAuthenticationError("", cfg.Username, "failed to send password", err)
		}
		if _, _, err := exp.Expect(promptRE, cfg.Timeout); err != nil {
			exp.Close()
			return nil, NewAuthenticationError("", cfg.Username, "failed to detect CLI prompt after login", err)
		}
	}

	if cfg.DisablePager {
		_, _ = session.execute(pagerDisableCommand)
	}

	return session, nil
}

// Execute sends a command and waits for the prompt, returning the output.
// The context is checked before the command is sent; goexpect itself bounds
// the wait with the session timeout.
func (s *ExpectSession) Execute(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.execute(command)
}

func (s *ExpectSession) execute(command string) (string, error) {
	if s.expecter == nil {
		return "", NewConnectionError("", 0, "expect session not initialized", nil)
	}

	if err := s.expecter.Send(command + "\n"); err != nil {
		return "", NewCommandError(command, "failed to send command", "", err)
	}

	output, _, err := s.expecter.Expect(s.promptRE, s.timeout)
	if err != nil {
		return output, NewTimeoutError(command, s.timeout.String(), "no prompt after command")
	}

	output = s.cleanOutput(output, command)

	if err := s.checkHardErrors(command, output); err != nil {
		return output, err
	}

	return output, nil
}

// ExecuteConfirm sends a command that may ask for interactive confirmation
// and answers it with key (typically "y"). Without the second keystroke the
// firmware sits on the prompt until the session times out.
func (s *ExpectSession) ExecuteConfirm(ctx context.Context, command, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.expecter == nil {
		return "", NewConnectionError("", 0, "expect session not initialized", nil)
	}

	if err := s.expecter.Send(command + "\n"); err != nil {
		return "", NewCommandError(command, "failed to send command", "", err)
	}

	combinedRE := regexp.MustCompile(`(?m)(` + s.promptRE.String() + `|` + ConfirmPromptPattern.String() + `)`)
	output, _, err := s.expecter.Expect(combinedRE, s.timeout)
	if err != nil {
		return output, NewTimeoutError(command, s.timeout.String(), "no prompt or confirmation after command")
	}

	if ConfirmPromptPattern.MatchString(output) {
		if err := s.expecter.Send(key + "\n"); err != nil {
			return output, NewCommandError(command, "failed to send confirmation", output, err)
		}
		more, _, err := s.expecter.Expect(s.promptRE, s.timeout)
		output += more
		if err != nil {
			return output, NewTimeoutError(command, s.timeout.String(), "no prompt after confirmation")
		}
	}

	output = s.cleanOutput(output, command)
	if err := s.checkHardErrors(command, output); err != nil {
		return output, err
	}
	return output, nil
}

// checkHardErrors checks the output for CLI parser rejections.
func (s *ExpectSession) checkHardErrors(command, output string) error {
	outputLower := strings.ToLower(output)
	for _, pattern := range hardErrorPatterns {
		if strings.Contains(outputLower, pattern) {
			return NewCommandError(command, "CLI rejected command", strings.TrimSpace(output), nil)
		}
	}
	return nil
}

// cleanOutput removes command echo and prompt lines from output.
func (s *ExpectSession) cleanOutput(output, command string) string {
	lines := strings.Split(output, "\n")
	var cleaned []string

	for i, line := range lines {
		if i == 0 && strings.Contains(line, command) {
			continue
		}
		if s.promptRE.MatchString(strings.TrimSpace(line)) {
			continue
		}
		cleaned = append(cleaned, line)
	}

	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

// IsAlive probes the session with a clock query and a short timeout. A
// session that cannot answer is considered dead and must be discarded.
func (s *ExpectSession) IsAlive() bool {
	if s.expecter == nil {
		return false
	}

	if err := s.expecter.Send("display time\n"); err != nil {
		return false
	}

	_, _, err := s.expecter.Expect(s.promptRE, 5*time.Second)
	return err == nil
}

// Close closes the expect session.
func (s *ExpectSession) Close() error {
	if s.expecter != nil {
		return s.expecter.Close()
	}
	return nil
}

// SetTimeout updates the command timeout.
func (s *ExpectSession) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}
