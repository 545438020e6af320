// Package command encodes each device operation as an immutable value
// object with an Execute method, decoupling what to do from how a session
// is obtained. CLI commands run over a pooled SSH session handed in by the
// caller; SNMP commands open their own ephemeral UDP session per call and
// ignore the transport argument.
package command

import (
	"context"
	"strings"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

// Transport is the session surface CLI commands execute over. Pooled
// sessions implement it; tests use scripted fakes.
type Transport interface {
	Execute(ctx context.Context, command string) (string, error)
	ExecuteConfirm(ctx context.Context, command, confirmation string) (string, error)
}

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the uniform outcome of one command.
type Result struct {
	Status string `json:"status"`
	// Output is the raw device output, kept for diagnostics.
	Output string `json:"output,omitempty"`
	// Fields holds single-record parsed data.
	Fields map[string]string `json:"fields,omitempty"`
	// Rows holds multi-record parsed data.
	Rows []map[string]string `json:"rows,omitempty"`
	// Data carries command-specific typed payloads.
	Data interface{} `json:"data,omitempty"`
}

// Command is one device operation. firmware selects version-specific
// parsing rules and may be empty.
type Command interface {
	Name() string
	Execute(ctx context.Context, t Transport, firmware string) (*Result, error)
}

// Standalone marks commands that open their own transport (SNMP) and
// ignore the session argument. The service layer skips pool acquisition
// for these.
type Standalone interface {
	Standalone()
}

// errorIndicators are the CLI failure substrings checked when no explicit
// success keyword is present. Matching is case-insensitive.
var errorIndicators = []string{
	"error",
	"failed",
	"failure",
	"invalid",
	"unknown command",
	"parameter error",
	"command is not supported",
}

// classifyOutput implements the success/failure heuristic for action
// commands. An explicit success keyword wins; otherwise any error
// indicator (or a "%"-prefixed line, the firmware's rejection marker)
// means failure; otherwise quiet output means success. This inference is
// best effort: the CLI offers no structured feedback.
func classifyOutput(output string, successKeywords []string) (ok bool, indicator string) {
	lower := strings.ToLower(output)

	for _, kw := range successKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true, ""
		}
	}

	for _, ind := range errorIndicators {
		if strings.Contains(lower, ind) {
			return false, ind
		}
	}
	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "%") {
			return false, strings.TrimSpace(line)
		}
	}
	return true, ""
}

func successResult(output string) *Result {
	return &Result{Status: StatusSuccess, Output: output}
}

// actionResult applies the heuristic to an action command's output and
// converts a detected rejection into a CommandError carrying the raw
// output.
func actionResult(commandLine, output string, successKeywords ...string) (*Result, error) {
	if ok, indicator := classifyOutput(output, successKeywords); !ok {
		return nil, cli.NewCommandError(commandLine, "device rejected command ("+indicator+")", output, nil)
	}
	return successResult(output), nil
}
