package command

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

// sysnameCharsRE is the permissive device-side constraint. The strict
// policy validation (reserved words, cooldown, duplicates) lives in the
// sysname guard; this check only rejects input the firmware itself would
// refuse.
var sysnameCharsRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,246}$`)

// SetSysname renames the device. High risk: routing keys derive from the
// sysname, so callers go through the sysname guard rather than issuing
// this command directly.
type SetSysname struct {
	Sysname string
}

func (c SetSysname) Name() string { return "SetSysname" }

func (c SetSysname) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if !sysnameCharsRE.MatchString(c.Sysname) {
		return nil, cli.NewValidationError("sysname", c.Sysname, "must be 1..246 chars of [A-Za-z0-9_-]")
	}

	cmd := fmt.Sprintf("sysname %s", c.Sysname)
	var output string
	err := cli.WithConfig(ctx, t, func() error {
		out, execErr := t.Execute(ctx, cmd)
		output = out
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return actionResult(cmd, output, "success")
}

var sysnameLineRE = regexp.MustCompile(`(?m)^\s*sysname\s+(\S+)`)

// GetSysname reads the configured sysname back from the running config.
type GetSysname struct{}

func (c GetSysname) Name() string { return "GetSysname" }

func (c GetSysname) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	cmd := "display current-configuration | include sysname"
	output, err := t.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}

	m := sysnameLineRE.FindStringSubmatch(output)
	if m == nil {
		return nil, cli.NewCommandError(cmd, "sysname not present in running config", output, nil)
	}
	return &Result{
		Status: StatusSuccess,
		Output: output,
		Fields: map[string]string{"sysname": m[1]},
	}, nil
}
