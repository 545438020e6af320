package command

import (
	"context"
	"fmt"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
	"github.com/nanoncore/olt-fleet/pkg/southbound/parse"
	"github.com/nanoncore/olt-fleet/pkg/southbound/ponindex"
)

// EnablePort administratively enables one PON port.
type EnablePort struct {
	Port string
}

func (c EnablePort) Name() string { return "EnablePort" }

func (c EnablePort) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return portShutdown(ctx, t, c.Port, "undo shutdown %d")
}

// DisablePort administratively disables one PON port. Every ONT behind it
// goes dark, so callers gate this behind their own confirmation.
type DisablePort struct {
	Port string
}

func (c DisablePort) Name() string { return "DisablePort" }

func (c DisablePort) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return portShutdown(ctx, t, c.Port, "shutdown %d")
}

func portShutdown(ctx context.Context, t Transport, port, format string) (*Result, error) {
	p, err := ponindex.ParsePort(port)
	if err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf(format, p.Port)
	var output string
	err = cli.WithConfig(ctx, t, func() error {
		return cli.WithGponInterface(ctx, t, p.FrameSlot(), func() error {
			out, execErr := t.Execute(ctx, cmd)
			output = out
			return execErr
		})
	})
	if err != nil {
		return nil, err
	}
	return actionResult(cmd, output, "success")
}

// SetPortMode switches one PON port's operating mode (e.g. gpon/epon on
// combo boards).
type SetPortMode struct {
	Port string
	Mode string
}

var validPortModes = map[string]bool{"gpon": true, "epon": true, "auto": true}

func (c SetPortMode) Name() string { return "SetPortMode" }

func (c SetPortMode) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	p, err := ponindex.ParsePort(c.Port)
	if err != nil {
		return nil, err
	}
	if !validPortModes[c.Mode] {
		return nil, cli.NewValidationError("mode", c.Mode, "must be gpon, epon or auto")
	}

	cmd := fmt.Sprintf("port %d mode %s", p.Port, c.Mode)
	var output string
	err = cli.WithConfig(ctx, t, func() error {
		return cli.WithGponInterface(ctx, t, p.FrameSlot(), func() error {
			out, execErr := t.ExecuteConfirm(ctx, cmd, "y")
			output = out
			return execErr
		})
	})
	if err != nil {
		return nil, err
	}
	return actionResult(cmd, output, "success")
}

// GetPortState reads one PON port's operational state.
type GetPortState struct {
	Port string
}

func (c GetPortState) Name() string { return "GetPortState" }

func (c GetPortState) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if _, err := ponindex.ParsePort(c.Port); err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf("display port state %s", c.Port)
	output, err := t.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusSuccess, Output: output, Fields: parse.KeyValues(output)}, nil
}

// SetPortDescription labels one PON port.
type SetPortDescription struct {
	Port        string
	Description string
}

func (c SetPortDescription) Name() string { return "SetPortDescription" }

func (c SetPortDescription) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	p, err := ponindex.ParsePort(c.Port)
	if err != nil {
		return nil, err
	}
	if len(c.Description) > 64 {
		return nil, cli.NewValidationError("description", c.Description, "longer than 64 characters")
	}

	cmd := fmt.Sprintf("port desc %d description %q", p.Port, c.Description)
	var output string
	err = cli.WithConfig(ctx, t, func() error {
		return cli.WithGponInterface(ctx, t, p.FrameSlot(), func() error {
			out, execErr := t.Execute(ctx, cmd)
			output = out
			return execErr
		})
	})
	if err != nil {
		return nil, err
	}
	return actionResult(cmd, output, "success")
}
