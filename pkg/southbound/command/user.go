package command

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

var usernameRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,14}$`)

// ListUsers lists local terminal accounts.
type ListUsers struct{}

func (c ListUsers) Name() string { return "ListUsers" }

func (c ListUsers) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return displayRows(ctx, t, firmware, "display terminal user all")
}

// AddUser creates a local account in the AAA context. Level maps to the
// firmware's privilege tiers (0 common .. 3 administrator).
type AddUser struct {
	Username string
	Password string
	Level    int
}

func (c AddUser) Name() string { return "AddUser" }

func (c AddUser) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if !usernameRE.MatchString(c.Username) {
		return nil, cli.NewValidationError("username", c.Username, "must start with a letter, 1..15 chars of [A-Za-z0-9_-]")
	}
	if len(c.Password) < 8 || len(c.Password) > 32 {
		return nil, cli.NewValidationError("password", "***", "length must be 8..32")
	}
	if c.Level < 0 || c.Level > 3 {
		return nil, cli.NewValidationError("level", c.Level, "must be 0..3")
	}

	var output string
	err := cli.WithConfig(ctx, t, func() error {
		return cli.WithMode(ctx, t, "aaa", "quit", func() error {
			steps := []string{
				fmt.Sprintf("local-user %s password cipher %s", c.Username, c.Password),
				fmt.Sprintf("local-user %s service-type ssh", c.Username),
				fmt.Sprintf("local-user %s level %d", c.Username, c.Level),
			}
			for _, step := range steps {
				out, execErr := t.Execute(ctx, step)
				output += out
				if execErr != nil {
					return execErr
				}
				if ok, indicator := classifyOutput(out, nil); !ok {
					return cli.NewCommandError(step, "device rejected command ("+indicator+")", out, nil)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return successResult(output), nil
}

// DeleteUser removes one local account.
type DeleteUser struct {
	Username string
}

func (c DeleteUser) Name() string { return "DeleteUser" }

func (c DeleteUser) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if !usernameRE.MatchString(c.Username) {
		return nil, cli.NewValidationError("username", c.Username, "must start with a letter, 1..15 chars of [A-Za-z0-9_-]")
	}

	var output string
	err := cli.WithConfig(ctx, t, func() error {
		return cli.WithMode(ctx, t, "aaa", "quit", func() error {
			cmd := fmt.Sprintf("undo local-user %s", c.Username)
			out, execErr := t.ExecuteConfirm(ctx, cmd, "y")
			output = out
			if execErr != nil {
				return execErr
			}
			if ok, indicator := classifyOutput(out, nil); !ok {
				return cli.NewCommandError(cmd, "device rejected command ("+indicator+")", out, nil)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return successResult(output), nil
}
