package command

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

var profileNameRE = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

func validateProfileName(name string) error {
	if !profileNameRE.MatchString(name) {
		return cli.NewValidationError("profileName", name, "must be 1..32 chars of [A-Za-z0-9_-]")
	}
	return nil
}

// AddDbaProfile creates a DBA bandwidth profile. Assured and Max are in
// kbit/s; which ones apply depends on Type (1..5, Huawei T-CONT types).
type AddDbaProfile struct {
	ProfileName string
	Type        int
	Assured     int
	Max         int
}

func (c AddDbaProfile) Name() string { return "AddDbaProfile" }

func (c AddDbaProfile) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateProfileName(c.ProfileName); err != nil {
		return nil, err
	}
	if c.Type < 1 || c.Type > 5 {
		return nil, cli.NewValidationError("type", c.Type, "must be 1..5")
	}

	cmd := fmt.Sprintf("dba-profile add profile-name %s type%d", c.ProfileName, c.Type)
	switch c.Type {
	case 1:
		cmd += fmt.Sprintf(" fix %d", c.Assured)
	case 2:
		cmd += fmt.Sprintf(" assure %d", c.Assured)
	case 3:
		cmd += fmt.Sprintf(" assure %d max %d", c.Assured, c.Max)
	default:
		cmd += fmt.Sprintf(" max %d", c.Max)
	}

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

// DeleteDbaProfile removes one DBA profile by name.
type DeleteDbaProfile struct {
	ProfileName string
}

func (c DeleteDbaProfile) Name() string { return "DeleteDbaProfile" }

func (c DeleteDbaProfile) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateProfileName(c.ProfileName); err != nil {
		return nil, err
	}
	return configAction(ctx, t, fmt.Sprintf("dba-profile delete profile-name %s", c.ProfileName))
}

// ListDbaProfiles lists every DBA profile.
type ListDbaProfiles struct{}

func (c ListDbaProfiles) Name() string { return "ListDbaProfiles" }

func (c ListDbaProfiles) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return displayRows(ctx, t, firmware, "display dba-profile all")
}

// AddLineProfile creates a GPON line profile with one T-CONT bound to a
// DBA profile and one ethernet GEM port, the minimal shape internet
// service needs. The profile sub-mode requires an explicit commit before
// quit or the firmware discards the edits.
type AddLineProfile struct {
	ProfileName string
	DbaProfile  string
	TcontID     int
	GemID       int
}

func (c AddLineProfile) Name() string { return "AddLineProfile" }

func (c AddLineProfile) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateProfileName(c.ProfileName); err != nil {
		return nil, err
	}
	if err := validateProfileName(c.DbaProfile); err != nil {
		return nil, err
	}
	tcont := c.TcontID
	if tcont == 0 {
		tcont = 1
	}
	gem := c.GemID
	if gem == 0 {
		gem = 1
	}

	var output string
	err := cli.WithConfig(ctx, t, func() error {
		return cli.WithMode(ctx, t,
			fmt.Sprintf("ont-lineprofile gpon profile-name %s", c.ProfileName), "quit",
			func() error {
				steps := []string{
					fmt.Sprintf("tcont %d dba-profile-name %s", tcont, c.DbaProfile),
					fmt.Sprintf("gem add %d eth tcont %d", gem, tcont),
					"commit",
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

// DeleteLineProfile removes one GPON line profile by name.
type DeleteLineProfile struct {
	ProfileName string
}

func (c DeleteLineProfile) Name() string { return "DeleteLineProfile" }

func (c DeleteLineProfile) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateProfileName(c.ProfileName); err != nil {
		return nil, err
	}
	return configAction(ctx, t, fmt.Sprintf("undo ont-lineprofile gpon profile-name %s", c.ProfileName))
}

// ListLineProfiles lists every GPON line profile.
type ListLineProfiles struct{}

func (c ListLineProfiles) Name() string { return "ListLineProfiles" }

func (c ListLineProfiles) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return displayRows(ctx, t, firmware, "display ont-lineprofile gpon all")
}

// AddServiceProfile creates a GPON service profile declaring the ONT's
// user-side port counts.
type AddServiceProfile struct {
	ProfileName string
	EthPorts    int
	PotsPorts   int
}

func (c AddServiceProfile) Name() string { return "AddServiceProfile" }

func (c AddServiceProfile) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateProfileName(c.ProfileName); err != nil {
		return nil, err
	}
	if c.EthPorts < 0 || c.EthPorts > 24 {
		return nil, cli.NewValidationError("ethPorts", c.EthPorts, "must be 0..24")
	}
	if c.PotsPorts < 0 || c.PotsPorts > 8 {
		return nil, cli.NewValidationError("potsPorts", c.PotsPorts, "must be 0..8")
	}

	var output string
	err := cli.WithConfig(ctx, t, func() error {
		return cli.WithMode(ctx, t,
			fmt.Sprintf("ont-srvprofile gpon profile-name %s", c.ProfileName), "quit",
			func() error {
				portCmd := fmt.Sprintf("ont-port eth %d", c.EthPorts)
				if c.PotsPorts > 0 {
					portCmd += fmt.Sprintf(" pots %d", c.PotsPorts)
				}
				for _, step := range []string{portCmd, "commit"} {
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

// DeleteServiceProfile removes one GPON service profile by name.
type DeleteServiceProfile struct {
	ProfileName string
}

func (c DeleteServiceProfile) Name() string { return "DeleteServiceProfile" }

func (c DeleteServiceProfile) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateProfileName(c.ProfileName); err != nil {
		return nil, err
	}
	return configAction(ctx, t, fmt.Sprintf("undo ont-srvprofile gpon profile-name %s", c.ProfileName))
}

// ListServiceProfiles lists every GPON service profile.
type ListServiceProfiles struct{}

func (c ListServiceProfiles) Name() string { return "ListServiceProfiles" }

func (c ListServiceProfiles) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return displayRows(ctx, t, firmware, "display ont-srvprofile gpon all")
}

// ListTrafficProfiles lists the IP traffic tables referenced by service
// port configuration.
type ListTrafficProfiles struct{}

func (c ListTrafficProfiles) Name() string { return "ListTrafficProfiles" }

func (c ListTrafficProfiles) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return displayRows(ctx, t, firmware, "display traffic table ip from-index 0")
}

// configAction runs one config-mode action command.
func configAction(ctx context.Context, t Transport, cmd string) (*Result, error) {
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

// displayRows runs one root-mode display command and parses its output
// through the rule chain.
func displayRows(ctx context.Context, t Transport, firmware, cmd string) (*Result, error) {
	output, err := t.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	rows, _ := Rules.Parse(cmd, firmware, output)
	return &Result{Status: StatusSuccess, Output: output, Rows: rows}, nil
}
