package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
	"github.com/nanoncore/olt-fleet/pkg/southbound/parse"
	"github.com/nanoncore/olt-fleet/pkg/southbound/ponindex"
)

const maxOntID = 127

func validateOntID(ontID int) error {
	if ontID < 0 || ontID > maxOntID {
		return cli.NewValidationError("ontId", ontID, fmt.Sprintf("must be 0..%d", maxOntID))
	}
	return nil
}

func validateSerialNumber(sn string) error {
	if len(sn) < 8 || len(sn) > 16 {
		return cli.NewValidationError("serialNumber", sn, "length must be 8..16")
	}
	return nil
}

// AddOnt provisions an ONT under a GPON port with SN-based authentication,
// binding it to pre-existing line and service profiles.
type AddOnt struct {
	Port           string
	OntID          int
	SerialNumber   string
	LineProfile    string
	ServiceProfile string
	Description    string
}

func (c AddOnt) Name() string { return "AddOnt" }

func (c AddOnt) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	p, err := ponindex.ParsePort(c.Port)
	if err != nil {
		return nil, err
	}
	if err := validateOntID(c.OntID); err != nil {
		return nil, err
	}
	if err := validateSerialNumber(c.SerialNumber); err != nil {
		return nil, err
	}
	if c.LineProfile == "" || c.ServiceProfile == "" {
		return nil, cli.NewValidationError("profile", "", "line and service profile names are required")
	}

	cmd := fmt.Sprintf("ont add %d %d sn-auth %s omci ont-lineprofile-name %s ont-srvprofile-name %s",
		p.Port, c.OntID, c.SerialNumber, c.LineProfile, c.ServiceProfile)
	if c.Description != "" {
		cmd += fmt.Sprintf(" desc %q", c.Description)
	}

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

// OntConfirm confirms an auto-found ONT, converting it to an authorized
// one with the given profiles.
type OntConfirm struct {
	Port           string
	OntID          int
	SerialNumber   string
	LineProfile    string
	ServiceProfile string
}

func (c OntConfirm) Name() string { return "OntConfirm" }

func (c OntConfirm) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	p, err := ponindex.ParsePort(c.Port)
	if err != nil {
		return nil, err
	}
	if err := validateOntID(c.OntID); err != nil {
		return nil, err
	}
	if err := validateSerialNumber(c.SerialNumber); err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf("ont confirm %d ontid %d sn-auth %s omci ont-lineprofile-name %s ont-srvprofile-name %s",
		p.Port, c.OntID, c.SerialNumber, c.LineProfile, c.ServiceProfile)

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

// DeleteOnt removes one ONT's authorization.
type DeleteOnt struct {
	Port  string
	OntID int
}

func (c DeleteOnt) Name() string { return "DeleteOnt" }

func (c DeleteOnt) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return ontAction(ctx, t, c.Port, c.OntID, "ont delete %d %d")
}

// ActivateOnt brings one ONT administratively up.
type ActivateOnt struct {
	Port  string
	OntID int
}

func (c ActivateOnt) Name() string { return "ActivateOnt" }

func (c ActivateOnt) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return ontAction(ctx, t, c.Port, c.OntID, "ont activate %d %d")
}

// DeactivateOnt takes one ONT administratively down.
type DeactivateOnt struct {
	Port  string
	OntID int
}

func (c DeactivateOnt) Name() string { return "DeactivateOnt" }

func (c DeactivateOnt) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return ontAction(ctx, t, c.Port, c.OntID, "ont deactivate %d %d")
}

// ontAction runs one per-ONT interface-mode command with the shared
// validate/enter/execute/exit shape.
func ontAction(ctx context.Context, t Transport, port string, ontID int, format string) (*Result, error) {
	p, err := ponindex.ParsePort(port)
	if err != nil {
		return nil, err
	}
	if err := validateOntID(ontID); err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf(format, p.Port, ontID)
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

// RebootOnt resets one ONT. The firmware prompts for y/n confirmation on
// the reset, so the command runs as a two-step interaction; without the
// confirming keystroke the session hangs until timeout.
type RebootOnt struct {
	Port  string
	OntID int
}

func (c RebootOnt) Name() string { return "RebootOnt" }

func (c RebootOnt) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	p, err := ponindex.ParsePort(c.Port)
	if err != nil {
		return nil, err
	}
	if err := validateOntID(c.OntID); err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf("ont reset %d %d", p.Port, c.OntID)
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

// GetOntInfo reads one ONT's state, distance and description.
type GetOntInfo struct {
	Port  string
	OntID int
}

func (c GetOntInfo) Name() string { return "GetOntInfo" }

func (c GetOntInfo) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if _, err := ponindex.ParsePort(c.Port); err != nil {
		return nil, err
	}
	if err := validateOntID(c.OntID); err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf("display ont info %s %d", c.Port, c.OntID)
	output, err := t.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusSuccess, Output: output, Fields: parse.KeyValues(output)}, nil
}

// GetOntAutofind lists unauthorized ONTs seen on the PON.
type GetOntAutofind struct {
	// Port limits the listing to one PON port; empty lists all.
	Port string
}

func (c GetOntAutofind) Name() string { return "GetOntAutofind" }

func (c GetOntAutofind) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	cmd := "display ont autofind all"
	if c.Port != "" {
		p, err := ponindex.ParsePort(c.Port)
		if err != nil {
			return nil, err
		}
		cmd = fmt.Sprintf("display ont autofind %s", p)
	}

	output, err := t.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}

	rows := parseAutofind(output)
	return &Result{Status: StatusSuccess, Output: output, Rows: rows}, nil
}

// parseAutofind splits the autofind listing into per-ONT blocks. Blocks
// are separated by numbered "Number : N" headers.
func parseAutofind(output string) []map[string]string {
	var rows []map[string]string
	var block []string

	flush := func() {
		if len(block) == 0 {
			return
		}
		kv := parse.KeyValues(strings.Join(block, "\n"))
		if len(kv) > 0 {
			rows = append(rows, kv)
		}
		block = nil
	}

	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), "number") && strings.Contains(trimmed, ":") {
			flush()
		}
		block = append(block, line)
	}
	flush()
	return rows
}

// GetOntVersion reads one ONT's hardware and software versions.
type GetOntVersion struct {
	Port  string
	OntID int
}

func (c GetOntVersion) Name() string { return "GetOntVersion" }

func (c GetOntVersion) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if _, err := ponindex.ParsePort(c.Port); err != nil {
		return nil, err
	}
	if err := validateOntID(c.OntID); err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf("display ont version %s %d", c.Port, c.OntID)
	output, err := t.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusSuccess, Output: output, Fields: parse.KeyValues(output)}, nil
}

// SetOntDescription rewrites one ONT's description.
type SetOntDescription struct {
	Port        string
	OntID       int
	Description string
}

func (c SetOntDescription) Name() string { return "SetOntDescription" }

func (c SetOntDescription) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	p, err := ponindex.ParsePort(c.Port)
	if err != nil {
		return nil, err
	}
	if err := validateOntID(c.OntID); err != nil {
		return nil, err
	}
	if len(c.Description) > 64 {
		return nil, cli.NewValidationError("description", c.Description, "longer than 64 characters")
	}

	cmd := fmt.Sprintf("ont modify %d %d desc %q", p.Port, c.OntID, c.Description)
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

// GetOntOpticalInfoCLI reads one ONT's optical diagnostics over the CLI.
// The SNMP variant is preferred for polling; this one serves ad-hoc
// diagnosis when SNMP is filtered.
type GetOntOpticalInfoCLI struct {
	Port  string
	OntID int
}

func (c GetOntOpticalInfoCLI) Name() string { return "GetOntOpticalInfoCLI" }

func (c GetOntOpticalInfoCLI) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if _, err := ponindex.ParsePort(c.Port); err != nil {
		return nil, err
	}
	if err := validateOntID(c.OntID); err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf("display ont optical-info %s %d", c.Port, c.OntID)
	output, err := t.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusSuccess, Output: output, Fields: parse.KeyValues(output)}, nil
}
