package command

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

// Backup is a point-in-time capture of the device's provisioning state.
type Backup struct {
	TakenAt  time.Time         `json:"taken_at"`
	Sections map[string]string `json:"sections"`
}

// backupSections are captured in order. Users are optional because the
// section carries credentials even after redaction of password lines.
var backupSections = []struct {
	name    string
	command string
}{
	{"system", "display version"},
	{"boards", "display board 0"},
	{"dba_profiles", "display dba-profile all"},
	{"line_profiles", "display ont-lineprofile gpon all"},
	{"service_profiles", "display ont-srvprofile gpon all"},
	{"traffic_profiles", "display traffic table ip from-index 0"},
	{"vlans", "display vlan all"},
	{"interfaces", "display current-configuration section config"},
}

// BackupConfiguration captures system info, every profile type, interface
// configuration, VLANs and (unless excluded) local users with password
// lines redacted.
type BackupConfiguration struct {
	ExcludeUsers bool
}

func (c BackupConfiguration) Name() string { return "BackupConfiguration" }

func (c BackupConfiguration) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	backup := Backup{
		TakenAt:  time.Now().UTC(),
		Sections: make(map[string]string, len(backupSections)+1),
	}

	for _, s := range backupSections {
		output, err := t.Execute(ctx, s.command)
		if err != nil {
			return nil, err
		}
		backup.Sections[s.name] = output
	}

	if !c.ExcludeUsers {
		output, err := t.Execute(ctx, "display terminal user all")
		if err != nil {
			return nil, err
		}
		backup.Sections["users"] = redactPasswords(output)
	}

	return &Result{Status: StatusSuccess, Data: backup}, nil
}

var passwordLineRE = regexp.MustCompile(`(?i)^(.*password\b(?:\s+(?:cipher|simple|irreversible-cipher))?\s+)\S.*$`)

// redactPasswords blanks everything after a password keyword on each line
// so backups can be stored without carrying credentials.
func redactPasswords(output string) string {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), "password") {
			lines[i] = passwordLineRE.ReplaceAllString(line, "${1}******")
		}
	}
	return strings.Join(lines, "\n")
}

// RestoreReport summarizes a configuration replay.
type RestoreReport struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Failures  []RestoreFailure `json:"failures,omitempty"`
}

// RestoreFailure records one rejected line with the device's response.
type RestoreFailure struct {
	Line   string `json:"line"`
	Output string `json:"output"`
}

// RestoreConfiguration replays captured configuration lines verbatim
// inside config mode, tracking per-line success. Rejected lines are
// recorded and replay continues; the device may end up partially
// configured, which the report makes visible.
type RestoreConfiguration struct {
	Lines []string
}

func (c RestoreConfiguration) Name() string { return "RestoreConfiguration" }

func (c RestoreConfiguration) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if len(c.Lines) == 0 {
		return nil, cli.NewValidationError("lines", "", "no configuration lines to restore")
	}

	report := RestoreReport{}
	err := cli.WithConfig(ctx, t, func() error {
		for _, line := range c.Lines {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			report.Total++

			output, execErr := t.Execute(ctx, line)
			if execErr != nil {
				return execErr
			}
			if ok, _ := classifyOutput(output, nil); ok {
				report.Succeeded++
			} else {
				report.Failed++
				report.Failures = append(report.Failures, RestoreFailure{Line: line, Output: output})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	status := StatusSuccess
	if report.Failed > 0 {
		status = StatusError
	}
	return &Result{Status: status, Data: report}, nil
}

// SaveConfig persists the running configuration to flash. The firmware
// asks for confirmation before writing.
type SaveConfig struct{}

func (c SaveConfig) Name() string { return "SaveConfig" }

func (c SaveConfig) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	output, err := t.ExecuteConfirm(ctx, "save", "y")
	if err != nil {
		return nil, err
	}
	return actionResult("save", output, "success", "it will take several minutes")
}
