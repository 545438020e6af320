package fleet

import (
	"context"

	"github.com/nanoncore/olt-fleet/pkg/southbound/command"
	"github.com/nanoncore/olt-fleet/pkg/sysname"
)

// GuardDevice adapts the command execution path to the surface the
// sysname guard drives.
type GuardDevice struct {
	svc *OltService
}

var _ sysname.DeviceClient = (*GuardDevice)(nil)

// NewGuardDevice wraps the service for the sysname guard.
func NewGuardDevice(svc *OltService) *GuardDevice {
	return &GuardDevice{svc: svc}
}

func (d *GuardDevice) CurrentSysname(ctx context.Context, oltID string) (string, error) {
	result, err := d.svc.Execute(ctx, oltID, command.GetSysname{})
	if err != nil {
		return "", err
	}
	return result.Fields["sysname"], nil
}

func (d *GuardDevice) ApplySysname(ctx context.Context, oltID, name string) error {
	_, err := d.svc.Execute(ctx, oltID, command.SetSysname{Sysname: name})
	return err
}

func (d *GuardDevice) BackupConfig(ctx context.Context, oltID string) error {
	_, err := d.svc.Execute(ctx, oltID, command.BackupConfiguration{ExcludeUsers: true})
	return err
}
