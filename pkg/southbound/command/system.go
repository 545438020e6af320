package command

import (
	"context"
	"strings"

	"github.com/nanoncore/olt-fleet/pkg/southbound/parse"
)

// GetSystemInfo reads the chassis board inventory.
type GetSystemInfo struct{}

func (c GetSystemInfo) Name() string { return "GetSystemInfo" }

func (c GetSystemInfo) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return displayRows(ctx, t, firmware, "display board 0")
}

// GetVersion reads the firmware version and uptime.
type GetVersion struct{}

func (c GetVersion) Name() string { return "GetVersion" }

func (c GetVersion) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	output, err := t.Execute(ctx, "display version")
	if err != nil {
		return nil, err
	}
	return &Result{Status: StatusSuccess, Output: output, Fields: parse.KeyValues(output)}, nil
}

// GetClock reads the device wall clock. Also serves as the pool's
// liveness probe command.
type GetClock struct{}

func (c GetClock) Name() string { return "GetClock" }

func (c GetClock) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	output, err := t.Execute(ctx, "display time")
	if err != nil {
		return nil, err
	}
	fields := map[string]string{"time": strings.TrimSpace(output)}
	return &Result{Status: StatusSuccess, Output: output, Fields: fields}, nil
}
