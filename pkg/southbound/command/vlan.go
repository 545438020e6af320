package command

import (
	"context"
	"fmt"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
	"github.com/nanoncore/olt-fleet/pkg/southbound/ponindex"
)

func validateVlanID(id int) error {
	if id < 1 || id > 4094 {
		return cli.NewValidationError("vlanId", id, "must be 1..4094")
	}
	return nil
}

// CreateVlan creates one VLAN. Type defaults to smart, the service VLAN
// flavor used for subscriber traffic.
type CreateVlan struct {
	VlanID int
	Type   string
}

func (c CreateVlan) Name() string { return "CreateVlan" }

func (c CreateVlan) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateVlanID(c.VlanID); err != nil {
		return nil, err
	}
	vlanType := c.Type
	if vlanType == "" {
		vlanType = "smart"
	}
	switch vlanType {
	case "smart", "standard", "mux", "super":
	default:
		return nil, cli.NewValidationError("type", vlanType, "must be smart, standard, mux or super")
	}

	return configAction(ctx, t, fmt.Sprintf("vlan %d %s", c.VlanID, vlanType))
}

// DeleteVlan removes one VLAN. Fails on the device if service ports still
// reference it.
type DeleteVlan struct {
	VlanID int
}

func (c DeleteVlan) Name() string { return "DeleteVlan" }

func (c DeleteVlan) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateVlanID(c.VlanID); err != nil {
		return nil, err
	}
	return configAction(ctx, t, fmt.Sprintf("undo vlan %d", c.VlanID))
}

// ListVlans lists every configured VLAN.
type ListVlans struct{}

func (c ListVlans) Name() string { return "ListVlans" }

func (c ListVlans) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	return displayRows(ctx, t, firmware, "display vlan all")
}

// AddPortToVlan tags one uplink port into a VLAN.
type AddPortToVlan struct {
	VlanID int
	Port   string
}

func (c AddPortToVlan) Name() string { return "AddPortToVlan" }

func (c AddPortToVlan) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateVlanID(c.VlanID); err != nil {
		return nil, err
	}
	p, err := ponindex.ParsePort(c.Port)
	if err != nil {
		return nil, err
	}

	cmd := fmt.Sprintf("port vlan %d %s %d", c.VlanID, p.FrameSlot(), p.Port)
	return configAction(ctx, t, cmd)
}
