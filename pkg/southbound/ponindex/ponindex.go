// Package ponindex centralizes the proprietary ifIndex arithmetic used by
// Huawei GPON OLTs. Two encodings exist: the ONT ethernet port index used
// by per-port SNMP tables, and the PON port index carried by trap varbinds.
// Both are model-parameterized and bidirectional so that every command and
// trap decoder shares one formula instead of re-deriving it locally.
package ponindex

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

// Model identifies an OLT hardware model with its own index scheme.
type Model string

const (
	ModelMA5600T Model = "MA5600T"
	ModelMA5603T Model = "MA5603T"
	ModelMA5800  Model = "MA5800"
)

// PortType distinguishes ONT user-side port families in the eth index.
type PortType int

const (
	PortTypeEth  PortType = 1
	PortTypePots PortType = 2
)

// PortRef is a frame/slot/port address on the OLT.
type PortRef struct {
	Frame int `json:"frame"`
	Slot  int `json:"slot"`
	Port  int `json:"port"`
}

// String renders the canonical "frame/slot/port" form.
func (p PortRef) String() string {
	return fmt.Sprintf("%d/%d/%d", p.Frame, p.Slot, p.Port)
}

// FrameSlot renders the "frame/slot" prefix used by interface mode commands.
func (p PortRef) FrameSlot() string {
	return fmt.Sprintf("%d/%d", p.Frame, p.Slot)
}

// ParsePort parses a "frame/slot/port" string. Malformed input is rejected
// with a ValidationError before any network call is made.
func ParsePort(s string) (PortRef, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return PortRef{}, cli.NewValidationError("port", s, "expected frame/slot/port")
	}

	vals := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return PortRef{}, cli.NewValidationError("port", s, "frame, slot and port must be non-negative integers")
		}
		vals[i] = v
	}

	ref := PortRef{Frame: vals[0], Slot: vals[1], Port: vals[2]}
	if ref.Slot > maxSlot || ref.Port > maxPonPort {
		return PortRef{}, cli.NewValidationError("port", s, "slot or port out of range")
	}
	return ref, nil
}

// Field limits shared by the supported models. The arithmetic breaks down
// outside these ranges, so they are validated on the encode path.
const (
	maxSlot      = 31
	maxPonPort   = 15
	maxEthOntID  = 31
	maxTrapOntID = 127
	maxEthPort   = 15
	ethSlotSh    = 25
	ethPonSh     = 21
	ethOntSh     = 16
	ethTypeSh    = 12
	trapSlotSh   = 22
	trapPonSh    = 15
	trapOntMask  = 1<<trapPonSh - 1
)

// Scheme holds the per-model index parameters. The currently supported
// models share shift layouts; the scheme type keeps the selection explicit
// so firmware families with different layouts slot in without touching
// callers.
type Scheme struct {
	model Model
}

// ForModel returns the index scheme for an OLT model. Unknown models fall
// back to the MA5600T layout, which the firmware family shares.
func ForModel(m Model) Scheme {
	switch m {
	case ModelMA5600T, ModelMA5603T, ModelMA5800:
		return Scheme{model: m}
	default:
		return Scheme{model: ModelMA5600T}
	}
}

// Model returns the model this scheme encodes for.
func (s Scheme) Model() Model {
	return s.model
}

// OntEthIndex computes the SNMP table index for one ONT ethernet port:
// slot<<25 | ponPort<<21 | ontID<<16 | portType<<12 | ethPort.
func (s Scheme) OntEthIndex(slot, ponPort, ontID int, portType PortType, ethPort int) (int64, error) {
	switch {
	case slot < 0 || slot > maxSlot:
		return 0, cli.NewValidationError("slot", slot, fmt.Sprintf("must be 0..%d", maxSlot))
	case ponPort < 0 || ponPort > maxPonPort:
		return 0, cli.NewValidationError("ponPort", ponPort, fmt.Sprintf("must be 0..%d", maxPonPort))
	case ontID < 0 || ontID > maxEthOntID:
		return 0, cli.NewValidationError("ontID", ontID, fmt.Sprintf("must be 0..%d", maxEthOntID))
	case ethPort < 0 || ethPort > maxEthPort:
		return 0, cli.NewValidationError("ethPort", ethPort, fmt.Sprintf("must be 0..%d", maxEthPort))
	}

	return int64(slot)<<ethSlotSh |
		int64(ponPort)<<ethPonSh |
		int64(ontID)<<ethOntSh |
		int64(portType)<<ethTypeSh |
		int64(ethPort), nil
}

// OntEthFromIndex decodes an ONT ethernet port index back to its parts.
// The frame is always 0 in this encoding.
func (s Scheme) OntEthFromIndex(idx int64) (port PortRef, ontID int, portType PortType, ethPort int) {
	port = PortRef{
		Frame: 0,
		Slot:  int(idx >> ethSlotSh & 0x1F),
		Port:  int(idx >> ethPonSh & 0x0F),
	}
	ontID = int(idx >> ethOntSh & 0x1F)
	portType = PortType(idx >> ethTypeSh & 0x0F)
	ethPort = int(idx & 0xFFF)
	return
}

// TrapIndex computes the ifIndex form carried by trap varbinds:
// slot<<22 | ponPort<<15 | ontID.
func (s Scheme) TrapIndex(slot, ponPort, ontID int) (int64, error) {
	switch {
	case slot < 0 || slot > maxSlot:
		return 0, cli.NewValidationError("slot", slot, fmt.Sprintf("must be 0..%d", maxSlot))
	case ponPort < 0 || ponPort > maxPonPort:
		return 0, cli.NewValidationError("ponPort", ponPort, fmt.Sprintf("must be 0..%d", maxPonPort))
	case ontID < 0 || ontID > maxTrapOntID:
		return 0, cli.NewValidationError("ontID", ontID, fmt.Sprintf("must be 0..%d", maxTrapOntID))
	}

	return int64(slot)<<trapSlotSh | int64(ponPort)<<trapPonSh | int64(ontID), nil
}

// TrapFromIndex decodes a trap ifIndex into the PON port it addresses and
// the ONT id. The frame is always 0 in this encoding.
func (s Scheme) TrapFromIndex(idx int64) (port PortRef, ontID int) {
	port = PortRef{
		Frame: 0,
		Slot:  int(idx >> trapSlotSh),
		Port:  int(idx >> trapPonSh & 0x7F),
	}
	ontID = int(idx & trapOntMask)
	return
}
