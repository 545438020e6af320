// Package trap is the always-on ingestion pipeline for unsolicited SNMP
// traps: a UDP listener, per-model OID decode tables, identity enrichment
// against the inventory, and dual-routing-key publication that tolerates
// sysname renames in flight.
package trap

import (
	"time"
)

// Severities, ordered by urgency.
const (
	SeverityCritical = "critical"
	SeverityMajor    = "major"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Event types.
const (
	EventOntStateChange = "ont.status.change"
	EventOltAlarm       = "olt.alarm"
	EventDyingGasp      = "ont.power.dying_gasp"
	EventPortDown       = "port.down"
	EventPortUp         = "port.up"
	EventLOS            = "ont.signal.los"
	EventLOF            = "ont.signal.lof"
)

// Event is one decoded, enriched trap. It is published immediately and
// never persisted here; consumers must be idempotent on its content.
type Event struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	Severity   string    `json:"severity"`
	OltIP      string    `json:"olt_ip"`
	OltID      string    `json:"olt_id,omitempty"`
	OltName    string    `json:"olt_name"`
	Port       string    `json:"port,omitempty"`
	OntID      int       `json:"ont_id,omitempty"`
	IfIndex    int64     `json:"if_index,omitempty"`
	Serial     string    `json:"serial_number,omitempty"`
	ReceivedAt time.Time `json:"received_at"`

	// Fields carries decoder-specific extras (alarm ids, down causes).
	Fields map[string]string `json:"fields,omitempty"`
}
