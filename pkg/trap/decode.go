package trap

import (
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/nanoncore/olt-fleet/pkg/southbound/parse"
	"github.com/nanoncore/olt-fleet/pkg/southbound/ponindex"
)

// Varbind OIDs shared across trap types.
const (
	oidSnmpTrapOID = "1.3.6.1.6.3.1.1.4.1.0"

	oidIfIndex = "1.3.6.1.2.1.2.2.1.1"

	huaweiXPON      = "1.3.6.1.4.1.2011.6.128.1.1"
	oidOntSerial    = huaweiXPON + ".2.43.1.3"
	oidOntDownCause = huaweiXPON + ".2.43.1.10"
	oidOntRunStatus = huaweiXPON + ".2.43.1.6"
	oidAlarmID      = huaweiXPON + ".2.50.1.1"
	oidAlarmValue   = huaweiXPON + ".2.50.1.2"
	oidAlarmStatus  = huaweiXPON + ".2.50.1.3"
)

// Trap OIDs. Proprietary notifications live under the XPON notification
// branch; port up/down arrive as standard linkUp/linkDown.
const (
	trapBase = huaweiXPON + ".1.0"

	trapOntStateChange = trapBase + ".1"
	trapAlarm          = trapBase + ".2"
	trapDyingGasp      = trapBase + ".3"
	trapLOS            = trapBase + ".5"
	trapLOF            = trapBase + ".6"
	// MA5800 firmware renumbered the dying gasp notification.
	trapDyingGaspMA5800 = trapBase + ".13"

	trapLinkDown = "1.3.6.1.6.3.1.1.5.3"
	trapLinkUp   = "1.3.6.1.6.3.1.1.5.4"
)

// decoder turns one matched trap into an Event skeleton.
type decoder struct {
	eventType string
	severity  string
	decode    func(vars []gosnmp.SnmpPDU, scheme ponindex.Scheme, ev *Event)
}

// decodeTable maps trap OIDs to decoders for one OLT model.
type decodeTable map[string]decoder

// tableForModel returns the decode table for an OLT model. Unknown models
// use the MA5600T table, matching the index scheme fallback.
func tableForModel(m ponindex.Model) decodeTable {
	switch m {
	case ponindex.ModelMA5800:
		return ma5800Table
	default:
		return ma5600Table
	}
}

var ma5600Table = decodeTable{
	trapOntStateChange: {eventType: EventOntStateChange, severity: SeverityInfo, decode: decodeStateChange},
	trapAlarm:          {eventType: EventOltAlarm, severity: SeverityWarning, decode: decodeAlarm},
	trapDyingGasp:      {eventType: EventDyingGasp, severity: SeverityCritical, decode: decodeOntLocation},
	trapLOS:            {eventType: EventLOS, severity: SeverityMajor, decode: decodeOntLocation},
	trapLOF:            {eventType: EventLOF, severity: SeverityMajor, decode: decodeOntLocation},
	trapLinkDown:       {eventType: EventPortDown, severity: SeverityWarning, decode: decodePortLocation},
	trapLinkUp:         {eventType: EventPortUp, severity: SeverityInfo, decode: decodePortLocation},
}

var ma5800Table = decodeTable{
	trapOntStateChange:  {eventType: EventOntStateChange, severity: SeverityInfo, decode: decodeStateChange},
	trapAlarm:           {eventType: EventOltAlarm, severity: SeverityWarning, decode: decodeAlarm},
	trapDyingGasp:       {eventType: EventDyingGasp, severity: SeverityCritical, decode: decodeOntLocation},
	trapDyingGaspMA5800: {eventType: EventDyingGasp, severity: SeverityCritical, decode: decodeOntLocation},
	trapLOS:             {eventType: EventLOS, severity: SeverityMajor, decode: decodeOntLocation},
	trapLOF:             {eventType: EventLOF, severity: SeverityMajor, decode: decodeOntLocation},
	trapLinkDown:        {eventType: EventPortDown, severity: SeverityWarning, decode: decodePortLocation},
	trapLinkUp:          {eventType: EventPortUp, severity: SeverityInfo, decode: decodePortLocation},
}

// trapOID extracts the designated trap OID varbind from a packet. Empty
// means the packet carries none and cannot be dispatched.
func trapOID(vars []gosnmp.SnmpPDU) string {
	for _, v := range vars {
		if normalizeOID(v.Name) == oidSnmpTrapOID {
			if v.Type == gosnmp.ObjectIdentifier {
				return normalizeOID(parse.String(v.Value))
			}
		}
	}
	return ""
}

func normalizeOID(oid string) string {
	return strings.TrimPrefix(oid, ".")
}

// decodeOntLocation resolves the ONT position from the ifIndex varbind
// and picks up the serial number when present. Shared by dying gasp, LOS
// and LOF.
func decodeOntLocation(vars []gosnmp.SnmpPDU, scheme ponindex.Scheme, ev *Event) {
	for _, v := range vars {
		oid := normalizeOID(v.Name)
		switch {
		case strings.HasPrefix(oid, oidIfIndex):
			ev.IfIndex = parse.Int64(v.Value)
			port, ontID := scheme.TrapFromIndex(ev.IfIndex)
			ev.Port = port.String()
			ev.OntID = ontID
		case strings.HasPrefix(oid, oidOntSerial):
			ev.Serial = parse.String(v.Value)
		}
	}
}

// huaweiDownCauses translates the proprietary last-down-cause code.
var huaweiDownCauses = map[int64]string{
	1:  "unknown",
	2:  "los",
	3:  "lof",
	4:  "lopc_miss",
	5:  "dying_gasp",
	6:  "ont_deregister",
	7:  "ont_reboot",
	8:  "losi",
	9:  "lofi",
	10: "loami",
	11: "mem_failure",
	12: "sw_failure",
}

func downCause(code int64) string {
	if s, ok := huaweiDownCauses[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown(%d)", code)
}

func decodeStateChange(vars []gosnmp.SnmpPDU, scheme ponindex.Scheme, ev *Event) {
	decodeOntLocation(vars, scheme, ev)
	for _, v := range vars {
		oid := normalizeOID(v.Name)
		switch {
		case strings.HasPrefix(oid, oidOntRunStatus):
			if parse.Int64(v.Value) == 1 {
				ev.setField("run_state", "online")
			} else {
				ev.setField("run_state", "offline")
			}
		case strings.HasPrefix(oid, oidOntDownCause):
			ev.setField("down_cause", downCause(parse.Int64(v.Value)))
		}
	}
}

func decodeAlarm(vars []gosnmp.SnmpPDU, scheme ponindex.Scheme, ev *Event) {
	decodeOntLocation(vars, scheme, ev)
	for _, v := range vars {
		oid := normalizeOID(v.Name)
		switch {
		case strings.HasPrefix(oid, oidAlarmID):
			ev.setField("alarm_id", fmt.Sprintf("%d", parse.Int64(v.Value)))
		case strings.HasPrefix(oid, oidAlarmValue):
			ev.setField("alarm_value", parse.String(v.Value))
		case strings.HasPrefix(oid, oidAlarmStatus):
			if parse.Int64(v.Value) == 1 {
				ev.setField("alarm_status", "raised")
			} else {
				ev.setField("alarm_status", "cleared")
			}
		}
	}
}

// decodePortLocation handles linkUp/linkDown: the ifIndex addresses the
// PON port itself, not an ONT.
func decodePortLocation(vars []gosnmp.SnmpPDU, scheme ponindex.Scheme, ev *Event) {
	for _, v := range vars {
		if strings.HasPrefix(normalizeOID(v.Name), oidIfIndex) {
			ev.IfIndex = parse.Int64(v.Value)
			port, _ := scheme.TrapFromIndex(ev.IfIndex)
			ev.Port = port.String()
		}
	}
}

func (e *Event) setField(key, value string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[key] = value
}

// Decode matches a trap's varbinds against the model's table and builds
// the event skeleton. ok is false for unrecognized trap OIDs; the caller
// logs and drops those.
func Decode(vars []gosnmp.SnmpPDU, model ponindex.Model) (Event, bool) {
	oid := trapOID(vars)
	if oid == "" {
		return Event{}, false
	}
	d, ok := tableForModel(model)[oid]
	if !ok {
		return Event{}, false
	}

	ev := Event{
		EventType: d.eventType,
		Severity:  d.severity,
	}
	d.decode(vars, ponindex.ForModel(model), &ev)
	return ev, true
}
