package command

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
	"github.com/nanoncore/olt-fleet/pkg/southbound/parse"
	"github.com/nanoncore/olt-fleet/pkg/southbound/ponindex"
)

// Huawei enterprise OID tree plus the standard branches the generic
// counters come from.
const (
	huaweiEnterprise = "1.3.6.1.4.1.2011"
	huaweiXPON       = huaweiEnterprise + ".6.128.1.1"

	oidOntDdmTemperature = huaweiXPON + ".2.51.1.1"
	oidOntDdmBiasCurrent = huaweiXPON + ".2.51.1.2"
	oidOntDdmTxPower     = huaweiXPON + ".2.51.1.3"
	oidOntDdmRxPower     = huaweiXPON + ".2.51.1.4"
	oidOntDdmVoltage     = huaweiXPON + ".2.51.1.5"

	oidOntTrafficRxBytes = huaweiXPON + ".2.46.1.1"
	oidOntTrafficTxBytes = huaweiXPON + ".2.46.1.2"

	oidEntityTemperature = huaweiEnterprise + ".5.25.31.1.1.1.1.11"

	oidIfDescr      = "1.3.6.1.2.1.2.2.1.2"
	oidIfOperStatus = "1.3.6.1.2.1.2.2.1.8"

	oidDot1dTpFdbAddress = "1.3.6.1.2.1.17.4.3.1.1"
	oidDot1dTpFdbPort    = "1.3.6.1.2.1.17.4.3.1.2"
)

// SNMPTarget addresses one device for an ephemeral SNMP session. SNMP
// commands are not pooled: UDP is connectionless, so there is no session
// state worth keeping.
type SNMPTarget struct {
	Host      string
	Community string
	Port      uint16
	Timeout   time.Duration
	Retries   int
	Model     ponindex.Model
}

func (t SNMPTarget) connect() (*gosnmp.GoSNMP, error) {
	port := t.Port
	if port == 0 {
		port = 161
	}
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := t.Retries
	if retries <= 0 {
		retries = 2
	}

	client := &gosnmp.GoSNMP{
		Target:    t.Host,
		Port:      port,
		Community: t.Community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   retries,
		MaxOids:   gosnmp.MaxOids,
	}
	if err := client.Connect(); err != nil {
		return nil, cli.NewConnectionError(t.Host, int(port), "snmp connect failed", err)
	}
	return client, nil
}

// get runs one GET and surfaces engine errors as structured errors.
func (t SNMPTarget) get(oids []string) (map[string]gosnmp.SnmpPDU, error) {
	client, err := t.connect()
	if err != nil {
		return nil, err
	}
	defer client.Conn.Close()

	packet, err := client.Get(oids)
	if err != nil {
		return nil, cli.NewCommandError("snmp get", "request failed", "", err)
	}
	if packet.Error != gosnmp.NoError {
		return nil, cli.NewCommandError("snmp get",
			fmt.Sprintf("engine error %s at index %d", packet.Error, packet.ErrorIndex), "", nil)
	}

	values := make(map[string]gosnmp.SnmpPDU, len(packet.Variables))
	for _, pdu := range packet.Variables {
		values[normalizeOID(pdu.Name)] = pdu
	}
	return values, nil
}

func normalizeOID(oid string) string {
	if len(oid) > 0 && oid[0] == '.' {
		return oid[1:]
	}
	return oid
}

// ponIfIndex computes the PON-port ifIndex that prefixes per-ONT SNMP
// table rows (row index format: ifIndex.ontId).
func (t SNMPTarget) ponIfIndex(port string) (int64, ponindex.PortRef, error) {
	p, err := ponindex.ParsePort(port)
	if err != nil {
		return 0, ponindex.PortRef{}, err
	}
	idx, err := ponindex.ForModel(t.Model).TrapIndex(p.Slot, p.Port, 0)
	if err != nil {
		return 0, ponindex.PortRef{}, err
	}
	return idx, p, nil
}

// OntOptical carries one ONT's transceiver diagnostics.
type OntOptical struct {
	Port         string  `json:"port"`
	OntID        int     `json:"ont_id"`
	RxPowerDBm   float64 `json:"rx_power_dbm"`
	TxPowerDBm   float64 `json:"tx_power_dbm"`
	TemperatureC float64 `json:"temperature_c"`
	VoltageV     float64 `json:"voltage_v"`
	BiasMA       float64 `json:"bias_ma"`
}

// GetOntOpticalInfo reads one ONT's optical DDM values over SNMP. Power
// readings come back in 1/100 dBm with invalid sentinels mapped to the
// no-signal floor.
type GetOntOpticalInfo struct {
	Target SNMPTarget
	Port   string
	OntID  int
}

func (c GetOntOpticalInfo) Name() string { return "GetOntOpticalInfo" }
func (c GetOntOpticalInfo) Standalone() {}

func (c GetOntOpticalInfo) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateOntID(c.OntID); err != nil {
		return nil, err
	}
	ifIndex, p, err := c.Target.ponIfIndex(c.Port)
	if err != nil {
		return nil, err
	}

	suffix := fmt.Sprintf(".%d.%d", ifIndex, c.OntID)
	oids := []string{
		oidOntDdmRxPower + suffix,
		oidOntDdmTxPower + suffix,
		oidOntDdmTemperature + suffix,
		oidOntDdmVoltage + suffix,
		oidOntDdmBiasCurrent + suffix,
	}
	values, err := c.Target.get(oids)
	if err != nil {
		return nil, err
	}

	optical := OntOptical{Port: p.String(), OntID: c.OntID}
	for oid, pdu := range values {
		raw := parse.Int64(pdu.Value)
		switch {
		case hasBase(oid, oidOntDdmRxPower):
			optical.RxPowerDBm = parse.OpticalPower100(raw)
		case hasBase(oid, oidOntDdmTxPower):
			optical.TxPowerDBm = parse.OpticalPower100(raw)
		case hasBase(oid, oidOntDdmTemperature):
			// DDM temperature is reported in whole degrees.
			optical.TemperatureC = float64(raw)
		case hasBase(oid, oidOntDdmVoltage):
			optical.VoltageV = float64(raw) / 1000.0
		case hasBase(oid, oidOntDdmBiasCurrent):
			optical.BiasMA = float64(raw) / 1000.0
		}
	}

	return &Result{Status: StatusSuccess, Data: optical}, nil
}

func hasBase(oid, base string) bool {
	return len(oid) > len(base) && oid[:len(base)] == base
}

// OntTraffic carries one ONT's byte counters.
type OntTraffic struct {
	Port    string `json:"port"`
	OntID   int    `json:"ont_id"`
	RxBytes uint64 `json:"rx_bytes"`
	TxBytes uint64 `json:"tx_bytes"`
}

// GetOntTraffic reads one ONT's upstream/downstream byte counters.
type GetOntTraffic struct {
	Target SNMPTarget
	Port   string
	OntID  int
}

func (c GetOntTraffic) Name() string { return "GetOntTraffic" }
func (c GetOntTraffic) Standalone() {}

func (c GetOntTraffic) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if err := validateOntID(c.OntID); err != nil {
		return nil, err
	}
	ifIndex, p, err := c.Target.ponIfIndex(c.Port)
	if err != nil {
		return nil, err
	}

	suffix := fmt.Sprintf(".%d.%d", ifIndex, c.OntID)
	values, err := c.Target.get([]string{
		oidOntTrafficRxBytes + suffix,
		oidOntTrafficTxBytes + suffix,
	})
	if err != nil {
		return nil, err
	}

	traffic := OntTraffic{Port: p.String(), OntID: c.OntID}
	for oid, pdu := range values {
		switch {
		case hasBase(oid, oidOntTrafficRxBytes):
			traffic.RxBytes = parse.Uint64(pdu.Value)
		case hasBase(oid, oidOntTrafficTxBytes):
			traffic.TxBytes = parse.Uint64(pdu.Value)
		}
	}
	return &Result{Status: StatusSuccess, Data: traffic}, nil
}

// GetPortStateSNMP reads one PON port's IF-MIB operational status.
type GetPortStateSNMP struct {
	Target SNMPTarget
	Port   string
}

func (c GetPortStateSNMP) Name() string { return "GetPortStateSNMP" }
func (c GetPortStateSNMP) Standalone() {}

func (c GetPortStateSNMP) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	ifIndex, p, err := c.Target.ponIfIndex(c.Port)
	if err != nil {
		return nil, err
	}

	oid := fmt.Sprintf("%s.%d", oidIfOperStatus, ifIndex)
	values, err := c.Target.get([]string{oid})
	if err != nil {
		return nil, err
	}

	state := "unknown"
	if pdu, ok := values[oid]; ok {
		switch parse.Int64(pdu.Value) {
		case 1:
			state = "up"
		case 2:
			state = "down"
		}
	}
	return &Result{
		Status: StatusSuccess,
		Fields: map[string]string{"port": p.String(), "oper_status": state},
	}, nil
}

// GetOltTemperature walks the entity temperature sensors. Boards that do
// not report temperature return the not-supported sentinel and are
// skipped.
type GetOltTemperature struct {
	Target SNMPTarget
}

func (c GetOltTemperature) Name() string { return "GetOltTemperature" }
func (c GetOltTemperature) Standalone() {}

func (c GetOltTemperature) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	pdus, err := walkSubtree(c.Target, oidEntityTemperature)
	if err != nil {
		return nil, err
	}

	var rows []map[string]string
	for _, pdu := range pdus {
		temp, ok := parse.Temperature(parse.Int64(pdu.Value))
		if !ok {
			continue
		}
		indices := parse.ExtractIndex(normalizeOID(pdu.Name), oidEntityTemperature)
		entity := ""
		if len(indices) > 0 {
			entity = fmt.Sprintf("%d", indices[len(indices)-1])
		}
		rows = append(rows, map[string]string{
			"entity":        entity,
			"temperature_c": fmt.Sprintf("%.1f", temp),
		})
	}
	return &Result{Status: StatusSuccess, Rows: rows}, nil
}

// GetMacTable walks the bridge forwarding database.
type GetMacTable struct {
	Target SNMPTarget
}

func (c GetMacTable) Name() string { return "GetMacTable" }
func (c GetMacTable) Standalone() {}

func (c GetMacTable) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	addresses, err := walkSubtree(c.Target, oidDot1dTpFdbAddress)
	if err != nil {
		return nil, err
	}
	ports, err := walkSubtree(c.Target, oidDot1dTpFdbPort)
	if err != nil {
		return nil, err
	}

	// Both tables share the MAC-derived row index; join on the suffix.
	portBySuffix := make(map[string]int64, len(ports))
	for _, pdu := range ports {
		suffix := normalizeOID(pdu.Name)[len(oidDot1dTpFdbPort):]
		portBySuffix[suffix] = parse.Int64(pdu.Value)
	}

	rows := make([]map[string]string, 0, len(addresses))
	for _, pdu := range addresses {
		suffix := normalizeOID(pdu.Name)[len(oidDot1dTpFdbAddress):]
		row := map[string]string{"mac": parse.MAC(pdu.Value)}
		if port, ok := portBySuffix[suffix]; ok {
			row["bridge_port"] = fmt.Sprintf("%d", port)
		}
		rows = append(rows, row)
	}
	return &Result{Status: StatusSuccess, Rows: rows}, nil
}

// GetIfDescriptions walks IF-MIB interface descriptions.
type GetIfDescriptions struct {
	Target SNMPTarget
}

func (c GetIfDescriptions) Name() string { return "GetIfDescriptions" }
func (c GetIfDescriptions) Standalone() {}

func (c GetIfDescriptions) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	pdus, err := walkSubtree(c.Target, oidIfDescr)
	if err != nil {
		return nil, err
	}

	rows := make([]map[string]string, 0, len(pdus))
	for _, pdu := range pdus {
		indices := parse.ExtractIndex(normalizeOID(pdu.Name), oidIfDescr)
		if len(indices) == 0 {
			continue
		}
		rows = append(rows, map[string]string{
			"ifindex": fmt.Sprintf("%d", indices[len(indices)-1]),
			"descr":   parse.String(pdu.Value),
		})
	}
	return &Result{Status: StatusSuccess, Rows: rows}, nil
}

// walkSubtree bulk-walks one OID subtree over an ephemeral session.
func walkSubtree(target SNMPTarget, rootOID string) ([]gosnmp.SnmpPDU, error) {
	client, err := target.connect()
	if err != nil {
		return nil, err
	}
	defer client.Conn.Close()

	pdus, err := client.BulkWalkAll(rootOID)
	if err != nil {
		return nil, cli.NewCommandError("snmp walk "+rootOID, "walk failed", "", err)
	}
	return pdus, nil
}
