package parse

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"
)

// SNMP value converters shared by the SNMP commands and the trap decoders.

// Int64 extracts an int64 from an SNMP value.
func Int64(value interface{}) int64 {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint64:
		return int64(v)
	case uint32:
		return int64(v)
	case int32:
		return int64(v)
	default:
		return gosnmp.ToBigInt(value).Int64()
	}
}

// Uint64 extracts a uint64 from an SNMP value.
func Uint64(value interface{}) uint64 {
	switch v := value.(type) {
	case uint:
		return uint64(v)
	case uint64:
		return v
	case uint32:
		return uint64(v)
	case int:
		return uint64(v)
	case int64:
		return uint64(v)
	default:
		return gosnmp.ToBigInt(value).Uint64()
	}
}

// String extracts a string from an SNMP value.
func String(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// HexString renders an SNMP value's byte view as lowercase hex. Used by the
// walk content filter, which matches against both decoded and hex views.
func HexString(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		return fmt.Sprintf("%x", v)
	case string:
		return fmt.Sprintf("%x", []byte(v))
	default:
		return ""
	}
}

// MAC extracts a MAC address from an SNMP value.
func MAC(value interface{}) string {
	switch v := value.(type) {
	case []byte:
		if len(v) == 6 {
			return net.HardwareAddr(v).String()
		}
		return fmt.Sprintf("%x", v)
	case string:
		return v
	default:
		return ""
	}
}

// IP extracts an IP address from an SNMP value.
func IP(value interface{}) net.IP {
	switch v := value.(type) {
	case []byte:
		if len(v) == 4 || len(v) == 16 {
			return net.IP(v)
		}
	case string:
		return net.ParseIP(v)
	}
	return nil
}

// ExtractIndex extracts numeric indices from an OID suffix below baseOid.
func ExtractIndex(oid, baseOid string) []int {
	suffix := strings.TrimPrefix(oid, baseOid)
	suffix = strings.TrimPrefix(suffix, ".")

	if suffix == "" {
		return nil
	}

	parts := strings.Split(suffix, ".")
	indices := make([]int, 0, len(parts))
	for _, p := range parts {
		if idx, err := strconv.Atoi(p); err == nil {
			indices = append(indices, idx)
		}
	}
	return indices
}

// NoSignal is the value converters report when the transceiver returns an
// invalid/no-signal sentinel.
const NoSignal = -40.0

// OpticalPower100 converts optical power from 1/100 dBm units, mapping the
// firmware's invalid sentinels to NoSignal.
func OpticalPower100(raw int64) float64 {
	if raw == -32768 || raw == 0x7FFF || raw == 0xFFFF {
		return NoSignal
	}
	return float64(raw) / 100.0
}

// OpticalPower1000 converts optical power from 0.001 dBm units.
func OpticalPower1000(raw int64) float64 {
	if raw == -32768 || raw == 0x7FFF || raw == 0x7FFFFFFF {
		return NoSignal
	}
	return float64(raw) / 1000.0
}

// MilliwattsToDBm converts milliwatts to dBm.
func MilliwattsToDBm(mw float64) float64 {
	if mw <= 0 {
		return NoSignal
	}
	return 10 * math.Log10(mw)
}

// Temperature100 converts a temperature reported in 1/100 degree units.
func Temperature100(raw int64) float64 {
	return float64(raw) / 100.0
}

// Temperature converts a temperature reported in whole degrees; 2147483647
// is the not-supported sentinel on MA5600T line cards.
func Temperature(raw int64) (float64, bool) {
	if raw == math.MaxInt32 {
		return 0, false
	}
	return float64(raw), true
}
