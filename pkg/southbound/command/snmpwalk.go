package command

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
	"github.com/nanoncore/olt-fleet/pkg/southbound/parse"
)

var oidFormatRE = regexp.MustCompile(`^\.?\d+(\.\d+)+$`)

const defaultWalkLimit = 100

// SnmpWalk is the diagnostic subtree walk. The walk is lexicographic and
// stops at the end of the requested subtree; Contains filters entries by
// substring against both the decoded string view and the hex view of each
// value; Limit caps the result count.
type SnmpWalk struct {
	Target   SNMPTarget
	OID      string
	Contains string
	Limit    int

	// walk is injectable for tests; nil uses the real subtree walk.
	walk func(target SNMPTarget, rootOID string) ([]gosnmp.SnmpPDU, error)
}

func (c SnmpWalk) Name() string { return "SnmpWalk" }
func (c SnmpWalk) Standalone() {}

func (c SnmpWalk) Execute(ctx context.Context, t Transport, firmware string) (*Result, error) {
	if !oidFormatRE.MatchString(c.OID) {
		return nil, cli.NewValidationError("oid", c.OID, "must be a dotted numeric OID")
	}
	limit := c.Limit
	if limit <= 0 {
		limit = defaultWalkLimit
	}

	walk := c.walk
	if walk == nil {
		walk = walkSubtree
	}
	pdus, err := walk(c.Target, strings.TrimPrefix(c.OID, "."))
	if err != nil {
		return nil, err
	}

	filter := strings.ToLower(c.Contains)
	rows := make([]map[string]string, 0, limit)
	for _, pdu := range pdus {
		if len(rows) >= limit {
			break
		}

		decoded := parse.String(pdu.Value)
		if filter != "" {
			hexView := parse.HexString(pdu.Value)
			if !strings.Contains(strings.ToLower(decoded), filter) &&
				!strings.Contains(hexView, filter) {
				continue
			}
		}

		rows = append(rows, map[string]string{
			"oid":   normalizeOID(pdu.Name),
			"type":  fmt.Sprintf("%v", pdu.Type),
			"value": decoded,
		})
	}
	return &Result{Status: StatusSuccess, Rows: rows}, nil
}
