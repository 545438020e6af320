package command

import (
	"regexp"

	"github.com/nanoncore/olt-fleet/pkg/southbound/parse"
)

// Rules is the shared parsing rule registry, keyed by the exact display
// command line. Commands without rules fall through to the generic tabular
// parser; listings the firmware reshaped between releases carry
// version-specific rules that sort ahead of the generic ones.
var Rules = parse.RuleSet{
	"display dba-profile all": {
		{
			Name:    "dba-profile-table",
			Primary: regexp.MustCompile(`(?m)^\s*(\d+)\s+(\S+)\s+(\d)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s*$`),
			Fields:  []string{"profile_id", "profile_name", "type", "fix_kbps", "assure_kbps", "max_kbps", "bind_times"},
		},
	},
	"display ont-lineprofile gpon all": {
		{
			Name:    "lineprofile-table",
			Primary: regexp.MustCompile(`(?m)^\s*(\d+)\s+(\S+)\s+(\d+)\s*$`),
			Fields:  []string{"profile_id", "profile_name", "bind_times"},
		},
	},
	"display ont-srvprofile gpon all": {
		{
			Name:    "srvprofile-table",
			Primary: regexp.MustCompile(`(?m)^\s*(\d+)\s+(\S+)\s+(\d+)\s*$`),
			Fields:  []string{"profile_id", "profile_name", "bind_times"},
		},
	},
	"display traffic table ip from-index 0": {
		{
			Name:    "traffic-table",
			Primary: regexp.MustCompile(`(?m)^\s*(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(\d+)`),
			Fields:  []string{"tid", "cir_kbps", "cbs_bytes", "pir_kbps", "pbs_bytes", "priority"},
		},
	},
	"display vlan all": {
		{
			// R017 added the VLAN-Connect column; row shape changed.
			Name:     "vlan-table-r017",
			Versions: []string{"R017"},
			Primary:  regexp.MustCompile(`(?m)^\s*(\d+)\s+(\w+)\s+(\w+)\s+(\d+)\s+(\d+)\s+(\d+)\s*$`),
			Fields:   []string{"vlan_id", "type", "attribute", "standard_ports", "service_ports", "vlan_connects"},
		},
		{
			Name:    "vlan-table",
			Primary: regexp.MustCompile(`(?m)^\s*(\d+)\s+(\w+)\s+(\w+)\s+(\d+)\s+(\d+)\s*$`),
			Fallback: regexp.MustCompile(`(?m)^\s*(\d+)\s+(\w+)\s+(\w+)\s*$`),
			Fields:  []string{"vlan_id", "type", "attribute", "standard_ports", "service_ports"},
		},
	},
	"display board 0": {
		{
			Name:    "board-table",
			Primary: regexp.MustCompile(`(?m)^\s*(\d+)\s+(H\d{3}\w+)\s+(\w+)`),
			Fields:  []string{"slot_id", "board_name", "status"},
		},
	},
	"display terminal user all": {
		{
			Name:    "terminal-user-table",
			Primary: regexp.MustCompile(`(?m)^\s*([A-Za-z]\w*)\s+(\d+)\s+(\w+)\s+(\d+)`),
			Fields:  []string{"name", "level", "status", "reenter_num"},
		},
	},
}
