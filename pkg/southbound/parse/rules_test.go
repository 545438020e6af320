package parse

import (
	"regexp"
	"testing"
)

func TestRuleSetOrderVersionSpecificFirst(t *testing.T) {
	rs := RuleSet{
		"display ont info": {
			{Name: "generic", Primary: regexp.MustCompile(`x`)},
			{Name: "r017", Primary: regexp.MustCompile(`x`), Versions: []string{"V800R017"}},
			{Name: "r015", Primary: regexp.MustCompile(`x`), Versions: []string{"V800R015"}},
		},
	}

	ordered := rs.Order("display ont info", "MA5600V800R015C10")

	if len(ordered) != 2 {
		t.Fatalf("Order() returned %d rules, want 2 (other-version rule excluded)", len(ordered))
	}
	if ordered[0].Name != "r015" {
		t.Errorf("first rule = %s, want r015 (version-specific first)", ordered[0].Name)
	}
	if ordered[1].Name != "generic" {
		t.Errorf("second rule = %s, want generic", ordered[1].Name)
	}
}

func TestRuleSetOrderUnknownFirmware(t *testing.T) {
	rs := RuleSet{
		"cmd": {
			{Name: "r015", Primary: regexp.MustCompile(`x`), Versions: []string{"V800R015"}},
			{Name: "generic", Primary: regexp.MustCompile(`x`)},
		},
	}

	ordered := rs.Order("cmd", "")
	if len(ordered) != 1 || ordered[0].Name != "generic" {
		t.Errorf("Order() with empty firmware = %+v, want only the generic rule", ordered)
	}
}

func TestParsePrimaryThenFallback(t *testing.T) {
	rs := RuleSet{
		"display sysman": {
			{
				Name:     "modern",
				Primary:  regexp.MustCompile(`(?m)^System name\s*:\s*(\S+)`),
				Fallback: regexp.MustCompile(`(?m)^Sysname\s*:\s*(\S+)`),
				Fields:   []string{"sysname"},
			},
		},
	}

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{name: "primary matches", output: "System name : OLT-Central-01\n", want: "OLT-Central-01"},
		{name: "fallback matches", output: "Sysname : OLT-East-02\n", want: "OLT-East-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, ok := rs.Parse("display sysman", "", tt.output)
			if !ok || len(records) != 1 {
				t.Fatalf("Parse() = %v, %v, want one record", records, ok)
			}
			if records[0]["sysname"] != tt.want {
				t.Errorf("sysname = %q, want %q", records[0]["sysname"], tt.want)
			}
		})
	}
}

func TestParseGenericTableLastResort(t *testing.T) {
	rs := RuleSet{
		"display board": {
			{Name: "never", Primary: regexp.MustCompile(`ZZZ-NO-MATCH`), Fields: []string{"x"}},
		},
	}

	output := `
  SlotID  BoardName  Status
  ------  ---------  ------
  1       H805GPBD   Normal
  2       H805GPBD   Failed
`
	records, ok := rs.Parse("display board", "", output)
	if !ok {
		t.Fatal("Parse() exhausted, want generic table records")
	}
	if len(records) != 2 {
		t.Fatalf("Parse() returned %d records, want 2", len(records))
	}
	if records[0]["slotid"] != "1" || records[0]["boardname"] != "H805GPBD" {
		t.Errorf("first record = %v", records[0])
	}
	if records[1]["status"] != "Failed" {
		t.Errorf("second record status = %q, want Failed", records[1]["status"])
	}
}

func TestParseExhausted(t *testing.T) {
	rs := RuleSet{}

	records, ok := rs.Parse("display whatever", "", "single-token")
	if ok {
		t.Errorf("Parse() ok = true for unparseable output, records = %v", records)
	}
	if len(records) != 0 {
		t.Errorf("Parse() returned %d records, want 0", len(records))
	}
}

func TestParsePostProcessor(t *testing.T) {
	rs := RuleSet{
		"display ont state": {
			{
				Name:    "state",
				Primary: regexp.MustCompile(`(?m)^Run state\s*:\s*(\S+)`),
				Fields:  []string{"state"},
				Post: func(r map[string]string) map[string]string {
					if r["state"] == "1" {
						r["state"] = "online"
					}
					return r
				},
			},
		},
	}

	records, ok := rs.Parse("display ont state", "", "Run state : 1\n")
	if !ok || len(records) != 1 {
		t.Fatalf("Parse() = %v, %v", records, ok)
	}
	if records[0]["state"] != "online" {
		t.Errorf("state = %q, want online", records[0]["state"])
	}
}

func TestKeyValues(t *testing.T) {
	output := `
  F/S/P               : 0/1/0
  ONT-ID              : 3
  Run state           : online
  ONT distance(m)     : 1523
  Description         : apartment 4B
`
	kv := KeyValues(output)

	tests := map[string]string{
		"f/s/p":           "0/1/0",
		"ont_id":          "3",
		"run_state":       "online",
		"ont_distance_m":  "1523",
		"description":     "apartment 4B",
	}
	for key, want := range tests {
		if kv[key] != want {
			t.Errorf("KeyValues()[%q] = %q, want %q", key, kv[key], want)
		}
	}
}

func TestOpticalPowerConversions(t *testing.T) {
	tests := []struct {
		name string
		raw  int64
		want float64
	}{
		{name: "normal reading", raw: -2250, want: -22.5},
		{name: "invalid sentinel", raw: -32768, want: NoSignal},
		{name: "no signal sentinel", raw: 0x7FFF, want: NoSignal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OpticalPower100(tt.raw); got != tt.want {
				t.Errorf("OpticalPower100(%d) = %f, want %f", tt.raw, got, tt.want)
			}
		})
	}
}

func TestHexString(t *testing.T) {
	if got := HexString([]byte{0x48, 0x57}); got != "4857" {
		t.Errorf("HexString() = %q, want 4857", got)
	}
	if got := HexString("HW"); got != "4857" {
		t.Errorf("HexString(string) = %q, want 4857", got)
	}
}

func TestExtractIndex(t *testing.T) {
	base := "1.3.6.1.4.1.2011.6.128.1.1.2.43"
	indices := ExtractIndex(base+".1.3.4194305.1", base)
	want := []int{1, 3, 4194305, 1}
	if len(indices) != len(want) {
		t.Fatalf("ExtractIndex() = %v, want %v", indices, want)
	}
	for i := range want {
		if indices[i] != want[i] {
			t.Errorf("ExtractIndex()[%d] = %d, want %d", i, indices[i], want[i])
		}
	}
}
