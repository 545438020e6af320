package ponindex

import (
	"testing"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

func TestParsePort(t *testing.T) {
	tests := []struct {
		in      string
		want    PortRef
		wantErr bool
	}{
		{in: "0/1/0", want: PortRef{Frame: 0, Slot: 1, Port: 0}},
		{in: "0/5/15", want: PortRef{Frame: 0, Slot: 5, Port: 15}},
		{in: " 1/2/3 ", want: PortRef{Frame: 1, Slot: 2, Port: 3}},
		{in: "0/1", wantErr: true},
		{in: "0/1/0/4", wantErr: true},
		{in: "a/b/c", wantErr: true},
		{in: "0/-1/0", wantErr: true},
		{in: "0/1/99", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePort(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePort(%q) expected error, got %v", tt.in, got)
				}
				if !cli.IsValidationError(err) {
					t.Errorf("ParsePort(%q) error type = %T, want ValidationError", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePort(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParsePort(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOntEthIndexRoundTrip(t *testing.T) {
	scheme := ForModel(ModelMA5600T)

	for slot := 0; slot <= 15; slot += 3 {
		for pon := 0; pon <= 15; pon += 5 {
			for ont := 0; ont <= 31; ont += 7 {
				for eth := 0; eth <= 4; eth++ {
					idx, err := scheme.OntEthIndex(slot, pon, ont, PortTypeEth, eth)
					if err != nil {
						t.Fatalf("OntEthIndex(%d,%d,%d,%d) error = %v", slot, pon, ont, eth, err)
					}

					port, gotOnt, gotType, gotEth := scheme.OntEthFromIndex(idx)
					if port.Frame != 0 || port.Slot != slot || port.Port != pon {
						t.Errorf("round trip port = %v, want 0/%d/%d", port, slot, pon)
					}
					if gotOnt != ont || gotType != PortTypeEth || gotEth != eth {
						t.Errorf("round trip (ont,type,eth) = (%d,%d,%d), want (%d,%d,%d)",
							gotOnt, gotType, gotEth, ont, PortTypeEth, eth)
					}
				}
			}
		}
	}
}

func TestOntEthIndexKnownValue(t *testing.T) {
	scheme := ForModel(ModelMA5600T)

	// slot 1, pon 2, ont 3, eth port 1:
	// 1<<25 | 2<<21 | 3<<16 | 1<<12 | 1
	idx, err := scheme.OntEthIndex(1, 2, 3, PortTypeEth, 1)
	if err != nil {
		t.Fatalf("OntEthIndex() error = %v", err)
	}
	want := int64(1)<<25 | int64(2)<<21 | int64(3)<<16 | int64(1)<<12 | 1
	if idx != want {
		t.Errorf("OntEthIndex() = %d, want %d", idx, want)
	}
}

func TestOntEthIndexValidation(t *testing.T) {
	scheme := ForModel(ModelMA5600T)

	tests := []struct {
		name                     string
		slot, pon, ont, ethPort int
	}{
		{name: "slot out of range", slot: 32, pon: 0, ont: 0, ethPort: 0},
		{name: "pon out of range", slot: 0, pon: 16, ont: 0, ethPort: 0},
		{name: "ont out of range", slot: 0, pon: 0, ont: 32, ethPort: 0},
		{name: "eth out of range", slot: 0, pon: 0, ont: 0, ethPort: 16},
		{name: "negative slot", slot: -1, pon: 0, ont: 0, ethPort: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scheme.OntEthIndex(tt.slot, tt.pon, tt.ont, PortTypeEth, tt.ethPort)
			if !cli.IsValidationError(err) {
				t.Errorf("OntEthIndex() error = %v, want ValidationError", err)
			}
		})
	}
}

func TestTrapIndexRoundTrip(t *testing.T) {
	scheme := ForModel(ModelMA5600T)

	for slot := 0; slot <= 15; slot += 2 {
		for pon := 0; pon <= 15; pon += 3 {
			for ont := 0; ont <= 127; ont += 31 {
				idx, err := scheme.TrapIndex(slot, pon, ont)
				if err != nil {
					t.Fatalf("TrapIndex(%d,%d,%d) error = %v", slot, pon, ont, err)
				}

				port, gotOnt := scheme.TrapFromIndex(idx)
				if port.Frame != 0 || port.Slot != slot || port.Port != pon || gotOnt != ont {
					t.Errorf("TrapFromIndex(%d) = (%v, %d), want (0/%d/%d, %d)",
						idx, port, gotOnt, slot, pon, ont)
				}
			}
		}
	}
}

func TestTrapFromIndexDyingGasp(t *testing.T) {
	// A dying gasp from ONT 1 on 0/1/0 carries ifIndex 4194305 on MA5600T.
	scheme := ForModel(ModelMA5600T)

	port, ontID := scheme.TrapFromIndex(4194305)
	if port.String() != "0/1/0" {
		t.Errorf("port = %s, want 0/1/0", port)
	}
	if ontID != 1 {
		t.Errorf("ontID = %d, want 1", ontID)
	}
}

func TestForModelUnknownFallsBack(t *testing.T) {
	scheme := ForModel(Model("EA5801"))
	if scheme.Model() != ModelMA5600T {
		t.Errorf("Model() = %s, want %s", scheme.Model(), ModelMA5600T)
	}
}
