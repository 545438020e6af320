package command

import (
	"context"
	"strings"
	"testing"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

// scriptedTransport replays canned responses and records every command it
// receives, in order.
type scriptedTransport struct {
	responses map[string]string
	calls     []string
	confirms  []string
}

func (s *scriptedTransport) Execute(ctx context.Context, command string) (string, error) {
	s.calls = append(s.calls, command)
	return s.responses[command], nil
}

func (s *scriptedTransport) ExecuteConfirm(ctx context.Context, command, confirmation string) (string, error) {
	s.calls = append(s.calls, command)
	s.confirms = append(s.confirms, confirmation)
	return s.responses[command], nil
}

func countCalls(calls []string, want string) int {
	n := 0
	for _, c := range calls {
		if c == want {
			n++
		}
	}
	return n
}

func TestAddOntSuccess(t *testing.T) {
	addCmd := "ont add 0 3 sn-auth HWTCabcdef01 omci ont-lineprofile-name L1 ont-srvprofile-name S1"
	tr := &scriptedTransport{responses: map[string]string{
		addCmd: "  ONTID :3\n  success\n",
	}}

	cmd := AddOnt{
		Port:           "0/1/0",
		OntID:          3,
		SerialNumber:   "HWTCabcdef01",
		LineProfile:    "L1",
		ServiceProfile: "S1",
	}
	res, err := cmd.Execute(context.Background(), tr, "MA5600V800R015C10")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Status != StatusSuccess {
		t.Errorf("Status = %q, want success", res.Status)
	}

	want := []string{"config", "interface gpon 0/1", addCmd, "quit", "quit"}
	if len(tr.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", tr.calls, want)
	}
	for i := range want {
		if tr.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, tr.calls[i], want[i])
		}
	}
}

func TestAddOntDeviceRejection(t *testing.T) {
	addCmd := "ont add 0 3 sn-auth HWTCabcdef01 omci ont-lineprofile-name L1 ont-srvprofile-name S1"
	tr := &scriptedTransport{responses: map[string]string{
		addCmd: "  Failure: SN already exists\n",
	}}

	cmd := AddOnt{
		Port:           "0/1/0",
		OntID:          3,
		SerialNumber:   "HWTCabcdef01",
		LineProfile:    "L1",
		ServiceProfile: "S1",
	}
	_, err := cmd.Execute(context.Background(), tr, "")
	if !cli.IsCommandError(err) {
		t.Fatalf("Execute() error = %v, want CommandError", err)
	}
	// Mode exits still run on the failure path.
	if got := countCalls(tr.calls, "quit"); got != 2 {
		t.Errorf("quit called %d times, want 2", got)
	}
}

func TestValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{name: "bad port", cmd: AddOnt{Port: "0-1-0", OntID: 3, SerialNumber: "HWTCabcdef01", LineProfile: "L1", ServiceProfile: "S1"}},
		{name: "ont id range", cmd: DeleteOnt{Port: "0/1/0", OntID: 200}},
		{name: "vlan range", cmd: CreateVlan{VlanID: 5000}},
		{name: "bad mode", cmd: SetPortMode{Port: "0/1/0", Mode: "sonet"}},
		{name: "short password", cmd: AddUser{Username: "noc", Password: "short", Level: 1}},
		{name: "bad sysname chars", cmd: SetSysname{Sysname: "a/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &scriptedTransport{}
			_, err := tt.cmd.Execute(context.Background(), tr, "")
			if !cli.IsValidationError(err) {
				t.Fatalf("Execute() error = %v, want ValidationError", err)
			}
			if len(tr.calls) != 0 {
				t.Errorf("transport used before validation: %v", tr.calls)
			}
		})
	}
}

func TestRebootOntSendsConfirmation(t *testing.T) {
	resetCmd := "ont reset 0 5"
	tr := &scriptedTransport{responses: map[string]string{
		resetCmd: "The ONT will be reset\n",
	}}

	cmd := RebootOnt{Port: "0/1/0", OntID: 5}
	res, err := cmd.Execute(context.Background(), tr, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Status != StatusSuccess {
		t.Errorf("Status = %q, want success", res.Status)
	}
	if len(tr.confirms) != 1 || tr.confirms[0] != "y" {
		t.Errorf("confirmations = %v, want [y]", tr.confirms)
	}
}

func TestClassifyOutput(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		success []string
		wantOK  bool
	}{
		{name: "explicit success keyword", output: "  success\n", success: []string{"success"}, wantOK: true},
		{name: "success keyword overrides error word", output: "success, 0 errors", success: []string{"success"}, wantOK: true},
		{name: "error keyword", output: "  Error: unknown port", wantOK: false},
		{name: "failed keyword", output: "Operation failed", wantOK: false},
		{name: "invalid keyword", output: "Invalid parameter", wantOK: false},
		{name: "percent line", output: "  % Unknown command", wantOK: false},
		{name: "quiet output means success", output: "", wantOK: true},
		{name: "neutral output means success", output: "  command executed\n", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, _ := classifyOutput(tt.output, tt.success)
			if ok != tt.wantOK {
				t.Errorf("classifyOutput(%q) = %v, want %v", tt.output, ok, tt.wantOK)
			}
		})
	}
}

func TestGetSysname(t *testing.T) {
	tr := &scriptedTransport{responses: map[string]string{
		"display current-configuration | include sysname": "  sysname OLT-Central-01\n",
	}}

	res, err := GetSysname{}.Execute(context.Background(), tr, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := res.Fields["sysname"]; got != "OLT-Central-01" {
		t.Errorf("sysname = %q, want OLT-Central-01", got)
	}
}

func TestListDbaProfilesParsesRows(t *testing.T) {
	output := `
  Profile-ID  Profile-name  type  Fix(kbps)  Assure(kbps)  Max(kbps)  Bind-times
  -------------------------------------------------------------------------------
  10          dba_100M      3     0          8192          102400     4
  11          dba_1G        4     0          0             1048576    2
`
	tr := &scriptedTransport{responses: map[string]string{
		"display dba-profile all": output,
	}}

	res, err := ListDbaProfiles{}.Execute(context.Background(), tr, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("Rows = %d, want 2", len(res.Rows))
	}
	if res.Rows[0]["profile_name"] != "dba_100M" || res.Rows[0]["max_kbps"] != "102400" {
		t.Errorf("first row = %v", res.Rows[0])
	}
}

func TestRestoreConfigurationCountsFailures(t *testing.T) {
	tr := &scriptedTransport{responses: map[string]string{
		"vlan 100 smart": "",
		"vlan 999 smart": "  Error: VLAN exists",
	}}

	cmd := RestoreConfiguration{Lines: []string{
		"vlan 100 smart",
		"",
		"# comment",
		"vlan 999 smart",
	}}
	res, err := cmd.Execute(context.Background(), tr, "")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	report, ok := res.Data.(RestoreReport)
	if !ok {
		t.Fatalf("Data type = %T, want RestoreReport", res.Data)
	}
	if report.Total != 2 || report.Succeeded != 1 || report.Failed != 1 {
		t.Errorf("report = %+v", report)
	}
	if res.Status != StatusError {
		t.Errorf("Status = %q, want error when lines failed", res.Status)
	}
}

func TestRedactPasswords(t *testing.T) {
	in := "  local-user noc password cipher hunter22\n  local-user noc level 3\n"
	out := redactPasswords(in)
	if strings.Contains(out, "hunter22") {
		t.Errorf("password survived redaction: %q", out)
	}
	if !strings.Contains(out, "local-user noc level 3") {
		t.Errorf("non-password line altered: %q", out)
	}
}
