package fleet

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nanoncore/olt-fleet/pkg/inventory"
	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
	"github.com/nanoncore/olt-fleet/pkg/southbound/command"
	"github.com/nanoncore/olt-fleet/pkg/southbound/ponindex"
	"github.com/nanoncore/olt-fleet/pkg/sshpool"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.Pool.MaxSize != 5 {
		t.Errorf("Pool.MaxSize = %d, want 5", cfg.Pool.MaxSize)
	}
	if cfg.Pool.AcquireTimeout != 30*time.Second {
		t.Errorf("Pool.AcquireTimeout = %v, want 30s", cfg.Pool.AcquireTimeout)
	}
	if cfg.Trap.ListenAddress != "0.0.0.0:162" {
		t.Errorf("Trap.ListenAddress = %q", cfg.Trap.ListenAddress)
	}
	if cfg.Trap.DefaultModel != "MA5600T" {
		t.Errorf("Trap.DefaultModel = %q", cfg.Trap.DefaultModel)
	}
	if cfg.Broker.QoS != 1 || cfg.Broker.MaxRetries != 3 {
		t.Errorf("Broker defaults = qos %d retries %d", cfg.Broker.QoS, cfg.Broker.MaxRetries)
	}
	if cfg.SNMP.Port != 161 {
		t.Errorf("SNMP.Port = %d, want 161", cfg.SNMP.Port)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "olt-fleet.yaml")
	data := `
server:
  metrics_address: ":9900"
pool:
  max_size: 8
  idle_timeout: 120s
trap:
  community: fleet
  models:
    10.0.0.7: MA5800
broker:
  url: tcp://broker.lan:1883
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Server.MetricsAddress != ":9900" {
		t.Errorf("MetricsAddress = %q", cfg.Server.MetricsAddress)
	}
	if cfg.Pool.MaxSize != 8 || cfg.Pool.IdleTimeout != 120*time.Second {
		t.Errorf("pool = %+v", cfg.Pool)
	}
	if cfg.Trap.Models["10.0.0.7"] != "MA5800" {
		t.Errorf("Trap.Models = %v", cfg.Trap.Models)
	}
	if cfg.Broker.URL != "tcp://broker.lan:1883" {
		t.Errorf("Broker.URL = %q", cfg.Broker.URL)
	}
	// Untouched sections keep their defaults.
	if cfg.Pool.AcquireTimeout != 30*time.Second {
		t.Errorf("AcquireTimeout = %v, want default", cfg.Pool.AcquireTimeout)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("LoadConfig() accepted a missing explicit config file")
	}
}

type fakeCreds struct {
	creds *inventory.Credentials
	err   error
	calls int
}

func (f *fakeCreds) Credentials(ctx context.Context, oltID string) (*inventory.Credentials, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.creds, nil
}

type fakeSession struct {
	output string
}

func (s *fakeSession) Execute(ctx context.Context, cmd string) (string, error) { return s.output, nil }
func (s *fakeSession) ExecuteConfirm(ctx context.Context, cmd, confirmation string) (string, error) {
	return s.output, nil
}
func (s *fakeSession) Firmware() string { return "MA5683T V800R015C10" }
func (s *fakeSession) Host() string     { return "10.0.0.5" }
func (s *fakeSession) IsAlive() bool    { return true }
func (s *fakeSession) Close() error     { return nil }

type fakePool struct {
	session  *fakeSession
	acquires int
	releases int
}

func (p *fakePool) Acquire(ctx context.Context, config cli.Config) (sshpool.Session, error) {
	p.acquires++
	return p.session, nil
}

func (p *fakePool) Release(host, username string, s sshpool.Session) { p.releases++ }

func (p *fakePool) Stats() map[string]sshpool.Stats {
	return map[string]sshpool.Stats{"10.0.0.5:admin": {Host: "10.0.0.5"}}
}

func newTestService(pool *fakePool) (*OltService, *fakeCreds) {
	creds := &fakeCreds{creds: &inventory.Credentials{
		Host:          "10.0.0.5",
		Username:      "admin",
		Password:      "secret",
		SSHPort:       22,
		SNMPCommunity: "fleet",
	}}
	return NewOltService(creds, pool, SNMPConfig{Port: 161, Timeout: 5 * time.Second, Retries: 2}, zap.NewNop()), creds
}

func TestServiceExecutePooled(t *testing.T) {
	pool := &fakePool{session: &fakeSession{output: "  sysname OLT-Central-01"}}
	svc, creds := newTestService(pool)

	result, err := svc.Execute(context.Background(), "olt-42", command.GetSysname{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.Fields["sysname"] != "OLT-Central-01" {
		t.Errorf("sysname = %q", result.Fields["sysname"])
	}
	if creds.calls != 1 || pool.acquires != 1 || pool.releases != 1 {
		t.Errorf("creds=%d acquires=%d releases=%d, want 1 each",
			creds.calls, pool.acquires, pool.releases)
	}
}

func TestServiceExecuteReleasesOnCommandError(t *testing.T) {
	// Output without a sysname line makes GetSysname fail after execution.
	pool := &fakePool{session: &fakeSession{output: "nothing here"}}
	svc, _ := newTestService(pool)

	if _, err := svc.Execute(context.Background(), "olt-42", command.GetSysname{}); err == nil {
		t.Fatal("Execute() succeeded on unparsable output")
	}
	if pool.releases != 1 {
		t.Errorf("releases = %d, the session must go back on error", pool.releases)
	}
}

func TestServiceStandaloneBypassesPool(t *testing.T) {
	pool := &fakePool{session: &fakeSession{}}
	svc, creds := newTestService(pool)

	// Malformed OID fails validation before any network use; the point
	// here is that the pool is never touched for standalone commands.
	cmd := command.SnmpWalk{OID: "not-an-oid"}
	if _, err := svc.Execute(context.Background(), "olt-42", cmd); err == nil {
		t.Fatal("Execute() accepted a malformed OID")
	}
	if pool.acquires != 0 || creds.calls != 0 {
		t.Errorf("standalone command touched the pool (acquires=%d creds=%d)",
			pool.acquires, creds.calls)
	}
}

func TestServiceSNMPTarget(t *testing.T) {
	svc, _ := newTestService(&fakePool{session: &fakeSession{}})

	target, err := svc.SNMPTarget(context.Background(), "olt-42", ponindex.ModelMA5800)
	if err != nil {
		t.Fatalf("SNMPTarget() error = %v", err)
	}
	if target.Host != "10.0.0.5" || target.Community != "fleet" {
		t.Errorf("target = %+v", target)
	}
	if target.Port != 161 || target.Model != ponindex.ModelMA5800 {
		t.Errorf("target = %+v", target)
	}
}
