package fleet

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nanoncore/olt-fleet/pkg/inventory"
	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
	"github.com/nanoncore/olt-fleet/pkg/southbound/command"
	"github.com/nanoncore/olt-fleet/pkg/southbound/ponindex"
	"github.com/nanoncore/olt-fleet/pkg/sshpool"
)

// CredentialSource resolves device credentials by OLT id.
type CredentialSource interface {
	Credentials(ctx context.Context, oltID string) (*inventory.Credentials, error)
}

// SessionPool is the slice of the pool manager the service uses.
type SessionPool interface {
	Acquire(ctx context.Context, config cli.Config) (sshpool.Session, error)
	Release(host, username string, s sshpool.Session)
	Stats() map[string]sshpool.Stats
}

// OltService runs commands against a device: resolve credentials, borrow
// a pooled session, execute, release. Commands carrying their own network
// session (the SNMP set) bypass the pool entirely.
type OltService struct {
	creds  CredentialSource
	pool   SessionPool
	snmp   SNMPConfig
	logger *zap.Logger
}

// NewOltService creates the execution service.
func NewOltService(creds CredentialSource, pool SessionPool, snmp SNMPConfig, logger *zap.Logger) *OltService {
	return &OltService{creds: creds, pool: pool, snmp: snmp, logger: logger}
}

// Execute runs one command against the OLT identified by oltID.
func (s *OltService) Execute(ctx context.Context, oltID string, cmd command.Command) (*command.Result, error) {
	if _, standalone := cmd.(command.Standalone); standalone {
		return cmd.Execute(ctx, nil, "")
	}

	creds, err := s.creds.Credentials(ctx, oltID)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials for %s: %w", oltID, err)
	}

	session, err := s.pool.Acquire(ctx, cli.Config{
		Host:     creds.Host,
		Port:     creds.SSHPort,
		Username: creds.Username,
		Password: creds.Password,
	})
	if err != nil {
		return nil, err
	}
	defer s.pool.Release(creds.Host, creds.Username, session)

	start := time.Now()
	result, err := cmd.Execute(ctx, session, session.Firmware())
	s.logger.Debug("command executed",
		zap.String("olt_id", oltID),
		zap.String("command", cmd.Name()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))
	return result, err
}

// SNMPTarget builds the ephemeral SNMP session parameters for an OLT, for
// callers constructing commands from the SNMP set.
func (s *OltService) SNMPTarget(ctx context.Context, oltID string, model ponindex.Model) (command.SNMPTarget, error) {
	creds, err := s.creds.Credentials(ctx, oltID)
	if err != nil {
		return command.SNMPTarget{}, fmt.Errorf("resolve credentials for %s: %w", oltID, err)
	}
	return command.SNMPTarget{
		Host:      creds.Host,
		Community: creds.SNMPCommunity,
		Port:      uint16(s.snmp.Port),
		Timeout:   s.snmp.Timeout,
		Retries:   s.snmp.Retries,
		Model:     model,
	}, nil
}

// PoolStats snapshots every connection pool.
func (s *OltService) PoolStats() map[string]sshpool.Stats {
	return s.pool.Stats()
}
