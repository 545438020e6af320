// Package sshpool maintains bounded pools of live CLI sessions, one pool
// per (host, username) credential pair. Sessions are authenticated once and
// reused across commands; a background reaper evicts idle sessions and a
// liveness probe runs before every reuse so callers never receive a dead
// transport.
package sshpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

// Session is the pooled CLI session surface. *cli.Session implements it;
// tests substitute fakes through DialFunc.
type Session interface {
	Execute(ctx context.Context, command string) (string, error)
	ExecuteConfirm(ctx context.Context, command, confirmation string) (string, error)
	Firmware() string
	Host() string
	IsAlive() bool
	Close() error
}

// DialFunc opens a new authenticated CLI session.
type DialFunc func(ctx context.Context, config cli.Config) (Session, error)

// DefaultDial dials a real SSH session.
func DefaultDial(ctx context.Context, config cli.Config) (Session, error) {
	return cli.Dial(ctx, config)
}

const acquirePollInterval = 100 * time.Millisecond

// pooledConn tracks one session's pool state. Guarded by the pool mutex.
type pooledConn struct {
	session   Session
	createdAt time.Time
	lastUsed  time.Time
	inUse     bool
	alive     bool
}

// Pool owns up to maxSize sessions for one credential pair. Acquire polls
// until a session frees up, a new one can be dialed, or the timeout lapses.
type Pool struct {
	key     string
	config  cli.Config
	maxSize int
	dial    DialFunc
	logger  *zap.Logger

	mu           sync.Mutex
	conns        []*pooledConn
	dialing      int
	createdTotal uint64
	closed       bool
}

func newPool(key string, config cli.Config, maxSize int, dial DialFunc, logger *zap.Logger) *Pool {
	return &Pool{
		key:     key,
		config:  config,
		maxSize: maxSize,
		dial:    dial,
		logger:  logger,
	}
}

// Acquire returns a live session marked in-use. It polls every 100ms until
// one is available or timeout elapses; dial failures are logged and
// surfaced as the final timeout error, never retried in a tight loop.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration) (Session, error) {
	deadline := time.Now().Add(timeout)
	var lastDialErr error

	for {
		if s := p.tryReuse(); s != nil {
			return s, nil
		}

		created, s, err := p.tryDial(ctx)
		if created {
			if err == nil {
				return s, nil
			}
			lastDialErr = err
			p.logger.Warn("session dial failed",
				zap.String("pool", p.key),
				zap.Error(err))
		}

		if time.Now().After(deadline) {
			msg := fmt.Sprintf("no connection available for %s", p.key)
			if lastDialErr != nil {
				msg = fmt.Sprintf("%s (last dial error: %v)", msg, lastDialErr)
			}
			return nil, cli.NewTimeoutError("pool acquire", timeout.String(), msg)
		}

		select {
		case <-ctx.Done():
			return nil, cli.NewTimeoutError("pool acquire", timeout.String(), ctx.Err().Error())
		case <-time.After(acquirePollInterval):
		}
	}
}

// tryReuse hands out an existing free session after probing it. Dead
// sessions are purged so the next pass can dial a replacement.
func (p *Pool) tryReuse() Session {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil
		}
		var candidate *pooledConn
		for _, c := range p.conns {
			if !c.inUse {
				candidate = c
				break
			}
		}
		if candidate == nil {
			p.mu.Unlock()
			return nil
		}
		candidate.inUse = true
		p.mu.Unlock()

		// Probe outside the lock; a slow device must not stall the pool.
		if candidate.session.IsAlive() {
			p.mu.Lock()
			candidate.alive = true
			candidate.lastUsed = time.Now()
			p.mu.Unlock()
			return candidate.session
		}

		p.logger.Info("purging dead pooled session", zap.String("pool", p.key))
		p.remove(candidate)
		candidate.session.Close() //nolint:errcheck
	}
}

// tryDial opens a new session when the pool has headroom. The created
// return reports whether a dial was attempted at all.
func (p *Pool) tryDial(ctx context.Context) (created bool, _ Session, _ error) {
	p.mu.Lock()
	if p.closed || len(p.conns)+p.dialing >= p.maxSize {
		p.mu.Unlock()
		return false, nil, nil
	}
	p.dialing++
	p.mu.Unlock()

	s, err := p.dial(ctx, p.config)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing--
	if err != nil {
		return true, nil, err
	}
	if p.closed {
		s.Close() //nolint:errcheck
		return true, nil, fmt.Errorf("pool %s closed", p.key)
	}

	now := time.Now()
	p.conns = append(p.conns, &pooledConn{
		session:   s,
		createdAt: now,
		lastUsed:  now,
		inUse:     true,
		alive:     true,
	})
	p.createdTotal++
	return true, s, nil
}

// Release marks the session free. It never closes the transport; only the
// reaper and Close do that.
func (p *Pool) Release(s Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.conns {
		if c.session == s {
			c.inUse = false
			c.lastUsed = time.Now()
			return
		}
	}
}

func (p *Pool) remove(target *pooledConn) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.conns {
		if c == target {
			p.conns = append(p.conns[:i], p.conns[i+1:]...)
			return
		}
	}
}

// reap closes and removes free sessions idle longer than idleTimeout.
func (p *Pool) reap(idleTimeout time.Duration) int {
	cutoff := time.Now().Add(-idleTimeout)

	p.mu.Lock()
	var idle []*pooledConn
	kept := p.conns[:0]
	for _, c := range p.conns {
		if !c.inUse && c.lastUsed.Before(cutoff) {
			idle = append(idle, c)
			continue
		}
		kept = append(kept, c)
	}
	p.conns = kept
	p.mu.Unlock()

	for _, c := range idle {
		c.session.Close() //nolint:errcheck
	}
	if len(idle) > 0 {
		p.logger.Info("reaped idle sessions",
			zap.String("pool", p.key),
			zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Close disconnects every session in the pool.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	conns := p.conns
	p.conns = nil
	p.mu.Unlock()

	for _, c := range conns {
		c.session.Close() //nolint:errcheck
	}
}

// Stats is one pool's introspection snapshot.
type Stats struct {
	Host             string `json:"host"`
	TotalConnections int    `json:"total_connections"`
	InUse            int    `json:"in_use"`
	Available        int    `json:"available"`
	Alive            int    `json:"alive"`
	CreatedTotal     uint64 `json:"created_total"`
	MaxSize          int    `json:"max_size"`
}

// Stats snapshots the pool without probing sessions; alive reflects the
// last probe result.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{
		Host:             p.config.Host,
		TotalConnections: len(p.conns),
		CreatedTotal:     p.createdTotal,
		MaxSize:          p.maxSize,
	}
	for _, c := range p.conns {
		if c.inUse {
			s.InUse++
		} else {
			s.Available++
		}
		if c.alive {
			s.Alive++
		}
	}
	return s
}
