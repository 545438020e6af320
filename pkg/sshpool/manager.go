package sshpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

// Options configures the pool manager. Zero values take the defaults.
type Options struct {
	// MaxSize bounds each pool's session count. Default 5.
	MaxSize int
	// AcquireTimeout bounds Acquire when the caller passes no override.
	// Default 30s.
	AcquireTimeout time.Duration
	// ReapInterval is the reaper loop period. Default 60s.
	ReapInterval time.Duration
	// IdleTimeout is how long a free session may sit before eviction.
	// Default 300s.
	IdleTimeout time.Duration
	// Dial opens sessions. Default DefaultDial.
	Dial DialFunc
}

func (o Options) withDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = 5
	}
	if o.AcquireTimeout <= 0 {
		o.AcquireTimeout = 30 * time.Second
	}
	if o.ReapInterval <= 0 {
		o.ReapInterval = 60 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 300 * time.Second
	}
	if o.Dial == nil {
		o.Dial = DefaultDial
	}
	return o
}

// Manager is the process-wide pool registry, keyed by host:username. Pools
// are created lazily on first acquire and live until CloseAll.
type Manager struct {
	opts    Options
	logger  *zap.Logger
	metrics *Metrics

	mu    sync.Mutex
	pools map[string]*Pool

	stopReaper chan struct{}
	reaperDone chan struct{}
	closeOnce  sync.Once
}

// NewManager creates the registry and starts the idle reaper. metrics may
// be nil.
func NewManager(opts Options, metrics *Metrics, logger *zap.Logger) *Manager {
	m := &Manager{
		opts:       opts.withDefaults(),
		logger:     logger,
		metrics:    metrics,
		pools:      make(map[string]*Pool),
		stopReaper: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}
	go m.reaperLoop()
	return m
}

func poolKey(host, username string) string {
	return fmt.Sprintf("%s:%s", host, username)
}

// Acquire resolves the pool for the credential pair, creating it if this is
// the first use, and acquires a session from it.
func (m *Manager) Acquire(ctx context.Context, config cli.Config) (Session, error) {
	pool := m.poolFor(config)
	s, err := pool.Acquire(ctx, m.opts.AcquireTimeout)
	if m.metrics != nil {
		m.metrics.observe(pool)
	}
	return s, err
}

// Release returns a session to its pool.
func (m *Manager) Release(host, username string, s Session) {
	m.mu.Lock()
	pool := m.pools[poolKey(host, username)]
	m.mu.Unlock()
	if pool == nil {
		return
	}
	pool.Release(s)
	if m.metrics != nil {
		m.metrics.observe(pool)
	}
}

// poolFor is check-then-create under the registry lock, so concurrent first
// acquires for one device share a single pool.
func (m *Manager) poolFor(config cli.Config) *Pool {
	key := poolKey(config.Host, config.Username)

	m.mu.Lock()
	defer m.mu.Unlock()
	if pool, ok := m.pools[key]; ok {
		return pool
	}
	pool := newPool(key, config, m.opts.MaxSize, m.opts.Dial, m.logger)
	m.pools[key] = pool
	m.logger.Info("created connection pool", zap.String("pool", key))
	return pool
}

// Stats snapshots every pool, keyed by pool key.
func (m *Manager) Stats() map[string]Stats {
	m.mu.Lock()
	pools := make(map[string]*Pool, len(m.pools))
	for k, p := range m.pools {
		pools[k] = p
	}
	m.mu.Unlock()

	out := make(map[string]Stats, len(pools))
	for k, p := range pools {
		out[k] = p.Stats()
	}
	return out
}

func (m *Manager) reaperLoop() {
	defer close(m.reaperDone)
	ticker := time.NewTicker(m.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopReaper:
			return
		case <-ticker.C:
			m.reapAll()
		}
	}
}

func (m *Manager) reapAll() {
	m.mu.Lock()
	pools := make([]*Pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.Unlock()

	for _, p := range pools {
		reaped := p.reap(m.opts.IdleTimeout)
		if m.metrics != nil {
			m.metrics.reaped(p.key, reaped)
			m.metrics.observe(p)
		}
	}
}

// CloseAll stops the reaper and disconnects every pooled session. Invoked
// at process shutdown.
func (m *Manager) CloseAll() {
	m.closeOnce.Do(func() {
		close(m.stopReaper)
		<-m.reaperDone
	})

	m.mu.Lock()
	pools := make([]*Pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.Unlock()

	for _, p := range pools {
		p.Close()
	}
	m.logger.Info("closed all connection pools", zap.Int("pools", len(pools)))
}
