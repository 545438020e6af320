package sshpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nanoncore/olt-fleet/pkg/southbound/cli"
)

type fakeSession struct {
	host   string
	alive  atomic.Bool
	closed atomic.Bool
}

func newFakeSession(host string) *fakeSession {
	s := &fakeSession{host: host}
	s.alive.Store(true)
	return s
}

func (s *fakeSession) Execute(ctx context.Context, command string) (string, error) {
	return "", nil
}

func (s *fakeSession) ExecuteConfirm(ctx context.Context, command, confirmation string) (string, error) {
	return "", nil
}

func (s *fakeSession) Firmware() string { return "MA5600V800R015C10" }
func (s *fakeSession) Host() string     { return s.host }
func (s *fakeSession) IsAlive() bool    { return s.alive.Load() }

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

func fakeDialer(dials *atomic.Int32) DialFunc {
	return func(ctx context.Context, config cli.Config) (Session, error) {
		dials.Add(1)
		return newFakeSession(config.Host), nil
	}
}

func testConfig() cli.Config {
	return cli.Config{Host: "10.0.0.1", Port: 22, Username: "admin", Password: "x"}
}

func TestPoolReusesReleasedSession(t *testing.T) {
	var dials atomic.Int32
	p := newPool("10.0.0.1:admin", testConfig(), 2, fakeDialer(&dials), zap.NewNop())

	s1, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	p.Release(s1)

	s2, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if s1 != s2 {
		t.Error("released session was not reused")
	}
	if got := dials.Load(); got != 1 {
		t.Errorf("dial count = %d, want 1", got)
	}
}

func TestPoolBoundAndTimeout(t *testing.T) {
	var dials atomic.Int32
	p := newPool("10.0.0.1:admin", testConfig(), 2, fakeDialer(&dials), zap.NewNop())

	for i := 0; i < 2; i++ {
		if _, err := p.Acquire(context.Background(), time.Second); err != nil {
			t.Fatalf("Acquire() #%d error = %v", i, err)
		}
	}

	// Pool is saturated and nothing is released; the third acquire must
	// time out instead of exceeding maxSize.
	_, err := p.Acquire(context.Background(), 250*time.Millisecond)
	if !cli.IsTimeoutError(err) {
		t.Fatalf("Acquire() on full pool error = %v, want TimeoutError", err)
	}

	if got := p.Stats().TotalConnections; got != 2 {
		t.Errorf("TotalConnections = %d, want 2 (maxSize bound)", got)
	}
	if got := dials.Load(); got != 2 {
		t.Errorf("dial count = %d, want 2", got)
	}
}

func TestPoolMutualExclusion(t *testing.T) {
	var dials atomic.Int32
	p := newPool("10.0.0.1:admin", testConfig(), 4, fakeDialer(&dials), zap.NewNop())

	const workers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	held := make(map[Session]bool)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := p.Acquire(context.Background(), 5*time.Second)
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}

			mu.Lock()
			if held[s] {
				t.Errorf("session handed to two concurrent holders")
			}
			held[s] = true
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			held[s] = false
			mu.Unlock()
			p.Release(s)
		}()
	}
	wg.Wait()

	if got := p.Stats().TotalConnections; got > 4 {
		t.Errorf("TotalConnections = %d, exceeds maxSize 4", got)
	}
}

func TestPoolPurgesDeadSession(t *testing.T) {
	var dials atomic.Int32
	p := newPool("10.0.0.1:admin", testConfig(), 2, fakeDialer(&dials), zap.NewNop())

	s1, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	p.Release(s1)
	s1.(*fakeSession).alive.Store(false)

	s2, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire() after death error = %v", err)
	}
	if s2 == s1 {
		t.Error("dead session was handed out again")
	}
	if !s1.(*fakeSession).closed.Load() {
		t.Error("dead session was not closed on purge")
	}
	if got := dials.Load(); got != 2 {
		t.Errorf("dial count = %d, want 2", got)
	}
}

func TestPoolDialFailureSurfacesAfterTimeout(t *testing.T) {
	dial := func(ctx context.Context, config cli.Config) (Session, error) {
		return nil, errors.New("connection refused")
	}
	p := newPool("10.0.0.1:admin", testConfig(), 2, dial, zap.NewNop())

	start := time.Now()
	_, err := p.Acquire(context.Background(), 300*time.Millisecond)
	if !cli.IsTimeoutError(err) {
		t.Fatalf("Acquire() error = %v, want TimeoutError", err)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
		t.Errorf("Acquire() returned after %v, want the full timeout", elapsed)
	}
}

func TestPoolReapIdle(t *testing.T) {
	var dials atomic.Int32
	p := newPool("10.0.0.1:admin", testConfig(), 2, fakeDialer(&dials), zap.NewNop())

	s, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	p.Release(s)

	// Backdate the session past the idle cutoff.
	p.mu.Lock()
	p.conns[0].lastUsed = time.Now().Add(-10 * time.Minute)
	p.mu.Unlock()

	if reaped := p.reap(5 * time.Minute); reaped != 1 {
		t.Fatalf("reap() = %d, want 1", reaped)
	}
	if !s.(*fakeSession).closed.Load() {
		t.Error("reaped session was not closed")
	}
	if got := p.Stats().TotalConnections; got != 0 {
		t.Errorf("TotalConnections after reap = %d, want 0", got)
	}

	// The reaped entry must not come back; a fresh dial replaces it.
	s2, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire() after reap error = %v", err)
	}
	if s2 == s {
		t.Error("reaped session returned by acquire")
	}
}

func TestPoolReapSkipsInUse(t *testing.T) {
	var dials atomic.Int32
	p := newPool("10.0.0.1:admin", testConfig(), 2, fakeDialer(&dials), zap.NewNop())

	s, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	p.mu.Lock()
	p.conns[0].lastUsed = time.Now().Add(-10 * time.Minute)
	p.mu.Unlock()

	if reaped := p.reap(5 * time.Minute); reaped != 0 {
		t.Errorf("reap() = %d, want 0 (session in use)", reaped)
	}
	p.Release(s)
}

func TestManagerSharesPoolPerCredentialPair(t *testing.T) {
	var dials atomic.Int32
	m := NewManager(Options{
		MaxSize:        2,
		AcquireTimeout: time.Second,
		Dial:           fakeDialer(&dials),
	}, nil, zap.NewNop())
	defer m.CloseAll()

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := m.Acquire(context.Background(), testConfig())
			if err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			m.Release("10.0.0.1", "admin", s)
		}()
	}
	wg.Wait()

	stats := m.Stats()
	if len(stats) != 1 {
		t.Fatalf("Stats() has %d pools, want 1", len(stats))
	}
	s := stats["10.0.0.1:admin"]
	if s.TotalConnections > 2 {
		t.Errorf("TotalConnections = %d, exceeds maxSize 2", s.TotalConnections)
	}
	if s.InUse != 0 {
		t.Errorf("InUse = %d after all releases, want 0", s.InUse)
	}
}

func TestManagerCloseAll(t *testing.T) {
	var dials atomic.Int32
	m := NewManager(Options{
		AcquireTimeout: time.Second,
		Dial:           fakeDialer(&dials),
	}, nil, zap.NewNop())

	sessions := make([]Session, 0, 3)
	for i := 0; i < 3; i++ {
		cfg := testConfig()
		cfg.Host = fmt.Sprintf("10.0.0.%d", i+1)
		s, err := m.Acquire(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Acquire() error = %v", err)
		}
		m.Release(cfg.Host, cfg.Username, s)
		sessions = append(sessions, s)
	}

	m.CloseAll()

	for i, s := range sessions {
		if !s.(*fakeSession).closed.Load() {
			t.Errorf("session %d not closed by CloseAll", i)
		}
	}
}
