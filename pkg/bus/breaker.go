package bus

import (
	"sync"
	"time"
)

// BreakerState is the publish circuit state.
type BreakerState int

const (
	// BreakerClosed lets publishes through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects publishes immediately while the broker is down.
	BreakerOpen
	// BreakerHalfOpen probes the broker with live traffic.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes the publish circuit breaker.
type BreakerConfig struct {
	// FailureThreshold opens the circuit after this many consecutive
	// failures.
	FailureThreshold int
	// SuccessThreshold closes it again after this many consecutive
	// half-open successes.
	SuccessThreshold int
	// OpenTimeout is how long the circuit stays open before probing.
	OpenTimeout time.Duration
}

func defaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
	}
}

// breaker sheds publish attempts while the broker is known dead so event
// handling threads do not pile up on a full retry cycle each.
type breaker struct {
	mu sync.Mutex

	config    BreakerConfig
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	now       func() time.Time
}

func newBreaker(config BreakerConfig) *breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = defaultBreakerConfig().FailureThreshold
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = defaultBreakerConfig().SuccessThreshold
	}
	if config.OpenTimeout <= 0 {
		config.OpenTimeout = defaultBreakerConfig().OpenTimeout
	}
	return &breaker{config: config, state: BreakerClosed, now: time.Now}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if b.now().Sub(b.openedAt) >= b.config.OpenTimeout {
			b.state = BreakerHalfOpen
			b.failures = 0
			b.successes = 0
			return true
		}
		return false
	default:
		return false
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
		}
	}
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			b.state = BreakerOpen
			b.openedAt = b.now()
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.openedAt = b.now()
	}
}

// State reports the current circuit state.
func (b *breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
