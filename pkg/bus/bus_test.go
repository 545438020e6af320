package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestPublisher(send func(topic string, body []byte) error) *MQTTPublisher {
	p := &MQTTPublisher{
		cfg:     Config{MaxRetries: 3, RetryBackoff: time.Millisecond, TopicPrefix: "oltfleet"}.withDefaults(),
		breaker: newBreaker(BreakerConfig{}),
		logger:  zap.NewNop(),
		sleep:   func(time.Duration) {},
	}
	p.send = send
	return p
}

func TestPublishTopicMapping(t *testing.T) {
	var gotTopic string
	p := newTestPublisher(func(topic string, body []byte) error {
		gotTopic = topic
		return nil
	})

	if err := p.Publish(context.Background(), "olt.central-01.ont.power.dying_gasp", []byte("{}")); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	want := "oltfleet/olt/central-01/ont/power/dying_gasp"
	if gotTopic != want {
		t.Errorf("topic = %q, want %q", gotTopic, want)
	}
}

func TestPublishRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	p := newTestPublisher(func(topic string, body []byte) error {
		attempts++
		if attempts < 3 {
			return errors.New("broker hiccup")
		}
		return nil
	})

	if err := p.Publish(context.Background(), "olt.x.test", nil); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	if p.BreakerState() != BreakerClosed {
		t.Errorf("breaker = %v after success", p.BreakerState())
	}
}

func TestPublishExhaustsRetries(t *testing.T) {
	attempts := 0
	p := newTestPublisher(func(topic string, body []byte) error {
		attempts++
		return errors.New("broker down")
	})

	err := p.Publish(context.Background(), "olt.x.test", nil)
	if err == nil {
		t.Fatal("Publish() succeeded with a dead broker")
	}
	// MaxRetries re-attempts plus the initial try.
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
}

func TestPublishStopsOnContextCancel(t *testing.T) {
	attempts := 0
	ctx, cancel := context.WithCancel(context.Background())
	p := newTestPublisher(func(topic string, body []byte) error {
		attempts++
		cancel()
		return errors.New("broker down")
	})

	err := p.Publish(ctx, "olt.x.test", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Publish() error = %v, want context.Canceled", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 before cancellation", attempts)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	p := newTestPublisher(func(topic string, body []byte) error {
		return errors.New("broker down")
	})

	for i := 0; i < 5; i++ {
		if err := p.Publish(context.Background(), "olt.x.test", nil); errors.Is(err, ErrBreakerOpen) {
			t.Fatalf("breaker opened early on call %d", i+1)
		}
	}
	if p.BreakerState() != BreakerOpen {
		t.Fatalf("breaker = %v after 5 failed cycles, want open", p.BreakerState())
	}

	if err := p.Publish(context.Background(), "olt.x.test", nil); !errors.Is(err, ErrBreakerOpen) {
		t.Errorf("Publish() error = %v, want ErrBreakerOpen", err)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	b := newBreaker(BreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, OpenTimeout: 30 * time.Second})
	b.now = func() time.Time { return now }

	b.recordFailure()
	b.recordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("state = %v, want open", b.State())
	}
	if b.allow() {
		t.Fatal("allow() = true while open before the timeout")
	}

	now = now.Add(31 * time.Second)
	if !b.allow() {
		t.Fatal("allow() = false after the open timeout")
	}
	if b.State() != BreakerHalfOpen {
		t.Fatalf("state = %v, want half-open", b.State())
	}

	b.recordSuccess()
	if b.State() != BreakerHalfOpen {
		t.Fatalf("closed after one half-open success, threshold is 2")
	}
	b.recordSuccess()
	if b.State() != BreakerClosed {
		t.Fatalf("state = %v after recovery, want closed", b.State())
	}
}

func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	b := newBreaker(BreakerConfig{FailureThreshold: 2, SuccessThreshold: 2, OpenTimeout: 30 * time.Second})
	b.now = func() time.Time { return now }

	b.recordFailure()
	b.recordFailure()
	now = now.Add(31 * time.Second)
	b.allow()

	b.recordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("state = %v after half-open failure, want open", b.State())
	}
	if b.allow() {
		t.Error("allow() = true immediately after reopening")
	}
}

func TestBreakerStateStrings(t *testing.T) {
	if BreakerClosed.String() != "closed" || BreakerOpen.String() != "open" || BreakerHalfOpen.String() != "half-open" {
		t.Error("breaker state strings changed")
	}
}
