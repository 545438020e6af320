package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// ErrBreakerOpen is returned without touching the broker while the
// publish circuit is open.
var ErrBreakerOpen = errors.New("bus: publish circuit open")

// Publisher delivers one message body to one routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
	Close()
}

// Config configures the MQTT publisher.
type Config struct {
	// BrokerURL is the broker address, e.g. "tcp://broker:1883".
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	// TopicPrefix is prepended to every topic. Default "oltfleet".
	TopicPrefix string
	// QoS for event publications. Default 1 (at-least-once).
	QoS byte
	// ConnectTimeout bounds the initial connect and each publish token
	// wait. Default 10s.
	ConnectTimeout time.Duration
	// MaxRetries is the number of re-attempts after the first failed
	// publish. Default 3.
	MaxRetries int
	// RetryBackoff is the first retry delay, doubled per attempt.
	// Default 500ms.
	RetryBackoff time.Duration
	// Breaker tunes the publish circuit breaker.
	Breaker BreakerConfig
}

func (c Config) withDefaults() Config {
	if c.ClientID == "" {
		c.ClientID = "olt-fleet"
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = "oltfleet"
	}
	if c.QoS == 0 {
		c.QoS = 1
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	return c
}

// MQTTPublisher delivers routing-keyed messages over an MQTT broker.
// Routing keys map to topics segment for segment, so a consumer
// subscribes to "oltfleet/olt/+/ont/power/dying_gasp" the same way an
// AMQP consumer would bind "olt.*.ont.power.dying_gasp". A circuit
// breaker sheds attempts while the broker stays down so callers fail
// fast instead of each burning a full retry cycle.
type MQTTPublisher struct {
	cfg     Config
	client  pahomqtt.Client
	breaker *breaker
	logger  *zap.Logger

	// send is swapped in tests to avoid a live broker.
	send  func(topic string, body []byte) error
	sleep func(time.Duration)
}

// NewMQTTPublisher connects to the broker. Connect failure is returned,
// but the client keeps reconnecting in the background once created, so
// callers may choose to continue degraded.
func NewMQTTPublisher(cfg Config, logger *zap.Logger) (*MQTTPublisher, error) {
	cfg = cfg.withDefaults()

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetOrderMatters(false)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetOnConnectHandler(func(pahomqtt.Client) {
		logger.Info("mqtt connected", zap.String("broker_url", cfg.BrokerURL))
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	})

	p := &MQTTPublisher{
		cfg:     cfg,
		client:  pahomqtt.NewClient(opts),
		breaker: newBreaker(cfg.Breaker),
		logger:  logger,
		sleep:   time.Sleep,
	}
	p.send = p.sendMQTT

	token := p.client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return p, fmt.Errorf("bus: connect to %s timed out", cfg.BrokerURL)
	}
	if err := token.Error(); err != nil {
		return p, fmt.Errorf("bus: connect to %s: %w", cfg.BrokerURL, err)
	}
	return p, nil
}

// Publish delivers body to the topic derived from routingKey, retrying
// transient failures with exponential backoff until MaxRetries or ctx
// expiry.
func (p *MQTTPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if !p.breaker.allow() {
		return ErrBreakerOpen
	}

	topic := p.topicFor(routingKey)
	backoff := p.cfg.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				p.breaker.recordFailure()
				return fmt.Errorf("bus: publish to %s: %w (last error: %v)", topic, ctx.Err(), lastErr)
			default:
			}
			p.sleep(backoff)
			backoff *= 2
		}

		if lastErr = p.send(topic, body); lastErr == nil {
			p.breaker.recordSuccess()
			return nil
		}
		p.logger.Warn("publish attempt failed",
			zap.String("topic", topic),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}

	p.breaker.recordFailure()
	return fmt.Errorf("bus: publish to %s failed after %d attempts: %w", topic, p.cfg.MaxRetries+1, lastErr)
}

// BreakerState reports the current circuit state for health surfaces.
func (p *MQTTPublisher) BreakerState() BreakerState {
	return p.breaker.State()
}

// Close flushes in-flight messages and disconnects.
func (p *MQTTPublisher) Close() {
	if p.client != nil {
		p.client.Disconnect(250)
	}
}

func (p *MQTTPublisher) sendMQTT(topic string, body []byte) error {
	token := p.client.Publish(topic, p.cfg.QoS, false, body)
	if !token.WaitTimeout(p.cfg.ConnectTimeout) {
		return fmt.Errorf("publish token timed out")
	}
	return token.Error()
}

// topicFor maps a dotted routing key onto the MQTT topic tree, e.g.
// "olt.central-01.ont.power.dying_gasp" ->
// "oltfleet/olt/central-01/ont/power/dying_gasp".
func (p *MQTTPublisher) topicFor(routingKey string) string {
	return p.cfg.TopicPrefix + "/" + strings.ReplaceAll(routingKey, ".", "/")
}
