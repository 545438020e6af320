package trap

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"

	"github.com/nanoncore/olt-fleet/pkg/inventory"
	"github.com/nanoncore/olt-fleet/pkg/southbound/ponindex"
)

// Inventory is the identity lookup surface used for enrichment and the
// dual-routing rename check.
type Inventory interface {
	LookupByIP(ctx context.Context, ip string) (*inventory.Identity, error)
	SysnameHistory(ctx context.Context, oltID string) ([]inventory.SysnameChange, error)
}

// Publisher delivers one event body to one routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Config configures the listener.
type Config struct {
	// ListenAddress is the UDP bind address. Default "0.0.0.0:162".
	ListenAddress string
	// Community authenticates v1/v2c traps. Empty accepts any.
	Community string
	// DefaultModel selects the decode table when a source IP has no
	// explicit model entry.
	DefaultModel ponindex.Model
	// Models overrides the decode table per source IP.
	Models map[string]ponindex.Model
	// EnrichTimeout bounds each inventory lookup. Default 3s.
	EnrichTimeout time.Duration
	// RenameWindow is how far back a sysname change still triggers
	// previous-name routing. Default 24h.
	RenameWindow time.Duration
}

func (c Config) withDefaults() Config {
	if c.ListenAddress == "" {
		c.ListenAddress = "0.0.0.0:162"
	}
	if c.DefaultModel == "" {
		c.DefaultModel = ponindex.ModelMA5600T
	}
	if c.EnrichTimeout <= 0 {
		c.EnrichTimeout = 3 * time.Second
	}
	if c.RenameWindow <= 0 {
		c.RenameWindow = 24 * time.Hour
	}
	return c
}

// Listener receives trap datagrams and runs each through the decode,
// enrich, route, publish pipeline. Malformed input is logged and dropped;
// the loop never dies on one bad packet.
type Listener struct {
	cfg     Config
	inv     Inventory
	pub     Publisher
	logger  *zap.Logger
	metrics *Metrics
	now     func() time.Time

	tl *gosnmp.TrapListener
}

// NewListener creates a trap listener. metrics may be nil.
func NewListener(cfg Config, inv Inventory, pub Publisher, metrics *Metrics, logger *zap.Logger) *Listener {
	return &Listener{
		cfg:     cfg.withDefaults(),
		inv:     inv,
		pub:     pub,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run listens until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	l.tl = gosnmp.NewTrapListener()
	l.tl.OnNewTrap = l.handle
	l.tl.Params = gosnmp.Default
	if l.cfg.Community != "" {
		l.tl.Params.Community = l.cfg.Community
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- l.tl.Listen(l.cfg.ListenAddress)
	}()
	l.logger.Info("trap listener started", zap.String("address", l.cfg.ListenAddress))

	select {
	case <-ctx.Done():
		l.tl.Close()
		<-errCh
		return nil
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("trap listener: %w", err)
		}
		return nil
	}
}

func (l *Listener) modelFor(ip string) ponindex.Model {
	if m, ok := l.cfg.Models[ip]; ok {
		return m
	}
	return l.cfg.DefaultModel
}

// handle processes one datagram: Received -> OIDMatched -> Decoded ->
// Enriched -> Published, or dropped with a log line when the trap OID is
// unrecognized.
func (l *Listener) handle(packet *gosnmp.SnmpPacket, addr *net.UDPAddr) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic handling trap", zap.Any("panic", r), zap.Stringer("source", addr))
		}
	}()

	l.metrics.incReceived()
	sourceIP := addr.IP.String()

	ev, ok := Decode(packet.Variables, l.modelFor(sourceIP))
	if !ok {
		l.metrics.incDropped()
		l.logger.Warn("unrecognized trap dropped",
			zap.String("source", sourceIP),
			zap.String("trap_oid", trapOID(packet.Variables)))
		return
	}
	l.metrics.incDecoded(ev.EventType)

	ev.ID = uuid.NewString()
	ev.OltIP = sourceIP
	ev.ReceivedAt = l.now().UTC()

	previousName := l.enrich(&ev)
	l.publish(ev, previousName)
}

// enrich fills in the OLT identity from the inventory and returns the
// previous sysname when the OLT was renamed inside the dual-routing
// window. Lookup failure degrades to the IP-derived name; the event is
// never dropped for it.
func (l *Listener) enrich(ev *Event) (previousName string) {
	ctx, cancel := context.WithTimeout(context.Background(), l.cfg.EnrichTimeout)
	defer cancel()

	id, err := l.inv.LookupByIP(ctx, ev.OltIP)
	if err != nil {
		l.logger.Warn("identity enrichment unavailable",
			zap.String("olt_ip", ev.OltIP),
			zap.Error(err))
		ev.OltName = "OLT_" + ev.OltIP
		return ""
	}
	ev.OltID = id.ID
	ev.OltName = id.Name

	changes, err := l.inv.SysnameHistory(ctx, id.ID)
	if err != nil {
		// Degrades to single-key publication.
		l.logger.Warn("sysname history unavailable",
			zap.String("olt_id", id.ID),
			zap.Error(err))
		return ""
	}
	cutoff := l.now().Add(-l.cfg.RenameWindow)
	for _, change := range changes {
		if change.Timestamp.After(cutoff) {
			return change.OldSysname
		}
	}
	return ""
}

// publish fans the identical body out to every routing key. Per-key
// failures are counted and logged; delivery retries live in the
// publisher.
func (l *Listener) publish(ev Event, previousName string) {
	body, err := json.Marshal(ev)
	if err != nil {
		l.logger.Error("marshal trap event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, key := range RoutingKeys(ev, previousName) {
		if err := l.pub.Publish(ctx, key, body); err != nil {
			l.metrics.incPublishFailed()
			l.logger.Error("publish failed",
				zap.String("routing_key", key),
				zap.String("event_id", ev.ID),
				zap.Error(err))
			continue
		}
		l.metrics.incPublished()
	}
}
