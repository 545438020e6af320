package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/nanoncore/olt-fleet/pkg/bus"
	"github.com/nanoncore/olt-fleet/pkg/inventory"
	"github.com/nanoncore/olt-fleet/pkg/southbound/ponindex"
	"github.com/nanoncore/olt-fleet/pkg/sshpool"
	"github.com/nanoncore/olt-fleet/pkg/sysname"
	"github.com/nanoncore/olt-fleet/pkg/trap"
)

// Daemon is the long-running service: the trap pipeline, the connection
// pool registry, and the metrics endpoint.
type Daemon struct {
	cfg    *Config
	logger *zap.Logger

	inv       *inventory.Client
	manager   *sshpool.Manager
	service   *OltService
	guard     *sysname.Guard
	publisher bus.Publisher
	listener  *trap.Listener
	registry  *prometheus.Registry
	server    *http.Server
}

// NewDaemon wires every subsystem from the configuration. The broker
// connection is attempted but connect failure is not fatal; the publisher
// reconnects in the background.
func NewDaemon(cfg *Config, logger *zap.Logger) (*Daemon, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	inv := inventory.NewClient(inventory.Config{
		BaseURL:      cfg.Inventory.BaseURL,
		Timeout:      cfg.Inventory.Timeout,
		FallbackPath: cfg.Inventory.FallbackPath,
	}, logger.Named("inventory"))

	manager := sshpool.NewManager(sshpool.Options{
		MaxSize:        cfg.Pool.MaxSize,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
		ReapInterval:   cfg.Pool.ReapInterval,
		IdleTimeout:    cfg.Pool.IdleTimeout,
	}, sshpool.NewMetrics(registry), logger.Named("sshpool"))

	service := NewOltService(inv, manager, cfg.SNMP, logger.Named("service"))
	guard := sysname.NewGuard(NewGuardDevice(service), inv, logger.Named("sysname"))

	publisher, err := bus.NewMQTTPublisher(bus.Config{
		BrokerURL:    cfg.Broker.URL,
		ClientID:     cfg.Broker.ClientID,
		Username:     cfg.Broker.Username,
		Password:     cfg.Broker.Password,
		TopicPrefix:  cfg.Broker.TopicPrefix,
		QoS:          byte(cfg.Broker.QoS),
		MaxRetries:   cfg.Broker.MaxRetries,
		RetryBackoff: cfg.Broker.RetryBackoff,
	}, logger.Named("bus"))
	if err != nil {
		logger.Warn("broker unavailable at startup, publisher will reconnect", zap.Error(err))
	}

	models := make(map[string]ponindex.Model, len(cfg.Trap.Models))
	for ip, model := range cfg.Trap.Models {
		models[ip] = ponindex.Model(model)
	}
	listener := trap.NewListener(trap.Config{
		ListenAddress: cfg.Trap.ListenAddress,
		Community:     cfg.Trap.Community,
		DefaultModel:  ponindex.Model(cfg.Trap.DefaultModel),
		Models:        models,
		EnrichTimeout: cfg.Trap.EnrichTimeout,
		RenameWindow:  cfg.Trap.RenameWindow,
	}, inv, publisher, trap.NewMetrics(registry), logger.Named("trap"))

	d := &Daemon{
		cfg:       cfg,
		logger:    logger,
		inv:       inv,
		manager:   manager,
		service:   service,
		guard:     guard,
		publisher: publisher,
		listener:  listener,
		registry:  registry,
	}
	d.server = &http.Server{
		Addr:              cfg.Server.MetricsAddress,
		Handler:           d.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return d, nil
}

// Service exposes the command execution path.
func (d *Daemon) Service() *OltService { return d.service }

// Guard exposes the sysname change guard.
func (d *Daemon) Guard() *sysname.Guard { return d.guard }

func (d *Daemon) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(d.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n")) //nolint:errcheck
	})
	mux.HandleFunc("/poolstats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(d.manager.Stats()) //nolint:errcheck
	})
	return mux
}

// Run blocks until ctx is cancelled, then shuts the subsystems down.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)

	go func() {
		d.logger.Info("metrics server listening",
			zap.String("address", d.cfg.Server.MetricsAddress))
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()
	go func() {
		errCh <- d.listener.Run(ctx)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := d.server.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("metrics server shutdown", zap.Error(err))
	}
	d.manager.CloseAll()
	d.publisher.Close()
	d.logger.Info("daemon stopped")
	return runErr
}
