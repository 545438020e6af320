// Package fleet wires the subsystems into a running service: configuration
// loading, the per-OLT command execution path, and the daemon that hosts
// the trap pipeline and metrics endpoint.
package fleet

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the daemon configuration, loaded from olt-fleet.yaml with
// OLTFLEET_* environment overrides.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Trap      TrapConfig      `mapstructure:"trap"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	SNMP      SNMPConfig      `mapstructure:"snmp"`
}

type ServerConfig struct {
	// MetricsAddress serves /metrics, /healthz and /poolstats.
	MetricsAddress string `mapstructure:"metrics_address"`
}

type PoolConfig struct {
	MaxSize        int           `mapstructure:"max_size"`
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"`
	ReapInterval   time.Duration `mapstructure:"reap_interval"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
}

type TrapConfig struct {
	ListenAddress string `mapstructure:"listen_address"`
	Community     string `mapstructure:"community"`
	// DefaultModel selects the decode table for sources without an
	// explicit entry in Models.
	DefaultModel  string            `mapstructure:"default_model"`
	Models        map[string]string `mapstructure:"models"`
	EnrichTimeout time.Duration     `mapstructure:"enrich_timeout"`
	RenameWindow  time.Duration     `mapstructure:"rename_window"`
}

type BrokerConfig struct {
	URL          string        `mapstructure:"url"`
	ClientID     string        `mapstructure:"client_id"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	TopicPrefix  string        `mapstructure:"topic_prefix"`
	QoS          int           `mapstructure:"qos"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type InventoryConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FallbackPath string        `mapstructure:"fallback_path"`
}

type SNMPConfig struct {
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// LoadConfig reads olt-fleet.yaml and environment overrides. A missing
// config file is fine when configPath is empty; defaults apply.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.metrics_address", ":9465")
	v.SetDefault("pool.max_size", 5)
	v.SetDefault("pool.acquire_timeout", "30s")
	v.SetDefault("pool.reap_interval", "60s")
	v.SetDefault("pool.idle_timeout", "300s")
	v.SetDefault("trap.listen_address", "0.0.0.0:162")
	v.SetDefault("trap.default_model", "MA5600T")
	v.SetDefault("trap.enrich_timeout", "3s")
	v.SetDefault("trap.rename_window", "24h")
	v.SetDefault("broker.client_id", "olt-fleet")
	v.SetDefault("broker.topic_prefix", "oltfleet")
	v.SetDefault("broker.qos", 1)
	v.SetDefault("broker.max_retries", 3)
	v.SetDefault("broker.retry_backoff", "500ms")
	v.SetDefault("inventory.timeout", "10s")
	v.SetDefault("inventory.fallback_path", "olt_config.yaml")
	v.SetDefault("snmp.port", 161)
	v.SetDefault("snmp.timeout", "5s")
	v.SetDefault("snmp.retries", 2)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("olt-fleet")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/olt-fleet")
	}

	// Environment override: OLTFLEET_BROKER_URL=tcp://broker:1883
	v.SetEnvPrefix("OLTFLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}
