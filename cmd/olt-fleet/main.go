package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nanoncore/olt-fleet/pkg/fleet"
	"github.com/nanoncore/olt-fleet/pkg/inventory"
	"github.com/nanoncore/olt-fleet/pkg/southbound/command"
	"github.com/nanoncore/olt-fleet/pkg/sshpool"
)

var (
	version   = "0.1.0-dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "olt-fleet",
	Short: "GPON OLT fleet management service",
	Long: `olt-fleet manages a fleet of GPON OLTs over SSH and SNMP.

It maintains pooled CLI sessions per device, executes provisioning and
diagnostic commands with firmware-aware output parsing, receives SNMP traps
on UDP 162 and publishes enriched events to the message broker.`,
	Version: version,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("olt-fleet version %s (commit: %s, built: %s)\n", version, commit, buildDate)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the fleet service in daemon mode",
	Long: `Run the fleet service in the foreground.

The daemon:
1. Listens for SNMP traps and publishes enriched events to the broker
2. Maintains the SSH connection pool registry
3. Serves /metrics, /healthz and /poolstats

Designed to be managed by systemd.`,
	RunE: runDaemon,
}

// Check flags
var checkOltID string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe one OLT and print what it reports",
	Long: `Check opens a single CLI session against the given OLT, reads the
sysname and firmware version, and prints the result. Useful for verifying
credentials and reachability before adding a device to the fleet.

Example:
  olt-fleet check --olt-id olt-42`,
	RunE: runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to olt-fleet.yaml (default: search . and /etc/olt-fleet)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false,
		"Enable debug logging")

	checkCmd.Flags().StringVar(&checkOltID, "olt-id", "", "OLT identifier in the inventory (required)")
	_ = checkCmd.MarkFlagRequired("olt-id")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := fleet.LoadConfig(configPath)
	if err != nil {
		return err
	}

	daemon, err := fleet.NewDaemon(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting olt-fleet",
		zap.String("version", version),
		zap.String("trap_listen", cfg.Trap.ListenAddress),
		zap.String("metrics", cfg.Server.MetricsAddress))
	return daemon.Run(ctx)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := fleet.LoadConfig(configPath)
	if err != nil {
		return err
	}

	inv := inventory.NewClient(inventory.Config{
		BaseURL:      cfg.Inventory.BaseURL,
		Timeout:      cfg.Inventory.Timeout,
		FallbackPath: cfg.Inventory.FallbackPath,
	}, logger)
	manager := sshpool.NewManager(sshpool.Options{
		MaxSize:        1,
		AcquireTimeout: cfg.Pool.AcquireTimeout,
	}, nil, logger)
	defer manager.CloseAll()

	svc := fleet.NewOltService(inv, manager, cfg.SNMP, logger)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Probing %s... ", checkOltID)
	sysname, err := svc.Execute(ctx, checkOltID, command.GetSysname{})
	if err != nil {
		fmt.Printf("FAILED\n")
		return err
	}
	fmt.Printf("OK\n")

	report := map[string]string{
		"sysname": sysname.Fields["sysname"],
	}
	if ver, err := svc.Execute(ctx, checkOltID, command.GetVersion{}); err == nil {
		for k, v := range ver.Fields {
			report[k] = v
		}
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(out))
	return nil
}
