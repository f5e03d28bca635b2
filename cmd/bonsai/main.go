// Command bonsai runs and monitors a Utreexo validation node.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/salahayoub/bonsai/pkg/engine"
	"github.com/salahayoub/bonsai/pkg/health"
	"github.com/salahayoub/bonsai/pkg/storage"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Global flags
var (
	configPath  string
	networkFlag string
	dataDirFlag string
	logLevel    string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, StyleError.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "bonsai",
		Short:         "Bonsai Utreexo node manager",
		Long:          "Run a florestad Utreexo node and watch it from a terminal dashboard.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd, true)
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", DefaultConfigPath(), "Path to the config file")
	root.PersistentFlags().StringVar(&networkFlag, "network", "", "Network: bitcoin, signet, testnet, testnet4, regtest")
	root.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "Data directory (overrides the config file)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	root.AddCommand(
		newUICmd(),
		newRunCmd(),
		newSettingsCmd(),
		newConfigCmd(),
		newHealthCmd(),
		newVersionCmd(),
	)
	return root
}

func newUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Open the terminal dashboard (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd, true)
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the node headless until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNode(cmd, false)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bonsai %s\n", version)
		},
	}
}

func newHealthCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query a running bonsai over gRPC health checking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				addr = cfg.Exporter.GRPCAddress
			}
			if addr == "" {
				return fmt.Errorf("no gRPC address: pass --addr or set exporter.grpc_address")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()
			st, err := health.Check(ctx, addr)
			if err != nil {
				return err
			}
			if st != grpc_health_v1.HealthCheckResponse_SERVING {
				printWarning(cmd.OutOrStdout(), "%s: %s", health.Service, st)
				return fmt.Errorf("node is not serving")
			}
			printSuccess(cmd.OutOrStdout(), "%s: %s", health.Service, st)
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Health server address (defaults to exporter.grpc_address)")
	return cmd
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig() (*Config, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if networkFlag != "" {
		cfg.Network = networkFlag
	}
	if dataDirFlag != "" {
		cfg.DataDir = expandPath(dataDirFlag)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// selectNetwork picks the --network flag, then the network last chosen with
// `bonsai settings network`, then the config file value.
func selectNetwork(cfg *Config) (engine.Network, error) {
	if networkFlag != "" {
		return engine.ParseNetwork(networkFlag)
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create data directory: %w", err)
	}
	store, err := storage.Open(cfg.SettingsPath())
	if err != nil {
		return 0, err
	}
	defer store.Close()

	if n, ok, err := store.SelectedNetwork(); err != nil {
		return 0, err
	} else if ok {
		return n, nil
	}
	return cfg.NetworkValue(), nil
}

func runNode(cmd *cobra.Command, dashboard bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	network, err := selectNetwork(cfg)
	if err != nil {
		return err
	}
	if dashboard && !isInteractive() {
		return fmt.Errorf("the dashboard needs a terminal; use `bonsai run` for headless mode")
	}

	s, err := newSession(cfg, configPath, network, dashboard)
	if err != nil {
		return err
	}
	return s.run(cmd.Context(), dashboard)
}
