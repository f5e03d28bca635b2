package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/salahayoub/bonsai/pkg/engine"
	"github.com/salahayoub/bonsai/pkg/logging"
	"github.com/salahayoub/bonsai/pkg/node"
)

// settingsFile is the bbolt database holding per-network node settings.
const settingsFile = "bonsai.db"

// Config is the bonsai configuration file.
type Config struct {
	Network   string         `yaml:"network"`
	DataDir   string         `yaml:"data_dir"`
	AutoStart bool           `yaml:"auto_start"`
	Log       LogConfig      `yaml:"log"`
	Polling   PollingConfig  `yaml:"polling"`
	Engine    EngineConfig   `yaml:"engine"`
	Exporter  ExporterConfig `yaml:"exporter"`
}

// LogConfig controls the logger. File is only used in headless mode; the
// dashboard keeps logs in the capture buffer.
type LogConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"` // "text" or "json"
	File     string `yaml:"file"`
	Capacity int    `yaml:"capacity"`
}

// PollingConfig sets the controller subscription intervals.
type PollingConfig struct {
	TickInterval       time.Duration `yaml:"tick_interval"`
	StatisticsInterval time.Duration `yaml:"statistics_interval"`
}

// EngineConfig overrides how the node process is found and reached.
type EngineConfig struct {
	Binary            string        `yaml:"binary"`
	RPCAddress        string        `yaml:"rpc_address"` // empty uses the network default
	Attach            bool          `yaml:"attach"`      // connect to a running node instead of spawning one
	StartupTimeout    time.Duration `yaml:"startup_timeout"`
	BlockPollInterval time.Duration `yaml:"block_poll_interval"`
}

// ExporterConfig enables the HTTP and gRPC health endpoints. Empty
// addresses disable them.
type ExporterConfig struct {
	HTTPAddress string `yaml:"http_address"`
	GRPCAddress string `yaml:"grpc_address"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Network: engine.Signet.String(),
		DataDir: filepath.Join(homeDir, ".bonsai"),
		Log: LogConfig{
			Level:    "info",
			Format:   "text",
			Capacity: logging.DefaultCaptureCapacity,
		},
		Polling: PollingConfig{
			TickInterval:       node.DefaultTickInterval,
			StatisticsInterval: node.DefaultStatisticsInterval,
		},
		Engine: EngineConfig{
			Binary:            "florestad",
			StartupTimeout:    30 * time.Second,
			BlockPollInterval: 2 * time.Second,
		},
	}
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".bonsai", "config.yaml")
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	path = expandPath(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks every field, reporting all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if _, err := engine.ParseNetwork(c.Network); err != nil {
		errs = append(errs, err.Error())
	}
	if c.DataDir == "" {
		errs = append(errs, "data_dir is required")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format: %q", c.Log.Format))
	}
	if c.Log.Capacity <= 0 {
		errs = append(errs, "log capacity must be positive")
	}
	if c.Polling.TickInterval <= 0 || c.Polling.StatisticsInterval <= 0 {
		errs = append(errs, "polling intervals must be positive")
	} else if c.Polling.TickInterval >= c.Polling.StatisticsInterval {
		errs = append(errs, "tick_interval must be shorter than statistics_interval")
	}
	if c.Engine.Binary == "" && !c.Engine.Attach {
		errs = append(errs, "engine binary is required unless attaching")
	}
	if c.Engine.StartupTimeout <= 0 {
		errs = append(errs, "engine startup_timeout must be positive")
	}
	if c.Engine.BlockPollInterval <= 0 {
		errs = append(errs, "engine block_poll_interval must be positive")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// NetworkValue returns the parsed network. Validate must have passed.
func (c *Config) NetworkValue() engine.Network {
	n, _ := engine.ParseNetwork(c.Network)
	return n
}

// SettingsPath is the settings database location.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, settingsFile)
}

// NodeConfig builds the launch configuration for network before persisted
// settings are applied.
func (c *Config) NodeConfig(network engine.Network) engine.NodeConfig {
	cfg := engine.DefaultNodeConfig(network)
	cfg.DataDir = filepath.Join(c.DataDir, network.String())
	if c.Engine.Binary != "" {
		cfg.Binary = c.Engine.Binary
	}
	if c.Engine.RPCAddress != "" {
		cfg.RPCAddress = c.Engine.RPCAddress
	}
	cfg.StartupTimeout = c.Engine.StartupTimeout
	cfg.BlockPollInterval = c.Engine.BlockPollInterval
	return cfg
}

func (c *Config) expandPaths() {
	c.DataDir = expandPath(c.DataDir)
	c.Log.File = expandPath(c.Log.File)
	c.Engine.Binary = expandPath(c.Engine.Binary)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}
