package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/salahayoub/bonsai/pkg/engine"
	"github.com/salahayoub/bonsai/pkg/storage"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change persisted node settings",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the settings for a network",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSettings(func(store *storage.SettingsStore, network engine.Network) error {
					s, err := store.Load(network)
					if err != nil {
						return err
					}
					printSettings(cmd, network, s)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set key=value...",
			Short: "Change one or more settings",
			Long:  "Change settings for a network. Keys: " + strings.Join(storage.Keys(), ", "),
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSettings(func(store *storage.SettingsStore, network engine.Network) error {
					s, err := store.Load(network)
					if err != nil {
						return err
					}
					if err := applyAssignments(&s, args); err != nil {
						return err
					}
					if err := store.Save(network, s); err != nil {
						return err
					}
					printSuccess(cmd.OutOrStdout(), "saved %d setting(s) for %s", len(args), network)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "edit",
			Short: "Edit settings in an interactive form",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if !isInteractive() {
					return fmt.Errorf("settings edit needs a terminal; use `bonsai settings set`")
				}
				return withSettings(func(store *storage.SettingsStore, network engine.Network) error {
					s, err := store.Load(network)
					if err != nil {
						return err
					}
					if err := editSettings(network, &s); err != nil {
						return err
					}
					if err := store.Save(network, s); err != nil {
						return err
					}
					printSuccess(cmd.OutOrStdout(), "saved settings for %s", network)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "network [name]",
			Short: "Show or select the default network",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withSettings(func(store *storage.SettingsStore, current engine.Network) error {
					if len(args) == 0 {
						names := make([]string, 0, len(engine.Networks()))
						for _, n := range engine.Networks() {
							names = append(names, n.String())
						}
						printKV(cmd.OutOrStdout(), "Network", [][2]string{
							{"selected", current.String()},
							{"available", bullet(names)},
						})
						return nil
					}
					n, err := engine.ParseNetwork(args[0])
					if err != nil {
						return err
					}
					if err := store.SelectNetwork(n); err != nil {
						return err
					}
					printSuccess(cmd.OutOrStdout(), "default network set to %s", n)
					return nil
				})
			},
		},
	)
	return cmd
}

// withSettings opens the settings database for the selected network.
func withSettings(fn func(store *storage.SettingsStore, network engine.Network) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	network, err := selectNetwork(cfg)
	if err != nil {
		return err
	}
	store, err := storage.Open(cfg.SettingsPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store, network)
}

// applyAssignments applies key=value pairs in order, stopping at the first
// bad one.
func applyAssignments(s *storage.NodeSettings, args []string) error {
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", arg)
		}
		if err := s.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return s.Validate()
}

func printSettings(cmd *cobra.Command, network engine.Network, s storage.NodeSettings) {
	rows := make([][2]string, 0, len(storage.Keys()))
	for _, k := range storage.Keys() {
		v, _ := s.Get(k)
		rows = append(rows, [2]string{k, v})
	}
	printKV(cmd.OutOrStdout(), "Settings for "+network.String(), rows)
}

// editSettings runs a huh form over every setting.
func editSettings(network engine.Network, s *storage.NodeSettings) error {
	banScore := strconv.FormatUint(uint64(s.MaxBanScore), 10)
	outbound := strconv.FormatUint(uint64(s.MaxOutbound), 10)
	inflight := strconv.FormatUint(uint64(s.MaxInflight), 10)
	validUint := func(v string) error {
		if v == "" {
			return nil
		}
		_, err := strconv.ParseUint(v, 10, 32)
		return err
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Assume Utreexo").Description("Skip IBD using the hardcoded accumulator").Value(&s.AssumeUtreexo),
			huh.NewConfirm().Title("PoW fraud proofs").Value(&s.FraudProofs),
			huh.NewConfirm().Title("Backfill").Description("Validate skipped blocks in the background").Value(&s.Backfill),
			huh.NewConfirm().Title("Allow v1 transport fallback").Value(&s.AllowV1Fallback),
			huh.NewConfirm().Title("Disable DNS seeds").Value(&s.DisableDNSSeeds),
		).Title("Validation · "+network.String()),
		huh.NewGroup(
			huh.NewInput().Title("User agent").Placeholder(engine.DefaultUserAgent).Value(&s.UserAgent),
			huh.NewInput().Title("Fixed peer").Placeholder("host:port").Value(&s.FixedPeer),
			huh.NewInput().Title("SOCKS5 proxy").Placeholder("127.0.0.1:9050").Value(&s.Proxy),
		).Title("Network"),
		huh.NewGroup(
			huh.NewInput().Title("Max ban score").Value(&banScore).Validate(validUint),
			huh.NewInput().Title("Max outbound peers").Value(&outbound).Validate(validUint),
			huh.NewInput().Title("Max inflight requests").Value(&inflight).Validate(validUint),
		).Title("Limits"),
	).WithTheme(huh.ThemeBase())

	if err := form.Run(); err != nil {
		return err
	}
	for key, v := range map[string]string{
		storage.KeyMaxBanScore: banScore,
		storage.KeyMaxOutbound: outbound,
		storage.KeyMaxInflight: inflight,
	} {
		if v == "" {
			v = "0"
		}
		if err := s.Set(key, v); err != nil {
			return err
		}
	}
	return s.Validate()
}

func newConfigCmd() *cobra.Command {
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := expandPath(configPath)
			if _, err := os.Stat(path); err == nil {
				if !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				}
				printWarning(cmd.ErrOrStderr(), "overwriting %s", path)
			}
			if err := DefaultConfig().Save(path); err != nil {
				return err
			}
			printSuccess(cmd.OutOrStdout(), "wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), StyleMuted.Render("# "+expandPath(configPath)))
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the bonsai config file",
	}
	cmd.AddCommand(initCmd, showCmd)
	return cmd
}
