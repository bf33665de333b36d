package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oriumgames/phase"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the phasecfg CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phasecfg",
		Short: "Inspect phase collision configuration",
		Long: `phasecfg validates phase configuration files and shows the
collision cap a world resolves for a block or entity type.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "phase.yml", "config file path")
	cmd.PersistentFlags().Int("collisions.default-max", -1, "override the default collision cap")

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newLimitsCmd())

	return cmd
}

// loadConfig reads the config file with command line overrides applied.
func loadConfig(flags *pflag.FlagSet) (*phase.Config, error) {
	cfg, err := phase.LoadConfig(configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", configFile, err)
	}
	return cfg, nil
}

// newCheckCmd creates the check subcommand.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			cc := cfg.Collisions
			cmd.Printf("%s: ok\n", configFile)
			cmd.Printf("  default-max: %d\n", cc.DefaultMax)
			cmd.Printf("  blocks:      %d\n", len(cc.Blocks))
			cmd.Printf("  entities:    %d\n", len(cc.Entities))

			worlds := make([]string, 0, len(cc.Worlds))
			for name := range cc.Worlds {
				worlds = append(worlds, name)
			}
			sort.Strings(worlds)
			for _, name := range worlds {
				wc := cc.Worlds[name]
				cmd.Printf("  world %s: %d blocks, %d entities\n", name, len(wc.Blocks), len(wc.Entities))
			}
			return nil
		},
	}
}

// limitsConfig holds configuration for the limits command.
type limitsConfig struct {
	world  string
	block  string
	entity string
}

// newLimitsCmd creates the limits subcommand with all flags configured.
func newLimitsCmd() *cobra.Command {
	lc := &limitsConfig{}

	cmd := &cobra.Command{
		Use:   "limits",
		Short: "Show the collision cap resolved for a source",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLimits(cmd, lc)
		},
	}

	cmd.Flags().StringVar(&lc.world, "world", "", "world name")
	cmd.Flags().StringVar(&lc.block, "block", "", "block name, e.g. minecraft:hopper")
	cmd.Flags().StringVar(&lc.entity, "entity", "", "entity type, e.g. minecraft:minecart")
	cmd.MarkFlagsMutuallyExclusive("block", "entity")
	cmd.MarkFlagsOneRequired("block", "entity")

	return cmd
}

// runLimits executes the limits command.
func runLimits(cmd *cobra.Command, lc *limitsConfig) error {
	cfg, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}

	key := phase.SourceKey{Kind: phase.SourceBlock, Name: lc.block}
	if lc.entity != "" {
		key = phase.SourceKey{Kind: phase.SourceEntity, Name: lc.entity}
	}

	limit := cfg.MaxCollisions(lc.world, key)
	if limit < 0 {
		cmd.Printf("%s: unlimited\n", key)
		return nil
	}
	cmd.Printf("%s: %d\n", key, limit)
	return nil
}
