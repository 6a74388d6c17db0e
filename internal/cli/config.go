package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/cardmark/internal/config"
)

var flagConfigForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage saved detection and reporting settings",
	Long: "Settings are layered: built-in defaults, then the config file, then CARDMARK_* " +
		"environment variables, then command flags.",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default settings to the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil && !flagConfigForce {
			fmt.Fprintf(cmd.ErrOrStderr(), "Config file already exists at %s (use --force to reset it)\n", path)
			return nil
		}

		if err := config.Save(config.Default()); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Config file created at %s\n", path)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Save one setting (weights use weights.<KEY>, thresholds accept none)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadSaved()
		if err != nil {
			return err
		}
		if err := config.SetField(&cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		path, _ := config.ConfigPath()
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s in %s\n", args[0], args[1], path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings after every layer is applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(nil)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configInitCmd.Flags().BoolVar(&flagConfigForce, "force", false, "Overwrite an existing config file")
}
