package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cfg.Encode(cmd.OutOrStdout())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting (station, face or motor)",
	Long: `Validate and store a setting in the database. Stored settings override the
config file and take effect the next time the daemon starts.

  station  7-digit NOAA station id
  face     linear or nonlinear
  motor    lavet or microstep`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		updated := cfg
		if err := updated.Set(key, value); err != nil {
			return err
		}

		st, err := openStore(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.SaveSettings(map[string]string{key: value}, time.Now()); err != nil {
			return err
		}
		cfg = updated

		log.Info().Str("key", key).Str("value", value).Msg("Setting saved")
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (restart the daemon to apply)\n", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
