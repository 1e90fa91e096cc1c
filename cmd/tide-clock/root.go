package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sweeney/tide-clock/internal/config"
	"github.com/sweeney/tide-clock/internal/logging"
	"github.com/sweeney/tide-clock/internal/store"
)

var (
	configPath string
	logLevel   string

	// cfg is the effective configuration: file, then stored settings.
	cfg       config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "tide-clock",
	Short: "Tide clock driver",
	Long: `tide-clock pulses a Lavet or microstepping clock movement so that the hand
shows how long until the next high or low tide at a NOAA station.`,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}

		logCloser, err = logging.Init(loaded.LogLevel(), loaded.Log.File)
		if err != nil {
			return err
		}

		if err := applyStoredSettings(&loaded); err != nil {
			log.Warn().Err(err).Str("path", loaded.Store.Path).Msg("Stored settings not applied")
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to the TOML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
}

// openStore opens the settings and history database, creating its directory.
func openStore(path string) (*store.Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return store.Open(path)
}

// applyStoredSettings overlays the settings saved by "config set".
func applyStoredSettings(c *config.Config) error {
	st, err := openStore(c.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	settings, err := st.Settings()
	if err != nil {
		return err
	}
	if err := c.Apply(settings); err != nil {
		return err
	}
	if len(settings) > 0 {
		log.Debug().Interface("settings", settings).Msg("Applied stored settings")
	}
	return nil
}
