package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sweeney/tide-clock/internal/tideclock"
)

var stepCmd = &cobra.Command{
	Use:   "step [n]",
	Short: "Pulse the movement n times",
	Long: `Issue n forced steps (default 1) at the motor's minimum interval, ignoring
the tide. Use it to set the hand before starting the daemon.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := 1
		if len(args) == 1 {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 1 {
				return fmt.Errorf("step count must be a positive integer, got %q", args[0])
			}
			n = v
		}

		lines, err := openCoil(cfg.GPIO)
		if err != nil {
			return fmt.Errorf("init gpio: %w", err)
		}
		defer lines.Close()

		start := time.Now()
		clock, err := tideclock.New(tideclock.Config{
			Face:      tideclock.FaceType(cfg.Clock.Face),
			Motor:     cfg.Clock.Motor,
			StartTime: start,
		}, lines.tick, lines.tock, tideclock.UnavailableEvent, sinceStart(start))
		if err != nil {
			return err
		}

		ticker := time.NewTicker(clock.Profile().MinStepInterval)
		defer ticker.Stop()

		taken := forceSteps(clock, n, ticker.C)
		log.Info().Int("steps", taken).Str("motor", cfg.Clock.Motor).Msg("Calibration steps issued")
		fmt.Fprintf(cmd.OutOrStdout(), "stepped %d\n", taken)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stepCmd)
}

// forceSteps pulses on each tick until n pulses have gone out. Ticks that
// arrive inside the motor's minimum interval are skipped.
func forceSteps(clock *tideclock.Clock, n int, tick <-chan time.Time) int {
	taken := 0
	for taken < n {
		if clock.ForceStep() {
			taken++
			continue
		}
		<-tick
	}
	return taken
}
