package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"nowplaying/internal/platform/config"
	"nowplaying/internal/platform/logger"
)

var (
	envFile  string
	log      *slog.Logger
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:           "nowplaying",
	Short:         "Track the now-playing history of an HLS radio stream.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := config.Load(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
		} else {
			_ = config.Load()
		}

		lc := config.LoadLogging()
		log, closeLog = logger.NewWithFile(lc.Level, lc.Format, lc.File)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Read settings from this .env file")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		if log != nil {
			log.Error("command failed", slog.String("error", err.Error()))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	_ = closeLog()
	if err != nil {
		os.Exit(1)
	}
}
