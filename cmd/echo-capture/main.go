package main

import (
	"fmt"
	"os"

	"github.com/petems/echo-capture/internal/audio"
	"github.com/petems/echo-capture/internal/config"
	"github.com/petems/echo-capture/internal/engine"
	"github.com/petems/echo-capture/internal/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

var (
	cfg      *config.Config
	log      zerolog.Logger
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     "echo-capture",
	Short:   "Record microphone and system audio to WAV",
	Version: fmt.Sprintf("%s (%s)", Version, Commit),
	Long: `echo-capture records the default microphone, the system output mix,
or both mixed together, and saves the result as a 16-bit stereo WAV file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config from XDG/Library/AppData
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", config.Path(), err)
		}

		// Initialize logger with configured level
		log = logging.NewWithConfig(cfg.LogLevel, cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(configCmd)
}

// newEngine initializes the audio backend and the capture engine on top of it
func newEngine() (*engine.Engine, func(), error) {
	backend, err := audio.New(cfg.Audio, log)
	if err != nil {
		return nil, nil, err
	}

	eng := engine.New(engine.Config{
		Backend: backend,
		Logger:  log,
	})

	closeFn := func() {
		if err := backend.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to terminate audio backend")
		}
	}
	return eng, closeFn, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
