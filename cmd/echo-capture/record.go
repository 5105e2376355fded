package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/petems/echo-capture/internal/audio"
	"github.com/spf13/cobra"
)

var (
	recordOrigin   string
	recordOutput   string
	recordID       string
	recordDuration time.Duration
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record until interrupted or for a fixed duration",
	Long: `Record from the microphone, the system output mix, or both.
Press Ctrl+C to stop; the WAV file is written on stop.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		origin := recordOrigin
		if origin == "" {
			origin = cfg.Audio.Origin
		}
		if _, err := audio.ParseOrigin(origin); err != nil {
			return err
		}

		id := recordID
		if id == "" {
			id = uuid.New().String()
		}

		path := recordOutput
		if path == "" {
			path = filepath.Join(cfg.Audio.OutputDir, id+".wav")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		eng, closeBackend, err := newEngine()
		if err != nil {
			return err
		}
		defer closeBackend()

		if err := eng.StartRecording(id, origin, path); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := eng.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Shutdown error")
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if recordDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, recordDuration)
			defer cancel()
		}

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

	wait:
		for {
			select {
			case <-ctx.Done():
				break wait
			case <-ticker.C:
				st := eng.Status()
				log.Info().
					Str("id", st.RecordingID).
					Str("source", st.Source).
					Float64("elapsed", st.DurationSeconds).
					Msg("Recording")
			}
		}

		log.Info().Msg("Stopping recording...")
		result, err := eng.Stop()
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	recordCmd.Flags().StringVarP(&recordOrigin, "origin", "s", "", "audio origin: microphone, system or both (default from config)")
	recordCmd.Flags().StringVarP(&recordOutput, "out", "o", "", "output WAV path (default <output_dir>/<id>.wav)")
	recordCmd.Flags().StringVar(&recordID, "id", "", "recording identifier (default random UUID)")
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "stop automatically after this long")
}
