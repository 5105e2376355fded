package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/petems/echo-capture/internal/audio"
	"github.com/petems/echo-capture/internal/mix"
	"github.com/rs/zerolog"
)

// RecordingResult describes a finished recording
type RecordingResult struct {
	RecordingID     string   `json:"recording_id"`
	DurationSeconds float64  `json:"duration_seconds"`
	FileSizeBytes   int64    `json:"file_size_bytes"`
	OutputPath      string   `json:"output_path"`
	Warnings        []string `json:"warnings,omitempty"`
}

// RecordingStatus is a point-in-time view of the engine
type RecordingStatus struct {
	IsRecording     bool     `json:"is_recording"`
	RecordingID     string   `json:"recording_id,omitempty"`
	DurationSeconds float64  `json:"duration_seconds"`
	Source          string   `json:"source,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
}

type Config struct {
	Backend audio.Backend
	Logger  zerolog.Logger
	// BufferCapacity overrides audio.MaxSamples per source buffer
	BufferCapacity int
	// Now overrides the clock, for tests
	Now func() time.Time
}

// session is the state of one active recording
type session struct {
	id       string
	origin   audio.Origin
	path     string
	start    time.Time
	mic      audio.Source
	sys      audio.Source
	warnings []string
}

func (s *session) sources() []audio.Source {
	var out []audio.Source
	if s.mic != nil {
		out = append(out, s.mic)
	}
	if s.sys != nil {
		out = append(out, s.sys)
	}
	return out
}

// Engine is the capture facade driven by the shell. At most one session is
// active at a time.
type Engine struct {
	backend  audio.Backend
	log      zerolog.Logger
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	session *session
}

func New(cfg Config) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		backend:  cfg.Backend,
		log:      cfg.Logger,
		capacity: cfg.BufferCapacity,
		now:      now,
	}
}

// StartRecording is Start for callers holding the origin by name.
// An unknown name fails with audio.ErrInvalidOrigin before any state changes.
func (e *Engine) StartRecording(id, origin, path string) error {
	o, err := audio.ParseOrigin(origin)
	if err != nil {
		return err
	}
	return e.Start(id, o, path)
}

// Start opens the sources for origin and begins recording into memory.
// On any source failure the already started sources are stopped and no
// session is left behind.
func (e *Engine) Start(id string, origin audio.Origin, path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return ErrAlreadyRecording
	}
	if !origin.Valid() {
		return fmt.Errorf("%w: %s", audio.ErrInvalidOrigin, origin)
	}

	s := &session{id: id, origin: origin, path: path}

	if origin.UsesMicrophone() {
		s.mic = e.backend.Microphone(audio.NewSampleBuffer(e.capacity))
	}
	if origin.UsesSystem() {
		s.sys = e.backend.Loopback(audio.NewSampleBuffer(e.capacity))
	}

	var started []audio.Source
	for _, src := range s.sources() {
		if err := src.Start(); err != nil {
			e.stopSources(started)
			return fmt.Errorf("start %s capture: %w", src.Name(), err)
		}
		started = append(started, src)

		if src.Capability() == audio.CapabilityUnsupported {
			msg := fmt.Sprintf("%s capture is not supported on this platform; it will be silent", src.Name())
			e.log.Warn().Str("source", src.Name()).Msg(msg)
			s.warnings = append(s.warnings, msg)
		}
	}

	s.start = e.now()
	e.session = s

	e.log.Info().
		Str("id", id).
		Str("origin", origin.String()).
		Str("path", path).
		Msg("Started recording")

	return nil
}

// Stop halts every source, mixes what they captured and writes the file.
// The session is discarded even when writing fails.
func (e *Engine) Stop() (RecordingResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return RecordingResult{}, ErrNotRecording
	}
	e.session = nil

	// Producers must be halted before anything is drained
	e.stopSources(s.sources())

	var mic, sys []float32
	if s.mic != nil {
		mic = s.mic.Drain()
	}
	if s.sys != nil {
		sys = s.sys.Drain()
	}

	duration := e.now().Sub(s.start).Seconds()

	samples := mix.Combine(s.origin, mic, sys)

	size, err := mix.WriteWAV(s.path, samples)
	if err != nil {
		e.log.Error().Err(err).Str("id", s.id).Msg("Failed to write recording")
		return RecordingResult{}, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}

	e.log.Info().
		Str("id", s.id).
		Float64("duration", duration).
		Int64("bytes", size).
		Int("samples", len(samples)).
		Msg("Stopped recording")

	return RecordingResult{
		RecordingID:     s.id,
		DurationSeconds: duration,
		FileSizeBytes:   size,
		OutputPath:      s.path,
		Warnings:        s.warnings,
	}, nil
}

// Status never fails; while idle it returns the zero snapshot
func (e *Engine) Status() RecordingStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return RecordingStatus{}
	}

	return RecordingStatus{
		IsRecording:     true,
		RecordingID:     s.id,
		DurationSeconds: e.now().Sub(s.start).Seconds(),
		Source:          s.origin.String(),
		Warnings:        s.warnings,
	}
}

func (e *Engine) IsRecording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// ListDevices enumerates input and output devices
func (e *Engine) ListDevices() audio.DeviceList {
	return e.backend.Devices()
}

// Shutdown finishes an active recording so nothing captured is lost on exit
func (e *Engine) Shutdown(ctx context.Context) error {
	if !e.IsRecording() {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := e.Stop()
		done <- err
	}()

	select {
	case err := <-done:
		if errors.Is(err, ErrNotRecording) {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) stopSources(sources []audio.Source) {
	for _, src := range sources {
		if err := src.Stop(); err != nil {
			e.log.Warn().Err(err).Str("source", src.Name()).Msg("Failed to stop capture source")
		}
	}
}
