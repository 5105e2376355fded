package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// DefaultPollInterval is how long the capture goroutine sleeps between
// packet queries.
const DefaultPollInterval = 10 * time.Millisecond

// MixFormat is the native format negotiated with the render endpoint
type MixFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	Float         bool
}

// Packet is one captured block handed out by a LoopbackEndpoint.
// Data stays valid until the packet is released.
type Packet struct {
	Data   []byte
	Frames int
	Silent bool
}

// LoopbackEndpoint is the native loopback capture session on the default
// render device. All methods are called from the capture goroutine only.
type LoopbackEndpoint interface {
	// Open initializes the audio subsystem, opens the loopback session and
	// returns the endpoint mix format.
	Open() (MixFormat, error)
	Start() error
	// NextPacketSize returns the frame count of the next pending packet, 0 if none.
	NextPacketSize() (int, error)
	GetBuffer() (Packet, error)
	ReleaseBuffer(frames int) error
	// Close stops the stream and releases the subsystem.
	Close() error
}

type loopbackState int32

const (
	loopbackIdle loopbackState = iota
	loopbackRunning
	loopbackStopped
)

// LoopbackSource captures the default output mix by polling a
// LoopbackEndpoint on a dedicated goroutine locked to its OS thread.
type LoopbackSource struct {
	endpoint LoopbackEndpoint
	buf      *SampleBuffer
	interval time.Duration
	log      zerolog.Logger

	mu      sync.Mutex
	state   loopbackState
	running atomic.Bool
	done    chan struct{}

	sampleRate atomic.Int32
	channels   atomic.Int32
}

// NewLoopbackSource creates an idle loopback source writing into buf
func NewLoopbackSource(endpoint LoopbackEndpoint, buf *SampleBuffer, interval time.Duration, log zerolog.Logger) *LoopbackSource {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	s := &LoopbackSource{
		endpoint: endpoint,
		buf:      buf,
		interval: interval,
		log:      log.With().Str("source", "loopback").Logger(),
	}
	s.sampleRate.Store(44100)
	s.channels.Store(2)
	return s
}

func (s *LoopbackSource) Name() string { return "system" }

func (s *LoopbackSource) Capability() Capability { return CapabilitySupported }

// Start spawns the capture goroutine. A stopped source cannot be restarted.
func (s *LoopbackSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case loopbackRunning:
		return ErrAlreadyRunning
	case loopbackStopped:
		return ErrSourceStopped
	}

	s.state = loopbackRunning
	s.running.Store(true)
	s.done = make(chan struct{})

	go s.run(s.done)

	s.log.Info().Msg("Loopback capture started")
	return nil
}

// Stop clears the running flag and waits for the capture goroutine to exit.
// No samples are appended after Stop returns.
func (s *LoopbackSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != loopbackRunning {
		if s.state == loopbackIdle {
			s.state = loopbackStopped
		}
		return nil
	}

	s.running.Store(false)
	<-s.done
	s.state = loopbackStopped

	s.log.Info().Int("samples", s.buf.Len()).Msg("Loopback capture stopped")
	return nil
}

// Drain takes every captured sample
func (s *LoopbackSource) Drain() []float32 {
	return s.buf.Drain()
}

// Running reports whether the capture goroutine is still active
func (s *LoopbackSource) Running() bool {
	return s.running.Load()
}

// SampleCount returns the number of buffered samples
func (s *LoopbackSource) SampleCount() int {
	return s.buf.Len()
}

// SampleRate returns the negotiated endpoint sample rate
func (s *LoopbackSource) SampleRate() int {
	return int(s.sampleRate.Load())
}

// Channels returns the negotiated endpoint channel count
func (s *LoopbackSource) Channels() int {
	return int(s.channels.Load())
}

// Duration returns how much audio is currently buffered
func (s *LoopbackSource) Duration() time.Duration {
	perSecond := s.SampleRate() * s.Channels()
	if perSecond == 0 {
		return 0
	}
	return time.Duration(float64(s.SampleCount()) / float64(perSecond) * float64(time.Second))
}

func (s *LoopbackSource) run(done chan struct{}) {
	defer close(done)

	// Native audio sessions are bound to the thread that opened them
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := s.capture(); err != nil {
		s.log.Error().Err(err).Msg("Loopback capture error")
		s.running.Store(false)
	}
}

func (s *LoopbackSource) capture() error {
	format, err := s.endpoint.Open()
	if err != nil {
		return fmt.Errorf("open loopback endpoint: %w", err)
	}
	defer func() {
		if err := s.endpoint.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to close loopback endpoint")
		}
	}()

	s.sampleRate.Store(int32(format.SampleRate))
	s.channels.Store(int32(format.Channels))

	s.log.Info().
		Int("sample_rate", format.SampleRate).
		Int("channels", format.Channels).
		Int("bits", format.BitsPerSample).
		Bool("float", format.Float).
		Msg("Loopback mix format")

	if err := s.endpoint.Start(); err != nil {
		return fmt.Errorf("start loopback stream: %w", err)
	}

	isFloat := format.Float && format.BitsPerSample == 32
	if !isFloat {
		s.log.Warn().Int("bits", format.BitsPerSample).Msg("Unsupported loopback sample format, packets will be skipped")
	}

	var scratch []float32

	for s.running.Load() {
		time.Sleep(s.interval)

		frames, err := s.endpoint.NextPacketSize()
		if err != nil {
			return fmt.Errorf("query packet size: %w", err)
		}

		for frames > 0 && s.running.Load() {
			pkt, err := s.endpoint.GetBuffer()
			if err != nil {
				return fmt.Errorf("get buffer: %w", err)
			}

			if !pkt.Silent && pkt.Frames > 0 && isFloat {
				n := pkt.Frames * format.Channels
				if cap(scratch) < n {
					scratch = make([]float32, n)
				}
				scratch = decodeFloat32(scratch[:n], pkt.Data)
				if evicted := s.buf.Append(scratch); evicted > 0 {
					s.log.Debug().Int("evicted", evicted).Msg("Buffer overflow: removed oldest samples")
				}
			}

			if err := s.endpoint.ReleaseBuffer(pkt.Frames); err != nil {
				return fmt.Errorf("release buffer: %w", err)
			}

			frames, err = s.endpoint.NextPacketSize()
			if err != nil {
				return fmt.Errorf("query packet size: %w", err)
			}
		}
	}

	return nil
}

// decodeFloat32 interprets little-endian IEEE-754 bytes into dst.
// A short data slice truncates the result.
func decodeFloat32(dst []float32, data []byte) []float32 {
	n := min(len(dst), len(data)/4)
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return dst[:n]
}
