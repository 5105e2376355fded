package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/petems/echo-capture/internal/config"
	"github.com/petems/echo-capture/internal/permissions"
	"github.com/rs/zerolog"
)

// PortAudioBackend opens microphones through PortAudio and system audio
// through the platform loopback endpoint, when there is one.
type PortAudioBackend struct {
	pollInterval time.Duration
	log          zerolog.Logger
}

// New initializes PortAudio and returns the platform backend
func New(cfg config.AudioConfig, log zerolog.Logger) (*PortAudioBackend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudioBackend{
		pollInterval: time.Duration(cfg.PollIntervalMs) * time.Millisecond,
		log:          log,
	}, nil
}

func (p *PortAudioBackend) Microphone(buf *SampleBuffer) Source {
	return &micSource{
		buf: buf,
		log: p.log.With().Str("source", "microphone").Logger(),
	}
}

func (p *PortAudioBackend) Loopback(buf *SampleBuffer) Source {
	endpoint, ok := newLoopbackEndpoint(p.log)
	if !ok {
		return newUnsupportedSource("system", buf)
	}
	return NewLoopbackSource(endpoint, buf, p.pollInterval, p.log)
}

// Devices enumerates inputs and outputs. It never fails: an enumeration
// error yields empty lists.
func (p *PortAudioBackend) Devices() DeviceList {
	devices, err := portaudio.Devices()
	if err != nil {
		p.log.Warn().Err(err).Msg("Failed to list audio devices")
		return DeviceList{InputDevices: []AudioDevice{}, OutputDevices: []AudioDevice{}}
	}

	defaultIn, err := portaudio.DefaultInputDevice()
	if err != nil {
		defaultIn = nil
	}
	defaultOut, err := portaudio.DefaultOutputDevice()
	if err != nil {
		defaultOut = nil
	}

	return collectDevices(devices, defaultIn, defaultOut)
}

// Close terminates PortAudio
func (p *PortAudioBackend) Close() error {
	return portaudio.Terminate()
}

// collectDevices splits devices by direction. Defaults are matched by name;
// unnamed entries are skipped.
func collectDevices(devices []*portaudio.DeviceInfo, defaultIn, defaultOut *portaudio.DeviceInfo) DeviceList {
	list := DeviceList{
		InputDevices:  make([]AudioDevice, 0, len(devices)),
		OutputDevices: make([]AudioDevice, 0, len(devices)),
	}

	for _, d := range devices {
		if d == nil || d.Name == "" {
			continue
		}
		if d.MaxInputChannels > 0 {
			list.InputDevices = append(list.InputDevices, AudioDevice{
				ID:        d.Name,
				Name:      d.Name,
				IsDefault: defaultIn != nil && defaultIn.Name == d.Name,
			})
		}
		if d.MaxOutputChannels > 0 {
			list.OutputDevices = append(list.OutputDevices, AudioDevice{
				ID:        d.Name,
				Name:      d.Name,
				IsDefault: defaultOut != nil && defaultOut.Name == d.Name,
			})
		}
	}

	return list
}

// inputChannels picks the channel count to open a device with: its native
// layout, capped at stereo.
func inputChannels(n int) int {
	switch {
	case n <= 0:
		return 0
	case n > 2:
		return 2
	default:
		return n
	}
}

type micSource struct {
	buf *SampleBuffer
	log zerolog.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
}

func (m *micSource) Name() string { return "microphone" }

func (m *micSource) Capability() Capability { return CapabilitySupported }

func (m *micSource) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return ErrAlreadyRunning
	}

	if err := permissions.EnsureMicrophone(); err != nil {
		return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil || device == nil {
		return fmt.Errorf("%w: no default input device: %v", ErrDeviceUnavailable, err)
	}

	channels := inputChannels(device.MaxInputChannels)
	if channels == 0 {
		return fmt.Errorf("%w: %s has no input channels", ErrDeviceUnavailable, device.Name)
	}

	m.log.Info().
		Str("device", device.Name).
		Float64("sample_rate", device.DefaultSampleRate).
		Int("channels", channels).
		Msg("Opening input device")

	// Native rate and layout, no resampling
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: channels,
			Latency:  device.DefaultLowInputLatency,
		},
		SampleRate:      device.DefaultSampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, m.process)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStreamInit, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("%w: %w", ErrStreamInit, err)
	}

	m.stream = stream
	return nil
}

// process runs on the PortAudio callback thread
func (m *micSource) process(in []float32) {
	m.buf.Append(in)
}

func (m *micSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}

	if err := m.stream.Stop(); err != nil {
		m.log.Warn().Err(err).Msg("Failed to stop input stream")
	}
	if err := m.stream.Close(); err != nil {
		m.log.Warn().Err(err).Msg("Failed to close input stream")
	}
	m.stream = nil
	return nil
}

func (m *micSource) Drain() []float32 {
	return m.buf.Drain()
}
