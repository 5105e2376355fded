//go:build windows

package audio

import (
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
)

var errEndpointNotOpen = errors.New("loopback endpoint not open")

// wasapiEndpoint captures the default render device through miniaudio's
// WASAPI loopback mode. Device callbacks queue packets that the polling
// goroutine picks up and releases.
type wasapiEndpoint struct {
	log zerolog.Logger

	ctx    *malgo.AllocatedContext
	device *malgo.Device
	queue  *packetQueue
}

func newLoopbackEndpoint(log zerolog.Logger) (LoopbackEndpoint, bool) {
	return &wasapiEndpoint{log: log.With().Str("endpoint", "wasapi").Logger()}, true
}

func (w *wasapiEndpoint) Open() (MixFormat, error) {
	ctx, err := malgo.InitContext([]malgo.Backend{malgo.BackendWasapi}, malgo.ContextConfig{}, func(message string) {
		w.log.Debug().Str("message", message).Msg("miniaudio")
	})
	if err != nil {
		return MixFormat{}, fmt.Errorf("init malgo context: %w", err)
	}
	w.ctx = ctx

	// Unknown format, zero channels and rate select the endpoint's own mix format
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Loopback)
	deviceConfig.Capture.Format = malgo.FormatUnknown
	deviceConfig.Capture.Channels = 0
	deviceConfig.SampleRate = 0

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: w.onData,
	})
	if err != nil {
		w.closeContext()
		return MixFormat{}, fmt.Errorf("init loopback device: %w", err)
	}
	w.device = device

	format := device.CaptureFormat()
	frameBytes := malgo.SampleSizeInBytes(format) * int(device.CaptureChannels())

	// Slots hold 100ms of audio each
	w.queue = newPacketQueue(int(device.SampleRate()) / 10 * frameBytes)

	return MixFormat{
		SampleRate:    int(device.SampleRate()),
		Channels:      int(device.CaptureChannels()),
		BitsPerSample: malgo.SampleSizeInBytes(format) * 8,
		Float:         format == malgo.FormatF32,
	}, nil
}

func (w *wasapiEndpoint) Start() error {
	if w.device == nil {
		return errEndpointNotOpen
	}
	return w.device.Start()
}

// onData runs on the miniaudio device thread
func (w *wasapiEndpoint) onData(_, input []byte, frameCount uint32) {
	if frameCount == 0 || len(input) == 0 {
		return
	}
	w.queue.push(input, int(frameCount))
}

func (w *wasapiEndpoint) NextPacketSize() (int, error) {
	if w.device == nil {
		return 0, errEndpointNotOpen
	}
	if dropped := w.queue.takeDropped(); dropped > 0 {
		w.log.Debug().Int("dropped", dropped).Msg("Loopback packets dropped")
	}
	return w.queue.nextFrames(), nil
}

func (w *wasapiEndpoint) GetBuffer() (Packet, error) {
	if w.device == nil {
		return Packet{}, errEndpointNotOpen
	}
	return w.queue.front()
}

func (w *wasapiEndpoint) ReleaseBuffer(frames int) error {
	if w.device == nil {
		return errEndpointNotOpen
	}
	return w.queue.release(frames)
}

func (w *wasapiEndpoint) Close() error {
	var err error
	if w.device != nil {
		if w.device.IsStarted() {
			err = w.device.Stop()
		}
		w.device.Uninit()
		w.device = nil
	}
	w.closeContext()

	if w.queue != nil {
		w.queue.reset()
	}
	return err
}

func (w *wasapiEndpoint) closeContext() {
	if w.ctx == nil {
		return
	}
	if err := w.ctx.Uninit(); err != nil {
		w.log.Warn().Err(err).Msg("Failed to uninit malgo context")
	}
	w.ctx.Free()
	w.ctx = nil
}
