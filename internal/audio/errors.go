package audio

import "errors"

var (
	ErrInvalidOrigin     = errors.New("invalid audio source")
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	ErrStreamInit        = errors.New("failed to initialize audio stream")
	ErrAlreadyRunning    = errors.New("capture already running")
	ErrSourceStopped     = errors.New("capture source already stopped")
)
