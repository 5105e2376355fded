//go:build !windows

package audio

import "github.com/rs/zerolog"

// newLoopbackEndpoint reports that this platform has no native loopback API
func newLoopbackEndpoint(log zerolog.Logger) (LoopbackEndpoint, bool) {
	log.Debug().Msg("System loopback capture is only available on Windows")
	return nil, false
}
