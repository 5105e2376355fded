package audio

import "fmt"

// Origin selects which source(s) a recording draws from
type Origin int

const (
	OriginMicrophone Origin = iota
	OriginSystem
	OriginBoth
)

// ParseOrigin maps the shell's origin names onto an Origin
func ParseOrigin(s string) (Origin, error) {
	switch s {
	case "microphone":
		return OriginMicrophone, nil
	case "system":
		return OriginSystem, nil
	case "both":
		return OriginBoth, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidOrigin, s)
	}
}

// String returns the human-readable label shown in status snapshots
func (o Origin) String() string {
	switch o {
	case OriginMicrophone:
		return "Microphone"
	case OriginSystem:
		return "System"
	case OriginBoth:
		return "Both"
	default:
		return fmt.Sprintf("Origin(%d)", int(o))
	}
}

// Valid reports whether o is one of the defined origins
func (o Origin) Valid() bool {
	return o >= OriginMicrophone && o <= OriginBoth
}

// UsesMicrophone reports whether the origin needs a microphone source
func (o Origin) UsesMicrophone() bool {
	return o == OriginMicrophone || o == OriginBoth
}

// UsesSystem reports whether the origin needs a loopback source
func (o Origin) UsesSystem() bool {
	return o == OriginSystem || o == OriginBoth
}

// Capability tells callers whether a source can actually produce samples
// on this platform.
type Capability int

const (
	CapabilitySupported Capability = iota
	CapabilityUnsupported
)

// Source is a single live capture stream feeding its own SampleBuffer.
//
// Stop must be safe to call more than once and before a successful Start.
// Drain is only meaningful after Stop has returned.
type Source interface {
	Name() string
	Capability() Capability
	Start() error
	Stop() error
	Drain() []float32
}

// Backend constructs sources and enumerates devices for one platform host
type Backend interface {
	Microphone(buf *SampleBuffer) Source
	Loopback(buf *SampleBuffer) Source
	Devices() DeviceList
}

// AudioDevice represents an input or output device
type AudioDevice struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// DeviceList groups capture inputs and the outputs usable for loopback
type DeviceList struct {
	InputDevices  []AudioDevice `json:"input_devices"`
	OutputDevices []AudioDevice `json:"output_devices"`
}
