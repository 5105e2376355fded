package audio

// unsupportedSource stands in for a capture path the platform lacks.
// It starts and stops without error and never produces samples.
type unsupportedSource struct {
	name string
	buf  *SampleBuffer
}

func newUnsupportedSource(name string, buf *SampleBuffer) *unsupportedSource {
	return &unsupportedSource{name: name, buf: buf}
}

func (u *unsupportedSource) Name() string { return u.name }

func (u *unsupportedSource) Capability() Capability { return CapabilityUnsupported }

func (u *unsupportedSource) Start() error { return nil }

func (u *unsupportedSource) Stop() error { return nil }

func (u *unsupportedSource) Drain() []float32 { return u.buf.Drain() }
