package audio

import "sync"

const (
	// MaxSamples caps a buffer at 10 minutes of 44.1kHz stereo
	MaxSamples = 44100 * 2 * 60 * 10

	initialSamples = 44100 * 2 * 60
)

// SampleBuffer is a capacity-limited FIFO of interleaved float32 samples.
// It is written by one capture goroutine and drained by the stop path.
//
// Storage grows like a slice until it reaches capacity and is then used as
// a ring: eviction advances head instead of moving samples, so an append
// costs O(len(chunk)) however full the buffer is.
type SampleBuffer struct {
	mu       sync.Mutex
	data     []float32
	head     int // index of the oldest sample
	count    int
	capacity int
}

// NewSampleBuffer returns an empty buffer holding at most capacity samples.
// A non-positive capacity means MaxSamples.
func NewSampleBuffer(capacity int) *SampleBuffer {
	if capacity <= 0 {
		capacity = MaxSamples
	}
	return &SampleBuffer{
		data:     make([]float32, 0, min(capacity, initialSamples)),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of samples retained
func (b *SampleBuffer) Capacity() int {
	return b.capacity
}

// Append copies chunk onto the tail, evicting from the head as needed.
// It returns the number of samples evicted.
func (b *SampleBuffer) Append(chunk []float32) int {
	if len(chunk) == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	evicted := max(b.count+len(chunk)-b.capacity, 0)

	// A chunk larger than the whole buffer only keeps its tail
	if len(chunk) >= b.capacity {
		b.grow(b.capacity)
		copy(b.data, chunk[len(chunk)-b.capacity:])
		b.head = 0
		b.count = b.capacity
		return evicted
	}

	// Still filling: head is 0 and data holds exactly count samples
	if len(b.data) < b.capacity {
		n := min(len(chunk), b.capacity-len(b.data))
		b.grow(len(b.data) + n)
		copy(b.data[b.count:], chunk[:n])
		b.count += n
		chunk = chunk[n:]
	}

	if len(chunk) > 0 {
		b.writeRing(chunk)
	}
	return evicted
}

// grow extends data to length n, reallocating at most to capacity
func (b *SampleBuffer) grow(n int) {
	if n <= cap(b.data) {
		b.data = b.data[:n]
		return
	}
	next := make([]float32, n, min(max(2*cap(b.data), n), b.capacity))
	copy(next, b.data)
	b.data = next
}

// writeRing stores chunk after the newest sample of a full-size ring,
// overwriting the oldest samples. len(chunk) must not exceed capacity.
func (b *SampleBuffer) writeRing(chunk []float32) {
	w := (b.head + b.count) % b.capacity
	n := copy(b.data[w:], chunk)
	copy(b.data, chunk[n:])

	b.count += len(chunk)
	if over := b.count - b.capacity; over > 0 {
		b.head = (b.head + over) % b.capacity
		b.count = b.capacity
	}
}

// ordered returns the samples oldest first. It aliases data when no
// unwrapping is needed.
func (b *SampleBuffer) ordered(alias bool) []float32 {
	if alias && b.head == 0 {
		return b.data[:b.count]
	}
	out := make([]float32, b.count)
	n := copy(out, b.data[b.head:min(b.head+b.count, len(b.data))])
	copy(out[n:], b.data[:b.count-n])
	return out
}

// Drain empties the buffer and returns everything it held
func (b *SampleBuffer) Drain() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		b.data, b.head = nil, 0
		return []float32{}
	}

	out := b.ordered(true)
	b.data, b.head, b.count = nil, 0, 0
	return out
}

// Snapshot returns a copy of the current contents
func (b *SampleBuffer) Snapshot() []float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ordered(false)
}

// Len returns the number of buffered samples
func (b *SampleBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}
