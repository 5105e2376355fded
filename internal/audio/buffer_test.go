package audio

import (
	"math/rand"
	"strconv"
	"sync"
	"testing"
)

func seq(start, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(start + i)
	}
	return out
}

func equalSamples(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSampleBufferAppendWithinCapacity(t *testing.T) {
	buf := NewSampleBuffer(10)

	if evicted := buf.Append(seq(0, 4)); evicted != 0 {
		t.Fatalf("expected no eviction, got %d", evicted)
	}
	if evicted := buf.Append(seq(4, 6)); evicted != 0 {
		t.Fatalf("expected no eviction at exact capacity, got %d", evicted)
	}

	if got := buf.Snapshot(); !equalSamples(got, seq(0, 10)) {
		t.Fatalf("unexpected contents %v", got)
	}
}

func TestSampleBufferEvictsOldest(t *testing.T) {
	buf := NewSampleBuffer(5)
	buf.Append(seq(0, 4))

	if evicted := buf.Append(seq(4, 3)); evicted != 2 {
		t.Fatalf("expected 2 evicted, got %d", evicted)
	}

	if got := buf.Snapshot(); !equalSamples(got, []float32{2, 3, 4, 5, 6}) {
		t.Fatalf("unexpected contents %v", got)
	}
}

func TestSampleBufferChunkLargerThanCapacity(t *testing.T) {
	buf := NewSampleBuffer(4)
	buf.Append(seq(0, 2))

	if evicted := buf.Append(seq(2, 7)); evicted != 5 {
		t.Fatalf("expected 5 evicted, got %d", evicted)
	}

	if got := buf.Snapshot(); !equalSamples(got, []float32{5, 6, 7, 8}) {
		t.Fatalf("unexpected contents %v", got)
	}
}

func TestSampleBufferRetainsTail(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		capacity := 1 + rng.Intn(64)
		buf := NewSampleBuffer(capacity)

		total := 0
		for total <= capacity {
			n := rng.Intn(capacity * 2)
			buf.Append(seq(total, n))
			total += n

			if buf.Len() > capacity {
				t.Fatalf("trial %d: length %d exceeds capacity %d", trial, buf.Len(), capacity)
			}
		}

		want := seq(total-capacity, capacity)
		if got := buf.Snapshot(); !equalSamples(got, want) {
			t.Fatalf("trial %d: expected tail %v, got %v", trial, want, got)
		}
	}
}

func TestSampleBufferDrain(t *testing.T) {
	buf := NewSampleBuffer(8)
	buf.Append(seq(0, 3))

	got := buf.Drain()
	if !equalSamples(got, seq(0, 3)) {
		t.Fatalf("unexpected drained samples %v", got)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected empty buffer after drain, got %d", buf.Len())
	}

	// Drained slice must not alias later appends
	buf.Append([]float32{99})
	if got[0] != 0 {
		t.Fatalf("drained slice was overwritten: %v", got)
	}

	if empty := NewSampleBuffer(8).Drain(); empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", empty)
	}
}

func TestSampleBufferSnapshotIsCopy(t *testing.T) {
	buf := NewSampleBuffer(8)
	buf.Append(seq(0, 3))

	snap := buf.Snapshot()
	snap[0] = 42

	if got := buf.Snapshot(); got[0] != 0 {
		t.Fatal("snapshot mutation leaked into buffer")
	}
	if buf.Len() != 3 {
		t.Fatalf("snapshot changed length to %d", buf.Len())
	}
}

func TestSampleBufferDefaultCapacity(t *testing.T) {
	if got := NewSampleBuffer(0).Capacity(); got != MaxSamples {
		t.Fatalf("expected default capacity %d, got %d", MaxSamples, got)
	}
	if MaxSamples != 52920000 {
		t.Fatalf("MaxSamples = %d, want 52920000", MaxSamples)
	}
}

func TestSampleBufferConcurrentAppendAndSnapshot(t *testing.T) {
	buf := NewSampleBuffer(1000)
	chunk := seq(0, 37)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			buf.Append(chunk)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if n := len(buf.Snapshot()); n > 1000 {
				t.Errorf("snapshot length %d exceeds capacity", n)
				return
			}
		}
	}()
	wg.Wait()

	if buf.Len() != 1000 {
		t.Fatalf("expected full buffer, got %d", buf.Len())
	}
}

func TestSampleBufferWrapsInOrder(t *testing.T) {
	buf := NewSampleBuffer(6)
	buf.Append(seq(0, 6))
	buf.Append(seq(6, 4))

	if buf.head != 4 {
		t.Fatalf("expected head 4 after wrap, got %d", buf.head)
	}
	if got := buf.Snapshot(); !equalSamples(got, seq(4, 6)) {
		t.Fatalf("unexpected snapshot %v", got)
	}
	if got := buf.Drain(); !equalSamples(got, seq(4, 6)) {
		t.Fatalf("unexpected drain %v", got)
	}

	// Reusable after a wrapped drain
	buf.Append(seq(20, 2))
	if got := buf.Snapshot(); !equalSamples(got, seq(20, 2)) {
		t.Fatalf("unexpected contents after drain %v", got)
	}
}

func TestSampleBufferFullMaxSamplesKeepsTail(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates a full ten minute buffer")
	}

	buf := NewSampleBuffer(MaxSamples)
	buf.Append(make([]float32, MaxSamples))
	backing := &buf.data[0]

	const chunks, size = 3, 512
	for i := 0; i < chunks; i++ {
		if evicted := buf.Append(seq(1+i*size, size)); evicted != size {
			t.Fatalf("chunk %d: expected %d evicted, got %d", i, size, evicted)
		}
	}

	if buf.Len() != MaxSamples {
		t.Fatalf("expected length %d, got %d", MaxSamples, buf.Len())
	}
	if &buf.data[0] != backing {
		t.Fatal("append to a full buffer reallocated its storage")
	}
	if buf.head != chunks*size {
		t.Fatalf("expected head %d, got %d", chunks*size, buf.head)
	}

	newest := (buf.head + buf.count - chunks*size) % buf.capacity
	for i := 0; i < chunks*size; i++ {
		if got := buf.data[(newest+i)%buf.capacity]; got != float32(1+i) {
			t.Fatalf("tail sample %d = %v, want %v", i, got, float32(1+i))
		}
	}
	if oldest := buf.data[buf.head]; oldest != 0 {
		t.Fatalf("expected oldest sample 0, got %v", oldest)
	}

	chunk := seq(0, size)
	if allocs := testing.AllocsPerRun(50, func() { buf.Append(chunk) }); allocs != 0 {
		t.Fatalf("append to a full buffer allocated %v times", allocs)
	}
}

func BenchmarkSampleBufferAppendFull(b *testing.B) {
	for _, capacity := range []int{1 << 16, MaxSamples} {
		buf := NewSampleBuffer(capacity)
		buf.Append(make([]float32, capacity))
		chunk := seq(0, 512)

		b.Run(strconv.Itoa(capacity), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				buf.Append(chunk)
			}
		})
	}
}
