package audio

import (
	"errors"
	"testing"
)

func TestPacketQueueFIFO(t *testing.T) {
	q := newPacketQueue(16)
	q.push([]byte{1, 2}, 1)
	q.push([]byte{3, 4, 5, 6}, 2)

	for _, want := range []struct {
		frames int
		first  byte
	}{{1, 1}, {2, 3}} {
		if got := q.nextFrames(); got != want.frames {
			t.Fatalf("expected %d frames, got %d", want.frames, got)
		}
		pkt, err := q.front()
		if err != nil {
			t.Fatalf("front: %v", err)
		}
		if pkt.Data[0] != want.first {
			t.Fatalf("expected first byte %d, got %d", want.first, pkt.Data[0])
		}
		if err := q.release(pkt.Frames); err != nil {
			t.Fatalf("release: %v", err)
		}
	}

	if q.nextFrames() != 0 {
		t.Fatal("expected empty queue")
	}
	if _, err := q.front(); !errors.Is(err, errNoPacket) {
		t.Fatalf("expected errNoPacket, got %v", err)
	}
}

func TestPacketQueueReleaseMismatch(t *testing.T) {
	q := newPacketQueue(16)
	q.push([]byte{1}, 4)

	if err := q.release(3); err == nil {
		t.Fatal("expected mismatch error")
	}
	if err := q.release(4); err != nil {
		t.Fatalf("release: %v", err)
	}
}

func TestPacketQueueDropsOldestWhenFull(t *testing.T) {
	q := newPacketQueue(4)
	for i := 0; i < maxQueuedPackets+3; i++ {
		q.push([]byte{byte(i)}, 1)
	}

	if got := q.takeDropped(); got != 3 {
		t.Fatalf("expected 3 dropped, got %d", got)
	}
	pkt, _ := q.front()
	if pkt.Data[0] != 3 {
		t.Fatalf("expected oldest surviving packet 3, got %d", pkt.Data[0])
	}
}

func TestPacketQueueKeepsHeldPacket(t *testing.T) {
	q := newPacketQueue(4)
	for i := 0; i < maxQueuedPackets; i++ {
		q.push([]byte{byte(i)}, 1)
	}

	held, _ := q.front()
	q.push([]byte{0xff}, 1)

	if held.Data[0] != 0 {
		t.Fatalf("held packet was overwritten: %d", held.Data[0])
	}
	if got := q.takeDropped(); got != 1 {
		t.Fatalf("expected incoming packet dropped, got %d dropped", got)
	}
	if err := q.release(1); err != nil {
		t.Fatalf("release: %v", err)
	}
	if pkt, _ := q.front(); pkt.Data[0] != 1 {
		t.Fatalf("expected packet 1 next, got %d", pkt.Data[0])
	}
}

func TestPacketQueuePushDoesNotAllocate(t *testing.T) {
	q := newPacketQueue(256)
	input := make([]byte, 256)

	allocs := testing.AllocsPerRun(200, func() {
		q.push(input, 32)
		pkt, _ := q.front()
		q.release(pkt.Frames)
	})
	if allocs != 0 {
		t.Fatalf("push/release allocated %v times per packet", allocs)
	}
}

func TestPacketQueueReset(t *testing.T) {
	q := newPacketQueue(4)
	q.push([]byte{1}, 1)
	q.front()
	q.reset()

	if q.nextFrames() != 0 {
		t.Fatal("expected empty queue after reset")
	}
}
