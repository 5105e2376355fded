package audio

import (
	"errors"
	"fmt"
	"sync"
)

// maxQueuedPackets bounds the packets held between device callbacks and
// the polling goroutine.
const maxQueuedPackets = 64

var errNoPacket = errors.New("no loopback packet pending")

type packetSlot struct {
	data   []byte
	frames int
}

// packetQueue hands callback-delivered packets to the polling goroutine.
// Slots and their byte storage are reused, so push does not allocate once
// every slot has seen a packet of the current size.
//
// When full, the oldest packet is dropped unless the poller holds it, in
// which case the incoming packet is dropped instead.
type packetQueue struct {
	mu      sync.Mutex
	slots   [maxQueuedPackets]packetSlot
	head    int
	queued  int
	held    bool
	dropped int
}

// newPacketQueue preallocates slotBytes of storage in every slot
func newPacketQueue(slotBytes int) *packetQueue {
	q := &packetQueue{}
	if slotBytes > 0 {
		for i := range q.slots {
			q.slots[i].data = make([]byte, 0, slotBytes)
		}
	}
	return q
}

// push copies data into the next free slot
func (q *packetQueue) push(data []byte, frames int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queued == maxQueuedPackets {
		q.dropped++
		if q.held {
			return
		}
		q.head = (q.head + 1) % maxQueuedPackets
		q.queued--
	}

	slot := &q.slots[(q.head+q.queued)%maxQueuedPackets]
	if cap(slot.data) < len(data) {
		slot.data = make([]byte, len(data))
	}
	slot.data = slot.data[:len(data)]
	copy(slot.data, data)
	slot.frames = frames
	q.queued++
}

// nextFrames returns the frame count of the oldest packet, 0 if none
func (q *packetQueue) nextFrames() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queued == 0 {
		return 0
	}
	return q.slots[q.head].frames
}

// front lends out the oldest packet. Its Data is valid until release.
func (q *packetQueue) front() (Packet, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queued == 0 {
		return Packet{}, errNoPacket
	}
	q.held = true
	slot := q.slots[q.head]
	return Packet{Data: slot.data, Frames: slot.frames}, nil
}

// release returns the oldest packet's slot for reuse
func (q *packetQueue) release(frames int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queued == 0 {
		return errNoPacket
	}
	if q.slots[q.head].frames != frames {
		return fmt.Errorf("release of %d frames does not match pending packet of %d", frames, q.slots[q.head].frames)
	}
	q.head = (q.head + 1) % maxQueuedPackets
	q.queued--
	q.held = false
	return nil
}

// takeDropped returns and clears the count of dropped packets
func (q *packetQueue) takeDropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.dropped
	q.dropped = 0
	return n
}

func (q *packetQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.head, q.queued, q.held, q.dropped = 0, 0, false, 0
}
