// ABOUTME: Fixed-capacity circular byte buffer
// ABOUTME: FIFO storage between the audio producer and the device consumer
package ringbuf

import (
	"errors"
	"fmt"
)

// MaxCapacity bounds a single allocation (64 MiB is over 90s of 192kHz 32-bit stereo)
const MaxCapacity = 64 << 20

// ErrAllocated is returned by Alloc on a buffer that already holds storage
var ErrAllocated = errors.New("ring buffer already allocated")

// RingBuffer is a byte FIFO of fixed capacity.
//
// It does no locking of its own; the owner serializes access.
type RingBuffer struct {
	data   []byte
	start  int
	length int
}

// New allocates a ring buffer with the given capacity in bytes
func New(capacity int) (*RingBuffer, error) {
	rb := &RingBuffer{}
	if err := rb.Alloc(capacity); err != nil {
		return nil, err
	}
	return rb, nil
}

// Alloc allocates storage and resets the buffer to empty
func (rb *RingBuffer) Alloc(capacity int) error {
	if rb.data != nil {
		return ErrAllocated
	}
	if capacity <= 0 || capacity > MaxCapacity {
		return fmt.Errorf("invalid ring buffer capacity %d (max %d)", capacity, MaxCapacity)
	}

	rb.data = make([]byte, capacity)
	rb.start = 0
	rb.length = 0
	return nil
}

// Cap returns the capacity in bytes
func (rb *RingBuffer) Cap() int { return len(rb.data) }

// Len returns the number of bytes currently held
func (rb *RingBuffer) Len() int { return rb.length }

// Space returns the number of bytes that can be appended
func (rb *RingBuffer) Space() int { return len(rb.data) - rb.length }

// CopyIn appends p. Panics if len(p) exceeds Space().
func (rb *RingBuffer) CopyIn(p []byte) {
	if len(p) > rb.Space() {
		panic(fmt.Sprintf("ringbuf: copy in %d bytes with %d free", len(p), rb.Space()))
	}
	if len(p) == 0 {
		return
	}

	end := (rb.start + rb.length) % len(rb.data)
	n := copy(rb.data[end:], p)
	copy(rb.data, p[n:])

	rb.length += len(p)
}

// MoveOut fills dst with the oldest bytes and removes them. Panics if
// len(dst) exceeds Len().
func (rb *RingBuffer) MoveOut(dst []byte) {
	if len(dst) > rb.length {
		panic(fmt.Sprintf("ringbuf: move out %d bytes with %d held", len(dst), rb.length))
	}
	if len(dst) == 0 {
		return
	}

	n := copy(dst, rb.data[rb.start:min(rb.start+len(dst), len(rb.data))])
	copy(dst[n:], rb.data)

	rb.start = (rb.start + len(dst)) % len(rb.data)
	rb.length -= len(dst)
}

// Discard drops all held bytes, keeping the storage
func (rb *RingBuffer) Discard() {
	rb.start = 0
	rb.length = 0
}

// Destroy releases the storage. The buffer may be allocated again.
func (rb *RingBuffer) Destroy() {
	rb.data = nil
	rb.start = 0
	rb.length = 0
}
