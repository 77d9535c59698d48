// ABOUTME: Playback position estimation for a buffered output stream
// ABOUTME: Converts frames written minus frames buffered into elapsed milliseconds
package timing

import (
	"time"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

// Clock tracks how much audio has reached the device.
//
// Clock is not safe for concurrent use; the sink guards it with its own mutex.
type Clock struct {
	rate          int
	bytesPerFrame int
	now           func() time.Time

	framesWritten int64
	pausedTime    int

	// Latency of the last block handed to the device, and when it was handed over
	blockDelay int
	blockTime  time.Time
}

// New creates a clock for a stream. A nil now uses time.Now.
func New(spec audio.Spec, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{
		rate:          spec.Rate,
		bytesPerFrame: spec.BytesPerFrame(),
		now:           now,
	}
}

// Reset positions the clock at ms and forgets any in-flight block
func (c *Clock) Reset(ms int) {
	c.framesWritten = audio.Rescale(int64(ms), int64(c.rate), 1000)
	c.pausedTime = ms
	c.blockDelay = 0
	c.blockTime = time.Time{}
}

// Written records n bytes appended to the buffer
func (c *Clock) Written(n int) {
	if c.bytesPerFrame == 0 {
		return
	}
	c.framesWritten += int64(n / c.bytesPerFrame)
}

// FramesWritten returns the frame position of the producer
func (c *Clock) FramesWritten() int64 {
	return c.framesWritten
}

// Block records that n bytes were just handed to the device
func (c *Clock) Block(n int) {
	if c.bytesPerFrame == 0 || c.rate == 0 {
		return
	}
	c.blockDelay = n / c.bytesPerFrame * 1000 / c.rate
	c.blockTime = c.now()
}

// ClearBlock drops the in-flight block estimate
func (c *Clock) ClearBlock() {
	c.blockDelay = 0
}

// Freeze snapshots the current position for reporting while paused
func (c *Clock) Freeze(bufferedBytes int, running bool) {
	c.pausedTime = c.Elapsed(bufferedBytes, running)
}

// Frozen returns the snapshot taken by Freeze or Reset
func (c *Clock) Frozen() int {
	return c.pausedTime
}

// Elapsed returns the playback position in milliseconds. running tells
// whether the device is currently pulling; only then is the residual
// latency of the last block subtracted.
func (c *Clock) Elapsed(bufferedBytes int, running bool) int {
	buffered := int64(0)
	if c.bytesPerFrame != 0 {
		buffered = int64(bufferedBytes / c.bytesPerFrame)
	}

	out := int(audio.Rescale(c.framesWritten-buffered, 1000, int64(c.rate)))

	if running && c.blockDelay != 0 {
		elapsed := int(c.now().Sub(c.blockTime) / time.Millisecond)
		if elapsed < c.blockDelay {
			out -= c.blockDelay - elapsed
		}
	}

	return out
}
