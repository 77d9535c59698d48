// ABOUTME: Buffered stream sink between a decoder and an audio device
// ABOUTME: Owns the ring buffer, playback clock, volume and device state
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/ringbuf"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/timing"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/volume"
)

// State is the lifecycle state of a Sink
type State int

const (
	StateClosed State = iota
	StateOpen
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StatePaused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// VolumePolicy selects where volume scaling happens
type VolumePolicy int

const (
	// VolumeAuto uses device volume when the device supports it
	VolumeAuto VolumePolicy = iota
	// VolumeSoftware always scales samples in the fill callback
	VolumeSoftware
)

const (
	minRate     = 1000
	maxRate     = 768000
	maxChannels = 8
)

// Config holds sink configuration
type Config struct {
	BufferMs     int          // ring buffer length, default 500
	VolumePolicy VolumePolicy // default VolumeAuto
	Debug        bool         // log every state transition

	// OnVolumeChange is called after SetVolume, outside the sink lock
	OnVolumeChange func(volume.Stereo)

	// Now is the clock time source, time.Now when nil
	Now func() time.Time
}

// Sink buffers PCM between one producer and one device
type Sink struct {
	config Config
	device Device

	// ctrlMu serializes calls into the device. It is never acquired while
	// holding mu.
	ctrlMu sync.Mutex

	mu        sync.Mutex
	cond      *sync.Cond
	state     State
	spec      audio.Spec
	buffer    *ringbuf.RingBuffer
	clock     *timing.Clock
	vol       volume.Stereo
	hwVolume  VolumeController
	prebuffer bool
	running   bool
	epoch     uint64
	streamID  string
}

// NewSink creates a closed sink around device
func NewSink(device Device, config Config) *Sink {
	if config.BufferMs <= 0 {
		config.BufferMs = 500
	}

	s := &Sink{
		config: config,
		device: device,
		vol:    volume.Full,
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func validateSpec(spec audio.Spec) error {
	if !spec.Format.Valid() {
		return fmt.Errorf("%w: sample format %s", ErrUnsupportedFormat, spec.Format)
	}
	if spec.Rate < minRate || spec.Rate > maxRate {
		return fmt.Errorf("%w: rate %d Hz", ErrUnsupportedFormat, spec.Rate)
	}
	if spec.Channels < 1 || spec.Channels > maxChannels {
		return fmt.Errorf("%w: %d channels", ErrUnsupportedFormat, spec.Channels)
	}
	return nil
}

// Open allocates the buffer and opens the device. On failure the sink stays
// closed.
func (s *Sink) Open(format audio.SampleFormat, rate, channels int) error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	s.mu.Lock()
	open := s.state != StateClosed
	vol := s.vol
	s.mu.Unlock()
	if open {
		return &Error{Kind: KindConfiguration, Op: "open", Err: ErrAlreadyOpen}
	}

	spec := audio.Spec{Format: format, Rate: rate, Channels: channels}
	if err := validateSpec(spec); err != nil {
		return &Error{Kind: KindConfiguration, Op: "open", Err: err}
	}

	buffer, err := ringbuf.New(spec.MillisToBytes(s.config.BufferMs))
	if err != nil {
		return &Error{Kind: KindResource, Op: "open", Err: err}
	}

	clock := timing.New(spec, s.config.Now)
	clock.Reset(0)

	s.mu.Lock()
	s.spec = spec
	s.buffer = buffer
	s.clock = clock
	s.hwVolume = nil
	s.prebuffer = true
	s.running = false
	s.streamID = uuid.New().String()
	s.mu.Unlock()

	if err := s.device.Open(spec, s.fill); err != nil {
		s.mu.Lock()
		s.buffer = nil
		s.clock = nil
		s.mu.Unlock()
		buffer.Destroy()
		return deviceError("open", err)
	}

	var hw VolumeController
	if vc, ok := s.device.(VolumeController); ok && s.config.VolumePolicy == VolumeAuto {
		if err := vc.SetVolume(vol); err != nil {
			if s.config.Debug {
				log.Printf("%s: hardware volume unavailable (%v), using software volume", s.device.Name(), err)
			}
		} else {
			hw = vc
		}
	}

	s.mu.Lock()
	s.hwVolume = hw
	s.state = StateOpen
	id := s.streamID
	s.mu.Unlock()

	mode := "software"
	if hw != nil {
		mode = "hardware"
	}
	log.Printf("Opened %s output [%s]: %s, %d bytes buffer, %s volume",
		s.device.Name(), id, spec, buffer.Cap(), mode)
	return nil
}

// Write appends whole frames to the buffer. Data that does not fit is
// rejected with ErrOverflow and nothing is written.
func (s *Sink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrNotOpen
	}
	if len(p)%s.spec.BytesPerFrame() != 0 || len(p) > s.buffer.Space() {
		log.Printf("Warning: dropping write of %d bytes [%s]: %d bytes free", len(p), s.streamID, s.buffer.Space())
		return ErrOverflow
	}

	s.buffer.CopyIn(p)
	s.clock.Written(len(p))
	return nil
}

// BufferFree returns the bytes Write will accept, 0 while paused or closed
func (s *Sink) BufferFree() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return 0
	}
	return s.buffer.Space()
}

// PeriodWait blocks until the device consumed some audio. A full buffer
// ends the prebuffer and starts the device. Flush and Close release it.
func (s *Sink) PeriodWait() {
	s.mu.Lock()
	epoch := s.epoch
	for s.state != StateClosed && s.epoch == epoch &&
		(s.state == StatePaused || s.buffer.Space() == 0) {
		if s.state == StateOpen && s.prebuffer {
			s.releasePrebuffer()
			s.mu.Unlock()
			s.syncDevice()
			s.mu.Lock()
			continue
		}
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// Drain starts the device if needed and blocks until the buffer is empty
func (s *Sink) Drain() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	epoch := s.epoch
	if s.prebuffer {
		s.releasePrebuffer()
		s.mu.Unlock()
		s.syncDevice()
		s.mu.Lock()
	}
	for s.state != StateClosed && s.epoch == epoch && s.buffer.Len() > 0 {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// releasePrebuffer must be called with mu held
func (s *Sink) releasePrebuffer() {
	s.prebuffer = false
	s.clock.ClearBlock()
	if s.config.Debug {
		log.Printf("Prebuffer released [%s] with %d bytes", s.streamID, s.buffer.Len())
	}
}

// Pause corks or resumes the device
func (s *Sink) Pause(pause bool) {
	s.mu.Lock()
	switch {
	case pause && s.state == StateOpen:
		s.clock.Freeze(s.buffer.Len(), s.running)
		s.state = StatePaused
	case !pause && s.state == StatePaused:
		s.state = StateOpen
	default:
		s.mu.Unlock()
		return
	}
	s.cond.Broadcast()
	if s.config.Debug {
		log.Printf("Output %s [%s]", s.state, s.streamID)
	}
	s.mu.Unlock()

	s.syncDevice()
}

// Flush discards buffered audio and restarts the clock at ms. The device is
// corked until the buffer fills again.
func (s *Sink) Flush(ms int) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.buffer.Discard()
	s.clock.Reset(ms)
	s.prebuffer = true
	s.epoch++
	s.cond.Broadcast()
	if s.config.Debug {
		log.Printf("Flushed output [%s] to %d ms", s.streamID, ms)
	}
	s.mu.Unlock()

	s.syncDevice()

	if f, ok := s.device.(Flusher); ok {
		s.ctrlMu.Lock()
		err := f.Flush()
		s.ctrlMu.Unlock()
		if err != nil {
			log.Printf("Warning: %s flush failed: %v", s.device.Name(), err)
		}
	}
}

// OutputTime returns the playback position in milliseconds
func (s *Sink) OutputTime() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.clock == nil {
		return 0
	}
	if s.state == StateClosed {
		return s.clock.Elapsed(0, false)
	}
	if s.state == StatePaused {
		return s.clock.Frozen()
	}
	return s.clock.Elapsed(s.buffer.Len(), s.running)
}

// Volume returns the current volume, read from the device when it scales
func (s *Sink) Volume() volume.Stereo {
	s.mu.Lock()
	hw := s.hwVolume
	v := s.vol
	s.mu.Unlock()

	if hw != nil {
		s.ctrlMu.Lock()
		hv, err := hw.Volume()
		s.ctrlMu.Unlock()
		if err == nil {
			return hv
		}
	}
	return v
}

// SetVolume sets the stream volume. Values are clamped to 0..100.
func (s *Sink) SetVolume(v volume.Stereo) {
	v = v.Clamp()

	s.mu.Lock()
	s.vol = v
	hw := s.hwVolume
	s.mu.Unlock()

	if hw != nil {
		s.ctrlMu.Lock()
		err := hw.SetVolume(v)
		s.ctrlMu.Unlock()
		if err != nil {
			log.Printf("Warning: %s set volume failed: %v", s.device.Name(), err)
		}
	}

	if s.config.OnVolumeChange != nil {
		s.config.OnVolumeChange(v)
	}
}

// Close stops the device and frees the buffer. Blocked waits return.
func (s *Sink) Close() error {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	s.running = false
	s.epoch++
	s.cond.Broadcast()
	buffer := s.buffer
	id := s.streamID
	s.mu.Unlock()

	err := s.device.Close()

	s.mu.Lock()
	s.buffer = nil
	s.hwVolume = nil
	s.mu.Unlock()
	buffer.Destroy()

	log.Printf("Closed %s output [%s]", s.device.Name(), id)
	if err != nil {
		return deviceError("close", err)
	}
	return nil
}

// syncDevice starts or corks the device so that it pulls exactly when the
// sink is open and not prebuffering
func (s *Sink) syncDevice() {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()

	s.mu.Lock()
	want := s.state == StateOpen && !s.prebuffer
	have := s.running
	s.running = want
	s.mu.Unlock()

	if want == have {
		return
	}

	var err error
	op := "start"
	if want {
		err = s.device.Start()
	} else {
		op = "pause"
		err = s.device.Pause()
	}
	if err != nil {
		log.Printf("Warning: %s %s failed: %v", s.device.Name(), op, err)
		s.mu.Lock()
		if s.state != StateClosed {
			s.running = have
		}
		s.mu.Unlock()
	}
}

// fill is the device pull callback
func (s *Sink) fill(dst []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen || s.prebuffer {
		clear(dst)
		return 0
	}

	n := min(len(dst), s.buffer.Len())
	n -= n % s.spec.BytesPerFrame()
	s.buffer.MoveOut(dst[:n])
	if s.hwVolume == nil {
		volume.Apply(dst[:n], s.spec, s.vol)
	}
	clear(dst[n:])

	s.clock.Block(n)
	s.cond.Broadcast()
	return n
}

// State returns the lifecycle state
func (s *Sink) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Format returns the spec of the open stream
func (s *Sink) Format() audio.Spec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spec
}

// Buffered returns the bytes waiting for the device
func (s *Sink) Buffered() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil || s.state == StateClosed {
		return 0
	}
	return s.buffer.Len()
}

// Capacity returns the ring buffer size in bytes
func (s *Sink) Capacity() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil || s.state == StateClosed {
		return 0
	}
	return s.buffer.Cap()
}

// StreamID identifies the current open
func (s *Sink) StreamID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamID
}

// Device returns the underlying device
func (s *Sink) Device() Device {
	return s.device
}
