// ABOUTME: Producer loop feeding a decoded source into an output sink
// ABOUTME: Handles seeking, pausing, end of stream and cooperative cancellation
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/decode"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/output"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/resample"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/volume"
)

// State describes what the player is doing
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
)

// Config holds player configuration
type Config struct {
	// ChunkMs is the amount of audio decoded per read (default: 50)
	ChunkMs int

	// ResampleTo forces the device rate; 0 plays at the source rate.
	// Only 16-bit sources can be resampled.
	ResampleTo int

	// OnStatus is called after state changes
	OnStatus func(Status)
}

// Status is a snapshot of the player
type Status struct {
	State      State
	Metadata   decode.Metadata
	PositionMs int
	DurationMs int
	Buffered   int // bytes
	Capacity   int // bytes
	Volume     volume.Stereo
	Format     audio.Spec
	StreamID   string
	Seekable   bool
}

// Player plays one source through one sink
type Player struct {
	config Config
	sink   *output.Sink
	source decode.Source

	mu      sync.Mutex
	state   State
	seekTo  int // -1 when no seek is pending
	playing bool
}

// New creates a player. The sink must be closed; Play opens it.
func New(sink *output.Sink, source decode.Source, config Config) *Player {
	if config.ChunkMs <= 0 {
		config.ChunkMs = 50
	}
	return &Player{
		config: config,
		sink:   sink,
		source: source,
		state:  StateIdle,
		seekTo: -1,
	}
}

// outputSpec returns the device format for the source
func (p *Player) outputSpec() (audio.Spec, *resample.Resampler, error) {
	spec := p.source.Spec()
	if p.config.ResampleTo <= 0 || p.config.ResampleTo == spec.Rate {
		return spec, nil, nil
	}
	if spec.Format != audio.FormatS16LE {
		return spec, nil, fmt.Errorf("cannot resample %s audio", spec.Format)
	}
	r := resample.New(spec.Rate, p.config.ResampleTo, spec.Channels)
	spec.Rate = p.config.ResampleTo
	log.Printf("Resampling %d Hz -> %d Hz", r.InputRate(), r.OutputRate())
	return spec, r, nil
}

// Play opens the sink and streams the source until it ends or ctx is
// cancelled. Cancellation is not an error.
func (p *Player) Play(ctx context.Context) error {
	spec, resampler, err := p.outputSpec()
	if err != nil {
		return err
	}

	if err := p.sink.Open(spec.Format, spec.Rate, spec.Channels); err != nil {
		return err
	}
	defer p.sink.Close()

	p.mu.Lock()
	p.playing = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
	}()

	// Closing the sink releases PeriodWait and Drain for good, even when the
	// loop has not reached them yet or the sink is paused
	cancelled := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(cancelled)
		p.sink.Close()
	})
	defer func() {
		if !stop() {
			<-cancelled
		}
	}()

	p.setState(StatePlaying)
	md := p.source.Metadata()
	log.Printf("Playing %s [%s]", md.Title, p.sink.StreamID())

	bpf := spec.BytesPerFrame()
	chunk := make([]byte, p.source.Spec().MillisToBytes(p.config.ChunkMs))
	var pending []byte
	eof := false

	for {
		if ctx.Err() != nil {
			p.setState(StateStopped)
			return nil
		}

		if ms, ok := p.takeSeek(); ok {
			if err := p.applySeek(ms); err != nil {
				log.Printf("Warning: seek to %d ms failed: %v", ms, err)
			} else {
				pending = nil
				eof = false
				if resampler != nil {
					resampler.Reset()
				}
			}
			continue
		}

		if len(pending) == 0 {
			if eof {
				p.sink.Drain()
				if ctx.Err() == nil && !p.seekPending() {
					p.setState(StateStopped)
					log.Printf("Finished %s", md.Title)
					return nil
				}
				continue
			}

			n, err := p.source.Read(chunk)
			if n > 0 {
				pending = chunk[:n]
				if resampler != nil {
					pending = resampler.Process(pending)
				}
			}
			if errors.Is(err, io.EOF) {
				eof = true
			} else if err != nil {
				p.setState(StateStopped)
				return fmt.Errorf("decode: %w", err)
			}
			continue
		}

		free := p.sink.BufferFree()
		n := min(free, len(pending))
		n -= n % bpf
		if n == 0 {
			p.sink.PeriodWait()
			continue
		}
		if err := p.sink.Write(pending[:n]); err != nil {
			p.setState(StateStopped)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("write: %w", err)
		}
		pending = pending[n:]
	}
}

func (p *Player) takeSeek() (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seekTo < 0 {
		return 0, false
	}
	ms := p.seekTo
	p.seekTo = -1
	return ms, true
}

func (p *Player) seekPending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seekTo >= 0
}

func (p *Player) applySeek(ms int) error {
	seeker, ok := p.source.(decode.Seeker)
	if !ok {
		return decode.ErrNotSeekable
	}
	if err := seeker.Seek(ms); err != nil {
		return err
	}
	// Drop whatever was written between the request and the source seek
	p.sink.Flush(ms)
	return nil
}

// Seek requests a jump to ms. Buffered audio is dropped immediately; the
// producer repositions the source on its next iteration.
func (p *Player) Seek(ms int) error {
	if _, ok := p.source.(decode.Seeker); !ok {
		return decode.ErrNotSeekable
	}
	ms = max(ms, 0)
	if d := p.source.Duration(); d > 0 {
		ms = min(ms, d)
	}

	// Flush before publishing so it cannot land after the producer's own
	// flush and drop audio read from the new position
	p.sink.Flush(ms)

	p.mu.Lock()
	p.seekTo = ms
	p.mu.Unlock()
	p.notify()
	return nil
}

// SeekRelative moves the position by deltaMs
func (p *Player) SeekRelative(deltaMs int) error {
	return p.Seek(p.position() + deltaMs)
}

func (p *Player) position() int {
	p.mu.Lock()
	seekTo := p.seekTo
	p.mu.Unlock()
	if seekTo >= 0 {
		return seekTo
	}
	return p.sink.OutputTime()
}

// Pause pauses or resumes playback
func (p *Player) Pause(pause bool) {
	p.mu.Lock()
	if !p.playing {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	p.sink.Pause(pause)
	if pause {
		p.setState(StatePaused)
	} else {
		p.setState(StatePlaying)
	}
}

// TogglePause flips between playing and paused
func (p *Player) TogglePause() {
	p.mu.Lock()
	paused := p.state == StatePaused
	p.mu.Unlock()
	p.Pause(!paused)
}

// SetVolume sets the output volume
func (p *Player) SetVolume(v volume.Stereo) {
	p.sink.SetVolume(v)
	p.notify()
}

// AdjustVolume changes both channels by delta
func (p *Player) AdjustVolume(delta int) {
	v := p.sink.Volume()
	p.SetVolume(volume.Stereo{Left: v.Left + delta, Right: v.Right + delta})
}

// Status returns a snapshot of the player
func (p *Player) Status() Status {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	_, seekable := p.source.(decode.Seeker)
	return Status{
		State:      state,
		Metadata:   p.source.Metadata(),
		PositionMs: p.position(),
		DurationMs: p.source.Duration(),
		Buffered:   p.sink.Buffered(),
		Capacity:   p.sink.Capacity(),
		Volume:     p.sink.Volume(),
		Format:     p.sink.Format(),
		StreamID:   p.sink.StreamID(),
		Seekable:   seekable,
	}
}

func (p *Player) setState(state State) {
	p.mu.Lock()
	changed := p.state != state
	p.state = state
	p.mu.Unlock()
	if changed {
		p.notify()
	}
}

func (p *Player) notify() {
	if p.config.OnStatus != nil {
		p.config.OnStatus(p.Status())
	}
}
