// ABOUTME: Oto-based audio output device
// ABOUTME: Feeds an oto player through an io.Reader pulling from the sink
package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/volume"
	"github.com/ebitengine/oto/v3"
)

// oto allows only one context per process
var (
	otoMu   sync.Mutex
	otoCtx  *oto.Context
	otoSpec audio.Spec
)

// Oto plays through ebitengine/oto. The player volume is used as hardware
// volume, with the louder channel applied to both.
type Oto struct {
	bufferMs int

	player *oto.Player
	fill   FillFunc
	vol    volume.Stereo
}

// NewOto creates an oto device with the given driver buffer length
func NewOto(bufferMs int) *Oto {
	if bufferMs <= 0 {
		bufferMs = 100
	}
	return &Oto{
		bufferMs: bufferMs,
		vol:      volume.Full,
	}
}

// Name returns the adapter name
func (o *Oto) Name() string {
	return "oto"
}

// Open creates the player. The process-wide oto context is created on first
// use and cannot change rate or channel count afterwards.
func (o *Oto) Open(spec audio.Spec, fill FillFunc) error {
	var format oto.Format
	switch spec.Format {
	case audio.FormatS16LE:
		format = oto.FormatSignedInt16LE
	case audio.FormatF32LE:
		format = oto.FormatFloat32LE
	default:
		return fmt.Errorf("%w: %s on oto", ErrUnsupportedFormat, spec.Format)
	}

	otoMu.Lock()
	defer otoMu.Unlock()

	if otoCtx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   spec.Rate,
			ChannelCount: spec.Channels,
			Format:       format,
			BufferSize:   time.Duration(o.bufferMs) * time.Millisecond,
		}
		ctx, readyChan, err := oto.NewContext(op)
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-readyChan
		otoCtx = ctx
		otoSpec = spec
	} else if otoSpec != spec {
		return fmt.Errorf("%w: oto context already running at %s", ErrUnsupportedFormat, otoSpec)
	}

	o.fill = fill
	o.player = otoCtx.NewPlayer(o)
	return nil
}

// Read implements io.Reader for the oto player
func (o *Oto) Read(p []byte) (int, error) {
	o.fill(p)
	return len(p), nil
}

// Seek lets the player drop its internal buffer; the stream has no position
func (o *Oto) Seek(offset int64, whence int) (int64, error) {
	return 0, nil
}

// Flush drops audio the player already read ahead
func (o *Oto) Flush() error {
	if o.player == nil {
		return nil
	}
	_, err := o.player.Seek(0, io.SeekCurrent)
	return err
}

// Start plays or resumes the player
func (o *Oto) Start() error {
	if o.player == nil {
		return ErrNotOpen
	}
	o.player.Play()
	return nil
}

// Pause pauses the player
func (o *Oto) Pause() error {
	if o.player == nil {
		return ErrNotOpen
	}
	o.player.Pause()
	return nil
}

// Close releases the player. The context stays alive for later opens.
func (o *Oto) Close() error {
	if o.player == nil {
		return nil
	}
	err := o.player.Close()
	o.player = nil
	return err
}

// SetVolume sets the player volume
func (o *Oto) SetVolume(v volume.Stereo) error {
	if o.player == nil {
		return ErrNotOpen
	}
	o.vol = v.Clamp()
	o.player.SetVolume(volume.GainFactor(o.vol.Max()))
	return nil
}

// Volume returns the last volume set
func (o *Oto) Volume() (volume.Stereo, error) {
	if o.player == nil {
		return volume.Stereo{}, ErrNotOpen
	}
	return o.vol, nil
}
