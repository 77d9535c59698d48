// ABOUTME: Adapter turning blocking-write audio APIs into pull devices
// ABOUTME: Runs a write loop goroutine that drains the sink through fill
package output

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/volume"
)

// BlockWriter is hardware that accepts audio through blocking writes
type BlockWriter interface {
	// Open configures the hardware and returns the preferred write size in bytes
	Open(spec audio.Spec) (period int, err error)

	// WriteBlock blocks until the hardware accepted p
	WriteBlock(p []byte) error

	Close() error
}

// blockResetter is implemented by writers that can drop their queued audio
type blockResetter interface {
	Reset() error
}

// PushDevice drives a BlockWriter from a goroutine acting as the consumer
type PushDevice struct {
	name   string
	writer BlockWriter

	fill   FillFunc
	period int
	idle   time.Duration

	mu      sync.Mutex
	cond    *sync.Cond
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewPushDevice wraps writer as a Device
func NewPushDevice(name string, writer BlockWriter) *PushDevice {
	d := &PushDevice{
		name:   name,
		writer: writer,
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

// Name returns the adapter name
func (d *PushDevice) Name() string {
	return d.name
}

// Open opens the writer and starts the (idle) write loop
func (d *PushDevice) Open(spec audio.Spec, fill FillFunc) error {
	period, err := d.writer.Open(spec)
	if err != nil {
		return err
	}

	bpf := spec.BytesPerFrame()
	period -= period % bpf
	if period <= 0 {
		period = spec.MillisToBytes(10)
	}

	d.fill = fill
	d.period = period
	d.idle = time.Duration(spec.BytesToFrames(period)) * time.Second / time.Duration(spec.Rate) / 4
	if d.idle < time.Millisecond {
		d.idle = time.Millisecond
	}
	d.running = false
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.done = make(chan struct{})

	go d.loop()
	return nil
}

// Start lets the write loop pull
func (d *PushDevice) Start() error {
	d.mu.Lock()
	d.running = true
	d.cond.Broadcast()
	d.mu.Unlock()
	return nil
}

// Pause parks the write loop after its current block
func (d *PushDevice) Pause() error {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
	return nil
}

// Flush drops audio queued in the hardware
func (d *PushDevice) Flush() error {
	if r, ok := d.writer.(blockResetter); ok {
		return r.Reset()
	}
	return nil
}

// Close stops the write loop and closes the writer
func (d *PushDevice) Close() error {
	if d.cancel == nil {
		return nil
	}

	d.mu.Lock()
	d.cancel()
	d.cond.Broadcast()
	d.mu.Unlock()

	<-d.done
	d.cancel = nil
	return d.writer.Close()
}

// SetVolume forwards to the writer when it has a mixer
func (d *PushDevice) SetVolume(v volume.Stereo) error {
	if vc, ok := d.writer.(VolumeController); ok {
		return vc.SetVolume(v)
	}
	return ErrNoHardwareVolume
}

// Volume reads the writer's mixer
func (d *PushDevice) Volume() (volume.Stereo, error) {
	if vc, ok := d.writer.(VolumeController); ok {
		return vc.Volume()
	}
	return volume.Stereo{}, ErrNoHardwareVolume
}

func (d *PushDevice) loop() {
	defer close(d.done)

	buf := make([]byte, d.period)
	for {
		d.mu.Lock()
		for !d.running && d.ctx.Err() == nil {
			d.cond.Wait()
		}
		d.mu.Unlock()
		if d.ctx.Err() != nil {
			return
		}

		n := d.fill(buf)
		if n == 0 {
			d.sleep(d.idle)
			continue
		}

		if err := d.writer.WriteBlock(buf[:n]); err != nil {
			log.Printf("Warning: %s write failed: %v", d.name, err)
			d.sleep(d.idle)
		}
	}
}

func (d *PushDevice) sleep(dur time.Duration) {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-d.ctx.Done():
	}
}

// nullWriter discards audio at real-time pace
type nullWriter struct {
	spec   audio.Spec
	period int
}

// NewNull creates a headless device that consumes audio at the stream rate
func NewNull() *PushDevice {
	return NewPushDevice("null", &nullWriter{})
}

func (w *nullWriter) Open(spec audio.Spec) (int, error) {
	if spec.BytesPerFrame() == 0 || spec.Rate <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, spec)
	}
	w.spec = spec
	w.period = spec.MillisToBytes(20)
	return w.period, nil
}

func (w *nullWriter) WriteBlock(p []byte) error {
	if w.spec.Rate == 0 {
		return errors.New("null device not open")
	}
	frames := w.spec.BytesToFrames(len(p))
	time.Sleep(time.Duration(frames) * time.Second / time.Duration(w.spec.Rate))
	return nil
}

func (w *nullWriter) Close() error {
	return nil
}
