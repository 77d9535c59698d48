//go:build linux

// ABOUTME: OSS output device writing to /dev/dsp with blocking writes
// ABOUTME: Configures the DSP with ioctls and exposes the play volume mixer
package output

import (
	"errors"
	"fmt"
	"log"
	"math/bits"
	"unsafe"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/Resonate-Protocol/streamsink/pkg/audio/volume"
	"golang.org/x/sys/unix"
)

// soundcard.h request codes
const (
	sndctlDspReset       = 0x00005000
	sndctlDspSpeed       = 0xC0045002
	sndctlDspSetFmt      = 0xC0045005
	sndctlDspChannels    = 0xC0045006
	sndctlDspSetFragment = 0xC004500A
	sndctlDspGetOSpace   = 0x8010500C
	sndctlDspGetPlayVol  = 0x80045018
	sndctlDspSetPlayVol  = 0xC0045018

	afmtS16LE = 0x00000010
	afmtS16BE = 0x00000020
	afmtS32LE = 0x00001000
	afmtFloat = 0x00004000
	afmtS24LE = 0x00008000
)

// DefaultOSSDevice is the DSP opened when no path is configured
const DefaultOSSDevice = "/dev/dsp"

type audioBufInfo struct {
	fragments  int32
	fragstotal int32
	fragsize   int32
	bytes      int32
}

type ossWriter struct {
	path     string
	bufferMs int

	fd   int
	spec audio.Spec
}

// NewOSS creates an OSS device for path with a driver buffer of bufferMs
func NewOSS(path string, bufferMs int) *PushDevice {
	if path == "" {
		path = DefaultOSSDevice
	}
	if bufferMs <= 0 {
		bufferMs = 100
	}
	return NewPushDevice("oss", &ossWriter{path: path, bufferMs: bufferMs, fd: -1})
}

func ioctlInt(fd int, req uint, val *int32) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(val)))
	if errno != 0 {
		return errno
	}
	return nil
}

func ossFormat(f audio.SampleFormat) (int32, error) {
	switch f {
	case audio.FormatS16LE:
		return afmtS16LE, nil
	case audio.FormatS16BE:
		return afmtS16BE, nil
	case audio.FormatS24LE:
		return afmtS24LE, nil
	case audio.FormatS32LE:
		return afmtS32LE, nil
	case audio.FormatF32LE:
		return afmtFloat, nil
	default:
		return 0, fmt.Errorf("%w: %s on oss", ErrUnsupportedFormat, f)
	}
}

// fragmentRequest encodes SNDCTL_DSP_SETFRAGMENT for a buffer of n bytes
func fragmentRequest(n int) int32 {
	order := 0
	if q := n / 4; q > 0 {
		order = bits.Len(uint(q)) - 1
	}
	order = min(max(order, 9), 15)

	count := (n + (1<<order)/2) >> order
	count = min(max(count, 4), 0x7fff)

	return int32(count<<16 | order)
}

// rateAcceptable reports whether the driver rate is within 10% of requested
func rateAcceptable(requested, actual int) bool {
	diff := requested - actual
	if diff < 0 {
		diff = -diff
	}
	return diff*10 <= requested
}

func (w *ossWriter) Open(spec audio.Spec) (int, error) {
	format, err := ossFormat(spec.Format)
	if err != nil {
		return 0, err
	}

	fd, err := unix.Open(w.path, unix.O_WRONLY, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", w.path, err)
	}

	period, err := w.configure(fd, spec, format)
	if err != nil {
		unix.Close(fd)
		return 0, err
	}

	w.fd = fd
	w.spec = spec
	log.Printf("OSS device %s opened: %s, %d byte fragments", w.path, spec, period)
	return period, nil
}

func (w *ossWriter) configure(fd int, spec audio.Spec, format int32) (int, error) {
	frag := fragmentRequest(spec.MillisToBytes(w.bufferMs))
	if err := ioctlInt(fd, sndctlDspSetFragment, &frag); err != nil {
		log.Printf("Warning: SNDCTL_DSP_SETFRAGMENT failed on %s: %v", w.path, err)
	}

	got := format
	if err := ioctlInt(fd, sndctlDspSetFmt, &got); err != nil {
		return 0, fmt.Errorf("SNDCTL_DSP_SETFMT: %w", err)
	}
	if got != format {
		return 0, fmt.Errorf("%w: %s rejected by %s", ErrUnsupportedFormat, spec.Format, w.path)
	}

	channels := int32(spec.Channels)
	if err := ioctlInt(fd, sndctlDspChannels, &channels); err != nil {
		return 0, fmt.Errorf("SNDCTL_DSP_CHANNELS: %w", err)
	}
	if int(channels) != spec.Channels {
		return 0, fmt.Errorf("%w: %d channels rejected by %s", ErrUnsupportedFormat, spec.Channels, w.path)
	}

	rate := int32(spec.Rate)
	if err := ioctlInt(fd, sndctlDspSpeed, &rate); err != nil {
		return 0, fmt.Errorf("SNDCTL_DSP_SPEED: %w", err)
	}
	if !rateAcceptable(spec.Rate, int(rate)) {
		return 0, fmt.Errorf("%w: rate %d Hz rejected by %s (got %d)", ErrUnsupportedFormat, spec.Rate, w.path, rate)
	}

	var info audioBufInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(sndctlDspGetOSpace), uintptr(unsafe.Pointer(&info)))
	if errno != 0 || info.fragsize <= 0 {
		return spec.MillisToBytes(10), nil
	}
	return int(info.fragsize), nil
}

func (w *ossWriter) WriteBlock(p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(w.fd, p)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			return err
		}
		p = p[n:]
	}
	return nil
}

func (w *ossWriter) Reset() error {
	return ioctlInt(w.fd, sndctlDspReset, new(int32))
}

func (w *ossWriter) Close() error {
	if w.fd < 0 {
		return nil
	}
	err := unix.Close(w.fd)
	w.fd = -1
	return err
}

// SetVolume writes the DSP play volume, left in the low byte
func (w *ossWriter) SetVolume(v volume.Stereo) error {
	v = v.Clamp()
	level := int32(v.Left | v.Right<<8)
	if err := ioctlInt(w.fd, sndctlDspSetPlayVol, &level); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return ErrNoHardwareVolume
		}
		return err
	}
	return nil
}

// Volume reads the DSP play volume
func (w *ossWriter) Volume() (volume.Stereo, error) {
	var level int32
	if err := ioctlInt(w.fd, sndctlDspGetPlayVol, &level); err != nil {
		if errors.Is(err, unix.EINVAL) {
			return volume.Stereo{}, ErrNoHardwareVolume
		}
		return volume.Stereo{}, err
	}
	return volume.Stereo{Left: int(level & 0xff), Right: int(level >> 8 & 0xff)}, nil
}
