// ABOUTME: WAV encoder writing RIFF headers around PCM data
// ABOUTME: Patches chunk sizes on Close when the destination can seek
package encode

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

const (
	wavHeaderSize  = 44
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

// WAVWriter writes a canonical 44-byte-header WAV file
type WAVWriter struct {
	w       io.Writer
	spec    audio.Spec
	swap    bool // S16BE input is stored little-endian
	written int64
	scratch []byte
	closed  bool
}

// NewWAV writes the header for spec and returns the writer. Sizes in the
// header are provisional until Close.
func NewWAV(w io.Writer, spec audio.Spec) (*WAVWriter, error) {
	if _, _, err := wavEncoding(spec.Format); err != nil {
		return nil, err
	}
	if spec.Rate <= 0 || spec.Channels <= 0 {
		return nil, fmt.Errorf("invalid WAV spec %s", spec)
	}

	e := &WAVWriter{
		w:    w,
		spec: spec,
		swap: spec.Format == audio.FormatS16BE,
	}
	if err := e.writeHeader(math.MaxUint32 - wavHeaderSize + 8); err != nil {
		return nil, err
	}
	return e, nil
}

func wavEncoding(f audio.SampleFormat) (tag uint16, bits int, err error) {
	switch f {
	case audio.FormatS16LE, audio.FormatS16BE:
		return wavFormatPCM, 16, nil
	case audio.FormatS24LE:
		return wavFormatPCM, 24, nil
	case audio.FormatS32LE:
		return wavFormatPCM, 32, nil
	case audio.FormatF32LE:
		return wavFormatFloat, 32, nil
	default:
		return 0, 0, fmt.Errorf("unsupported WAV sample format %s", f)
	}
}

func (e *WAVWriter) writeHeader(dataSize uint32) error {
	tag, bits, _ := wavEncoding(e.spec.Format)
	bpf := e.spec.BytesPerFrame()

	h := make([]byte, wavHeaderSize)
	copy(h[0:], "RIFF")
	binary.LittleEndian.PutUint32(h[4:], dataSize+wavHeaderSize-8)
	copy(h[8:], "WAVE")
	copy(h[12:], "fmt ")
	binary.LittleEndian.PutUint32(h[16:], 16)
	binary.LittleEndian.PutUint16(h[20:], tag)
	binary.LittleEndian.PutUint16(h[22:], uint16(e.spec.Channels))
	binary.LittleEndian.PutUint32(h[24:], uint32(e.spec.Rate))
	binary.LittleEndian.PutUint32(h[28:], uint32(e.spec.Rate*bpf))
	binary.LittleEndian.PutUint16(h[32:], uint16(bpf))
	binary.LittleEndian.PutUint16(h[34:], uint16(bits))
	copy(h[36:], "data")
	binary.LittleEndian.PutUint32(h[40:], dataSize)

	if _, err := e.w.Write(h); err != nil {
		return fmt.Errorf("write WAV header: %w", err)
	}
	return nil
}

// Write appends PCM in the writer's spec
func (e *WAVWriter) Write(p []byte) (int, error) {
	if e.closed {
		return 0, fmt.Errorf("WAV writer closed")
	}

	data := p
	if e.swap {
		if cap(e.scratch) < len(p) {
			e.scratch = make([]byte, len(p))
		}
		data = e.scratch[:len(p)]
		for i := 0; i+1 < len(p); i += 2 {
			data[i], data[i+1] = p[i+1], p[i]
		}
	}

	n, err := e.w.Write(data)
	e.written += int64(n)
	return n, err
}

// Written returns the number of PCM bytes written
func (e *WAVWriter) Written() int64 {
	return e.written
}

// Close finalizes the header. Streams that cannot seek keep the
// provisional sizes, which readers treat as "until end of file".
func (e *WAVWriter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true

	seeker, ok := e.w.(io.WriteSeeker)
	if !ok {
		return nil
	}
	if e.written > math.MaxUint32-wavHeaderSize {
		return fmt.Errorf("WAV data too large: %d bytes", e.written)
	}

	if _, err := seeker.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind WAV header: %w", err)
	}
	if err := e.writeHeader(uint32(e.written)); err != nil {
		return err
	}
	if _, err := seeker.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek WAV end: %w", err)
	}
	return nil
}
