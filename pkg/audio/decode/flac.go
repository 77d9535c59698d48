// ABOUTME: FLAC file source
// ABOUTME: Decodes FLAC frames with mewkiz/flac into 16, 24 or 32-bit PCM
package decode

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// FLAC reads a FLAC file. Samples are widened to the nearest output width.
type FLAC struct {
	file   *os.File
	stream *flac.Stream
	spec   audio.Spec
	shift  int
	total  uint64
	meta   Metadata

	pending pending
	skip    int // frames to drop after a seek landed before the target
}

// flacFormat picks the output format for a FLAC bit depth
func flacFormat(bits int) (audio.SampleFormat, int, error) {
	switch {
	case bits < 4 || bits > 32:
		return audio.FormatUnknown, 0, fmt.Errorf("unsupported FLAC bit depth: %d", bits)
	case bits <= 16:
		return audio.FormatS16LE, 16 - bits, nil
	case bits <= 24:
		return audio.FormatS24LE, 24 - bits, nil
	default:
		return audio.FormatS32LE, 32 - bits, nil
	}
}

// NewFLAC opens a FLAC file
func NewFLAC(path string) (*FLAC, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.NewSeek(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	format, shift, err := flacFormat(int(info.BitsPerSample))
	if err != nil {
		f.Close()
		return nil, err
	}

	return &FLAC{
		file:   f,
		stream: stream,
		spec:   audio.Spec{Format: format, Rate: int(info.SampleRate), Channels: int(info.NChannels)},
		shift:  shift,
		total:  info.NSamples,
		meta:   fileMetadata(path),
	}, nil
}

func (s *FLAC) Read(p []byte) (int, error) {
	bpf := s.spec.BytesPerFrame()
	limit := len(p) - len(p)%bpf
	if limit == 0 {
		return 0, io.ErrShortBuffer
	}

	out := 0
	for out < limit {
		if n := s.pending.drain(p[out:limit]); n > 0 {
			out += n
			continue
		}

		f, err := s.stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if out > 0 {
					return out, nil
				}
				return 0, io.EOF
			}
			return out, fmt.Errorf("flac decode: %w", err)
		}
		s.encode(f)
	}
	return out, nil
}

// encode interleaves a decoded frame into the pending buffer
func (s *FLAC) encode(f *frame.Frame) {
	bps := s.spec.Format.BytesPerSample()
	blockSize := int(f.BlockSize)
	start := min(s.skip, blockSize)
	s.skip -= start

	buf := make([]byte, 0, (blockSize-start)*s.spec.Channels*bps)
	for i := start; i < blockSize; i++ {
		for ch := 0; ch < s.spec.Channels; ch++ {
			v := f.Subframes[ch].Samples[i] << s.shift
			switch bps {
			case 2:
				buf = append(buf, byte(v), byte(v>>8))
			case 3:
				buf = append(buf, byte(v), byte(v>>8), byte(v>>16))
			default:
				buf = append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
			}
		}
	}
	s.pending.buf = append(s.pending.buf, buf...)
}

func (s *FLAC) Spec() audio.Spec   { return s.spec }
func (s *FLAC) Metadata() Metadata { return s.meta }

// Duration returns the stream length from STREAMINFO
func (s *FLAC) Duration() int {
	return int(audio.Rescale(int64(s.total), 1000, int64(s.spec.Rate)))
}

// Seek jumps to the frame containing ms and drops samples before it
func (s *FLAC) Seek(ms int) error {
	target := uint64(audio.Rescale(int64(max(ms, 0)), int64(s.spec.Rate), 1000))
	if s.total > 0 && target >= s.total {
		target = s.total - 1
	}

	got, err := s.stream.Seek(target)
	if err != nil {
		return fmt.Errorf("flac seek to %d ms: %w", ms, err)
	}
	s.pending.reset()
	s.skip = 0
	if got < target {
		s.skip = int(target - got)
	}
	return nil
}

func (s *FLAC) Close() error {
	return s.file.Close()
}
