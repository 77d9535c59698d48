// ABOUTME: WAV file source
// ABOUTME: Parses RIFF headers and streams the PCM data chunk
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

const (
	wavFormatPCM        = 0x0001
	wavFormatFloat      = 0x0003
	wavFormatExtensible = 0xFFFE

	// fmt chunks past this are not plausible WAVE headers
	maxFmtChunk = 1024
)

// WAV reads an uncompressed RIFF/WAVE file
type WAV struct {
	file *os.File
	data *io.SectionReader
	spec audio.Spec
	meta Metadata
}

// wavHeader holds the parts of the fmt chunk that matter for playback
type wavHeader struct {
	spec       audio.Spec
	dataOffset int64
	dataSize   int64
}

func wavSampleFormat(tag uint16, bits int) (audio.SampleFormat, error) {
	switch {
	case tag == wavFormatPCM && bits == 16:
		return audio.FormatS16LE, nil
	case tag == wavFormatPCM && bits == 24:
		return audio.FormatS24LE, nil
	case tag == wavFormatPCM && bits == 32:
		return audio.FormatS32LE, nil
	case tag == wavFormatFloat && bits == 32:
		return audio.FormatF32LE, nil
	default:
		return audio.FormatUnknown, fmt.Errorf("unsupported WAV encoding: format 0x%04x, %d bits", tag, bits)
	}
}

// parseWAV walks the RIFF chunks until it finds fmt and data
func parseWAV(r io.ReadSeeker) (wavHeader, error) {
	var h wavHeader

	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return h, fmt.Errorf("reading RIFF header: %w", err)
	}
	if string(riff[:4]) != "RIFF" || string(riff[8:]) != "WAVE" {
		return h, errors.New("not a RIFF/WAVE file")
	}

	offset := int64(12)
	haveFmt := false
	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			return h, fmt.Errorf("reading WAV chunk: %w", err)
		}
		id := string(chunk[:4])
		size := int64(binary.LittleEndian.Uint32(chunk[4:]))
		offset += 8

		switch id {
		case "fmt ":
			if size < 16 {
				return h, errors.New("WAV fmt chunk too short")
			}
			if size > maxFmtChunk {
				return h, fmt.Errorf("WAV fmt chunk too large: %d bytes", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return h, fmt.Errorf("reading WAV fmt chunk: %w", err)
			}
			tag := binary.LittleEndian.Uint16(body[0:])
			if tag == wavFormatExtensible && size >= 26 {
				tag = binary.LittleEndian.Uint16(body[24:])
			}
			format, err := wavSampleFormat(tag, int(binary.LittleEndian.Uint16(body[14:])))
			if err != nil {
				return h, err
			}
			h.spec = audio.Spec{
				Format:   format,
				Rate:     int(binary.LittleEndian.Uint32(body[4:])),
				Channels: int(binary.LittleEndian.Uint16(body[2:])),
			}
			if h.spec.Channels < 1 || h.spec.Rate <= 0 {
				return h, fmt.Errorf("invalid WAV stream: %d Hz, %d channels", h.spec.Rate, h.spec.Channels)
			}
			haveFmt = true
		case "data":
			if !haveFmt {
				return h, errors.New("WAV data chunk before fmt chunk")
			}
			h.dataOffset = offset
			h.dataSize = size
			return h, nil
		default:
			if _, err := r.Seek(size, io.SeekCurrent); err != nil {
				return h, err
			}
		}

		// chunks are word aligned
		if size%2 == 1 {
			if _, err := r.Seek(1, io.SeekCurrent); err != nil {
				return h, err
			}
			size++
		}
		offset += size
	}
}

// NewWAV opens a WAV file
func NewWAV(path string) (*WAV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	h, err := parseWAV(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode WAV: %w", err)
	}

	return &WAV{
		file: f,
		data: io.NewSectionReader(f, h.dataOffset, h.dataSize),
		spec: h.spec,
		meta: fileMetadata(path),
	}, nil
}

func (s *WAV) Read(p []byte) (int, error) {
	return readFrames(s.data, p, s.spec.BytesPerFrame())
}

func (s *WAV) Spec() audio.Spec   { return s.spec }
func (s *WAV) Metadata() Metadata { return s.meta }

// Duration returns the data chunk length in milliseconds
func (s *WAV) Duration() int {
	frames := s.data.Size() / int64(s.spec.BytesPerFrame())
	return int(audio.Rescale(frames, 1000, int64(s.spec.Rate)))
}

// Seek jumps to ms
func (s *WAV) Seek(ms int) error {
	frames := audio.Rescale(int64(max(ms, 0)), int64(s.spec.Rate), 1000)
	offset := min(frames*int64(s.spec.BytesPerFrame()), s.data.Size())
	_, err := s.data.Seek(offset, io.SeekStart)
	return err
}

func (s *WAV) Close() error {
	return s.file.Close()
}
