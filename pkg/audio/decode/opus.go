// ABOUTME: Ogg Opus file source
// ABOUTME: Decodes with libopusfile through hraban/opus at 48 kHz
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// OpusRate is the decode rate of every Opus stream
const OpusRate = 48000

// Opus reads an Ogg Opus file
type Opus struct {
	file   *os.File
	stream *opus.Stream
	spec   audio.Spec
	meta   Metadata
	pcm    []int16
}

// readOpusHead returns the channel count from the identification header
// in the first Ogg page
func readOpusHead(r io.Reader) (int, error) {
	var hdr [27]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, fmt.Errorf("reading ogg page: %w", err)
	}
	if !bytes.Equal(hdr[:4], []byte("OggS")) {
		return 0, errors.New("not an ogg stream")
	}

	segments := make([]byte, hdr[26])
	if _, err := io.ReadFull(r, segments); err != nil {
		return 0, fmt.Errorf("reading ogg segment table: %w", err)
	}
	size := 0
	for _, lacing := range segments {
		size += int(lacing)
		if lacing < 255 {
			break
		}
	}

	packet := make([]byte, size)
	if _, err := io.ReadFull(r, packet); err != nil {
		return 0, fmt.Errorf("reading opus header: %w", err)
	}
	if len(packet) < 19 || !bytes.Equal(packet[:8], []byte("OpusHead")) {
		return 0, errors.New("not an opus stream")
	}

	channels := int(packet[9])
	if channels == 0 {
		return 0, errors.New("opus header has no channels")
	}
	return channels, nil
}

// NewOpus opens an Ogg Opus file
func NewOpus(path string) (*Opus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Opus file: %w", err)
	}

	channels, err := readOpusHead(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode Opus: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}

	stream, err := opus.NewStream(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create opus stream: %w", err)
	}

	return &Opus{
		file:   f,
		stream: stream,
		spec:   audio.Spec{Format: audio.FormatS16LE, Rate: OpusRate, Channels: channels},
		meta:   fileMetadata(path),
	}, nil
}

func (s *Opus) Read(p []byte) (int, error) {
	bpf := s.spec.BytesPerFrame()
	frames := len(p) / bpf
	if frames == 0 {
		return 0, io.ErrShortBuffer
	}

	samples := frames * s.spec.Channels
	if cap(s.pcm) < samples {
		s.pcm = make([]int16, samples)
	}

	n, err := s.stream.Read(s.pcm[:samples])
	if err != nil {
		return 0, err
	}

	// n is per channel
	for i := 0; i < n*s.spec.Channels; i++ {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(s.pcm[i]))
	}
	return n * bpf, nil
}

func (s *Opus) Spec() audio.Spec   { return s.spec }
func (s *Opus) Metadata() Metadata { return s.meta }

// Duration is unknown without a full scan
func (s *Opus) Duration() int { return 0 }

func (s *Opus) Close() error {
	err := s.stream.Close()
	s.file.Close()
	return err
}
