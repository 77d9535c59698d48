// ABOUTME: MP3 file source
// ABOUTME: Decodes MP3 to 16-bit stereo PCM with go-mp3
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
	"github.com/hajimehoshi/go-mp3"
)

// MP3 reads an MP3 file. go-mp3 always produces S16LE stereo.
type MP3 struct {
	file    *os.File
	decoder *mp3.Decoder
	spec    audio.Spec
	meta    Metadata
}

// NewMP3 opens an MP3 file
func NewMP3(path string) (*MP3, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &MP3{
		file:    f,
		decoder: decoder,
		spec:    audio.Spec{Format: audio.FormatS16LE, Rate: decoder.SampleRate(), Channels: 2},
		meta:    fileMetadata(path),
	}, nil
}

func (s *MP3) Read(p []byte) (int, error) {
	return readFrames(s.decoder, p, s.spec.BytesPerFrame())
}

func (s *MP3) Spec() audio.Spec   { return s.spec }
func (s *MP3) Metadata() Metadata { return s.meta }

// Duration returns the decoded length in milliseconds
func (s *MP3) Duration() int {
	length := s.decoder.Length()
	if length <= 0 {
		return 0
	}
	frames := length / int64(s.spec.BytesPerFrame())
	return int(audio.Rescale(frames, 1000, int64(s.spec.Rate)))
}

// Seek jumps to ms
func (s *MP3) Seek(ms int) error {
	frames := audio.Rescale(int64(max(ms, 0)), int64(s.spec.Rate), 1000)
	offset := frames * int64(s.spec.BytesPerFrame())
	if length := s.decoder.Length(); length > 0 && offset > length {
		offset = length
	}
	if _, err := s.decoder.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("mp3 seek to %d ms: %w", ms, err)
	}
	return nil
}

func (s *MP3) Close() error {
	return s.file.Close()
}
