// ABOUTME: Source interface and the file opener
// ABOUTME: Chooses a decoder from the file extension
package decode

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

// ErrNotSeekable is returned by Seek on sources that cannot reposition
var ErrNotSeekable = errors.New("source is not seekable")

// Metadata describes what a source is playing
type Metadata struct {
	Title  string
	Artist string
	Album  string
}

// Source produces interleaved PCM. Read returns whole frames and io.EOF at
// the end of the stream.
type Source interface {
	io.Reader

	// Spec returns the format of the bytes produced by Read
	Spec() audio.Spec

	// Duration returns the stream length in milliseconds, 0 when unknown
	Duration() int

	Metadata() Metadata

	Close() error
}

// Seeker is implemented by sources that can jump to a position
type Seeker interface {
	Seek(ms int) error
}

// Open creates a source for path. An empty path or a tone:// URL plays a
// test tone.
func Open(path string) (Source, error) {
	if path == "" {
		return NewTone(nil), nil
	}
	if strings.HasPrefix(path, toneScheme) {
		freqs, err := ParseToneURL(path)
		if err != nil {
			return nil, err
		}
		return NewTone(freqs), nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("audio file not found: %s", path)
		}
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	var (
		src Source
		err error
	)
	switch ext {
	case ".mp3":
		src, err = NewMP3(path)
	case ".flac":
		src, err = NewFLAC(path)
	case ".opus", ".ogg":
		src, err = NewOpus(path)
	case ".wav":
		src, err = NewWAV(path)
	case ".cdda", ".bin":
		src, err = NewCDImage(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .opus, .wav, .cdda)", ext)
	}
	if err != nil {
		return nil, err
	}

	md := src.Metadata()
	log.Printf("Loaded %s: %s (%s)", strings.TrimPrefix(ext, "."), md.Title, src.Spec())
	return src, nil
}

// titleFromPath uses the file name without extension as the title
func titleFromPath(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func fileMetadata(path string) Metadata {
	return Metadata{
		Title:  titleFromPath(path),
		Artist: "Unknown Artist",
		Album:  "Unknown Album",
	}
}

// pending holds decoded bytes that did not fit the caller's buffer
type pending struct {
	buf []byte
}

func (p *pending) drain(dst []byte) int {
	n := copy(dst, p.buf)
	p.buf = p.buf[n:]
	if len(p.buf) == 0 {
		p.buf = nil
	}
	return n
}

func (p *pending) reset() {
	p.buf = nil
}

// readFrames reads from r into p, completing any partial trailing frame
func readFrames(r io.Reader, p []byte, bpf int) (int, error) {
	limit := len(p) - len(p)%bpf
	if limit == 0 {
		return 0, io.ErrShortBuffer
	}

	n, err := r.Read(p[:limit])
	if rem := n % bpf; rem != 0 && err == nil {
		var m int
		m, err = io.ReadFull(r, p[n:n+bpf-rem])
		n += m
		if errors.Is(err, io.ErrUnexpectedEOF) {
			err = io.EOF
		}
	}
	n -= n % bpf
	if n > 0 && errors.Is(err, io.EOF) {
		err = nil
	}
	return n, err
}
