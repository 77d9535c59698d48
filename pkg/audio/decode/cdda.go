// ABOUTME: Raw CD audio source with sector read error recovery
// ABOUTME: Shrinks, retries and skips ahead on read errors before giving up
package decode

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/Resonate-Protocol/streamsink/pkg/audio"
)

const (
	// SectorSize is the size of one raw CD-DA sector
	SectorSize = 2352

	// SectorsPerSecond is the CD-DA sector rate
	SectorsPerSecond = 75

	minReadSectors = 16
	maxRetries     = 10
	maxSkips       = 10

	defaultDiscSpeed = 2
	defaultReadMs    = 500
)

// ErrReadFailed is returned once the recovery ladder is exhausted
var ErrReadFailed = errors.New("error reading audio CD")

// SectorReader reads raw audio sectors starting at lsn
type SectorReader interface {
	ReadSectors(buf []byte, lsn, count int) error
}

// ReadState is the position of the reader on the recovery ladder
type ReadState int

const (
	ReadStateReading ReadState = iota
	ReadStateRetrying
	ReadStateSkipping
	ReadStateFailed
)

func (s ReadState) String() string {
	switch s {
	case ReadStateReading:
		return "reading"
	case ReadStateRetrying:
		return "retrying"
	case ReadStateSkipping:
		return "skipping"
	case ReadStateFailed:
		return "failed"
	default:
		return fmt.Sprintf("ReadState(%d)", int(s))
	}
}

// readLadder tracks read errors. A failed read first halves the read size,
// then retries, then skips ahead one second at a time, then fails.
// Any successful read resets the counters.
type readLadder struct {
	state   ReadState
	sectors int
	retries int
	skips   int
}

func (l *readLadder) record(ok bool) ReadState {
	switch {
	case ok:
		l.state = ReadStateReading
		l.retries = 0
		l.skips = 0
	case l.sectors > minReadSectors:
		l.sectors /= 2
		l.state = ReadStateReading
	case l.retries < maxRetries:
		l.retries++
		l.state = ReadStateRetrying
	case l.skips < maxSkips:
		l.skips++
		l.state = ReadStateSkipping
	default:
		l.state = ReadStateFailed
	}
	return l.state
}

// readSectors sizes reads from the disc speed and the wanted buffer length
func readSectors(speed, bufferMs int) int {
	speed = min(max(speed, 2), 24)
	return min(max(bufferMs/2, 50), 250) * speed * SectorsPerSecond / 1000
}

// CDAudio plays sectors startLSN..endLSN (inclusive) from a SectorReader
type CDAudio struct {
	reader   SectorReader
	closer   io.Closer
	startLSN int
	endLSN   int
	meta     Metadata

	lsn     int
	ladder  readLadder
	buf     []byte
	pending pending
}

// NewCDAudio creates a source over a sector range
func NewCDAudio(reader SectorReader, startLSN, endLSN int, meta Metadata) *CDAudio {
	sectors := readSectors(defaultDiscSpeed, defaultReadMs)
	return &CDAudio{
		reader:   reader,
		startLSN: startLSN,
		endLSN:   endLSN,
		meta:     meta,
		lsn:      startLSN,
		ladder:   readLadder{sectors: sectors},
		buf:      make([]byte, sectors*SectorSize),
	}
}

// imageReader reads sectors from a raw .cdda/.bin image
type imageReader struct {
	file *os.File
}

func (r imageReader) ReadSectors(buf []byte, lsn, count int) error {
	want := count * SectorSize
	n, err := r.file.ReadAt(buf[:want], int64(lsn)*SectorSize)
	if n == want {
		return nil
	}
	return err
}

// NewCDImage opens a raw CD audio image as a single track
func NewCDImage(path string) (*CDAudio, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CD image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	sectors := int(info.Size() / SectorSize)
	if sectors == 0 {
		f.Close()
		return nil, fmt.Errorf("CD image %s holds no complete sector", path)
	}

	src := NewCDAudio(imageReader{file: f}, 0, sectors-1, fileMetadata(path))
	src.closer = f
	return src, nil
}

func (s *CDAudio) Read(p []byte) (int, error) {
	bpf := s.Spec().BytesPerFrame()
	limit := len(p) - len(p)%bpf
	if limit == 0 {
		return 0, io.ErrShortBuffer
	}

	if s.pending.buf == nil {
		if err := s.readChunk(); err != nil {
			return 0, err
		}
	}
	return s.pending.drain(p[:limit]), nil
}

// readChunk reads the next block of sectors, walking the ladder on errors
func (s *CDAudio) readChunk() error {
	for {
		count := min(s.ladder.sectors, s.endLSN+1-s.lsn)
		if count < 1 {
			return io.EOF
		}

		err := s.reader.ReadSectors(s.buf, s.lsn, count)
		switch s.ladder.record(err == nil) {
		case ReadStateReading:
			if err == nil {
				s.pending.buf = append(s.pending.buf, s.buf[:count*SectorSize]...)
				s.lsn += count
				return nil
			}
			log.Printf("Warning: CD read of %d sectors at %d failed (%v), reducing to %d", count, s.lsn, err, s.ladder.sectors)
		case ReadStateRetrying:
			log.Printf("Warning: CD read at %d failed (%v), retry %d", s.lsn, err, s.ladder.retries)
		case ReadStateSkipping:
			s.lsn = min(s.lsn+SectorsPerSecond, s.endLSN+1)
			log.Printf("Warning: CD read failed (%v), skipping ahead to %d", err, s.lsn)
		case ReadStateFailed:
			return fmt.Errorf("%w at sector %d: %v", ErrReadFailed, s.lsn, err)
		}
	}
}

// State returns the current recovery ladder state
func (s *CDAudio) State() ReadState { return s.ladder.state }

// Spec is always CD audio: 44.1 kHz stereo S16LE
func (s *CDAudio) Spec() audio.Spec {
	return audio.Spec{Format: audio.FormatS16LE, Rate: 44100, Channels: 2}
}

func (s *CDAudio) Metadata() Metadata { return s.meta }

// Duration returns the track length in milliseconds
func (s *CDAudio) Duration() int {
	return (s.endLSN + 1 - s.startLSN) * 1000 / SectorsPerSecond
}

// Seek moves the read position to the sector containing ms
func (s *CDAudio) Seek(ms int) error {
	s.lsn = min(s.startLSN+max(ms, 0)*SectorsPerSecond/1000, s.endLSN+1)
	s.pending.reset()
	return nil
}

func (s *CDAudio) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
