// ABOUTME: Tests for the CD audio source
// ABOUTME: Covers the recovery ladder and reads through a flaky sector reader
package decode

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type memDisc struct {
	data  []byte
	bad   map[int]bool // sectors that always fail
	reads int
}

func (d *memDisc) ReadSectors(buf []byte, lsn, count int) error {
	d.reads++
	for i := lsn; i < lsn+count; i++ {
		if d.bad[i] {
			return errors.New("medium error")
		}
	}
	copy(buf, d.data[lsn*SectorSize:(lsn+count)*SectorSize])
	return nil
}

func discData(sectors int) []byte {
	data := make([]byte, sectors*SectorSize)
	for i := range data {
		data[i] = byte(i / SectorSize)
	}
	return data
}

func readAll(t *testing.T, src io.Reader) ([]byte, error) {
	t.Helper()
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := src.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
	}
}

func TestReadSectors(t *testing.T) {
	tests := []struct {
		speed, bufferMs, want int
	}{
		{2, 500, 37},
		{1, 500, 37}, // speed clamped to 2
		{24, 500, 450},
		{2, 20, 7},    // buffer clamped to 50 ms
		{2, 2000, 37}, // buffer clamped to 250 ms
	}
	for _, tt := range tests {
		if got := readSectors(tt.speed, tt.bufferMs); got != tt.want {
			t.Errorf("readSectors(%d, %d) = %d, want %d", tt.speed, tt.bufferMs, got, tt.want)
		}
	}
}

func TestReadLadder(t *testing.T) {
	l := readLadder{sectors: 37}

	if l.record(false) != ReadStateReading || l.sectors != 18 {
		t.Fatalf("first failure should halve to 18, got %s/%d", l.state, l.sectors)
	}
	if l.record(false) != ReadStateReading || l.sectors != 9 {
		t.Fatalf("second failure should halve to 9, got %s/%d", l.state, l.sectors)
	}
	for i := 1; i <= maxRetries; i++ {
		if l.record(false) != ReadStateRetrying || l.retries != i {
			t.Fatalf("expected retry %d, got %s/%d", i, l.state, l.retries)
		}
	}
	for i := 1; i <= maxSkips; i++ {
		if l.record(false) != ReadStateSkipping || l.skips != i {
			t.Fatalf("expected skip %d, got %s/%d", i, l.state, l.skips)
		}
	}
	if l.record(false) != ReadStateFailed {
		t.Fatalf("expected failure after exhausting skips, got %s", l.state)
	}
}

func TestReadLadderResetsOnSuccess(t *testing.T) {
	l := readLadder{sectors: 16}
	l.record(false)
	l.record(false)
	if l.retries != 2 {
		t.Fatalf("expected 2 retries, got %d", l.retries)
	}
	if l.record(true) != ReadStateReading || l.retries != 0 || l.skips != 0 {
		t.Errorf("success should reset counters, got %s retries=%d skips=%d", l.state, l.retries, l.skips)
	}
	if l.sectors != 16 {
		t.Errorf("read size should stay reduced, got %d", l.sectors)
	}
}

func TestCDAudioReadsTrack(t *testing.T) {
	disc := &memDisc{data: discData(100)}
	src := NewCDAudio(disc, 10, 59, Metadata{Title: "Track 2"})

	got, err := readAll(t, src)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	want := disc.data[10*SectorSize : 60*SectorSize]
	if !bytes.Equal(got, want) {
		t.Errorf("read %d bytes, want %d matching bytes", len(got), len(want))
	}
	if src.Duration() != 50*1000/75 {
		t.Errorf("unexpected duration %d", src.Duration())
	}
}

func TestCDAudioSkipsBadSectors(t *testing.T) {
	disc := &memDisc{data: discData(400), bad: map[int]bool{100: true}}
	src := NewCDAudio(disc, 0, 399, Metadata{})

	got, err := readAll(t, src)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if src.State() != ReadStateReading {
		t.Errorf("expected reader to recover, state %s", src.State())
	}

	// The unreadable second is missing; everything after it is intact
	if len(got) >= len(disc.data) {
		t.Fatalf("expected a gap, got %d of %d bytes", len(got), len(disc.data))
	}
	tail := disc.data[len(disc.data)-SectorSize:]
	if !bytes.Equal(got[len(got)-SectorSize:], tail) {
		t.Error("last sector differs after skip")
	}
}

func TestCDAudioGivesUp(t *testing.T) {
	bad := map[int]bool{}
	for i := 0; i < 2000; i++ {
		bad[i] = true
	}
	disc := &memDisc{data: discData(2000), bad: bad}
	src := NewCDAudio(disc, 0, 1999, Metadata{})

	_, err := src.Read(make([]byte, 4096))
	if !errors.Is(err, ErrReadFailed) {
		t.Fatalf("expected ErrReadFailed, got %v", err)
	}
	if src.State() != ReadStateFailed {
		t.Errorf("expected failed state, got %s", src.State())
	}
	// two halvings, ten retries, ten skips and the final failure
	if disc.reads != 2+maxRetries+maxSkips+1 {
		t.Errorf("unexpected read count %d", disc.reads)
	}
}

func TestCDAudioSeek(t *testing.T) {
	disc := &memDisc{data: discData(300)}
	src := NewCDAudio(disc, 0, 299, Metadata{})

	if err := src.Seek(2000); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, SectorSize)
	if _, err := src.Read(buf); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 150 {
		t.Errorf("expected sector 150 after seeking to 2 s, got %d", buf[0])
	}

	if err := src.Seek(1000000); err != nil {
		t.Fatal(err)
	}
	if _, err := src.Read(buf); err != io.EOF {
		t.Errorf("expected EOF after seeking past the end, got %v", err)
	}
}

func TestCDImage(t *testing.T) {
	data := discData(20)
	path := filepath.Join(t.TempDir(), "disc.cdda")
	if err := os.WriteFile(path, append(data, 1, 2, 3), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	got, err := readAll(t, src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read %d bytes, want the %d bytes of whole sectors", len(got), len(data))
	}
}
