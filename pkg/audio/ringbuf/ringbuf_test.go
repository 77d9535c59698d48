// ABOUTME: Tests for the ring buffer
// ABOUTME: Verifies wraparound, accounting and precondition handling
package ringbuf

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestNewInvalidCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too large", MaxCapacity + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.capacity); err == nil {
				t.Errorf("expected error for capacity %d", tt.capacity)
			}
		})
	}
}

func TestAllocTwice(t *testing.T) {
	rb, err := New(16)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := rb.Alloc(16); !errors.Is(err, ErrAllocated) {
		t.Errorf("expected ErrAllocated, got %v", err)
	}

	rb.Destroy()
	if err := rb.Alloc(32); err != nil {
		t.Errorf("expected realloc after Destroy to succeed, got %v", err)
	}
	if rb.Cap() != 32 {
		t.Errorf("expected capacity 32, got %d", rb.Cap())
	}
}

func TestFillToCapacity(t *testing.T) {
	rb, _ := New(4096)
	rb.CopyIn(make([]byte, 4096))

	if rb.Space() != 0 {
		t.Errorf("expected no space, got %d", rb.Space())
	}
	if rb.Len() != 4096 {
		t.Errorf("expected length 4096, got %d", rb.Len())
	}
}

func TestRoundTrip(t *testing.T) {
	rb, _ := New(10)
	in := []byte{1, 2, 3, 4, 5, 6, 7}
	rb.CopyIn(in)

	out := make([]byte, len(in))
	rb.MoveOut(out)

	if !bytes.Equal(in, out) {
		t.Errorf("expected %v, got %v", in, out)
	}
	if rb.Len() != 0 {
		t.Errorf("expected empty buffer, got %d", rb.Len())
	}
}

func TestWraparound(t *testing.T) {
	rb, _ := New(8)

	rb.CopyIn([]byte{1, 2, 3, 4, 5, 6})
	first := make([]byte, 4)
	rb.MoveOut(first)

	// start is now 4 with 2 bytes held; this write wraps past the end
	rb.CopyIn([]byte{7, 8, 9, 10, 11, 12})

	out := make([]byte, 8)
	rb.MoveOut(out)

	expected := []byte{5, 6, 7, 8, 9, 10, 11, 12}
	if !bytes.Equal(out, expected) {
		t.Errorf("expected %v, got %v", expected, out)
	}
}

func TestDiscard(t *testing.T) {
	rb, _ := New(8)
	rb.CopyIn([]byte{1, 2, 3})
	rb.MoveOut(make([]byte, 2))
	rb.Discard()

	if rb.Len() != 0 || rb.Space() != 8 {
		t.Errorf("expected empty buffer after discard, len=%d space=%d", rb.Len(), rb.Space())
	}

	rb.CopyIn([]byte{9, 9})
	out := make([]byte, 2)
	rb.MoveOut(out)
	if !bytes.Equal(out, []byte{9, 9}) {
		t.Errorf("expected [9 9] after discard, got %v", out)
	}
}

func TestPreconditionPanics(t *testing.T) {
	t.Run("copy in overflow", func(t *testing.T) {
		rb, _ := New(4)
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		rb.CopyIn(make([]byte, 5))
	})

	t.Run("move out underflow", func(t *testing.T) {
		rb, _ := New(4)
		rb.CopyIn([]byte{1})
		defer func() {
			if recover() == nil {
				t.Error("expected panic")
			}
		}()
		rb.MoveOut(make([]byte, 2))
	})
}

// Random copy in/move out sequences must behave exactly like a slice FIFO.
func TestMatchesSliceFIFO(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	rb, _ := New(97)
	var model []byte
	next := byte(0)

	for i := 0; i < 5000; i++ {
		if rng.Intn(2) == 0 {
			n := rng.Intn(rb.Space() + 1)
			p := make([]byte, n)
			for j := range p {
				p[j] = next
				next++
			}
			rb.CopyIn(p)
			model = append(model, p...)
		} else {
			n := rng.Intn(rb.Len() + 1)
			out := make([]byte, n)
			rb.MoveOut(out)
			if !bytes.Equal(out, model[:n]) {
				t.Fatalf("step %d: FIFO mismatch", i)
			}
			model = model[n:]
		}

		if rb.Len() != len(model) {
			t.Fatalf("step %d: expected length %d, got %d", i, len(model), rb.Len())
		}
		if rb.Len() < 0 || rb.Len() > rb.Cap() {
			t.Fatalf("step %d: length %d outside [0, %d]", i, rb.Len(), rb.Cap())
		}
	}
}
