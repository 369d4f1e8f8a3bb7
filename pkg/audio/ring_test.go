package audio

import (
	"bytes"
	"testing"
)

func TestRing(t *testing.T) {
	r := NewRing(8)

	_, _ = r.Write([]byte{1, 2, 3, 4, 5})
	p := make([]byte, 3)
	_, _ = r.Read(p)
	if !bytes.Equal(p, []byte{1, 2, 3}) {
		t.Errorf("Read() = %v", p)
	}

	// wraps around
	_, _ = r.Write([]byte{6, 7, 8, 9, 10})
	if r.Buffered() != 7 {
		t.Errorf("Buffered() = %v, want 7", r.Buffered())
	}
	p = make([]byte, 7)
	_, _ = r.Read(p)
	if !bytes.Equal(p, []byte{4, 5, 6, 7, 8, 9, 10}) {
		t.Errorf("Read() = %v", p)
	}

	// silence on underrun
	_, _ = r.Write([]byte{11})
	p = []byte{0xff, 0xff, 0xff}
	n, _ := r.Read(p)
	if n != 3 || !bytes.Equal(p, []byte{11, 0, 0}) {
		t.Errorf("Read() = %v, %v", n, p)
	}
}

func TestRingOverflow(t *testing.T) {
	r := NewRing(4)
	_, _ = r.Write([]byte{1, 2, 3})
	_, _ = r.Write([]byte{4, 5, 6})
	p := make([]byte, 4)
	_, _ = r.Read(p)
	if !bytes.Equal(p, []byte{3, 4, 5, 6}) {
		t.Errorf("Read() = %v, want the newest bytes", p)
	}
	if r.Dropped() != 2 {
		t.Errorf("Dropped() = %v, want 2", r.Dropped())
	}

	_, _ = r.Write([]byte{1, 2, 3, 4, 5, 6, 7})
	_, _ = r.Read(p)
	if !bytes.Equal(p, []byte{4, 5, 6, 7}) {
		t.Errorf("Read() = %v", p)
	}
	r.Clear()
	if r.Buffered() != 0 {
		t.Errorf("Clear() left %v bytes", r.Buffered())
	}
}
