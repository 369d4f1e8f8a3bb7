package audio

import "sync"

// Ring is a byte FIFO for the pull-model players.
// Reads never block, missing data is filled with silence.
// Writes over the capacity drop the oldest bytes.
type Ring struct {
	mu    sync.Mutex
	buf   []byte
	r, n  int
	drops int
}

func NewRing(capacity int) *Ring { return &Ring{buf: make([]byte, capacity)} }

func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := len(r.buf)
	if size == 0 {
		return len(p), nil
	}
	if len(p) > size {
		r.drops += len(p) - size
		p = p[len(p)-size:]
	}
	if over := r.n + len(p) - size; over > 0 {
		r.r = (r.r + over) % size
		r.n -= over
		r.drops += over
	}
	w := (r.r + r.n) % size
	c := copy(r.buf[w:], p)
	copy(r.buf, p[c:])
	r.n += len(p)
	return len(p), nil
}

func (r *Ring) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	size := len(r.buf)
	k := min(len(p), r.n)
	if k > 0 {
		c := copy(p[:k], r.buf[r.r:min(r.r+k, size)])
		copy(p[c:k], r.buf)
		r.r = (r.r + k) % size
		r.n -= k
	}
	clear(p[k:])
	return len(p), nil
}

// Buffered returns the number of unread bytes.
func (r *Ring) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Dropped returns the number of bytes lost on overflow.
func (r *Ring) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.drops
}

func (r *Ring) Clear() {
	r.mu.Lock()
	r.r, r.n = 0, 0
	r.mu.Unlock()
}
