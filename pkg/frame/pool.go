package frame

import (
	"sync"
	"time"
)

// Pool recycles pixel buffers between captures to reduce GC pressure.
// Buffers are pooled as *[]byte; the emptied pointers are kept in a second
// pool so Put does not allocate a new slice header.
type Pool struct {
	buffers sync.Pool // *[]byte with capacity
	headers sync.Pool // *[]byte, nil slice
}

// NewPool creates a pool whose fresh buffers have the given capacity.
func NewPool(capacity int) *Pool {
	p := &Pool{}
	p.buffers.New = func() any {
		b := make([]byte, 0, capacity)
		return &b
	}
	p.headers.New = func() any { return new([]byte) }
	return p
}

// Get returns a buffer of length n.
func (p *Pool) Get(n int) []byte {
	bp := p.buffers.Get().(*[]byte)
	buf := *bp
	*bp = nil
	p.headers.Put(bp)

	if cap(buf) < n {
		buf = make([]byte, n)
	}
	return buf[:n]
}

// Put returns a buffer to the pool.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}
	bp := p.headers.Get().(*[]byte)
	*bp = buf[:0]
	p.buffers.Put(bp)
}

// Frame copies src into a pooled buffer and returns a Frame that gives
// the buffer back on Release.
func (p *Pool) Frame(seq uint64, width, height int, format Format, src []byte) *Frame {
	buf := p.Get(len(src))
	copy(buf, src)
	return &Frame{
		Seq:        seq,
		CapturedAt: time.Now(),
		Width:      width,
		Height:     height,
		Format:     format,
		Data:       buf,
		release:    p.Put,
	}
}

// Wrap returns a Frame around buf, which must come from p.Get.
func (p *Pool) Wrap(seq uint64, width, height int, format Format, buf []byte) *Frame {
	return &Frame{
		Seq:        seq,
		CapturedAt: time.Now(),
		Width:      width,
		Height:     height,
		Format:     format,
		Data:       buf,
		release:    p.Put,
	}
}
