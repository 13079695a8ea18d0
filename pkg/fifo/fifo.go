// Package fifo implements the byte ring buffer shared between an
// interrupt-level producer and a thread-level consumer.
package fifo

import (
	"sync"

	"github.com/towerlink/tower.go/pkg/sem"
)

// Buffer is a fixed-capacity circular byte buffer. The count field is
// the single source of truth for full/empty; start and the write index
// are derived from it. One producer and one consumer may use a Buffer
// concurrently without further locking.
//
// Each side must stick to either the blocking or the non-blocking form:
// a producer that mixes Put and TryPut, or a consumer that mixes Get
// and TryGet, skews the semaphore accounting that the blocking forms
// rely on.
type Buffer struct {
	mu    sync.Mutex
	buf   []byte
	start int
	count int

	items *sem.Semaphore // signalled on every put, waited on by Get
	space *sem.Semaphore // signalled on every get, waited on by Put
}

// New creates a buffer with the given fixed capacity.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		panic("fifo: capacity must be positive")
	}
	return &Buffer{
		buf:   make([]byte, capacity),
		items: sem.New(0),
		space: sem.New(capacity),
	}
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.buf) }

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// TryPut appends v, reporting false when the buffer is full. It never
// blocks and is safe to call from interrupt-level goroutines.
func (b *Buffer) TryPut(v byte) bool {
	b.mu.Lock()
	if b.count == len(b.buf) {
		b.mu.Unlock()
		return false
	}
	b.buf[(b.start+b.count)%len(b.buf)] = v
	b.count++
	b.mu.Unlock()
	b.items.Signal()
	return true
}

// TryGet removes and returns the oldest byte, reporting false when the
// buffer is empty. It never blocks.
func (b *Buffer) TryGet() (byte, bool) {
	b.mu.Lock()
	if b.count == 0 {
		b.mu.Unlock()
		return 0, false
	}
	v := b.buf[b.start]
	b.start = (b.start + 1) % len(b.buf)
	b.count--
	b.mu.Unlock()
	b.space.Signal()
	return v, true
}

// Put appends v, suspending the caller while the buffer is full.
func (b *Buffer) Put(v byte) {
	sem.WaitForever(b.space)
	if !b.TryPut(v) {
		// The wait granted a slot; a full buffer here means the
		// semaphore accounting is broken.
		panic("fifo: put failed after successful wait")
	}
}

// Get removes and returns the oldest byte, suspending the caller while
// the buffer is empty.
func (b *Buffer) Get() byte {
	sem.WaitForever(b.items)
	v, ok := b.TryGet()
	if !ok {
		panic("fifo: get failed after successful wait")
	}
	return v
}
