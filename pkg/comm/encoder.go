package comm

import "sync"

// Encoder serializes frames into a byte sink. An internal mutex makes
// each frame one unit of work, so concurrent senders never interleave
// their five wire bytes.
type Encoder struct {
	mu   sync.Mutex
	sink Sink
}

// NewEncoder creates an encoder writing to sink.
func NewEncoder(sink Sink) *Encoder {
	return &Encoder{sink: sink}
}

// Put encodes one frame and writes it to the sink. When the sink
// rejects a byte the write stops and ErrBufferFull is returned; bytes
// already written stay on the wire and the receiver resynchronizes.
func (e *Encoder) Put(command, p1, p2, p3 byte) error {
	return e.PutPacket(Packet{command, p1, p2, p3})
}

// PutPacket writes p as one frame. See Put.
func (e *Encoder) PutPacket(p Packet) error {
	frame := p.Encode()
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, b := range frame {
		if !e.sink.TryPut(b) {
			return ErrBufferFull
		}
	}
	return nil
}
