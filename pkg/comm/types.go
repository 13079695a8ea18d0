package comm

// Source is the byte stream feeding a Decoder. *fifo.Buffer satisfies
// it. A caller must use either the blocking or the non-blocking side of
// a Source, never both on one stream.
type Source interface {
	// Get blocks until the next byte is available.
	Get() byte
	// TryGet returns the next byte without blocking.
	TryGet() (byte, bool)
}

// Sink is the byte stream an Encoder writes to. *fifo.Buffer satisfies
// it.
type Sink interface {
	// TryPut appends a byte, reporting false when the sink is full.
	TryPut(byte) bool
}
