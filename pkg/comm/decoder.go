package comm

// Decoder reassembles frames from a raw byte stream. It keeps a sliding
// window of at most FrameSize unconsumed bytes; on a checksum mismatch
// it discards the leading byte and retries, so alignment is recovered
// one byte at a time without losing data.
//
// The zero value is ready to use.
type Decoder struct {
	window [FrameSize]byte
	n      int
}

// Feed appends one byte to the window. It returns the decoded packet
// and true once a full frame checks out; otherwise the frame is still
// incomplete (or was shifted for resynchronization) and it returns
// false.
func (d *Decoder) Feed(b byte) (Packet, bool) {
	d.window[d.n] = b
	d.n++
	if d.n < FrameSize {
		return Packet{}, false
	}
	p := Packet{d.window[0], d.window[1], d.window[2], d.window[3]}
	if p.Checksum() == d.window[4] {
		d.n = 0
		return p, true
	}
	// The first byte was a false frame start. Drop it and retry with
	// the next candidate once one more byte arrives.
	copy(d.window[:], d.window[1:])
	d.n--
	return Packet{}, false
}

// Pending returns the number of unconsumed bytes in the window.
func (d *Decoder) Pending() int { return d.n }

// Reset discards the window contents.
func (d *Decoder) Reset() { d.n = 0 }

// Next pulls bytes from src until a frame checks out, blocking as the
// source blocks.
func (d *Decoder) Next(src Source) Packet {
	for {
		if p, ok := d.Feed(src.Get()); ok {
			return p
		}
	}
}

// TryNext consumes the bytes already available in src. It returns false
// once the source is exhausted without a complete frame; decoding
// resumes where it left off on the next call.
func (d *Decoder) TryNext(src Source) (Packet, bool) {
	for {
		b, ok := src.TryGet()
		if !ok {
			return Packet{}, false
		}
		if p, ok := d.Feed(b); ok {
			return p, true
		}
	}
}
