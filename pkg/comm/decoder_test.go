package comm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// byteSource feeds a decoder from a slice.
type byteSource struct {
	data []byte
}

func (s *byteSource) Get() byte {
	b := s.data[0]
	s.data = s.data[1:]
	return b
}

func (s *byteSource) TryGet() (byte, bool) {
	if len(s.data) == 0 {
		return 0, false
	}
	return s.Get(), true
}

func feedAll(t *testing.T, d *Decoder, data []byte) []Packet {
	t.Helper()
	var pkts []Packet
	for _, b := range data {
		if p, ok := d.Feed(b); ok {
			pkts = append(pkts, p)
		}
	}
	return pkts
}

func TestDecodeStartupFrame(t *testing.T) {
	var d Decoder
	pkts := feedAll(t, &d, []byte{0x04, 0x00, 0x00, 0x00, 0x04})
	require.Equal(t, []Packet{{Command: 0x04}}, pkts)
	require.Equal(t, 0, d.Pending())
}

func TestRoundTripAllByteValues(t *testing.T) {
	var d Decoder
	for v := 0; v <= 0xFF; v++ {
		p := Packet{byte(v), byte(v ^ 0x5A), byte(255 - v), byte(v >> 1)}
		frame := p.Encode()
		pkts := feedAll(t, &d, frame[:])
		require.Equal(t, []Packet{p}, pkts, "value %#02x", v)
		require.Equal(t, 0, d.Pending(), "resynchronization discard on a clean frame")
	}
}

func TestResyncAfterCorruption(t *testing.T) {
	good := Packet{0x0B, 1, 2, 3}
	corrupt := good.Encode()
	corrupt[1] ^= 0xFF // checksum no longer matches

	second := Packet{0x0C, 10, 20, 30}
	frame := second.Encode()

	var d Decoder
	pkts := feedAll(t, &d, corrupt[:])
	require.Empty(t, pkts, "corrupted frame must not emit")

	pkts = feedAll(t, &d, frame[:])
	require.Equal(t, []Packet{second}, pkts,
		"decoder must shed the corrupted frame byte by byte and recover the next one")
	require.Equal(t, 0, d.Pending())
}

func TestResyncFindsFrameStartingOneByteLate(t *testing.T) {
	p := Packet{0x04, 0, 0, 0}
	frame := p.Encode()
	stream := append([]byte{0x99}, frame[:]...) // one byte of line noise first

	var d Decoder
	pkts := feedAll(t, &d, stream)
	require.Equal(t, []Packet{p}, pkts)
}

func TestWindowNeverExceedsFrameSize(t *testing.T) {
	var d Decoder
	// A run of identical non-matching bytes keeps shifting the window.
	for i := 0; i < 100; i++ {
		d.Feed(0x01)
		require.True(t, d.Pending() < FrameSize)
	}
}

func TestTryNextExhaustsSource(t *testing.T) {
	p := Packet{0x0C, 7, 8, 9}
	frame := p.Encode()

	src := &byteSource{data: frame[:3]}
	var d Decoder
	_, ok := d.TryNext(src)
	require.False(t, ok, "incomplete frame must not emit")

	src.data = frame[3:]
	got, ok := d.TryNext(src)
	require.True(t, ok)
	require.Equal(t, p, got)
}

func TestNextPullsUntilFrameReady(t *testing.T) {
	p := Packet{0x09, 'v', 1, 0}
	frame := p.Encode()
	src := &byteSource{data: append([]byte{0xFF, 0x00}, frame[:]...)}

	var d Decoder
	require.Equal(t, p, d.Next(src))
}

func TestReset(t *testing.T) {
	var d Decoder
	d.Feed(1)
	d.Feed(2)
	require.Equal(t, 2, d.Pending())
	d.Reset()
	require.Equal(t, 0, d.Pending())
}
