package comm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// boundedSink accepts a limited number of bytes.
type boundedSink struct {
	mu    sync.Mutex
	data  []byte
	limit int
}

func (s *boundedSink) TryPut(b byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) >= s.limit {
		return false
	}
	s.data = append(s.data, b)
	return true
}

func TestEncodeWireBytes(t *testing.T) {
	sink := &boundedSink{limit: FrameSize}
	enc := NewEncoder(sink)
	require.NoError(t, enc.Put(0x04, 0, 0, 0))
	require.Equal(t, []byte{0x04, 0x00, 0x00, 0x00, 0x04}, sink.data)
}

func TestEncodePartialWriteNotRetracted(t *testing.T) {
	sink := &boundedSink{limit: 3}
	enc := NewEncoder(sink)
	require.Equal(t, ErrBufferFull, enc.Put(0x04, 1, 2, 3))
	require.Len(t, sink.data, 3, "bytes written before the failure stay put")
}

func TestConcurrentEncodersNeverInterleave(t *testing.T) {
	const frames = 200
	sink := &boundedSink{limit: 2 * frames * FrameSize}
	enc := NewEncoder(sink)

	var wg sync.WaitGroup
	send := func(p Packet) {
		defer wg.Done()
		for i := 0; i < frames; i++ {
			require.NoError(t, enc.PutPacket(p))
		}
	}
	a := Packet{0x0C, 1, 2, 3}
	b := Packet{0x50, 9, 8, 7}
	wg.Add(2)
	go send(a)
	go send(b)
	wg.Wait()

	// Every frame on the wire must decode cleanly with no
	// resynchronization discards.
	var d Decoder
	counts := map[Packet]int{}
	for _, by := range sink.data {
		if p, ok := d.Feed(by); ok {
			counts[p]++
		}
	}
	require.Equal(t, 0, d.Pending(), "interleaved frames would leave stragglers")
	require.Equal(t, frames, counts[a])
	require.Equal(t, frames, counts[b])
}
