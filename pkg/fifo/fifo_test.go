package fifo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTryPutTryGetOrder(t *testing.T) {
	b := New(4)
	for _, v := range []byte{1, 2, 3, 4} {
		require.True(t, b.TryPut(v))
	}
	require.False(t, b.TryPut(5), "put into a full buffer must fail")
	require.Equal(t, 4, b.Len())

	for _, want := range []byte{1, 2, 3, 4} {
		v, ok := b.TryGet()
		require.True(t, ok)
		require.Equal(t, want, v)
	}
	_, ok := b.TryGet()
	require.False(t, ok, "get from an empty buffer must fail")
	require.Equal(t, 0, b.Len())
}

func TestWrapAround(t *testing.T) {
	b := New(3)
	var got []byte
	for i := 0; i < 10; i++ {
		require.True(t, b.TryPut(byte(i)))
		if i%2 == 1 {
			v, ok := b.TryGet()
			require.True(t, ok)
			got = append(got, v)
			v, ok = b.TryGet()
			require.True(t, ok)
			got = append(got, v)
		}
	}
	for {
		v, ok := b.TryGet()
		if !ok {
			break
		}
		got = append(got, v)
	}
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
}

func TestCountBounds(t *testing.T) {
	b := New(2)
	require.True(t, b.TryPut(1))
	require.True(t, b.TryPut(2))
	require.False(t, b.TryPut(3))
	require.Equal(t, 2, b.Len())
	b.TryGet()
	b.TryGet()
	_, ok := b.TryGet()
	require.False(t, ok)
	require.Equal(t, 0, b.Len())
}

func TestBlockingProducerConsumer(t *testing.T) {
	const n = 1000
	b := New(4)
	done := make(chan []byte, 1)
	go func() {
		var got []byte
		for i := 0; i < n; i++ {
			got = append(got, b.Get())
		}
		done <- got
	}()
	for i := 0; i < n; i++ {
		b.Put(byte(i))
	}
	select {
	case got := <-done:
		for i, v := range got {
			require.Equal(t, byte(i), v, "byte %d out of order", i)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("producer/consumer deadlocked")
	}
}

func TestBlockingPutSuspendsWhenFull(t *testing.T) {
	b := New(1)
	b.Put(1)
	released := make(chan struct{})
	go func() {
		b.Put(2)
		close(released)
	}()
	select {
	case <-released:
		t.Fatal("put into a full buffer did not suspend")
	case <-time.After(20 * time.Millisecond):
	}
	require.Equal(t, byte(1), b.Get())
	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("put not released by get")
	}
	require.Equal(t, byte(2), b.Get())
}

func TestZeroCapacityPanics(t *testing.T) {
	require.Panics(t, func() { New(0) })
}
