package sh

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/towerlink/tower.go/pkg/comm"
)

func TestLinkReceivesFrames(t *testing.T) {
	local, remote := net.Pipe()
	l := OpenLink(local)
	defer l.Close()

	want := comm.Packet{Command: 0x0C, Parameter1: 13, Parameter2: 45, Parameter3: 59}
	frame := want.Encode()
	go remote.Write(frame[:])

	select {
	case got := <-l.Recv():
		require.Equal(t, want, got)
	case <-time.After(3 * time.Second):
		t.Fatal("no packet received")
	}
}

func TestLinkSendEncodesChecksum(t *testing.T) {
	local, remote := net.Pipe()
	l := OpenLink(local)
	defer l.Close()

	go func() {
		l.Send(comm.Packet{Command: 0x04})
	}()
	buf := make([]byte, comm.FrameSize)
	remote.SetReadDeadline(time.Now().Add(3 * time.Second))
	for n := 0; n < len(buf); {
		cnt, err := remote.Read(buf[n:])
		require.NoError(t, err)
		n += cnt
	}
	require.Equal(t, []byte{0x04, 0, 0, 0, 0x04}, buf)
}

func TestLinkClosesChannelOnDisconnect(t *testing.T) {
	local, remote := net.Pipe()
	l := OpenLink(local)
	defer l.Close()

	remote.Close()
	select {
	case _, ok := <-l.Recv():
		require.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("recv channel never closed")
	}
}

func TestFormatPacket(t *testing.T) {
	require.Equal(t, "number 4718", FormatPacket(comm.Packet{
		Command: 0x0B, Parameter1: 1, Parameter2: 0x6E, Parameter3: 0x12,
	}))
	require.Equal(t, "time 13:45:09", FormatPacket(comm.Packet{
		Command: 0x0C, Parameter1: 13, Parameter2: 45, Parameter3: 9,
	}))
	require.Equal(t, "analog[1] = -1", FormatPacket(comm.Packet{
		Command: 0x50, Parameter1: 1, Parameter2: 0xFF, Parameter3: 0xFF,
	}))
}
