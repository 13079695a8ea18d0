package sh

import (
	"io"

	"github.com/towerlink/tower.go/pkg/comm"
)

// Link frames packets over one open connection. A background reader
// decodes the byte stream and delivers whole packets on a channel.
type Link struct {
	conn io.ReadWriteCloser
	recv chan comm.Packet
}

// OpenLink starts the receive loop over conn.
func OpenLink(conn io.ReadWriteCloser) *Link {
	l := &Link{
		conn: conn,
		recv: make(chan comm.Packet, 64),
	}
	go l.readLoop()
	return l
}

func (l *Link) readLoop() {
	var dec comm.Decoder
	buf := make([]byte, 64)
	for {
		cnt, err := l.conn.Read(buf)
		for _, b := range buf[:cnt] {
			if p, ok := dec.Feed(b); ok {
				select {
				case l.recv <- p:
				default:
					// Shell not draining, the packet is lost.
				}
			}
		}
		if err != nil {
			close(l.recv)
			return
		}
	}
}

// Send writes one frame.
func (l *Link) Send(p comm.Packet) error {
	frame := p.Encode()
	_, err := l.conn.Write(frame[:])
	return err
}

// Recv returns the channel of decoded packets. It closes when the
// connection drops.
func (l *Link) Recv() <-chan comm.Packet {
	return l.recv
}

// Close implements io.Closer.
func (l *Link) Close() error {
	return l.conn.Close()
}
