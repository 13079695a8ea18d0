package tower

import (
	"io"
	"sync/atomic"

	"github.com/golang/glog"
)

// The pumps are the hosted stand-ins for the UART interrupt handlers.
// The receiver moves bytes from the port into the receive buffer and
// never blocks on the buffer: an overrun drops the byte, exactly as a
// full receive buffer drops characters on the reference board. The
// transmitter blocks on the transmit buffer and drains it to the port
// one byte at a time. The codec never touches the port directly.

func (n *Node) runReceiver(r io.Reader) error {
	buf := make([]byte, 64)
	for {
		cnt, err := r.Read(buf)
		for _, b := range buf[:cnt] {
			if !n.rx.TryPut(b) {
				dropped := atomic.AddUint32(&n.dropped, 1)
				if glog.V(1) {
					glog.Infof("rx overrun, %d bytes dropped", dropped)
				}
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

func (n *Node) runTransmitter(w io.Writer) error {
	one := make([]byte, 1)
	for {
		one[0] = n.tx.Get()
		if _, err := w.Write(one); err != nil {
			return err
		}
	}
}
