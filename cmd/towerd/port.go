package main

import (
	"io"
	"net"
	"sync"

	"github.com/golang/glog"
	"github.com/tarm/serial"

	"github.com/towerlink/tower.go/pkg/config"
)

// openPort opens the node's wire: the configured serial device, or a
// TCP listener standing in for one.
func openPort(cfg *config.Config) (io.ReadWriteCloser, error) {
	if cfg.Serial.Device != "" {
		glog.Infof("serial port %s @ %d", cfg.Serial.Device, cfg.Serial.Baud)
		return serial.OpenPort(&serial.Config{
			Name: cfg.Serial.Device,
			Baud: cfg.Serial.Baud,
		})
	}
	glog.Infof("listening on %s", cfg.Listen)
	return listenPort(cfg.Listen)
}

// tcpPort serves one client at a time over TCP and behaves like a
// serial line: reads block while nobody is connected, writes to nobody
// fall on the floor, and a new client displaces the old one.
type tcpPort struct {
	ln net.Listener

	mu     sync.Mutex
	cond   *sync.Cond
	conn   net.Conn
	closed bool
}

func listenPort(addr string) (*tcpPort, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	p := &tcpPort{ln: ln}
	p.cond = sync.NewCond(&p.mu)
	go p.acceptLoop()
	return p, nil
}

func (p *tcpPort) acceptLoop() {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return
		}
		glog.Infof("client connected: %s", conn.RemoteAddr())
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			conn.Close()
			return
		}
		if p.conn != nil {
			p.conn.Close()
		}
		p.conn = conn
		p.cond.Broadcast()
		p.mu.Unlock()
	}
}

func (p *tcpPort) current() (net.Conn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.conn == nil && !p.closed {
		p.cond.Wait()
	}
	if p.closed {
		return nil, io.ErrClosedPipe
	}
	return p.conn, nil
}

func (p *tcpPort) drop(conn net.Conn) {
	p.mu.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.mu.Unlock()
	conn.Close()
}

// Read implements io.Reader across client turnover.
func (p *tcpPort) Read(b []byte) (int, error) {
	for {
		conn, err := p.current()
		if err != nil {
			return 0, err
		}
		n, err := conn.Read(b)
		if n > 0 {
			return n, nil
		}
		if err != nil {
			glog.V(1).Infof("client gone: %v", err)
			p.drop(conn)
		}
	}
}

// Write implements io.Writer. With no client attached the bytes are
// discarded, keeping the transmit pump draining.
func (p *tcpPort) Write(b []byte) (int, error) {
	p.mu.Lock()
	conn, closed := p.conn, p.closed
	p.mu.Unlock()
	if closed {
		return 0, io.ErrClosedPipe
	}
	if conn == nil {
		return len(b), nil
	}
	if _, err := conn.Write(b); err != nil {
		glog.V(1).Infof("client gone: %v", err)
		p.drop(conn)
	}
	return len(b), nil
}

// Close implements io.Closer.
func (p *tcpPort) Close() error {
	p.mu.Lock()
	p.closed = true
	conn := p.conn
	p.conn = nil
	p.cond.Broadcast()
	p.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	return p.ln.Close()
}
