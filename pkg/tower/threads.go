package tower

import (
	"github.com/golang/glog"

	"github.com/towerlink/tower.go/pkg/comm"
	"github.com/towerlink/tower.go/pkg/sem"
)

// protocolLoop is the packet thread. It blocks on the receive buffer
// until the decoder yields a well-formed frame, flashes the blue LED,
// dispatches, and echoes an ACK or NAK when the sender asked for one.
func (n *Node) protocolLoop() error {
	if fn := n.opts.OnStart; fn != nil {
		fn(n)
	}
	for {
		p := n.dec.Next(n.rx)
		if glog.V(2) {
			glog.Infof("rcv %#02x % 02x", p.Command, []byte{p.Parameter1, p.Parameter2, p.Parameter3})
		}
		n.opts.Indicator.On(Blue)
		n.opts.Timers.OneShot(n.opts.LedHold, n.ledCh)
		ok := n.opts.Dispatcher.Dispatch(n, p)
		if !ok && bool(glog.V(1)) {
			glog.Infof("unhandled packet %#02x", p.Command)
		}
		if p.AckRequested() {
			if err := n.Send(p.Ack(ok)); err != nil {
				glog.Warningf("ack for %#02x lost: %v", p.Opcode(), err)
			}
		}
	}
}

// ledLoop turns the blue LED back off when the hold timer fires.
func (n *Node) ledLoop() error {
	for {
		sem.WaitForever(n.ledCh)
		n.opts.Indicator.Off(Blue)
	}
}

// clockLoop runs once per clock second: toggle the yellow LED and send
// the time of day.
func (n *Node) clockLoop() error {
	for {
		sem.WaitForever(n.clockCh)
		n.opts.Indicator.Toggle(Yellow)
		h, m, s := n.opts.Clock.Now()
		if err := n.Send(comm.Packet{Command: CmdTime, Parameter1: h, Parameter2: m, Parameter3: s}); err != nil {
			glog.V(1).Infof("time packet lost: %v", err)
		}
	}
}

// heartbeatLoop toggles the green LED on every heartbeat tick.
func (n *Node) heartbeatLoop() error {
	for {
		sem.WaitForever(n.heartbeatCh)
		n.opts.Indicator.Toggle(Green)
	}
}

// analogLoop samples one channel every tick and transmits per the
// current policy: every tick when always, otherwise only when the
// value moved since the last transmission.
func (n *Node) analogLoop(channel int, sampler Sampler) error {
	var last int16
	var sent bool
	for {
		sem.WaitForever(n.sampleChs[channel])
		v, ok := sampler.Sample()
		if !ok {
			continue
		}
		if n.Policy() == PolicyOnChange && sent && v == last {
			continue
		}
		p := comm.Packet{
			Command:    CmdAnalogInput,
			Parameter1: byte(channel),
			Parameter2: byte(uint16(v) & 0xFF),
			Parameter3: byte(uint16(v) >> 8),
		}
		if err := n.Send(p); err != nil {
			glog.V(1).Infof("analog packet lost: %v", err)
			continue
		}
		last, sent = v, true
	}
}
