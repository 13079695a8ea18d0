package tower

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/towerlink/tower.go/pkg/comm"
	"github.com/towerlink/tower.go/pkg/fifo"
	"github.com/towerlink/tower.go/pkg/framework"
	"github.com/towerlink/tower.go/pkg/sem"
)

// Default tuning, matching the reference board's driver buffers and
// timer rates.
const (
	DefaultBufferSize     = 256
	DefaultSampleInterval = 10 * time.Millisecond
	DefaultLedHold        = time.Second

	clockInterval     = time.Second
	heartbeatInterval = 500 * time.Millisecond
)

// Options configure a Node.
type Options struct {
	// Dispatcher handles decoded packets. Required.
	Dispatcher Dispatcher
	// Indicator drives the LEDs. Optional.
	Indicator Indicator
	// Clock enables the once-per-second time thread when set.
	Clock Clock
	// Samplers get one periodic event thread per channel.
	Samplers []Sampler
	// Timers defaults to WallTimers.
	Timers TimerSource
	// Policy is the initial transmit policy.
	Policy TransmitPolicy
	// SampleInterval defaults to DefaultSampleInterval.
	SampleInterval time.Duration
	// LedHold is how long the blue LED stays on after a packet.
	LedHold time.Duration
	// BufferSize is the rx/tx ring capacity.
	BufferSize int
	// OnStart runs on the protocol thread before the receive loop,
	// typically sending the startup burst.
	OnStart func(Sender)
	// Observer sees every successfully transmitted packet.
	Observer func(comm.Packet)
}

// Node owns the buffers, codec and threads of one tower node.
type Node struct {
	opts Options

	rx *fifo.Buffer
	tx *fifo.Buffer

	dec comm.Decoder
	enc *comm.Encoder

	policyMu sync.Mutex
	policy   TransmitPolicy

	clockCh     *sem.Semaphore
	ledCh       *sem.Semaphore
	heartbeatCh *sem.Semaphore
	sampleChs   []*sem.Semaphore

	dropped uint32
}

// NewNode creates a node from opts.
func NewNode(opts Options) *Node {
	if opts.Dispatcher == nil {
		panic("tower: Options.Dispatcher is required")
	}
	if opts.Indicator == nil {
		opts.Indicator = nopIndicator{}
	}
	if opts.Timers == nil {
		opts.Timers = WallTimers{}
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = DefaultSampleInterval
	}
	if opts.LedHold <= 0 {
		opts.LedHold = DefaultLedHold
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	n := &Node{
		opts:        opts,
		rx:          fifo.New(opts.BufferSize),
		tx:          fifo.New(opts.BufferSize),
		policy:      opts.Policy,
		clockCh:     sem.New(0),
		ledCh:       sem.New(0),
		heartbeatCh: sem.New(0),
	}
	n.enc = comm.NewEncoder(n.tx)
	for range opts.Samplers {
		n.sampleChs = append(n.sampleChs, sem.New(0))
	}
	return n
}

// Send implements Sender. A full transmit buffer fails the frame
// without retracting the bytes already queued.
func (n *Node) Send(p comm.Packet) error {
	if err := n.enc.PutPacket(p); err != nil {
		glog.V(1).Infof("snd %#02x failed: %v", p.Command, err)
		return err
	}
	if glog.V(2) {
		glog.Infof("snd %#02x % 02x", p.Command, []byte{p.Parameter1, p.Parameter2, p.Parameter3})
	}
	if obs := n.opts.Observer; obs != nil {
		obs(p)
	}
	return nil
}

// Inject feeds one frame into the receive path as if its bytes had
// arrived on the wire.
func (n *Node) Inject(p comm.Packet) error {
	frame := p.Encode()
	for _, b := range frame {
		if !n.rx.TryPut(b) {
			return comm.ErrBufferFull
		}
	}
	return nil
}

// Dropped returns how many receive bytes were dropped on overrun.
func (n *Node) Dropped() uint32 {
	return atomic.LoadUint32(&n.dropped)
}

// Policy returns the current transmit policy.
func (n *Node) Policy() TransmitPolicy {
	n.policyMu.Lock()
	defer n.policyMu.Unlock()
	return n.policy
}

// SetPolicy switches the transmit policy at runtime.
func (n *Node) SetPolicy(p TransmitPolicy) {
	n.policyMu.Lock()
	n.policy = p
	n.policyMu.Unlock()
}

// Run starts the pumps, the timers and the event threads, and blocks
// until the context is canceled or the port fails. The threads
// themselves have no cancellation points; on shutdown they are left for
// process exit to collect.
func (n *Node) Run(ctx context.Context, port io.ReadWriter) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stops []func()
	defer func() {
		for _, stop := range stops {
			stop()
		}
	}()
	if n.opts.Clock != nil {
		stops = append(stops, n.opts.Timers.Periodic(clockInterval, n.clockCh))
	}
	for _, ch := range n.sampleChs {
		stops = append(stops, n.opts.Timers.Periodic(n.opts.SampleInterval, ch))
	}
	stops = append(stops, n.opts.Timers.Periodic(heartbeatInterval, n.heartbeatCh))

	// A pump stopping on its own (port closed, line gone) stops the
	// whole node.
	pump := func(name string, fn func() error) framework.Runnable {
		return framework.NamedRun(name, framework.RunFunc(func(ctx context.Context) error {
			err := framework.RunUntilCanceled(ctx, fn)
			if err != context.Canceled {
				if err != nil {
					glog.Errorf("%s failed: %v", name, err)
				}
				cancel()
			}
			return err
		}))
	}
	thread := func(name string, fn func() error) framework.Runnable {
		return framework.NamedRun(name, framework.RunFunc(func(ctx context.Context) error {
			return framework.RunUntilCanceled(ctx, fn)
		}))
	}

	runner := framework.NewRunnerWith(ctx)
	runner.Go(
		pump("rx-pump", func() error { return n.runReceiver(port) }),
		pump("tx-pump", func() error { return n.runTransmitter(port) }),
		thread("protocol", n.protocolLoop),
		thread("led-timer", n.ledLoop),
		thread("heartbeat", n.heartbeatLoop),
	)
	if n.opts.Clock != nil {
		runner.Go(thread("clock", n.clockLoop))
	}
	for i, s := range n.opts.Samplers {
		ch, sampler := i, s
		runner.Go(thread("analog", func() error { return n.analogLoop(ch, sampler) }))
	}
	return runner.Wait()
}
