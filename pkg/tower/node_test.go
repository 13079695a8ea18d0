package tower

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/towerlink/tower.go/pkg/comm"
	"github.com/towerlink/tower.go/pkg/sem"
)

type dispatchFunc func(s Sender, p comm.Packet) bool

func (f dispatchFunc) Dispatch(s Sender, p comm.Packet) bool { return f(s, p) }

// manualTimers hands the periodic channels to the test so ticks happen
// only when the test signals them. One-shots are recorded, not fired.
type manualTimers struct {
	mu       sync.Mutex
	periodic []*sem.Semaphore
	oneShots []*sem.Semaphore
}

func (m *manualTimers) Periodic(interval time.Duration, ch *sem.Semaphore) func() {
	m.mu.Lock()
	m.periodic = append(m.periodic, ch)
	m.mu.Unlock()
	return func() {}
}

func (m *manualTimers) OneShot(delay time.Duration, ch *sem.Semaphore) {
	m.mu.Lock()
	m.oneShots = append(m.oneShots, ch)
	m.mu.Unlock()
}

func (m *manualTimers) periodicCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.periodic)
}

func (m *manualTimers) periodicAt(i int) *sem.Semaphore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.periodic[i]
}

func (m *manualTimers) oneShotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.oneShots)
}

func waitFor(t *testing.T, cond func() bool) {
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition never met")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func startNode(t *testing.T, opts Options) (*Node, net.Conn, func()) {
	opts.Timers = &manualTimers{}
	n := NewNode(opts)
	host, wire := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx, host)
		close(done)
	}()
	return n, wire, func() {
		cancel()
		wire.Close()
		host.Close()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("node did not stop")
		}
	}
}

func readPacket(t *testing.T, conn net.Conn) comm.Packet {
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var dec comm.Decoder
	one := make([]byte, 1)
	for {
		_, err := conn.Read(one)
		require.NoError(t, err)
		if p, ok := dec.Feed(one[0]); ok {
			return p
		}
	}
}

func writeFrame(t *testing.T, conn net.Conn, p comm.Packet) {
	conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	frame := p.Encode()
	_, err := conn.Write(frame[:])
	require.NoError(t, err)
}

func TestAckOnHandledPacket(t *testing.T) {
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool {
		return p.Opcode() == CmdStartup
	})
	_, wire, stop := startNode(t, Options{Dispatcher: disp})
	defer stop()

	writeFrame(t, wire, comm.Packet{Command: CmdStartup | comm.AckMask})
	ack := readPacket(t, wire)
	require.Equal(t, CmdStartup|comm.AckMask, ack.Command)
}

func TestNakOnUnhandledPacket(t *testing.T) {
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool { return false })
	_, wire, stop := startNode(t, Options{Dispatcher: disp})
	defer stop()

	writeFrame(t, wire, comm.Packet{Command: 0x7F | comm.AckMask, Parameter1: 1})
	nak := readPacket(t, wire)
	require.Equal(t, byte(0x7F), nak.Command)
	require.Equal(t, byte(1), nak.Parameter1)
}

func TestNoEchoWithoutAckFlag(t *testing.T) {
	handled := make(chan comm.Packet, 1)
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool {
		handled <- p
		return true
	})
	_, wire, stop := startNode(t, Options{Dispatcher: disp})
	defer stop()

	writeFrame(t, wire, comm.Packet{Command: CmdTowerNumber, Parameter1: 1})
	select {
	case p := <-handled:
		require.Equal(t, CmdTowerNumber, p.Command)
	case <-time.After(3 * time.Second):
		t.Fatal("packet never dispatched")
	}

	// A second frame with the ack flag must be the next thing echoed,
	// proving the first one was not.
	writeFrame(t, wire, comm.Packet{Command: CmdStartup | comm.AckMask})
	<-handled
	echo := readPacket(t, wire)
	require.Equal(t, CmdStartup|comm.AckMask, echo.Command)
}

func TestOnStartBurst(t *testing.T) {
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool { return true })
	opts := Options{
		Dispatcher: disp,
		OnStart: func(snd Sender) {
			snd.Send(comm.Packet{Command: CmdStartup})
			snd.Send(comm.Packet{Command: CmdVersion, Parameter1: 'v', Parameter2: 5})
		},
	}
	_, wire, stop := startNode(t, opts)
	defer stop()

	require.Equal(t, CmdStartup, readPacket(t, wire).Command)
	p := readPacket(t, wire)
	require.Equal(t, CmdVersion, p.Command)
	require.Equal(t, byte('v'), p.Parameter1)
}

func TestInjectReachesDispatcher(t *testing.T) {
	handled := make(chan comm.Packet, 1)
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool {
		handled <- p
		return true
	})
	n, _, stop := startNode(t, Options{Dispatcher: disp})
	defer stop()

	require.NoError(t, n.Inject(comm.Packet{Command: CmdTime, Parameter1: 12, Parameter2: 30}))
	select {
	case p := <-handled:
		require.Equal(t, CmdTime, p.Command)
		require.Equal(t, byte(12), p.Parameter1)
	case <-time.After(3 * time.Second):
		t.Fatal("injected packet never dispatched")
	}
}

func TestResyncOverWire(t *testing.T) {
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool { return true })
	_, wire, stop := startNode(t, Options{Dispatcher: disp})
	defer stop()

	wire.SetWriteDeadline(time.Now().Add(3 * time.Second))
	_, err := wire.Write([]byte{0xDE, 0xAD, 0xBE})
	require.NoError(t, err)
	writeFrame(t, wire, comm.Packet{Command: CmdStartup | comm.AckMask})

	ack := readPacket(t, wire)
	require.Equal(t, CmdStartup|comm.AckMask, ack.Command)
}

type fixedSampler struct {
	values chan int16
	last   int16
}

func (f *fixedSampler) Sample() (int16, bool) {
	select {
	case v := <-f.values:
		f.last = v
	default:
	}
	return f.last, true
}

func TestAnalogPolicyAlways(t *testing.T) {
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool { return true })
	sampler := &fixedSampler{values: make(chan int16, 1), last: 100}
	n, wire, stop := startNode(t, Options{
		Dispatcher: disp,
		Samplers:   []Sampler{sampler},
		Policy:     PolicyAlways,
	})
	defer stop()

	timers := n.opts.Timers.(*manualTimers)
	// Periodic channels register in Run startup order: the sampler
	// channel first, the heartbeat last.
	waitFor(t, func() bool { return timers.periodicCount() == 2 })
	analog := timers.periodicAt(0)

	for i := 0; i < 3; i++ {
		analog.Signal()
		p := readPacket(t, wire)
		require.Equal(t, CmdAnalogInput, p.Command)
		require.Equal(t, byte(0), p.Parameter1)
		require.Equal(t, int16(100), int16(p.Parameter23()))
	}
}

func TestAnalogPolicyOnChange(t *testing.T) {
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool { return true })
	sampler := &fixedSampler{values: make(chan int16, 1), last: 100}
	n, wire, stop := startNode(t, Options{
		Dispatcher: disp,
		Samplers:   []Sampler{sampler},
		Policy:     PolicyOnChange,
	})
	defer stop()

	timers := n.opts.Timers.(*manualTimers)
	waitFor(t, func() bool { return timers.periodicCount() == 2 })
	analog := timers.periodicAt(0)

	analog.Signal()
	first := readPacket(t, wire)
	require.Equal(t, int16(100), int16(first.Parameter23()))

	// Unchanged value: the tick must stay silent. The changed value on
	// the tick after must be the next packet on the wire.
	analog.Signal()
	time.Sleep(50 * time.Millisecond)
	sampler.values <- 250
	analog.Signal()
	second := readPacket(t, wire)
	require.Equal(t, int16(250), int16(second.Parameter23()))
}

func TestSetPolicyTakesEffect(t *testing.T) {
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool { return true })
	n := NewNode(Options{Dispatcher: disp, Policy: PolicyOnChange})
	require.Equal(t, PolicyOnChange, n.Policy())
	n.SetPolicy(PolicyAlways)
	require.Equal(t, PolicyAlways, n.Policy())
}

func TestBlueLedFlashOnPacket(t *testing.T) {
	lit := make(chan Light, 4)
	ind := indicatorFunc{on: func(l Light) { lit <- l }}
	disp := dispatchFunc(func(s Sender, p comm.Packet) bool { return true })
	n, wire, stop := startNode(t, Options{Dispatcher: disp, Indicator: ind})
	defer stop()

	writeFrame(t, wire, comm.Packet{Command: CmdStartup})
	select {
	case l := <-lit:
		require.Equal(t, Blue, l)
	case <-time.After(3 * time.Second):
		t.Fatal("blue LED never lit")
	}
	timers := n.opts.Timers.(*manualTimers)
	waitFor(t, func() bool { return timers.oneShotCount() == 1 })
}

type indicatorFunc struct {
	on     func(Light)
	off    func(Light)
	toggle func(Light)
}

func (i indicatorFunc) On(l Light) {
	if i.on != nil {
		i.on(l)
	}
}

func (i indicatorFunc) Off(l Light) {
	if i.off != nil {
		i.off(l)
	}
}

func (i indicatorFunc) Toggle(l Light) {
	if i.toggle != nil {
		i.toggle(l)
	}
}

func TestPolicyWireEncoding(t *testing.T) {
	require.Equal(t, byte(0), PolicyOnChange.ModeByte())
	require.Equal(t, byte(1), PolicyAlways.ModeByte())
	require.Equal(t, PolicyAlways, PolicyFromModeByte(1))
	require.Equal(t, PolicyOnChange, PolicyFromModeByte(0))

	p, err := ParsePolicy("always")
	require.NoError(t, err)
	require.Equal(t, PolicyAlways, p)
	_, err = ParsePolicy("sometimes")
	require.Error(t, err)
}
