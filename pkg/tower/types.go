package tower

import (
	"time"

	"github.com/towerlink/tower.go/pkg/comm"
	"github.com/towerlink/tower.go/pkg/sem"
)

// Light identifies one of the board's indicator LEDs.
type Light int

// The reference board's four LEDs.
const (
	Orange Light = iota
	Yellow
	Green
	Blue
)

// Indicator drives the indicator LEDs. Implementations must tolerate
// calls from multiple threads.
type Indicator interface {
	On(Light)
	Off(Light)
	Toggle(Light)
}

// Clock is the real-time clock consumed and set by the time command.
type Clock interface {
	Now() (hours, minutes, seconds byte)
	Set(hours, minutes, seconds byte)
}

// Sampler produces the latest smoothed reading of one analog channel.
// It must not block: it is polled once per sample tick.
type Sampler interface {
	Sample() (int16, bool)
}

// Sender transmits one packet. *Node implements it.
type Sender interface {
	Send(comm.Packet) error
}

// Dispatcher routes a decoded packet to its command handler and reports
// whether it was handled successfully, which decides ACK versus NAK.
type Dispatcher interface {
	Dispatch(s Sender, p comm.Packet) bool
}

// TimerSource creates the interrupt side of timer events. The timers it
// starts signal the given channel from outside thread context; a thread
// blocked in a wait on that channel does the real work.
type TimerSource interface {
	// Periodic signals ch every interval until the returned stop
	// function is called.
	Periodic(interval time.Duration, ch *sem.Semaphore) (stop func())
	// OneShot signals ch once after the delay.
	OneShot(delay time.Duration, ch *sem.Semaphore)
}

// WallTimers implements TimerSource on the runtime clock.
type WallTimers struct{}

// Periodic implements TimerSource.
func (WallTimers) Periodic(interval time.Duration, ch *sem.Semaphore) func() {
	t := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-t.C:
				ch.Signal()
			case <-done:
				return
			}
		}
	}()
	return func() {
		t.Stop()
		close(done)
	}
}

// OneShot implements TimerSource.
func (WallTimers) OneShot(delay time.Duration, ch *sem.Semaphore) {
	time.AfterFunc(delay, ch.Signal)
}

type nopIndicator struct{}

func (nopIndicator) On(Light)     {}
func (nopIndicator) Off(Light)    {}
func (nopIndicator) Toggle(Light) {}
