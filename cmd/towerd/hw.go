package main

import (
	"hash/fnv"
	"math"
	"sync"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/towerlink/tower.go/pkg/tower"
	"github.com/towerlink/tower.go/pkg/tower/cmds"
)

// defaultTowerNumber derives a stable per-host tower number from the
// machine identity, so unconfigured nodes on one network do not
// collide.
func defaultTowerNumber() uint16 {
	id, err := machineid.ID()
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return cmds.DefaultTowerNumber
	}
	h := fnv.New32a()
	h.Write([]byte(id))
	if n := uint16(h.Sum32()); n != 0 {
		return n
	}
	return cmds.DefaultTowerNumber
}

// sysClock is the host stand-in for the RTC: it tracks the system
// clock plus the offset established by the last time command.
type sysClock struct {
	mu  sync.Mutex
	off time.Duration
}

func (c *sysClock) Now() (byte, byte, byte) {
	c.mu.Lock()
	off := c.off
	c.mu.Unlock()
	t := time.Now().Add(off)
	return byte(t.Hour()), byte(t.Minute()), byte(t.Second())
}

func (c *sysClock) Set(h, m, s byte) {
	now := time.Now()
	target := time.Date(now.Year(), now.Month(), now.Day(),
		int(h), int(m), int(s), 0, now.Location())
	c.mu.Lock()
	c.off = target.Sub(now)
	c.mu.Unlock()
}

var lightNames = [...]string{"orange", "yellow", "green", "blue"}

// logIndicator stands in for the LEDs, logging transitions.
type logIndicator struct {
	mu  sync.Mutex
	lit [len(lightNames)]bool
}

func newLogIndicator() *logIndicator { return &logIndicator{} }

func (l *logIndicator) On(light tower.Light)  { l.set(light, true) }
func (l *logIndicator) Off(light tower.Light) { l.set(light, false) }

func (l *logIndicator) Toggle(light tower.Light) {
	l.mu.Lock()
	on := !l.lit[light]
	l.lit[light] = on
	l.mu.Unlock()
	glog.V(3).Infof("led %s %v", lightNames[light], on)
}

func (l *logIndicator) set(light tower.Light, on bool) {
	l.mu.Lock()
	l.lit[light] = on
	l.mu.Unlock()
	glog.V(3).Infof("led %s %v", lightNames[light], on)
}

// simSampler is the host stand-in for one ADC channel: a slow sine
// centered mid-scale on a 10-bit range, phase-shifted per channel.
type simSampler struct {
	channel int
	start   time.Time
}

func newSimSampler(channel int) *simSampler {
	return &simSampler{channel: channel, start: time.Now()}
}

func (s *simSampler) Sample() (int16, bool) {
	t := time.Since(s.start).Seconds()
	v := 512 + 511*math.Sin(2*math.Pi*t/10+float64(s.channel)*math.Pi/2)
	return int16(v), true
}
