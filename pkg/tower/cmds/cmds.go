package cmds

import (
	"github.com/golang/glog"

	"github.com/towerlink/tower.go/pkg/comm"
	"github.com/towerlink/tower.go/pkg/flash"
	"github.com/towerlink/tower.go/pkg/tower"
)

// Factory defaults, applied when the store reads back erased.
const (
	DefaultTowerNumber uint16 = 4718
	DefaultTowerMode   uint16 = 1
)

// PolicyStore exposes the node's transmit policy to the protocol-mode
// command. *tower.Node implements it.
type PolicyStore interface {
	Policy() tower.TransmitPolicy
	SetPolicy(tower.TransmitPolicy)
}

// Config assembles a command set.
type Config struct {
	// Store persists the tower number and mode. Required.
	Store *flash.Store
	// Clock backs the time command. Optional; without it the time
	// command fails.
	Clock tower.Clock
	// Policy backs the protocol-mode command. Optional.
	Policy PolicyStore
	// VersionMajor and VersionMinor report in the version command.
	VersionMajor byte
	VersionMinor byte
	// DefaultNumber overrides DefaultTowerNumber when non-zero.
	DefaultNumber uint16
	// DefaultMode overrides DefaultTowerMode when non-zero.
	DefaultMode uint16
}

// Set is the command dispatcher. It implements tower.Dispatcher.
type Set struct {
	store  *flash.Store
	clock  tower.Clock
	policy PolicyStore

	verMajor byte
	verMinor byte

	numberAddr uint32
	modeAddr   uint32
}

// New allocates the persistent variables and seeds them with defaults
// when the store reads back erased.
func New(cfg Config) (*Set, error) {
	number := cfg.DefaultNumber
	if number == 0 {
		number = DefaultTowerNumber
	}
	mode := cfg.DefaultMode
	if mode == 0 {
		mode = DefaultTowerMode
	}
	numberAddr, err := cfg.Store.AllocateWithDefault(2, uint32(number))
	if err != nil {
		return nil, err
	}
	modeAddr, err := cfg.Store.AllocateWithDefault(2, uint32(mode))
	if err != nil {
		return nil, err
	}
	return &Set{
		store:      cfg.Store,
		clock:      cfg.Clock,
		policy:     cfg.Policy,
		verMajor:   cfg.VersionMajor,
		verMinor:   cfg.VersionMinor,
		numberAddr: numberAddr,
		modeAddr:   modeAddr,
	}, nil
}

// Number reads the persisted tower number.
func (c *Set) Number() (uint16, error) { return c.store.Read16(c.numberAddr) }

// Mode reads the persisted tower mode.
func (c *Set) Mode() (uint16, error) { return c.store.Read16(c.modeAddr) }

// Startup transmits the startup burst: the startup confirmation
// followed by the version, tower number, tower mode and protocol mode.
func (c *Set) Startup(snd tower.Sender) bool {
	ok := snd.Send(comm.Packet{Command: tower.CmdStartup}) == nil
	ok = c.sendVersion(snd) && ok
	ok = c.sendVar(snd, tower.CmdTowerNumber, c.numberAddr) && ok
	ok = c.sendVar(snd, tower.CmdTowerMode, c.modeAddr) && ok
	ok = c.sendProtocolMode(snd) && ok
	return ok
}

// Dispatch implements tower.Dispatcher.
func (c *Set) Dispatch(snd tower.Sender, p comm.Packet) bool {
	switch p.Opcode() {
	case tower.CmdStartup:
		if p.Parameter1 != 0 || p.Parameter2 != 0 || p.Parameter3 != 0 {
			return false
		}
		return c.Startup(snd)
	case tower.CmdVersion:
		if p.Parameter1 != 'v' || p.Parameter2 != 'x' || p.Parameter3 != '\r' {
			return false
		}
		return c.sendVersion(snd)
	case tower.CmdTowerNumber:
		return c.handleVar(snd, p, tower.CmdTowerNumber, c.numberAddr)
	case tower.CmdTowerMode:
		return c.handleVar(snd, p, tower.CmdTowerMode, c.modeAddr)
	case tower.CmdProtocolMode:
		return c.handleProtocolMode(snd, p)
	case tower.CmdTime:
		return c.handleTime(p)
	case tower.CmdFlashProgram:
		return c.handleFlashProgram(p)
	case tower.CmdFlashRead:
		return c.handleFlashRead(snd, p)
	}
	return false
}

func (c *Set) sendVersion(snd tower.Sender) bool {
	return snd.Send(comm.Packet{
		Command:    tower.CmdVersion,
		Parameter1: 'v',
		Parameter2: c.verMajor,
		Parameter3: c.verMinor,
	}) == nil
}

func (c *Set) sendVar(snd tower.Sender, cmd byte, addr uint32) bool {
	v, err := c.store.Read16(addr)
	if err != nil {
		glog.Warningf("read %#02x variable: %v", cmd, err)
		return false
	}
	return snd.Send(comm.Packet{
		Command:    cmd,
		Parameter1: 1,
		Parameter2: byte(v & 0xFF),
		Parameter3: byte(v >> 8),
	}) == nil
}

// handleVar implements the shared get/set shape of the tower-number and
// tower-mode commands: parameter 1 selects get (1) or set (2), and a
// set carries the new value little-endian in parameters 2 and 3.
func (c *Set) handleVar(snd tower.Sender, p comm.Packet, cmd byte, addr uint32) bool {
	switch p.Parameter1 {
	case 1:
		if p.Parameter2 != 0 || p.Parameter3 != 0 {
			return false
		}
		return c.sendVar(snd, cmd, addr)
	case 2:
		if err := c.store.Write16(addr, p.Parameter23()); err != nil {
			glog.Warningf("write %#02x variable: %v", cmd, err)
			return false
		}
		return true
	}
	return false
}

func (c *Set) sendProtocolMode(snd tower.Sender) bool {
	if c.policy == nil {
		return false
	}
	return snd.Send(comm.Packet{
		Command:    tower.CmdProtocolMode,
		Parameter1: 1,
		Parameter2: c.policy.Policy().ModeByte(),
	}) == nil
}

func (c *Set) handleProtocolMode(snd tower.Sender, p comm.Packet) bool {
	if c.policy == nil {
		return false
	}
	switch p.Parameter1 {
	case 1:
		if p.Parameter2 != 0 || p.Parameter3 != 0 {
			return false
		}
		return c.sendProtocolMode(snd)
	case 2:
		if p.Parameter2 > 1 || p.Parameter3 != 0 {
			return false
		}
		c.policy.SetPolicy(tower.PolicyFromModeByte(p.Parameter2))
		return true
	}
	return false
}

func (c *Set) handleTime(p comm.Packet) bool {
	if c.clock == nil {
		return false
	}
	if p.Parameter1 > 23 || p.Parameter2 > 59 || p.Parameter3 > 59 {
		return false
	}
	c.clock.Set(p.Parameter1, p.Parameter2, p.Parameter3)
	return true
}

// handleFlashProgram writes one byte at the offset in parameter 1.
// Offset 8 erases the whole sector instead.
func (c *Set) handleFlashProgram(p comm.Packet) bool {
	if p.Parameter1 > flash.PhraseSize || p.Parameter2 != 0 {
		return false
	}
	if p.Parameter1 == flash.PhraseSize {
		if err := c.store.Erase(); err != nil {
			glog.Warningf("erase sector: %v", err)
			return false
		}
		return true
	}
	if err := c.store.Write8(c.store.Base()+uint32(p.Parameter1), p.Parameter3); err != nil {
		glog.Warningf("program byte %d: %v", p.Parameter1, err)
		return false
	}
	return true
}

func (c *Set) handleFlashRead(snd tower.Sender, p comm.Packet) bool {
	if p.Parameter1 >= flash.PhraseSize || p.Parameter2 != 0 || p.Parameter3 != 0 {
		return false
	}
	v, err := c.store.Read8(c.store.Base() + uint32(p.Parameter1))
	if err != nil {
		glog.Warningf("read byte %d: %v", p.Parameter1, err)
		return false
	}
	return snd.Send(comm.Packet{
		Command:    tower.CmdFlashRead,
		Parameter1: p.Parameter1,
		Parameter3: v,
	}) == nil
}
