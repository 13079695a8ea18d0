// Package tower registers the shell commands of the tower protocol.
package tower

import (
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/towerlink/tower.go/pkg/cli/sh"
	"github.com/towerlink/tower.go/pkg/comm"
	"github.com/towerlink/tower.go/pkg/tower"
)

func parseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	return byte(v), err
}

func parseWord(s string) (uint16, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	return uint16(v), err
}

// getSetVar implements the shared get/set shape of the number and mode
// commands.
func getSetVar(c *ishell.Context, cmd byte) {
	if len(c.Args) == 0 {
		sh.Transact(c, comm.Packet{Command: cmd, Parameter1: 1},
			func(p comm.Packet) bool { return p.Opcode() == cmd })
		return
	}
	v, err := parseWord(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	sh.Transact(c, comm.Packet{
		Command:    cmd,
		Parameter1: 2,
		Parameter2: byte(v & 0xFF),
		Parameter3: byte(v >> 8),
	}, nil)
}

var (
	// StartupCmd requests the startup values.
	StartupCmd = ishell.Cmd{
		Name:    "startup",
		Aliases: []string{"s"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.TransactBurst(c, comm.Packet{Command: tower.CmdStartup})
		}),
	}

	// VersionCmd queries the firmware version.
	VersionCmd = ishell.Cmd{
		Name:    "version",
		Aliases: []string{"v"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.Transact(c, comm.Packet{
				Command:    tower.CmdVersion,
				Parameter1: 'v',
				Parameter2: 'x',
				Parameter3: '\r',
			}, func(p comm.Packet) bool { return p.Opcode() == tower.CmdVersion })
		}),
	}

	// NumberCmd gets or sets the tower number.
	NumberCmd = ishell.Cmd{
		Name: "number",
		Help: "[VALUE]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			getSetVar(c, tower.CmdTowerNumber)
		}),
	}

	// ModeCmd gets or sets the tower mode.
	ModeCmd = ishell.Cmd{
		Name: "mode",
		Help: "[VALUE]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			getSetVar(c, tower.CmdTowerMode)
		}),
	}

	// ProtocolCmd gets or sets the transmit policy.
	ProtocolCmd = ishell.Cmd{
		Name: "protocol",
		Help: "[on-change|always]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				sh.Transact(c, comm.Packet{Command: tower.CmdProtocolMode, Parameter1: 1},
					func(p comm.Packet) bool { return p.Opcode() == tower.CmdProtocolMode })
				return
			}
			policy, err := tower.ParsePolicy(c.Args[0])
			if err != nil {
				c.Err(err)
				return
			}
			sh.Transact(c, comm.Packet{
				Command:    tower.CmdProtocolMode,
				Parameter1: 2,
				Parameter2: policy.ModeByte(),
			}, nil)
		}),
	}

	// TimeCmd sets the tower clock, to the given H M S or to now.
	TimeCmd = ishell.Cmd{
		Name: "time",
		Help: "[HOURS MINUTES SECONDS]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			var h, m, s byte
			if len(c.Args) >= 3 {
				var errs [3]error
				h, errs[0] = parseByte(c.Args[0])
				m, errs[1] = parseByte(c.Args[1])
				s, errs[2] = parseByte(c.Args[2])
				for _, err := range errs {
					if err != nil {
						c.Err(err)
						return
					}
				}
			} else {
				now := time.Now()
				h, m, s = byte(now.Hour()), byte(now.Minute()), byte(now.Second())
			}
			sh.Transact(c, comm.Packet{
				Command:    tower.CmdTime,
				Parameter1: h,
				Parameter2: m,
				Parameter3: s,
			}, nil)
		}),
	}

	// FlashCmd reads, writes or erases the settings phrase.
	FlashCmd = ishell.Cmd{
		Name: "flash",
		Help: "read OFFSET | write OFFSET VALUE | erase",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("read, write or erase expected"))
				return
			}
			switch c.Args[0] {
			case "read":
				if len(c.Args) < 2 {
					c.Err(fmt.Errorf("offset expected"))
					return
				}
				off, err := parseByte(c.Args[1])
				if err != nil {
					c.Err(err)
					return
				}
				sh.Transact(c, comm.Packet{Command: tower.CmdFlashRead, Parameter1: off},
					func(p comm.Packet) bool { return p.Opcode() == tower.CmdFlashRead })
			case "write":
				if len(c.Args) < 3 {
					c.Err(fmt.Errorf("offset and value expected"))
					return
				}
				off, err := parseByte(c.Args[1])
				if err == nil {
					var val byte
					if val, err = parseByte(c.Args[2]); err == nil {
						sh.Transact(c, comm.Packet{
							Command:    tower.CmdFlashProgram,
							Parameter1: off,
							Parameter3: val,
						}, nil)
						return
					}
				}
				c.Err(err)
			case "erase":
				sh.Transact(c, comm.Packet{Command: tower.CmdFlashProgram, Parameter1: 8}, nil)
			default:
				c.Err(fmt.Errorf("unknown flash action %q", c.Args[0]))
			}
		}),
	}

	// RawCmd sends an arbitrary frame.
	RawCmd = ishell.Cmd{
		Name: "raw",
		Help: "COMMAND [P1 [P2 [P3]]]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) == 0 {
				c.Err(fmt.Errorf("command byte expected"))
				return
			}
			var p comm.Packet
			dst := []*byte{&p.Command, &p.Parameter1, &p.Parameter2, &p.Parameter3}
			for i, arg := range c.Args {
				if i >= len(dst) {
					break
				}
				v, err := parseByte(arg)
				if err != nil {
					c.Err(err)
					return
				}
				*dst[i] = v
			}
			sh.TransactBurst(c, p)
		}),
	}

	// ListenCmd prints incoming packets for a while.
	ListenCmd = ishell.Cmd{
		Name: "listen",
		Help: "[SECONDS]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			secs := 5
			if len(c.Args) >= 1 {
				v, err := strconv.Atoi(c.Args[0])
				if err != nil {
					c.Err(err)
					return
				}
				secs = v
			}
			s := sh.ShellFrom(c)
			deadline := time.After(time.Duration(secs) * time.Second)
			for {
				select {
				case p, ok := <-s.Link.Recv():
					if !ok {
						c.Err(fmt.Errorf("connection lost"))
						return
					}
					s.PrintPacket(c, p)
				case <-deadline:
					return
				}
			}
		}),
	}
)

func init() {
	sh.AddCmds(
		&StartupCmd,
		&VersionCmd,
		&NumberCmd,
		&ModeCmd,
		&ProtocolCmd,
		&TimeCmd,
		&FlashCmd,
		&RawCmd,
		&ListenCmd,
	)
}
