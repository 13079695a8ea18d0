// Package sh provides the ishell backed interactive shell talking the
// tower serial protocol over a serial device or a TCP connection.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/tarm/serial"

	"github.com/towerlink/tower.go/pkg/comm"
	"github.com/towerlink/tower.go/pkg/tower"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	AutoConnect bool

	Shell  *ishell.Shell
	Target string
	Baud   int
	Link   *Link
}

const (
	shellKey          = "$shell"
	unconnectedPrompt = "[none] > "

	// ResponseTimeout bounds one command round trip.
	ResponseTimeout = time.Second
	// BurstQuiet is how long the line must stay idle before a multi
	// packet response is considered complete.
	BurstQuiet = 500 * time.Millisecond
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	target     string
	baud       = 115200

	// commands
	commands = []*ishell.Cmd{
		&ConnectCmd,
		&DisconnectCmd,
	}
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.StringVar(&target, "connect", target, "Tower address: host:port or serial device path.")
	flag.IntVar(&baud, "baud", baud, "Serial baud rate.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New() *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:  ishell.New(),
		Target: target,
		Baud:   baud,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(unconnectedPrompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected wraps command func requires a connection.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Link == nil {
			c.Err(fmt.Errorf("not connected"))
			return
		}
		fn(c)
	}
}

// Dial opens the wire to a tower. A path-like target opens a serial
// port; anything else dials TCP.
func Dial(target string, baud int) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(target, "serial:") || strings.HasPrefix(target, "/") {
		dev := strings.TrimPrefix(target, "serial:")
		return serial.OpenPort(&serial.Config{Name: dev, Baud: baud})
	}
	return net.Dial("tcp", strings.TrimPrefix(target, "tcp://"))
}

// Connect dials the target and starts the receive loop.
func (s *Shell) Connect(target string) error {
	conn, err := Dial(target, s.Baud)
	if err != nil {
		return err
	}
	if s.Link != nil {
		s.Link.Close()
	}
	s.Link = OpenLink(conn)
	s.Target = target
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", target))
	return nil
}

// Disconnect closes the current link.
func (s *Shell) Disconnect() {
	if s.Link != nil {
		s.Link.Close()
		s.Link = nil
		s.Shell.SetPrompt(unconnectedPrompt)
	}
}

// PrintPacket prints one received packet.
func (s *Shell) PrintPacket(c *ishell.Context, p comm.Packet) {
	if s.OutputJSON {
		out, err := json.Marshal(map[string]interface{}{
			"command":    p.Command,
			"parameter1": p.Parameter1,
			"parameter2": p.Parameter2,
			"parameter3": p.Parameter3,
		})
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	c.Println(FormatPacket(p))
}

// FormatPacket renders a packet into a friendly string for display.
func FormatPacket(p comm.Packet) string {
	switch p.Opcode() {
	case tower.CmdStartup:
		return "startup"
	case tower.CmdVersion:
		return fmt.Sprintf("version %c%d.%d", p.Parameter1, p.Parameter2, p.Parameter3)
	case tower.CmdTowerNumber:
		return fmt.Sprintf("number %d", p.Parameter23())
	case tower.CmdTowerMode:
		return fmt.Sprintf("mode %d", p.Parameter23())
	case tower.CmdProtocolMode:
		return fmt.Sprintf("protocol %s", tower.PolicyFromModeByte(p.Parameter2))
	case tower.CmdTime:
		return fmt.Sprintf("time %02d:%02d:%02d", p.Parameter1, p.Parameter2, p.Parameter3)
	case tower.CmdFlashRead:
		return fmt.Sprintf("flash[%d] = %#02x", p.Parameter1, p.Parameter3)
	case tower.CmdAnalogInput:
		return fmt.Sprintf("analog[%d] = %d", p.Parameter1, int16(p.Parameter23()))
	}
	return fmt.Sprintf("%#02x % 02x", p.Command,
		[]byte{p.Parameter1, p.Parameter2, p.Parameter3})
}

// Transact sends p with the ACK flag and waits for the echo. The tower
// sends the response selected by match before the echo, so both are
// consumed; the response prints on success, a bare OK otherwise.
func Transact(c *ishell.Context, p comm.Packet, match func(comm.Packet) bool) {
	s := ShellFrom(c)
	p.Command |= comm.AckMask
	if err := s.Link.Send(p); err != nil {
		c.Err(err)
		return
	}
	deadline := time.After(ResponseTimeout)
	var res *comm.Packet
	for {
		select {
		case r := <-s.Link.Recv():
			switch r {
			case p.Ack(true):
				if res != nil {
					s.PrintPacket(c, *res)
				} else {
					c.Println("OK")
				}
				return
			case p.Ack(false):
				c.Err(fmt.Errorf("rejected: %s", FormatPacket(p)))
				return
			default:
				if match != nil && match(r) {
					res = &r
				}
			}
		case <-deadline:
			if res != nil {
				s.PrintPacket(c, *res)
				return
			}
			c.Err(fmt.Errorf("command timeout"))
			return
		}
	}
}

// TransactBurst sends p with the ACK flag and prints everything that
// comes back before the echo. The echo trails the whole burst, so it
// terminates the print loop; a quiet timeout covers a lost echo. No
// attempt is made to spot a rejection: a NAK echo is byte-identical to
// a legitimate burst member for zero-parameter commands.
func TransactBurst(c *ishell.Context, p comm.Packet) {
	s := ShellFrom(c)
	p.Command |= comm.AckMask
	if err := s.Link.Send(p); err != nil {
		c.Err(err)
		return
	}
	for {
		select {
		case r := <-s.Link.Recv():
			if r == p.Ack(true) {
				return
			}
			s.PrintPacket(c, r)
		case <-time.After(BurstQuiet):
			return
		}
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect && s.Target != "" {
		if s.Interactive {
			s.Shell.Printf("Connecting %s ...\n", s.Target)
		}
		if err := s.Connect(s.Target); err != nil {
			log.Fatalf("connect %q failed: %v", s.Target, err)
		}
	}

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

var (
	// ConnectCmd connects a tower.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "HOST:PORT | DEVICE",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			target := s.Target
			if len(c.Args) >= 1 {
				target = c.Args[0]
			}
			if target == "" {
				c.Err(fmt.Errorf("no tower address"))
				return
			}
			if err := s.Connect(target); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects the current tower.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	s := New()
	s.AutoConnect = true
	s.Run(flag.Args()...)
}
