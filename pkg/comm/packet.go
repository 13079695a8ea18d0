package comm

// FrameSize is the wire size of one packet including the checksum.
const FrameSize = 5

// AckMask selects the acknowledgement-request bit of the command byte.
const AckMask byte = 0x80

// Packet is one decoded protocol unit. The fifth wire byte, the
// checksum, is implicit.
type Packet struct {
	Command    byte
	Parameter1 byte
	Parameter2 byte
	Parameter3 byte
}

// Opcode returns the command with the acknowledgement bit cleared.
func (p Packet) Opcode() byte { return p.Command &^ AckMask }

// AckRequested reports whether the sender asked for an acknowledgement.
func (p Packet) AckRequested() bool { return p.Command&AckMask != 0 }

// Ack builds the acknowledgement echo for p: the payload bytes are
// unchanged and bit 7 of the command reports success.
func (p Packet) Ack(ok bool) Packet {
	cmd := p.Command &^ AckMask
	if ok {
		cmd |= AckMask
	}
	return Packet{cmd, p.Parameter1, p.Parameter2, p.Parameter3}
}

// Checksum computes the XOR checksum over the four payload bytes.
func (p Packet) Checksum() byte {
	return p.Command ^ p.Parameter1 ^ p.Parameter2 ^ p.Parameter3
}

// Encode returns the wire bytes for p.
func (p Packet) Encode() [FrameSize]byte {
	return [FrameSize]byte{p.Command, p.Parameter1, p.Parameter2, p.Parameter3, p.Checksum()}
}

// Parameter23 returns parameters 2 and 3 as one little-endian 16-bit
// value, the layout used by the set-style commands.
func (p Packet) Parameter23() uint16 {
	return uint16(p.Parameter2) | uint16(p.Parameter3)<<8
}
