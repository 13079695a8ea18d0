package tower

import "fmt"

// Opcodes of the tower serial protocol.
const (
	CmdStartup      byte = 0x04 // startup / get startup values
	CmdFlashProgram byte = 0x07 // program one flash byte, or erase
	CmdFlashRead    byte = 0x08 // read one flash byte
	CmdVersion      byte = 0x09 // special: firmware version
	CmdProtocolMode byte = 0x0A // get/set transmit policy
	CmdTowerNumber  byte = 0x0B // get/set tower number
	CmdTime         byte = 0x0C // time of day
	CmdTowerMode    byte = 0x0D // get/set tower mode
	CmdAnalogInput  byte = 0x50 // analog channel value (transmit only)
)

// TransmitPolicy selects when periodic analog readings go out.
type TransmitPolicy int

const (
	// PolicyOnChange transmits only when the smoothed value changed,
	// the protocol's "asynchronous" mode (wire value 0).
	PolicyOnChange TransmitPolicy = iota
	// PolicyAlways transmits every sample interval, the protocol's
	// "synchronous" mode (wire value 1).
	PolicyAlways
)

// String implements fmt.Stringer.
func (p TransmitPolicy) String() string {
	switch p {
	case PolicyOnChange:
		return "on-change"
	case PolicyAlways:
		return "always"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy parses the configuration spelling of a policy.
func ParsePolicy(s string) (TransmitPolicy, error) {
	switch s {
	case "on-change":
		return PolicyOnChange, nil
	case "always":
		return PolicyAlways, nil
	}
	return 0, fmt.Errorf("tower: unknown transmit policy %q", s)
}

// ModeByte returns the policy's wire encoding in the protocol-mode
// packet.
func (p TransmitPolicy) ModeByte() byte {
	if p == PolicyAlways {
		return 1
	}
	return 0
}

// PolicyFromModeByte decodes the protocol-mode wire value.
func PolicyFromModeByte(b byte) TransmitPolicy {
	if b == 1 {
		return PolicyAlways
	}
	return PolicyOnChange
}
