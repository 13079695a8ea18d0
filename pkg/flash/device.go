package flash

// Command is a device command opcode. The values mirror the FTFE
// command set of the reference hardware.
type Command byte

const (
	// ProgramPhrase programs 8 bytes into the flash block.
	ProgramPhrase Command = 0x07
	// EraseSector erases every byte in the containing sector.
	EraseSector Command = 0x09
)

// Device is the command primitive the store drives. Launch blocks until
// the hardware reports completion and surfaces the protection and
// access error flags as ErrProtectionViolation and ErrAccessError.
type Device interface {
	Launch(cmd Command, addr uint32, data uint64) error
	ReadPhrase(addr uint32) (uint64, error)
}

// readyAttempts bounds the command-completion poll. Completion is a
// sub-microsecond hardware delay, not a scheduling point; running out
// of attempts means the device is wedged.
const readyAttempts = 1000000

// waitReady polls the ready predicate until it reports true, up to a
// fixed number of attempts.
func waitReady(ready func() bool) error {
	for i := 0; i < readyAttempts; i++ {
		if ready() {
			return nil
		}
	}
	return ErrNotReady
}
