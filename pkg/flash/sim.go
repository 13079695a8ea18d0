package flash

import "sync"

// SimDevice models the flash controller in memory for hosted builds
// and tests. It holds a single phrase, starts erased, and is strict
// about the hardware's physics: programming can only clear bits, so a
// program that would set a cleared bit fails with ErrAccessError
// instead of silently corrupting.
type SimDevice struct {
	// Base is the address of the simulated phrase.
	Base uint32
	// WriteProtected makes program and erase fail with
	// ErrProtectionViolation, for exercising the error path.
	WriteProtected bool
	// BusyCycles makes each command appear busy for that many status
	// polls before completing.
	BusyCycles int

	mu      sync.Mutex
	phrase  uint64
	pending int
}

// NewSimDevice creates an erased simulated device at address 0.
func NewSimDevice() *SimDevice {
	return &SimDevice{phrase: ^uint64(0)}
}

// ReadPhrase implements Device.
func (d *SimDevice) ReadPhrase(addr uint32) (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if addr != d.Base {
		return 0, ErrAccessError
	}
	return d.phrase, nil
}

// Launch implements Device. It polls the simulated busy flag the way
// the driver polls the hardware's command-completion flag.
func (d *SimDevice) Launch(cmd Command, addr uint32, data uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = d.BusyCycles
	if err := waitReady(d.ready); err != nil {
		return err
	}
	if addr != d.Base {
		return ErrAccessError
	}
	switch cmd {
	case EraseSector:
		if d.WriteProtected {
			return ErrProtectionViolation
		}
		d.phrase = ^uint64(0)
		return nil
	case ProgramPhrase:
		if d.WriteProtected {
			return ErrProtectionViolation
		}
		if data&^d.phrase != 0 {
			// Programming would set bits the erase did not leave
			// set. Real hardware cannot do that.
			return ErrAccessError
		}
		d.phrase = data
		return nil
	default:
		return ErrAccessError
	}
}

func (d *SimDevice) ready() bool {
	if d.pending > 0 {
		d.pending--
		return false
	}
	return true
}
