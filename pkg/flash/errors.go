package flash

import "errors"

var (
	// ErrInvalidSize indicates a size other than 1, 2 or 4 bytes.
	ErrInvalidSize = errors.New("flash: variable size must be 1, 2 or 4 bytes")
	// ErrNoFreeSlot indicates no aligned contiguous run of free bytes
	// remains in the managed phrase.
	ErrNoFreeSlot = errors.New("flash: no free allocation slot")
	// ErrOutOfRange indicates an address outside the managed phrase or
	// not aligned to the access size.
	ErrOutOfRange = errors.New("flash: address unaligned or out of range")
	// ErrProtectionViolation is the device's protection error flag.
	ErrProtectionViolation = errors.New("flash: protection violation")
	// ErrAccessError is the device's access error flag.
	ErrAccessError = errors.New("flash: access error")
	// ErrNotReady indicates the device never reported command
	// completion.
	ErrNotReady = errors.New("flash: device not ready")
)
