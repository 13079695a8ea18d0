package flash

import "sync"

// PhraseSize is the program/erase granularity in bytes.
const PhraseSize = 8

// Store allocates variables out of one managed phrase and performs the
// read-modify-erase-program cycle for writes. The erase+program pair
// runs under one mutex: an interleaved erase from a second writer
// mid-program would corrupt the phrase.
//
// Byte offset 0 of the phrase is the least significant byte of the
// 64-bit phrase value (little-endian, matching the reference part).
type Store struct {
	dev  Device
	base uint32

	mu        sync.Mutex
	allocated uint8 // one bit per byte offset within the phrase
}

// New creates a store over dev managing the phrase at base. base must
// be phrase-aligned.
func New(dev Device, base uint32) *Store {
	if base%PhraseSize != 0 {
		panic("flash: base not phrase-aligned")
	}
	return &Store{dev: dev, base: base}
}

// Base returns the address of the managed phrase.
func (s *Store) Base() uint32 { return s.base }

// Allocate claims size bytes (1, 2 or 4) within the phrase, first-fit
// at offsets aligned to size, and returns the variable's address.
// Allocations are never freed.
func (s *Store) Allocate(size int) (uint32, error) {
	if size != 1 && size != 2 && size != 4 {
		return 0, ErrInvalidSize
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	mask := uint8(1)<<uint(size) - 1
	for off := 0; off+size <= PhraseSize; off += size {
		window := mask << uint(off)
		if s.allocated&window == 0 {
			s.allocated |= window
			return s.base + uint32(off), nil
		}
	}
	return 0, ErrNoFreeSlot
}

// AllocateWithDefault allocates a variable and, when its erased value
// still reads as the all-ones sentinel, writes def. It is the
// get-or-initialize path used while establishing configuration at
// startup.
func (s *Store) AllocateWithDefault(size int, def uint32) (uint32, error) {
	addr, err := s.Allocate(size)
	if err != nil {
		return 0, err
	}
	cur, err := s.read(addr, size)
	if err != nil {
		return 0, err
	}
	if cur == uint64(1)<<uint(size*8)-1 {
		if err := s.write(addr, uint64(def), size); err != nil {
			return 0, err
		}
	}
	return addr, nil
}

// Write8 writes a byte-sized variable.
func (s *Store) Write8(addr uint32, v uint8) error { return s.write(addr, uint64(v), 1) }

// Write16 writes a half-word variable.
func (s *Store) Write16(addr uint32, v uint16) error { return s.write(addr, uint64(v), 2) }

// Write32 writes a word variable.
func (s *Store) Write32(addr uint32, v uint32) error { return s.write(addr, uint64(v), 4) }

// Read8 reads a byte-sized variable.
func (s *Store) Read8(addr uint32) (uint8, error) {
	v, err := s.read(addr, 1)
	return uint8(v), err
}

// Read16 reads a half-word variable.
func (s *Store) Read16(addr uint32) (uint16, error) {
	v, err := s.read(addr, 2)
	return uint16(v), err
}

// Read32 reads a word variable.
func (s *Store) Read32(addr uint32) (uint32, error) {
	v, err := s.read(addr, 4)
	return uint32(v), err
}

// Erase erases the managed sector. The allocation bitmap is
// process-lifetime state and is deliberately left untouched.
func (s *Store) Erase() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dev.Launch(EraseSector, s.base, 0)
}

func (s *Store) checkRange(addr uint32, size int) error {
	if addr < s.base || addr+uint32(size) > s.base+PhraseSize || addr%uint32(size) != 0 {
		return ErrOutOfRange
	}
	return nil
}

func (s *Store) read(addr uint32, size int) (uint64, error) {
	if err := s.checkRange(addr, size); err != nil {
		return 0, err
	}
	phrase, err := s.dev.ReadPhrase(s.base)
	if err != nil {
		return 0, err
	}
	shift := uint(addr-s.base) * 8
	mask := uint64(1)<<uint(size*8) - 1
	return (phrase >> shift) & mask, nil
}

func (s *Store) write(addr uint32, data uint64, size int) error {
	if err := s.checkRange(addr, size); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	phrase, err := s.dev.ReadPhrase(s.base)
	if err != nil {
		return err
	}
	shift := uint(addr-s.base) * 8
	mask := uint64(1)<<uint(size*8) - 1
	phrase = phrase&^(mask<<shift) | (data&mask)<<shift
	if err := s.dev.Launch(EraseSector, s.base, 0); err != nil {
		return err
	}
	return s.dev.Launch(ProgramPhrase, s.base, phrase)
}
