package flash

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimProgramCannotSetBits(t *testing.T) {
	dev := NewSimDevice()
	require.NoError(t, dev.Launch(ProgramPhrase, 0, 0x00FF))

	// Without an erase, programming may only clear bits.
	err := dev.Launch(ProgramPhrase, 0, 0xFF00)
	require.Equal(t, ErrAccessError, err)

	// Clearing more bits is fine.
	require.NoError(t, dev.Launch(ProgramPhrase, 0, 0x000F))

	require.NoError(t, dev.Launch(EraseSector, 0, 0))
	v, err := dev.ReadPhrase(0)
	require.NoError(t, err)
	require.Equal(t, ^uint64(0), v)
}

func TestSimRejectsWrongAddress(t *testing.T) {
	dev := NewSimDevice()
	_, err := dev.ReadPhrase(8)
	require.Equal(t, ErrAccessError, err)
	require.Equal(t, ErrAccessError, dev.Launch(EraseSector, 8, 0))
}

func TestSimRejectsUnknownCommand(t *testing.T) {
	dev := NewSimDevice()
	require.Equal(t, ErrAccessError, dev.Launch(Command(0x40), 0, 0))
}

func TestFileDevicePersists(t *testing.T) {
	dir, err := ioutil.TempDir("", "flash")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "phrase.bin")

	dev, err := OpenFileDevice(path)
	require.NoError(t, err)
	s := New(dev, 0)
	addr, err := s.AllocateWithDefault(2, 4718)
	require.NoError(t, err)

	// A fresh device over the same file sees the stored value, so the
	// default is not applied again.
	dev2, err := OpenFileDevice(path)
	require.NoError(t, err)
	s2 := New(dev2, 0)
	addr2, err := s2.AllocateWithDefault(2, 1)
	require.NoError(t, err)
	require.Equal(t, addr, addr2)
	v, err := s2.Read16(addr2)
	require.NoError(t, err)
	require.Equal(t, uint16(4718), v)
}
