package flash

import (
	"encoding/binary"
	"io/ioutil"
	"os"
)

// FileDevice is a SimDevice whose phrase persists to a file, giving the
// hosted node storage that survives restarts. A missing file reads as
// erased.
type FileDevice struct {
	sim  *SimDevice
	path string
}

// OpenFileDevice loads (or initializes) the phrase stored at path.
func OpenFileDevice(path string) (*FileDevice, error) {
	d := &FileDevice{sim: NewSimDevice(), path: path}
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return d, nil
	}
	if err != nil {
		return nil, err
	}
	if len(raw) == PhraseSize {
		d.sim.phrase = binary.LittleEndian.Uint64(raw)
	}
	return d, nil
}

// ReadPhrase implements Device.
func (d *FileDevice) ReadPhrase(addr uint32) (uint64, error) {
	return d.sim.ReadPhrase(addr)
}

// Launch implements Device, flushing the phrase to disk after every
// successful command.
func (d *FileDevice) Launch(cmd Command, addr uint32, data uint64) error {
	if err := d.sim.Launch(cmd, addr, data); err != nil {
		return err
	}
	return d.flush()
}

func (d *FileDevice) flush() error {
	var raw [PhraseSize]byte
	phrase, err := d.sim.ReadPhrase(d.sim.Base)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(raw[:], phrase)
	return ioutil.WriteFile(d.path, raw[:], 0644)
}
