package fslm

import (
	"os"
	"syscall"
)

// MappedFile is a read-only mmap'd view of a file, used to hand each
// training worker its own byte range of the corpus without copying it
// into the heap or contending on a shared file offset.
type MappedFile struct {
	file *os.File
	data []byte
}

// OpenMappedFile mmaps path read-only in its entirety.
func OpenMappedFile(path string) (m *MappedFile, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	data, err := syscall.Mmap(int(f.Fd()), 0, int(stat.Size()), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MappedFile{f, data}, nil
}

func (m *MappedFile) Bytes() []byte { return m.data }
func (m *MappedFile) Size() int64   { return int64(len(m.data)) }

func (m *MappedFile) Close() error {
	err1 := syscall.Munmap(m.data)
	err2 := m.file.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
