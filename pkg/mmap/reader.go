// Package mmap memory-maps dump files so large COPY BINARY captures
// reach the decoder without being read into heap memory first.
package mmap

import (
	"os"

	"github.com/ajitpratap0/quasar/pkg/errors"
)

// File is a read-only memory-mapped file. The bytes stay valid until
// Close; the decoder copies every payload it keeps, so callers may
// close as soon as decoding returns.
type File struct {
	file *os.File
	data []byte
}

// Open maps path read-only and advises the kernel of sequential access,
// the decoder's read pattern. An empty file maps to zero bytes so the
// decoder reports the malformed stream itself.
func Open(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to open dump file")
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to stat dump file")
	}

	size := stat.Size()
	if size == 0 {
		return &File{file: file}, nil
	}

	data, err := mmap(int(file.Fd()), 0, int(size), ProtRead, MapShared)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeIO, "failed to map dump file").
			WithDetail("size", size)
	}

	// Advisory only; mapping works the same without it.
	_ = madvise(data, MadvSequential)

	return &File{file: file, data: data}, nil
}

// Bytes returns the mapped contents without copying.
func (f *File) Bytes() []byte {
	return f.data
}

// Size returns the mapped length in bytes.
func (f *File) Size() int64 {
	return int64(len(f.data))
}

// Close unmaps and closes the file. Close is idempotent; the mapped
// bytes must not be used afterwards.
func (f *File) Close() error {
	var err error

	if f.data != nil {
		err = munmap(f.data)
		f.data = nil
	}

	if f.file != nil {
		if closeErr := f.file.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		f.file = nil
	}

	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeIO, "failed to unmap dump file")
	}
	return nil
}
