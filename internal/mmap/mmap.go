//go:build linux || darwin || freebsd
// +build linux darwin freebsd

package mmap

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// MmapFile is a read-only mapping of a whole image file.
type MmapFile struct {
	Data     []byte   // The memory-mapped byte slice
	File     *os.File // The underlying opened file
	FileSize int64    // Total size of the underlying file
}

// Open maps filePath read-only. random selects MADV_RANDOM over
// MADV_SEQUENTIAL for the mapped region.
func Open(filePath string, random bool) (*MmapFile, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %q: %w", filePath, err)
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to get file info for %q: %w", filePath, err)
	}
	fileSize := fi.Size()

	if fileSize == 0 {
		f.Close()
		return nil, fmt.Errorf("file %q is empty, cannot mmap", filePath)
	}
	if int64(int(fileSize)) != fileSize {
		f.Close()
		return nil, fmt.Errorf("file %q is too large to be mapped on this platform", filePath)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(fileSize), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to mmap file %q with length %d: %w", filePath, fileSize, err)
	}

	advice := unix.MADV_SEQUENTIAL
	if random {
		advice = unix.MADV_RANDOM
	}
	_ = unix.Madvise(data, advice)

	return &MmapFile{
		Data:     data,
		File:     f,
		FileSize: fileSize,
	}, nil
}

func (mr *MmapFile) ReadAt(p []byte, off int64) (int, error) {
	if mr.Data == nil {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("mmap: negative offset %d", off)
	}
	if off >= mr.FileSize {
		return 0, io.EOF
	}

	n := copy(p, mr.Data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (mr *MmapFile) Size() int64 {
	return mr.FileSize
}

func (mr *MmapFile) Close() error {
	var err error
	if mr.Data != nil {
		err = unix.Munmap(mr.Data)
		if err != nil {
			return fmt.Errorf("failed to munmap: %w", err)
		}
		mr.Data = nil
	}

	if mr.File != nil {
		if closeErr := mr.File.Close(); closeErr != nil {
			return fmt.Errorf("failed to close file: %w", closeErr)
		}
		mr.File = nil
	}
	return nil
}
