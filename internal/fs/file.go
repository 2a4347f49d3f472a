package fs

import (
	"io"
	"os"
)

type File interface {
	io.ReadCloser
	io.ReaderAt
	Stat() (os.FileInfo, error)
}

// AccessPattern is a hint about how a file is going to be read.
type AccessPattern int

const (
	Normal AccessPattern = iota
	Sequential
	Random
)

func (p AccessPattern) String() string {
	switch p {
	case Sequential:
		return "sequential"
	case Random:
		return "random"
	}
	return "normal"
}
