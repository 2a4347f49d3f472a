//go:build !linux
// +build !linux

package fuse

import (
	"fmt"
	"io"

	"github.com/ostafen/raidrescue/internal/logger"
)

func Mount(mountpoint, name string, r io.ReaderAt, size int64, log *logger.Logger) error {
	return fmt.Errorf("FUSE mount is only supported on Linux")
}
