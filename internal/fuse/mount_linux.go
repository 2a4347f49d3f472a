//go:build linux
// +build linux

// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package fuse

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
	"github.com/ostafen/raidrescue/internal/env"
	"github.com/ostafen/raidrescue/internal/logger"
	osutils "github.com/ostafen/raidrescue/pkg/util/os"
)

// Mount serves the virtual disk read by r as the file name inside mountpoint,
// until a termination signal is received.
func Mount(mountpoint, name string, r io.ReaderAt, size int64, log *logger.Logger) error {
	created, err := PrepareMountpoint(mountpoint)
	if err != nil {
		return err
	}
	if created {
		defer os.Remove(mountpoint)
	}

	c, err := fuse.Mount(mountpoint,
		fuse.FSName(env.AppName),
		fuse.Subtype("raid5"),
		fuse.ReadOnly(),
	)
	if err != nil {
		return fmt.Errorf("failed to mount %s: %w", mountpoint, err)
	}
	defer c.Close()

	dfs := NewDiskFS(name, r, size, log)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- fusefs.New(c, nil).Serve(dfs)
	}()

	log.Infof("Serving %s (%d bytes) at %s", dfs.name, size, mountpoint)
	return waitForUmount(mountpoint, serveErr, log)
}

func waitForUmount(mountpoint string, serveErr <-chan error, log *logger.Logger) error {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)

	log.Info("Waiting for termination signal...")

	const maxUnmountRetries = 3

	unmountAttempts := 0
	for {
		select {
		case err := <-serveErr:
			if err != nil {
				return fmt.Errorf("serve error: %w", err)
			}
			log.Info("File system unmounted, exiting.")
			return nil
		case sig := <-sigc:
			log.Infof("Signal received: %v.", sig)

			if unmountAttempts >= maxUnmountRetries {
				return fmt.Errorf("maximum unmount retries (%d) exceeded, unable to unmount %s", maxUnmountRetries, mountpoint)
			}

			log.Infof("Attempting unmount of %s (attempt %d/%d)...", mountpoint, unmountAttempts+1, maxUnmountRetries)
			err := fuse.Unmount(mountpoint)
			if err == nil {
				log.Info("Unmounted successfully, exiting.")
				return nil
			}

			unmountAttempts++
			log.Warnf("Unmount failed: %v. Remaining retries: %d. Waiting for another signal to retry...", err, maxUnmountRetries-unmountAttempts)
		}
	}
}

// PrepareMountpoint ensures the given path is a valid, empty directory suitable for FUSE mounting.
// It creates the directory if it doesn't exist. Returns `true` if created, `false` otherwise,
// or an error if the path exists but isn't an empty directory.
func PrepareMountpoint(mountpoint string) (bool, error) {
	return osutils.EnsureDir(mountpoint, true)
}
