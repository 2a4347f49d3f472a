//go:build linux || darwin || freebsd

package mmap_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ostafen/raidrescue/internal/mmap"
	"github.com/stretchr/testify/require"
)

func TestReadAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk0.img")
	data := []byte("0123456789abcdefghij")
	require.NoError(t, os.WriteFile(path, data, 0644))

	mf, err := mmap.Open(path, true)
	require.NoError(t, err)
	defer mf.Close()

	require.Equal(t, int64(len(data)), mf.Size())

	buf := make([]byte, 5)
	n, err := mf.ReadAt(buf, 10)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, data[10:15], buf)

	n, err = mf.ReadAt(buf, 18)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, 2, n)
	require.Equal(t, data[18:], buf[:n])

	_, err = mf.ReadAt(buf, 100)
	require.ErrorIs(t, err, io.EOF)

	require.NoError(t, mf.Close())
	_, err = mf.ReadAt(buf, 0)
	require.ErrorIs(t, err, os.ErrClosed)
}

func TestEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.img")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := mmap.Open(path, false)
	require.Error(t, err)
}
