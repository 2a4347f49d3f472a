//go:build linux
// +build linux

package fuse

import (
	"context"
	"io"
	"os"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
	"github.com/ostafen/raidrescue/internal/logger"
)

// DiskFS is a read-only file system holding a single file: the reconstructed
// virtual disk.
type DiskFS struct {
	name  string
	r     io.ReaderAt
	size  int64
	mtime time.Time
	log   *logger.Logger
}

// NewDiskFS serves r as the file name. Failed reads are reported to log, if
// not nil, and answered with EIO.
func NewDiskFS(name string, r io.ReaderAt, size int64, log *logger.Logger) *DiskFS {
	if name == "" {
		name = DefaultName
	}
	return &DiskFS{
		name:  name,
		r:     r,
		size:  size,
		mtime: time.Now(),
		log:   log,
	}
}

func (dfs *DiskFS) Root() (fs.Node, error) {
	return &Dir{fs: dfs}, nil
}

// Dir implements both fs.Node and fs.HandleReadDirAller
type Dir struct {
	fs *DiskFS
}

func (d *Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = 1
	a.Mode = os.ModeDir | 0555
	a.Mtime = d.fs.mtime
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	if name != d.fs.name {
		return nil, fuse.ENOENT
	}
	return &File{fs: d.fs}, nil
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	return []fuse.Dirent{{
		Inode: 2,
		Name:  d.fs.name,
		Type:  fuse.DT_File,
	}}, nil
}

// File implements both fs.Node and fs.HandleReader
type File struct {
	fs *DiskFS
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Inode = 2
	a.Mode = 0444
	a.Size = uint64(f.fs.size)
	a.Mtime = f.fs.mtime
	return nil
}

func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	offset := req.Offset
	if offset >= f.fs.size {
		resp.Data = []byte{}
		return nil
	}

	size := min(int64(req.Size), f.fs.size-offset)
	buf := make([]byte, size)

	n, err := f.fs.r.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		if f.fs.log != nil {
			f.fs.log.Errorf("Read of %d bytes at offset %d failed: %v", size, offset, err)
		}
		return fuse.EIO
	}
	resp.Data = buf[:n]
	return nil
}
