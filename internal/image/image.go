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

// Package image models the disk image files a recovery session works on.
package image

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/fs"
	"github.com/ostafen/raidrescue/internal/mmap"
)

type Options struct {
	// Mmap maps images into memory instead of reading them through the file descriptor.
	Mmap bool
	// Pattern is the expected access pattern, forwarded to the kernel as a hint.
	Pattern fs.AccessPattern
}

// File is an image of one disk (or of a part of it). It is immutable once opened
// and safe for concurrent ReadAt calls.
type File struct {
	ID   string
	Path string
	Size int64

	r io.ReaderAt
	c io.Closer
}

func Open(path string, opts Options) (*File, error) {
	if opts.Mmap {
		mf, err := mmap.Open(path, opts.Pattern == fs.Random)
		if err != nil {
			return nil, errs.IO(err, "unable to map image %s", path)
		}
		return &File{ID: path, Path: path, Size: mf.Size(), r: mf, c: mf}, nil
	}

	f, err := fs.OpenWithPattern(path, opts.Pattern)
	if err != nil {
		return nil, errs.IO(err, "unable to open image %s", path)
	}

	size, err := fs.Size(f)
	if err != nil {
		f.Close()
		return nil, errs.IO(err, "unable to stat image %s", path)
	}
	return &File{ID: path, Path: path, Size: size, r: f, c: f}, nil
}

// OpenAll opens every path, closing the already opened files on failure.
func OpenAll(paths []string, opts Options) ([]*File, error) {
	files := make([]*File, 0, len(paths))
	for _, p := range paths {
		f, err := Open(p, opts)
		if err != nil {
			_ = CloseAll(files)
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

// New wraps an already opened reader. The returned file does not own r.
func New(id string, r io.ReaderAt, size int64) *File {
	return &File{ID: id, Path: id, Size: size, r: r}
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	return f.r.ReadAt(p, off)
}

// ReadFull fills p from off. Reading fewer bytes than requested is reported as
// an I/O failure naming the image.
func (f *File) ReadFull(p []byte, off int64) error {
	n, err := f.r.ReadAt(p, off)
	if n == len(p) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errs.IO(err, "short read from %s at offset %d (%d of %d bytes)", f.Name(), off, n, len(p))
}

// Name returns the base name of the image, used in reports.
func (f *File) Name() string {
	return filepath.Base(f.Path)
}

func (f *File) String() string {
	return f.ID
}

func (f *File) Close() error {
	if f.c == nil {
		return nil
	}
	err := f.c.Close()
	f.c = nil
	return err
}

func CloseAll(files []*File) error {
	var err error
	for _, f := range files {
		err = errors.Join(err, f.Close())
	}
	return err
}

// Sorted returns a copy of files ordered by ID.
func Sorted(files []*File) []*File {
	out := slices.Clone(files)
	slices.SortFunc(out, func(a, b *File) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// MinSize returns the size of the shortest file.
func MinSize(files []*File) int64 {
	if len(files) == 0 {
		return 0
	}
	size := files[0].Size
	for _, f := range files[1:] {
		size = min(size, f.Size)
	}
	return size
}

// IDs lists the ids of files, in order.
func IDs(files []*File) []string {
	ids := make([]string, len(files))
	for i, f := range files {
		ids[i] = f.ID
	}
	return ids
}

func Describe(files []*File) string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name()
	}
	return fmt.Sprintf("[%s]", strings.Join(names, " "))
}
