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
package geometry

import (
	"errors"

	"github.com/ostafen/raidrescue/internal/errs"
	"github.com/ostafen/raidrescue/internal/image"
)

// Volume binds a table to opened image files and reads logical disks
// through it.
type Volume struct {
	table *Table
	files map[string]*image.File // keyed by entry id
	owned []*image.File
}

// Open opens the file of every entry. A file shared by several entries is
// opened once.
func Open(t *Table, opts image.Options) (*Volume, error) {
	byPath := make(map[string]*image.File)
	var owned []*image.File

	for _, e := range t.entries {
		if _, ok := byPath[e.Path]; ok {
			continue
		}
		f, err := image.Open(e.Path, opts)
		if err != nil {
			_ = image.CloseAll(owned)
			return nil, err
		}
		byPath[e.Path] = f
		owned = append(owned, f)
	}

	v, err := newVolume(t, byPath)
	if err != nil {
		_ = image.CloseAll(owned)
		return nil, err
	}
	v.owned = owned
	return v, nil
}

// Attach binds the table to already opened files, matched by path. The
// volume does not take ownership of files.
func Attach(t *Table, files []*image.File) (*Volume, error) {
	byPath := make(map[string]*image.File, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}
	return newVolume(t, byPath)
}

// Adopt is Attach, except that closing the volume closes files.
func Adopt(t *Table, files []*image.File) (*Volume, error) {
	v, err := Attach(t, files)
	if err != nil {
		return nil, err
	}
	v.owned = files
	return v, nil
}

func newVolume(t *Table, byPath map[string]*image.File) (*Volume, error) {
	files := make(map[string]*image.File, len(t.entries))
	for _, e := range t.entries {
		f, ok := byPath[e.Path]
		if !ok {
			return nil, errs.Configf("no image file for entry %q (%s)", e.ID, e.Path)
		}
		if f.Size < e.Len() {
			return nil, errs.IO(errors.New("image is truncated"),
				"entry %q needs %d bytes but %s has %d", e.ID, e.Len(), f.Name(), f.Size)
		}
		files[e.ID] = f
	}
	return &Volume{table: t, files: files}, nil
}

func (v *Volume) Table() *Table {
	return v.table
}

func (v *Volume) Disks() int {
	return v.table.Disks()
}

func (v *Volume) DiskSize(disk int) int64 {
	size, err := v.table.TotalLength(disk)
	if err != nil {
		return 0
	}
	return size
}

// ReadAt reads len(p) bytes of a logical disk starting at off, crossing entry
// boundaries as needed.
func (v *Volume) ReadAt(disk int, p []byte, off int64) (int, error) {
	n := 0
	for n < len(p) {
		loc, err := v.table.Resolve(disk, off+int64(n))
		if err != nil {
			return n, err
		}

		chunk := int(min(int64(len(p)-n), loc.Remaining()))
		if err := v.files[loc.Entry.ID].ReadFull(p[n:n+chunk], loc.Offset); err != nil {
			return n, err
		}
		n += chunk
	}
	return n, nil
}

func (v *Volume) Close() error {
	err := image.CloseAll(v.owned)
	v.owned = nil
	return err
}
