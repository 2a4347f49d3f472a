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
// Package partition looks for a partition table at the start of a
// reconstructed disk. A table whose partitions fit inside the disk is a strong
// hint that the array was assembled with the right order and layout.
package partition

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ostafen/raidrescue/internal/errs"
)

type Scheme string

const (
	SchemeNone Scheme = "none"
	SchemeMBR  Scheme = "mbr"
	SchemeGPT  Scheme = "gpt"
)

var gptSignature = []byte("EFI PART")

// Partition is a primary partition found in the table.
type Partition struct {
	Num    int
	Type   MBRPartition
	Boot   bool
	Offset int64 // Offset in bytes from the start of the disk
	Size   int64 // Size in bytes of the partition
}

func (p Partition) End() int64 {
	return p.Offset + p.Size
}

type Table struct {
	Scheme     Scheme
	Partitions []Partition
	// Overflowing lists the partitions extending past the end of the disk.
	Overflowing []Partition
}

// Consistent reports whether a table was found and every partition fits in
// the disk.
func (t *Table) Consistent() bool {
	return t.Scheme != SchemeNone && len(t.Overflowing) == 0
}

func (t *Table) String() string {
	if t.Scheme == SchemeNone {
		return "no partition table"
	}
	return fmt.Sprintf("%s partition table, %d partitions (%d past the end of the disk)",
		t.Scheme, len(t.Partitions), len(t.Overflowing))
}

// Probe reads the first sectors of a disk of the given size. A missing or
// malformed table is not an error: the scheme is SchemeNone.
func Probe(r io.ReaderAt, size int64) (*Table, error) {
	if size < 2*SectorSize {
		return &Table{Scheme: SchemeNone}, nil
	}

	buf := make([]byte, 2*SectorSize)
	if _, err := r.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, errs.IO(err, "unable to read the partition table")
	}

	mbr, err := ParseMBR(buf[:SectorSize])
	if err != nil {
		return &Table{Scheme: SchemeNone}, nil
	}

	t := &Table{Scheme: SchemeMBR}
	for i, e := range mbr.PartitionEntries {
		if e.PartitionType == PartitionTypeEmpty || e.TotalSectors == 0 {
			continue
		}
		if e.PartitionType == PartitionTypeGPTProtectiveMBR && bytes.HasPrefix(buf[SectorSize:], gptSignature) {
			t.Scheme = SchemeGPT
		}

		p := Partition{
			Num:    i + 1,
			Type:   e.PartitionType,
			Boot:   e.Bootable(),
			Offset: int64(e.StartLBA) * SectorSize,
			Size:   int64(e.TotalSectors) * SectorSize,
		}
		t.Partitions = append(t.Partitions, p)

		// A protective entry may cover 0xFFFFFFFF sectors on large disks.
		if p.End() > size && !(t.Scheme == SchemeGPT && e.PartitionType == PartitionTypeGPTProtectiveMBR) {
			t.Overflowing = append(t.Overflowing, p)
		}
	}

	if len(t.Partitions) == 0 {
		return &Table{Scheme: SchemeNone}, nil
	}
	return t, nil
}
