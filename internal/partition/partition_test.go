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
package partition

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeEntry(sector []byte, i int, boot byte, typ MBRPartition, start, sectors uint32) {
	e := sector[mbrTableOffset+16*i:]
	e[0] = boot
	e[4] = byte(typ)
	binary.LittleEndian.PutUint32(e[8:], start)
	binary.LittleEndian.PutUint32(e[12:], sectors)
}

func newDisk(size int) []byte {
	disk := make([]byte, size)
	binary.LittleEndian.PutUint16(disk[mbrSignatureOffset:], mbrSignature)
	return disk
}

func TestProbeMBR(t *testing.T) {
	disk := newDisk(1 << 20)
	writeEntry(disk, 0, 0x80, PartitionTypeLinuxFilesystem, 2048, 1024)
	writeEntry(disk, 1, 0x00, PartitionTypeLinuxSwap, 4096, 1024)

	table, err := Probe(bytes.NewReader(disk), int64(len(disk)))
	require.NoError(t, err)
	require.Equal(t, SchemeMBR, table.Scheme)
	require.True(t, table.Consistent())
	require.Len(t, table.Partitions, 2)

	p := table.Partitions[0]
	require.True(t, p.Boot)
	require.Equal(t, int64(2048*SectorSize), p.Offset)
	require.Equal(t, int64(1024*SectorSize), p.Size)
	require.Equal(t, "Linux filesystem", p.Type.String())
}

func TestProbeOverflowingPartition(t *testing.T) {
	disk := newDisk(1 << 20)
	writeEntry(disk, 0, 0x00, PartitionTypeNTFSHPFSexFATQNX, 2048, 1<<20)

	table, err := Probe(bytes.NewReader(disk), int64(len(disk)))
	require.NoError(t, err)
	require.False(t, table.Consistent())
	require.Len(t, table.Overflowing, 1)
}

func TestProbeGPT(t *testing.T) {
	disk := newDisk(1 << 20)
	writeEntry(disk, 0, 0x00, PartitionTypeGPTProtectiveMBR, 1, 0xFFFFFFFF)
	copy(disk[SectorSize:], gptSignature)

	table, err := Probe(bytes.NewReader(disk), int64(len(disk)))
	require.NoError(t, err)
	require.Equal(t, SchemeGPT, table.Scheme)
	require.True(t, table.Consistent())
}

func TestProbeNoTable(t *testing.T) {
	table, err := Probe(bytes.NewReader(make([]byte, 4096)), 4096)
	require.NoError(t, err)
	require.Equal(t, SchemeNone, table.Scheme)
	require.False(t, table.Consistent())

	disk := newDisk(4096)
	disk[mbrTableOffset] = 0x42
	disk[mbrTableOffset+4] = byte(PartitionTypeFAT32LBA)
	_, err = ParseMBR(disk)
	require.Error(t, err)
}
