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
	"encoding/binary"
	"fmt"
)

const (
	SectorSize = 512

	mbrTableOffset     = 0x1BE
	mbrSignatureOffset = 0x1FE
	mbrSignature       = 0xAA55
)

// MBRPartitionEntry represents a single 16-byte entry in the MBR's partition table.
type MBRPartitionEntry struct {
	BootIndicator uint8        // 0x00: 0x80 for bootable, 0x00 for inactive
	PartitionType MBRPartition // 0x04: Partition type ID (e.g., 0x0B for FAT32, 0x83 for Linux)
	StartLBA      uint32       // 0x08: Starting Logical Block Address (LBA)
	TotalSectors  uint32       // 0x0C: Total sectors in partition
}

func (p MBRPartitionEntry) Bootable() bool {
	return p.BootIndicator == 0x80
}

// MBR represents the Master Boot Record structure.
type MBR struct {
	DiskSignature    uint32
	PartitionEntries [4]MBRPartitionEntry
}

// ParseMBR parses the first sector of a disk. It fails when the boot
// signature is missing or a boot indicator holds an invalid value.
func ParseMBR(data []byte) (*MBR, error) {
	if len(data) < SectorSize {
		return nil, fmt.Errorf("input data slice size mismatch: expected %d bytes, got %d bytes", SectorSize, len(data))
	}

	if sig := binary.LittleEndian.Uint16(data[mbrSignatureOffset:]); sig != mbrSignature {
		return nil, fmt.Errorf("invalid MBR signature: expected 0x%04X, got 0x%04X", mbrSignature, sig)
	}

	mbr := MBR{DiskSignature: binary.LittleEndian.Uint32(data[0x1B8:])}
	for i := range mbr.PartitionEntries {
		entry := data[mbrTableOffset+i*16 : mbrTableOffset+(i+1)*16]

		e := MBRPartitionEntry{
			BootIndicator: entry[0x00],
			PartitionType: MBRPartition(entry[0x04]),
			StartLBA:      binary.LittleEndian.Uint32(entry[0x08:]),
			TotalSectors:  binary.LittleEndian.Uint32(entry[0x0C:]),
		}
		if e.BootIndicator != 0x00 && e.BootIndicator != 0x80 {
			return nil, fmt.Errorf("partition %d: invalid boot indicator 0x%02X", i+1, e.BootIndicator)
		}
		mbr.PartitionEntries[i] = e
	}
	return &mbr, nil
}

type MBRPartition uint8

const (
	PartitionTypeEmpty                MBRPartition = 0x00
	PartitionTypeFAT12                MBRPartition = 0x01
	PartitionTypeFAT16LessThan32MB    MBRPartition = 0x04
	PartitionTypeExtendedCHS          MBRPartition = 0x05
	PartitionTypeFAT16GreaterThan32MB MBRPartition = 0x06
	PartitionTypeNTFSHPFSexFATQNX     MBRPartition = 0x07
	PartitionTypeFAT32CHS             MBRPartition = 0x0B
	PartitionTypeFAT32LBA             MBRPartition = 0x0C
	PartitionTypeFAT16LBA             MBRPartition = 0x0E
	PartitionTypeExtendedLBA          MBRPartition = 0x0F
	PartitionTypeLinuxSwap            MBRPartition = 0x82
	PartitionTypeLinuxFilesystem      MBRPartition = 0x83
	PartitionTypeLinuxLVM             MBRPartition = 0x8E
	PartitionTypeLinuxRAID            MBRPartition = 0xFD
	PartitionTypeGPTProtectiveMBR     MBRPartition = 0xEE
	PartitionTypeEFISystemPartition   MBRPartition = 0xEF
)

func (id MBRPartition) String() string {
	switch id {
	case PartitionTypeEmpty:
		return "Empty"
	case PartitionTypeFAT12:
		return "FAT12"
	case PartitionTypeFAT16LessThan32MB:
		return "FAT16 (<32MB)"
	case PartitionTypeExtendedCHS:
		return "Extended (CHS)"
	case PartitionTypeFAT16GreaterThan32MB:
		return "FAT16 (>32MB)"
	case PartitionTypeNTFSHPFSexFATQNX:
		return "NTFS/HPFS/exFAT/QNX"
	case PartitionTypeFAT32CHS:
		return "FAT32 (CHS)"
	case PartitionTypeFAT32LBA:
		return "FAT32 (LBA)"
	case PartitionTypeFAT16LBA:
		return "FAT16 (LBA)"
	case PartitionTypeExtendedLBA:
		return "Extended (LBA)"
	case PartitionTypeLinuxSwap:
		return "Linux swap"
	case PartitionTypeLinuxFilesystem:
		return "Linux filesystem"
	case PartitionTypeLinuxLVM:
		return "Linux LVM"
	case PartitionTypeLinuxRAID:
		return "Linux RAID autodetect"
	case PartitionTypeGPTProtectiveMBR:
		return "GPT Protective MBR"
	case PartitionTypeEFISystemPartition:
		return "EFI System Partition"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", uint8(id))
	}
}
