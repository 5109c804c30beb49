package common

import (
	"github.com/mit-pdos/go-extentfs/disk"
)

type Sector = uint64

const (
	// Sectors holding the headers of the bitmap file and the root directory
	// file, found without any other lookup.
	FreeMapSector   Sector = 0
	DirectorySector Sector = 1

	NBITSECTOR uint64 = disk.SectorSize * 8

	HDRMETA   = uint64(8) // numBytes and numSectors, 4 bytes each
	NumDirect = (disk.SectorSize - HDRMETA) / 4

	// Largest file each header tier can describe. A direct header points at
	// data sectors; each indirect tier points at NumDirect child headers of
	// the tier below.
	MaxFileSize  = NumDirect * disk.SectorSize
	MaxFileSize2 = NumDirect * MaxFileSize
	MaxFileSize3 = NumDirect * MaxFileSize2

	FileNameMaxLen uint64 = 15
	DirEntrySize   uint64 = 8 + FileNameMaxLen + 1
	NumDirEntries  uint64 = 64

	DirectoryFileSize = DirEntrySize * NumDirEntries

	MaxOpenFiles uint64 = 20
)

// FreeMapFileSize is the length of the bitmap file for a disk of numSectors.
func FreeMapFileSize(numSectors uint64) uint64 {
	return (numSectors + 7) / 8
}
