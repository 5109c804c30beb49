package hdr

import (
	"fmt"

	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/disk"
)

// Tier tags what a header's pointers address. A Direct header points at
// data sectors; any other tier points at child headers one tier down.
type Tier uint64

const (
	Direct Tier = iota
	Indirect
	DoubleIndirect
)

// TierFor returns the smallest tier able to describe a file of size bytes.
func TierFor(size uint64) (Tier, error) {
	switch {
	case size <= common.MaxFileSize:
		return Direct, nil
	case size <= common.MaxFileSize2:
		return Indirect, nil
	case size <= common.MaxFileSize3:
		return DoubleIndirect, nil
	}
	return 0, fmt.Errorf("file size %d exceeds %d: %w",
		size, common.MaxFileSize3, common.ErrNoSpace)
}

// Span is the number of file bytes behind each pointer of a tier-t header.
func (t Tier) Span() uint64 {
	switch t {
	case Direct:
		return disk.SectorSize
	case Indirect:
		return common.MaxFileSize
	case DoubleIndirect:
		return common.MaxFileSize2
	}
	panic(fmt.Errorf("bad tier %d", t))
}

func (t Tier) String() string {
	switch t {
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	case DoubleIndirect:
		return "double-indirect"
	}
	return fmt.Sprintf("tier(%d)", uint64(t))
}

// SectorsNeeded is the number of sectors, data and child headers but not
// the top-level header itself, that a file of size bytes occupies.
func SectorsNeeded(size uint64) (uint64, error) {
	t, err := TierFor(size)
	if err != nil {
		return 0, err
	}
	span := t.Span()
	if t == Direct {
		return (size + span - 1) / span, nil
	}
	var n uint64
	for remaining := size; remaining > 0; {
		child := remaining
		if child > span {
			child = span
		}
		c, _ := SectorsNeeded(child)
		n += 1 + c
		remaining -= child
	}
	return n, nil
}
