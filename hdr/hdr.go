// Package hdr implements the file header: a one-sector extent map from a
// file's logical bytes to disk sectors.
//
// A header whose file fits in NumDirect sectors points straight at data
// sectors. Larger files use indirect tiers: each pointer addresses a
// sector holding a complete child header that covers Span() bytes of the
// file, and children may themselves be indirect.
package hdr

import (
	"fmt"
	"io"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-extentfs/alloc"
	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/disk"
	"github.com/mit-pdos/go-extentfs/util"
)

type FileHeader struct {
	numBytes   uint64
	numSectors uint64 // pointers in use
	sectors    [common.NumDirect]common.Sector
}

// Tier is derived from the file length; the on-disk image carries no tag.
func (h *FileHeader) Tier() Tier {
	t, err := TierFor(h.numBytes)
	if err != nil {
		panic(err)
	}
	return t
}

func (h *FileHeader) FileLength() uint64 {
	return h.numBytes
}

func (h *FileHeader) NumSectors() uint64 {
	return h.numSectors
}

// Pointers returns the in-use entries of the pointer table.
func (h *FileHeader) Pointers() []common.Sector {
	ptrs := make([]common.Sector, h.numSectors)
	copy(ptrs, h.sectors[:h.numSectors])
	return ptrs
}

// Allocate initializes a fresh header for a file of size bytes, taking
// sectors from bm. Child headers of an indirect file are written to d as
// soon as they are built, one at a time.
//
// On error the header and bm are in an intermediate state; the caller must
// discard both.
func (h *FileHeader) Allocate(d disk.Device, bm *alloc.Bitmap, size uint64) error {
	need, err := SectorsNeeded(size)
	if err != nil {
		return err
	}
	if bm.NumClear() < need {
		return fmt.Errorf("file of %d bytes needs %d sectors, %d free: %w",
			size, need, bm.NumClear(), common.ErrNoSpace)
	}

	t, _ := TierFor(size)
	span := t.Span()
	h.numBytes = size
	h.numSectors = util.RoundUp(size, span)
	util.DPrintf(5, "Allocate: %d bytes, %v, %d pointers\n", size, t, h.numSectors)

	if t == Direct {
		for i := uint64(0); i < h.numSectors; i++ {
			s, err := bm.FindAndSet()
			if err != nil {
				return err
			}
			h.sectors[i] = s
		}
		return nil
	}

	remaining := size
	for i := uint64(0); i < h.numSectors; i++ {
		s, err := bm.FindAndSet()
		if err != nil {
			return err
		}
		h.sectors[i] = s
		child := new(FileHeader)
		if err := child.Allocate(d, bm, util.Min(remaining, span)); err != nil {
			return err
		}
		if err := child.WriteBack(d, s); err != nil {
			return err
		}
		remaining -= child.numBytes
	}
	return nil
}

func (h *FileHeader) fetchChild(d disk.Device, i uint64) (*FileHeader, error) {
	child := new(FileHeader)
	if err := child.FetchFrom(d, h.sectors[i]); err != nil {
		return nil, err
	}
	return child, nil
}

// Deallocate returns every sector the file owns to bm: data sectors and,
// for indirect files, each child header's own sectors before the sector
// holding the child. The header's own sector is the caller's.
func (h *FileHeader) Deallocate(d disk.Device, bm *alloc.Bitmap) error {
	t := h.Tier()
	for i := uint64(0); i < h.numSectors; i++ {
		if t != Direct {
			child, err := h.fetchChild(d, i)
			if err != nil {
				return err
			}
			if err := child.Deallocate(d, bm); err != nil {
				return err
			}
		}
		s := h.sectors[i]
		if s >= bm.Len() || !bm.Test(s) {
			return fmt.Errorf("freeing unallocated sector %d: %w", s, common.ErrCorrupt)
		}
		bm.Clear(s)
	}
	return nil
}

// ByteToSector returns the sector holding the byte at offset.
func (h *FileHeader) ByteToSector(d disk.Device, offset uint64) (common.Sector, error) {
	if offset >= h.numBytes {
		return 0, fmt.Errorf("offset %d beyond end of %d-byte file", offset, h.numBytes)
	}
	t := h.Tier()
	which := offset / t.Span()
	if t == Direct {
		return h.sectors[which], nil
	}
	child, err := h.fetchChild(d, which)
	if err != nil {
		return 0, err
	}
	return child.ByteToSector(d, offset%t.Span())
}

// walk calls fn on each sector below h in file order, child headers before
// the sectors they describe.
func (h *FileHeader) walk(d disk.Device, fn func(s common.Sector, isHeader bool)) error {
	t := h.Tier()
	for i := uint64(0); i < h.numSectors; i++ {
		if t == Direct {
			fn(h.sectors[i], false)
			continue
		}
		fn(h.sectors[i], true)
		child, err := h.fetchChild(d, i)
		if err != nil {
			return err
		}
		if err := child.walk(d, fn); err != nil {
			return err
		}
	}
	return nil
}

// Sectors lists every sector the file owns apart from its header: data
// sectors and child headers.
func (h *FileHeader) Sectors(d disk.Device) ([]common.Sector, error) {
	var all []common.Sector
	err := h.walk(d, func(s common.Sector, isHeader bool) {
		all = append(all, s)
	})
	return all, err
}

// DataSectors lists the file's data sectors in file order.
func (h *FileHeader) DataSectors(d disk.Device) ([]common.Sector, error) {
	var data []common.Sector
	err := h.walk(d, func(s common.Sector, isHeader bool) {
		if !isHeader {
			data = append(data, s)
		}
	})
	return data, err
}

func (h *FileHeader) Encode() disk.Block {
	enc := marshal.NewEnc(disk.SectorSize)
	enc.PutInt32(uint32(h.numBytes))
	enc.PutInt32(uint32(h.numSectors))
	for _, s := range h.sectors {
		enc.PutInt32(uint32(s))
	}
	return enc.Finish()
}

func Decode(b disk.Block) (*FileHeader, error) {
	dec := marshal.NewDec(b)
	h := new(FileHeader)
	h.numBytes = uint64(dec.GetInt32())
	h.numSectors = uint64(dec.GetInt32())
	for i := range h.sectors {
		h.sectors[i] = common.Sector(dec.GetInt32())
	}
	t, err := TierFor(h.numBytes)
	if err != nil {
		return nil, fmt.Errorf("header length %d: %w", h.numBytes, common.ErrCorrupt)
	}
	if h.numSectors != util.RoundUp(h.numBytes, t.Span()) {
		return nil, fmt.Errorf("header has %d pointers for %d bytes: %w",
			h.numSectors, h.numBytes, common.ErrCorrupt)
	}
	return h, nil
}

// FetchFrom reads the header stored at sector.
func (h *FileHeader) FetchFrom(d disk.Device, sector common.Sector) error {
	b, err := disk.Read(d, sector)
	if err != nil {
		return err
	}
	nh, err := Decode(b)
	if err != nil {
		return fmt.Errorf("sector %d: %w", sector, err)
	}
	*h = *nh
	return nil
}

// WriteBack stores the header at sector.
func (h *FileHeader) WriteBack(d disk.Device, sector common.Sector) error {
	return d.Write(sector, h.Encode())
}

// Print dumps the header and the file's contents, printable bytes as-is and
// anything else in hex.
func (h *FileHeader) Print(d disk.Device, w io.Writer) error {
	fmt.Fprintf(w, "FileHeader contents.  File size: %d.  File blocks:\n", h.numBytes)
	for _, s := range h.Pointers() {
		fmt.Fprintf(w, "%d ", s)
	}
	fmt.Fprintf(w, "\nFile contents:\n")
	data, err := h.DataSectors(d)
	if err != nil {
		return err
	}
	k := uint64(0)
	for _, s := range data {
		b, err := disk.Read(d, s)
		if err != nil {
			return err
		}
		for j := uint64(0); j < disk.SectorSize && k < h.numBytes; j, k = j+1, k+1 {
			if '\040' <= b[j] && b[j] <= '\176' {
				fmt.Fprintf(w, "%c", b[j])
			} else {
				fmt.Fprintf(w, "\\%x", b[j])
			}
		}
		fmt.Fprintf(w, "\n")
	}
	return nil
}
