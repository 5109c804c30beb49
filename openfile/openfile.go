// Package openfile gives byte-addressed access to a file through its header.
// Files have the fixed length chosen at creation: reads stop and writes are
// truncated at the end of the file.
package openfile

import (
	"errors"
	"fmt"
	"io"

	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/disk"
	"github.com/mit-pdos/go-extentfs/hdr"
	"github.com/mit-pdos/go-extentfs/util"
)

type OpenFile struct {
	d      disk.Device
	sector common.Sector
	hdr    *hdr.FileHeader
	pos    uint64
}

var (
	_ io.ReaderAt        = (*OpenFile)(nil)
	_ io.WriterAt        = (*OpenFile)(nil)
	_ io.ReadWriteSeeker = (*OpenFile)(nil)
)

// Open loads the header stored at sector.
func Open(d disk.Device, sector common.Sector) (*OpenFile, error) {
	h := new(hdr.FileHeader)
	if err := h.FetchFrom(d, sector); err != nil {
		return nil, err
	}
	return &OpenFile{d: d, sector: sector, hdr: h}, nil
}

// WithDevice returns a view of the same file that performs its I/O on d,
// positioned at the start.
func (f *OpenFile) WithDevice(d disk.Device) *OpenFile {
	return &OpenFile{d: d, sector: f.sector, hdr: f.hdr}
}

// Sector is where the file's header lives.
func (f *OpenFile) Sector() common.Sector {
	return f.sector
}

func (f *OpenFile) Header() *hdr.FileHeader {
	return f.hdr
}

func (f *OpenFile) Length() uint64 {
	return f.hdr.FileLength()
}

// span clamps a transfer of n bytes at off to the file length.
func (f *OpenFile) span(n int, off int64) (uint64, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	length := f.Length()
	if uint64(off) >= length {
		return 0, nil
	}
	return util.Min(uint64(n), length-uint64(off)), nil
}

// ReadAt reads from the file starting at byte off. Fewer than len(p) bytes
// are read only at the end of the file, with io.EOF.
func (f *OpenFile) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.span(len(p), off)
	if err != nil {
		return 0, err
	}
	start := uint64(off)
	blk := make(disk.Block, disk.SectorSize)
	for done := uint64(0); done < n; {
		pos := start + done
		s, err := f.hdr.ByteToSector(f.d, pos)
		if err != nil {
			return int(done), err
		}
		if err := f.d.ReadTo(s, blk); err != nil {
			return int(done), err
		}
		done += uint64(copy(p[done:n], blk[pos%disk.SectorSize:]))
	}
	if n < uint64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

// WriteAt writes p into the file starting at byte off. The file never
// grows: bytes past its end are dropped and io.ErrShortWrite is returned.
func (f *OpenFile) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.span(len(p), off)
	if err != nil {
		return 0, err
	}
	start := uint64(off)
	blk := make(disk.Block, disk.SectorSize)
	for done := uint64(0); done < n; {
		pos := start + done
		s, err := f.hdr.ByteToSector(f.d, pos)
		if err != nil {
			return int(done), err
		}
		inSector := pos % disk.SectorSize
		chunk := util.Min(disk.SectorSize-inSector, n-done)
		if chunk < disk.SectorSize {
			// partial sector: keep the bytes around it
			if err := f.d.ReadTo(s, blk); err != nil {
				return int(done), err
			}
		}
		copy(blk[inSector:], p[done:done+chunk])
		if err := f.d.Write(s, blk); err != nil {
			return int(done), err
		}
		done += chunk
	}
	if n < uint64(len(p)) {
		return int(n), io.ErrShortWrite
	}
	return int(n), nil
}

func (f *OpenFile) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, int64(f.pos))
	f.pos += uint64(n)
	if n > 0 && errors.Is(err, io.EOF) {
		return n, nil
	}
	return n, err
}

func (f *OpenFile) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, int64(f.pos))
	f.pos += uint64(n)
	return n, err
}

func (f *OpenFile) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(f.pos)
	case io.SeekEnd:
		base = int64(f.Length())
	default:
		return 0, fmt.Errorf("bad whence %d", whence)
	}
	if base+offset < 0 {
		return 0, fmt.Errorf("negative position %d", base+offset)
	}
	f.pos = uint64(base + offset)
	return int64(f.pos), nil
}
