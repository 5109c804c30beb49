// Package filesys maps "/"-separated paths onto a sector disk.
//
// The disk holds two special files: the free-sector bitmap, whose header
// is at sector 0, and the root directory, whose header is at sector 1.
// Both stay open for the life of a FileSystem.
//
// Every operation that changes metadata builds its result in a
// buftxn.BufTxn: the bitmap and the directories are loaded, modified in
// memory, and written back in one commit only once every step has
// succeeded. A failed operation simply drops its BufTxn, so the disk is
// left as it was.
//
// There is no locking; callers must not run operations concurrently.
package filesys

import (
	"fmt"
	"io"

	"github.com/mit-pdos/go-extentfs/alloc"
	"github.com/mit-pdos/go-extentfs/buftxn"
	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/dir"
	"github.com/mit-pdos/go-extentfs/disk"
	"github.com/mit-pdos/go-extentfs/hdr"
	"github.com/mit-pdos/go-extentfs/openfile"
	"github.com/mit-pdos/go-extentfs/util"
)

type FileSystem struct {
	d             disk.Disk
	numSectors    uint64
	freeMapFile   *openfile.OpenFile
	directoryFile *openfile.OpenFile

	// header sector -> number of session handles open on it
	opened map[common.Sector]uint64
}

// Format initializes d with an empty root directory and a bitmap in which
// only the two reserved header sectors and the sectors of the bitmap and
// directory files are in use.
func Format(d disk.Disk) (*FileSystem, error) {
	n, err := d.Size()
	if err != nil {
		return nil, err
	}
	if n <= common.DirectorySector {
		return nil, fmt.Errorf("format: %d-sector disk: %w", n, common.ErrNoSpace)
	}
	util.DPrintf(1, "Formatting the file system: %d sectors\n", n)

	tx := buftxn.Begin(d)
	freeMap := alloc.MkBitmap(n)
	directory := dir.New(common.NumDirEntries)
	mapHdr := new(hdr.FileHeader)
	dirHdr := new(hdr.FileHeader)

	freeMap.Mark(common.FreeMapSector)
	freeMap.Mark(common.DirectorySector)
	if err := mapHdr.Allocate(tx, freeMap, common.FreeMapFileSize(n)); err != nil {
		return nil, fmt.Errorf("format: bitmap file: %w", err)
	}
	if err := dirHdr.Allocate(tx, freeMap, directory.FileSize()); err != nil {
		return nil, fmt.Errorf("format: directory file: %w", err)
	}
	if err := mapHdr.WriteBack(tx, common.FreeMapSector); err != nil {
		return nil, err
	}
	if err := dirHdr.WriteBack(tx, common.DirectorySector); err != nil {
		return nil, err
	}

	// the headers are in tx now, so the files can be opened through it
	freeMapFile, err := openfile.Open(tx, common.FreeMapSector)
	if err != nil {
		return nil, err
	}
	directoryFile, err := openfile.Open(tx, common.DirectorySector)
	if err != nil {
		return nil, err
	}
	if err := freeMap.WriteBack(freeMapFile); err != nil {
		return nil, err
	}
	if err := directory.WriteBack(directoryFile); err != nil {
		return nil, err
	}
	if err := tx.CommitWait(); err != nil {
		return nil, fmt.Errorf("format: %w", err)
	}
	return Mount(d)
}

// Mount opens the bitmap and root directory of a formatted disk.
func Mount(d disk.Disk) (*FileSystem, error) {
	n, err := d.Size()
	if err != nil {
		return nil, err
	}
	freeMapFile, err := openfile.Open(d, common.FreeMapSector)
	if err != nil {
		return nil, fmt.Errorf("mount: bitmap header: %w", err)
	}
	if freeMapFile.Length() != common.FreeMapFileSize(n) {
		return nil, fmt.Errorf("mount: bitmap file is %d bytes for %d sectors: %w",
			freeMapFile.Length(), n, common.ErrCorrupt)
	}
	directoryFile, err := openfile.Open(d, common.DirectorySector)
	if err != nil {
		return nil, fmt.Errorf("mount: directory header: %w", err)
	}
	if directoryFile.Length() != common.DirectoryFileSize {
		return nil, fmt.Errorf("mount: directory file is %d bytes: %w",
			directoryFile.Length(), common.ErrCorrupt)
	}
	return &FileSystem{
		d:             d,
		numSectors:    n,
		freeMapFile:   freeMapFile,
		directoryFile: directoryFile,
		opened:        make(map[common.Sector]uint64),
	}, nil
}

func (fs *FileSystem) NumSectors() uint64 {
	return fs.numSectors
}

// NumFree reports the number of free sectors recorded in the bitmap.
func (fs *FileSystem) NumFree() (uint64, error) {
	bm, err := fs.begin().loadFreeMap()
	if err != nil {
		return 0, err
	}
	return bm.NumClear(), nil
}

// op is one file system operation in progress.
type op struct {
	fs *FileSystem
	tx *buftxn.BufTxn
}

func (fs *FileSystem) begin() *op {
	return &op{fs: fs, tx: buftxn.Begin(fs.d)}
}

func (op *op) loadFreeMap() (*alloc.Bitmap, error) {
	bm := alloc.MkBitmap(op.fs.numSectors)
	if err := bm.FetchFrom(op.fs.freeMapFile.WithDevice(op.tx)); err != nil {
		return nil, err
	}
	return bm, nil
}

func (op *op) saveFreeMap(bm *alloc.Bitmap) error {
	return bm.WriteBack(op.fs.freeMapFile.WithDevice(op.tx))
}

func (op *op) commit() error {
	return op.tx.CommitWait()
}

// Print dumps the bitmap and directory headers, the bitmap, and the root
// directory.
func (fs *FileSystem) Print(w io.Writer) error {
	op := fs.begin()
	fmt.Fprintf(w, "Bit map file header:\n")
	if err := fs.freeMapFile.Header().Print(op.tx, w); err != nil {
		return err
	}
	fmt.Fprintf(w, "Directory file header:\n")
	if err := fs.directoryFile.Header().Print(op.tx, w); err != nil {
		return err
	}
	bm, err := op.loadFreeMap()
	if err != nil {
		return err
	}
	bm.Print(w)
	root, err := op.root()
	if err != nil {
		return err
	}
	root.dir.Print(w)
	return nil
}
