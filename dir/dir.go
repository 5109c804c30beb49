// Package dir implements directories: a fixed-size table of name to header
// sector entries, stored as the contents of an ordinary file. An entry
// flagged IsDir names another directory, which is how the namespace nests.
package dir

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-extentfs/common"
)

const (
	flagInUse uint32 = 1 << 0
	flagIsDir uint32 = 1 << 1

	entryMeta = 8 // flags and sector
)

type Entry struct {
	Name   string
	Sector common.Sector
	InUse  bool
	IsDir  bool
}

func (e *Entry) encode() []byte {
	var flags uint32
	if e.InUse {
		flags |= flagInUse
	}
	if e.IsDir {
		flags |= flagIsDir
	}
	enc := marshal.NewEnc(common.DirEntrySize)
	enc.PutInt32(flags)
	enc.PutInt32(uint32(e.Sector))
	b := enc.Finish()
	copy(b[entryMeta:], e.Name)
	return b
}

func decodeEntry(b []byte) Entry {
	dec := marshal.NewDec(b[:entryMeta])
	flags := dec.GetInt32()
	sector := dec.GetInt32()
	name := b[entryMeta:common.DirEntrySize]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return Entry{
		Name:   string(name),
		Sector: common.Sector(sector),
		InUse:  flags&flagInUse != 0,
		IsDir:  flags&flagIsDir != 0,
	}
}

// ValidName checks that name fits in an entry and is a single path
// component.
func ValidName(name string) error {
	if name == "" || uint64(len(name)) > common.FileNameMaxLen ||
		strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("%q: %w", name, common.ErrInvalidName)
	}
	return nil
}

type Directory struct {
	table []Entry
}

// New returns an empty directory with room for size entries.
func New(size uint64) *Directory {
	return &Directory{table: make([]Entry, size)}
}

// FileSize is the length of the file holding the directory.
func (d *Directory) FileSize() uint64 {
	return uint64(len(d.table)) * common.DirEntrySize
}

// FetchFrom reads the directory from the contents of its file.
func (d *Directory) FetchFrom(f io.ReaderAt) error {
	b := make([]byte, d.FileSize())
	if _, err := f.ReadAt(b, 0); err != nil {
		return fmt.Errorf("fetch directory: %w", err)
	}
	for i := range d.table {
		off := uint64(i) * common.DirEntrySize
		d.table[i] = decodeEntry(b[off : off+common.DirEntrySize])
	}
	return nil
}

// WriteBack stores the directory as the contents of its file.
func (d *Directory) WriteBack(f io.WriterAt) error {
	b := make([]byte, 0, d.FileSize())
	for i := range d.table {
		b = append(b, d.table[i].encode()...)
	}
	if _, err := f.WriteAt(b, 0); err != nil {
		return fmt.Errorf("write back directory: %w", err)
	}
	return nil
}

func (d *Directory) findIndex(name string) int {
	for i := range d.table {
		if d.table[i].InUse && d.table[i].Name == name {
			return i
		}
	}
	return -1
}

// Find returns the header sector of name.
func (d *Directory) Find(name string) (common.Sector, bool) {
	e, ok := d.Lookup(name)
	return e.Sector, ok
}

func (d *Directory) Lookup(name string) (Entry, bool) {
	i := d.findIndex(name)
	if i < 0 {
		return Entry{}, false
	}
	return d.table[i], true
}

// Add puts name in the first free slot. It fails if name is already
// present or the table is full.
func (d *Directory) Add(name string, sector common.Sector, isDir bool) error {
	if err := ValidName(name); err != nil {
		return err
	}
	if d.findIndex(name) >= 0 {
		return fmt.Errorf("%q: %w", name, common.ErrExists)
	}
	for i := range d.table {
		if !d.table[i].InUse {
			d.table[i] = Entry{Name: name, Sector: sector, InUse: true, IsDir: isDir}
			return nil
		}
	}
	return fmt.Errorf("directory full adding %q: %w", name, common.ErrNoSpace)
}

// Remove drops name from the table. The file's sectors are not released.
func (d *Directory) Remove(name string) error {
	i := d.findIndex(name)
	if i < 0 {
		return fmt.Errorf("%q: %w", name, common.ErrNotFound)
	}
	d.table[i].InUse = false
	return nil
}

// List returns the in-use entries in table order.
func (d *Directory) List() []Entry {
	var es []Entry
	for _, e := range d.table {
		if e.InUse {
			es = append(es, e)
		}
	}
	return es
}

func (d *Directory) IsEmpty() bool {
	return len(d.List()) == 0
}

// Print lists each entry with its kind and header sector.
func (d *Directory) Print(w io.Writer) {
	fmt.Fprintf(w, "Directory contents:\n")
	for _, e := range d.List() {
		kind := "F"
		if e.IsDir {
			kind = "D"
		}
		fmt.Fprintf(w, "Name: %s, Sector: %d, %s\n", e.Name, e.Sector, kind)
	}
	fmt.Fprintf(w, "\n")
}
