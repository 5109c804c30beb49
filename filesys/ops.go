package filesys

import (
	"fmt"

	"github.com/mit-pdos/go-extentfs/alloc"
	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/dir"
	"github.com/mit-pdos/go-extentfs/hdr"
	"github.com/mit-pdos/go-extentfs/openfile"
	"github.com/mit-pdos/go-extentfs/util"
)

// Create makes a file of exactly size bytes at path. The directories
// along path must exist.
func (fs *FileSystem) Create(path string, size uint64) error {
	util.DPrintf(1, "Create %s %d\n", path, size)
	if err := fs.create(path, size); err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	return nil
}

// CreateDir makes an empty directory at path, creating any missing
// directories along the way. Either every missing directory is created
// or none is. It fails with ErrExists only if path itself exists.
func (fs *FileSystem) CreateDir(path string) error {
	util.DPrintf(1, "CreateDir %s\n", path)
	if err := fs.createDir(path); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}

func (fs *FileSystem) create(path string, size uint64) error {
	op := fs.begin()
	parent, name, err := op.walkParent(path)
	if err != nil {
		return err
	}
	if _, ok := parent.dir.Find(name); ok {
		return fmt.Errorf("%q: %w", name, common.ErrExists)
	}
	bm, err := op.loadFreeMap()
	if err != nil {
		return err
	}
	if _, err := op.createIn(parent, name, size, false, bm); err != nil {
		return err
	}
	if err := op.saveFreeMap(bm); err != nil {
		return err
	}
	return op.commit()
}

func (fs *FileSystem) createDir(path string) error {
	comps, err := splitPath(path)
	if err != nil {
		return err
	}
	if len(comps) == 0 {
		return fmt.Errorf("path %q names the root: %w", path, common.ErrInvalidName)
	}
	op := fs.begin()
	sc, err := op.root()
	if err != nil {
		return err
	}
	var bm *alloc.Bitmap
	for i, c := range comps {
		last := i == len(comps)-1
		if e, ok := sc.dir.Lookup(c); ok {
			if last {
				return fmt.Errorf("%q: %w", c, common.ErrExists)
			}
			if !e.IsDir {
				return fmt.Errorf("%q: %w", c, common.ErrNotDir)
			}
			if sc, err = op.openDir(e.Sector); err != nil {
				return err
			}
			continue
		}
		if bm == nil {
			if bm, err = op.loadFreeMap(); err != nil {
				return err
			}
		}
		sector, err := op.createIn(sc, c, common.DirectoryFileSize, true, bm)
		if err != nil {
			return err
		}
		if sc, err = op.openDir(sector); err != nil {
			return err
		}
	}
	if err := op.saveFreeMap(bm); err != nil {
		return err
	}
	return op.commit()
}

// createIn adds name to parent and allocates its header and extents from
// bm. The header, any new directory image and then parent are written to
// the operation; bm is left for the caller to save.
func (op *op) createIn(parent *scope, name string, size uint64, isDir bool, bm *alloc.Bitmap) (common.Sector, error) {
	sector, err := bm.FindAndSet()
	if err != nil {
		return 0, fmt.Errorf("no sector for header of %q: %w", name, err)
	}
	if err := parent.dir.Add(name, sector, isDir); err != nil {
		return 0, err
	}
	h := new(hdr.FileHeader)
	if err := h.Allocate(op.tx, bm, size); err != nil {
		return 0, err
	}

	if err := h.WriteBack(op.tx, sector); err != nil {
		return 0, err
	}
	if isDir {
		f, err := openfile.Open(op.tx, sector)
		if err != nil {
			return 0, err
		}
		if err := dir.New(common.NumDirEntries).WriteBack(f); err != nil {
			return 0, err
		}
	}
	if err := parent.writeBack(); err != nil {
		return 0, err
	}
	return sector, nil
}

// Open returns the file or directory at path, reading and writing the
// disk directly.
func (fs *FileSystem) Open(path string) (*openfile.OpenFile, error) {
	util.DPrintf(1, "Open %s\n", path)
	e, err := fs.lookup(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return openfile.Open(fs.d, e.Sector)
}

// Stat returns the directory entry for path.
func (fs *FileSystem) Stat(path string) (dir.Entry, error) {
	e, err := fs.lookup(path)
	if err != nil {
		return dir.Entry{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return e, nil
}

func (fs *FileSystem) lookup(path string) (dir.Entry, error) {
	op := fs.begin()
	parent, name, err := op.walkParent(path)
	if err != nil {
		return dir.Entry{}, err
	}
	e, ok := parent.dir.Lookup(name)
	if !ok {
		return dir.Entry{}, fmt.Errorf("%q: %w", name, common.ErrNotFound)
	}
	return e, nil
}

// Remove deletes the file or empty directory at path and frees its
// sectors. A file open in a Session is not removed.
func (fs *FileSystem) Remove(path string) error {
	util.DPrintf(1, "Remove %s\n", path)
	op := fs.begin()
	err := func() error {
		parent, name, err := op.walkParent(path)
		if err != nil {
			return err
		}
		e, ok := parent.dir.Lookup(name)
		if !ok {
			return fmt.Errorf("%q: %w", name, common.ErrNotFound)
		}
		if e.IsDir {
			sc, err := op.openDir(e.Sector)
			if err != nil {
				return err
			}
			if !sc.dir.IsEmpty() {
				return fmt.Errorf("%q: %w", name, common.ErrNotEmpty)
			}
		}
		if err := op.release(parent, e); err != nil {
			return err
		}
		return op.commit()
	}()
	if err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// release frees e's sectors and drops it from parent, writing both the
// bitmap and parent back to the operation. Files open in a session are
// not released.
func (op *op) release(parent *scope, e dir.Entry) error {
	if n := op.fs.opened[e.Sector]; n > 0 {
		return fmt.Errorf("%q has %d open handles: %w", e.Name, n, common.ErrBusy)
	}
	bm, err := op.loadFreeMap()
	if err != nil {
		return err
	}
	h := new(hdr.FileHeader)
	if err := h.FetchFrom(op.tx, e.Sector); err != nil {
		return err
	}
	if err := h.Deallocate(op.tx, bm); err != nil {
		return err
	}
	if e.Sector >= bm.Len() || !bm.Test(e.Sector) {
		return fmt.Errorf("header sector %d of %q is free: %w",
			e.Sector, e.Name, common.ErrCorrupt)
	}
	bm.Clear(e.Sector)
	if err := parent.dir.Remove(e.Name); err != nil {
		return err
	}
	if err := op.saveFreeMap(bm); err != nil {
		return err
	}
	return parent.writeBack()
}

// RemoveTree deletes path and, if it is a directory, everything under
// it. Entries are removed bottom-up and each removal commits on its own,
// so a failure part way leaves the entries already removed gone and the
// rest intact.
func (fs *FileSystem) RemoveTree(path string) error {
	util.DPrintf(1, "RemoveTree %s\n", path)
	op := fs.begin()
	parent, name, err := op.walkParent(path)
	if err != nil {
		return fmt.Errorf("remove tree %s: %w", path, err)
	}
	e, ok := parent.dir.Lookup(name)
	if !ok {
		return fmt.Errorf("remove tree %s: %q: %w", path, name, common.ErrNotFound)
	}
	if err := fs.removeEntry(parent.sector(), e); err != nil {
		return fmt.Errorf("remove tree %s: %w", path, err)
	}
	return nil
}

// removeEntry removes e from the directory at parentSector, emptying it
// first if it is a directory.
func (fs *FileSystem) removeEntry(parentSector common.Sector, e dir.Entry) error {
	if e.IsDir {
		sc, err := fs.begin().openDir(e.Sector)
		if err != nil {
			return err
		}
		for _, child := range sc.dir.List() {
			if err := fs.removeEntry(e.Sector, child); err != nil {
				return err
			}
		}
	}
	util.DPrintf(3, "removeEntry %q at sector %d\n", e.Name, e.Sector)
	op := fs.begin()
	parent, err := op.openDir(parentSector)
	if err != nil {
		return err
	}
	if err := op.release(parent, e); err != nil {
		return err
	}
	return op.commit()
}

// List returns the entries of the directory at path.
func (fs *FileSystem) List(path string) ([]dir.Entry, error) {
	sc, err := fs.listDir(path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	return sc.dir.List(), nil
}

func (fs *FileSystem) listDir(path string) (*scope, error) {
	comps, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	return fs.begin().walk(comps)
}

// TreeEntry is one entry found by ListTree. Path is relative to the
// listed directory and Depth counts the directories between them.
type TreeEntry struct {
	dir.Entry
	Path  string
	Depth int
}

// ListTree returns every entry under the directory at path, each
// directory followed by its contents.
func (fs *FileSystem) ListTree(path string) ([]TreeEntry, error) {
	sc, err := fs.listDir(path)
	if err != nil {
		return nil, fmt.Errorf("list tree %s: %w", path, err)
	}
	var out []TreeEntry
	if err := fs.listTree(sc, "", 0, &out); err != nil {
		return nil, fmt.Errorf("list tree %s: %w", path, err)
	}
	return out, nil
}

func (fs *FileSystem) listTree(sc *scope, prefix string, depth int, out *[]TreeEntry) error {
	for _, e := range sc.dir.List() {
		p := prefix + e.Name
		*out = append(*out, TreeEntry{Entry: e, Path: p, Depth: depth})
		if !e.IsDir {
			continue
		}
		child, err := fs.begin().openDir(e.Sector)
		if err != nil {
			return err
		}
		if err := fs.listTree(child, p+"/", depth+1, out); err != nil {
			return err
		}
	}
	return nil
}
