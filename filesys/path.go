package filesys

import (
	"fmt"
	"strings"

	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/dir"
	"github.com/mit-pdos/go-extentfs/openfile"
)

// scope is a directory loaded into memory together with the file it was
// read from. Changes reach the operation's BufTxn only through writeBack.
type scope struct {
	file *openfile.OpenFile
	dir  *dir.Directory
}

func (sc *scope) writeBack() error {
	return sc.dir.WriteBack(sc.file)
}

func (sc *scope) sector() common.Sector {
	return sc.file.Sector()
}

// splitPath breaks path into its components. Empty components are
// skipped, so "/", "" and "//" all name the root.
func splitPath(path string) ([]string, error) {
	var comps []string
	for _, c := range strings.Split(path, "/") {
		if c == "" {
			continue
		}
		if err := dir.ValidName(c); err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, nil
}

func (op *op) loadDir(f *openfile.OpenFile) (*scope, error) {
	d := dir.New(common.NumDirEntries)
	if err := d.FetchFrom(f); err != nil {
		return nil, err
	}
	return &scope{file: f, dir: d}, nil
}

func (op *op) root() (*scope, error) {
	return op.loadDir(op.fs.directoryFile.WithDevice(op.tx))
}

// openDir loads the directory whose header is at sector.
func (op *op) openDir(sector common.Sector) (*scope, error) {
	if sector == common.DirectorySector {
		return op.root()
	}
	f, err := openfile.Open(op.tx, sector)
	if err != nil {
		return nil, err
	}
	if f.Length() != common.DirectoryFileSize {
		return nil, fmt.Errorf("directory at sector %d is %d bytes: %w",
			sector, f.Length(), common.ErrCorrupt)
	}
	return op.loadDir(f)
}

// descend moves from sc into its subdirectory name.
func (op *op) descend(sc *scope, name string) (*scope, error) {
	e, ok := sc.dir.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, common.ErrNotFound)
	}
	if !e.IsDir {
		return nil, fmt.Errorf("%q: %w", name, common.ErrNotDir)
	}
	return op.openDir(e.Sector)
}

// walk resolves comps from the root, stopping at the first component
// that is missing or is not a directory.
func (op *op) walk(comps []string) (*scope, error) {
	sc, err := op.root()
	if err != nil {
		return nil, err
	}
	for _, c := range comps {
		sc, err = op.descend(sc, c)
		if err != nil {
			return nil, err
		}
	}
	return sc, nil
}

// walkParent resolves every component of path but the last, and returns
// the directory it ends in along with the last component.
func (op *op) walkParent(path string) (*scope, string, error) {
	comps, err := splitPath(path)
	if err != nil {
		return nil, "", err
	}
	if len(comps) == 0 {
		return nil, "", fmt.Errorf("path %q names the root: %w", path, common.ErrInvalidName)
	}
	sc, err := op.walk(comps[:len(comps)-1])
	if err != nil {
		return nil, "", err
	}
	return sc, comps[len(comps)-1], nil
}
