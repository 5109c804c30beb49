package filesys

import (
	"fmt"

	"github.com/mit-pdos/go-extentfs/alloc"
	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/hdr"
)

// checker records which file owns each sector it has seen.
type checker struct {
	op    *op
	bm    *alloc.Bitmap
	owner map[common.Sector]string
}

func (c *checker) claim(s common.Sector, who string) error {
	if s >= c.bm.Len() {
		return fmt.Errorf("%s: sector %d out of range: %w", who, s, common.ErrCorrupt)
	}
	if prev, ok := c.owner[s]; ok {
		return fmt.Errorf("sector %d owned by both %s and %s: %w", s, prev, who, common.ErrCorrupt)
	}
	if !c.bm.Test(s) {
		return fmt.Errorf("%s: sector %d in use but free in bitmap: %w", who, s, common.ErrCorrupt)
	}
	c.owner[s] = who
	return nil
}

// claimFile claims the header at sector and everything below it.
func (c *checker) claimFile(sector common.Sector, who string) error {
	if err := c.claim(sector, who); err != nil {
		return err
	}
	h := new(hdr.FileHeader)
	if err := h.FetchFrom(c.op.tx, sector); err != nil {
		return fmt.Errorf("%s: %w", who, err)
	}
	sectors, err := h.Sectors(c.op.tx)
	if err != nil {
		return fmt.Errorf("%s: %w", who, err)
	}
	for _, s := range sectors {
		if err := c.claim(s, who); err != nil {
			return err
		}
	}
	return nil
}

func (c *checker) claimTree(sc *scope, path string) error {
	for _, e := range sc.dir.List() {
		p := path + "/" + e.Name
		if err := c.claimFile(e.Sector, p); err != nil {
			return err
		}
		if !e.IsDir {
			continue
		}
		child, err := c.op.openDir(e.Sector)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if err := c.claimTree(child, p); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies that the bitmap marks exactly the sectors reachable from
// the root: headers, child headers and data sectors of every file, each
// owned by a single file.
func (fs *FileSystem) Check() error {
	op := fs.begin()
	bm, err := op.loadFreeMap()
	if err != nil {
		return err
	}
	c := &checker{op: op, bm: bm, owner: make(map[common.Sector]string)}
	if err := c.claimFile(common.FreeMapSector, "bitmap"); err != nil {
		return err
	}
	if err := c.claimFile(common.DirectorySector, "/"); err != nil {
		return err
	}
	root, err := op.root()
	if err != nil {
		return err
	}
	if err := c.claimTree(root, ""); err != nil {
		return err
	}
	for s := uint64(0); s < bm.Len(); s++ {
		if _, ok := c.owner[s]; bm.Test(s) && !ok {
			return fmt.Errorf("sector %d marked in use but unreachable: %w", s, common.ErrCorrupt)
		}
	}
	return nil
}
