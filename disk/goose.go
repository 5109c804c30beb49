package disk

import (
	"fmt"

	gdisk "github.com/tchajed/goose/machine/disk"
)

// SectorsPerBlock is how many sectors are packed into one goose block.
const SectorsPerBlock = gdisk.BlockSize / SectorSize

var _ Disk = (*blockDisk)(nil)

// blockDisk lays sectors over a goose block disk, SectorsPerBlock to a
// block. A sector write is a read-modify-write of its block.
type blockDisk struct {
	d gdisk.Disk
}

func NewBlockDisk(d gdisk.Disk) Disk {
	return &blockDisk{d: d}
}

func (d *blockDisk) locate(a uint64) (uint64, uint64, error) {
	blkno := a / SectorsPerBlock
	if blkno >= d.d.Size() {
		return 0, 0, fmt.Errorf("out-of-bounds access at %v", a)
	}
	return blkno, (a % SectorsPerBlock) * SectorSize, nil
}

func (d *blockDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != SectorSize {
		panic("buffer is not sector-sized")
	}
	blkno, off, err := d.locate(a)
	if err != nil {
		return err
	}
	blk := d.d.Read(blkno)
	copy(buf, blk[off:off+SectorSize])
	return nil
}

func (d *blockDisk) Read(a uint64) (Block, error) {
	return Read(d, a)
}

func (d *blockDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != SectorSize {
		panic(fmt.Errorf("v is not sector-sized (%d bytes)", len(v)))
	}
	blkno, off, err := d.locate(a)
	if err != nil {
		return err
	}
	blk := d.d.Read(blkno)
	copy(blk[off:off+SectorSize], v)
	d.d.Write(blkno, blk)
	return nil
}

func (d *blockDisk) Size() (uint64, error) {
	return d.d.Size() * SectorsPerBlock, nil
}

func (d *blockDisk) Barrier() error {
	d.d.Barrier()
	return nil
}

func (d *blockDisk) Close() error {
	d.d.Close()
	return nil
}
