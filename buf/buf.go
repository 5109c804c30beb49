// buf holds in-memory images of disk sectors on behalf of an operation
package buf

import (
	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/disk"
	"github.com/mit-pdos/go-extentfs/util"
)

// A Buf is the in-memory image of one sector
type Buf struct {
	Addr  common.Sector
	Data  disk.Block
	dirty bool // has this sector been written to?
}

func MkBuf(addr common.Sector, data disk.Block) *Buf {
	if uint64(len(data)) != disk.SectorSize {
		panic("buf is not sector-sized")
	}
	b := &Buf{
		Addr:  addr,
		Data:  data,
		dirty: false,
	}
	return b
}

// Load the sector at addr from d into a new buf
func MkBufLoad(d disk.Device, addr common.Sector) (*Buf, error) {
	blk, err := disk.Read(d, addr)
	if err != nil {
		return nil, err
	}
	return MkBuf(addr, blk), nil
}

func (buf *Buf) IsDirty() bool {
	return buf.dirty
}

// WriteDirect installs the buf at its home sector on d
func (buf *Buf) WriteDirect(d disk.Device) error {
	util.DPrintf(5, "%v: write direct\n", buf.Addr)
	return d.Write(buf.Addr, buf.Data)
}
