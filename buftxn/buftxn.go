// Package buftxn buffers the sector writes of one file system operation.
//
// An operation begins a BufTxn, hands it to the header, directory and
// bitmap code as their disk.Device, and finally calls CommitWait. Reads
// through the BufTxn observe the operation's own pending writes; nothing
// reaches the disk before CommitWait. To abort the operation simply stop
// using it.
package buftxn

import (
	"fmt"

	"github.com/mit-pdos/go-extentfs/buf"
	"github.com/mit-pdos/go-extentfs/common"
	"github.com/mit-pdos/go-extentfs/disk"
	"github.com/mit-pdos/go-extentfs/util"
)

type BufTxn struct {
	d    disk.Disk
	bufs *buf.BufMap // map of bufs read/written by this transaction
}

var _ disk.Device = (*BufTxn)(nil)

func Begin(d disk.Disk) *BufTxn {
	trans := &BufTxn{
		d:    d,
		bufs: buf.MkBufMap(),
	}
	util.DPrintf(5, "Begin: %p\n", trans)
	return trans
}

func (buftxn *BufTxn) ReadBuf(addr common.Sector) (*buf.Buf, error) {
	b := buftxn.bufs.Lookup(addr)
	if b == nil {
		nb, err := buf.MkBufLoad(buftxn.d, addr)
		if err != nil {
			return nil, err
		}
		buftxn.bufs.Insert(nb)
		b = nb
	}
	return b, nil
}

// Caller overwrites addr without reading it
func (buftxn *BufTxn) OverWrite(addr common.Sector, data disk.Block) {
	b := buftxn.bufs.Lookup(addr)
	if b == nil {
		b = buf.MkBuf(addr, data)
		buftxn.bufs.Insert(b)
	} else {
		if len(data) != len(b.Data) {
			panic("overwrite")
		}
		b.Data = data
	}
	buftxn.bufs.SetDirty(b)
}

func (buftxn *BufTxn) ReadTo(a uint64, b disk.Block) error {
	rb, err := buftxn.ReadBuf(a)
	if err != nil {
		return err
	}
	copy(b, rb.Data)
	return nil
}

func (buftxn *BufTxn) Write(a uint64, v disk.Block) error {
	size, err := buftxn.d.Size()
	if err != nil {
		return err
	}
	if a >= size {
		return fmt.Errorf("out-of-bounds write at %v", a)
	}
	buftxn.OverWrite(a, util.CloneByteSlice(v))
	return nil
}

func (buftxn *BufTxn) NDirty() uint64 {
	return buftxn.bufs.Ndirty()
}

// CommitWait writes the dirty bufs to disk, in the order they were first
// written (sectors only read do not count), and waits for them to be
// durable.
func (buftxn *BufTxn) CommitWait() error {
	bufs := buftxn.bufs.DirtyBufs()
	util.DPrintf(5, "Commit %p: %d sectors\n", buftxn, len(bufs))
	if len(bufs) == 0 {
		return nil
	}
	for _, b := range bufs {
		if err := b.WriteDirect(buftxn.d); err != nil {
			return fmt.Errorf("commit sector %d: %w", b.Addr, err)
		}
	}
	return buftxn.d.Barrier()
}
