package buf

import (
	"github.com/mit-pdos/go-extentfs/common"
)

//
// A map from sectors to bufs. Dirty bufs are returned in the order in
// which they were first dirtied; reads do not affect the order.
//

type BufMap struct {
	addrs map[common.Sector]*Buf
	dirty []common.Sector
}

func MkBufMap() *BufMap {
	a := &BufMap{
		addrs: make(map[common.Sector]*Buf),
	}
	return a
}

func (bmap *BufMap) Insert(buf *Buf) {
	bmap.addrs[buf.Addr] = buf
}

func (bmap *BufMap) Lookup(addr common.Sector) *Buf {
	return bmap.addrs[addr]
}

// SetDirty marks buf, which must be in bmap, as written.
func (bmap *BufMap) SetDirty(buf *Buf) {
	if bmap.addrs[buf.Addr] != buf {
		panic("dirtying a buf not in the map")
	}
	if !buf.dirty {
		buf.dirty = true
		bmap.dirty = append(bmap.dirty, buf.Addr)
	}
}

func (bmap *BufMap) Ndirty() uint64 {
	return uint64(len(bmap.dirty))
}

func (bmap *BufMap) DirtyBufs() []*Buf {
	var bufs []*Buf
	for _, a := range bmap.dirty {
		bufs = append(bufs, bmap.addrs[a])
	}
	return bufs
}
